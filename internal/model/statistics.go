package model

type Statistics struct {
	TotalQuotes    int   `json:"total_quotes"`
	MonthlyQuotes  int   `json:"monthly_quotes"`
	MonthlyLimit   int   `json:"monthly_limit"`
	SuccessRate    int   `json:"success_rate"`
	TotalRevenue   int64 `json:"total_revenue"`
	LifetimeQuotes int   `json:"lifetime_quotes"`
}
