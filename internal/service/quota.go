package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"quote-service/internal/model"
	"quote-service/internal/repository"
)

const DefaultMonthlyQuoteLimit = 50

type QuotaUsage struct {
	Used        int       `json:"used"`
	Limit       int       `json:"limit"`
	Remaining   int       `json:"remaining"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

// QuotaGuard decides whether a user may create another quote in the current calendar month.
type QuotaGuard struct {
	quotes repository.QuoteRepository
	limit  int
	loc    *time.Location
	now    func() time.Time
}

func NewQuotaGuard(quotes repository.QuoteRepository, limit int, loc *time.Location) *QuotaGuard {
	if limit <= 0 {
		limit = DefaultMonthlyQuoteLimit
	}
	if loc == nil {
		loc = time.Local
	}
	return &QuotaGuard{quotes: quotes, limit: limit, loc: loc, now: time.Now}
}

func (g *QuotaGuard) WithClock(now func() time.Time) *QuotaGuard {
	g.now = now
	return g
}

func (g *QuotaGuard) Limit() int { return g.limit }

// Window returns the calendar month containing t, from its first instant to its last
// nanosecond, in the guard's location.
func (g *QuotaGuard) Window(t time.Time) model.TimeRange {
	local := t.In(g.loc)
	start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, g.loc)
	return model.TimeRange{
		Start: start,
		End:   start.AddDate(0, 1, 0).Add(-time.Nanosecond),
	}
}

func (g *QuotaGuard) CurrentWindow() model.TimeRange {
	return g.Window(g.now())
}

func (g *QuotaGuard) Usage(ctx context.Context, userID uuid.UUID) (*QuotaUsage, error) {
	window := g.CurrentWindow()
	used, err := g.quotes.Count(ctx, userID, &window)
	if err != nil {
		return nil, err
	}

	remaining := g.limit - used
	if remaining < 0 {
		remaining = 0
	}

	return &QuotaUsage{
		Used:        used,
		Limit:       g.limit,
		Remaining:   remaining,
		PeriodStart: window.Start,
		PeriodEnd:   window.End,
	}, nil
}

// Check is advisory. Creation goes through CreateWithinQuota, which holds the per-user lock.
func (g *QuotaGuard) Check(ctx context.Context, userID uuid.UUID) error {
	usage, err := g.Usage(ctx, userID)
	if err != nil {
		return err
	}
	if usage.Used >= g.limit {
		return ErrQuotaExceeded
	}
	return nil
}
