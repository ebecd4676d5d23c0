package service

import (
	"context"
	"math"

	"github.com/google/uuid"

	"quote-service/internal/model"
	"quote-service/internal/repository"
)

type StatisticsService interface {
	GetStatistics(ctx context.Context, userID uuid.UUID) (*model.Statistics, error)
}

type statisticsService struct {
	quotes repository.QuoteRepository
	guard  *QuotaGuard
}

func NewStatisticsService(quotes repository.QuoteRepository, guard *QuotaGuard) StatisticsService {
	return &statisticsService{quotes: quotes, guard: guard}
}

func (s *statisticsService) GetStatistics(ctx context.Context, userID uuid.UUID) (*model.Statistics, error) {
	quotes, err := s.quotes.ListByUserID(ctx, userID, 0)
	if err != nil {
		return nil, err
	}

	lifetime, err := s.quotes.Count(ctx, userID, nil)
	if err != nil {
		return nil, err
	}

	stats := ComputeStatistics(quotes, s.guard.CurrentWindow(), s.guard.Limit())
	stats.LifetimeQuotes = lifetime

	return &stats, nil
}

// ComputeStatistics derives the dashboard metrics from a user's live quotes. Every quote
// that has left draft counts as sent for the success rate.
func ComputeStatistics(quotes []model.Quote, month model.TimeRange, limit int) model.Statistics {
	stats := model.Statistics{
		TotalQuotes:  len(quotes),
		MonthlyLimit: limit,
	}

	var sent, approved int
	for _, q := range quotes {
		if month.Contains(q.CreatedAt) {
			stats.MonthlyQuotes++
		}
		if q.Status != model.QuoteStatusDraft {
			sent++
		}
		if q.Status == model.QuoteStatusApproved {
			approved++
			if q.Price != nil {
				stats.TotalRevenue += *q.Price
			}
		}
	}

	if sent > 0 {
		stats.SuccessRate = int(math.Round(100 * float64(approved) / float64(sent)))
	}

	return stats
}
