package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"quote-service/internal/model"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrEmailTaken    = errors.New("email already registered")
	ErrQuotaExceeded = errors.New("monthly quote quota exceeded")
	ErrTokenNotFound = errors.New("refresh token not found")
)

// QuoteRepository owns the canonical copy of every quote. FindByID and Update return
// (nil, nil) for an unknown id.
type QuoteRepository interface {
	Create(ctx context.Context, quote *model.Quote) (*model.Quote, error)
	CreateWithinQuota(ctx context.Context, quote *model.Quote, window model.TimeRange, limit int) (*model.Quote, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Quote, error)
	ListByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]model.Quote, error)
	Update(ctx context.Context, id uuid.UUID, patch model.QuotePatch) (*model.Quote, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	Count(ctx context.Context, userID uuid.UUID, rng *model.TimeRange) (int, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) (uuid.UUID, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	Update(ctx context.Context, id uuid.UUID, patch model.UserPatch) (*model.User, error)
}

type TokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	Delete(ctx context.Context, tokenHash string) error
}

type DeviceTokenRepository interface {
	Register(ctx context.Context, userID uuid.UUID, token string) error
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// newQuoteRecord fills the fields the store is responsible for.
func newQuoteRecord(in *model.Quote, now time.Time) model.Quote {
	q := *in
	q.ID = uuid.New()
	q.CreatedAt = now
	q.UpdatedAt = now
	q.PDFURL = nil
	if q.Status == "" {
		q.Status = model.QuoteStatusDraft
	}
	if q.TemplateStyle == "" {
		q.TemplateStyle = model.TemplateProfessional
	}
	return q
}

// nextUpdatedAt keeps updated_at strictly increasing even when the clock has not moved.
func nextUpdatedAt(prev, now time.Time) time.Time {
	if !now.After(prev) {
		return prev.Add(time.Microsecond)
	}
	return now
}

func storeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

type setClauses struct {
	clauses []string
	args    []interface{}
}

func (s *setClauses) add(column string, value interface{}) {
	s.args = append(s.args, value)
	s.clauses = append(s.clauses, fmt.Sprintf("%s = $%d", column, len(s.args)))
}

func (s *setClauses) addRaw(expr string, value interface{}) {
	s.args = append(s.args, value)
	s.clauses = append(s.clauses, fmt.Sprintf(expr, len(s.args)))
}

func (s *setClauses) String() string {
	return strings.Join(s.clauses, ", ")
}

func fieldArg[T any](f model.Field[T]) interface{} {
	if f.Null {
		return nil
	}
	return f.Value
}
