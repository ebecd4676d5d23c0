package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"quote-service/internal/model"
)

const quoteColumns = `id, user_id, client_name, client_email, project_description, estimated_hours, price,
	include_vat, template_style, generated_content, status, created_at, updated_at, sent_at, pdf_url`

type postgresQuoteRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewPostgresQuoteRepository(db *sqlx.DB) QuoteRepository {
	return &postgresQuoteRepository{db: db, now: time.Now}
}

func (r *postgresQuoteRepository) Create(ctx context.Context, quote *model.Quote) (*model.Quote, error) {
	return r.create(ctx, quote, nil, 0)
}

func (r *postgresQuoteRepository) CreateWithinQuota(ctx context.Context, quote *model.Quote, window model.TimeRange, limit int) (*model.Quote, error) {
	return r.create(ctx, quote, &window, limit)
}

// create inserts the quote and bumps the owner's lifetime counter in one transaction.
// The user row lock serializes concurrent creations for the same owner, so the
// window count and the insert cannot interleave with another request.
func (r *postgresQuoteRepository) create(ctx context.Context, quote *model.Quote, window *model.TimeRange, limit int) (*model.Quote, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create quote: %w", err)
	}
	defer tx.Rollback()

	var counter int
	err = tx.GetContext(ctx, &counter, `SELECT quotes_created_count FROM users WHERE id = $1 FOR UPDATE`, quote.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lock user: %w", err)
	}

	if window != nil {
		var used int
		query := `SELECT COUNT(*) FROM quotes WHERE user_id = $1 AND created_at BETWEEN $2 AND $3`
		if err := tx.GetContext(ctx, &used, query, quote.UserID, window.Start, window.End); err != nil {
			return nil, fmt.Errorf("count quotes in window: %w", err)
		}
		if used >= limit {
			return nil, ErrQuotaExceeded
		}
	}

	record := newQuoteRecord(quote, storeTime(r.now()))

	insert := `
		INSERT INTO quotes (id, user_id, client_name, client_email, project_description, estimated_hours, price,
			include_vat, template_style, generated_content, status, created_at, updated_at, sent_at, pdf_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = tx.ExecContext(ctx, insert,
		record.ID, record.UserID, record.ClientName, record.ClientEmail, record.ProjectDescription,
		record.EstimatedHours, record.Price, record.IncludeVAT, record.TemplateStyle, record.GeneratedContent,
		string(record.Status), record.CreatedAt, record.UpdatedAt, record.SentAt, record.PDFURL,
	)
	if err != nil {
		return nil, fmt.Errorf("insert quote: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE users SET quotes_created_count = quotes_created_count + 1 WHERE id = $1`, quote.UserID); err != nil {
		return nil, fmt.Errorf("increment quote counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create quote: %w", err)
	}

	return &record, nil
}

func (r *postgresQuoteRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Quote, error) {
	var quote model.Quote
	query := `SELECT ` + quoteColumns + ` FROM quotes WHERE id = $1`
	err := r.db.GetContext(ctx, &quote, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &quote, nil
}

func (r *postgresQuoteRepository) ListByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]model.Quote, error) {
	var limitArg interface{}
	if limit > 0 {
		limitArg = limit
	}

	query := `SELECT ` + quoteColumns + ` FROM quotes WHERE user_id = $1 ORDER BY updated_at DESC, created_at DESC LIMIT $2`

	var quotes []model.Quote
	if err := r.db.SelectContext(ctx, &quotes, query, userID, limitArg); err != nil {
		return nil, err
	}

	if quotes == nil {
		quotes = []model.Quote{}
	}

	return quotes, nil
}

func (r *postgresQuoteRepository) Update(ctx context.Context, id uuid.UUID, patch model.QuotePatch) (*model.Quote, error) {
	var set setClauses

	if patch.ClientName.Set && !patch.ClientName.Null {
		set.add("client_name", patch.ClientName.Value)
	}
	if patch.ClientEmail.Set {
		set.add("client_email", fieldArg(patch.ClientEmail))
	}
	if patch.ProjectDescription.Set {
		set.add("project_description", fieldArg(patch.ProjectDescription))
	}
	if patch.EstimatedHours.Set {
		set.add("estimated_hours", fieldArg(patch.EstimatedHours))
	}
	if patch.Price.Set {
		set.add("price", fieldArg(patch.Price))
	}
	if patch.IncludeVAT.Set && !patch.IncludeVAT.Null {
		set.add("include_vat", patch.IncludeVAT.Value)
	}
	if patch.TemplateStyle.Set && !patch.TemplateStyle.Null {
		set.add("template_style", patch.TemplateStyle.Value)
	}
	if patch.GeneratedContent.Set {
		set.add("generated_content", fieldArg(patch.GeneratedContent))
	}
	if patch.Status.Set && !patch.Status.Null {
		set.add("status", string(patch.Status.Value))
	}
	if patch.SentAt.Set {
		if patch.SentAt.Null {
			set.add("sent_at", nil)
		} else {
			set.add("sent_at", storeTime(patch.SentAt.Value))
		}
	}
	if patch.PDFURL.Set {
		set.add("pdf_url", fieldArg(patch.PDFURL))
	}
	set.addRaw("updated_at = GREATEST($%d, updated_at + interval '1 microsecond')", storeTime(r.now()))

	set.args = append(set.args, id)
	query := fmt.Sprintf("UPDATE quotes SET %s WHERE id = $%d RETURNING %s", set.String(), len(set.args), quoteColumns)

	var quote model.Quote
	if err := r.db.QueryRowxContext(ctx, query, set.args...).StructScan(&quote); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &quote, nil
}

func (r *postgresQuoteRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM quotes WHERE id = $1`, id)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

// Count returns the lifetime counter when rng is nil and the number of live quotes created
// inside rng otherwise. The two disagree once quotes are deleted.
func (r *postgresQuoteRepository) Count(ctx context.Context, userID uuid.UUID, rng *model.TimeRange) (int, error) {
	var count int

	if rng == nil {
		err := r.db.GetContext(ctx, &count, `SELECT quotes_created_count FROM users WHERE id = $1`, userID)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return count, err
	}

	query := `SELECT COUNT(*) FROM quotes WHERE user_id = $1 AND created_at BETWEEN $2 AND $3`
	if err := r.db.GetContext(ctx, &count, query, userID, rng.Start, rng.End); err != nil {
		return 0, err
	}

	return count, nil
}
