package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"quote-service/internal/model"
)

type postgresTokenRepository struct {
	db *sqlx.DB
}

func NewPostgresTokenRepository(db *sqlx.DB) TokenRepository {
	return &postgresTokenRepository{db: db}
}

func (r *postgresTokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	query := `INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES ($1, $2, $3)`
	_, err := r.db.ExecContext(ctx, query, token.UserID, token.TokenHash, token.ExpiresAt)
	return err
}

func (r *postgresTokenRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	var token model.RefreshToken
	query := `SELECT id, user_id, token_hash, expires_at, created_at FROM refresh_tokens WHERE token_hash = $1`
	if err := r.db.GetContext(ctx, &token, query, tokenHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &token, nil
}

func (r *postgresTokenRepository) Delete(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token_hash = $1`, tokenHash)
	return err
}

type postgresDeviceTokenRepository struct {
	db *sqlx.DB
}

func NewPostgresDeviceTokenRepository(db *sqlx.DB) DeviceTokenRepository {
	return &postgresDeviceTokenRepository{db: db}
}

func (r *postgresDeviceTokenRepository) Register(ctx context.Context, userID uuid.UUID, token string) error {
	query := `
		INSERT INTO user_device_tokens (user_id, device_token)
		VALUES ($1, $2)
		ON CONFLICT (device_token) DO UPDATE SET user_id = $1
	`
	_, err := r.db.ExecContext(ctx, query, userID, token)
	return err
}

func (r *postgresDeviceTokenRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var tokens []string
	query := `SELECT device_token FROM user_device_tokens WHERE user_id = $1`
	err := r.db.SelectContext(ctx, &tokens, query, userID)
	return tokens, err
}
