package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"quote-service/internal/model"
)

const userColumns = `id, email, password_hash, first_name, last_name, business_name, phone, address, website,
	logo_url, quotes_created_count, subscription_tier, subscription_end_date, created_at, updated_at`

type postgresUserRepository struct {
	db *sqlx.DB
}

func NewPostgresUserRepository(db *sqlx.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

func (r *postgresUserRepository) Create(ctx context.Context, user *model.User) (uuid.UUID, error) {
	query := `
		INSERT INTO users (email, password_hash, first_name, last_name, business_name, subscription_tier, subscription_end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var newID uuid.UUID
	err := r.db.QueryRowxContext(ctx, query,
		user.Email, user.PasswordHash, user.FirstName, user.LastName, user.BusinessName,
		user.SubscriptionTier, user.SubscriptionEndDate,
	).Scan(&newID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return uuid.Nil, ErrEmailTaken
		}
		return uuid.Nil, err
	}

	return newID, nil
}

func (r *postgresUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return r.get(ctx, &user, query, email)
}

func (r *postgresUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.get(ctx, &user, query, id)
}

func (r *postgresUserRepository) get(ctx context.Context, user *model.User, query string, arg interface{}) (*model.User, error) {
	if err := r.db.GetContext(ctx, user, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *postgresUserRepository) Update(ctx context.Context, id uuid.UUID, patch model.UserPatch) (*model.User, error) {
	var set setClauses

	if patch.FirstName.Set {
		set.add("first_name", fieldArg(patch.FirstName))
	}
	if patch.LastName.Set {
		set.add("last_name", fieldArg(patch.LastName))
	}
	if patch.BusinessName.Set {
		set.add("business_name", fieldArg(patch.BusinessName))
	}
	if patch.Phone.Set {
		set.add("phone", fieldArg(patch.Phone))
	}
	if patch.Address.Set {
		set.add("address", fieldArg(patch.Address))
	}
	if patch.Website.Set {
		set.add("website", fieldArg(patch.Website))
	}
	if patch.LogoURL.Set {
		set.add("logo_url", fieldArg(patch.LogoURL))
	}
	set.clauses = append(set.clauses, "updated_at = now()")

	set.args = append(set.args, id)
	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d RETURNING %s", set.String(), len(set.args), userColumns)

	var user model.User
	if err := r.db.QueryRowxContext(ctx, query, set.args...).StructScan(&user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &user, nil
}
