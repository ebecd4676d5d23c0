package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"quote-service/internal/model"
	repo "quote-service/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

var userRowColumns = []string{
	"id", "email", "password_hash", "first_name", "last_name", "business_name", "phone", "address", "website",
	"logo_url", "quotes_created_count", "subscription_tier", "subscription_end_date", "created_at", "updated_at",
}

func userRows(id uuid.UUID, email string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(userRowColumns).AddRow(
		id.String(), email, "hash", "Dana", nil, "Dana Design", nil, nil, nil,
		nil, 7, "free", now.Add(model.TrialPeriod), now, now,
	)
}

func newUserRepo(t *testing.T) (repo.UserRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return repo.NewPostgresUserRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func TestPostgresUserRepository_Create(t *testing.T) {
	r, mock := newUserRepo(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users (email, password_hash, first_name, last_name, business_name, subscription_tier, subscription_end_date)`)).
		WithArgs("a@b.com", "hash", nil, nil, nil, "free", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id.String()))

	end := time.Now().Add(model.TrialPeriod)
	nid, err := r.Create(context.Background(), &model.User{
		Email: "a@b.com", PasswordHash: "hash", SubscriptionTier: "free", SubscriptionEndDate: &end,
	})
	require.NoError(t, err)
	require.Equal(t, id, nid)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepository_Create_DuplicateEmail(t *testing.T) {
	r, mock := newUserRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := r.Create(context.Background(), &model.User{Email: "a@b.com", PasswordHash: "hash"})
	require.ErrorIs(t, err, repo.ErrEmailTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepository_FindByEmail_CaseInsensitive(t *testing.T) {
	r, mock := newUserRepo(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE lower(email) = lower($1)`)).
		WithArgs("A@B.com").
		WillReturnRows(userRows(id, "a@b.com"))

	u, err := r.FindByEmail(context.Background(), "A@B.com")
	require.NoError(t, err)
	require.Equal(t, id, u.ID)
	require.Equal(t, 7, u.QuotesCreatedCount)
	require.Equal(t, "Dana Design", *u.BusinessName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepository_FindByID_NotFound(t *testing.T) {
	r, mock := newUserRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	_, err := r.FindByID(context.Background(), uuid.New())
	require.ErrorIs(t, err, repo.ErrUserNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepository_Update(t *testing.T) {
	r, mock := newUserRepo(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users SET business_name = $1, phone = $2, updated_at = now() WHERE id = $3 RETURNING`)).
		WithArgs("Dana Design", nil, id).
		WillReturnRows(userRows(id, "a@b.com"))

	u, err := r.Update(context.Background(), id, model.UserPatch{
		BusinessName: model.Some("Dana Design"),
		Phone:        model.Null[string](),
	})
	require.NoError(t, err)
	require.Equal(t, id, u.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
