package repository

import (
	"context"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"quote-service/internal/model"
	_ "quote-service/migrations"
)

type QuoteRepositoryIntegrationTestSuite struct {
	suite.Suite
	db     *sqlx.DB
	quotes QuoteRepository
	users  UserRepository
	pgc    *postgres.PostgresContainer
	ctx    context.Context
}

func (s *QuoteRepositoryIntegrationTestSuite) SetupSuite() {
	s.ctx = context.Background()

	pgc, err := postgres.Run(s.ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("test-db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		log.Fatalf("could not start postgres container: %s", err)
	}
	s.pgc = pgc

	connStr, err := pgc.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("pgx", connStr)
	s.Require().NoError(err)
	s.db = db

	s.Require().NoError(goose.SetDialect("postgres"))
	s.Require().NoError(goose.Up(db.DB, "../../migrations"))

	s.quotes = NewPostgresQuoteRepository(s.db)
	s.users = NewPostgresUserRepository(s.db)
}

func (s *QuoteRepositoryIntegrationTestSuite) TearDownSuite() {
	s.db.Close()
	if err := s.pgc.Terminate(s.ctx); err != nil {
		log.Fatalf("failed to terminate pg container: %s", err)
	}
}

func (s *QuoteRepositoryIntegrationTestSuite) newUser() uuid.UUID {
	id, err := s.users.Create(s.ctx, &model.User{
		Email:            uuid.NewString() + "@test.com",
		PasswordHash:     "hashed_password",
		SubscriptionTier: model.SubscriptionFree,
	})
	s.Require().NoError(err)
	return id
}

func (s *QuoteRepositoryIntegrationTestSuite) TestCreateUpdateAndList() {
	userID := s.newUser()

	first, err := s.quotes.Create(s.ctx, &model.Quote{UserID: userID, ClientName: "First", IncludeVAT: true})
	s.Require().NoError(err)
	second, err := s.quotes.Create(s.ctx, &model.Quote{UserID: userID, ClientName: "Second", IncludeVAT: true})
	s.Require().NoError(err)

	updated, err := s.quotes.Update(s.ctx, first.ID, model.QuotePatch{Price: model.Some[int64](900)})
	s.Require().NoError(err)
	s.Require().NotNil(updated)
	assert.True(s.T(), updated.UpdatedAt.After(first.UpdatedAt))
	assert.Equal(s.T(), "First", updated.ClientName)

	list, err := s.quotes.ListByUserID(s.ctx, userID, 0)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	assert.Equal(s.T(), first.ID, list[0].ID)
	assert.Equal(s.T(), second.ID, list[1].ID)
}

func (s *QuoteRepositoryIntegrationTestSuite) TestLifetimeCounterSurvivesDelete() {
	userID := s.newUser()

	q, err := s.quotes.Create(s.ctx, &model.Quote{UserID: userID, ClientName: "Gone"})
	s.Require().NoError(err)

	removed, err := s.quotes.Delete(s.ctx, q.ID)
	s.Require().NoError(err)
	assert.True(s.T(), removed)

	lifetime, err := s.quotes.Count(s.ctx, userID, nil)
	s.Require().NoError(err)
	assert.Equal(s.T(), 1, lifetime)

	rng := model.TimeRange{Start: q.CreatedAt.Add(-time.Hour), End: q.CreatedAt.Add(time.Hour)}
	live, err := s.quotes.Count(s.ctx, userID, &rng)
	s.Require().NoError(err)
	assert.Equal(s.T(), 0, live)
}

func (s *QuoteRepositoryIntegrationTestSuite) TestCreateWithinQuota() {
	userID := s.newUser()
	now := time.Now()
	window := model.TimeRange{Start: now.Add(-time.Hour), End: now.Add(time.Hour)}

	for i := 0; i < 2; i++ {
		_, err := s.quotes.CreateWithinQuota(s.ctx, &model.Quote{UserID: userID, ClientName: "Q"}, window, 2)
		s.Require().NoError(err)
	}

	_, err := s.quotes.CreateWithinQuota(s.ctx, &model.Quote{UserID: userID, ClientName: "Q"}, window, 2)
	assert.ErrorIs(s.T(), err, ErrQuotaExceeded)

	lifetime, err := s.quotes.Count(s.ctx, userID, nil)
	s.Require().NoError(err)
	assert.Equal(s.T(), 2, lifetime)
}

func (s *QuoteRepositoryIntegrationTestSuite) TestFindByEmailIgnoresCase() {
	email := "Mixed." + uuid.NewString() + "@Test.com"
	id, err := s.users.Create(s.ctx, &model.User{Email: email, PasswordHash: "x", SubscriptionTier: model.SubscriptionFree})
	s.Require().NoError(err)

	found, err := s.users.FindByEmail(s.ctx, strings.ToLower(email))
	s.Require().NoError(err)
	assert.Equal(s.T(), id, found.ID)

	_, err = s.users.Create(s.ctx, &model.User{Email: strings.ToUpper(email), PasswordHash: "x", SubscriptionTier: model.SubscriptionFree})
	assert.ErrorIs(s.T(), err, ErrEmailTaken)
}

func TestQuoteRepositoryIntegration(t *testing.T) {
	if os.Getenv("DOCKER_HOST") == "" {
		t.Skip("Docker is not available, skipping integration test.")
	}
	suite.Run(t, new(QuoteRepositoryIntegrationTestSuite))
}
