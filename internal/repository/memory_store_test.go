package repository_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"quote-service/internal/model"
	repo "quote-service/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newMemoryStore(t *testing.T) (*repo.MemoryStore, *fakeClock, uuid.UUID) {
	t.Helper()

	clock := &fakeClock{now: time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)}
	store := repo.NewMemoryStore().WithClock(clock.Now)

	userID, err := store.Users().Create(context.Background(), &model.User{Email: "owner@example.com", PasswordHash: "hash"})
	require.NoError(t, err)

	return store, clock, userID
}

func TestMemoryQuotes_CreateDefaultsAndCounter(t *testing.T) {
	store, _, userID := newMemoryStore(t)
	ctx := context.Background()

	created, err := store.Quotes().Create(ctx, &model.Quote{UserID: userID, ClientName: "Acme"})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)
	require.Equal(t, model.QuoteStatusDraft, created.Status)
	require.Equal(t, model.TemplateProfessional, created.TemplateStyle)
	require.Equal(t, created.CreatedAt, created.UpdatedAt)
	require.Nil(t, created.SentAt)
	require.Nil(t, created.PDFURL)

	lifetime, err := store.Quotes().Count(ctx, userID, nil)
	require.NoError(t, err)
	require.Equal(t, 1, lifetime)
}

func TestMemoryQuotes_CreateUnknownUser(t *testing.T) {
	store, _, _ := newMemoryStore(t)

	_, err := store.Quotes().Create(context.Background(), &model.Quote{UserID: uuid.New(), ClientName: "Acme"})
	require.ErrorIs(t, err, repo.ErrUserNotFound)
}

func TestMemoryQuotes_ListOrderedByUpdatedAt(t *testing.T) {
	store, clock, userID := newMemoryStore(t)
	ctx := context.Background()

	var ids []uuid.UUID
	for _, name := range []string{"first", "second", "third"} {
		q, err := store.Quotes().Create(ctx, &model.Quote{UserID: userID, ClientName: name})
		require.NoError(t, err)
		ids = append(ids, q.ID)
		clock.Advance(time.Minute)
	}

	list, err := store.Quotes().ListByUserID(ctx, userID, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, []uuid.UUID{ids[2], ids[1], ids[0]}, []uuid.UUID{list[0].ID, list[1].ID, list[2].ID})

	_, err = store.Quotes().Update(ctx, ids[0], model.QuotePatch{Price: model.Some[int64](10)})
	require.NoError(t, err)

	list, err = store.Quotes().ListByUserID(ctx, userID, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, ids[0], list[0].ID)
	require.Equal(t, ids[2], list[1].ID)
}

func TestMemoryQuotes_UpdateMergesAndAdvancesUpdatedAt(t *testing.T) {
	store, _, userID := newMemoryStore(t)
	ctx := context.Background()

	email := "client@example.com"
	created, err := store.Quotes().Create(ctx, &model.Quote{UserID: userID, ClientName: "Acme", ClientEmail: &email, IncludeVAT: true})
	require.NoError(t, err)

	// The clock does not move; updated_at must still advance.
	updated, err := store.Quotes().Update(ctx, created.ID, model.QuotePatch{
		ClientEmail: model.Null[string](),
		Price:       model.Some[int64](1200),
	})
	require.NoError(t, err)
	require.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	require.Equal(t, created.CreatedAt, updated.CreatedAt)
	require.Nil(t, updated.ClientEmail)
	require.Equal(t, int64(1200), *updated.Price)
	require.Equal(t, "Acme", updated.ClientName)
	require.True(t, updated.IncludeVAT)
}

func TestMemoryQuotes_UpdateUnknownDoesNotCreate(t *testing.T) {
	store, _, userID := newMemoryStore(t)
	ctx := context.Background()

	updated, err := store.Quotes().Update(ctx, uuid.New(), model.QuotePatch{ClientName: model.Some("Ghost")})
	require.NoError(t, err)
	require.Nil(t, updated)

	list, err := store.Quotes().ListByUserID(ctx, userID, 0)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestMemoryQuotes_DeleteKeepsLifetimeCounter(t *testing.T) {
	store, clock, userID := newMemoryStore(t)
	ctx := context.Background()

	q, err := store.Quotes().Create(ctx, &model.Quote{UserID: userID, ClientName: "Acme"})
	require.NoError(t, err)

	removed, err := store.Quotes().Delete(ctx, q.ID)
	require.NoError(t, err)
	require.True(t, removed)

	removed, err = store.Quotes().Delete(ctx, q.ID)
	require.NoError(t, err)
	require.False(t, removed)

	found, err := store.Quotes().FindByID(ctx, q.ID)
	require.NoError(t, err)
	require.Nil(t, found)

	lifetime, err := store.Quotes().Count(ctx, userID, nil)
	require.NoError(t, err)
	require.Equal(t, 1, lifetime)

	now := clock.Now()
	ranged, err := store.Quotes().Count(ctx, userID, &model.TimeRange{Start: now.Add(-time.Hour), End: now.Add(time.Hour)})
	require.NoError(t, err)
	require.Equal(t, 0, ranged)
}

func TestMemoryQuotes_RangedCountIsInclusive(t *testing.T) {
	store, clock, userID := newMemoryStore(t)
	ctx := context.Background()

	start := clock.Now()
	_, err := store.Quotes().Create(ctx, &model.Quote{UserID: userID, ClientName: "at start"})
	require.NoError(t, err)

	clock.Advance(time.Hour)
	end := clock.Now()
	_, err = store.Quotes().Create(ctx, &model.Quote{UserID: userID, ClientName: "at end"})
	require.NoError(t, err)

	clock.Advance(time.Second)
	_, err = store.Quotes().Create(ctx, &model.Quote{UserID: userID, ClientName: "after"})
	require.NoError(t, err)

	count, err := store.Quotes().Count(ctx, userID, &model.TimeRange{Start: start, End: end})
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestMemoryQuotes_CreateWithinQuotaIsExactUnderConcurrency(t *testing.T) {
	store, clock, userID := newMemoryStore(t)
	ctx := context.Background()

	now := clock.Now()
	window := model.TimeRange{Start: now.Add(-time.Hour), End: now.Add(time.Hour)}
	const limit = 5

	var wg sync.WaitGroup
	var created, rejected atomic.Int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Quotes().CreateWithinQuota(ctx, &model.Quote{UserID: userID, ClientName: "c"}, window, limit)
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, repo.ErrQuotaExceeded):
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(limit), created.Load())
	require.Equal(t, int32(15), rejected.Load())
}

func TestMemoryUsers_EmailIsCaseInsensitive(t *testing.T) {
	store, _, userID := newMemoryStore(t)
	ctx := context.Background()

	_, err := store.Users().Create(ctx, &model.User{Email: "OWNER@example.com", PasswordHash: "x"})
	require.ErrorIs(t, err, repo.ErrEmailTaken)

	u, err := store.Users().FindByEmail(ctx, "Owner@Example.com")
	require.NoError(t, err)
	require.Equal(t, userID, u.ID)
	require.Equal(t, model.SubscriptionFree, u.SubscriptionTier)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store, _, userID := newMemoryStore(t)
	ctx := context.Background()

	price := int64(100)
	q, err := store.Quotes().Create(ctx, &model.Quote{UserID: userID, ClientName: "Acme", Price: &price})
	require.NoError(t, err)

	*q.Price = 999
	q.ClientName = "mutated"

	stored, err := store.Quotes().FindByID(ctx, q.ID)
	require.NoError(t, err)
	require.Equal(t, int64(100), *stored.Price)
	require.Equal(t, "Acme", stored.ClientName)
}
