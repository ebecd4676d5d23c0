package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"quote-service/internal/model"
)

// MemoryStore keeps users, quotes and tokens in process memory behind one lock.
// It is constructed once by the host and handed to the services through the
// repository interfaces returned by its accessors.
type MemoryStore struct {
	mu      sync.RWMutex
	now     func() time.Time
	users   map[uuid.UUID]*model.User
	quotes  map[uuid.UUID]*model.Quote
	tokens  map[string]model.RefreshToken
	devices map[string]uuid.UUID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:     time.Now,
		users:   make(map[uuid.UUID]*model.User),
		quotes:  make(map[uuid.UUID]*model.Quote),
		tokens:  make(map[string]model.RefreshToken),
		devices: make(map[string]uuid.UUID),
	}
}

// WithClock replaces the time source. Intended for tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *MemoryStore) Quotes() QuoteRepository             { return memoryQuotes{s} }
func (s *MemoryStore) Users() UserRepository               { return memoryUsers{s} }
func (s *MemoryStore) Tokens() TokenRepository             { return memoryTokens{s} }
func (s *MemoryStore) DeviceTokens() DeviceTokenRepository { return memoryDevices{s} }

func (s *MemoryStore) clock() time.Time {
	return storeTime(s.now())
}

func cloneQuote(q *model.Quote) *model.Quote {
	c := *q
	c.ClientEmail = clonePtr(q.ClientEmail)
	c.ProjectDescription = clonePtr(q.ProjectDescription)
	c.EstimatedHours = clonePtr(q.EstimatedHours)
	c.Price = clonePtr(q.Price)
	c.GeneratedContent = clonePtr(q.GeneratedContent)
	c.SentAt = clonePtr(q.SentAt)
	c.PDFURL = clonePtr(q.PDFURL)
	return &c
}

func cloneUser(u *model.User) *model.User {
	c := *u
	c.FirstName = clonePtr(u.FirstName)
	c.LastName = clonePtr(u.LastName)
	c.BusinessName = clonePtr(u.BusinessName)
	c.Phone = clonePtr(u.Phone)
	c.Address = clonePtr(u.Address)
	c.Website = clonePtr(u.Website)
	c.LogoURL = clonePtr(u.LogoURL)
	c.SubscriptionEndDate = clonePtr(u.SubscriptionEndDate)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

type memoryQuotes struct{ s *MemoryStore }

func (m memoryQuotes) Create(ctx context.Context, quote *model.Quote) (*model.Quote, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	return m.insertLocked(quote)
}

func (m memoryQuotes) CreateWithinQuota(ctx context.Context, quote *model.Quote, window model.TimeRange, limit int) (*model.Quote, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, ok := m.s.users[quote.UserID]; !ok {
		return nil, ErrUserNotFound
	}
	if m.countLocked(quote.UserID, window) >= limit {
		return nil, ErrQuotaExceeded
	}

	return m.insertLocked(quote)
}

func (m memoryQuotes) insertLocked(quote *model.Quote) (*model.Quote, error) {
	user, ok := m.s.users[quote.UserID]
	if !ok {
		return nil, ErrUserNotFound
	}

	record := newQuoteRecord(quote, m.s.clock())
	if record.SentAt != nil {
		sentAt := storeTime(*record.SentAt)
		record.SentAt = &sentAt
	}
	m.s.quotes[record.ID] = cloneQuote(&record)
	user.QuotesCreatedCount++

	return cloneQuote(&record), nil
}

func (m memoryQuotes) countLocked(userID uuid.UUID, window model.TimeRange) int {
	count := 0
	for _, q := range m.s.quotes {
		if q.UserID == userID && window.Contains(q.CreatedAt) {
			count++
		}
	}
	return count
}

func (m memoryQuotes) FindByID(ctx context.Context, id uuid.UUID) (*model.Quote, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	q, ok := m.s.quotes[id]
	if !ok {
		return nil, nil
	}
	return cloneQuote(q), nil
}

func (m memoryQuotes) ListByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]model.Quote, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	quotes := []model.Quote{}
	for _, q := range m.s.quotes {
		if q.UserID == userID {
			quotes = append(quotes, *cloneQuote(q))
		}
	}

	sort.Slice(quotes, func(i, j int) bool {
		if !quotes[i].UpdatedAt.Equal(quotes[j].UpdatedAt) {
			return quotes[i].UpdatedAt.After(quotes[j].UpdatedAt)
		}
		return quotes[i].CreatedAt.After(quotes[j].CreatedAt)
	})

	if limit > 0 && len(quotes) > limit {
		quotes = quotes[:limit]
	}

	return quotes, nil
}

func (m memoryQuotes) Update(ctx context.Context, id uuid.UUID, patch model.QuotePatch) (*model.Quote, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	stored, ok := m.s.quotes[id]
	if !ok {
		return nil, nil
	}

	updated := cloneQuote(stored)
	patch.Apply(updated)
	if updated.SentAt != nil {
		sentAt := storeTime(*updated.SentAt)
		updated.SentAt = &sentAt
	}
	updated.UpdatedAt = nextUpdatedAt(stored.UpdatedAt, m.s.clock())
	m.s.quotes[id] = updated

	return cloneQuote(updated), nil
}

func (m memoryQuotes) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, ok := m.s.quotes[id]; !ok {
		return false, nil
	}
	delete(m.s.quotes, id)
	return true, nil
}

func (m memoryQuotes) Count(ctx context.Context, userID uuid.UUID, rng *model.TimeRange) (int, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	if rng == nil {
		user, ok := m.s.users[userID]
		if !ok {
			return 0, nil
		}
		return user.QuotesCreatedCount, nil
	}

	return m.countLocked(userID, *rng), nil
}

type memoryUsers struct{ s *MemoryStore }

func (m memoryUsers) Create(ctx context.Context, user *model.User) (uuid.UUID, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	for _, existing := range m.s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return uuid.Nil, ErrEmailTaken
		}
	}

	now := m.s.clock()
	record := cloneUser(user)
	record.ID = uuid.New()
	record.QuotesCreatedCount = 0
	record.CreatedAt = now
	record.UpdatedAt = now
	if record.SubscriptionTier == "" {
		record.SubscriptionTier = model.SubscriptionFree
	}
	m.s.users[record.ID] = record

	return record.ID, nil
}

func (m memoryUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	for _, u := range m.s.users {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return nil, ErrUserNotFound
}

func (m memoryUsers) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	u, ok := m.s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (m memoryUsers) Update(ctx context.Context, id uuid.UUID, patch model.UserPatch) (*model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	u, ok := m.s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}

	patch.Apply(u)
	u.UpdatedAt = nextUpdatedAt(u.UpdatedAt, m.s.clock())
	return cloneUser(u), nil
}

type memoryTokens struct{ s *MemoryStore }

func (m memoryTokens) Create(ctx context.Context, token *model.RefreshToken) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	record := *token
	record.ID = uuid.New()
	record.CreatedAt = m.s.clock()
	m.s.tokens[record.TokenHash] = record
	return nil
}

func (m memoryTokens) FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	token, ok := m.s.tokens[tokenHash]
	if !ok {
		return nil, ErrTokenNotFound
	}
	return &token, nil
}

func (m memoryTokens) Delete(ctx context.Context, tokenHash string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	delete(m.s.tokens, tokenHash)
	return nil
}

type memoryDevices struct{ s *MemoryStore }

func (m memoryDevices) Register(ctx context.Context, userID uuid.UUID, token string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	m.s.devices[token] = userID
	return nil
}

func (m memoryDevices) ListByUserID(ctx context.Context, userID uuid.UUID) ([]string, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	var tokens []string
	for token, owner := range m.s.devices {
		if owner == userID {
			tokens = append(tokens, token)
		}
	}
	sort.Strings(tokens)
	return tokens, nil
}
