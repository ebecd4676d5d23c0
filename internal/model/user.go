package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	SubscriptionFree = "free"
	TrialPeriod      = 14 * 24 * time.Hour
)

type User struct {
	ID                  uuid.UUID  `db:"id"`
	Email               string     `db:"email"`
	PasswordHash        string     `db:"password_hash"`
	FirstName           *string    `db:"first_name"`
	LastName            *string    `db:"last_name"`
	BusinessName        *string    `db:"business_name"`
	Phone               *string    `db:"phone"`
	Address             *string    `db:"address"`
	Website             *string    `db:"website"`
	LogoURL             *string    `db:"logo_url"`
	QuotesCreatedCount  int        `db:"quotes_created_count"`
	SubscriptionTier    string     `db:"subscription_tier"`
	SubscriptionEndDate *time.Time `db:"subscription_end_date"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
}

type UserPatch struct {
	FirstName    Field[string] `json:"first_name"`
	LastName     Field[string] `json:"last_name"`
	BusinessName Field[string] `json:"business_name"`
	Phone        Field[string] `json:"phone"`
	Address      Field[string] `json:"address"`
	Website      Field[string] `json:"website"`
	LogoURL      Field[string] `json:"logo_url"`
}

func (p UserPatch) Apply(u *User) {
	p.FirstName.apply(&u.FirstName)
	p.LastName.apply(&u.LastName)
	p.BusinessName.apply(&u.BusinessName)
	p.Phone.apply(&u.Phone)
	p.Address.apply(&u.Address)
	p.Website.apply(&u.Website)
	p.LogoURL.apply(&u.LogoURL)
}

type RefreshToken struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	TokenHash string    `db:"token_hash"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

type DeviceToken struct {
	ID          uuid.UUID `db:"id"`
	UserID      uuid.UUID `db:"user_id"`
	DeviceToken string    `db:"device_token"`
	CreatedAt   time.Time `db:"created_at"`
}
