package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quote-service/internal/model"
	"quote-service/internal/repository"
	"quote-service/internal/service"
)

var testSecret = []byte("unit-test-secret")

func newAuthService() (service.AuthService, *repository.MemoryStore) {
	store := repository.NewMemoryStore()
	return service.NewAuthService(store.Users(), store.Tokens(), store.DeviceTokens(), testSecret), store
}

func register(t *testing.T, auth service.AuthService, email string) *model.User {
	t.Helper()
	business := "Dana Design"
	user, err := auth.RegisterUser(context.Background(), service.RegisterInput{
		Email:        email,
		Password:     "correct-horse",
		BusinessName: &business,
	})
	require.NoError(t, err)
	return user
}

func TestRegisterUser_StartsTrial(t *testing.T) {
	auth, _ := newAuthService()

	user := register(t, auth, "dana@example.com")

	require.Equal(t, model.SubscriptionFree, user.SubscriptionTier)
	require.NotNil(t, user.SubscriptionEndDate)
	require.WithinDuration(t, time.Now().Add(14*24*time.Hour), *user.SubscriptionEndDate, time.Minute)
	require.Equal(t, 0, user.QuotesCreatedCount)
	require.NotEqual(t, "correct-horse", user.PasswordHash)
}

func TestRegisterUser_DuplicateEmailIgnoresCase(t *testing.T) {
	auth, _ := newAuthService()
	register(t, auth, "dana@example.com")

	_, err := auth.RegisterUser(context.Background(), service.RegisterInput{Email: "DANA@example.com", Password: "whatever1"})
	require.ErrorIs(t, err, service.ErrEmailTaken)
}

func TestLoginUser(t *testing.T) {
	auth, _ := newAuthService()
	register(t, auth, "dana@example.com")

	access, refresh, err := auth.LoginUser(context.Background(), "Dana@Example.com", "correct-horse")
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)

	_, _, err = auth.LoginUser(context.Background(), "dana@example.com", "wrong")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, _, err = auth.LoginUser(context.Background(), "nobody@example.com", "correct-horse")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestRefreshAndLogout(t *testing.T) {
	auth, _ := newAuthService()
	register(t, auth, "dana@example.com")

	access, refresh, err := auth.LoginUser(context.Background(), "dana@example.com", "correct-horse")
	require.NoError(t, err)

	newAccess, err := auth.RefreshToken(context.Background(), refresh)
	require.NoError(t, err)
	require.NotEmpty(t, newAccess)

	_, err = auth.RefreshToken(context.Background(), access)
	require.ErrorIs(t, err, service.ErrTokenInvalid)

	require.NoError(t, auth.LogoutUser(context.Background(), refresh))
	_, err = auth.RefreshToken(context.Background(), refresh)
	require.ErrorIs(t, err, service.ErrTokenInvalid)
}

func TestUpdateUserProfile(t *testing.T) {
	auth, _ := newAuthService()
	user := register(t, auth, "dana@example.com")

	updated, err := auth.UpdateUserProfile(context.Background(), user.ID, model.UserPatch{
		Phone:        model.Some("+1 555 0100"),
		BusinessName: model.Null[string](),
	})
	require.NoError(t, err)
	require.Equal(t, "+1 555 0100", *updated.Phone)
	require.Nil(t, updated.BusinessName)
}

func TestRegisterDeviceToken(t *testing.T) {
	auth, store := newAuthService()
	user := register(t, auth, "dana@example.com")

	require.NoError(t, auth.RegisterDeviceToken(context.Background(), user.ID, "device-1"))

	tokens, err := store.DeviceTokens().ListByUserID(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"device-1"}, tokens)
}
