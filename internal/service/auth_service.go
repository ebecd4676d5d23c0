package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"quote-service/internal/jwt"
	"quote-service/internal/model"
	"quote-service/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTokenInvalid       = errors.New("token is invalid or expired")
	ErrEmailTaken         = repository.ErrEmailTaken
	ErrUserNotFound       = repository.ErrUserNotFound
)

type RegisterInput struct {
	Email        string
	Password     string
	FirstName    *string
	LastName     *string
	BusinessName *string
}

type AuthService interface {
	RegisterUser(ctx context.Context, in RegisterInput) (*model.User, error)
	LoginUser(ctx context.Context, email, password string) (accessToken string, refreshToken string, err error)
	GetUserProfile(ctx context.Context, userID uuid.UUID) (*model.User, error)
	UpdateUserProfile(ctx context.Context, userID uuid.UUID, patch model.UserPatch) (*model.User, error)
	RegisterDeviceToken(ctx context.Context, userID uuid.UUID, token string) error
	RefreshToken(ctx context.Context, refreshTokenString string) (newAccessToken string, err error)
	LogoutUser(ctx context.Context, refreshTokenString string) error
}

type authService struct {
	userRepo   repository.UserRepository
	tokenRepo  repository.TokenRepository
	deviceRepo repository.DeviceTokenRepository
	secret     []byte
	now        func() time.Time
}

func NewAuthService(userRepo repository.UserRepository, tokenRepo repository.TokenRepository, deviceRepo repository.DeviceTokenRepository, secret []byte) AuthService {
	return &authService{
		userRepo:   userRepo,
		tokenRepo:  tokenRepo,
		deviceRepo: deviceRepo,
		secret:     secret,
		now:        time.Now,
	}
}

func (s *authService) RegisterUser(ctx context.Context, in RegisterInput) (*model.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	trialEnd := s.now().Add(model.TrialPeriod)
	user := &model.User{
		Email:               strings.TrimSpace(in.Email),
		PasswordHash:        string(hashedPassword),
		FirstName:           in.FirstName,
		LastName:            in.LastName,
		BusinessName:        in.BusinessName,
		SubscriptionTier:    model.SubscriptionFree,
		SubscriptionEndDate: &trialEnd,
	}

	newID, err := s.userRepo.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	return s.userRepo.FindByID(ctx, newID)
}

func (s *authService) LoginUser(ctx context.Context, email, password string) (string, string, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", "", ErrInvalidCredentials
		}
		return "", "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", "", ErrInvalidCredentials
	}

	accessToken, refreshToken, err := jwt.GenerateTokens(s.secret, user)
	if err != nil {
		return "", "", err
	}

	refreshTokenModel := &model.RefreshToken{
		UserID:    user.ID,
		TokenHash: hashToken(refreshToken),
		ExpiresAt: s.now().Add(jwt.RefreshTokenTTL),
	}

	if err := s.tokenRepo.Create(ctx, refreshTokenModel); err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

func (s *authService) GetUserProfile(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}

func (s *authService) UpdateUserProfile(ctx context.Context, userID uuid.UUID, patch model.UserPatch) (*model.User, error) {
	return s.userRepo.Update(ctx, userID, patch)
}

func (s *authService) RegisterDeviceToken(ctx context.Context, userID uuid.UUID, token string) error {
	return s.deviceRepo.Register(ctx, userID, token)
}

func (s *authService) RefreshToken(ctx context.Context, refreshTokenString string) (string, error) {
	claims, err := jwt.ValidateTokenType(s.secret, refreshTokenString, jwt.TokenTypeRefresh)
	if err != nil {
		return "", ErrTokenInvalid
	}

	stored, err := s.tokenRepo.FindByTokenHash(ctx, hashToken(refreshTokenString))
	if err != nil {
		return "", ErrTokenInvalid
	}
	if !stored.ExpiresAt.After(s.now()) {
		return "", ErrTokenInvalid
	}

	userID, err := jwt.SubjectID(claims)
	if err != nil || userID != stored.UserID {
		return "", ErrTokenInvalid
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return "", ErrTokenInvalid
	}

	newAccessToken, _, err := jwt.GenerateTokens(s.secret, user)
	if err != nil {
		return "", err
	}

	return newAccessToken, nil
}

func (s *authService) LogoutUser(ctx context.Context, refreshTokenString string) error {
	return s.tokenRepo.Delete(ctx, hashToken(refreshTokenString))
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
