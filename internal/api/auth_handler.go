package api

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"quote-service/internal/model"
	"quote-service/internal/service"
)

type AuthHandler struct {
	authService service.AuthService
	validate    *validator.Validate
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

type RegisterRequest struct {
	Email        string  `json:"email" validate:"required,email"`
	Password     string  `json:"password" validate:"required,min=8"`
	FirstName    *string `json:"first_name" validate:"omitempty,max=100"`
	LastName     *string `json:"last_name" validate:"omitempty,max=100"`
	BusinessName *string `json:"business_name" validate:"omitempty,max=200"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type RegisterTokenRequest struct {
	DeviceToken string `json:"device_token" validate:"required"`
}

type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type UserProfileResponse struct {
	ID                  uuid.UUID  `json:"id"`
	Email               string     `json:"email"`
	FirstName           *string    `json:"first_name"`
	LastName            *string    `json:"last_name"`
	BusinessName        *string    `json:"business_name"`
	Phone               *string    `json:"phone"`
	Address             *string    `json:"address"`
	Website             *string    `json:"website"`
	LogoURL             *string    `json:"logo_url"`
	QuotesCreatedCount  int        `json:"quotes_created_count"`
	SubscriptionTier    string     `json:"subscription_tier"`
	SubscriptionEndDate *time.Time `json:"subscription_end_date"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func newUserProfileResponse(u *model.User) UserProfileResponse {
	return UserProfileResponse{
		ID:                  u.ID,
		Email:               u.Email,
		FirstName:           u.FirstName,
		LastName:            u.LastName,
		BusinessName:        u.BusinessName,
		Phone:               u.Phone,
		Address:             u.Address,
		Website:             u.Website,
		LogoURL:             u.LogoURL,
		QuotesCreatedCount:  u.QuotesCreatedCount,
		SubscriptionTier:    u.SubscriptionTier,
		SubscriptionEndDate: u.SubscriptionEndDate,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var request RegisterRequest
	if err := c.BodyParser(&request); err != nil {
		return badRequest(c, "Cannot parse JSON", err)
	}
	if err := h.validate.Struct(&request); err != nil {
		return badRequest(c, "Invalid input", err)
	}

	user, err := h.authService.RegisterUser(c.UserContext(), service.RegisterInput{
		Email:        request.Email,
		Password:     request.Password,
		FirstName:    request.FirstName,
		LastName:     request.LastName,
		BusinessName: request.BusinessName,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user_id": user.ID,
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var request LoginRequest
	if err := c.BodyParser(&request); err != nil {
		return badRequest(c, "Cannot parse JSON", err)
	}
	if err := h.validate.Struct(&request); err != nil {
		return badRequest(c, "Invalid input", err)
	}

	accessToken, refreshToken, err := h.authService.LoginUser(c.UserContext(), request.Email, request.Password)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON", err)
	}
	if err := h.validate.Struct(&req); err != nil {
		return badRequest(c, "Invalid input", err)
	}

	newAccessToken, err := h.authService.RefreshToken(c.UserContext(), req.RefreshToken)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"access_token": newAccessToken})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON", err)
	}
	if err := h.validate.Struct(&req); err != nil {
		return badRequest(c, "Invalid input", err)
	}

	if err := h.authService.LogoutUser(c.UserContext(), req.RefreshToken); err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Successfully logged out"})
}

func (h *AuthHandler) GetUserProfile(c *fiber.Ctx) error {
	userID, err := GetUserIDFromClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	user, err := h.authService.GetUserProfile(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(newUserProfileResponse(user))
}

func (h *AuthHandler) UpdateUserProfile(c *fiber.Ctx) error {
	userID, err := GetUserIDFromClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	var patch model.UserPatch
	if err := c.BodyParser(&patch); err != nil {
		return badRequest(c, "Cannot parse JSON", err)
	}

	user, err := h.authService.UpdateUserProfile(c.UserContext(), userID, patch)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(newUserProfileResponse(user))
}

func (h *AuthHandler) RegisterDeviceToken(c *fiber.Ctx) error {
	userID, err := GetUserIDFromClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	var req RegisterTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON", err)
	}
	if err := h.validate.Struct(&req); err != nil {
		return badRequest(c, "Invalid input", err)
	}

	if err := h.authService.RegisterDeviceToken(c.UserContext(), userID, req.DeviceToken); err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Device token registered successfully"})
}
