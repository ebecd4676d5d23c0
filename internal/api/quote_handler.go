package api

import (
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"quote-service/internal/model"
	"quote-service/internal/service"
)

const defaultRecentLimit = 5

type QuoteHandler struct {
	quoteService service.QuoteService
	statsService service.StatisticsService
	quota        *service.QuotaGuard
	textGen      service.TextGenerator
	validate     *validator.Validate
}

func NewQuoteHandler(quoteService service.QuoteService, statsService service.StatisticsService, quota *service.QuotaGuard, textGen service.TextGenerator) *QuoteHandler {
	return &QuoteHandler{
		quoteService: quoteService,
		statsService: statsService,
		quota:        quota,
		textGen:      textGen,
		validate:     validator.New(),
	}
}

type CreateQuoteRequest struct {
	ClientName         string            `json:"client_name" validate:"required,max=200"`
	ClientEmail        *string           `json:"client_email" validate:"omitempty,email"`
	ProjectDescription *string           `json:"project_description" validate:"omitempty,max=5000"`
	EstimatedHours     *int              `json:"estimated_hours" validate:"omitempty,min=0"`
	Price              *int64            `json:"price" validate:"omitempty,min=0"`
	IncludeVAT         *bool             `json:"include_vat"`
	TemplateStyle      string            `json:"template_style" validate:"omitempty,oneof=professional modern casual"`
	GeneratedContent   *string           `json:"generated_content"`
	Status             model.QuoteStatus `json:"status" validate:"omitempty,oneof=draft pending"`
}

type GenerateTextRequest struct {
	ClientName    string `json:"client_name" validate:"required"`
	Hours         int    `json:"hours" validate:"min=1"`
	Price         int64  `json:"price" validate:"min=0"`
	Description   string `json:"description" validate:"required"`
	TemplateStyle string `json:"template_style"`
}

func (h *QuoteHandler) CreateQuote(c *fiber.Ctx) error {
	userID, err := GetUserIDFromClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user claims"})
	}

	var request CreateQuoteRequest
	if err := c.BodyParser(&request); err != nil {
		return badRequest(c, "Cannot parse JSON", err)
	}
	if err := h.validate.Struct(&request); err != nil {
		return badRequest(c, "Invalid input", err)
	}

	quote, err := h.quoteService.CreateQuote(c.UserContext(), userID, service.CreateQuoteInput{
		ClientName:         request.ClientName,
		ClientEmail:        request.ClientEmail,
		ProjectDescription: request.ProjectDescription,
		EstimatedHours:     request.EstimatedHours,
		Price:              request.Price,
		IncludeVAT:         request.IncludeVAT,
		TemplateStyle:      request.TemplateStyle,
		GeneratedContent:   request.GeneratedContent,
		Status:             request.Status,
	})
	if err != nil {
		if errors.Is(err, service.ErrQuotaExceeded) {
			quotaRejectionsTotal.Inc()
		}
		return writeError(c, err)
	}

	quotesCreatedTotal.Inc()
	slog.InfoContext(c.UserContext(), "Quote created", slog.String("quote_id", quote.ID.String()), slog.String("user_id", userID.String()))

	return c.Status(fiber.StatusCreated).JSON(quote)
}

func (h *QuoteHandler) ListQuotes(c *fiber.Ctx) error {
	return h.list(c, 0)
}

func (h *QuoteHandler) ListRecentQuotes(c *fiber.Ctx) error {
	return h.list(c, defaultRecentLimit)
}

func (h *QuoteHandler) list(c *fiber.Ctx, defaultLimit int) error {
	userID, err := GetUserIDFromClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user claims"})
	}

	limit := c.QueryInt("limit", defaultLimit)
	if limit < 0 {
		return badRequest(c, "limit must not be negative", nil)
	}

	quotes, err := h.quoteService.ListQuotes(c.UserContext(), userID, limit)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(quotes)
}

// withQuoteID resolves the caller and the :id path parameter before running fn.
func withQuoteID(c *fiber.Ctx, fn func(userID, quoteID uuid.UUID) error) error {
	userID, err := GetUserIDFromClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user claims"})
	}

	quoteID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid quote ID format", nil)
	}

	return fn(userID, quoteID)
}

func (h *QuoteHandler) GetQuote(c *fiber.Ctx) error {
	return withQuoteID(c, func(userID, quoteID uuid.UUID) error {
		quote, err := h.quoteService.GetQuote(c.UserContext(), userID, quoteID)
		if err != nil {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(quote)
	})
}

func (h *QuoteHandler) UpdateQuote(c *fiber.Ctx) error {
	return withQuoteID(c, func(userID, quoteID uuid.UUID) error {
		var patch model.QuotePatch
		if err := c.BodyParser(&patch); err != nil {
			return badRequest(c, "Cannot parse JSON", err)
		}

		quote, err := h.quoteService.UpdateQuote(c.UserContext(), userID, quoteID, patch)
		if err != nil {
			return writeError(c, err)
		}

		if patch.Status.Set {
			quoteStatusChangesTotal.WithLabelValues(string(quote.Status)).Inc()
		}

		return c.Status(fiber.StatusOK).JSON(quote)
	})
}

func (h *QuoteHandler) SendQuote(c *fiber.Ctx) error {
	return withQuoteID(c, func(userID, quoteID uuid.UUID) error {
		quote, err := h.quoteService.SendQuote(c.UserContext(), userID, quoteID)
		if err != nil {
			return writeError(c, err)
		}

		quoteStatusChangesTotal.WithLabelValues(string(quote.Status)).Inc()
		return c.Status(fiber.StatusOK).JSON(quote)
	})
}

func (h *QuoteHandler) DeleteQuote(c *fiber.Ctx) error {
	return withQuoteID(c, func(userID, quoteID uuid.UUID) error {
		if err := h.quoteService.DeleteQuote(c.UserContext(), userID, quoteID); err != nil {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true})
	})
}

func (h *QuoteHandler) GenerateQuoteContent(c *fiber.Ctx) error {
	return withQuoteID(c, func(userID, quoteID uuid.UUID) error {
		quote, err := h.quoteService.GenerateContent(c.UserContext(), userID, quoteID)
		if err != nil {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(quote)
	})
}

func (h *QuoteHandler) CreatePDFUploadURL(c *fiber.Ctx) error {
	return withQuoteID(c, func(userID, quoteID uuid.UUID) error {
		upload, err := h.quoteService.CreatePDFUpload(c.UserContext(), userID, quoteID)
		if err != nil {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(upload)
	})
}

func (h *QuoteHandler) GetStatistics(c *fiber.Ctx) error {
	userID, err := GetUserIDFromClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user claims"})
	}

	stats, err := h.statsService.GetStatistics(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(stats)
}

func (h *QuoteHandler) GetQuota(c *fiber.Ctx) error {
	userID, err := GetUserIDFromClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user claims"})
	}

	usage, err := h.quota.Usage(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(usage)
}

func (h *QuoteHandler) GenerateText(c *fiber.Ctx) error {
	var request GenerateTextRequest
	if err := c.BodyParser(&request); err != nil {
		return badRequest(c, "Cannot parse JSON", err)
	}
	if err := h.validate.Struct(&request); err != nil {
		return badRequest(c, "Invalid input", err)
	}
	if request.TemplateStyle == "" {
		request.TemplateStyle = model.TemplateProfessional
	}

	text, err := h.textGen.Generate(service.TextInput{
		ClientName:    request.ClientName,
		Hours:         request.Hours,
		Price:         request.Price,
		Description:   request.Description,
		TemplateStyle: request.TemplateStyle,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"generated_text": text})
}
