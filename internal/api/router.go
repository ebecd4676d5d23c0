package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	ServiceName         string
	JWTSecret           []byte
	RateLimitMax        int
	RateLimitExpiration time.Duration
}

func SetupRoutes(app *fiber.App, cfg RouterConfig, authHandler *AuthHandler, quoteHandler *QuoteHandler) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.ServiceName})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := app.Group("/v1")
	requireAuth := AuthMiddleware(cfg.JWTSecret)

	auth := v1.Group("/auth", RateLimiter(cfg.RateLimitMax, cfg.RateLimitExpiration))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)
	auth.Post("/logout", authHandler.Logout)

	profile := v1.Group("/profile", requireAuth)
	profile.Get("/", authHandler.GetUserProfile)
	profile.Patch("/", authHandler.UpdateUserProfile)
	profile.Post("/device-token", authHandler.RegisterDeviceToken)

	quotes := v1.Group("/quotes", requireAuth)
	quotes.Post("/", quoteHandler.CreateQuote)
	quotes.Get("/", quoteHandler.ListQuotes)
	quotes.Get("/recent", quoteHandler.ListRecentQuotes)
	quotes.Get("/:id", quoteHandler.GetQuote)
	quotes.Patch("/:id", quoteHandler.UpdateQuote)
	quotes.Delete("/:id", quoteHandler.DeleteQuote)
	quotes.Post("/:id/send", quoteHandler.SendQuote)
	quotes.Post("/:id/generate", quoteHandler.GenerateQuoteContent)
	quotes.Post("/:id/pdf/upload-url", quoteHandler.CreatePDFUploadURL)

	v1.Get("/statistics", requireAuth, quoteHandler.GetStatistics)
	v1.Get("/quota", requireAuth, quoteHandler.GetQuota)
	v1.Post("/generate-quote", requireAuth, quoteHandler.GenerateText)
}
