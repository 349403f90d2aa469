package router

import (
	"transporter-onboarding/internal/config"
	"transporter-onboarding/internal/handler"
	"transporter-onboarding/internal/models"
	"transporter-onboarding/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Setup registers every route. redis and asynqClient may be nil, which disables
// async imports.
func Setup(app *fiber.App, intake *service.IntakeService, redis *redis.Client, asynqClient handler.TaskEnqueuer, cfg *config.Config) {
	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"app":    cfg.AppName,
			"store":  cfg.StoreDriver,
			"async":  redis != nil && asynqClient != nil,
		})
	})

	// Web routes (HTML)
	web := app.Group("")
	setupWebRoutes(web, cfg)

	// API routes (JSON)
	api := app.Group("/api/v1")
	SetupAPIRoutes(api, intake, redis, asynqClient, cfg)
}

func setupWebRoutes(router fiber.Router, cfg *config.Config) {
	// Intake page: upload form, manual entry form and the stored table
	router.Get("/", func(c *fiber.Ctx) error {
		return c.Render("transporters/index", fiber.Map{
			"Title":   "Transporter Onboarding",
			"AppName": cfg.AppName,
			"Columns": models.RequiredColumns,
		})
	})
}
