package router

import (
	"transporter-onboarding/internal/config"
	"transporter-onboarding/internal/handler"
	"transporter-onboarding/internal/repository"
	"transporter-onboarding/internal/service"
	"transporter-onboarding/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

func SetupAPIRoutes(
	router fiber.Router,
	intake *service.IntakeService,
	redis *redis.Client,
	asynqClient handler.TaskEnqueuer,
	cfg *config.Config,
) {
	// Import jobs are only tracked when Redis is available
	var jobs repository.JobStore
	if redis != nil {
		jobs = repository.NewJobRepository(redis, cfg.ResultTTL)
	}

	// Initialize handlers
	uploadHandler := handler.NewUploadHandler(intake, jobs, asynqClient, cfg, utils.GetLogger())
	transporterHandler := handler.NewTransporterHandler(intake)

	// Transporter routes
	transporters := router.Group("/transporters")
	transporters.Get("/", transporterHandler.GetTransporters)
	transporters.Post("/", transporterHandler.CreateTransporter)
	transporters.Get("/template", transporterHandler.DownloadTemplate)
	transporters.Post("/import", uploadHandler.ImportTransporters)
	transporters.Get("/import/:code", uploadHandler.GetImportJob)
	transporters.Get("/reports/:filename", uploadHandler.DownloadReport)
}
