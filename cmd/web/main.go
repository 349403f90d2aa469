package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"transporter-onboarding/internal/config"
	"transporter-onboarding/internal/database"
	"transporter-onboarding/internal/handler"
	"transporter-onboarding/internal/router"
	"transporter-onboarding/internal/service"
	"transporter-onboarding/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"
	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
)

func main() {
	appLogger := utils.GetLogger()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database, only needed by the mysql store
	var db *sqlx.DB
	if cfg.StoreDriver == "mysql" {
		db, err = database.NewMySQL(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
	}

	intake, err := service.NewIntakeServiceFromConfig(cfg, db, appLogger)
	if err != nil {
		log.Fatalf("Failed to initialize intake service: %v", err)
	}

	// Initialize Redis (optional - for async imports)
	var asynqClient handler.TaskEnqueuer
	redisClient, err := database.NewRedis(cfg)
	if err != nil {
		appLogger.WithError(err).Warn("Failed to connect to Redis, async imports disabled")
		redisClient = nil
	} else {
		defer redisClient.Close()

		client := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.AsynqRedisAddr,
			Password: cfg.AsynqRedisPassword,
			DB:       cfg.AsynqRedisDB,
		})
		defer client.Close()
		asynqClient = client
	}

	// Initialize template engine
	engine := html.New("./views", ".html")
	engine.Reload(cfg.AppEnv == "development")

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		Views:        engine,
		BodyLimit:    cfg.UploadMaxSize,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	// Setup routes
	router.Setup(app, intake, redisClient, asynqClient, cfg)

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Println("\nGracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	port := fmt.Sprintf(":%s", cfg.AppPort)
	appLogger.WithField("port", port).Info("Server starting")
	if err := app.Listen(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	fmt.Println("Server exited")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Check if request expects JSON
	if c.Accepts("application/json") != "" {
		return c.Status(code).JSON(fiber.Map{
			"success": false,
			"message": message,
			"error":   err.Error(),
		})
	}

	// Return HTML error page
	return c.Status(code).Render("error", fiber.Map{
		"Code":    code,
		"Message": message,
	})
}
