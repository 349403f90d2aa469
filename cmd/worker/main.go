package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"transporter-onboarding/internal/config"
	"transporter-onboarding/internal/database"
	"transporter-onboarding/internal/repository"
	"transporter-onboarding/internal/service"
	"transporter-onboarding/internal/utils"
	"transporter-onboarding/internal/worker"

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

	// Initialize Redis
	redisClient, err := database.NewRedis(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	intake, err := service.NewIntakeServiceFromConfig(cfg, db, appLogger)
	if err != nil {
		log.Fatalf("Failed to initialize intake service: %v", err)
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.AsynqRedisAddr,
			Password: cfg.AsynqRedisPassword,
			DB:       cfg.AsynqRedisDB,
		},
		worker.ServerConfig(appLogger),
	)

	// Register task handlers
	mux := asynq.NewServeMux()
	jobs := repository.NewJobRepository(redisClient, cfg.ResultTTL)
	worker.RegisterHandlers(mux, intake, jobs, appLogger)

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Println("\nGracefully shutting down worker...")
		srv.Shutdown()
	}()

	// Start worker
	appLogger.Info("Worker starting")
	if err := srv.Run(mux); err != nil {
		log.Fatalf("Failed to start worker: %v", err)
	}

	fmt.Println("Worker exited")
}
