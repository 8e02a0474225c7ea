package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jetprint/print-workflow/internal/application/service"
	"github.com/jetprint/print-workflow/internal/auth"
	"github.com/jetprint/print-workflow/internal/config"
	"github.com/jetprint/print-workflow/internal/domain/stage"
	"github.com/jetprint/print-workflow/internal/infrastructure/notification"
	"github.com/jetprint/print-workflow/internal/infrastructure/persistence/repository"
	"github.com/jetprint/print-workflow/internal/infrastructure/persistence/sqlite"
	"github.com/jetprint/print-workflow/internal/infrastructure/worker"
	httpserver "github.com/jetprint/print-workflow/internal/interfaces/http"
	"github.com/jetprint/print-workflow/pkg/database"
	"github.com/jetprint/print-workflow/pkg/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting print workflow server",
		zap.Int("port", cfg.Server.Port))

	// Initialize database
	sqlDB, err := database.Open(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer sqlDB.Close()

	// Run migrations
	migrator := database.NewMigrator(sqlDB, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Repositories and transaction manager
	db := sqlite.NewDB(sqlDB, logger)
	orderRepo := repository.NewOrderRepository(sqlDB, logger)
	userRepo := repository.NewUserRepository(sqlDB, logger)
	claimRepo := repository.NewStageClaimRepository(sqlDB, logger)
	notificationRepo := repository.NewNotificationRepository(sqlDB, logger)

	// Notification hub for server-sent events
	hub := notification.NewHub(logger)

	// Application services
	sequence := stage.Default()
	notifier := service.NewNotificationService(userRepo, notificationRepo, hub, logger)
	orderService := service.NewOrderService(sequence, orderRepo, userRepo, db, notifier, logger)
	workflowService := service.NewWorkflowService(sequence, orderRepo, userRepo, claimRepo, db, notifier, logger)
	userService := service.NewUserService(sequence, userRepo, db, logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// Background workers
	workerManager := worker.NewManager(logger)
	workerManager.Register(worker.NewOverdueWorker(
		orderRepo,
		notifier,
		cfg.Worker.OverdueScanInterval,
		cfg.Worker.OverdueThresholdDays,
		logger,
	))

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	if err := workerManager.StartAll(workerCtx); err != nil {
		logger.Fatal("Failed to start workers", zap.Error(err))
	}

	// HTTP server
	server := httpserver.NewServer(
		httpserver.ServerConfig{
			Host:        cfg.Server.Host,
			Port:        cfg.Server.Port,
			ReadTimeout: cfg.Server.ReadTimeout,
			IdleTimeout: cfg.Server.IdleTimeout,
		},
		orderService,
		workflowService,
		userService,
		notifier,
		hub,
		tokens,
		logger,
	)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server error", zap.Error(err))
		}
	case sig := <-quit:
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shut down HTTP server", zap.Error(err))
	}

	cancelWorkers()
	if err := workerManager.StopAll(); err != nil {
		logger.Error("Failed to stop workers", zap.Error(err))
	}

	logger.Info("Server stopped")
}
