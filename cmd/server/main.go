package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/opas/opas-backend/config"
	"github.com/opas/opas-backend/internal/app/controller"
	"github.com/opas/opas-backend/internal/app/model"
	"github.com/opas/opas-backend/internal/app/repository"
	"github.com/opas/opas-backend/internal/app/service"
	"github.com/opas/opas-backend/internal/db"
	"github.com/opas/opas-backend/internal/middleware"
	"github.com/opas/opas-backend/internal/router"
	"github.com/opas/opas-backend/internal/scheduler"
	"github.com/opas/opas-backend/internal/storage"
	"github.com/opas/opas-backend/internal/websocket"
	"github.com/opas/opas-backend/pkg/logger"
	"github.com/opas/opas-backend/pkg/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      "console", // use "json" in production
		EnableColor: true,
	})

	logger.Info("Starting OPAS Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Redis backs the token blacklist; the server still runs without it
	if err := redis.Init(&cfg.Redis); err != nil {
		logger.Warn("Redis unavailable, token revocation disabled", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		defer func() {
			if err := redis.Close(); err != nil {
				logger.Error("Failed to close redis connection", err)
			}
		}()
	}

	hub := websocket.NewHub()
	go hub.Run()

	// Repositories
	userRepo := repository.NewUserRepository(db.GetDB())
	regRepo := repository.NewRegistrationRepository(db.GetDB())
	docRepo := repository.NewDocumentRepository(db.GetDB())
	historyRepo := repository.NewApprovalHistoryRepository(db.GetDB())
	notificationRepo := repository.NewNotificationRepository(db.GetDB())
	productRepo := repository.NewProductRepository(db.GetDB())

	// Services
	authz := model.RoleCapabilities{}
	notificationService := service.NewNotificationService(notificationRepo, userRepo, hub)
	registrationService := service.NewRegistrationService(db.GetDB(), regRepo, docRepo, userRepo, notificationService)
	reviewService := service.NewReviewService(
		db.GetDB(),
		regRepo,
		docRepo,
		historyRepo,
		userRepo,
		notificationService,
		authz,
		cfg.Review.DefaultInfoDeadlineDays,
	)
	authService := service.NewAuthService(userRepo, &cfg.JWT)
	productService := service.NewProductService(productRepo, userRepo, notificationService, authz)

	docStorage := storage.NewDocumentStorage(
		cfg.S3.Region,
		cfg.S3.Bucket,
		cfg.S3.AccessKeyID,
		cfg.S3.SecretAccessKey,
		cfg.S3.BaseURL,
	)

	// Controllers
	authController := controller.NewAuthController(authService)
	registrationController := controller.NewRegistrationController(registrationService)
	adminController := controller.NewAdminController(reviewService)
	notificationController := controller.NewNotificationController(notificationService)
	productController := controller.NewProductController(productService)
	uploadController := controller.NewUploadController(docStorage, &cfg.Upload)
	wsController := controller.NewWebSocketController(hub, cfg.CORS.AllowedOrigins)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	reviewScheduler := scheduler.NewReviewScheduler(regRepo, docRepo, notificationService)
	if err := reviewScheduler.Start(); err != nil {
		logger.Error("Failed to start review scheduler", err)
	}
	defer reviewScheduler.Stop()

	r := router.NewRouter(
		authController,
		registrationController,
		adminController,
		notificationController,
		productController,
		uploadController,
		wsController,
		authMiddleware,
		cfg,
	)
	engine := r.Setup()

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server started successfully", map[string]interface{}{
			"address": addr,
			"pid":     os.Getpid(),
		})
		if err := engine.Run(addr); err != nil {
			logger.Fatal("Failed to start server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	logger.Info("Server stopped successfully")
}
