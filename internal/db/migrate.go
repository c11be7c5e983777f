package db

import (
	"github.com/opas/opas-backend/internal/app/model"
	"github.com/opas/opas-backend/pkg/logger"
)

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	models := []interface{}{
		&model.User{},
		&model.SellerRegistration{},
		&model.RegistrationDocument{},
		&model.ApprovalHistory{},
		&model.Notification{},
		&model.Product{},
		&model.PriceCeiling{},
	}

	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}
