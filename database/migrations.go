package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"contentreview/models"
)

func RunMigrations(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("running database migrations")

	err := db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.Page{},
		&models.ReviewLog{},
		&models.SiteConfig{},
	)

	if err != nil {
		logger.Error("error running migrations", zap.Error(err))
		return err
	}

	logger.Info("migrations completed successfully")
	return nil
}
