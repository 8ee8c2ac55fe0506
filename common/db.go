package common

import (
	"errors"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var ErrNoDatabase = errors.New("sqlite_db not set")

func ConnectDb(dbFile string, logger *zap.Logger) (*gorm.DB, error) {
	if dbFile == "" {
		return nil, ErrNoDatabase
	}

	db, err := gorm.Open(sqlite.Open(dbFile), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		logger.Error("error opening sqlite db", zap.String("path", dbFile), zap.Error(err))
		return nil, err
	}
	logger.Info("opened sqlite db", zap.String("path", dbFile))
	return db, nil
}

// ConnectAnalyticsDb opens the optional delivery-log database. A nil result disables tracking.
func ConnectAnalyticsDb(dbFile string, logger *zap.Logger) *gorm.DB {
	if dbFile == "" {
		logger.Info("analytics_db not set - notification tracking disabled")
		return nil
	}

	db, err := gorm.Open(sqlite.Open(dbFile), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		logger.Error("error opening analytics sqlite db", zap.String("path", dbFile), zap.Error(err))
		return nil
	}

	logger.Info("opened analytics sqlite db", zap.String("path", dbFile))
	return db
}
