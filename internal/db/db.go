package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/astropair/astropair/internal/config"
)

// NewDB initializes the database connection using the DSN from config.
func NewDB(cfg *config.Config) (*gorm.DB, error) {
	gormLog := logger.Default.LogMode(logger.Warn)
	if cfg.Server.Env == "development" {
		gormLog = logger.Default.LogMode(logger.Info)
	}

	database, err := gorm.Open(mysql.Open(cfg.Database.DSN()), &gorm.Config{
		Logger: gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	// AutoMigrate keeps the schema in sync with the models.
	if err := database.AutoMigrate(&Profile{}, &SwipeDecision{}, &CompatibilityScore{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return database, nil
}
