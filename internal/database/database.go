// Package database provides database connection and management.
package database

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gridworx/helios-ai-gateway/internal/config"
	"github.com/gridworx/helios-ai-gateway/internal/models"
)

// Database wraps the GORM database connection.
type Database struct {
	DB     *gorm.DB
	logger *zap.Logger
}

// New creates a new database connection.
func New(cfg *config.DatabaseConfig, log *zap.Logger) (*Database, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(postgres.Open(cfg.GetDSN()), gormConfig)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &Database{
		DB:     db,
		logger: log,
	}, nil
}

// Migrate runs database migrations.
func (d *Database) Migrate() error {
	return d.DB.AutoMigrate(
		&models.AIConfig{},
		&models.AIUsageLog{},
		&models.AIChatMessage{},
	)
}

// Ping verifies the underlying connection is alive.
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection.
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
