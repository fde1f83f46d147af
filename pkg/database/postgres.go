package database

import (
	"log"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"go-popup-ledger/internal/config"
)

func ConnectDB(cfg config.Config, logg *logrus.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true, // Disables implicit prepared statements for pgbouncer transaction mode
	}), &gorm.Config{
		Logger:      NewGormLogger(logg, cfg.DBLogLevel),
		PrepareStmt: false,
	})
	if err != nil {
		return nil, err
	}

	if err := db.Use(otelgorm.NewPlugin()); err != nil {
		logg.WithError(err).Warn("db connected but failed to install otelgorm plugin")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	logg.Info("Database connection established")
	return db, nil
}

// NewGormLogger routes SQL logging through logrus.
func NewGormLogger(logg *logrus.Logger, level string) logger.Interface {
	return logger.New(
		log.New(logg.WriterLevel(logrus.InfoLevel), "", 0),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLevel(level),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

func gormLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
