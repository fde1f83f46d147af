package main

import (
	"go-popup-ledger/internal/config"
	"go-popup-ledger/internal/repository"
	"go-popup-ledger/pkg/database"
	"go-popup-ledger/pkg/logger"
)

func main() {
	cfg := config.Load()
	logg := logger.New(cfg.LogLevel)

	db, err := database.ConnectDB(cfg, logg)
	if err != nil {
		logg.WithError(err).Fatal("failed to connect database")
	}

	if err := database.Migrate(db); err != nil {
		logg.WithError(err).Fatal("migration failed")
	}
	logg.Info("Schema migrated")

	if err := repository.Seed(db, logg); err != nil {
		logg.WithError(err).Fatal("seeding failed")
	}
}
