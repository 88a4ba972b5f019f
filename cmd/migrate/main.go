// cmd/migrate/main.go
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/unclebandit/leadflow-backend/internal/config"
	"github.com/unclebandit/leadflow-backend/internal/db"
	"github.com/unclebandit/leadflow-backend/internal/logger"
)

// migrate applies the delivery log schema and exits.
func main() {
	cfg, err := config.Load(logger.New(slog.LevelInfo))
	if err != nil {
		slog.Error("config", slog.Any("err", err))
		os.Exit(1)
	}
	log := logger.New(cfg.SlogLevel())

	conn, dialect, err := db.Open(context.Background(), cfg.DatabaseURL, log)
	if err != nil {
		log.Error("migration failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer conn.Close()

	log.Info("database migrated", slog.String("dialect", string(dialect)))
}
