package database

import (
	"context"
	"database/sql"
	"log/slog"
	"storefront/internal/logger"
	"time"

	_ "github.com/lib/pq"
)

// ConnectPostgres opens a lib/pq pool and pings it before returning.
func ConnectPostgres(globalCtx context.Context, dsn string) (*sql.DB, error) {
	log := logger.Instance()

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Error("Failed to open PostgreSQL", slog.String("error", err.Error()))
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(globalCtx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Error("PostgreSQL ping failed", slog.String("error", err.Error()))
		_ = db.Close()
		return nil, err
	}

	log.Info("Connected to PostgreSQL successfully")
	return db, nil
}
