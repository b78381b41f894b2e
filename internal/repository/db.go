package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

type Config struct {
	Path string
}

const schema = `
CREATE TABLE IF NOT EXISTS faktury (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	firma            TEXT NOT NULL DEFAULT '',
	numer_faktury    TEXT NOT NULL DEFAULT '',
	data_wystawienia TEXT NOT NULL DEFAULT '',
	termin_platnosci TEXT NOT NULL DEFAULT '',
	waluta           TEXT NOT NULL DEFAULT '',
	suma_netto       REAL NOT NULL DEFAULT 0,
	suma_vat         REAL NOT NULL DEFAULT 0,
	suma_brutto      REAL NOT NULL DEFAULT 0,
	json_data        TEXT NOT NULL DEFAULT '{}'
);`

// Open opens the SQLite store and ensures the faktury schema.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*sql.DB, error) {
	logger.Info("opening database", "path", cfg.Path)
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return nil, err
	}

	// SQLite allows a single writer; keep the pool at one connection so
	// writes are never rejected with a busy error mid-request.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		_ = db.Close()
		return nil, err
	}

	logger.Info("database ready")
	return db, nil
}

// Close closes the database connection gracefully
func Close(db *sql.DB, logger *slog.Logger) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
		return
	}
	logger.Info("database closed")
}

// HealthCheck pings the store to catch path/permission issues early.
func HealthCheck(ctx context.Context, db *sql.DB, timeout time.Duration, logger *slog.Logger) error {
	logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return db.PingContext(ctx)
}
