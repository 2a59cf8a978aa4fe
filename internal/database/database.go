package database

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"

	"horeca/storefront/internal/config"
)

// ErrNotConfigured is returned when neither a URL nor a host is set.
var ErrNotConfigured = errors.New("missing DATABASE_URL or DB_HOST")

// Connect opens a pgx-backed pool and pings it. Callers fall back to memory
// mode on any error.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	if !cfg.HasDatabase() {
		return nil, ErrNotConfigured
	}
	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdle)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping database")
	}
	return db, nil
}
