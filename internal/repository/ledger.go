package repository

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/pdftoxl/internal/common"
)

// ConfigFrom maps the DATABASE_URL / DB_* settings onto Config.
func ConfigFrom(cfg common.DatabaseConfig) Config {
	return Config{
		DSN:             cfg.DSN,
		MaxConns:        cfg.MaxConns,
		MinConns:        cfg.MinConns,
		MaxConnLifetime: cfg.MaxConnLifetime,
		MaxConnIdleTime: cfg.MaxConnIdleTime,
		DialTimeout:     cfg.DialTimeout,
	}
}

// OpenLedger connects, pings and makes sure extraction_jobs exists. The caller
// owns the returned DB.
func OpenLedger(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*DB, ExtractionJobRepository, error) {
	db, err := Open(ctx, ConfigFrom(cfg), logger)
	if err != nil {
		return nil, nil, common.WrapError(err, "open job ledger")
	}
	if err := db.HealthCheck(ctx, cfg.DialTimeout, logger); err != nil {
		db.Close(logger)
		return nil, nil, common.WrapError(err, "open job ledger")
	}
	jobs := NewExtractionJobRepository(db, logger)
	if err := jobs.EnsureSchema(ctx); err != nil {
		db.Close(logger)
		return nil, nil, common.WrapError(err, "open job ledger")
	}
	return db, jobs, nil
}
