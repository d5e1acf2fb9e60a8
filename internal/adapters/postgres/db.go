package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// applicationName tags every connection so perspectives sessions are easy
// to spot in pg_stat_activity next to the editing tools that share the DB.
const applicationName = "perspectives"

// The perspectives table is read in full on every snapshot refresh and is
// otherwise idle, so the pool keeps one warm connection and checks it often.
const (
	minConns          = 1
	maxConnIdleTime   = 5 * time.Minute
	healthCheckPeriod = 30 * time.Second
)

// DB owns the connection pool shared by the point repository, the seeder
// and the readiness check.
type DB struct {
	Pool *pgxpool.Pool
}

// poolConfig parses dsn and applies the pool tuning. maxConns of 0 keeps
// the pgx default.
func poolConfig(dsn string, maxConns int32) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if cfg.MinConns < minConns && cfg.MaxConns >= minConns {
		cfg.MinConns = minConns
	}
	cfg.MaxConnIdleTime = maxConnIdleTime
	cfg.HealthCheckPeriod = healthCheckPeriod
	if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		cfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}
	return cfg, nil
}

// New connects and pings once; a pool that cannot reach the database is
// closed again before returning.
func New(ctx context.Context, dsn string, maxConns int32) (*DB, error) {
	cfg, err := poolConfig(dsn, maxConns)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Ping reports whether the database answers.
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Stat exposes pool statistics for the connection gauges.
func (db *DB) Stat() *pgxpool.Stat {
	return db.Pool.Stat()
}

func (db *DB) Close() {
	db.Pool.Close()
}
