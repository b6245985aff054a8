package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ataa-platform/ataa_backend/config"
)

// DSN builds a pgx connection string from central config.
func DSN(cfg config.DatabaseConfig) string {
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName, sslmode)
}

// NewPool connects a pgx pool from central config and verifies the
// connection with a ping.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	if cfg.Pool.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.Pool.MaxConns)
	}
	if cfg.Pool.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.Pool.MinConns)
	}
	if cfg.Pool.ConnMaxLifetimeMin > 0 {
		poolCfg.MaxConnLifetime = time.Duration(cfg.Pool.ConnMaxLifetimeMin) * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}
