package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

// DB is a pgx connection pool exposed through database/sql.
type DB struct {
	*sql.DB
	Pool *pgxpool.Pool
}

func Open(ctx context.Context, databaseURL string, maxConns int32) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("openDB: parse postgres url: %w", err)
	}

	if maxConns > 0 {
		config.MaxConns = maxConns
	}
	config.HealthCheckPeriod = time.Minute
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 10 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("openDB: create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("openDB: verify postgres connection: %w", err)
	}

	return &DB{DB: stdlib.OpenDBFromPool(pool), Pool: pool}, nil
}

func (d *DB) Close() error {
	err := d.DB.Close()
	d.Pool.Close()
	return err
}
