package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

type PoolConfig struct {
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetimeS int
	ConnMaxIdleTimeS int
	PingAttempts     int
}

// NewPostgresDB opens a pooled connection and waits for the database to
// come up, retrying the ping once per second.
func NewPostgresDB(ctx context.Context, databaseURL string, pool PoolConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresDB: open: %w", err)
	}

	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetimeS) * time.Second)
	db.SetConnMaxIdleTime(time.Duration(pool.ConnMaxIdleTimeS) * time.Second)

	attempts := pool.PingAttempts
	if attempts < 1 {
		attempts = 1
	}
	for i := range attempts {
		if err = db.PingContext(ctx); err == nil {
			return db, nil
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				db.Close()
				return nil, fmt.Errorf("NewPostgresDB: %w", ctx.Err())
			case <-time.After(time.Second):
			}
		}
	}

	db.Close()
	return nil, fmt.Errorf("NewPostgresDB: ping: %w", err)
}
