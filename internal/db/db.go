// Package db persists completed analyses to PostgreSQL so results survive
// client disconnects and can be re-fetched by ID.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB wraps a PostgreSQL database connection
type DB struct {
	conn *sql.DB
}

// Connect establishes a connection to PostgreSQL
func Connect(dsn string) (*DB, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(50)
	conn.SetMaxIdleConns(10)
	// Recycle connections periodically to avoid stale connections
	conn.SetConnMaxLifetime(20 * time.Minute)

	return &DB{conn: conn}, nil
}

// ConnectWithRetry keeps trying to connect until the context expires.
// Useful at startup when the database may still be coming up.
func ConnectWithRetry(ctx context.Context, dsn string) (*DB, error) {
	var lastErr error
	for {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return nil, fmt.Errorf("giving up connecting to database: %w", lastErr)
			}
			return nil, err
		}

		database, err := Connect(dsn)
		if err == nil {
			return database, nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("giving up connecting to database: %w", lastErr)
		case <-time.After(time.Second):
		}
	}
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}
