// Package datasource opens the Postgres connection the mint reporter reads from.
package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"irys-monitor/internal/infra/log"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Pool limits for a per-invocation connection. A report runs one query, so
// the pool stays small and idle connections are closed quickly.
const (
	maxOpenConns    = 4
	maxIdleConns    = 2
	connMaxLifetime = 30 * time.Minute
	connMaxIdleTime = time.Minute
	pingTimeout     = 10 * time.Second
)

// Datasource wraps the connection used by one run.
type Datasource struct {
	Conn *sql.DB
}

// Open connects to dsn and verifies the connection with a ping.
func Open(ctx context.Context, dsn string) (*Datasource, error) {
	if dsn == "" {
		return nil, errors.New("postgres connection string is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		log.LogError("Database connection error", zap.Error(err))
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	log.LogDebug("Database connection established")
	return &Datasource{Conn: db}, nil
}

// Close releases the connection pool.
func (d *Datasource) Close() error {
	if d == nil || d.Conn == nil {
		return nil
	}
	return d.Conn.Close()
}
