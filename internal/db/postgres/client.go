// Package postgres implements db.Store on PostgreSQL with the pgvector extension.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // registers the "postgres" driver

	"github.com/kailas-cloud/resumatch/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Config holds connection and pool parameters.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// AcquireTimeout bounds how long a query waits for a pooled connection.
	AcquireTimeout time.Duration
	// QueryTimeout bounds a single statement once a connection is held.
	QueryTimeout time.Duration
}

// Store implements db.Store via sqlx + lib/pq.
type Store struct {
	db             *sqlx.DB
	acquireTimeout time.Duration
	queryTimeout   time.Duration
}

// NewStore opens a pooled connection handle. It does not dial until first use.
func NewStore(cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}

	conn, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return newStore(conn, cfg), nil
}

func newStore(conn *sqlx.DB, cfg Config) *Store {
	acquire := cfg.AcquireTimeout
	if acquire <= 0 {
		acquire = 2 * time.Second
	}
	query := cfg.QueryTimeout
	if query <= 0 {
		query = 5 * time.Second
	}
	return &Store{db: conn, acquireTimeout: acquire, queryTimeout: query}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.acquireTimeout)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: classify(ctx, err)}
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// WaitForReady polls Ping until the database responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		if err := s.Ping(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// statementContext bounds a statement by pool acquisition plus execution time,
// so an exhausted pool surfaces as an error instead of a hang.
func (s *Store) statementContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.acquireTimeout+s.queryTimeout)
}

// classify marks connectivity-class failures with db.ErrUnavailable. A
// statement whose context expired counts as unavailable whatever the driver
// reported, since drivers surface cancellation in their own error types.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if isUnavailable(err) || ctx.Err() != nil {
		return fmt.Errorf("%w: %w", db.ErrUnavailable, err)
	}
	return err
}

func isUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	return isConnectionError(err)
}
