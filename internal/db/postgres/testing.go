package postgres

import "github.com/jmoiron/sqlx"

// NewStoreForTest wraps an existing handle (typically go-sqlmock) in a Store.
func NewStoreForTest(conn *sqlx.DB, cfg Config) *Store {
	return newStore(conn, cfg)
}
