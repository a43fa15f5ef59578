package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound = errors.New("db: key not found")
	// ErrUnavailable marks connectivity, pool exhaustion and timeout failures.
	ErrUnavailable = errors.New("db: unavailable")
)

// Op constants name the failing statement or command for error context.
const (
	OpPing    = "PING"
	OpSearch  = "SELECT knn"
	OpUpsert  = "INSERT companies"
	OpScan    = "SCAN rows"
	OpBuild   = "BUILD query"
	OpMigrate = "MIGRATE"
	OpGet     = "GET"
	OpIncrBy  = "INCRBY"
	OpExpire  = "EXPIRE"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
