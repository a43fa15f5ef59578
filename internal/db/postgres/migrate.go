package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strconv"
	"strings"
	"testing/fstest"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/kailas-cloud/resumatch/internal/db"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const (
	migrationsDir       = "migrations"
	dimensionsTemplate  = "{{dimensions}}"
	migrationsTableName = "resumatch_schema_migrations"
)

// Direction selects which way Migrate moves the schema.
type Direction int

const (
	Up Direction = iota
	Down
)

// RenderMigrations returns the embedded migrations with the embedding
// column width substituted.
func RenderMigrations(dimensions int) (fs.FS, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", dimensions)
	}

	entries, err := fs.ReadDir(migrationFiles, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	rendered := fstest.MapFS{}
	for _, e := range entries {
		name := path.Join(migrationsDir, e.Name())
		body, err := fs.ReadFile(migrationFiles, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		text := strings.ReplaceAll(string(body), dimensionsTemplate, strconv.Itoa(dimensions))
		rendered[name] = &fstest.MapFile{Data: []byte(text), Mode: 0o444}
	}
	return rendered, nil
}

// Migrate applies (or rolls back) the schema. It opens a dedicated connection
// because the migrate driver closes the handle it is given.
// Returns the schema version after the run.
func Migrate(dsn string, dimensions int, dir Direction) (uint, error) {
	src, err := RenderMigrations(dimensions)
	if err != nil {
		return 0, &db.Error{Op: db.OpMigrate, Err: err}
	}

	source, err := iofs.New(src, migrationsDir)
	if err != nil {
		return 0, &db.Error{Op: db.OpMigrate, Err: fmt.Errorf("open migration source: %w", err)}
	}

	conn, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return 0, &db.Error{Op: db.OpMigrate, Err: fmt.Errorf("open database: %w", err)}
	}

	driver, err := migratepg.WithInstance(conn.DB, &migratepg.Config{MigrationsTable: migrationsTableName})
	if err != nil {
		_ = conn.Close()
		return 0, &db.Error{Op: db.OpMigrate, Err: classify(context.Background(), err)}
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		_ = conn.Close()
		return 0, &db.Error{Op: db.OpMigrate, Err: err}
	}
	defer m.Close()

	switch dir {
	case Down:
		err = m.Down()
	default:
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, &db.Error{Op: db.OpMigrate, Err: err}
	}

	version, _, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, &db.Error{Op: db.OpMigrate, Err: err}
	}
	return version, nil
}
