// Package sqlite implements the persistence repositories on an SQLite database
// using the pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/example/facility-booking/internal/persistence"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// timeLayout keeps every stored instant in UTC with fixed width so that
// lexical comparison in SQL matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Storage provides the SQLite backed implementation of every repository interface.
type Storage struct {
	db *sql.DB
}

var (
	_ persistence.CatalogRepository = (*Storage)(nil)
	_ persistence.UserRepository    = (*Storage)(nil)
	_ persistence.SessionRepository = (*Storage)(nil)
	_ persistence.BookingRepository = (*Storage)(nil)
	_ persistence.ReportRepository  = (*Storage)(nil)
)

// Open connects to the database identified by dsn. Foreign keys and a busy
// timeout are enabled unless the DSN already sets them.
func Open(dsn string) (*Storage, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: dsn is required")
	}

	db, err := sql.Open("sqlite", withPragmas(dsn))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// SQLite allows a single writer; one pooled connection serialises access
	// instead of surfacing SQLITE_BUSY to callers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &Storage{db: db}, nil
}

func withPragmas(dsn string) string {
	pragmas := []struct {
		name  string
		value string
	}{
		{name: "foreign_keys", value: "foreign_keys(1)"},
		{name: "busy_timeout", value: "busy_timeout(5000)"},
	}
	out := dsn
	for _, p := range pragmas {
		if strings.Contains(out, p.name) {
			continue
		}
		sep := "?"
		if strings.Contains(out, "?") {
			sep = "&"
		}
		out += sep + "_pragma=" + p.value
	}
	return out
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// DB exposes the underlying handle for tests and tooling.
func (s *Storage) DB() *sql.DB {
	return s.db
}

// Migrate applies all pending schema migrations. Running it on an up to date
// database is a no-op.
func (s *Storage) Migrate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("sqlite: load migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("sqlite: migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("sqlite: migrator: %w", err)
	}
	// m.Close would close s.db through the driver, so the migrator is left for GC.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sqlite: migrate up: %w", err)
	}
	return nil
}

// withTx runs fn inside a transaction, rolling back when fn fails or panics.
func (s *Storage) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit transaction: %w", mapError(err))
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(column, value string) (time.Time, error) {
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		// Rows written by hand through facilityctl or sqlite3 may use plain RFC3339.
		if fallback, ferr := time.Parse(time.RFC3339Nano, value); ferr == nil {
			return fallback.UTC(), nil
		}
		return time.Time{}, fmt.Errorf("sqlite: parse %s %q: %w", column, value, err)
	}
	return parsed.UTC(), nil
}

func parseTimePtr(column string, value sql.NullString) (*time.Time, error) {
	if !value.Valid {
		return nil, nil
	}
	parsed, err := parseTime(column, value.String)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func rowsAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
