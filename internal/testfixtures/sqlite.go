package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/facility-booking/internal/adapters"
	"github.com/example/facility-booking/internal/persistence/sqlite"
)

// SQLiteHarness is a migrated SQLite database in a temporary directory with
// the application adapters wired over it.
type SQLiteHarness struct {
	Storage  *sqlite.Storage
	Catalog  *adapters.CatalogAdapter
	Bookings *adapters.BookingAdapter
	Users    *adapters.UserAdapter
	Sessions *adapters.SessionAdapter
	Reports  *adapters.ReportAdapter

	cleanup func()
}

// Close releases the database. It is also registered with tb.Cleanup.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens and migrates a fresh database file.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "facility.db")
	storage, err := sqlite.Open(path)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	if err := storage.Migrate(context.Background()); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage:  storage,
		Catalog:  adapters.NewCatalogAdapter(storage),
		Bookings: adapters.NewBookingAdapter(storage),
		Users:    adapters.NewUserAdapter(storage),
		Sessions: adapters.NewSessionAdapter(storage),
		Reports:  adapters.NewReportAdapter(storage),
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
