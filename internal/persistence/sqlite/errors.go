package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/example/facility-booking/internal/persistence"
)

// occupancyColumns identifies the booking occupancy index in SQLite's
// "UNIQUE constraint failed: ..." message.
const occupancyColumns = "bookings.court_id"

// mapError translates driver errors into persistence sentinels, keeping the
// original error in the chain for logging.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}

	code := 0
	var driverErr *sqlite.Error
	if errors.As(err, &driverErr) {
		code = driverErr.Code()
	}
	msg := err.Error()

	switch {
	case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE,
		code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY,
		strings.Contains(msg, "UNIQUE constraint failed"):
		if strings.Contains(msg, occupancyColumns) || strings.Contains(msg, "ux_bookings_occupancy") {
			return fmt.Errorf("%w: %v", persistence.ErrSlotTaken, err)
		}
		return fmt.Errorf("%w: %v", persistence.ErrDuplicate, err)
	case code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY,
		code == sqlite3.SQLITE_CONSTRAINT_CHECK,
		code == sqlite3.SQLITE_CONSTRAINT_NOTNULL,
		code&0xff == sqlite3.SQLITE_CONSTRAINT,
		strings.Contains(msg, "constraint failed"):
		return fmt.Errorf("%w: %v", persistence.ErrConstraintViolation, err)
	}
	return err
}
