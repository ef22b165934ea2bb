package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/facility-booking/internal/persistence"
)

// ListCourts returns every court ordered by position then name.
func (s *Storage) ListCourts(ctx context.Context) ([]persistence.Court, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, position, created_at
		FROM courts
		ORDER BY position ASC, name ASC
	`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var courts []persistence.Court
	for rows.Next() {
		court, err := scanCourt(rows)
		if err != nil {
			return nil, err
		}
		courts = append(courts, court)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return courts, nil
}

// GetCourt retrieves a court by ID.
func (s *Storage) GetCourt(ctx context.Context, id string) (persistence.Court, error) {
	if strings.TrimSpace(id) == "" {
		return persistence.Court{}, persistence.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, position, created_at
		FROM courts
		WHERE id = ?
	`, id)
	return scanCourt(row)
}

// InsertCourts stores courts whose name is not yet present and reports how
// many rows were added.
func (s *Storage) InsertCourts(ctx context.Context, courts []persistence.Court) (int, error) {
	inserted := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO courts (id, name, position, created_at)
			VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return mapError(err)
		}
		defer stmt.Close()

		for _, court := range courts {
			if court.ID == "" || strings.TrimSpace(court.Name) == "" {
				return persistence.ErrConstraintViolation
			}
			result, err := stmt.ExecContext(ctx, court.ID, court.Name, court.Position, formatTime(court.CreatedAt))
			if err != nil {
				return mapError(err)
			}
			n, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("sqlite: rows affected: %w", err)
			}
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// ListTimeSlots returns the slot catalog in chronological order.
func (s *Storage) ListTimeSlots(ctx context.Context) ([]persistence.TimeSlot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, start_time, end_time, position
		FROM time_slots
		ORDER BY start_time ASC, end_time ASC
	`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var slots []persistence.TimeSlot
	for rows.Next() {
		var slot persistence.TimeSlot
		if err := rows.Scan(&slot.ID, &slot.Start, &slot.End, &slot.Position); err != nil {
			return nil, mapError(err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return slots, nil
}

// InsertTimeSlots stores catalog rows whose (start, end) pair is not yet
// present and reports how many rows were added.
func (s *Storage) InsertTimeSlots(ctx context.Context, slots []persistence.TimeSlot) (int, error) {
	inserted := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO time_slots (id, start_time, end_time, position)
			VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return mapError(err)
		}
		defer stmt.Close()

		for _, slot := range slots {
			if slot.ID == "" || slot.Start == "" || slot.End == "" {
				return persistence.ErrConstraintViolation
			}
			result, err := stmt.ExecContext(ctx, slot.ID, slot.Start, slot.End, slot.Position)
			if err != nil {
				return mapError(err)
			}
			n, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("sqlite: rows affected: %w", err)
			}
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCourt(row rowScanner) (persistence.Court, error) {
	var court persistence.Court
	var createdAt string
	if err := row.Scan(&court.ID, &court.Name, &court.Position, &createdAt); err != nil {
		return persistence.Court{}, mapError(err)
	}
	var err error
	if court.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Court{}, err
	}
	return court, nil
}
