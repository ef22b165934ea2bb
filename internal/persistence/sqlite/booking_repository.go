package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/facility-booking/internal/persistence"
)

const bookingSelect = `
	SELECT b.id, b.user_id, b.court_id, b.booking_date, b.slot_start, b.slot_end,
	       b.starts_at, b.ends_at, b.status, b.reviewed_at, b.created_at, b.updated_at,
	       COALESCE(u.display_name, ''), COALESCE(u.passport_id, ''), COALESCE(c.name, '')
	FROM bookings b
	LEFT JOIN users u ON u.id = b.user_id
	LEFT JOIN courts c ON c.id = b.court_id
`

// CreateBooking inserts a booking. The occupancy index rejects a second
// active or completed booking for the same court, date and slot start with
// ErrSlotTaken.
func (s *Storage) CreateBooking(ctx context.Context, booking persistence.Booking) error {
	if err := validateBooking(booking); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bookings (id, user_id, court_id, booking_date, slot_start, slot_end,
		                      starts_at, ends_at, status, reviewed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		booking.ID,
		booking.UserID,
		booking.CourtID,
		booking.Date,
		booking.SlotStart,
		booking.SlotEnd,
		formatTime(booking.StartsAt),
		formatTime(booking.EndsAt),
		booking.Status,
		formatTimePtr(booking.ReviewedAt),
		formatTime(booking.CreatedAt),
		formatTime(booking.UpdatedAt),
	)
	return mapError(err)
}

// UpdateBooking replaces the mutable fields of a booking while its stored
// status is still expectedStatus. Moving it onto a held slot fails with
// ErrSlotTaken; a status changed by another writer fails with ErrStatusChanged.
func (s *Storage) UpdateBooking(ctx context.Context, booking persistence.Booking, expectedStatus string) error {
	if err := validateBooking(booking); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE bookings
		SET court_id = ?, booking_date = ?, slot_start = ?, slot_end = ?,
		    starts_at = ?, ends_at = ?, status = ?, reviewed_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`,
		booking.CourtID,
		booking.Date,
		booking.SlotStart,
		booking.SlotEnd,
		formatTime(booking.StartsAt),
		formatTime(booking.EndsAt),
		booking.Status,
		formatTimePtr(booking.ReviewedAt),
		formatTime(booking.UpdatedAt),
		booking.ID,
		expectedStatus,
	)
	if err != nil {
		return mapError(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	var current string
	err = s.db.QueryRowContext(ctx, `SELECT status FROM bookings WHERE id = ?`, booking.ID).Scan(&current)
	if err != nil {
		return mapError(err)
	}
	return persistence.ErrStatusChanged
}

// GetBooking retrieves a booking by ID together with owner and court names.
func (s *Storage) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	if strings.TrimSpace(id) == "" {
		return persistence.Booking{}, persistence.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, bookingSelect+` WHERE b.id = ?`, id)
	return scanBooking(row)
}

// ListBookings returns bookings matching filter ordered by date and slot.
func (s *Storage) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	where, args := bookingWhere(filter)
	direction := "ASC"
	if filter.Descending {
		direction = "DESC"
	}
	query := bookingSelect + where +
		` ORDER BY b.booking_date ` + direction + `, b.slot_start ` + direction + `, c.position ASC, b.created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var bookings []persistence.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return bookings, nil
}

// DeleteBooking removes a booking row.
func (s *Storage) DeleteBooking(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return persistence.ErrNotFound
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	return rowsAffected(result)
}

func validateBooking(booking persistence.Booking) error {
	if booking.ID == "" || booking.UserID == "" || booking.CourtID == "" ||
		booking.Date == "" || booking.SlotStart == "" || booking.SlotEnd == "" || booking.Status == "" {
		return persistence.ErrConstraintViolation
	}
	return nil
}

func bookingWhere(filter persistence.BookingFilter) (string, []any) {
	var clauses []string
	var args []any

	if filter.UserID != "" {
		clauses = append(clauses, "b.user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.CourtID != "" {
		clauses = append(clauses, "b.court_id = ?")
		args = append(args, filter.CourtID)
	}
	if filter.Date != "" {
		clauses = append(clauses, "b.booking_date = ?")
		args = append(args, filter.Date)
	}
	if len(filter.Statuses) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(filter.Statuses)), ", ")
		clauses = append(clauses, "b.status IN ("+placeholders+")")
		for _, status := range filter.Statuses {
			args = append(args, status)
		}
	}
	if filter.EndsBefore != nil {
		clauses = append(clauses, "b.ends_at <= ?")
		args = append(args, formatTime(*filter.EndsBefore))
	}
	if filter.CreatedAfter != nil {
		clauses = append(clauses, "b.created_at >= ?")
		args = append(args, formatTime(*filter.CreatedAfter))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanBooking(row rowScanner) (persistence.Booking, error) {
	var booking persistence.Booking
	var startsAt, endsAt, createdAt, updatedAt string
	var reviewedAt sql.NullString
	if err := row.Scan(
		&booking.ID,
		&booking.UserID,
		&booking.CourtID,
		&booking.Date,
		&booking.SlotStart,
		&booking.SlotEnd,
		&startsAt,
		&endsAt,
		&booking.Status,
		&reviewedAt,
		&createdAt,
		&updatedAt,
		&booking.UserName,
		&booking.PassportID,
		&booking.CourtName,
	); err != nil {
		return persistence.Booking{}, mapError(err)
	}

	var err error
	if booking.StartsAt, err = parseTime("starts_at", startsAt); err != nil {
		return persistence.Booking{}, err
	}
	if booking.EndsAt, err = parseTime("ends_at", endsAt); err != nil {
		return persistence.Booking{}, err
	}
	if booking.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Booking{}, err
	}
	if booking.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Booking{}, err
	}
	if booking.ReviewedAt, err = parseTimePtr("reviewed_at", reviewedAt); err != nil {
		return persistence.Booking{}, err
	}
	return booking, nil
}
