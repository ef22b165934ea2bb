package sqlite

import (
	"context"
	"time"

	"github.com/example/facility-booking/internal/persistence"
)

// CountUsers counts accounts, optionally only those created at or after createdAfter.
func (s *Storage) CountUsers(ctx context.Context, createdAfter *time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM users`
	var args []any
	if createdAfter != nil {
		query += ` WHERE created_at >= ?`
		args = append(args, formatTime(*createdAfter))
	}
	return s.count(ctx, query, args...)
}

// CountActiveUsers counts distinct users that created a booking at or after since.
func (s *Storage) CountActiveUsers(ctx context.Context, since time.Time) (int, error) {
	return s.count(ctx, `SELECT COUNT(DISTINCT user_id) FROM bookings WHERE created_at >= ?`, formatTime(since))
}

// CountBookings counts bookings matching filter.
func (s *Storage) CountBookings(ctx context.Context, filter persistence.BookingFilter) (int, error) {
	where, args := bookingWhere(filter)
	return s.count(ctx, `SELECT COUNT(*) FROM bookings b`+where, args...)
}

// CountBookingsBetween counts bookings whose calendar date lies in [fromDate, toDate].
func (s *Storage) CountBookingsBetween(ctx context.Context, fromDate, toDate string) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM bookings WHERE booking_date >= ? AND booking_date <= ?`, fromDate, toDate)
}

// BookingCreationTimes returns the creation instants of bookings made at or
// after since, oldest first. Callers bucket them by local calendar day.
func (s *Storage) BookingCreationTimes(ctx context.Context, since time.Time) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT created_at FROM bookings WHERE created_at >= ? ORDER BY created_at ASC
	`, formatTime(since))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, mapError(err)
		}
		created, err := parseTime("created_at", raw)
		if err != nil {
			return nil, err
		}
		out = append(out, created)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

// CourtUsage counts bookings created at or after since for every court,
// including courts without bookings.
func (s *Storage) CourtUsage(ctx context.Context, since time.Time) ([]persistence.CourtUsage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, COUNT(b.id)
		FROM courts c
		LEFT JOIN bookings b ON b.court_id = c.id AND b.created_at >= ?
		GROUP BY c.id, c.name, c.position
		ORDER BY c.position ASC, c.name ASC
	`, formatTime(since))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var usage []persistence.CourtUsage
	for rows.Next() {
		var u persistence.CourtUsage
		if err := rows.Scan(&u.CourtID, &u.CourtName, &u.Bookings); err != nil {
			return nil, mapError(err)
		}
		usage = append(usage, u)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return usage, nil
}

func (s *Storage) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, mapError(err)
	}
	return n, nil
}
