package adapters

import (
	"fmt"
	"time"

	"github.com/example/facility-booking/internal/application"
	"github.com/example/facility-booking/internal/persistence"
	"github.com/example/facility-booking/internal/slots"
)

func toApplicationCourt(model persistence.Court) application.Court {
	return application.Court{ID: model.ID, Name: model.Name, Position: model.Position, CreatedAt: model.CreatedAt}
}

func toSlot(id, start, end string) (slots.Slot, error) {
	from, err := slots.ParseTimeOfDay(start)
	if err != nil {
		return slots.Slot{}, fmt.Errorf("stored slot start: %w", err)
	}
	to, err := slots.ParseTimeOfDay(end)
	if err != nil {
		return slots.Slot{}, fmt.Errorf("stored slot end: %w", err)
	}
	return slots.Slot{ID: id, Start: from, End: to}, nil
}

func toApplicationBooking(model persistence.Booking) (application.Booking, error) {
	slot, err := toSlot("", model.SlotStart, model.SlotEnd)
	if err != nil {
		return application.Booking{}, fmt.Errorf("booking %s: %w", model.ID, err)
	}
	status, ok := application.ParseBookingStatus(model.Status)
	if !ok {
		status = application.BookingStatus(model.Status)
	}
	return application.Booking{
		ID:         model.ID,
		UserID:     model.UserID,
		CourtID:    model.CourtID,
		Date:       model.Date,
		Slot:       slot,
		StartsAt:   model.StartsAt,
		EndsAt:     model.EndsAt,
		Status:     status,
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
		ReviewedAt: cloneTime(model.ReviewedAt),
		UserName:   model.UserName,
		PassportID: model.PassportID,
		CourtName:  model.CourtName,
	}, nil
}

func toPersistenceBooking(booking application.Booking) persistence.Booking {
	return persistence.Booking{
		ID:         booking.ID,
		UserID:     booking.UserID,
		CourtID:    booking.CourtID,
		Date:       booking.Date,
		SlotStart:  booking.Slot.Start.String(),
		SlotEnd:    booking.Slot.End.String(),
		StartsAt:   booking.StartsAt,
		EndsAt:     booking.EndsAt,
		Status:     string(booking.Status),
		CreatedAt:  booking.CreatedAt,
		UpdatedAt:  booking.UpdatedAt,
		ReviewedAt: cloneTime(booking.ReviewedAt),
	}
}

func toPersistenceFilter(query application.BookingQuery) persistence.BookingFilter {
	filter := persistence.BookingFilter{
		UserID:       query.UserID,
		CourtID:      query.CourtID,
		Date:         query.Date,
		EndsBefore:   cloneTime(query.EndsBefore),
		CreatedAfter: cloneTime(query.CreatedAfter),
		Descending:   query.Descending,
	}
	for _, status := range query.Statuses {
		filter.Statuses = append(filter.Statuses, string(status))
	}
	return filter
}

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		ID:             model.ID,
		PassportID:     model.PassportID,
		DisplayName:    model.DisplayName,
		IsAdmin:        model.IsAdmin,
		FaceRegistered: model.FaceRegistered,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}

func toPersistenceUser(user application.User, passwordHash string) persistence.User {
	return persistence.User{
		ID:             user.ID,
		PassportID:     user.PassportID,
		DisplayName:    user.DisplayName,
		PasswordHash:   passwordHash,
		IsAdmin:        user.IsAdmin,
		FaceRegistered: user.FaceRegistered,
		CreatedAt:      user.CreatedAt,
		UpdatedAt:      user.UpdatedAt,
	}
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		ID:          model.ID,
		UserID:      model.UserID,
		Token:       model.Token,
		Fingerprint: model.Fingerprint,
		ExpiresAt:   model.ExpiresAt,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
		RevokedAt:   cloneTime(model.RevokedAt),
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:          session.ID,
		UserID:      session.UserID,
		Token:       session.Token,
		Fingerprint: session.Fingerprint,
		ExpiresAt:   session.ExpiresAt,
		CreatedAt:   session.CreatedAt,
		UpdatedAt:   session.UpdatedAt,
		RevokedAt:   cloneTime(session.RevokedAt),
	}
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
