// Package adapters bridges the persistence repositories to the interfaces the
// application services consume. Errors pass through unchanged; the services
// translate persistence sentinels into their own taxonomy.
package adapters

import (
	"context"
	"time"

	"github.com/example/facility-booking/internal/application"
	"github.com/example/facility-booking/internal/persistence"
	"github.com/example/facility-booking/internal/slots"
)

var (
	_ application.CatalogRepository = (*CatalogAdapter)(nil)
	_ application.BookingRepository = (*BookingAdapter)(nil)
	_ application.UserRepository    = (*UserAdapter)(nil)
	_ application.CredentialStore   = (*UserAdapter)(nil)
	_ application.SessionRepository = (*SessionAdapter)(nil)
	_ application.ReportRepository  = (*ReportAdapter)(nil)
)

// CatalogAdapter serves courts and the slot grid.
type CatalogAdapter struct {
	repo persistence.CatalogRepository
}

// NewCatalogAdapter wraps a catalog repository.
func NewCatalogAdapter(repo persistence.CatalogRepository) *CatalogAdapter {
	return &CatalogAdapter{repo: repo}
}

func (a *CatalogAdapter) ListCourts(ctx context.Context) ([]application.Court, error) {
	models, err := a.repo.ListCourts(ctx)
	if err != nil {
		return nil, err
	}
	courts := make([]application.Court, 0, len(models))
	for _, model := range models {
		courts = append(courts, toApplicationCourt(model))
	}
	return courts, nil
}

func (a *CatalogAdapter) GetCourt(ctx context.Context, id string) (application.Court, error) {
	model, err := a.repo.GetCourt(ctx, id)
	if err != nil {
		return application.Court{}, err
	}
	return toApplicationCourt(model), nil
}

func (a *CatalogAdapter) InsertCourts(ctx context.Context, courts []application.Court) (int, error) {
	models := make([]persistence.Court, 0, len(courts))
	for _, court := range courts {
		models = append(models, persistence.Court{ID: court.ID, Name: court.Name, Position: court.Position, CreatedAt: court.CreatedAt})
	}
	return a.repo.InsertCourts(ctx, models)
}

func (a *CatalogAdapter) ListSlots(ctx context.Context) ([]slots.Slot, error) {
	models, err := a.repo.ListTimeSlots(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]slots.Slot, 0, len(models))
	for _, model := range models {
		slot, err := toSlot(model.ID, model.Start, model.End)
		if err != nil {
			return nil, err
		}
		out = append(out, slot)
	}
	return out, nil
}

func (a *CatalogAdapter) InsertSlots(ctx context.Context, catalog []slots.Slot) (int, error) {
	models := make([]persistence.TimeSlot, 0, len(catalog))
	for i, slot := range catalog {
		models = append(models, persistence.TimeSlot{ID: slot.ID, Start: slot.Start.String(), End: slot.End.String(), Position: i})
	}
	return a.repo.InsertTimeSlots(ctx, models)
}

// BookingAdapter stores bookings.
type BookingAdapter struct {
	repo persistence.BookingRepository
}

// NewBookingAdapter wraps a booking repository.
func NewBookingAdapter(repo persistence.BookingRepository) *BookingAdapter {
	return &BookingAdapter{repo: repo}
}

func (a *BookingAdapter) CreateBooking(ctx context.Context, booking application.Booking) error {
	return a.repo.CreateBooking(ctx, toPersistenceBooking(booking))
}

func (a *BookingAdapter) UpdateBooking(ctx context.Context, booking application.Booking, expected application.BookingStatus) error {
	return a.repo.UpdateBooking(ctx, toPersistenceBooking(booking), string(expected))
}

func (a *BookingAdapter) GetBooking(ctx context.Context, id string) (application.Booking, error) {
	model, err := a.repo.GetBooking(ctx, id)
	if err != nil {
		return application.Booking{}, err
	}
	return toApplicationBooking(model)
}

func (a *BookingAdapter) ListBookings(ctx context.Context, query application.BookingQuery) ([]application.Booking, error) {
	models, err := a.repo.ListBookings(ctx, toPersistenceFilter(query))
	if err != nil {
		return nil, err
	}
	bookings := make([]application.Booking, 0, len(models))
	for _, model := range models {
		booking, err := toApplicationBooking(model)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	return bookings, nil
}

func (a *BookingAdapter) DeleteBooking(ctx context.Context, id string) error {
	return a.repo.DeleteBooking(ctx, id)
}

// UserAdapter stores accounts and serves credential lookups.
type UserAdapter struct {
	repo persistence.UserRepository
}

// NewUserAdapter wraps a user repository.
func NewUserAdapter(repo persistence.UserRepository) *UserAdapter {
	return &UserAdapter{repo: repo}
}

func (a *UserAdapter) CreateUser(ctx context.Context, creds application.UserCredentials) error {
	return a.repo.CreateUser(ctx, toPersistenceUser(creds.User, creds.PasswordHash))
}

func (a *UserAdapter) UpdateUser(ctx context.Context, creds application.UserCredentials) error {
	return a.repo.UpdateUser(ctx, toPersistenceUser(creds.User, creds.PasswordHash))
}

func (a *UserAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	model, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(model), nil
}

func (a *UserAdapter) GetUserCredentials(ctx context.Context, passportID string) (application.UserCredentials, error) {
	model, err := a.repo.GetUserByPassportID(ctx, passportID)
	if err != nil {
		return application.UserCredentials{}, err
	}
	return application.UserCredentials{User: toApplicationUser(model), PasswordHash: model.PasswordHash}, nil
}

func (a *UserAdapter) ListUsers(ctx context.Context) ([]application.User, error) {
	models, err := a.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]application.User, 0, len(models))
	for _, model := range models {
		users = append(users, toApplicationUser(model))
	}
	return users, nil
}

func (a *UserAdapter) SaveFaceImage(ctx context.Context, userID string, image []byte, at time.Time) error {
	return a.repo.SaveFaceData(ctx, persistence.FaceData{
		UserID:    userID,
		Image:     append([]byte(nil), image...),
		CreatedAt: at,
		UpdatedAt: at,
	})
}

// SessionAdapter stores sessions.
type SessionAdapter struct {
	repo persistence.SessionRepository
}

// NewSessionAdapter wraps a session repository.
func NewSessionAdapter(repo persistence.SessionRepository) *SessionAdapter {
	return &SessionAdapter{repo: repo}
}

func (a *SessionAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *SessionAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *SessionAdapter) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.repo.RevokeSession(ctx, token, revokedAt)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *SessionAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return a.repo.DeleteExpiredSessions(ctx, reference)
}

// ReportAdapter answers dashboard queries.
type ReportAdapter struct {
	repo persistence.ReportRepository
}

// NewReportAdapter wraps a report repository.
func NewReportAdapter(repo persistence.ReportRepository) *ReportAdapter {
	return &ReportAdapter{repo: repo}
}

func (a *ReportAdapter) CountUsers(ctx context.Context, createdAfter *time.Time) (int, error) {
	return a.repo.CountUsers(ctx, cloneTime(createdAfter))
}

func (a *ReportAdapter) CountActiveUsers(ctx context.Context, since time.Time) (int, error) {
	return a.repo.CountActiveUsers(ctx, since)
}

func (a *ReportAdapter) CountBookings(ctx context.Context, query application.BookingQuery) (int, error) {
	return a.repo.CountBookings(ctx, toPersistenceFilter(query))
}

func (a *ReportAdapter) CountBookingsBetween(ctx context.Context, fromDate, toDate string) (int, error) {
	return a.repo.CountBookingsBetween(ctx, fromDate, toDate)
}

func (a *ReportAdapter) BookingCreationTimes(ctx context.Context, since time.Time) ([]time.Time, error) {
	return a.repo.BookingCreationTimes(ctx, since)
}

func (a *ReportAdapter) CourtUsage(ctx context.Context, since time.Time) ([]application.CourtUsage, error) {
	models, err := a.repo.CourtUsage(ctx, since)
	if err != nil {
		return nil, err
	}
	out := make([]application.CourtUsage, 0, len(models))
	for _, model := range models {
		out = append(out, application.CourtUsage{CourtID: model.CourtID, CourtName: model.CourtName, Bookings: model.Bookings})
	}
	return out, nil
}
