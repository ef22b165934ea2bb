package http

import (
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/facility-booking/internal/application"
	"github.com/example/facility-booking/internal/slots"
)

type stubBookingService struct {
	createFn func(ctx context.Context, params application.CreateBookingParams) (application.Booking, error)
	cancelFn func(ctx context.Context, principal application.Principal, bookingID string) (application.Booking, error)
	listFn   func(ctx context.Context, params application.ListBookingsParams) ([]application.Booking, error)
	calls    int
}

func (s *stubBookingService) CreateBooking(ctx context.Context, params application.CreateBookingParams) (application.Booking, error) {
	s.calls++
	return s.createFn(ctx, params)
}

func (s *stubBookingService) CancelBooking(ctx context.Context, principal application.Principal, bookingID string) (application.Booking, error) {
	s.calls++
	return s.cancelFn(ctx, principal, bookingID)
}

func (s *stubBookingService) ApproveBooking(ctx context.Context, principal application.Principal, bookingID string) (application.Booking, error) {
	s.calls++
	return application.Booking{}, errors.New("unexpected call")
}

func (s *stubBookingService) RejectBooking(ctx context.Context, principal application.Principal, bookingID string) (application.Booking, error) {
	s.calls++
	return application.Booking{}, errors.New("unexpected call")
}

func (s *stubBookingService) CompleteBooking(ctx context.Context, principal application.Principal, bookingID string) (application.Booking, error) {
	s.calls++
	return application.Booking{}, errors.New("unexpected call")
}

func (s *stubBookingService) UpdateBooking(ctx context.Context, params application.UpdateBookingParams) (application.Booking, error) {
	s.calls++
	return application.Booking{}, errors.New("unexpected call")
}

func (s *stubBookingService) DeleteBooking(ctx context.Context, principal application.Principal, bookingID string) error {
	s.calls++
	return errors.New("unexpected call")
}

func (s *stubBookingService) GetBooking(ctx context.Context, principal application.Principal, bookingID string) (application.Booking, error) {
	s.calls++
	return application.Booking{}, application.ErrNotFound
}

func (s *stubBookingService) ListBookings(ctx context.Context, params application.ListBookingsParams) ([]application.Booking, error) {
	s.calls++
	return s.listFn(ctx, params)
}

type stubAuthService struct {
	result  application.AuthenticateResult
	err     error
	revoked []string
}

func (s *stubAuthService) Authenticate(ctx context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error) {
	return s.result, s.err
}

func (s *stubAuthService) RevokeSession(ctx context.Context, token string) error {
	s.revoked = append(s.revoked, token)
	return nil
}

type stubReportService struct {
	report application.Report
	days   int
}

func (s *stubReportService) Stats(ctx context.Context, principal application.Principal) (application.Stats, error) {
	return application.Stats{TotalUsers: 3, TotalBookings: 7}, nil
}

func (s *stubReportService) Report(ctx context.Context, principal application.Principal, days int) (application.Report, error) {
	s.days = days
	return s.report, nil
}

func sampleBooking() application.Booking {
	created := time.Date(2025, 3, 1, 2, 0, 0, 0, time.UTC)
	return application.Booking{
		ID:        "booking-1",
		UserID:    "user-1",
		CourtID:   "court-1",
		CourtName: "Court 1",
		Date:      "2025-03-03",
		Slot:      slots.Slot{ID: "slot-1", Start: slots.MustTimeOfDay(9, 0), End: slots.MustTimeOfDay(9, 30)},
		Status:    application.StatusActive,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func newTestRouter(bookings bookingService, reports reportService, principal application.Principal) http.Handler {
	logger := quietLogger()
	return NewRouter(RouterConfig{
		Bookings: NewBookingHandler(bookings, logger),
		Reports:  NewReportHandler(reports, logger),
		Sessions: &fakeSessionValidator{principal: principal},
		Logger:   logger,
	})
}

func authed(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(sessionHeader, "token")
	return req
}

func TestBookingHandler_CreateMapsServiceErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
		wantField  string
	}{
		{
			name:       "created",
			body:       `{"courtId":"court-1","date":"2025-03-03","startTime":"09:00","endTime":"09:30"}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "slot taken",
			body:       `{"courtId":"court-1","date":"2025-03-03","startTime":"09:00","endTime":"09:30"}`,
			err:        &application.ConflictError{Reason: application.ConflictSlotTaken},
			wantStatus: http.StatusConflict,
			wantCode:   application.ConflictSlotTaken,
		},
		{
			name: "missing court",
			body: `{"date":"2025-03-03","startTime":"09:00","endTime":"09:30"}`,
			err: &application.ValidationError{
				Reason:      application.ReasonMissingField,
				FieldErrors: map[string]string{"courtId": "court is required"},
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   application.ReasonMissingField,
			wantField:  "courtId",
		},
		{
			name:       "malformed body",
			body:       `{"courtId":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   codeBadRequest,
		},
		{
			name:       "storage failure",
			body:       `{"courtId":"court-1","date":"2025-03-03","startTime":"09:00","endTime":"09:30"}`,
			err:        &application.InfrastructureError{Op: "insert booking", Err: errors.New("disk I/O error")},
			wantStatus: http.StatusInternalServerError,
			wantCode:   codeInternal,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			principal := application.Principal{UserID: "user-1"}
			var received application.CreateBookingParams
			service := &stubBookingService{
				createFn: func(ctx context.Context, params application.CreateBookingParams) (application.Booking, error) {
					received = params
					if tc.err != nil {
						return application.Booking{}, tc.err
					}
					return sampleBooking(), nil
				},
			}

			recorder := httptest.NewRecorder()
			newTestRouter(service, &stubReportService{}, principal).ServeHTTP(recorder, authed(http.MethodPost, "/bookings", tc.body))

			if recorder.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tc.wantStatus, recorder.Code, recorder.Body.String())
			}
			body := recorder.Body.String()
			env := decodeEnvelope(t, strings.NewReader(body))

			if tc.wantStatus == http.StatusCreated {
				booking, ok := env.Booking.(map[string]any)
				if !env.Success || !ok {
					t.Fatalf("expected booking envelope, got %s", body)
				}
				if booking["id"] != "booking-1" || booking["startTime"] != "09:00" || booking["status"] != "active" {
					t.Fatalf("unexpected booking payload %v", booking)
				}
				if received.Principal != principal || received.Input.CourtID != "court-1" || received.Input.EndTime != "09:30" {
					t.Fatalf("unexpected service params %+v", received)
				}
				return
			}

			if env.Success || env.ErrorCode != tc.wantCode {
				t.Fatalf("expected failure %s, got %s", tc.wantCode, body)
			}
			if tc.wantField != "" && env.Errors[tc.wantField] == "" {
				t.Fatalf("expected field error for %s, got %v", tc.wantField, env.Errors)
			}
			if strings.Contains(body, "disk I/O") {
				t.Fatalf("internal error text leaked: %s", body)
			}
		})
	}
}

func TestRouter_AdminRoutesRejectMembers(t *testing.T) {
	t.Parallel()

	routes := []struct {
		method string
		target string
	}{
		{http.MethodPut, "/bookings/booking-1"},
		{http.MethodDelete, "/bookings/booking-1"},
		{http.MethodPost, "/bookings/booking-1/approve"},
		{http.MethodPost, "/bookings/booking-1/reject"},
		{http.MethodPost, "/bookings/booking-1/complete"},
		{http.MethodGet, "/admin/stats"},
		{http.MethodGet, "/admin/reports"},
		{http.MethodGet, "/admin/reports.csv"},
	}

	for _, route := range routes {
		route := route
		t.Run(route.method+" "+route.target, func(t *testing.T) {
			t.Parallel()

			service := &stubBookingService{}
			recorder := httptest.NewRecorder()
			router := newTestRouter(service, &stubReportService{}, application.Principal{UserID: "user-1"})
			router.ServeHTTP(recorder, authed(route.method, route.target, `{}`))

			if recorder.Code != http.StatusForbidden {
				t.Fatalf("expected 403, got %d", recorder.Code)
			}
			if service.calls != 0 {
				t.Fatalf("expected the booking service to be untouched, got %d calls", service.calls)
			}
		})
	}
}

func TestRouter_RequiresSession(t *testing.T) {
	t.Parallel()

	service := &stubBookingService{}
	recorder := httptest.NewRecorder()
	router := newTestRouter(service, &stubReportService{}, application.Principal{UserID: "user-1"})
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/bookings", nil))

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
	if service.calls != 0 {
		t.Fatalf("expected no service calls, got %d", service.calls)
	}
}

func TestBookingHandler_CancelAndList(t *testing.T) {
	t.Parallel()

	principal := application.Principal{UserID: "user-1"}
	var cancelled string
	var listed application.ListBookingsParams
	service := &stubBookingService{
		cancelFn: func(ctx context.Context, p application.Principal, bookingID string) (application.Booking, error) {
			cancelled = bookingID
			booking := sampleBooking()
			booking.Status = application.StatusCancelled
			return booking, nil
		},
		listFn: func(ctx context.Context, params application.ListBookingsParams) ([]application.Booking, error) {
			listed = params
			return []application.Booking{sampleBooking()}, nil
		},
	}
	router := newTestRouter(service, &stubReportService{}, principal)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, authed(http.MethodPost, "/bookings/booking-1/cancel", ""))
	if recorder.Code != http.StatusOK || cancelled != "booking-1" {
		t.Fatalf("expected cancel of booking-1, got %d (%q)", recorder.Code, cancelled)
	}
	env := decodeEnvelope(t, recorder.Body)
	if env.Message != "booking cancelled" || env.Booking.(map[string]any)["status"] != "cancelled" {
		t.Fatalf("unexpected cancel response %+v", env)
	}

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, authed(http.MethodGet, "/bookings?date=2025-03-03&status=active", ""))
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if listed.Date != "2025-03-03" || listed.Status != "active" || listed.Principal != principal {
		t.Fatalf("unexpected list params %+v", listed)
	}
	env = decodeEnvelope(t, recorder.Body)
	items, ok := env.Data.([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("expected one booking in data, got %+v", env.Data)
	}

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, authed(http.MethodGet, "/bookings/missing", ""))
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", recorder.Code)
	}
}

func TestAuthHandler_CreateSession(t *testing.T) {
	t.Parallel()

	expires := time.Date(2025, 3, 2, 2, 0, 0, 0, time.UTC)
	service := &stubAuthService{result: application.AuthenticateResult{
		User:    application.User{ID: "user-1", PassportID: "P100", DisplayName: "Uma"},
		Session: application.Session{Token: "fresh-token", ExpiresAt: expires},
	}}
	handler := NewAuthHandler(service, quietLogger())

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(`{"passportId":" P100 ","password":"secret"}`))
	handler.CreateSession(recorder, req)

	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if got := recorder.Header().Get(sessionHeader); got != "fresh-token" {
		t.Fatalf("expected session header, got %q", got)
	}
	var cookie *http.Cookie
	for _, c := range recorder.Result().Cookies() {
		if c.Name == sessionCookie {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != "fresh-token" || !cookie.HttpOnly {
		t.Fatalf("expected http-only session cookie, got %+v", cookie)
	}
	data, ok := decodeEnvelope(t, recorder.Body).Data.(map[string]any)
	if !ok || data["token"] != "fresh-token" || data["expiresAt"] != "2025-03-02T02:00:00Z" {
		t.Fatalf("unexpected session payload %+v", data)
	}

	service.err = application.ErrInvalidCredentials
	recorder = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(`{"passportId":"P100","password":"wrong"}`))
	handler.CreateSession(recorder, req)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
	if recorder.Header().Get(sessionHeader) != "" {
		t.Fatalf("expected no session header on failure")
	}

	recorder = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/sessions/current", nil)
	req.Header.Set(sessionHeader, "fresh-token")
	handler.DeleteCurrentSession(recorder, req)
	if recorder.Code != http.StatusNoContent || len(service.revoked) != 1 || service.revoked[0] != "fresh-token" {
		t.Fatalf("expected 204 and revoked token, got %d %v", recorder.Code, service.revoked)
	}
}

func TestReportHandler_CSV(t *testing.T) {
	t.Parallel()

	reports := &stubReportService{report: application.Report{
		Days:         30,
		GeneratedAt:  time.Date(2025, 3, 1, 4, 0, 0, 0, time.UTC),
		BookingStats: application.BookingStats{Total: 2, Active: 1, Cancelled: 1},
		CourtStats:   []application.CourtUsage{{CourtID: "court-1", CourtName: "Court 1", Bookings: 2}},
	}}
	admin := application.Principal{UserID: "admin-1", IsAdmin: true}
	router := newTestRouter(&stubBookingService{}, reports, admin)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, authed(http.MethodGet, "/admin/reports.csv?days=30", ""))
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if got := recorder.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/csv") {
		t.Fatalf("expected csv content type, got %q", got)
	}
	if got := recorder.Header().Get("Content-Disposition"); !strings.Contains(got, "booking-report-2025-03-01.csv") {
		t.Fatalf("unexpected content disposition %q", got)
	}
	if reports.days != 30 {
		t.Fatalf("expected days=30 to reach the service, got %d", reports.days)
	}

	rows, err := csv.NewReader(recorder.Body).ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}
	if len(rows) == 0 || strings.Join(rows[0], ",") != "section,label,value" {
		t.Fatalf("unexpected header %v", rows)
	}
	found := false
	for _, row := range rows {
		if row[0] == "court" && row[1] == "Court 1" && row[2] == "2" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected court usage row, got %v", rows)
	}

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, authed(http.MethodGet, "/admin/reports?days=many", ""))
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a non numeric days value, got %d", recorder.Code)
	}
	if env := decodeEnvelope(t, recorder.Body); env.Errors["days"] == "" {
		t.Fatalf("expected days field error, got %+v", env)
	}
}

func TestBookingHandler_TransitionsWithoutService(t *testing.T) {
	t.Parallel()

	var nilHandler *BookingHandler
	for name, handler := range map[string]*BookingHandler{
		"nil handler": nilHandler,
		"nil service": NewBookingHandler(nil, quietLogger()),
	} {
		for _, route := range []http.HandlerFunc{handler.Cancel, handler.Approve, handler.Reject, handler.Complete} {
			recorder := httptest.NewRecorder()
			route(recorder, authed(http.MethodPost, "/bookings/b1/cancel", ""))
			if recorder.Code != http.StatusInternalServerError {
				t.Fatalf("%s: expected 500, got %d", name, recorder.Code)
			}
		}
	}
}
