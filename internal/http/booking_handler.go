package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/facility-booking/internal/application"
)

type bookingService interface {
	CreateBooking(ctx context.Context, params application.CreateBookingParams) (application.Booking, error)
	CancelBooking(ctx context.Context, principal application.Principal, bookingID string) (application.Booking, error)
	ApproveBooking(ctx context.Context, principal application.Principal, bookingID string) (application.Booking, error)
	RejectBooking(ctx context.Context, principal application.Principal, bookingID string) (application.Booking, error)
	CompleteBooking(ctx context.Context, principal application.Principal, bookingID string) (application.Booking, error)
	UpdateBooking(ctx context.Context, params application.UpdateBookingParams) (application.Booking, error)
	DeleteBooking(ctx context.Context, principal application.Principal, bookingID string) error
	GetBooking(ctx context.Context, principal application.Principal, bookingID string) (application.Booking, error)
	ListBookings(ctx context.Context, params application.ListBookingsParams) ([]application.Booking, error)
}

type BookingHandler struct {
	service   bookingService
	responder responder
	logger    *slog.Logger
}

func NewBookingHandler(service bookingService, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	return &BookingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *BookingHandler) log(r *http.Request, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(r.Context(), h.logger, "BookingHandler", operation, attrs...)
}

func (h *BookingHandler) ready(w http.ResponseWriter) bool {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return false
	}
	return true
}

// Create handles POST /bookings.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	var req createBookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r, "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode booking request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	booking, err := h.service.CreateBooking(r.Context(), application.CreateBookingParams{
		Principal: principalOf(r),
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeBooking(r.Context(), w, http.StatusCreated, toBookingDTO(booking), "booking created")
}

// List handles GET /bookings?status=&date=.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	bookings, err := h.service.ListBookings(r.Context(), application.ListBookingsParams{
		Principal: principalOf(r),
		Date:      queryValue(r, "date"),
		Status:    queryValue(r, "status"),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeData(r.Context(), w, http.StatusOK, toBookingDTOs(bookings))
}

// Get handles GET /bookings/{id}.
func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	booking, err := h.service.GetBooking(r.Context(), principalOf(r), r.PathValue("id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeBooking(r.Context(), w, http.StatusOK, toBookingDTO(booking), "")
}

// Update handles PUT /bookings/{id}.
func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	var req updateBookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r, "Update", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode booking update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	booking, err := h.service.UpdateBooking(r.Context(), application.UpdateBookingParams{
		Principal: principalOf(r),
		BookingID: r.PathValue("id"),
		Patch:     req.toPatch(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeBooking(r.Context(), w, http.StatusOK, toBookingDTO(booking), "booking updated")
}

// Delete handles DELETE /bookings/{id}.
func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	if err := h.service.DeleteBooking(r.Context(), principalOf(r), r.PathValue("id")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeMessage(r.Context(), w, http.StatusOK, "booking deleted")
}

type transitionFunc func(service bookingService, ctx context.Context, principal application.Principal, bookingID string) (application.Booking, error)

func (h *BookingHandler) transition(w http.ResponseWriter, r *http.Request, apply transitionFunc, message string) {
	if !h.ready(w) {
		return
	}

	booking, err := apply(h.service, r.Context(), principalOf(r), r.PathValue("id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeBooking(r.Context(), w, http.StatusOK, toBookingDTO(booking), message)
}

// Cancel handles POST /bookings/{id}/cancel.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, bookingService.CancelBooking, "booking cancelled")
}

// Approve handles POST /bookings/{id}/approve.
func (h *BookingHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, bookingService.ApproveBooking, "booking approved")
}

// Reject handles POST /bookings/{id}/reject.
func (h *BookingHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, bookingService.RejectBooking, "booking rejected")
}

// Complete handles POST /bookings/{id}/complete.
func (h *BookingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, bookingService.CompleteBooking, "booking completed")
}
