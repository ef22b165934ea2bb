package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/example/facility-booking/internal/application"
	"github.com/example/facility-booking/internal/logging"
)

// Error codes carried in the error_code field.
const (
	codeBadRequest      = "bad_request"
	codeUnauthenticated = "unauthenticated"
	codeForbidden       = "forbidden"
	codeNotFound        = "not_found"
	codeInternal        = "internal"
)

var (
	errBadRequestBody      = errors.New("request body is not valid JSON")
	errMissingSessionToken = errors.New("a session token is required")
)

// envelope is the body of every JSON response.
type envelope struct {
	Success   bool              `json:"success"`
	Data      any               `json:"data,omitempty"`
	Booking   any               `json:"booking,omitempty"`
	Message   string            `json:"message,omitempty"`
	Error     string            `json:"error,omitempty"`
	ErrorCode string            `json:"error_code,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
}

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: defaultLogger(logger)}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeData(ctx context.Context, w http.ResponseWriter, status int, data any) {
	r.writeJSON(ctx, w, status, envelope{Success: true, Data: data})
}

func (r responder) writeBooking(ctx context.Context, w http.ResponseWriter, status int, booking bookingDTO, message string) {
	r.writeJSON(ctx, w, status, envelope{Success: true, Booking: booking, Message: message})
}

func (r responder) writeMessage(ctx context.Context, w http.ResponseWriter, status int, message string) {
	r.writeJSON(ctx, w, status, envelope{Success: true, Message: message})
}

// writeFailure writes an error envelope. message reaches the client verbatim.
func (r responder) writeFailure(ctx context.Context, w http.ResponseWriter, status int, code, message string) {
	r.writeJSON(ctx, w, status, envelope{Success: false, Error: message, ErrorCode: code})
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		message = err.Error()
		r.loggerFor(ctx).WarnContext(ctx, "request rejected", "status", status, "error", err)
	}
	r.writeFailure(ctx, w, status, statusCode(status), message)
}

// handleServiceError maps the application taxonomy onto statuses. Infrastructure
// details are logged and replaced by a generic message.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	var vErr *application.ValidationError
	var cErr *application.ConflictError
	switch {
	case errors.As(err, &vErr):
		r.writeJSON(ctx, w, http.StatusBadRequest, envelope{
			Error:     validationMessage(vErr),
			ErrorCode: vErr.Reason,
			Errors:    vErr.FieldErrors,
		})
	case errors.As(err, &cErr):
		r.writeFailure(ctx, w, http.StatusConflict, cErr.Reason, conflictMessage(cErr))
	case errors.Is(err, application.ErrInvalidCredentials):
		r.writeFailure(ctx, w, http.StatusUnauthorized, codeUnauthenticated, "invalid passport id, password or session")
	case errors.Is(err, application.ErrSessionExpired):
		r.writeFailure(ctx, w, http.StatusUnauthorized, "session_expired", "the session has expired, please sign in again")
	case errors.Is(err, application.ErrSessionRevoked):
		r.writeFailure(ctx, w, http.StatusUnauthorized, "session_revoked", "the session has been signed out, please sign in again")
	case errors.Is(err, application.ErrForbidden):
		r.writeFailure(ctx, w, http.StatusForbidden, codeForbidden, "you are not allowed to perform this action")
	case errors.Is(err, application.ErrNotFound):
		r.writeFailure(ctx, w, http.StatusNotFound, codeNotFound, "the requested resource was not found")
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "error", err, "error_kind", application.ErrorKind(err))
		r.writeFailure(ctx, w, http.StatusInternalServerError, codeInternal, "an internal error occurred")
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func validationMessage(vErr *application.ValidationError) string {
	switch vErr.Reason {
	case application.ReasonMissingField:
		return "required fields are missing"
	case application.ReasonInvalidSlot:
		return "the selected time is not a bookable slot"
	case application.ReasonInvalidTransition:
		return "the booking cannot change to the requested status"
	}
	return "the request contains invalid values"
}

func conflictMessage(cErr *application.ConflictError) string {
	if cErr.Reason == application.ConflictAlreadyExists {
		return "a record with the same identifier already exists"
	}
	return "this court is already booked for the selected time"
}

func statusCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return codeBadRequest
	case http.StatusUnauthorized:
		return codeUnauthenticated
	case http.StatusForbidden:
		return codeForbidden
	case http.StatusNotFound:
		return codeNotFound
	}
	return codeInternal
}
