package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/facility-booking/internal/application"
)

type userService interface {
	Register(ctx context.Context, params application.RegisterParams) (application.User, error)
	RegisterFace(ctx context.Context, principal application.Principal, imageData string) (application.User, error)
	Profile(ctx context.Context, principal application.Principal) (application.User, error)
	GrantAdmin(ctx context.Context, principal application.Principal, passportID string) (application.User, error)
	ListUsers(ctx context.Context, principal application.Principal) ([]application.User, error)
}

type UserHandler struct {
	service   userService
	responder responder
	logger    *slog.Logger
}

func NewUserHandler(service userService, logger *slog.Logger) *UserHandler {
	base := defaultLogger(logger)
	return &UserHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *UserHandler) log(r *http.Request, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(r.Context(), h.logger, "UserHandler", operation, attrs...)
}

// Register handles POST /register.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r, "Register", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode registration", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	user, err := h.service.Register(r.Context(), application.RegisterParams{
		PassportID:  req.PassportID,
		DisplayName: req.Name,
		Password:    req.Password,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r, "Register", "user_id", user.ID).InfoContext(r.Context(), "user registered")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, envelope{
		Success: true,
		Data:    toUserDTO(user),
		Message: "registration successful",
	})
}

// Me handles GET /me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	user, err := h.service.Profile(r.Context(), principalOf(r))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeData(r.Context(), w, http.StatusOK, toUserDTO(user))
}

// RegisterFace handles POST /face-registration.
func (h *UserHandler) RegisterFace(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req faceRegistrationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r, "RegisterFace", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode face registration", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	user, err := h.service.RegisterFace(r.Context(), principalOf(r), req.ImageData)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, envelope{
		Success: true,
		Data:    toUserDTO(user),
		Message: "face registered",
	})
}

// List handles GET /admin/users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	users, err := h.service.ListUsers(r.Context(), principalOf(r))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	out := make([]userDTO, 0, len(users))
	for _, user := range users {
		out = append(out, toUserDTO(user))
	}
	h.responder.writeData(r.Context(), w, http.StatusOK, out)
}

// GrantAdmin handles POST /admin/users/{passportId}/admin.
func (h *UserHandler) GrantAdmin(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	passportID := r.PathValue("passportId")
	user, err := h.service.GrantAdmin(r.Context(), principalOf(r), passportID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r, "GrantAdmin", "user_id", user.ID).InfoContext(r.Context(), "admin role granted")
	h.responder.writeData(r.Context(), w, http.StatusOK, toUserDTO(user))
}
