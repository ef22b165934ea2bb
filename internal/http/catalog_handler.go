package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/facility-booking/internal/application"
	"github.com/example/facility-booking/internal/slots"
)

type catalogService interface {
	ListCourts(ctx context.Context) ([]application.Court, error)
	ListSlots(ctx context.Context) ([]slots.Slot, error)
}

type availabilityService interface {
	Resolve(ctx context.Context, principal application.Principal, date string) (application.Availability, error)
}

// CatalogHandler serves the court list, the slot grid and the availability grid.
type CatalogHandler struct {
	catalog      catalogService
	availability availabilityService
	responder    responder
}

func NewCatalogHandler(catalog catalogService, availability availabilityService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, availability: availability, responder: newResponder(logger)}
}

// Courts handles GET /courts.
func (h *CatalogHandler) Courts(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.catalog == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	courts, err := h.catalog.ListCourts(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	out := make([]courtDTO, 0, len(courts))
	for _, court := range courts {
		out = append(out, courtDTO{ID: court.ID, Name: court.Name})
	}
	h.responder.writeData(r.Context(), w, http.StatusOK, out)
}

// Slots handles GET /slots.
func (h *CatalogHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.catalog == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	catalog, err := h.catalog.ListSlots(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeData(r.Context(), w, http.StatusOK, toSlotDTOs(catalog))
}

// Availability handles GET /availability?date=YYYY-MM-DD.
func (h *CatalogHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.availability == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	result, err := h.availability.Resolve(r.Context(), principalOf(r), queryValue(r, "date"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeData(r.Context(), w, http.StatusOK, toAvailabilityDTO(result))
}
