package http

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/example/facility-booking/internal/application"
)

type reportService interface {
	Stats(ctx context.Context, principal application.Principal) (application.Stats, error)
	Report(ctx context.Context, principal application.Principal, days int) (application.Report, error)
}

type ReportHandler struct {
	service   reportService
	responder responder
	logger    *slog.Logger
}

func NewReportHandler(service reportService, logger *slog.Logger) *ReportHandler {
	base := defaultLogger(logger)
	return &ReportHandler{service: service, responder: newResponder(base), logger: base}
}

// Stats handles GET /admin/stats.
func (h *ReportHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	stats, err := h.service.Stats(r.Context(), principalOf(r))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeData(r.Context(), w, http.StatusOK, statsDTO{
		TotalUsers:        stats.TotalUsers,
		TotalBookings:     stats.TotalBookings,
		BookingsToday:     stats.BookingsToday,
		BookingsThisMonth: stats.BookingsThisMonth,
	})
}

// Report handles GET /admin/reports?days=N.
func (h *ReportHandler) Report(w http.ResponseWriter, r *http.Request) {
	report, ok := h.load(w, r)
	if !ok {
		return
	}
	h.responder.writeData(r.Context(), w, http.StatusOK, toReportDTO(report))
}

// ReportCSV handles GET /admin/reports.csv?days=N.
func (h *ReportHandler) ReportCSV(w http.ResponseWriter, r *http.Request) {
	report, ok := h.load(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := application.WriteReportCSV(&buf, report); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	filename := fmt.Sprintf("booking-report-%s.csv", report.GeneratedAt.Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		handlerLogger(r.Context(), h.logger, "ReportHandler", "ReportCSV").WarnContext(r.Context(), "failed to write csv", "error", err)
	}
}

func (h *ReportHandler) load(w http.ResponseWriter, r *http.Request) (application.Report, bool) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return application.Report{}, false
	}

	days := 0
	if value := queryValue(r, "days"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			h.responder.handleServiceError(r.Context(), w, &application.ValidationError{
				Reason:      application.ReasonInvalidValue,
				FieldErrors: map[string]string{"days": "days must be a whole number"},
			})
			return application.Report{}, false
		}
		days = parsed
	}

	report, err := h.service.Report(r.Context(), principalOf(r), days)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return application.Report{}, false
	}
	return report, true
}
