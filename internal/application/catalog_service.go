package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/facility-booking/internal/slots"
)

// DefaultCourtNames are seeded into an empty catalog.
var DefaultCourtNames = []string{"Court 1", "Court 2"}

// CatalogRepository captures the persistence operations for courts and the slot grid.
type CatalogRepository interface {
	ListCourts(ctx context.Context) ([]Court, error)
	GetCourt(ctx context.Context, id string) (Court, error)
	InsertCourts(ctx context.Context, courts []Court) (int, error)
	ListSlots(ctx context.Context) ([]slots.Slot, error)
	InsertSlots(ctx context.Context, catalog []slots.Slot) (int, error)
}

// SeedParams describes the catalog written by Seed. Empty fields fall back to
// DefaultCourtNames and slots.DefaultWindow.
type SeedParams struct {
	CourtNames []string
	Window     slots.Window
}

// SeedResult reports how many rows Seed added.
type SeedResult struct {
	CourtsAdded int
	SlotsAdded  int
}

// CatalogService serves the court list and the daily slot grid. Reads never
// write; Seed is the only mutating operation.
type CatalogService struct {
	catalog     CatalogRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewCatalogService constructs a catalog service with the provided dependencies.
func NewCatalogService(catalog CatalogRepository, idGenerator func() string, now func() time.Time) *CatalogService {
	return NewCatalogServiceWithLogger(catalog, idGenerator, now, nil)
}

// NewCatalogServiceWithLogger constructs a catalog service with a specified logger.
func NewCatalogServiceWithLogger(catalog CatalogRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *CatalogService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &CatalogService{catalog: catalog, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *CatalogService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CatalogService", operation, attrs...)
}

// ListSlots returns the slot catalog in chronological order. Repeated calls
// return the same sequence.
func (s *CatalogService) ListSlots(ctx context.Context) (catalog []slots.Slot, err error) {
	if s == nil {
		err = fmt.Errorf("CatalogService is nil")
		return
	}
	if s.catalog == nil {
		err = fmt.Errorf("catalog repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "ListSlots")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list slots", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(catalog)).DebugContext(ctx, "slots listed")
	}()

	catalog, err = s.catalog.ListSlots(ctx)
	if err != nil {
		err = toServiceError("list slots", err)
		return
	}
	slots.Sort(catalog)
	return
}

// ListCourts returns every court in display order.
func (s *CatalogService) ListCourts(ctx context.Context) (courts []Court, err error) {
	if s == nil {
		err = fmt.Errorf("CatalogService is nil")
		return
	}
	if s.catalog == nil {
		err = fmt.Errorf("catalog repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "ListCourts")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list courts", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(courts)).DebugContext(ctx, "courts listed")
	}()

	courts, err = s.catalog.ListCourts(ctx)
	if err != nil {
		err = toServiceError("list courts", err)
	}
	return
}

// Seed populates an empty catalog with courts and the generated slot grid.
// Courts are only written when none exist and slots only when the grid is
// empty, so running Seed again adds nothing.
func (s *CatalogService) Seed(ctx context.Context, params SeedParams) (result SeedResult, err error) {
	if s == nil {
		err = fmt.Errorf("CatalogService is nil")
		return
	}
	if s.catalog == nil {
		err = fmt.Errorf("catalog repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "Seed")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to seed catalog", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"courts_added", result.CourtsAdded,
			"slots_added", result.SlotsAdded,
		).InfoContext(ctx, "catalog seeded")
	}()

	names := normalizeCourtNames(params.CourtNames)
	if len(names) == 0 {
		names = DefaultCourtNames
	}
	window := params.Window
	if window == (slots.Window{}) {
		window = slots.DefaultWindow
	}

	var grid []slots.Slot
	grid, err = slots.Generate(window)
	if err != nil {
		err = newValidationError(ReasonInvalidValue, "window", err.Error())
		return
	}

	var existingCourts []Court
	existingCourts, err = s.catalog.ListCourts(ctx)
	if err != nil {
		err = toServiceError("list courts", err)
		return
	}
	if len(existingCourts) == 0 {
		now := s.now()
		courts := make([]Court, 0, len(names))
		for i, name := range names {
			courts = append(courts, Court{ID: s.idGenerator(), Name: name, Position: i, CreatedAt: now})
		}
		result.CourtsAdded, err = s.catalog.InsertCourts(ctx, courts)
		if err != nil {
			err = toServiceError("insert courts", err)
			return
		}
	}

	var existingSlots []slots.Slot
	existingSlots, err = s.catalog.ListSlots(ctx)
	if err != nil {
		err = toServiceError("list slots", err)
		return
	}
	if len(existingSlots) == 0 {
		for i := range grid {
			grid[i].ID = s.idGenerator()
		}
		result.SlotsAdded, err = s.catalog.InsertSlots(ctx, grid)
		if err != nil {
			err = toServiceError("insert slots", err)
			return
		}
	}
	return
}

func normalizeCourtNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
