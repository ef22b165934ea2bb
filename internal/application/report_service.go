package application

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/example/facility-booking/internal/slots"
)

// DefaultReportDays is the report period used when none is requested.
const DefaultReportDays = 30

// MaxReportDays bounds the report period.
const MaxReportDays = 366

// ReportRepository answers the aggregate queries behind the admin dashboard.
type ReportRepository interface {
	CountUsers(ctx context.Context, createdAfter *time.Time) (int, error)
	CountActiveUsers(ctx context.Context, since time.Time) (int, error)
	CountBookings(ctx context.Context, query BookingQuery) (int, error)
	CountBookingsBetween(ctx context.Context, fromDate, toDate string) (int, error)
	BookingCreationTimes(ctx context.Context, since time.Time) ([]time.Time, error)
	CourtUsage(ctx context.Context, since time.Time) ([]CourtUsage, error)
}

// ReportService computes administrator statistics.
type ReportService struct {
	reports  ReportRepository
	now      func() time.Time
	location *time.Location
	logger   *slog.Logger
}

// NewReportService constructs a report service. A nil location means UTC.
func NewReportService(reports ReportRepository, now func() time.Time, location *time.Location) *ReportService {
	return NewReportServiceWithLogger(reports, now, location, nil)
}

// NewReportServiceWithLogger constructs a report service with a specified logger.
func NewReportServiceWithLogger(reports ReportRepository, now func() time.Time, location *time.Location, logger *slog.Logger) *ReportService {
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.UTC
	}
	return &ReportService{reports: reports, now: now, location: location, logger: defaultLogger(logger)}
}

func (s *ReportService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReportService", operation, attrs...)
}

func (s *ReportService) ready(principal Principal) error {
	if s == nil {
		return fmt.Errorf("ReportService is nil")
	}
	if s.reports == nil {
		return fmt.Errorf("report repository not configured")
	}
	if !principal.IsAdmin {
		return ErrForbidden
	}
	return nil
}

// Stats returns dashboard totals. Today and this month are counted by booking
// date in the facility time zone.
func (s *ReportService) Stats(ctx context.Context, principal Principal) (stats Stats, err error) {
	logger := slog.Default()
	if s != nil {
		logger = s.loggerWith(ctx, "Stats", "principal_id", principal.UserID)
	}
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to compute stats", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "stats computed")
	}()

	if err = s.ready(principal); err != nil {
		return
	}

	today := slots.Midnight(s.now(), s.location)
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, s.location)
	monthEnd := monthStart.AddDate(0, 1, -1)

	if stats.TotalUsers, err = s.reports.CountUsers(ctx, nil); err != nil {
		err = toServiceError("count users", err)
		return
	}
	if stats.TotalBookings, err = s.reports.CountBookings(ctx, BookingQuery{}); err != nil {
		err = toServiceError("count bookings", err)
		return
	}
	todayKey := today.Format(slots.DateLayout)
	if stats.BookingsToday, err = s.reports.CountBookingsBetween(ctx, todayKey, todayKey); err != nil {
		err = toServiceError("count bookings today", err)
		return
	}
	if stats.BookingsThisMonth, err = s.reports.CountBookingsBetween(ctx, monthStart.Format(slots.DateLayout), monthEnd.Format(slots.DateLayout)); err != nil {
		err = toServiceError("count bookings this month", err)
	}
	return
}

// Report aggregates bookings created during the trailing days. days <= 0
// selects DefaultReportDays.
func (s *ReportService) Report(ctx context.Context, principal Principal, days int) (report Report, err error) {
	logger := slog.Default()
	if s != nil {
		logger = s.loggerWith(ctx, "Report", "principal_id", principal.UserID, "days", days)
	}
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to build report", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("total_bookings", report.BookingStats.Total).InfoContext(ctx, "report built")
	}()

	if err = s.ready(principal); err != nil {
		return
	}
	if days <= 0 {
		days = DefaultReportDays
	}
	if days > MaxReportDays {
		err = newValidationError(ReasonInvalidValue, "days", fmt.Sprintf("days must be at most %d", MaxReportDays))
		return
	}

	now := s.now()
	since := now.AddDate(0, 0, -days)
	report = Report{Days: days, GeneratedAt: now}

	counts := []struct {
		target *int
		status BookingStatus
	}{
		{&report.BookingStats.Total, ""},
		{&report.BookingStats.Active, StatusActive},
		{&report.BookingStats.Completed, StatusCompleted},
		{&report.BookingStats.Cancelled, StatusCancelled},
		{&report.BookingStats.Rejected, StatusRejected},
	}
	for _, c := range counts {
		query := BookingQuery{CreatedAfter: &since}
		if c.status != "" {
			query.Statuses = []BookingStatus{c.status}
		}
		if *c.target, err = s.reports.CountBookings(ctx, query); err != nil {
			err = toServiceError("count bookings", err)
			return
		}
	}

	var created []time.Time
	created, err = s.reports.BookingCreationTimes(ctx, since)
	if err != nil {
		err = toServiceError("booking creation times", err)
		return
	}
	report.DailyBookings = dailyCounts(created, s.location)

	report.CourtStats, err = s.reports.CourtUsage(ctx, since)
	if err != nil {
		err = toServiceError("court usage", err)
		return
	}

	today := slots.Midnight(now, s.location)
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, s.location)
	if report.UserStats.TotalUsers, err = s.reports.CountUsers(ctx, nil); err != nil {
		err = toServiceError("count users", err)
		return
	}
	if report.UserStats.NewUsersThisMonth, err = s.reports.CountUsers(ctx, &monthStart); err != nil {
		err = toServiceError("count new users", err)
		return
	}
	if report.UserStats.ActiveUsers, err = s.reports.CountActiveUsers(ctx, since); err != nil {
		err = toServiceError("count active users", err)
	}
	return
}

// dailyCounts buckets creation instants by facility-local day, oldest first.
func dailyCounts(created []time.Time, loc *time.Location) []DailyCount {
	byDay := make(map[string]int)
	for _, at := range created {
		byDay[slots.DateKey(at, loc)]++
	}
	out := make([]DailyCount, 0, len(byDay))
	for date, count := range byDay {
		out = append(out, DailyCount{Date: date, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// WriteReportCSV renders report as section,label,value rows.
func WriteReportCSV(w io.Writer, report Report) error {
	cw := csv.NewWriter(w)
	itoa := strconv.Itoa

	rows := [][]string{
		{"section", "label", "value"},
		{"period", "days", itoa(report.Days)},
		{"period", "generated_at", report.GeneratedAt.UTC().Format(time.RFC3339)},
		{"bookings", "total", itoa(report.BookingStats.Total)},
		{"bookings", "active", itoa(report.BookingStats.Active)},
		{"bookings", "completed", itoa(report.BookingStats.Completed)},
		{"bookings", "cancelled", itoa(report.BookingStats.Cancelled)},
		{"bookings", "rejected", itoa(report.BookingStats.Rejected)},
	}
	for _, day := range report.DailyBookings {
		rows = append(rows, []string{"daily", day.Date, itoa(day.Count)})
	}
	for _, court := range report.CourtStats {
		rows = append(rows, []string{"court", court.CourtName, itoa(court.Bookings)})
	}
	rows = append(rows,
		[]string{"users", "total", itoa(report.UserStats.TotalUsers)},
		[]string{"users", "new_this_month", itoa(report.UserStats.NewUsersThisMonth)},
		[]string{"users", "active", itoa(report.UserStats.ActiveUsers)},
	)

	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write report csv: %w", err)
	}
	return nil
}
