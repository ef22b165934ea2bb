package application

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"reflect"
	"testing"
	"time"
)

// reportRepoStub answers report queries from canned values and records arguments.
type reportRepoStub struct {
	users        int
	newUsers     int
	activeUsers  int
	byStatus     map[BookingStatus]int
	total        int
	between      map[string]int
	created      []time.Time
	courts       []CourtUsage
	err          error
	usersAfter   []*time.Time
	bookingQuery []BookingQuery
}

func (r *reportRepoStub) CountUsers(ctx context.Context, createdAfter *time.Time) (int, error) {
	r.usersAfter = append(r.usersAfter, createdAfter)
	if r.err != nil {
		return 0, r.err
	}
	if createdAfter != nil {
		return r.newUsers, nil
	}
	return r.users, nil
}

func (r *reportRepoStub) CountActiveUsers(ctx context.Context, since time.Time) (int, error) {
	return r.activeUsers, r.err
}

func (r *reportRepoStub) CountBookings(ctx context.Context, query BookingQuery) (int, error) {
	r.bookingQuery = append(r.bookingQuery, query)
	if r.err != nil {
		return 0, r.err
	}
	if len(query.Statuses) == 1 {
		return r.byStatus[query.Statuses[0]], nil
	}
	return r.total, nil
}

func (r *reportRepoStub) CountBookingsBetween(ctx context.Context, fromDate, toDate string) (int, error) {
	return r.between[fromDate+".."+toDate], r.err
}

func (r *reportRepoStub) BookingCreationTimes(ctx context.Context, since time.Time) ([]time.Time, error) {
	return r.created, r.err
}

func (r *reportRepoStub) CourtUsage(ctx context.Context, since time.Time) ([]CourtUsage, error) {
	return r.courts, r.err
}

func TestReportService_Stats(t *testing.T) {
	t.Parallel()

	// 23:30 UTC on 29 Feb is already 1 March in the facility zone.
	now := time.Date(2024, 2, 29, 23, 30, 0, 0, time.UTC)
	repo := &reportRepoStub{
		users: 7,
		total: 40,
		between: map[string]int{
			"2024-03-01..2024-03-01": 3,
			"2024-03-01..2024-03-31": 12,
		},
	}
	svc := NewReportServiceWithLogger(repo, fixedNow(now), ict, discardLogger())

	if _, err := svc.Stats(context.Background(), owner); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	stats, err := svc.Stats(context.Background(), admin)
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	want := Stats{TotalUsers: 7, TotalBookings: 40, BookingsToday: 3, BookingsThisMonth: 12}
	if stats != want {
		t.Fatalf("expected %+v, got %+v", want, stats)
	}
}

func TestReportService_Report(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	repo := &reportRepoStub{
		users:       10,
		newUsers:    2,
		activeUsers: 4,
		total:       6,
		byStatus:    map[BookingStatus]int{StatusActive: 3, StatusCompleted: 1, StatusCancelled: 1, StatusRejected: 1},
		created: []time.Time{
			time.Date(2024, 6, 8, 18, 0, 0, 0, time.UTC), // 9 June in ICT
			time.Date(2024, 6, 9, 1, 0, 0, 0, time.UTC),
			time.Date(2024, 6, 7, 3, 0, 0, 0, time.UTC),
		},
		courts: []CourtUsage{{CourtID: "court-1", CourtName: "Court 1", Bookings: 6}},
	}
	svc := NewReportServiceWithLogger(repo, fixedNow(now), ict, discardLogger())

	report, err := svc.Report(context.Background(), admin, 0)
	if err != nil {
		t.Fatalf("Report returned error: %v", err)
	}
	if report.Days != DefaultReportDays {
		t.Fatalf("expected default days, got %d", report.Days)
	}
	wantStats := BookingStats{Total: 6, Active: 3, Completed: 1, Cancelled: 1, Rejected: 1}
	if report.BookingStats != wantStats {
		t.Fatalf("expected %+v, got %+v", wantStats, report.BookingStats)
	}
	wantDaily := []DailyCount{{Date: "2024-06-07", Count: 1}, {Date: "2024-06-09", Count: 2}}
	if !reflect.DeepEqual(report.DailyBookings, wantDaily) {
		t.Fatalf("expected %v, got %v", wantDaily, report.DailyBookings)
	}
	if report.UserStats != (UserStats{TotalUsers: 10, NewUsersThisMonth: 2, ActiveUsers: 4}) {
		t.Fatalf("unexpected user stats %+v", report.UserStats)
	}

	since := now.AddDate(0, 0, -DefaultReportDays)
	for _, q := range repo.bookingQuery {
		if q.CreatedAfter == nil || !q.CreatedAfter.Equal(since) {
			t.Fatalf("expected counts since %v, got %+v", since, q)
		}
	}
	monthStart := time.Date(2024, 6, 1, 0, 0, 0, 0, ict)
	if last := repo.usersAfter[len(repo.usersAfter)-1]; last == nil || !last.Equal(monthStart) {
		t.Fatalf("expected new users counted from %v, got %v", monthStart, last)
	}

	if _, err := svc.Report(context.Background(), admin, MaxReportDays+1); err == nil {
		t.Fatalf("expected validation error for an oversized period")
	}
}

func TestWriteReportCSV(t *testing.T) {
	t.Parallel()

	report := Report{
		Days:          7,
		GeneratedAt:   time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC),
		BookingStats:  BookingStats{Total: 2, Active: 2},
		DailyBookings: []DailyCount{{Date: "2024-06-09", Count: 2}},
		CourtStats:    []CourtUsage{{CourtName: "Court, North", Bookings: 2}},
		UserStats:     UserStats{TotalUsers: 1, ActiveUsers: 1},
	}

	var buf bytes.Buffer
	if err := WriteReportCSV(&buf, report); err != nil {
		t.Fatalf("WriteReportCSV returned error: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid csv: %v", err)
	}
	if !reflect.DeepEqual(rows[0], []string{"section", "label", "value"}) {
		t.Fatalf("unexpected header %v", rows[0])
	}
	found := false
	for _, row := range rows {
		if row[0] == "court" && row[1] == "Court, North" && row[2] == "2" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected court row with quoted name, got %v", rows)
	}
}
