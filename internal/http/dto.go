package http

import (
	"time"

	"github.com/example/facility-booking/internal/application"
	"github.com/example/facility-booking/internal/slots"
)

type bookingDTO struct {
	ID         string  `json:"id"`
	UserID     string  `json:"userId"`
	UserName   string  `json:"userName,omitempty"`
	PassportID string  `json:"passportId,omitempty"`
	CourtID    string  `json:"courtId"`
	CourtName  string  `json:"courtName,omitempty"`
	Date       string  `json:"date"`
	StartTime  string  `json:"startTime"`
	EndTime    string  `json:"endTime"`
	Status     string  `json:"status"`
	CreatedAt  string  `json:"createdAt"`
	UpdatedAt  string  `json:"updatedAt"`
	ReviewedAt *string `json:"reviewedAt,omitempty"`
}

func toBookingDTO(booking application.Booking) bookingDTO {
	dto := bookingDTO{
		ID:         booking.ID,
		UserID:     booking.UserID,
		UserName:   booking.UserName,
		PassportID: booking.PassportID,
		CourtID:    booking.CourtID,
		CourtName:  booking.CourtName,
		Date:       booking.Date,
		StartTime:  booking.Slot.Start.String(),
		EndTime:    booking.Slot.End.String(),
		Status:     string(booking.Status),
		CreatedAt:  formatTime(booking.CreatedAt),
		UpdatedAt:  formatTime(booking.UpdatedAt),
	}
	if booking.ReviewedAt != nil {
		reviewed := formatTime(*booking.ReviewedAt)
		dto.ReviewedAt = &reviewed
	}
	return dto
}

func toBookingDTOs(bookings []application.Booking) []bookingDTO {
	out := make([]bookingDTO, 0, len(bookings))
	for _, booking := range bookings {
		out = append(out, toBookingDTO(booking))
	}
	return out
}

type createBookingRequest struct {
	CourtID   string `json:"courtId"`
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	UserID    string `json:"userId"`
}

func (r createBookingRequest) toInput() application.BookingInput {
	return application.BookingInput{
		CourtID:   r.CourtID,
		Date:      r.Date,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		UserID:    r.UserID,
	}
}

type updateBookingRequest struct {
	CourtID   *string `json:"courtId"`
	Date      *string `json:"date"`
	StartTime *string `json:"startTime"`
	EndTime   *string `json:"endTime"`
	Status    *string `json:"status"`
}

func (r updateBookingRequest) toPatch() application.BookingPatch {
	return application.BookingPatch{
		CourtID:   r.CourtID,
		Date:      r.Date,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Status:    r.Status,
	}
}

type courtDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type slotDTO struct {
	ID        string `json:"id,omitempty"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

func toSlotDTOs(catalog []slots.Slot) []slotDTO {
	out := make([]slotDTO, 0, len(catalog))
	for _, slot := range catalog {
		out = append(out, slotDTO{ID: slot.ID, StartTime: slot.Start.String(), EndTime: slot.End.String()})
	}
	return out
}

type cellDTO struct {
	CourtID      string  `json:"courtId"`
	CourtName    string  `json:"courtName"`
	StartTime    string  `json:"startTime"`
	EndTime      string  `json:"endTime"`
	IsAvailable  bool    `json:"isAvailable"`
	OccupantName *string `json:"occupantName"`
	BookingID    *string `json:"bookingId"`
}

type summaryDTO struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	Booked    int `json:"booked"`
}

type availabilityDTO struct {
	Date    string     `json:"date"`
	Slots   []cellDTO  `json:"slots"`
	Summary summaryDTO `json:"summary"`
}

func toAvailabilityDTO(result application.Availability) availabilityDTO {
	cells := make([]cellDTO, 0, len(result.Cells))
	for _, cell := range result.Cells {
		cells = append(cells, cellDTO{
			CourtID:      cell.CourtID,
			CourtName:    cell.CourtName,
			StartTime:    cell.Slot.Start.String(),
			EndTime:      cell.Slot.End.String(),
			IsAvailable:  cell.Available,
			OccupantName: cell.OccupantName,
			BookingID:    cell.BookingID,
		})
	}
	return availabilityDTO{
		Date:  result.Date,
		Slots: cells,
		Summary: summaryDTO{
			Total:     result.Summary.Total,
			Available: result.Summary.Available,
			Booked:    result.Summary.Booked,
		},
	}
}

type userDTO struct {
	ID             string `json:"id"`
	PassportID     string `json:"passportId"`
	Name           string `json:"name"`
	IsAdmin        bool   `json:"isAdmin"`
	FaceRegistered bool   `json:"faceRegistered"`
	CreatedAt      string `json:"createdAt"`
}

func toUserDTO(user application.User) userDTO {
	return userDTO{
		ID:             user.ID,
		PassportID:     user.PassportID,
		Name:           user.DisplayName,
		IsAdmin:        user.IsAdmin,
		FaceRegistered: user.FaceRegistered,
		CreatedAt:      formatTime(user.CreatedAt),
	}
}

type registerRequest struct {
	PassportID string `json:"passportId"`
	Name       string `json:"name"`
	Password   string `json:"password"`
}

type loginRequest struct {
	PassportID string `json:"passportId"`
	Password   string `json:"password"`
}

type sessionDTO struct {
	Token     string  `json:"token"`
	ExpiresAt string  `json:"expiresAt"`
	User      userDTO `json:"user"`
}

type faceRegistrationRequest struct {
	ImageData string `json:"imageData"`
}

type statsDTO struct {
	TotalUsers        int `json:"totalUsers"`
	TotalBookings     int `json:"totalBookings"`
	BookingsToday     int `json:"bookingsToday"`
	BookingsThisMonth int `json:"bookingsThisMonth"`
}

type bookingStatsDTO struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
	Rejected  int `json:"rejected"`
}

type dailyCountDTO struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type courtUsageDTO struct {
	CourtID   string `json:"courtId"`
	CourtName string `json:"courtName"`
	Bookings  int    `json:"bookings"`
}

type userStatsDTO struct {
	TotalUsers        int `json:"totalUsers"`
	NewUsersThisMonth int `json:"newUsersThisMonth"`
	ActiveUsers       int `json:"activeUsers"`
}

type reportDTO struct {
	Days          int             `json:"days"`
	GeneratedAt   string          `json:"generatedAt"`
	BookingStats  bookingStatsDTO `json:"bookingStats"`
	DailyBookings []dailyCountDTO `json:"dailyBookings"`
	CourtStats    []courtUsageDTO `json:"courtStats"`
	UserStats     userStatsDTO    `json:"userStats"`
}

func toReportDTO(report application.Report) reportDTO {
	daily := make([]dailyCountDTO, 0, len(report.DailyBookings))
	for _, d := range report.DailyBookings {
		daily = append(daily, dailyCountDTO{Date: d.Date, Count: d.Count})
	}
	courts := make([]courtUsageDTO, 0, len(report.CourtStats))
	for _, c := range report.CourtStats {
		courts = append(courts, courtUsageDTO{CourtID: c.CourtID, CourtName: c.CourtName, Bookings: c.Bookings})
	}
	return reportDTO{
		Days:        report.Days,
		GeneratedAt: formatTime(report.GeneratedAt),
		BookingStats: bookingStatsDTO{
			Total:     report.BookingStats.Total,
			Active:    report.BookingStats.Active,
			Completed: report.BookingStats.Completed,
			Cancelled: report.BookingStats.Cancelled,
			Rejected:  report.BookingStats.Rejected,
		},
		DailyBookings: daily,
		CourtStats:    courts,
		UserStats: userStatsDTO{
			TotalUsers:        report.UserStats.TotalUsers,
			NewUsersThisMonth: report.UserStats.NewUsersThisMonth,
			ActiveUsers:       report.UserStats.ActiveUsers,
		},
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
