// Package slots models the daily booking grid: wall-clock times of day, the
// fixed-cadence slots generated over an operating window, and the calendar
// date helpers used to place a slot on a concrete day.
package slots

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

var (
	// ErrInvalidTimeOfDay is returned when a time of day cannot be parsed or is out of range.
	ErrInvalidTimeOfDay = errors.New("slots: invalid time of day")
	// ErrInvalidWindow is returned when an operating window cannot produce slots.
	ErrInvalidWindow = errors.New("slots: invalid operating window")
	// ErrInvalidDate is returned when a calendar date cannot be parsed.
	ErrInvalidDate = errors.New("slots: invalid date")
)

// TimeOfDay is a date independent wall-clock time stored as minutes after midnight.
// The value 24:00 is permitted so a window may close at midnight.
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from an hour and minute pair.
func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || minute < 0 || minute > 59 || hour > 24 || (hour == 24 && minute != 0) {
		return 0, fmt.Errorf("%w: %02d:%02d", ErrInvalidTimeOfDay, hour, minute)
	}
	return TimeOfDay(hour*60 + minute), nil
}

// MustTimeOfDay is like NewTimeOfDay but panics on invalid input. Intended for constants.
func MustTimeOfDay(hour, minute int) TimeOfDay {
	t, err := NewTimeOfDay(hour, minute)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseTimeOfDay parses "HH:MM" (a single digit hour is accepted).
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	value = strings.TrimSpace(value)
	hourPart, minutePart, ok := strings.Cut(value, ":")
	if !ok || len(minutePart) != 2 || hourPart == "" || len(hourPart) > 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, value)
	}
	hour, err := strconv.Atoi(hourPart)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, value)
	}
	minute, err := strconv.Atoi(minutePart)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, value)
	}
	return NewTimeOfDay(hour, minute)
}

// ClockOf extracts the hour and minute of t in t's own location. Seconds are dropped.
func ClockOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

// Hour returns the hour component.
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute component.
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// String formats the value as "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// On places the time of day on the calendar day of date, in date's location.
func (t TimeOfDay) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, date.Location()).Add(time.Duration(t) * time.Minute)
}

// Equal reports whether both values denote the same wall-clock minute. 24:00 and 00:00 are equal.
func (t TimeOfDay) Equal(other TimeOfDay) bool {
	return int(t)%minutesPerDay == int(other)%minutesPerDay
}

// Slot is one bookable window of the daily grid. Identity is the (Start, End) pair;
// ID is the catalog row identifier once persisted.
type Slot struct {
	ID    string
	Start TimeOfDay
	End   TimeOfDay
}

// Key renders the slot as "HH:MM-HH:MM".
func (s Slot) Key() string {
	return s.Start.String() + "-" + s.End.String()
}

// Duration returns the slot length.
func (s Slot) Duration() time.Duration {
	return time.Duration(s.End-s.Start) * time.Minute
}

// Matches reports whether the concrete timestamps fall on this slot, comparing
// hour and minute only so interval timestamps built on different base dates still match.
func (s Slot) Matches(start, end time.Time) bool {
	return s.Start.Equal(ClockOf(start)) && s.End.Equal(ClockOf(end))
}

// Interval returns the concrete start and end timestamps of the slot on date.
func (s Slot) Interval(date time.Time) (time.Time, time.Time) {
	return s.Start.On(date), s.End.On(date)
}

// Window describes the operating hours and cadence of the grid.
type Window struct {
	Opens  TimeOfDay
	Closes TimeOfDay
	Step   time.Duration
}

// DefaultWindow is 08:00 to 22:00 in 30 minute steps (28 slots).
var DefaultWindow = Window{
	Opens:  MustTimeOfDay(8, 0),
	Closes: MustTimeOfDay(22, 0),
	Step:   30 * time.Minute,
}

// Validate checks the window can be divided into whole steps.
func (w Window) Validate() error {
	if w.Step < time.Minute || w.Step%time.Minute != 0 {
		return fmt.Errorf("%w: step must be a whole number of minutes", ErrInvalidWindow)
	}
	if w.Closes <= w.Opens {
		return fmt.Errorf("%w: closes (%s) must be after opens (%s)", ErrInvalidWindow, w.Closes, w.Opens)
	}
	if w.Closes > minutesPerDay {
		return fmt.Errorf("%w: closes beyond midnight", ErrInvalidWindow)
	}
	step := int(w.Step / time.Minute)
	if int(w.Closes-w.Opens)%step != 0 {
		return fmt.Errorf("%w: %s-%s is not divisible into %d minute slots", ErrInvalidWindow, w.Opens, w.Closes, step)
	}
	return nil
}

// Generate enumerates the window's slots in chronological order. The result is
// deterministic; calling it twice yields equal slices.
func Generate(w Window) ([]Slot, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	step := TimeOfDay(w.Step / time.Minute)
	out := make([]Slot, 0, int(w.Closes-w.Opens)/int(step))
	for start := w.Opens; start < w.Closes; start += step {
		out = append(out, Slot{Start: start, End: start + step})
	}
	return out, nil
}

// Sort orders slots by start then end.
func Sort(catalog []Slot) {
	sort.SliceStable(catalog, func(i, j int) bool {
		if catalog[i].Start == catalog[j].Start {
			return catalog[i].End < catalog[j].End
		}
		return catalog[i].Start < catalog[j].Start
	})
}

// Find returns the catalog slot with the given start and end.
func Find(catalog []Slot, start, end TimeOfDay) (Slot, bool) {
	for _, slot := range catalog {
		if slot.Start.Equal(start) && slot.End.Equal(end) {
			return slot, true
		}
	}
	return Slot{}, false
}

// FindByStart returns the first catalog slot beginning at start.
func FindByStart(catalog []Slot, start TimeOfDay) (Slot, bool) {
	for _, slot := range catalog {
		if slot.Start.Equal(start) {
			return slot, true
		}
	}
	return Slot{}, false
}

// DateLayout is the wire and storage layout for calendar dates.
const DateLayout = "2006-01-02"

// ParseDate parses "YYYY-MM-DD" as local midnight in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	parsed, err := time.ParseInLocation(DateLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return parsed, nil
}

// Midnight truncates t to the start of its calendar day in loc.
func Midnight(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = t.Location()
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// DateKey formats t's calendar day in loc as "YYYY-MM-DD".
func DateKey(t time.Time, loc *time.Location) string {
	return Midnight(t, loc).Format(DateLayout)
}
