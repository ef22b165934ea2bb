// Package availability computes the per-court, per-slot occupancy grid for a day.
package availability

import (
	"time"

	"github.com/example/facility-booking/internal/slots"
)

// Court is a bookable resource as seen by the resolver.
type Court struct {
	ID   string
	Name string
}

// Occupancy is a booking that may hold a slot. Start and End must already be
// expressed in the facility location; only their hour and minute are compared.
type Occupancy struct {
	BookingID    string
	CourtID      string
	OccupantName string
	Start        time.Time
	End          time.Time
	// Released marks bookings that no longer hold their slot (cancelled or rejected).
	Released bool
}

// Cell is one (court, slot) entry of the grid.
type Cell struct {
	CourtID      string
	CourtName    string
	Slot         slots.Slot
	Available    bool
	OccupantName *string
	BookingID    *string
}

type cellKey struct {
	courtID string
	start   int
	end     int
}

func keyFor(courtID string, start, end slots.TimeOfDay) cellKey {
	const day = 24 * 60
	return cellKey{courtID: courtID, start: int(start) % day, end: int(end) % day}
}

// Resolve emits one cell per (slot, court) pair, slots in catalog order and
// courts in the given order within each slot. When several occupancies match
// the same pair the first one in the input wins.
func Resolve(courts []Court, catalog []slots.Slot, occupancies []Occupancy) []Cell {
	held := make(map[cellKey]Occupancy, len(occupancies))
	for _, occ := range occupancies {
		if occ.Released {
			continue
		}
		key := keyFor(occ.CourtID, slots.ClockOf(occ.Start), slots.ClockOf(occ.End))
		if _, taken := held[key]; taken {
			continue
		}
		held[key] = occ
	}

	cells := make([]Cell, 0, len(courts)*len(catalog))
	for _, slot := range catalog {
		for _, court := range courts {
			cell := Cell{
				CourtID:   court.ID,
				CourtName: court.Name,
				Slot:      slot,
				Available: true,
			}
			if occ, ok := held[keyFor(court.ID, slot.Start, slot.End)]; ok {
				name := occ.OccupantName
				id := occ.BookingID
				cell.Available = false
				cell.OccupantName = &name
				cell.BookingID = &id
			}
			cells = append(cells, cell)
		}
	}
	return cells
}

// FindConflict returns the first unreleased occupancy holding slot on courtID,
// ignoring the booking identified by excludeID.
func FindConflict(occupancies []Occupancy, courtID string, slot slots.Slot, excludeID string) (Occupancy, bool) {
	for _, occ := range occupancies {
		if occ.Released || occ.CourtID != courtID {
			continue
		}
		if excludeID != "" && occ.BookingID == excludeID {
			continue
		}
		if slot.Matches(occ.Start, occ.End) {
			return occ, true
		}
	}
	return Occupancy{}, false
}

// Summary counts free and held cells.
type Summary struct {
	Total     int
	Available int
	Booked    int
}

// Summarize aggregates a resolved grid.
func Summarize(cells []Cell) Summary {
	summary := Summary{Total: len(cells)}
	for _, cell := range cells {
		if cell.Available {
			summary.Available++
		} else {
			summary.Booked++
		}
	}
	return summary
}
