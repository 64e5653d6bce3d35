package model

// Table shapes accepted by the engine.  The shape only affects rendering
// on the client; the engine validates the value and passes it through.
const (
	ShapeRound       = "round"
	ShapeRectangular = "rectangular"
	ShapeLong        = "long"
)

// ValidShape reports whether s is one of the accepted table shapes.
func ValidShape(s string) bool {
	switch s {
	case ShapeRound, ShapeRectangular, ShapeLong:
		return true
	}
	return false
}

// SeatAssignment records that a guest occupies one numbered seat at a
// table.  Only occupied seats are stored; empty seats are implied by the
// table's seat number range.
type SeatAssignment struct {
	SeatNo  int    `json:"seat_no"`  // number within [start_index, start_index+capacity-1]
	GuestID uint64 `json:"guest_id"` // must reference an existing guest
}

// Table describes one table in a seating plan.
//
// Fields:
//  ID         – unique within the plan; caller- or server-assigned.
//  Shape      – round, rectangular or long.
//  Capacity   – number of seats, always > 0.
//  Label      – free text shown on the chart.
//  StartIndex – first seat number, >= 1.
//  HeadSeat   – ordinal position of the ceremonially distinguished seat in
//               the canonical ordering, within [1, Capacity].
//  Direction  – seat numbering direction for exports.  Only "clockwise" is
//               implemented today; the value round-trips unchanged so other
//               directions can be added without a schema change.
//  Seats      – occupied seats only, one record per seated guest.
type Table struct {
	ID         uint64           `json:"id"`
	Shape      string           `json:"shape"`
	Capacity   int              `json:"capacity"`
	Label      string           `json:"label"`
	StartIndex int              `json:"start_index"`
	HeadSeat   int              `json:"head_seat"`
	Direction  string           `json:"direction,omitempty"`
	Seats      []SeatAssignment `json:"seats"`
}

// Clone returns a copy of the table with its own seat slice.
func (t Table) Clone() Table {
	out := t
	out.Seats = make([]SeatAssignment, len(t.Seats))
	copy(out.Seats, t.Seats)
	return out
}

// SeatRange returns the inclusive range of valid seat numbers.
func (t *Table) SeatRange() (lo, hi int) {
	return t.StartIndex, t.StartIndex + t.Capacity - 1
}

// OccupantAt returns the guest seated at seatNo and true, or zero and
// false when the seat is empty.
func (t *Table) OccupantAt(seatNo int) (uint64, bool) {
	for _, s := range t.Seats {
		if s.SeatNo == seatNo {
			return s.GuestID, true
		}
	}
	return 0, false
}
