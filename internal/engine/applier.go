package engine

import (
	"math/rand"
	"sort"
	"strings"

	"github.com/mkarlsen/seatplanner/internal/model"
)

// Apply runs exactly one operation against a plan document and returns the
// updated document or a Rejection.  The input document is never touched:
// the operation works on a deep copy, so a rejection leaves the caller's
// copy byte-for-byte intact.  The plan ID only feeds the deterministic
// seed for random placement.
func Apply(planID uint64, doc *model.PlanDocument, op Operation) (*model.PlanDocument, error) {
	out := doc.Clone()
	var err error
	switch o := op.(type) {
	case *AddTable:
		err = applyAddTable(&out.PlanContent, o)
	case *UpdateTable:
		err = applyUpdateTable(&out.PlanContent, o)
	case *RemoveTable:
		err = applyRemoveTable(&out.PlanContent, o)
	case *AddGuest:
		err = applyAddGuest(&out.PlanContent, o)
	case *UpdateGuest:
		err = applyUpdateGuest(&out.PlanContent, o)
	case *RemoveGuest:
		err = applyRemoveGuest(&out.PlanContent, o)
	case *AssignGuestSeat:
		err = applyAssignGuestSeat(planID, &out.PlanContent, o)
	case *SwapSeats:
		err = applySwapSeats(&out.PlanContent, o)
	case *MoveGuestTable:
		err = applyMoveGuestTable(&out.PlanContent, o)
	case *ChangeSeatOrder:
		err = applyChangeSeatOrder(&out.PlanContent, o)
	default:
		err = Validationf("unsupported operation type %T", op)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func applyAddTable(p *model.PlanContent, o *AddTable) error {
	if o.Capacity <= 0 {
		return Validationf("table capacity must be positive, got %d", o.Capacity)
	}
	if !model.ValidShape(o.Shape) {
		return Validationf("invalid table shape %q", o.Shape)
	}
	start := o.StartIndex
	if start == 0 {
		start = 1
	}
	if start < 1 {
		return Validationf("start_index must be >= 1, got %d", start)
	}
	head := o.HeadSeat
	if head == 0 {
		head = 1
	}
	if head < 1 || head > o.Capacity {
		return Validationf("head_seat %d outside [1, %d]", head, o.Capacity)
	}
	id := o.TableID
	if id == 0 {
		id = nextTableID(p)
	} else if p.TableByID(id) != nil {
		return Validationf("table %d already exists", id)
	}
	dir := o.Direction
	if dir == "" {
		dir = "clockwise"
	}
	p.Tables = append(p.Tables, model.Table{
		ID:         id,
		Shape:      o.Shape,
		Capacity:   o.Capacity,
		Label:      o.Label,
		StartIndex: start,
		HeadSeat:   head,
		Direction:  dir,
		Seats:      []model.SeatAssignment{},
	})
	return nil
}

func applyUpdateTable(p *model.PlanContent, o *UpdateTable) error {
	t := p.TableByID(o.TableID)
	if t == nil {
		return TableNotFound(o.TableID)
	}
	if o.Shape != nil {
		if !model.ValidShape(*o.Shape) {
			return Validationf("invalid table shape %q", *o.Shape)
		}
		t.Shape = *o.Shape
	}
	if o.Label != nil {
		t.Label = *o.Label
	}
	newStart := t.StartIndex
	if o.StartIndex != nil {
		if *o.StartIndex < 1 {
			return Validationf("start_index must be >= 1, got %d", *o.StartIndex)
		}
		newStart = *o.StartIndex
	}
	newCap := t.Capacity
	if o.Capacity != nil {
		if *o.Capacity <= 0 {
			return Validationf("table capacity must be positive, got %d", *o.Capacity)
		}
		newCap = *o.Capacity
	}
	// Renumber first so guests keep their physical positions, then verify
	// the new range still covers every occupied seat.
	rebaseSeats(t, newStart)
	t.StartIndex = newStart
	if displaced := DisplacedGuests(t, newStart, newCap); len(displaced) > 0 {
		return CapacityOverflow(t.ID, displaced)
	}
	t.Capacity = newCap
	if o.HeadSeat != nil {
		if *o.HeadSeat < 1 || *o.HeadSeat > t.Capacity {
			return Validationf("head_seat %d outside [1, %d]", *o.HeadSeat, t.Capacity)
		}
		t.HeadSeat = *o.HeadSeat
	} else if t.HeadSeat > t.Capacity {
		// Shrinking below the head seat without repositioning it is a
		// caller mistake, not something to fix up silently.
		return Validationf("head_seat %d outside [1, %d]", t.HeadSeat, t.Capacity)
	}
	return nil
}

func applyRemoveTable(p *model.PlanContent, o *RemoveTable) error {
	for i := range p.Tables {
		if p.Tables[i].ID == o.TableID {
			p.Tables = append(p.Tables[:i], p.Tables[i+1:]...)
			return nil
		}
	}
	return TableNotFound(o.TableID)
}

func applyAddGuest(p *model.PlanContent, o *AddGuest) error {
	if strings.TrimSpace(o.Name) == "" {
		return Validationf("guest name is required")
	}
	id := o.GuestID
	if id == 0 {
		id = nextGuestID(p)
	} else if p.GuestByID(id) != nil {
		return Validationf("guest %d already exists", id)
	}
	p.Guests = append(p.Guests, model.Guest{
		ID:   id,
		Name: o.Name,
		Note: o.Note,
		Tag:  o.Tag,
		RSVP: o.RSVP,
	})
	return nil
}

func applyUpdateGuest(p *model.PlanContent, o *UpdateGuest) error {
	g := p.GuestByID(o.GuestID)
	if g == nil {
		return GuestNotFound(o.GuestID)
	}
	if o.Name != nil {
		if strings.TrimSpace(*o.Name) == "" {
			return Validationf("guest name is required")
		}
		g.Name = *o.Name
	}
	if o.Note != nil {
		g.Note = *o.Note
	}
	if o.Tag != nil {
		g.Tag = *o.Tag
	}
	if o.RSVP != nil {
		g.RSVP = *o.RSVP
	}
	return nil
}

func applyRemoveGuest(p *model.PlanContent, o *RemoveGuest) error {
	found := false
	for i := range p.Guests {
		if p.Guests[i].ID == o.GuestID {
			p.Guests = append(p.Guests[:i], p.Guests[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return GuestNotFound(o.GuestID)
	}
	unseatGuest(p, o.GuestID)
	return nil
}

func applyAssignGuestSeat(planID uint64, p *model.PlanContent, o *AssignGuestSeat) error {
	if p.GuestByID(o.GuestID) == nil {
		return GuestNotFound(o.GuestID)
	}
	t := p.TableByID(o.TableID)
	if t == nil {
		return TableNotFound(o.TableID)
	}
	var seatNo int
	switch {
	case o.SeatNo != nil:
		seatNo = *o.SeatNo
		lo, hi := t.SeatRange()
		if seatNo < lo || seatNo > hi {
			return SeatNotFound(t.ID, seatNo)
		}
		if occupant, taken := t.OccupantAt(seatNo); taken {
			if occupant == o.GuestID {
				return nil // already seated there
			}
			return Validationf("seat %d at table %d is already occupied", seatNo, t.ID)
		}
	case o.Random:
		rng := rand.New(rand.NewSource(SeedFor(planID, o.GuestID)))
		n, ok := RandomEmptySeat(t, rng)
		if !ok {
			return TableFull(t.ID)
		}
		seatNo = n
	default:
		n, ok := FirstEmptySeat(t)
		if !ok {
			return TableFull(t.ID)
		}
		seatNo = n
	}
	unseatGuest(p, o.GuestID)
	seatGuest(p.TableByID(o.TableID), seatNo, o.GuestID)
	return nil
}

func applySwapSeats(p *model.PlanContent, o *SwapSeats) error {
	ta := p.TableByID(o.TableA)
	if ta == nil {
		return TableNotFound(o.TableA)
	}
	tb := p.TableByID(o.TableB)
	if tb == nil {
		return TableNotFound(o.TableB)
	}
	if lo, hi := ta.SeatRange(); o.SeatA < lo || o.SeatA > hi {
		return SeatNotFound(ta.ID, o.SeatA)
	}
	if lo, hi := tb.SeatRange(); o.SeatB < lo || o.SeatB > hi {
		return SeatNotFound(tb.ID, o.SeatB)
	}
	if ta.ID == tb.ID && o.SeatA == o.SeatB {
		return nil
	}
	guestA, okA := ta.OccupantAt(o.SeatA)
	guestB, okB := tb.OccupantAt(o.SeatB)
	if !okA && !okB {
		return nil // both empty, nothing to exchange
	}
	if okA {
		removeSeat(ta, o.SeatA)
	}
	if okB {
		removeSeat(tb, o.SeatB)
	}
	if okA {
		seatGuest(tb, o.SeatB, guestA)
	}
	if okB {
		seatGuest(ta, o.SeatA, guestB)
	}
	return nil
}

func applyMoveGuestTable(p *model.PlanContent, o *MoveGuestTable) error {
	if p.GuestByID(o.GuestID) == nil {
		return GuestNotFound(o.GuestID)
	}
	t := p.TableByID(o.ToTableID)
	if t == nil {
		return TableNotFound(o.ToTableID)
	}
	var seatNo int
	if o.SeatNo != nil {
		seatNo = *o.SeatNo
		lo, hi := t.SeatRange()
		if seatNo < lo || seatNo > hi {
			return SeatNotFound(t.ID, seatNo)
		}
		if occupant, taken := t.OccupantAt(seatNo); taken {
			if occupant == o.GuestID {
				return nil
			}
			return Validationf("seat %d at table %d is already occupied", seatNo, t.ID)
		}
	} else {
		n, ok := FirstEmptySeat(t)
		if !ok {
			return TableFull(t.ID)
		}
		seatNo = n
	}
	unseatGuest(p, o.GuestID)
	seatGuest(p.TableByID(o.ToTableID), seatNo, o.GuestID)
	return nil
}

func applyChangeSeatOrder(p *model.PlanContent, o *ChangeSeatOrder) error {
	t := p.TableByID(o.TableID)
	if t == nil {
		return TableNotFound(o.TableID)
	}
	if o.StartIndex != nil {
		if *o.StartIndex < 1 {
			return Validationf("start_index must be >= 1, got %d", *o.StartIndex)
		}
		rebaseSeats(t, *o.StartIndex)
		t.StartIndex = *o.StartIndex
	}
	if o.HeadSeat != nil {
		if *o.HeadSeat < 1 || *o.HeadSeat > t.Capacity {
			return Validationf("head_seat %d outside [1, %d]", *o.HeadSeat, t.Capacity)
		}
		t.HeadSeat = *o.HeadSeat
	}
	if o.Direction != nil {
		// Reserved field: stored verbatim so it survives round-trips even
		// though only clockwise numbering is implemented.
		t.Direction = *o.Direction
	}
	return nil
}

// nextTableID returns the lowest unused table ID above the current maximum.
func nextTableID(p *model.PlanContent) uint64 {
	var max uint64
	for _, t := range p.Tables {
		if t.ID > max {
			max = t.ID
		}
	}
	return max + 1
}

func nextGuestID(p *model.PlanContent) uint64 {
	var max uint64
	for _, g := range p.Guests {
		if g.ID > max {
			max = g.ID
		}
	}
	return max + 1
}

// unseatGuest removes any seat record referencing the guest, across all
// tables.  The document invariant allows at most one such record.
func unseatGuest(p *model.PlanContent, guestID uint64) {
	for ti := range p.Tables {
		t := &p.Tables[ti]
		for si := range t.Seats {
			if t.Seats[si].GuestID == guestID {
				t.Seats = append(t.Seats[:si], t.Seats[si+1:]...)
				return
			}
		}
	}
}

func removeSeat(t *model.Table, seatNo int) {
	for i := range t.Seats {
		if t.Seats[i].SeatNo == seatNo {
			t.Seats = append(t.Seats[:i], t.Seats[i+1:]...)
			return
		}
	}
}

// seatGuest inserts a seat record keeping the slice in canonical order.
func seatGuest(t *model.Table, seatNo int, guestID uint64) {
	t.Seats = append(t.Seats, model.SeatAssignment{SeatNo: seatNo, GuestID: guestID})
	sort.Slice(t.Seats, func(i, j int) bool { return t.Seats[i].SeatNo < t.Seats[j].SeatNo })
}
