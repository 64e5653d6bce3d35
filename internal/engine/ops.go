package engine

import "encoding/json"

// OpKind names one of the supported edit operations.  The set is closed:
// the applier switches exhaustively over the concrete operation types and
// the decoder rejects unknown kinds instead of ignoring them.
type OpKind string

const (
	OpAddTable        OpKind = "add_table"
	OpUpdateTable     OpKind = "update_table"
	OpRemoveTable     OpKind = "remove_table"
	OpAddGuest        OpKind = "add_guest"
	OpUpdateGuest     OpKind = "update_guest"
	OpRemoveGuest     OpKind = "remove_guest"
	OpAssignGuestSeat OpKind = "assign_guest_seat"
	OpSwapSeats       OpKind = "swap_seats"
	OpMoveGuestTable  OpKind = "move_guest_table"
	OpChangeSeatOrder OpKind = "change_seat_order_settings"
)

// Operation is one tagged edit against a plan document.  Implementations
// are plain data; all behavior lives in the applier.
type Operation interface {
	Kind() OpKind
}

// AddTable creates a new table.  TableID may be zero to let the engine
// assign the next free ID.  StartIndex defaults to 1 and HeadSeat to 1
// when omitted.
type AddTable struct {
	TableID    uint64 `json:"table_id,omitempty"`
	Shape      string `json:"shape"`
	Capacity   int    `json:"capacity"`
	Label      string `json:"label,omitempty"`
	StartIndex int    `json:"start_index,omitempty"`
	HeadSeat   int    `json:"head_seat,omitempty"`
	Direction  string `json:"direction,omitempty"`
}

func (AddTable) Kind() OpKind { return OpAddTable }

// UpdateTable patches any subset of a table's attributes.  Nil fields are
// left unchanged.  Shrinking capacity (or raising start_index) below the
// current occupancy fails with capacity_overflow rather than truncating.
type UpdateTable struct {
	TableID    uint64  `json:"table_id"`
	Shape      *string `json:"shape,omitempty"`
	Capacity   *int    `json:"capacity,omitempty"`
	Label      *string `json:"label,omitempty"`
	StartIndex *int    `json:"start_index,omitempty"`
	HeadSeat   *int    `json:"head_seat,omitempty"`
}

func (UpdateTable) Kind() OpKind { return OpUpdateTable }

// RemoveTable deletes a table.  Guests seated there become unseated but
// remain on the guest list.
type RemoveTable struct {
	TableID uint64 `json:"table_id"`
}

func (RemoveTable) Kind() OpKind { return OpRemoveTable }

// AddGuest adds a guest to the plan.  GuestID may be zero for
// server-assigned IDs.  Name is required.
type AddGuest struct {
	GuestID uint64 `json:"guest_id,omitempty"`
	Name    string `json:"name"`
	Note    string `json:"note,omitempty"`
	Tag     string `json:"tag,omitempty"`
	RSVP    string `json:"rsvp,omitempty"`
}

func (AddGuest) Kind() OpKind { return OpAddGuest }

// UpdateGuest patches any subset of a guest's attributes.  A patched name
// must be non-empty.
type UpdateGuest struct {
	GuestID uint64  `json:"guest_id"`
	Name    *string `json:"name,omitempty"`
	Note    *string `json:"note,omitempty"`
	Tag     *string `json:"tag,omitempty"`
	RSVP    *string `json:"rsvp,omitempty"`
}

func (UpdateGuest) Kind() OpKind { return OpUpdateGuest }

// RemoveGuest deletes a guest and any seat assignment referencing it.
// Removing the same guest twice within one batch fails the batch: the
// second lookup is a guest_not_found, consistent with all-or-nothing
// semantics.
type RemoveGuest struct {
	GuestID uint64 `json:"guest_id"`
}

func (RemoveGuest) Kind() OpKind { return OpRemoveGuest }

// AssignGuestSeat seats a guest at a table.  With SeatNo set, that exact
// seat is used.  With Random set, a uniformly random empty seat is chosen
// (deterministically seeded from plan and guest IDs so tests can
// reproduce draws).  Otherwise the first empty seat in canonical order is
// used.  A guest already seated elsewhere is moved, never duplicated.
type AssignGuestSeat struct {
	TableID uint64 `json:"table_id"`
	GuestID uint64 `json:"guest_id"`
	SeatNo  *int   `json:"seat_no,omitempty"`
	Random  bool   `json:"random,omitempty"`
}

func (AssignGuestSeat) Kind() OpKind { return OpAssignGuestSeat }

// SwapSeats exchanges the occupants of two seats, possibly at different
// tables.  When one side is empty the swap degenerates to a move.  Both
// seats must exist in their tables' valid ranges.
type SwapSeats struct {
	TableA uint64 `json:"table_a"`
	SeatA  int    `json:"seat_a"`
	TableB uint64 `json:"table_b"`
	SeatB  int    `json:"seat_b"`
}

func (SwapSeats) Kind() OpKind { return OpSwapSeats }

// MoveGuestTable relocates a guest to another table, either to an explicit
// empty seat or to the first empty seat in canonical order.
type MoveGuestTable struct {
	GuestID   uint64 `json:"guest_id"`
	ToTableID uint64 `json:"to_table_id"`
	SeatNo    *int   `json:"seat_no,omitempty"`
}

func (MoveGuestTable) Kind() OpKind { return OpMoveGuestTable }

// ChangeSeatOrder updates a table's numbering metadata without moving any
// guest: seat records are rebased so every guest keeps their physical
// seat under the new numbering.  Direction is reserved for future
// numbering schemes and round-trips unchanged.
type ChangeSeatOrder struct {
	TableID    uint64  `json:"table_id"`
	StartIndex *int    `json:"start_index,omitempty"`
	HeadSeat   *int    `json:"head_seat,omitempty"`
	Direction  *string `json:"direction,omitempty"`
}

func (ChangeSeatOrder) Kind() OpKind { return OpChangeSeatOrder }

// opEnvelope is the wire form of one operation: the discriminator plus the
// kind-specific fields at the same level.
type opEnvelope struct {
	Op OpKind `json:"op"`
}

// DecodeOperation parses one `{op, ...fields}` JSON object into its typed
// operation.  Unknown kinds are a validation failure, never silently
// dropped.
func DecodeOperation(raw json.RawMessage) (Operation, error) {
	var env opEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, Validationf("malformed operation: %v", err)
	}
	var op Operation
	switch env.Op {
	case OpAddTable:
		op = &AddTable{}
	case OpUpdateTable:
		op = &UpdateTable{}
	case OpRemoveTable:
		op = &RemoveTable{}
	case OpAddGuest:
		op = &AddGuest{}
	case OpUpdateGuest:
		op = &UpdateGuest{}
	case OpRemoveGuest:
		op = &RemoveGuest{}
	case OpAssignGuestSeat:
		op = &AssignGuestSeat{}
	case OpSwapSeats:
		op = &SwapSeats{}
	case OpMoveGuestTable:
		op = &MoveGuestTable{}
	case OpChangeSeatOrder:
		op = &ChangeSeatOrder{}
	case "":
		return nil, Validationf("operation is missing the op field")
	default:
		return nil, Validationf("unknown operation kind %q", env.Op)
	}
	if err := json.Unmarshal(raw, op); err != nil {
		return nil, Validationf("malformed %s operation: %v", env.Op, err)
	}
	return op, nil
}

// DecodeOperations parses an ordered list of wire operations.  The first
// malformed entry fails the whole list with its index recorded.
func DecodeOperations(raws []json.RawMessage) ([]Operation, error) {
	ops := make([]Operation, 0, len(raws))
	for i, raw := range raws {
		op, err := DecodeOperation(raw)
		if err != nil {
			if r, ok := AsRejection(err); ok {
				r.OpIndex = i
			}
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}
