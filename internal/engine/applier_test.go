package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarlsen/seatplanner/internal/model"
)

// testDoc builds a small plan: table 1 (capacity 4, guests 11 and 12 in
// seats 1 and 2), table 2 (capacity 2, empty), guests 11, 12 and 13
// (unseated).
func testDoc() *model.PlanDocument {
	return &model.PlanDocument{
		PlanContent: model.PlanContent{
			Tables: []model.Table{
				{
					ID: 1, Shape: model.ShapeRound, Capacity: 4, Label: "family",
					StartIndex: 1, HeadSeat: 1, Direction: "clockwise",
					Seats: []model.SeatAssignment{
						{SeatNo: 1, GuestID: 11},
						{SeatNo: 2, GuestID: 12},
					},
				},
				{
					ID: 2, Shape: model.ShapeLong, Capacity: 2, Label: "kids",
					StartIndex: 1, HeadSeat: 1, Direction: "clockwise",
					Seats: []model.SeatAssignment{},
				},
			},
			Guests: []model.Guest{
				{ID: 11, Name: "Ann"},
				{ID: 12, Name: "Ben"},
				{ID: 13, Name: "Cleo"},
			},
			Settings: map[string]string{"palette": "pastel"},
		},
		Version: 3,
	}
}

func kindOf(t *testing.T, err error) RejectionKind {
	t.Helper()
	r, ok := AsRejection(err)
	require.True(t, ok, "expected a rejection, got %v", err)
	return r.Kind
}

// checkInvariants asserts the document-wide seat invariants: unique seat
// numbers per table, every seat within range, every seated guest exists
// and occupies at most one seat in the whole plan.
func checkInvariants(t *testing.T, p *model.PlanContent) {
	t.Helper()
	seated := make(map[uint64]string)
	for _, tbl := range p.Tables {
		lo, hi := tbl.SeatRange()
		seen := make(map[int]bool)
		for _, s := range tbl.Seats {
			assert.False(t, seen[s.SeatNo], "duplicate seat %d at table %d", s.SeatNo, tbl.ID)
			seen[s.SeatNo] = true
			assert.GreaterOrEqual(t, s.SeatNo, lo)
			assert.LessOrEqual(t, s.SeatNo, hi)
			require.NotNil(t, p.GuestByID(s.GuestID), "seat references missing guest %d", s.GuestID)
			prev, dup := seated[s.GuestID]
			assert.False(t, dup, "guest %d seated twice: %s and table %d", s.GuestID, prev, tbl.ID)
			seated[s.GuestID] = fmt.Sprintf("table %d", tbl.ID)
		}
		assert.LessOrEqual(t, len(tbl.Seats), tbl.Capacity)
	}
}

func TestAddTableValidation(t *testing.T) {
	cases := []struct {
		name string
		op   *AddTable
		kind RejectionKind
	}{
		{"zero capacity", &AddTable{Shape: model.ShapeRound, Capacity: 0}, KindValidationFailure},
		{"negative capacity", &AddTable{Shape: model.ShapeRound, Capacity: -2}, KindValidationFailure},
		{"bad shape", &AddTable{Shape: "oval", Capacity: 4}, KindValidationFailure},
		{"head seat too big", &AddTable{Shape: model.ShapeRound, Capacity: 4, HeadSeat: 5}, KindValidationFailure},
		{"duplicate id", &AddTable{TableID: 1, Shape: model.ShapeRound, Capacity: 4}, KindValidationFailure},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Apply(1, testDoc(), tc.op)
			assert.Equal(t, tc.kind, kindOf(t, err))
		})
	}
}

func TestAddTableAssignsIDAndDefaults(t *testing.T) {
	out, err := Apply(1, testDoc(), &AddTable{Shape: model.ShapeRectangular, Capacity: 6, Label: "work"})
	require.NoError(t, err)
	require.Len(t, out.Tables, 3)
	added := out.Tables[2]
	assert.Equal(t, uint64(3), added.ID) // next after the current max
	assert.Equal(t, 1, added.StartIndex)
	assert.Equal(t, 1, added.HeadSeat)
	assert.Equal(t, "clockwise", added.Direction)
	assert.Empty(t, added.Seats)
}

func TestUpdateTableCapacityOverflow(t *testing.T) {
	doc := testDoc()
	// Seat a third guest so seats 1, 2 and 3 are taken at table 1.
	doc.Tables[0].Seats = append(doc.Tables[0].Seats, model.SeatAssignment{SeatNo: 3, GuestID: 13})

	newCap := 1
	_, err := Apply(1, doc, &UpdateTable{TableID: 1, Capacity: &newCap})
	r, ok := AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, KindCapacityOverflow, r.Kind)
	assert.Equal(t, []uint64{12, 13}, r.GuestIDs) // seats 2 and 3 fall out of [1,1]
}

func TestUpdateTablePatchesSubset(t *testing.T) {
	shape := model.ShapeLong
	label := "top table"
	out, err := Apply(1, testDoc(), &UpdateTable{TableID: 1, Shape: &shape, Label: &label})
	require.NoError(t, err)
	assert.Equal(t, model.ShapeLong, out.Tables[0].Shape)
	assert.Equal(t, "top table", out.Tables[0].Label)
	assert.Equal(t, 4, out.Tables[0].Capacity) // untouched
}

func TestUpdateTableStartIndexRebasesSeats(t *testing.T) {
	start := 5
	out, err := Apply(1, testDoc(), &UpdateTable{TableID: 1, StartIndex: &start})
	require.NoError(t, err)
	tbl := out.Tables[0]
	assert.Equal(t, 5, tbl.StartIndex)
	// Guests stay in their physical seats; only the numbers shift.
	assert.Equal(t, []model.SeatAssignment{{SeatNo: 5, GuestID: 11}, {SeatNo: 6, GuestID: 12}}, tbl.Seats)
	checkInvariants(t, &out.PlanContent)
}

func TestUpdateTableNotFound(t *testing.T) {
	cap := 8
	_, err := Apply(1, testDoc(), &UpdateTable{TableID: 99, Capacity: &cap})
	assert.Equal(t, KindTableNotFound, kindOf(t, err))
}

func TestRemoveTableUnseatsGuests(t *testing.T) {
	out, err := Apply(1, testDoc(), &RemoveTable{TableID: 1})
	require.NoError(t, err)
	assert.Len(t, out.Tables, 1)
	// Guests survive removal, just without seats.
	assert.NotNil(t, out.GuestByID(11))
	assert.NotNil(t, out.GuestByID(12))
	checkInvariants(t, &out.PlanContent)

	_, err = Apply(1, testDoc(), &RemoveTable{TableID: 99})
	assert.Equal(t, KindTableNotFound, kindOf(t, err))
}

func TestGuestOperations(t *testing.T) {
	t.Run("add requires name", func(t *testing.T) {
		_, err := Apply(1, testDoc(), &AddGuest{Name: "   "})
		assert.Equal(t, KindValidationFailure, kindOf(t, err))
	})
	t.Run("add rejects duplicate id", func(t *testing.T) {
		_, err := Apply(1, testDoc(), &AddGuest{GuestID: 11, Name: "Dup"})
		assert.Equal(t, KindValidationFailure, kindOf(t, err))
	})
	t.Run("add assigns next id", func(t *testing.T) {
		out, err := Apply(1, testDoc(), &AddGuest{Name: "Dana", Tag: "work"})
		require.NoError(t, err)
		require.Len(t, out.Guests, 4)
		assert.Equal(t, uint64(14), out.Guests[3].ID)
	})
	t.Run("update missing guest", func(t *testing.T) {
		name := "Nobody"
		_, err := Apply(1, testDoc(), &UpdateGuest{GuestID: 99, Name: &name})
		assert.Equal(t, KindGuestNotFound, kindOf(t, err))
	})
	t.Run("update rejects empty name", func(t *testing.T) {
		name := ""
		_, err := Apply(1, testDoc(), &UpdateGuest{GuestID: 11, Name: &name})
		assert.Equal(t, KindValidationFailure, kindOf(t, err))
	})
	t.Run("update patches rsvp only", func(t *testing.T) {
		rsvp := "yes"
		out, err := Apply(1, testDoc(), &UpdateGuest{GuestID: 11, RSVP: &rsvp})
		require.NoError(t, err)
		assert.Equal(t, "yes", out.GuestByID(11).RSVP)
		assert.Equal(t, "Ann", out.GuestByID(11).Name)
	})
	t.Run("remove unseats and deletes", func(t *testing.T) {
		out, err := Apply(1, testDoc(), &RemoveGuest{GuestID: 11})
		require.NoError(t, err)
		assert.Nil(t, out.GuestByID(11))
		_, seated := out.Tables[0].OccupantAt(1)
		assert.False(t, seated)
		checkInvariants(t, &out.PlanContent)
	})
	t.Run("remove missing guest", func(t *testing.T) {
		_, err := Apply(1, testDoc(), &RemoveGuest{GuestID: 99})
		assert.Equal(t, KindGuestNotFound, kindOf(t, err))
	})
}

func TestAssignGuestSeat(t *testing.T) {
	t.Run("first empty in canonical order", func(t *testing.T) {
		out, err := Apply(1, testDoc(), &AssignGuestSeat{TableID: 1, GuestID: 13})
		require.NoError(t, err)
		g, ok := out.Tables[0].OccupantAt(3)
		require.True(t, ok)
		assert.Equal(t, uint64(13), g)
	})
	t.Run("explicit occupied seat rejected", func(t *testing.T) {
		seat := 1
		_, err := Apply(1, testDoc(), &AssignGuestSeat{TableID: 1, GuestID: 13, SeatNo: &seat})
		assert.Equal(t, KindValidationFailure, kindOf(t, err))
	})
	t.Run("explicit seat outside range", func(t *testing.T) {
		seat := 9
		_, err := Apply(1, testDoc(), &AssignGuestSeat{TableID: 1, GuestID: 13, SeatNo: &seat})
		assert.Equal(t, KindSeatNotFound, kindOf(t, err))
	})
	t.Run("reassign moves instead of duplicating", func(t *testing.T) {
		// Guest 11 sits at table 1 seat 1; assigning them to table 2
		// must leave exactly one seat record behind.
		out, err := Apply(1, testDoc(), &AssignGuestSeat{TableID: 2, GuestID: 11})
		require.NoError(t, err)
		_, stillThere := out.Tables[0].OccupantAt(1)
		assert.False(t, stillThere)
		g, ok := out.Tables[1].OccupantAt(1)
		require.True(t, ok)
		assert.Equal(t, uint64(11), g)
		checkInvariants(t, &out.PlanContent)
	})
	t.Run("table full", func(t *testing.T) {
		doc := testDoc()
		doc.Tables[1].Seats = []model.SeatAssignment{
			{SeatNo: 1, GuestID: 11}, {SeatNo: 2, GuestID: 12},
		}
		_, err := Apply(1, doc, &AssignGuestSeat{TableID: 2, GuestID: 13})
		assert.Equal(t, KindTableFull, kindOf(t, err))
	})
	t.Run("missing guest and table", func(t *testing.T) {
		_, err := Apply(1, testDoc(), &AssignGuestSeat{TableID: 1, GuestID: 99})
		assert.Equal(t, KindGuestNotFound, kindOf(t, err))
		_, err = Apply(1, testDoc(), &AssignGuestSeat{TableID: 99, GuestID: 13})
		assert.Equal(t, KindTableNotFound, kindOf(t, err))
	})
}

func TestRandomAssignmentFillsEverySeat(t *testing.T) {
	// Assign 1000 guests one at a time to a 1000-seat table: every seat
	// ends up taken exactly once and nobody is left unseated.
	doc := &model.PlanDocument{
		PlanContent: model.PlanContent{
			Tables: []model.Table{{
				ID: 1, Shape: model.ShapeLong, Capacity: 1000,
				StartIndex: 1, HeadSeat: 1, Seats: []model.SeatAssignment{},
			}},
		},
	}
	for i := 0; i < 1000; i++ {
		id := uint64(1000 + i)
		next, err := Apply(7, doc, &AddGuest{GuestID: id, Name: fmt.Sprintf("guest-%d", i)})
		require.NoError(t, err)
		doc = next
		next, err = Apply(7, doc, &AssignGuestSeat{TableID: 1, GuestID: id, Random: true})
		require.NoError(t, err)
		doc = next
	}
	require.Len(t, doc.Tables[0].Seats, 1000)
	checkInvariants(t, &doc.PlanContent)
	assert.Empty(t, EmptySeats(&doc.Tables[0]))
}

func TestSwapSeats(t *testing.T) {
	t.Run("both occupied exchange", func(t *testing.T) {
		out, err := Apply(1, testDoc(), &SwapSeats{TableA: 1, SeatA: 1, TableB: 1, SeatB: 2})
		require.NoError(t, err)
		a, _ := out.Tables[0].OccupantAt(1)
		b, _ := out.Tables[0].OccupantAt(2)
		assert.Equal(t, uint64(12), a)
		assert.Equal(t, uint64(11), b)
		checkInvariants(t, &out.PlanContent)
	})
	t.Run("one empty degenerates to move", func(t *testing.T) {
		out, err := Apply(1, testDoc(), &SwapSeats{TableA: 1, SeatA: 1, TableB: 2, SeatB: 2})
		require.NoError(t, err)
		_, occupied := out.Tables[0].OccupantAt(1)
		assert.False(t, occupied)
		g, ok := out.Tables[1].OccupantAt(2)
		require.True(t, ok)
		assert.Equal(t, uint64(11), g)
		checkInvariants(t, &out.PlanContent)
	})
	t.Run("both empty is a no-op", func(t *testing.T) {
		out, err := Apply(1, testDoc(), &SwapSeats{TableA: 1, SeatA: 3, TableB: 1, SeatB: 4})
		require.NoError(t, err)
		assert.Equal(t, testDoc().Tables[0].Seats, out.Tables[0].Seats)
	})
	t.Run("seat outside range", func(t *testing.T) {
		_, err := Apply(1, testDoc(), &SwapSeats{TableA: 1, SeatA: 7, TableB: 1, SeatB: 2})
		assert.Equal(t, KindSeatNotFound, kindOf(t, err))
	})
	t.Run("missing table", func(t *testing.T) {
		_, err := Apply(1, testDoc(), &SwapSeats{TableA: 9, SeatA: 1, TableB: 1, SeatB: 2})
		assert.Equal(t, KindTableNotFound, kindOf(t, err))
	})
}

func TestMoveGuestTable(t *testing.T) {
	t.Run("moves to first empty seat", func(t *testing.T) {
		out, err := Apply(1, testDoc(), &MoveGuestTable{GuestID: 12, ToTableID: 2})
		require.NoError(t, err)
		_, still := out.Tables[0].OccupantAt(2)
		assert.False(t, still)
		g, ok := out.Tables[1].OccupantAt(1)
		require.True(t, ok)
		assert.Equal(t, uint64(12), g)
		checkInvariants(t, &out.PlanContent)
	})
	t.Run("target full", func(t *testing.T) {
		doc := testDoc()
		doc.Tables[1].Seats = []model.SeatAssignment{
			{SeatNo: 1, GuestID: 13}, {SeatNo: 2, GuestID: 12},
		}
		doc.Tables[0].Seats = doc.Tables[0].Seats[:1]
		_, err := Apply(1, doc, &MoveGuestTable{GuestID: 11, ToTableID: 2})
		assert.Equal(t, KindTableFull, kindOf(t, err))
	})
	t.Run("unseated guest is simply seated", func(t *testing.T) {
		out, err := Apply(1, testDoc(), &MoveGuestTable{GuestID: 13, ToTableID: 2})
		require.NoError(t, err)
		g, ok := out.Tables[1].OccupantAt(1)
		require.True(t, ok)
		assert.Equal(t, uint64(13), g)
	})
}

func TestChangeSeatOrder(t *testing.T) {
	start := 10
	head := 3
	dir := "counterclockwise"
	out, err := Apply(1, testDoc(), &ChangeSeatOrder{TableID: 1, StartIndex: &start, HeadSeat: &head, Direction: &dir})
	require.NoError(t, err)
	tbl := out.Tables[0]
	assert.Equal(t, 10, tbl.StartIndex)
	assert.Equal(t, 3, tbl.HeadSeat)
	// Reserved field round-trips even though only clockwise is rendered.
	assert.Equal(t, "counterclockwise", tbl.Direction)
	assert.Equal(t, []model.SeatAssignment{{SeatNo: 10, GuestID: 11}, {SeatNo: 11, GuestID: 12}}, tbl.Seats)
	checkInvariants(t, &out.PlanContent)
}

func TestApplyNeverMutatesInput(t *testing.T) {
	doc := testDoc()
	before, err := Apply(1, doc, &RemoveTable{TableID: 2}) // success path
	require.NoError(t, err)
	require.NotSame(t, doc, before)
	assert.Len(t, doc.Tables, 2, "input document changed on success")

	cap := 1
	_, err = Apply(1, doc, &UpdateTable{TableID: 1, Capacity: &cap}) // failure path
	require.Error(t, err)
	assert.Equal(t, testDoc(), doc, "input document changed on failure")

	// Mutating the output must not leak back into the input.
	out, err := Apply(1, doc, &AddGuest{Name: "Eve"})
	require.NoError(t, err)
	out.Tables[0].Seats[0].GuestID = 999
	out.Settings["palette"] = "neon"
	assert.Equal(t, uint64(11), doc.Tables[0].Seats[0].GuestID)
	assert.Equal(t, "pastel", doc.Settings["palette"])
}
