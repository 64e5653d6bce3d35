package engine

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand"
	"sort"

	"github.com/mkarlsen/seatplanner/internal/model"
)

// Seat allocation helpers.  All functions here are pure: they read a table
// snapshot and compute placements without mutating anything.  Seats are
// always considered in canonical order, ascending seat number starting at
// the table's start index; "random" placement draws uniformly from the
// empty seats in that order and must never bias toward the head seat.

// EmptySeats returns the unoccupied seat numbers of a table in canonical
// order.
func EmptySeats(t *model.Table) []int {
	occupied := make(map[int]struct{}, len(t.Seats))
	for _, s := range t.Seats {
		occupied[s.SeatNo] = struct{}{}
	}
	lo, hi := t.SeatRange()
	empty := make([]int, 0, t.Capacity-len(t.Seats))
	for n := lo; n <= hi; n++ {
		if _, taken := occupied[n]; !taken {
			empty = append(empty, n)
		}
	}
	return empty
}

// FirstEmptySeat returns the lowest-numbered empty seat and true, or zero
// and false when the table is full.
func FirstEmptySeat(t *model.Table) (int, bool) {
	empty := EmptySeats(t)
	if len(empty) == 0 {
		return 0, false
	}
	return empty[0], true
}

// RandomEmptySeat draws a uniformly random empty seat using the supplied
// source.  It returns false when the table is full.
func RandomEmptySeat(t *model.Table, rng *rand.Rand) (int, bool) {
	empty := EmptySeats(t)
	if len(empty) == 0 {
		return 0, false
	}
	return empty[rng.Intn(len(empty))], true
}

// SeedFor derives a deterministic random seed from the plan and guest
// identity.  The same (plan, guest) pair always produces the same draw
// sequence, which keeps random placement reproducible in tests without
// biasing the distribution.
func SeedFor(planID, guestID uint64) int64 {
	h := fnv.New64a()
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], planID)
	binary.BigEndian.PutUint64(buf[8:], guestID)
	h.Write(buf[:])
	return int64(h.Sum64())
}

// DisplacedGuests computes which seated guests would lose their seat if
// the table's numbering range became [newStart, newStart+newCapacity-1].
// The rule is deterministic: occupants of seats outside the new range are
// displaced, so the lowest-numbered seats are always the ones kept.  IDs
// are returned ascending by seat number.
func DisplacedGuests(t *model.Table, newStart, newCapacity int) []uint64 {
	hi := newStart + newCapacity - 1
	seats := make([]model.SeatAssignment, 0, len(t.Seats))
	for _, s := range t.Seats {
		if s.SeatNo < newStart || s.SeatNo > hi {
			seats = append(seats, s)
		}
	}
	sort.Slice(seats, func(i, j int) bool { return seats[i].SeatNo < seats[j].SeatNo })
	out := make([]uint64, len(seats))
	for i, s := range seats {
		out[i] = s.GuestID
	}
	return out
}

// rebaseSeats shifts every seat record by the difference between the
// table's current start index and newStart, so each guest keeps their
// physical position under the new numbering.  The caller is responsible
// for checking the new range fits the occupancy first.
func rebaseSeats(t *model.Table, newStart int) {
	delta := newStart - t.StartIndex
	if delta == 0 {
		return
	}
	for i := range t.Seats {
		t.Seats[i].SeatNo += delta
	}
}
