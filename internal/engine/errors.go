// Package engine implements the plan mutation and versioning core: typed
// edit operations, seat allocation, atomic batch application and the
// snapshot scheduling policy.  Everything in this package operates on
// detached copies of a plan document; durable state is only touched by the
// repository layer's compare-and-swap commit.
package engine

import (
	"errors"
	"fmt"
	"time"
)

// RejectionKind classifies why a request was rejected.  Handlers map each
// kind to an HTTP status; clients rely on the string to distinguish a
// version conflict (refetch and retry) from validation failures (fix the
// request).
type RejectionKind string

const (
	KindVersionConflict   RejectionKind = "version_conflict"
	KindValidationFailure RejectionKind = "validation_failure"
	KindCapacityOverflow  RejectionKind = "capacity_overflow"
	KindSeatNotFound      RejectionKind = "seat_not_found"
	KindTableNotFound     RejectionKind = "table_not_found"
	KindGuestNotFound     RejectionKind = "guest_not_found"
	KindTableFull         RejectionKind = "table_full"
	KindLockConflict      RejectionKind = "lock_conflict"
	KindNotLockOwner      RejectionKind = "not_lock_owner"
)

// Rejection is the engine's only error type.  Unlike the plain sentinel
// errors used by the repository layer, several kinds carry a payload the
// caller needs (displaced guest IDs, the current lock holder), so a struct
// is required.  A Rejection always describes the failure of exactly one
// request; prior state is left intact.
type Rejection struct {
	Kind    RejectionKind
	Message string

	// OpIndex is the zero-based index of the failing operation within its
	// batch, or -1 when the rejection is not tied to a batch position.
	OpIndex int

	// GuestIDs lists the guests that would be displaced, set for
	// capacity_overflow only, ascending by seat number.
	GuestIDs []uint64

	// Holder and ExpiresAt identify the current lock holder, set for
	// lock_conflict only.
	Holder    uint64
	ExpiresAt time.Time
}

func (r *Rejection) Error() string {
	if r.OpIndex >= 0 {
		return fmt.Sprintf("%s at operation %d: %s", r.Kind, r.OpIndex, r.Message)
	}
	return fmt.Sprintf("%s: %s", r.Kind, r.Message)
}

// AsRejection unwraps err into a *Rejection when possible.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

func reject(kind RejectionKind, format string, args ...any) *Rejection {
	return &Rejection{Kind: kind, OpIndex: -1, Message: fmt.Sprintf(format, args...)}
}

// Validationf builds a validation_failure rejection.
func Validationf(format string, args ...any) *Rejection {
	return reject(KindValidationFailure, format, args...)
}

// VersionConflict reports that the stored version no longer matches what
// the caller believed; the caller must reload and recompute.
func VersionConflict(expected, stored uint64) *Rejection {
	return reject(KindVersionConflict, "expected version %d but stored version is %d", expected, stored)
}

// TableNotFound reports a reference to a table that does not exist.
func TableNotFound(id uint64) *Rejection {
	return reject(KindTableNotFound, "table %d not found", id)
}

// GuestNotFound reports a reference to a guest that does not exist.
func GuestNotFound(id uint64) *Rejection {
	return reject(KindGuestNotFound, "guest %d not found", id)
}

// SeatNotFound reports a seat number outside a table's valid range.
func SeatNotFound(tableID uint64, seatNo int) *Rejection {
	return reject(KindSeatNotFound, "seat %d does not exist at table %d", seatNo, tableID)
}

// TableFull reports that a table has no empty seat left.
func TableFull(tableID uint64) *Rejection {
	return reject(KindTableFull, "table %d has no empty seat", tableID)
}

// CapacityOverflow reports the guests that a capacity or start-index change
// would displace.  The change is rejected as a whole; the engine never
// silently evicts.
func CapacityOverflow(tableID uint64, displaced []uint64) *Rejection {
	r := reject(KindCapacityOverflow, "reducing table %d would displace %d seated guest(s)", tableID, len(displaced))
	r.GuestIDs = displaced
	return r
}

// LockConflict reports that another editor holds a non-expired lock.
func LockConflict(holder uint64, expiresAt time.Time) *Rejection {
	r := reject(KindLockConflict, "plan is locked by user %d until %s", holder, expiresAt.UTC().Format(time.RFC3339))
	r.Holder = holder
	r.ExpiresAt = expiresAt
	return r
}

// NotLockOwner reports a release or refresh attempt by a non-holder.
func NotLockOwner() *Rejection {
	return reject(KindNotLockOwner, "lock is not held by the requesting user")
}
