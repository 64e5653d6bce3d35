package model

import "time"

// LockInfo describes the advisory editor lock on one plan.  The lock is
// ephemeral state kept outside the version history: it reduces wasted
// recomputation when two editors open the same plan but is never a
// correctness mechanism – the compare-and-swap commit remains the only
// serialization point.  An expired lock is treated as absent everywhere.
type LockInfo struct {
	PlanID    uint64    `json:"plan_id"`
	HeldBy    uint64    `json:"held_by"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the lock has passed its expiry at the given time.
func (l LockInfo) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}
