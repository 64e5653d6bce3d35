// Package queue defines the message payloads exchanged over the broker and
// the background consumer that appends them to logs/audit.log.
package queue

// BatchCommittedEvent is published after every committed batch (including
// snapshot restores).  It carries enough for downstream audit, notification
// or analytics consumers to work without querying the primary database.
// The service emits the record but does not persist it; durable audit
// storage is a consumer concern.
type BatchCommittedEvent struct {
	PlanID         uint64   `json:"plan_id"`
	UserID         uint64   `json:"user_id"`
	OperationKinds []string `json:"operation_kinds_applied"`
	AppliedCount   int      `json:"applied_count"`
	NewVersion     uint64   `json:"new_version"`
	CommittedAt    string   `json:"committed_at"`
}
