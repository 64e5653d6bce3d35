package model

import "time"

// Snapshot is an immutable point-in-time copy of a plan's content kept for
// history and restore.  Snapshots are only ever created or read, never
// mutated; retention and deletion are handled outside this service.  The
// PreviousID back-reference forms a linked history, not a tree.
//
// Fields:
//  ID         – UUID assigned at creation.
//  PlanID     – plan this snapshot belongs to.
//  Label      – free text; empty for automatic snapshots.
//  IsManual   – true when requested by a user, false for scheduler output.
//  PreviousID – ID of the snapshot taken before this one (empty for the first).
//  Version    – plan version the content was captured at.
//  Content    – deep copy of tables/guests/settings, shares nothing with
//               the live document.
//  CreatedAt  – capture timestamp in UTC.
type Snapshot struct {
	ID         string      `json:"id"`
	PlanID     uint64      `json:"plan_id"`
	Label      string      `json:"label,omitempty"`
	IsManual   bool        `json:"is_manual"`
	PreviousID string      `json:"previous_snapshot_id,omitempty"`
	Version    uint64      `json:"version"`
	Content    PlanContent `json:"content"`
	CreatedAt  time.Time   `json:"created_at"`
}
