package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkarlsen/seatplanner/internal/model"
)

// SnapshotRepo provides access to the plan_snapshots table.  Snapshots
// are append-only: rows are inserted and read, never updated or deleted
// here (retention is an external policy).  Each row carries a verbatim
// JSON copy of the plan content at capture time and a back-reference to
// the previous snapshot, forming a linked history.
type SnapshotRepo struct {
	db *sql.DB
}

// NewSnapshotRepo returns a SnapshotRepo bound to the provided database.
func NewSnapshotRepo(db *sql.DB) *SnapshotRepo { return &SnapshotRepo{db: db} }

// CreateSnapshot inserts a new snapshot row.  The ID and CreatedAt fields of the
// input are ignored; a fresh UUID and UTC timestamp are assigned and the
// completed snapshot is returned.
func (r *SnapshotRepo) CreateSnapshot(ctx context.Context, snap model.Snapshot) (model.Snapshot, error) {
	snap.ID = uuid.NewString()
	snap.CreatedAt = time.Now().UTC()
	raw, err := json.Marshal(snap.Content)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("marshal snapshot: %w", err)
	}
	var prev any
	if snap.PreviousID != "" {
		prev = snap.PreviousID
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO plan_snapshots (id, plan_id, label, is_manual, previous_id, version, content, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.PlanID, snap.Label, snap.IsManual, prev, snap.Version, raw,
		snap.CreatedAt.Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return model.Snapshot{}, err
	}
	return snap, nil
}

// GetSnapshot returns one snapshot by ID.
func (r *SnapshotRepo) GetSnapshot(ctx context.Context, snapshotID string) (*model.Snapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, plan_id, label, is_manual, previous_id, version, content, created_at
         FROM plan_snapshots WHERE id = ?`, snapshotID)
	return scanSnapshot(row)
}

// ListSnapshots returns all snapshots of a plan, newest first.
func (r *SnapshotRepo) ListSnapshots(ctx context.Context, planID uint64) ([]model.Snapshot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, plan_id, label, is_manual, previous_id, version, content, created_at
         FROM plan_snapshots WHERE plan_id = ? ORDER BY created_at DESC, id DESC`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *snap)
	}
	return out, rows.Err()
}

// LatestSnapshot returns the most recent snapshot of a plan, or nil when the plan
// has none yet.
func (r *SnapshotRepo) LatestSnapshot(ctx context.Context, planID uint64) (*model.Snapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, plan_id, label, is_manual, previous_id, version, content, created_at
         FROM plan_snapshots WHERE plan_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`, planID)
	snap, err := scanSnapshot(row)
	if err == ErrSnapshotNotFound {
		return nil, nil
	}
	return snap, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*model.Snapshot, error) {
	var snap model.Snapshot
	var prev sql.NullString
	var raw []byte
	err := row.Scan(&snap.ID, &snap.PlanID, &snap.Label, &snap.IsManual, &prev, &snap.Version, &raw, &snap.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}
	if prev.Valid {
		snap.PreviousID = prev.String
	}
	if err := json.Unmarshal(raw, &snap.Content); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot %s: %w", snap.ID, err)
	}
	return &snap, nil
}
