package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mkarlsen/seatplanner/internal/model"
)

// PlanRepo provides access to the plans table.  The plan content is
// stored as one JSON document per row next to an integer version column;
// Commit performs the single compare-and-swap UPDATE that serializes
// concurrent batches.  Everything upstream of Commit works on detached
// copies, so this is the only place where a lost update could occur and
// the version predicate is what prevents it.
type PlanRepo struct {
	db *sql.DB
}

// NewPlanRepo returns a PlanRepo bound to the provided database.
func NewPlanRepo(db *sql.DB) *PlanRepo { return &PlanRepo{db: db} }

// Create inserts an empty plan owned by the given user at version 0 and
// returns its ID.
func (r *PlanRepo) Create(ctx context.Context, ownerID uint64, title string) (uint64, error) {
	content := model.PlanContent{Tables: []model.Table{}, Guests: []model.Guest{}}
	doc, err := json.Marshal(content)
	if err != nil {
		return 0, fmt.Errorf("marshal plan: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO plans (owner_id, title, document, version) VALUES (?, ?, ?, 0)`,
		ownerID, title, doc,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// LoadCurrent returns the committed document and version for a plan.
// The returned document is a fresh copy owned by the caller.
func (r *PlanRepo) LoadCurrent(ctx context.Context, planID uint64) (*model.PlanDocument, error) {
	var raw []byte
	var version uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT document, version FROM plans WHERE id = ?`, planID,
	).Scan(&raw, &version)
	if err == sql.ErrNoRows {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	var content model.PlanContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil, fmt.Errorf("unmarshal plan %d: %w", planID, err)
	}
	return &model.PlanDocument{PlanContent: content, Version: version}, nil
}

// Commit writes a new document iff the stored version still equals
// expectedVersion, bumping the version column by one in the same atomic
// UPDATE.  A zero row count means either the plan vanished or another
// batch committed first; the follow-up existence check tells the two
// apart so callers get the right error kind.
func (r *PlanRepo) Commit(ctx context.Context, planID, expectedVersion uint64, doc *model.PlanDocument) error {
	raw, err := json.Marshal(doc.PlanContent)
	if err != nil {
		return fmt.Errorf("marshal plan %d: %w", planID, err)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE plans SET document = ?, version = version + 1 WHERE id = ? AND version = ?`,
		raw, planID, expectedVersion,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	var exists bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM plans WHERE id = ?)`, planID,
	).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrPlanNotFound
	}
	return ErrVersionConflict
}

// IsOwner reports whether the user owns the plan.  A missing plan yields
// ErrPlanNotFound so handlers can answer 404 instead of 403.
func (r *PlanRepo) IsOwner(ctx context.Context, planID, userID uint64) (bool, error) {
	var ownerID uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT owner_id FROM plans WHERE id = ?`, planID,
	).Scan(&ownerID)
	if err == sql.ErrNoRows {
		return false, ErrPlanNotFound
	}
	if err != nil {
		return false, err
	}
	return ownerID == userID, nil
}
