package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mkarlsen/seatplanner/internal/engine"
	"github.com/mkarlsen/seatplanner/internal/model"
	"github.com/mkarlsen/seatplanner/internal/queue"
)

// CreatePlan handles POST /v1/plans.  It creates an empty plan at
// version 0 owned by the authenticated user and returns its ID.
func (h *PlanHandler) CreatePlan(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		Title string `json:"title"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	planID, err := h.Plans.Create(c.Request().Context(), userID, body.Title)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create plan"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"plan_id": planID, "version": 0})
}

// GetPlan handles GET /v1/plans/:id.  It returns the current committed
// document together with the advisory lock state, so an editor can show
// who else is working on the plan before submitting edits.
func (h *PlanHandler) GetPlan(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	planID, ok := planParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid plan id"})
	}
	if !h.requireOwner(c, planID, userID) {
		return nil
	}
	ctx := c.Request().Context()
	doc, err := h.Plans.LoadCurrent(ctx, planID)
	if err != nil {
		return writeError(c, err)
	}
	holder, err := h.Locks.Holder(ctx, planID)
	if err != nil {
		log.Printf("plan %d: lock lookup failed: %v", planID, err)
	}
	resp := echo.Map{"document": doc}
	if holder != nil {
		resp["lock"] = echo.Map{
			"held_by":    holder.HeldBy,
			"expires_at": holder.ExpiresAt.UTC().Format(time.RFC3339),
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// ApplyBatch handles POST /v1/plans/:id/batch.  The body carries the
// version the client believes is current plus an ordered operation list:
//
//	{ "expected_version": 4, "operations": [ { "op": "add_guest", ... }, ... ] }
//
// The batch is all-or-nothing: the first failing operation rejects the
// whole request and the stored plan is untouched.  A successful response
// returns the committed document, its new version and the applied count.
// A version_conflict error means another editor committed first; the
// client must refetch and rebuild its batch — the server never merges or
// retries on the caller's behalf.
func (h *PlanHandler) ApplyBatch(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	planID, ok := planParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid plan id"})
	}
	if !h.requireOwner(c, planID, userID) {
		return nil
	}
	var body struct {
		ExpectedVersion *uint64           `json:"expected_version"`
		Operations      []json.RawMessage `json:"operations"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ExpectedVersion == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "expected_version is required"})
	}
	ops, err := engine.DecodeOperations(body.Operations)
	if err != nil {
		return writeError(c, err)
	}

	ctx := c.Request().Context()

	// Advisory lock gate: reject early when another editor holds a live
	// lock.  This only saves wasted work; the commit below would still be
	// safe without it.
	holder, err := h.Locks.Holder(ctx, planID)
	if err != nil {
		log.Printf("plan %d: lock lookup failed: %v", planID, err)
	} else if holder != nil && holder.HeldBy != userID {
		return writeRejection(c, engine.LockConflict(holder.HeldBy, holder.ExpiresAt))
	}

	stored, err := h.Plans.LoadCurrent(ctx, planID)
	if err != nil {
		return writeError(c, err)
	}
	result, err := engine.ApplyBatch(planID, stored, *body.ExpectedVersion, ops)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.Plans.Commit(ctx, planID, *body.ExpectedVersion, result.Document); err != nil {
		return writeError(c, err)
	}

	h.emitAudit(ctx, planID, userID, result)
	h.maybeAutoSnapshot(ctx, planID, result)

	return c.JSON(http.StatusOK, echo.Map{
		"new_version":   result.Document.Version,
		"applied_count": result.Applied,
		"document":      result.Document,
	})
}

// emitAudit sends the per-commit audit record.  The audit sink is
// best-effort: a publish failure is logged by the publisher and must not
// fail the already-committed request.
func (h *PlanHandler) emitAudit(ctx context.Context, planID, userID uint64, result *engine.BatchResult) {
	if h.Audit == nil {
		return
	}
	kinds := make([]string, len(result.Kinds))
	for i, k := range result.Kinds {
		kinds[i] = string(k)
	}
	_ = h.Audit(ctx, queue.BatchCommittedEvent{
		PlanID:         planID,
		UserID:         userID,
		OperationKinds: kinds,
		AppliedCount:   result.Applied,
		NewVersion:     result.Document.Version,
		CommittedAt:    time.Now().UTC().Format(time.RFC3339),
	})
}

// maybeAutoSnapshot asks the scheduler whether the commit crossed the
// automatic snapshot threshold and materializes the snapshot when it did.
func (h *PlanHandler) maybeAutoSnapshot(ctx context.Context, planID uint64, result *engine.BatchResult) {
	if !h.Scheduler.NoteCommit(planID, result.Applied) {
		return
	}
	prev := ""
	if latest, err := h.Snapshots.LatestSnapshot(ctx, planID); err == nil && latest != nil {
		prev = latest.ID
	}
	_, err := h.Snapshots.CreateSnapshot(ctx, model.Snapshot{
		PlanID:     planID,
		IsManual:   false,
		PreviousID: prev,
		Version:    result.Document.Version,
		Content:    result.Document.PlanContent,
	})
	if err != nil {
		log.Printf("plan %d: automatic snapshot failed: %v", planID, err)
	}
}
