package handler

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mkarlsen/seatplanner/internal/engine"
	"github.com/mkarlsen/seatplanner/internal/model"
	"github.com/mkarlsen/seatplanner/internal/queue"
	"github.com/mkarlsen/seatplanner/internal/repository"
)

// snapshotView is the metadata projection returned by the snapshot
// endpoints.  The captured content is omitted from listings; clients
// restore by ID rather than by downloading history.
type snapshotView struct {
	ID         string `json:"id"`
	Label      string `json:"label,omitempty"`
	IsManual   bool   `json:"is_manual"`
	PreviousID string `json:"previous_snapshot_id,omitempty"`
	Version    uint64 `json:"version"`
	CreatedAt  string `json:"created_at"`
}

func viewOf(s model.Snapshot) snapshotView {
	return snapshotView{
		ID:         s.ID,
		Label:      s.Label,
		IsManual:   s.IsManual,
		PreviousID: s.PreviousID,
		Version:    s.Version,
		CreatedAt:  s.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// CreateSnapshot handles POST /v1/plans/:id/snapshots.  It captures the
// current committed document verbatim as a manual snapshot.  The route
// sits behind the snapshot rate limiter; the engine itself does not
// throttle.
func (h *PlanHandler) CreateSnapshot(c echo.Context) error {
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
		Label string `json:"label"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ctx := c.Request().Context()
	doc, err := h.Plans.LoadCurrent(ctx, planID)
	if err != nil {
		return writeError(c, err)
	}
	prev := ""
	if latest, err := h.Snapshots.LatestSnapshot(ctx, planID); err == nil && latest != nil {
		prev = latest.ID
	}
	snap, err := h.Snapshots.CreateSnapshot(ctx, model.Snapshot{
		PlanID:     planID,
		Label:      body.Label,
		IsManual:   true,
		PreviousID: prev,
		Version:    doc.Version,
		Content:    doc.PlanContent,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create snapshot"})
	}
	// Manual snapshots restart the automatic window.
	h.Scheduler.NoteSnapshot(planID)
	return c.JSON(http.StatusCreated, viewOf(snap))
}

// ListSnapshots handles GET /v1/plans/:id/snapshots and returns snapshot
// metadata newest first.
func (h *PlanHandler) ListSnapshots(c echo.Context) error {
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
	snaps, err := h.Snapshots.ListSnapshots(c.Request().Context(), planID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list snapshots"})
	}
	views := make([]snapshotView, len(snaps))
	for i, s := range snaps {
		views[i] = viewOf(s)
	}
	return c.JSON(http.StatusOK, echo.Map{"snapshots": views})
}

// RestoreSnapshot handles POST /v1/plans/:id/snapshots/:snapshot_id/restore.
// Restoring commits the snapshot's captured content as a brand new
// version through the same compare-and-swap path as a batch — history is
// never rewritten in place — and records the restore as its own snapshot
// entry.  The caller supplies the version it believes is current and
// gets version_conflict when someone else committed in between.
func (h *PlanHandler) RestoreSnapshot(c echo.Context) error {
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
		ExpectedVersion *uint64 `json:"expected_version"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ExpectedVersion == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "expected_version is required"})
	}
	ctx := c.Request().Context()

	holder, err := h.Locks.Holder(ctx, planID)
	if err != nil {
		log.Printf("plan %d: lock lookup failed: %v", planID, err)
	} else if holder != nil && holder.HeldBy != userID {
		return writeRejection(c, engine.LockConflict(holder.HeldBy, holder.ExpiresAt))
	}

	snap, err := h.Snapshots.GetSnapshot(ctx, c.Param("snapshot_id"))
	if err != nil {
		return writeError(c, err)
	}
	if snap.PlanID != planID {
		return writeError(c, repository.ErrSnapshotNotFound)
	}

	doc := &model.PlanDocument{
		PlanContent: snap.Content.Clone(),
		Version:     *body.ExpectedVersion + 1,
	}
	if err := h.Plans.Commit(ctx, planID, *body.ExpectedVersion, doc); err != nil {
		return writeError(c, err)
	}

	prev := ""
	if latest, err := h.Snapshots.LatestSnapshot(ctx, planID); err == nil && latest != nil {
		prev = latest.ID
	}
	record, err := h.Snapshots.CreateSnapshot(ctx, model.Snapshot{
		PlanID:     planID,
		Label:      fmt.Sprintf("restored from %s", snap.ID),
		IsManual:   true,
		PreviousID: prev,
		Version:    doc.Version,
		Content:    doc.PlanContent,
	})
	if err != nil {
		log.Printf("plan %d: restore snapshot record failed: %v", planID, err)
	}
	h.Scheduler.NoteSnapshot(planID)

	if h.Audit != nil {
		_ = h.Audit(ctx, queue.BatchCommittedEvent{
			PlanID:         planID,
			UserID:         userID,
			OperationKinds: []string{"restore_snapshot"},
			AppliedCount:   1,
			NewVersion:     doc.Version,
			CommittedAt:    time.Now().UTC().Format(time.RFC3339),
		})
	}

	resp := echo.Map{
		"new_version":   doc.Version,
		"restored_from": snap.ID,
		"document":      doc,
	}
	if record.ID != "" {
		resp["snapshot"] = viewOf(record)
	}
	return c.JSON(http.StatusOK, resp)
}
