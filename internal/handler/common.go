// Package handler implements the HTTP boundary around the plan mutation
// engine.  Handlers orchestrate the fixed pipeline — ownership check,
// advisory lock check, load, batch application, compare-and-swap commit,
// audit emission, snapshot policy — and translate engine rejections and
// repository sentinels into JSON error responses whose "error" field
// clients can switch on.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mkarlsen/seatplanner/internal/engine"
	"github.com/mkarlsen/seatplanner/internal/lock"
	"github.com/mkarlsen/seatplanner/internal/model"
	"github.com/mkarlsen/seatplanner/internal/queue"
	"github.com/mkarlsen/seatplanner/internal/repository"
	queue_publisher "github.com/mkarlsen/seatplanner/internal/service"
)

// PlanStore is the subset of plan persistence the handlers need.  Both
// the MySQL repositories and the in-memory store satisfy it; Commit must
// be an atomic compare-and-swap against the stored version.
type PlanStore interface {
	Create(ctx context.Context, ownerID uint64, title string) (uint64, error)
	LoadCurrent(ctx context.Context, planID uint64) (*model.PlanDocument, error)
	Commit(ctx context.Context, planID, expectedVersion uint64, doc *model.PlanDocument) error
	IsOwner(ctx context.Context, planID, userID uint64) (bool, error)
}

// SnapshotStore is the snapshot history persistence the handlers need.
type SnapshotStore interface {
	CreateSnapshot(ctx context.Context, snap model.Snapshot) (model.Snapshot, error)
	GetSnapshot(ctx context.Context, snapshotID string) (*model.Snapshot, error)
	ListSnapshots(ctx context.Context, planID uint64) ([]model.Snapshot, error)
	LatestSnapshot(ctx context.Context, planID uint64) (*model.Snapshot, error)
}

// PlanHandler groups the collaborators required to serve plan editing,
// locking and snapshot requests.  JWT authentication and role validation
// are assumed to have run in middleware already.
type PlanHandler struct {
	Plans     PlanStore
	Snapshots SnapshotStore
	Locks     lock.Manager
	Scheduler *engine.SnapshotScheduler
	LockTTL   time.Duration

	// Audit receives one record per committed batch.  Defaults to the
	// RabbitMQ publisher; tests substitute a capture function.  Failures
	// are logged by the publisher and otherwise ignored.
	Audit func(ctx context.Context, ev queue.BatchCommittedEvent) error
}

// NewPlanHandler constructs a PlanHandler with the provided collaborators.
// All dependencies must be non-nil.
func NewPlanHandler(plans PlanStore, snapshots SnapshotStore, locks lock.Manager, scheduler *engine.SnapshotScheduler, lockTTL time.Duration) *PlanHandler {
	if plans == nil || snapshots == nil || locks == nil || scheduler == nil {
		panic("nil dependency passed to NewPlanHandler")
	}
	return &PlanHandler{
		Plans:     plans,
		Snapshots: snapshots,
		Locks:     locks,
		Scheduler: scheduler,
		LockTTL:   lockTTL,
		Audit:     queue_publisher.PublishBatchCommitted,
	}
}

// getUserID extracts the user_id claim from echo.Context as uint64.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// planParam parses the :id path parameter.
func planParam(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id != 0
}

// requireOwner loads the ownership flag and writes the error response
// when the caller may not touch the plan.  It returns true when the
// request may proceed.
func (h *PlanHandler) requireOwner(c echo.Context, planID, userID uint64) bool {
	owner, err := h.Plans.IsOwner(c.Request().Context(), planID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrPlanNotFound) {
			_ = c.JSON(http.StatusNotFound, echo.Map{"error": "plan_not_found"})
		} else {
			_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		return false
	}
	if !owner {
		_ = c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		return false
	}
	return true
}

// rejectionStatus maps an engine rejection kind to an HTTP status.  All
// conflict-flavored kinds share 409 and are told apart by the error
// string, which is what retrying clients switch on.
func rejectionStatus(kind engine.RejectionKind) int {
	switch kind {
	case engine.KindVersionConflict, engine.KindCapacityOverflow,
		engine.KindTableFull, engine.KindLockConflict:
		return http.StatusConflict
	case engine.KindNotLockOwner:
		return http.StatusForbidden
	case engine.KindTableNotFound, engine.KindGuestNotFound, engine.KindSeatNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

// writeRejection renders an engine rejection, including its payload
// fields when present.
func writeRejection(c echo.Context, r *engine.Rejection) error {
	body := echo.Map{
		"error":   string(r.Kind),
		"message": r.Message,
	}
	if r.OpIndex >= 0 {
		body["op_index"] = r.OpIndex
	}
	if len(r.GuestIDs) > 0 {
		body["guest_ids"] = r.GuestIDs
	}
	if r.Kind == engine.KindLockConflict {
		body["held_by"] = r.Holder
		body["expires_at"] = r.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return c.JSON(rejectionStatus(r.Kind), body)
}

// writeError renders any error from the engine or storage layers.
func writeError(c echo.Context, err error) error {
	if r, ok := engine.AsRejection(err); ok {
		return writeRejection(c, r)
	}
	switch {
	case errors.Is(err, repository.ErrPlanNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "plan_not_found"})
	case errors.Is(err, repository.ErrSnapshotNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "snapshot_not_found"})
	case errors.Is(err, repository.ErrVersionConflict):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":   string(engine.KindVersionConflict),
			"message": "stored version changed, reload the plan and retry",
		})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
