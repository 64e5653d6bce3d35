package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// AcquireLock handles POST /v1/plans/:id/lock.  It grants the advisory
// editor lock to the caller, or refreshes the expiry when the caller
// already holds it.  If another user holds a non-expired lock the
// request fails with lock_conflict reporting the holder and their
// expiry; once a lock is absent or expired, acquisition always succeeds.
func (h *PlanHandler) AcquireLock(c echo.Context) error {
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
	info, err := h.Locks.Acquire(c.Request().Context(), planID, userID, h.LockTTL)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"held_by":    info.HeldBy,
		"expires_at": info.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// ReleaseLock handles DELETE /v1/plans/:id/lock.  Only the current
// holder may release; anyone else — including callers releasing an
// already-expired lock — gets not_lock_owner.
func (h *PlanHandler) ReleaseLock(c echo.Context) error {
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
	if err := h.Locks.Release(c.Request().Context(), planID, userID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
