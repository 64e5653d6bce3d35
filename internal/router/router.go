package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/mkarlsen/seatplanner/internal/config"
	"github.com/mkarlsen/seatplanner/internal/handler"
	"github.com/mkarlsen/seatplanner/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Used by load balancers and monitoring to verify the service is up.
	e.GET("/healthz", handler.Health)
}

// RegisterPlans wires all plan editing, locking and snapshot routes under
// /v1 behind JWT authentication.  The Redis client may be nil; in that
// case idempotent replay and the snapshot rate limiter are disabled and
// requests pass straight through.
func RegisterPlans(e *echo.Echo, h *handler.PlanHandler, cfg config.Config, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(cfg.JWTSecret))
	// Owners edit their own plans; editors are collaborators invited by
	// the identity service.  Both roles pass here — per-plan ownership is
	// checked in the handlers.
	v1.Use(middleware.RequireRole("OWNER", "EDITOR"))

	v1.POST("/plans", h.CreatePlan)
	v1.GET("/plans/:id", h.GetPlan)

	// The batch route carries the optional Idempotency-Key replay cache:
	// a retried submission with the same key returns the stored response
	// instead of attempting a second commit.
	v1.POST("/plans/:id/batch", h.ApplyBatch, middleware.Idempotency(rdb, cfg.IdempotencyTTL))

	v1.POST("/plans/:id/lock", h.AcquireLock)
	v1.DELETE("/plans/:id/lock", h.ReleaseLock)

	// Manual snapshots are rate limited per user; automatic snapshots
	// from the scheduler bypass this entirely.
	v1.POST("/plans/:id/snapshots", h.CreateSnapshot, middleware.SnapshotRateLimit(rlCfg, rdb))
	v1.GET("/plans/:id/snapshots", h.ListSnapshots)
	v1.POST("/plans/:id/snapshots/:snapshot_id/restore", h.RestoreSnapshot)
}
