// Package repository persists seating plans and their snapshot history.
// It defines sentinel error values shared by every store implementation
// so handlers can translate failures without knowing which backend is in
// use.  ErrVersionConflict in particular is the storage-level face of the
// optimistic concurrency contract: it means the compare-and-swap commit
// lost to another writer and the caller must reload.
package repository

import "errors"

// ErrPlanNotFound is returned when a plan ID does not exist.  Handlers
// should translate this into an HTTP 404 response.
var ErrPlanNotFound = errors.New("plan not found")

// ErrSnapshotNotFound is returned when a snapshot ID does not exist or
// belongs to a different plan. Handlers should translate this into an
// HTTP 404 response.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ErrVersionConflict is returned when a commit's expected version no
// longer matches the stored version. Handlers should translate this into
// an HTTP 409 response distinguishable from validation failures.
var ErrVersionConflict = errors.New("version conflict")

// ErrForbidden is returned when the caller attempts an operation on a
// plan they do not own. Handlers should translate this into an HTTP 403
// response.
var ErrForbidden = errors.New("forbidden")
