package handler

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreParams(planID uint64, snapshotID string) map[string]string {
	return map[string]string{
		"id":          fmt.Sprintf("%d", planID),
		"snapshot_id": snapshotID,
	}
}

func (f *fixture) applyOps(t *testing.T, planID uint64, expected uint64, ops string) {
	t.Helper()
	body := fmt.Sprintf(`{"expected_version":%d,"operations":[%s]}`, expected, ops)
	rec, _ := f.invoke(t, f.h.ApplyBatch, http.MethodPost, body, ownerID, planParams(planID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestManualSnapshotAndListing(t *testing.T) {
	f := newFixture(t)
	id := f.createPlan(t)
	f.applyOps(t, id, 0, `{"op":"add_guest","name":"Ann"}`)

	rec, out := f.invoke(t, f.h.CreateSnapshot, http.MethodPost, `{"label":"draft one"}`, ownerID, planParams(id))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "draft one", out["label"])
	assert.Equal(t, true, out["is_manual"])
	assert.Equal(t, float64(1), out["version"])
	firstID := out["id"].(string)
	assert.NotEmpty(t, firstID)
	assert.NotContains(t, out, "previous_snapshot_id")

	f.applyOps(t, id, 1, `{"op":"add_guest","name":"Ben"}`)
	rec, out = f.invoke(t, f.h.CreateSnapshot, http.MethodPost, `{}`, ownerID, planParams(id))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, firstID, out["previous_snapshot_id"], "snapshots chain to their predecessor")

	rec, out = f.invoke(t, f.h.ListSnapshots, http.MethodGet, "", ownerID, planParams(id))
	require.Equal(t, http.StatusOK, rec.Code)
	snaps := out["snapshots"].([]any)
	require.Len(t, snaps, 2)
	newest := snaps[0].(map[string]any)
	assert.Equal(t, float64(2), newest["version"])
	// Listings are metadata only.
	assert.NotContains(t, newest, "content")
	assert.NotContains(t, newest, "tables")
}

func TestRestoreSnapshotCommitsNewVersion(t *testing.T) {
	f := newFixture(t)
	id := f.createPlan(t)
	f.applyOps(t, id, 0, `{"op":"add_guest","name":"Ann"}`)

	rec, out := f.invoke(t, f.h.CreateSnapshot, http.MethodPost, `{"label":"just Ann"}`, ownerID, planParams(id))
	require.Equal(t, http.StatusCreated, rec.Code)
	snapID := out["id"].(string)

	// Keep editing past the snapshot.
	f.applyOps(t, id, 1, `{"op":"add_guest","name":"Ben"},{"op":"add_guest","name":"Cleo"}`)

	rec, out = f.invoke(t, f.h.RestoreSnapshot, http.MethodPost, `{"expected_version":2}`, ownerID, restoreParams(id, snapID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	// Restore moves forward: version 3 with the old content.
	assert.Equal(t, float64(3), out["new_version"])
	assert.Equal(t, snapID, out["restored_from"])
	doc := out["document"].(map[string]any)
	guests := doc["guests"].([]any)
	require.Len(t, guests, 1)
	assert.Equal(t, "Ann", guests[0].(map[string]any)["name"])

	// The restore itself is recorded as a snapshot.
	record := out["snapshot"].(map[string]any)
	assert.Equal(t, fmt.Sprintf("restored from %s", snapID), record["label"])
	assert.Equal(t, true, record["is_manual"])

	stored, err := f.store.LoadCurrent(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), stored.Version)
	require.Len(t, stored.Guests, 1)
}

func TestRestoreSnapshotVersionConflict(t *testing.T) {
	f := newFixture(t)
	id := f.createPlan(t)
	f.applyOps(t, id, 0, `{"op":"add_guest","name":"Ann"}`)

	rec, out := f.invoke(t, f.h.CreateSnapshot, http.MethodPost, `{}`, ownerID, planParams(id))
	require.Equal(t, http.StatusCreated, rec.Code)
	snapID := out["id"].(string)

	// Stale expected_version: the plan is at 1, not 0.
	rec, out = f.invoke(t, f.h.RestoreSnapshot, http.MethodPost, `{"expected_version":0}`, ownerID, restoreParams(id, snapID))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "version_conflict", out["error"])
}

func TestRestoreSnapshotWrongPlan(t *testing.T) {
	f := newFixture(t)
	first := f.createPlan(t)
	second := f.createPlan(t)
	f.applyOps(t, first, 0, `{"op":"add_guest","name":"Ann"}`)

	rec, out := f.invoke(t, f.h.CreateSnapshot, http.MethodPost, `{}`, ownerID, planParams(first))
	require.Equal(t, http.StatusCreated, rec.Code)
	snapID := out["id"].(string)

	// A snapshot belonging to another plan reads as missing.
	rec, out = f.invoke(t, f.h.RestoreSnapshot, http.MethodPost, `{"expected_version":0}`, ownerID, restoreParams(second, snapID))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "snapshot_not_found", out["error"])
}

func TestRestoreSnapshotUnknownID(t *testing.T) {
	f := newFixture(t)
	id := f.createPlan(t)
	rec, out := f.invoke(t, f.h.RestoreSnapshot, http.MethodPost, `{"expected_version":0}`, ownerID, restoreParams(id, "nope"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "snapshot_not_found", out["error"])
}
