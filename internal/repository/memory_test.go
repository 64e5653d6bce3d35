package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarlsen/seatplanner/internal/model"
)

func seedPlan(t *testing.T, s *MemoryStore) uint64 {
	t.Helper()
	id, err := s.Create(context.Background(), 100, "reception")
	require.NoError(t, err)
	return id
}

func docWithGuest(name string, version uint64) *model.PlanDocument {
	return &model.PlanDocument{
		PlanContent: model.PlanContent{
			Tables: []model.Table{},
			Guests: []model.Guest{{ID: 1, Name: name}},
		},
		Version: version,
	}
}

func TestMemoryStoreCreateAndLoad(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	id := seedPlan(t, s)

	doc, err := s.LoadCurrent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), doc.Version)
	assert.Empty(t, doc.Tables)
	assert.Empty(t, doc.Guests)

	_, err = s.LoadCurrent(ctx, 999)
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestMemoryStoreCommitBumpsVersion(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	id := seedPlan(t, s)

	require.NoError(t, s.Commit(ctx, id, 0, docWithGuest("Ann", 1)))
	doc, err := s.LoadCurrent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), doc.Version)
	assert.Equal(t, "Ann", doc.Guests[0].Name)

	// Replaying the same expected version is a conflict.
	err = s.Commit(ctx, id, 0, docWithGuest("Ben", 1))
	assert.ErrorIs(t, err, ErrVersionConflict)

	err = s.Commit(ctx, 999, 0, docWithGuest("Ben", 1))
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestMemoryStoreLoadReturnsDetachedCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	id := seedPlan(t, s)
	require.NoError(t, s.Commit(ctx, id, 0, docWithGuest("Ann", 1)))

	a, err := s.LoadCurrent(ctx, id)
	require.NoError(t, err)
	a.Guests[0].Name = "tampered"

	b, err := s.LoadCurrent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Ann", b.Guests[0].Name, "mutating a loaded copy must not reach the store")
}

func TestMemoryStoreConcurrentCommitsExactlyOneWins(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	id := seedPlan(t, s)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Commit(ctx, id, 0, docWithGuest("racer", 1))
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, ErrVersionConflict)
		}
	}
	assert.Equal(t, 1, winners)

	doc, err := s.LoadCurrent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), doc.Version)
}

func TestMemoryStoreIsOwner(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	id := seedPlan(t, s) // owned by user 100

	ok, err := s.IsOwner(ctx, id, 100)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.IsOwner(ctx, id, 200)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.IsOwner(ctx, 999, 100)
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestMemoryStoreSnapshots(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	id := seedPlan(t, s)

	clock := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	latest, err := s.LatestSnapshot(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, latest)

	first, err := s.CreateSnapshot(ctx, model.Snapshot{
		PlanID:  id,
		Label:   "before rehearsal",
		Version: 1,
		Content: docWithGuest("Ann", 1).PlanContent,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, clock, first.CreatedAt)

	clock = clock.Add(time.Minute)
	second, err := s.CreateSnapshot(ctx, model.Snapshot{
		PlanID:     id,
		IsManual:   true,
		PreviousID: first.ID,
		Version:    2,
		Content:    docWithGuest("Ben", 2).PlanContent,
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	list, err := s.ListSnapshots(ctx, id)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")
	assert.Equal(t, first.ID, list[1].ID)

	latest, err = s.LatestSnapshot(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, second.ID, latest.ID)

	got, err := s.GetSnapshot(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "before rehearsal", got.Label)
	assert.Equal(t, "Ann", got.Content.Guests[0].Name)

	_, err = s.GetSnapshot(ctx, "no-such-snapshot")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestMemoryStoreSnapshotContentIsImmutable(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	id := seedPlan(t, s)

	src := docWithGuest("Ann", 1).PlanContent
	snap, err := s.CreateSnapshot(ctx, model.Snapshot{PlanID: id, Version: 1, Content: src})
	require.NoError(t, err)

	// Neither the caller's input nor a fetched copy can alter the record.
	src.Guests[0].Name = "tampered"
	got, err := s.GetSnapshot(ctx, snap.ID)
	require.NoError(t, err)
	got.Content.Guests[0].Name = "also tampered"

	again, err := s.GetSnapshot(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", again.Content.Guests[0].Name)
}
