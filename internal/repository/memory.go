package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkarlsen/seatplanner/internal/model"
)

// MemoryStore is an in-process plan and snapshot store with the same
// compare-and-swap semantics as the MySQL repositories.  It backs the
// STORAGE_DRIVER=memory mode for local development and the test suite.
// Every document crossing the boundary is deep-copied, so callers can
// never reach the stored state except through Commit.
type MemoryStore struct {
	mu     sync.Mutex
	nextID uint64
	plans  map[uint64]*memPlan
	snaps  map[uint64][]model.Snapshot // per plan, oldest first
	byID   map[string]model.Snapshot
	now    func() time.Time
}

type memPlan struct {
	ownerID uint64
	title   string
	doc     model.PlanDocument
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID: 1,
		plans:  make(map[uint64]*memPlan),
		snaps:  make(map[uint64][]model.Snapshot),
		byID:   make(map[string]model.Snapshot),
		now:    time.Now,
	}
}

// Create inserts an empty plan at version 0 and returns its ID.
func (s *MemoryStore) Create(_ context.Context, ownerID uint64, title string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.plans[id] = &memPlan{
		ownerID: ownerID,
		title:   title,
		doc: model.PlanDocument{
			PlanContent: model.PlanContent{Tables: []model.Table{}, Guests: []model.Guest{}},
		},
	}
	return id, nil
}

// LoadCurrent returns a detached copy of the committed document.
func (s *MemoryStore) LoadCurrent(_ context.Context, planID uint64) (*model.PlanDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[planID]
	if !ok {
		return nil, ErrPlanNotFound
	}
	return p.doc.Clone(), nil
}

// Commit installs doc as the new current document iff the stored version
// still equals expectedVersion.  The check and the write happen under one
// mutex hold, mirroring the single atomic UPDATE of the MySQL repo.
func (s *MemoryStore) Commit(_ context.Context, planID, expectedVersion uint64, doc *model.PlanDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[planID]
	if !ok {
		return ErrPlanNotFound
	}
	if p.doc.Version != expectedVersion {
		return ErrVersionConflict
	}
	stored := doc.Clone()
	stored.Version = expectedVersion + 1
	p.doc = *stored
	return nil
}

// IsOwner reports whether the user owns the plan.
func (s *MemoryStore) IsOwner(_ context.Context, planID, userID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[planID]
	if !ok {
		return false, ErrPlanNotFound
	}
	return p.ownerID == userID, nil
}

// CreateSnapshot appends an immutable snapshot row.
func (s *MemoryStore) CreateSnapshot(_ context.Context, snap model.Snapshot) (model.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap.ID = uuid.NewString()
	snap.CreatedAt = s.now().UTC()
	snap.Content = snap.Content.Clone()
	s.snaps[snap.PlanID] = append(s.snaps[snap.PlanID], snap)
	s.byID[snap.ID] = snap
	return snap, nil
}

// GetSnapshot returns one snapshot by ID with a detached content copy.
func (s *MemoryStore) GetSnapshot(_ context.Context, snapshotID string) (*model.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.byID[snapshotID]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	snap.Content = snap.Content.Clone()
	return &snap, nil
}

// ListSnapshots returns all snapshots of a plan, newest first.
func (s *MemoryStore) ListSnapshots(_ context.Context, planID uint64) ([]model.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.snaps[planID]
	out := make([]model.Snapshot, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		snap := stored[i]
		snap.Content = snap.Content.Clone()
		out = append(out, snap)
	}
	return out, nil
}

// LatestSnapshot returns the most recent snapshot, or nil when there is
// none.
func (s *MemoryStore) LatestSnapshot(_ context.Context, planID uint64) (*model.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.snaps[planID]
	if len(stored) == 0 {
		return nil, nil
	}
	snap := stored[len(stored)-1]
	snap.Content = snap.Content.Clone()
	return &snap, nil
}
