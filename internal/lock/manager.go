// Package lock implements the advisory editor lock on a plan.  The lock
// is cooperative: it tells a second editor that someone else is working
// and when their claim lapses, but it never guards correctness – the
// compare-and-swap commit in the repository layer does that.  Expired
// locks are treated as absent by every read path; no sweeper is needed.
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/mkarlsen/seatplanner/internal/engine"
	"github.com/mkarlsen/seatplanner/internal/model"
)

// Manager grants and revokes the single advisory lock per plan.
//
// Acquire succeeds when the lock is absent, expired, or already held by
// the same user (a refresh, extending the expiry).  Acquire by anyone
// else fails with a lock_conflict rejection carrying the holder and
// expiry.  Release by a non-holder – including when no lock is held –
// fails with not_lock_owner.
type Manager interface {
	Acquire(ctx context.Context, planID, userID uint64, ttl time.Duration) (model.LockInfo, error)
	Release(ctx context.Context, planID, userID uint64) error
	// Holder returns the current non-expired lock, or nil when the plan
	// is effectively unlocked.
	Holder(ctx context.Context, planID uint64) (*model.LockInfo, error)
}

// MemoryManager keeps locks in process memory.  It backs the memory
// storage mode and the test suite; deployments with more than one
// replica should use the Redis manager instead.
type MemoryManager struct {
	mu    sync.Mutex
	locks map[uint64]model.LockInfo
	now   func() time.Time
}

// NewMemoryManager returns an empty in-process lock manager.
func NewMemoryManager() *MemoryManager {
	return &MemoryManager{locks: make(map[uint64]model.LockInfo), now: time.Now}
}

// Acquire implements Manager.
func (m *MemoryManager) Acquire(_ context.Context, planID, userID uint64, ttl time.Duration) (model.LockInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if cur, ok := m.locks[planID]; ok && !cur.Expired(now) && cur.HeldBy != userID {
		return model.LockInfo{}, engine.LockConflict(cur.HeldBy, cur.ExpiresAt)
	}
	info := model.LockInfo{PlanID: planID, HeldBy: userID, ExpiresAt: now.Add(ttl)}
	m.locks[planID] = info
	return info, nil
}

// Release implements Manager.
func (m *MemoryManager) Release(_ context.Context, planID, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.locks[planID]
	if !ok || cur.Expired(m.now()) || cur.HeldBy != userID {
		return engine.NotLockOwner()
	}
	delete(m.locks, planID)
	return nil
}

// Holder implements Manager.
func (m *MemoryManager) Holder(_ context.Context, planID uint64) (*model.LockInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.locks[planID]
	if !ok || cur.Expired(m.now()) {
		return nil, nil
	}
	info := cur
	return &info, nil
}
