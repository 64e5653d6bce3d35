package engine

import (
	"sync"
	"time"
)

// SnapshotScheduler decides when an automatic snapshot is due: after a
// number of applied operations or after elapsed time since the last
// snapshot, whichever comes first.  It is pure policy – it never touches
// storage; the handler creates the snapshot when NoteCommit reports one
// is due.  Safe for concurrent use.
type SnapshotScheduler struct {
	mu       sync.Mutex
	everyOps int
	every    time.Duration
	plans    map[uint64]*planWindow
	now      func() time.Time
}

type planWindow struct {
	ops   int       // operations applied since the last snapshot
	since time.Time // when the current window opened
}

// NewSnapshotScheduler builds a scheduler that triggers after everyOps
// applied operations or every elapsed duration, whichever is reached
// first.  A non-positive threshold disables that trigger.
func NewSnapshotScheduler(everyOps int, every time.Duration) *SnapshotScheduler {
	return &SnapshotScheduler{
		everyOps: everyOps,
		every:    every,
		plans:    make(map[uint64]*planWindow),
		now:      time.Now,
	}
}

// NoteCommit records a committed batch of applied operations and reports
// whether an automatic snapshot is now due.  When it returns true the
// window is reset; the caller is expected to create the snapshot.
func (s *SnapshotScheduler) NoteCommit(planID uint64, applied int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	w, ok := s.plans[planID]
	if !ok {
		w = &planWindow{since: now}
		s.plans[planID] = w
	}
	w.ops += applied
	due := (s.everyOps > 0 && w.ops >= s.everyOps) ||
		(s.every > 0 && now.Sub(w.since) >= s.every)
	if due {
		w.ops = 0
		w.since = now
	}
	return due
}

// NoteSnapshot resets the window after a snapshot created outside the
// automatic policy (manual request or restore), so the next automatic
// snapshot is counted from that point.
func (s *SnapshotScheduler) NoteSnapshot(planID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[planID] = &planWindow{since: s.now()}
}
