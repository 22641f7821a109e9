package indexer

import (
	"sync"
	"sync/atomic"
	"time"
)

// State is the indexer lifecycle position.
type State string

const (
	StateStopped  State = "stopped"
	StateScanning State = "scanning"
	StateIdle     State = "idle"
)

// Snapshot is one immutable view of indexer health. Counters describe the
// last completed pass.
type Snapshot struct {
	Ready        bool          `json:"ready"`
	State        State         `json:"state"`
	ScanID       string        `json:"scan_id,omitempty"`
	LastScanAt   time.Time     `json:"last_scan_at"`
	ScannedFiles int           `json:"scanned_files"`
	IndexedFiles int           `json:"indexed_files"`
	SkippedFiles int           `json:"skipped_files"`
	DeletedFiles int           `json:"deleted_files"`
	Errors       int           `json:"errors"`
	LastDuration time.Duration `json:"last_duration_ns"`
}

// Status publishes snapshots. Writers are serialized by mu so a state
// change never drops counters published concurrently. Readers never lock
// and always observe a whole snapshot.
type Status struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
}

// NewStatus returns a status in the stopped, not-ready state.
func NewStatus() *Status {
	s := &Status{}
	s.current.Store(&Snapshot{State: StateStopped})
	return s
}

// Snapshot returns a copy of the current snapshot.
func (s *Status) Snapshot() Snapshot {
	return *s.current.Load()
}

func (s *Status) publish(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Store(&snapshot)
}

// setState swaps in a copy of the current snapshot with a new state.
func (s *Status) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := *s.current.Load()
	next.State = state
	s.current.Store(&next)
}
