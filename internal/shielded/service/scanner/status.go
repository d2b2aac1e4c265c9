package scanner

import (
	"sync"
	"time"

	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/shielded/model"
)

// Snapshot is a read-only view of scanner progress for the ops endpoints.
type Snapshot struct {
	Coin           model.Coin    `json:"coin"`
	Network        model.Network `json:"network"`
	Cursor         uint64        `json:"cursor"`
	Tip            uint64        `json:"tip"`
	Tracked        int           `json:"tracked"`
	PendingRetries int           `json:"pendingRetries"`
	LastError      string        `json:"lastError,omitempty"`
	LastErrorAt    *time.Time    `json:"lastErrorAt,omitempty"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

type status struct {
	mu   sync.RWMutex
	snap Snapshot
}

func newStatus(coin model.Coin, network model.Network) *status {
	return &status{snap: Snapshot{Coin: coin, Network: network}}
}

func (s *status) snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.snap
	if snap.LastErrorAt != nil {
		at := *snap.LastErrorAt
		snap.LastErrorAt = &at
	}
	return snap
}

func (s *status) setTip(tip uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Tip = tip
	s.snap.UpdatedAt = time.Now()
}

func (s *status) setProgress(cursor uint64, tracked, pending int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Cursor = cursor
	s.snap.Tracked = tracked
	s.snap.PendingRetries = pending
	s.snap.UpdatedAt = time.Now()
}

func (s *status) setError(err error, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.LastError = err.Error()
	s.snap.LastErrorAt = &at
	s.snap.UpdatedAt = at
}
