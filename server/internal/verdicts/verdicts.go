package verdicts

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/fleetpulse/fleetpulse/pkg/types"
)

// Entry is a cycle report together with the time it was received.
type Entry struct {
	Report     *types.CycleReport
	ReceivedAt time.Time
}

// Store is a thread-safe in-memory verdict store, keyed by sensor id. A
// background goroutine (Run) periodically evicts entries whose monitor has
// stopped reporting — a sensor with no fresh verdict within the TTL simply
// disappears from the live view. Nothing here is durable by design.
type Store struct {
	mu   sync.RWMutex
	data map[string]*Entry
	ttl  time.Duration
	now  func() time.Time // injectable for deterministic tests
}

// New creates a Store with the given TTL.
func New(ttl time.Duration) *Store {
	return &Store{
		data: make(map[string]*Entry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Put stores or replaces the report for rep.SensorID.
// Callers must not modify rep after calling Put.
func (s *Store) Put(rep *types.CycleReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[rep.SensorID] = &Entry{
		Report:     rep,
		ReceivedAt: s.now(),
	}
}

// Get returns the Entry for the given sensor id and whether one was found.
func (s *Store) Get(sensorID string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[sensorID]
	return e, ok
}

// List returns all entries received within the TTL, sorted by sensor id for
// stable rendering. Stale entries not yet evicted are excluded.
func (s *Store) List() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := s.now().Add(-s.ttl)
	out := make([]*Entry, 0, len(s.data))
	for _, e := range s.data {
		if e.ReceivedAt.After(cutoff) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Report.SensorID < out[j].Report.SensorID
	})
	return out
}

// Count returns the total number of entries currently held, including stale ones.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Evict removes entries older than now minus TTL and returns how many were removed.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-s.ttl)
	removed := 0
	for id, e := range s.data {
		if !e.ReceivedAt.After(cutoff) {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}

// Run starts the background TTL eviction loop. It ticks at half the TTL
// interval (minimum 1 second) so silent sensors drop out promptly. Run
// blocks until ctx is cancelled.
func (s *Store) Run(ctx context.Context) {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("verdicts: evicted silent sensors", "count", n)
			}
		}
	}
}
