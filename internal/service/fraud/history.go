package fraud

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// HistoryEntry is one prior submission retained for comparison. The
// normalized text, keyword set and structural form are kept alongside the
// fingerprint so fuzzy, semantic and structural matching stay live instead
// of degrading to hash-equality only.
type HistoryEntry struct {
	SessionID   uuid.UUID
	Fingerprint *Fingerprint
	Normalized  string
	Structural  string
	Keywords    []string
	Timestamp   time.Time
}

// HistoryStore is the bounded, TTL-evicted store of past fingerprints
// shared across analysis calls. One mutex guards the whole
// read-compare-insert sequence; callers hold it only long enough to copy
// the entries they need.
type HistoryStore struct {
	mu         sync.RWMutex
	entries    map[uuid.UUID]*HistoryEntry
	order      []uuid.UUID // insertion order, oldest first
	maxEntries int
}

// NewHistoryStore creates a store bounded to maxEntries fingerprints
func NewHistoryStore(maxEntries int) *HistoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxHistoryEntries
	}
	return &HistoryStore{
		entries:    make(map[uuid.UUID]*HistoryEntry),
		maxEntries: maxEntries,
	}
}

// Put inserts or replaces the entry for a session, evicting the oldest
// entry when the store is full.
func (s *HistoryStore) Put(entry *HistoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[entry.SessionID]; !exists {
		for len(s.order) >= s.maxEntries {
			oldest := s.order[0]
			s.order = s.order[1:]
			delete(s.entries, oldest)
		}
		s.order = append(s.order, entry.SessionID)
	}
	s.entries[entry.SessionID] = entry
}

// Snapshot returns the current entries, excluding the given session so a
// submission never matches itself.
func (s *HistoryStore) Snapshot(exclude uuid.UUID) []*HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*HistoryEntry, 0, len(s.entries))
	for id, entry := range s.entries {
		if id == exclude {
			continue
		}
		out = append(out, entry)
	}
	return out
}

// Len returns the number of retained fingerprints
func (s *HistoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Sweep evicts entries older than maxAge and returns how many were removed
func (s *HistoryStore) Sweep(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	kept := s.order[:0]
	for _, id := range s.order {
		entry, ok := s.entries[id]
		if !ok {
			continue
		}
		if entry.Timestamp.Before(cutoff) {
			delete(s.entries, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return removed
}

// StartSweeper runs periodic TTL eviction until the context is cancelled
func (s *HistoryStore) StartSweeper(ctx context.Context, interval, maxAge time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := s.Sweep(maxAge); removed > 0 && logger != nil {
					logger.Debug("history sweep evicted fingerprints",
						"removed", removed,
						"remaining", s.Len())
				}
			}
		}
	}()
}

// PatternStore tracks recurring template phrases across sessions. Patterns
// are mutated in place as they recur; the corpus bound on literal template
// matches keeps the map small in practice.
type PatternStore struct {
	mu       sync.Mutex
	patterns map[string]*ContentPattern
}

// NewPatternStore creates an empty pattern store
func NewPatternStore() *PatternStore {
	return &PatternStore{patterns: make(map[string]*ContentPattern)}
}

// Record increments the occurrence count for a literal matched template
// string and returns a copy of the updated pattern.
func (s *PatternStore) Record(text string, sessionID uuid.UUID, now time.Time) ContentPattern {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.patterns[text]
	if !ok {
		p = &ContentPattern{Text: text, FirstSeen: now}
		s.patterns[text] = p
	}
	for _, seen := range p.SessionIDs {
		if seen == sessionID {
			// Re-analysis of one session must not promote its own template
			return *p
		}
	}
	p.Count++
	p.SessionIDs = append(p.SessionIDs, sessionID)
	p.LastSeen = now
	p.Confidence = minFloat(1.0, float64(p.Count)/5.0)
	return *p
}

// Len returns the number of distinct patterns seen
func (s *PatternStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.patterns)
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
