package fraud

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func historyEntry(id uuid.UUID, normalized string, ts time.Time) *HistoryEntry {
	norm := &Normalization{Normalized: normalized}
	return &HistoryEntry{
		SessionID:   id,
		Fingerprint: NewFingerprint(norm, ts),
		Normalized:  normalized,
		Timestamp:   ts,
	}
}

func TestHistoryStore_PutAndSnapshot(t *testing.T) {
	store := NewHistoryStore(10)
	a, b := uuid.New(), uuid.New()
	now := time.Now()

	store.Put(historyEntry(a, "bra service", now))
	store.Put(historyEntry(b, "trevlig personal", now))
	assert.Equal(t, 2, store.Len())

	snap := store.Snapshot(a)
	assert.Len(t, snap, 1)
	assert.Equal(t, b, snap[0].SessionID)
}

func TestHistoryStore_ReplacesSameSession(t *testing.T) {
	store := NewHistoryStore(10)
	id := uuid.New()
	now := time.Now()

	store.Put(historyEntry(id, "första texten", now))
	store.Put(historyEntry(id, "andra texten", now.Add(time.Minute)))

	assert.Equal(t, 1, store.Len())
	snap := store.Snapshot(uuid.Nil)
	assert.Equal(t, "andra texten", snap[0].Normalized)
}

func TestHistoryStore_EvictsOldestWhenFull(t *testing.T) {
	store := NewHistoryStore(3)
	now := time.Now()

	first := uuid.New()
	store.Put(historyEntry(first, "text 0", now))
	for i := 1; i < 4; i++ {
		store.Put(historyEntry(uuid.New(), fmt.Sprintf("text %d", i), now.Add(time.Duration(i)*time.Second)))
	}

	assert.Equal(t, 3, store.Len())
	for _, entry := range store.Snapshot(uuid.Nil) {
		assert.NotEqual(t, first, entry.SessionID)
	}
}

func TestHistoryStore_Sweep(t *testing.T) {
	store := NewHistoryStore(10)
	now := time.Now()

	store.Put(historyEntry(uuid.New(), "gammal text", now.Add(-48*time.Hour)))
	store.Put(historyEntry(uuid.New(), "farsk text", now))

	removed := store.Sweep(24 * time.Hour)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, "farsk text", store.Snapshot(uuid.Nil)[0].Normalized)
}

func TestPatternStore_Record(t *testing.T) {
	store := NewPatternStore()
	now := time.Now()

	var p ContentPattern
	for i := 0; i < 3; i++ {
		p = store.Record("jag tycker att maten ar god", uuid.New(), now.Add(time.Duration(i)*time.Minute))
	}

	assert.Equal(t, 3, p.Count)
	assert.Len(t, p.SessionIDs, 3)
	assert.Equal(t, now, p.FirstSeen)
	assert.InDelta(t, 0.6, p.Confidence, 0.001)
	assert.Equal(t, 1, store.Len())

	other := store.Record("personalen var trevlig", uuid.New(), now)
	assert.Equal(t, 1, other.Count)
	assert.Equal(t, 2, store.Len())
}

func TestPatternStore_RecordIgnoresRepeatedSession(t *testing.T) {
	store := NewPatternStore()
	now := time.Now()
	session := uuid.New()

	var p ContentPattern
	for i := 0; i < 3; i++ {
		p = store.Record("jag tycker att maten ar god", session, now.Add(time.Duration(i)*time.Minute))
	}

	// Re-analyzing one session must not inflate the pattern.
	assert.Equal(t, 1, p.Count)
	assert.Len(t, p.SessionIDs, 1)
	assert.InDelta(t, 0.2, p.Confidence, 0.001)

	p = store.Record("jag tycker att maten ar god", uuid.New(), now)
	assert.Equal(t, 2, p.Count)
}

func TestPatternStore_ConfidenceCapsAtOne(t *testing.T) {
	store := NewPatternStore()
	now := time.Now()

	var p ContentPattern
	for i := 0; i < 8; i++ {
		p = store.Record("allt var bra och billigt", uuid.New(), now)
	}
	assert.Equal(t, 1.0, p.Confidence)
}
