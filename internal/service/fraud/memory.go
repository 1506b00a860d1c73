package fraud

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kundrost/feedback-rewards-backend/internal/domain/feedback"
)

// MemoryHistoryProvider is an in-process CustomerHistoryProvider for
// single-binary deployments and tests. The session pipeline records each
// accepted submission; the checks read it back.
type MemoryHistoryProvider struct {
	mu          sync.RWMutex
	submissions map[string][]feedback.Submission
	locations   map[string][]feedback.LocationVisit
}

// NewMemoryHistoryProvider creates an empty provider
func NewMemoryHistoryProvider() *MemoryHistoryProvider {
	return &MemoryHistoryProvider{
		submissions: make(map[string][]feedback.Submission),
		locations:   make(map[string][]feedback.LocationVisit),
	}
}

// Record appends one submission and its location sighting
func (p *MemoryHistoryProvider) Record(customerHash string, sessionID uuid.UUID, locationID string, ts time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.submissions[customerHash] = append(p.submissions[customerHash], feedback.Submission{
		SessionID:  sessionID,
		LocationID: locationID,
		Timestamp:  ts,
	})
	p.locations[customerHash] = append(p.locations[customerHash], feedback.LocationVisit{
		LocationID: locationID,
		Timestamp:  ts,
	})
}

// RecentSubmissions returns submissions newer than since, oldest first
func (p *MemoryHistoryProvider) RecentSubmissions(_ context.Context, customerHash string, since time.Time) ([]feedback.Submission, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []feedback.Submission
	for _, s := range p.submissions[customerHash] {
		if s.Timestamp.After(since) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// RecentLocations returns location sightings newer than since, oldest first
func (p *MemoryHistoryProvider) RecentLocations(_ context.Context, customerHash string, since time.Time) ([]feedback.LocationVisit, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []feedback.LocationVisit
	for _, v := range p.locations[customerHash] {
		if v.Timestamp.After(since) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// StaticBusinessProvider serves business contexts from a fixed map
type StaticBusinessProvider struct {
	mu       sync.RWMutex
	contexts map[uuid.UUID]*feedback.BusinessContext
}

// NewStaticBusinessProvider creates a provider over the given contexts
func NewStaticBusinessProvider(contexts map[uuid.UUID]*feedback.BusinessContext) *StaticBusinessProvider {
	if contexts == nil {
		contexts = make(map[uuid.UUID]*feedback.BusinessContext)
	}
	return &StaticBusinessProvider{contexts: contexts}
}

// Put registers or replaces a business context
func (p *StaticBusinessProvider) Put(bizCtx *feedback.BusinessContext) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.contexts[bizCtx.BusinessID] = bizCtx
}

// GetBusinessContext implements BusinessContextProvider
func (p *StaticBusinessProvider) GetBusinessContext(_ context.Context, businessID uuid.UUID) (*feedback.BusinessContext, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	bizCtx, ok := p.contexts[businessID]
	if !ok {
		return nil, nil
	}
	return bizCtx, nil
}
