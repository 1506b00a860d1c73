package fraud

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kundrost/feedback-rewards-backend/internal/domain/feedback"
)

// Service is the fraud risk analysis engine. AnalyzeSession always returns
// a usable result: internal failures degrade to a conservative fallback
// (risk 0.3, review) instead of an error.
type Service interface {
	// AnalyzeSession runs all checks for one completed feedback session
	AnalyzeSession(ctx context.Context, session *feedback.Session) (*AnalysisResult, error)
	// UpdateConfig hot-swaps the detection thresholds and weights
	UpdateConfig(ctx context.Context, cfg *DetectionConfig) error
	// GetResult loads a previously persisted analysis result
	GetResult(ctx context.Context, sessionID uuid.UUID) (*AnalysisResult, error)
	// StartSweeper launches periodic TTL eviction of stored fingerprints
	StartSweeper(ctx context.Context)
}

// BusinessContextProvider looks up what a session's business actually is.
// Consumed read-only by the context-authenticity check.
type BusinessContextProvider interface {
	GetBusinessContext(ctx context.Context, businessID uuid.UUID) (*feedback.BusinessContext, error)
}

// CustomerHistoryProvider serves a customer hash's recent activity. The
// data is owned by the session pipeline; the engine treats it as an
// append-only, non-blocking read interface.
type CustomerHistoryProvider interface {
	// RecentSubmissions returns submissions newer than since, oldest first
	RecentSubmissions(ctx context.Context, customerHash string, since time.Time) ([]feedback.Submission, error)
	// RecentLocations returns location sightings newer than since, oldest first
	RecentLocations(ctx context.Context, customerHash string, since time.Time) ([]feedback.LocationVisit, error)
}

// VoiceAnalyzer is the external synthetic-voice detector. Its internal
// audio-feature algorithm lives outside this engine; only the FraudCheck
// contract matters here.
type VoiceAnalyzer interface {
	AnalyzeVoicePattern(ctx context.Context, audio []byte, sessionID uuid.UUID, customerHash, transcript string) (*FraudCheck, error)
}

// AnalysisRepository persists analysis results for later review. All
// engine call sites are nil-safe: a missing repository only disables
// persistence, never analysis.
type AnalysisRepository interface {
	SaveResult(ctx context.Context, result *AnalysisResult) error
	GetResult(ctx context.Context, sessionID uuid.UUID) (*AnalysisResult, error)
}

// FingerprintMirror is an optional shared fingerprint index (Redis in
// production) that lets several engine instances catch each other's
// replays. Mirror failures degrade detection to local history only.
type FingerprintMirror interface {
	// Store mirrors a fingerprint's exact hash under its session id
	Store(ctx context.Context, exactHash string, sessionID uuid.UUID, ts time.Time, ttl time.Duration) error
	// FindExact returns sessions whose exact hash equals the given one
	FindExact(ctx context.Context, exactHash string) ([]MirrorHit, error)
}

// MirrorHit is one remote fingerprint with a matching exact hash
type MirrorHit struct {
	SessionID uuid.UUID `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}
