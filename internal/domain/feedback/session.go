package feedback

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kundrost/feedback-rewards-backend/internal/domain/errors"
)

// Session represents a completed voice-feedback session awaiting fraud analysis.
// The transcript has already been produced by the (external) speech pipeline.
type Session struct {
	ID             uuid.UUID          `json:"id"`
	Transcript     string             `json:"transcript"`
	CustomerHash   string             `json:"customer_hash"`
	Device         *DeviceFingerprint `json:"device,omitempty"`
	Timestamp      time.Time          `json:"timestamp"`
	BusinessID     uuid.UUID          `json:"business_id"`
	LocationID     string             `json:"location_id"`
	PurchaseAmount decimal.Decimal    `json:"purchase_amount"`
	AudioData      []byte             `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// NewSession creates a session with required fields populated
func NewSession(transcript, customerHash string, businessID uuid.UUID, locationID string, amount decimal.Decimal) (*Session, error) {
	if customerHash == "" {
		return nil, errors.NewValidationError("MISSING_CUSTOMER_HASH", "customer hash is required")
	}
	now := time.Now()
	return &Session{
		ID:             uuid.New(),
		Transcript:     transcript,
		CustomerHash:   customerHash,
		Timestamp:      now,
		BusinessID:     businessID,
		LocationID:     locationID,
		PurchaseAmount: amount,
		CreatedAt:      now,
	}, nil
}

// HasAudio reports whether the session carries an audio payload for
// voice-pattern analysis.
func (s *Session) HasAudio() bool {
	return len(s.AudioData) > 0
}

// WordCount returns the number of whitespace-separated tokens in the transcript.
func (s *Session) WordCount() int {
	return len(strings.Fields(s.Transcript))
}

// DeviceFingerprint captures browser/device signals collected by the PWA
// at submission time. All fields are best-effort; absence of the whole
// fingerprint lowers check confidence but never blocks analysis.
type DeviceFingerprint struct {
	UserAgent      string `json:"user_agent"`
	ScreenWidth    int    `json:"screen_width"`
	ScreenHeight   int    `json:"screen_height"`
	CookiesEnabled bool   `json:"cookies_enabled"`
	DoNotTrack     bool   `json:"do_not_track"`
	Language       string `json:"language,omitempty"`
	Timezone       string `json:"timezone,omitempty"`
}

// BusinessContext describes what kind of business a session claims to be
// about. Consumed read-only by the context-authenticity check.
type BusinessContext struct {
	BusinessID  uuid.UUID `json:"business_id"`
	Type        string    `json:"type"` // "cafe", "restaurang", "butik", ...
	KnownIssues []string  `json:"known_issues,omitempty"`
	Strengths   []string  `json:"strengths,omitempty"`
	Departments []string  `json:"departments,omitempty"`
}

// Submission is one historical submission record for a customer hash,
// owned by the session pipeline and served through the history provider.
type Submission struct {
	SessionID  uuid.UUID `json:"session_id"`
	LocationID string    `json:"location_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// LocationVisit is one historical location sighting for a customer hash.
type LocationVisit struct {
	LocationID string    `json:"location_id"`
	Timestamp  time.Time `json:"timestamp"`
}
