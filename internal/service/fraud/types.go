package fraud

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CheckType identifies which signal produced a FraudCheck
type CheckType string

const (
	CheckContentDuplicate    CheckType = "content_duplicate"
	CheckDeviceAbuse         CheckType = "device_abuse"
	CheckTemporalPattern     CheckType = "temporal_pattern"
	CheckLocationMismatch    CheckType = "location_mismatch"
	CheckContextMismatch     CheckType = "context_mismatch"
	CheckSubmissionFrequency CheckType = "submission_frequency"
	CheckVoiceSynthetic      CheckType = "voice_synthetic"
	CheckAnalysisDegraded    CheckType = "analysis_degraded"
)

// Severity represents the severity level of a fraud indicator
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Recommendation is the engine's terminal verdict for a session
type Recommendation string

const (
	RecommendAccept Recommendation = "accept"
	RecommendReview Recommendation = "review"
	RecommendReject Recommendation = "reject"
)

// MatchType classifies how two submissions were found to be related
type MatchType string

const (
	MatchExact      MatchType = "exact"
	MatchFuzzy      MatchType = "fuzzy"
	MatchSemantic   MatchType = "semantic"
	MatchStructural MatchType = "structural"
)

// FraudCheck is one signal's verdict for a session. Immutable after creation.
type FraudCheck struct {
	Type        CheckType `json:"type"`
	Score       float64   `json:"score"`      // 0.0 - 1.0
	Confidence  float64   `json:"confidence"` // 0.0 - 1.0
	Severity    Severity  `json:"severity"`
	Description string    `json:"description"`
	Evidence    Evidence  `json:"evidence,omitempty"`
}

// FraudFlag is a surfaced warning derived from a check whose score crossed
// the flag threshold.
type FraudFlag struct {
	Type        CheckType `json:"type"`
	Severity    Severity  `json:"severity"`
	Confidence  float64   `json:"confidence"`
	Description string    `json:"description"`
	Evidence    Evidence  `json:"evidence,omitempty"`
}

// UnmarshalJSON decodes a persisted check. Typed evidence variants come
// back as their generic map form; consumers read the wire keys, not the
// Go types.
func (c *FraudCheck) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type        CheckType       `json:"type"`
		Score       float64         `json:"score"`
		Confidence  float64         `json:"confidence"`
		Severity    Severity        `json:"severity"`
		Description string          `json:"description"`
		Evidence    GenericEvidence `json:"evidence,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Type = raw.Type
	c.Score = raw.Score
	c.Confidence = raw.Confidence
	c.Severity = raw.Severity
	c.Description = raw.Description
	c.Evidence = nil
	if raw.Evidence != nil {
		c.Evidence = raw.Evidence
	}
	return nil
}

// UnmarshalJSON decodes a persisted flag; see FraudCheck.UnmarshalJSON
func (f *FraudFlag) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type        CheckType       `json:"type"`
		Severity    Severity        `json:"severity"`
		Confidence  float64         `json:"confidence"`
		Description string          `json:"description"`
		Evidence    GenericEvidence `json:"evidence,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.Type = raw.Type
	f.Severity = raw.Severity
	f.Confidence = raw.Confidence
	f.Description = raw.Description
	f.Evidence = nil
	if raw.Evidence != nil {
		f.Evidence = raw.Evidence
	}
	return nil
}

// AnalysisResult is the final fraud verdict for a session
type AnalysisResult struct {
	ID               uuid.UUID      `json:"id"`
	SessionID        uuid.UUID      `json:"session_id"`
	OverallRiskScore float64        `json:"overall_risk_score"`
	Confidence       float64        `json:"confidence"`
	Recommendation   Recommendation `json:"recommendation"`
	Flags            []FraudFlag    `json:"flags"`
	Checks           []FraudCheck   `json:"checks"`
	AnalyzedAt       time.Time      `json:"analyzed_at"`
	Duration         time.Duration  `json:"duration"`
}

// DuplicateMatch is evidence that two submissions are related
type DuplicateMatch struct {
	SessionID       uuid.UUID     `json:"sessionId"`
	Similarity      float64       `json:"similarity"` // 0.0 - 1.0
	Type            MatchType     `json:"matchType"`
	Confidence      float64       `json:"confidence"`
	MatchedSegments []string      `json:"matchedSegments,omitempty"`
	TimeDelta       time.Duration `json:"timeDelta"`
}

// ContentPattern is a recurring template phrase observed across sessions.
// Mutated in place as the same template recurs.
type ContentPattern struct {
	Text       string      `json:"text"`
	Count      int         `json:"count"`
	SessionIDs []uuid.UUID `json:"sessionIds"`
	Confidence float64     `json:"confidence"`
	FirstSeen  time.Time   `json:"firstSeen"`
	LastSeen   time.Time   `json:"lastSeen"`
}

// Normalization is the canonicalized view of one transcript. Created per
// analysis call; never persisted.
type Normalization struct {
	Original   string   // untouched display text
	Cleaned    string   // lowercased, punctuation stripped, whitespace collapsed
	Normalized string   // Cleaned with å/ä/ö folded for matching
	Phonetic   string   // cheap rule-based phonetic form
	Structural string   // words and digit runs replaced by placeholders
	Stems      []string // stemmed, stop-word-filtered tokens
	Keywords   []string // stop-word-filtered tokens before stemming
}

// WordCount returns the token count of the normalized text
func (n *Normalization) WordCount() int {
	if n.Normalized == "" {
		return 0
	}
	count := 1
	for i := 0; i < len(n.Normalized); i++ {
		if n.Normalized[i] == ' ' {
			count++
		}
	}
	return count
}

// Fingerprint is the comparable multi-hash signature of one submission
type Fingerprint struct {
	ExactHash      string    `json:"exactHash"`
	PhoneticHash   string    `json:"phoneticHash"`
	SemanticHash   string    `json:"semanticHash"`
	StructuralHash string    `json:"structuralHash"`
	KeywordHash    string    `json:"keywordHash"`
	Length         int       `json:"length"`
	WordCount      int       `json:"wordCount"`
	Timestamp      time.Time `json:"timestamp"`
}
