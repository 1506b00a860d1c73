package fraud

import "time"

// Duplicate detector defaults
const (
	// ExactMatchScore is the fixed risk score for an exact content duplicate
	ExactMatchScore = 0.95

	// DefaultFuzzyThreshold is the minimum fuzzy similarity for a match
	DefaultFuzzyThreshold = 0.85

	// DefaultSemanticThreshold is the minimum keyword/synonym overlap for a match
	DefaultSemanticThreshold = 0.90

	// DefaultStructuralThreshold is the minimum structural similarity for a match
	DefaultStructuralThreshold = 0.80

	// DefaultMinPatternOccurrences is how often a template must recur before
	// it is reported as suspicious
	DefaultMinPatternOccurrences = 3

	// DefaultSuspiciousTimeWindow is the recency window that adds a bonus to
	// duplicate risk
	DefaultSuspiciousTimeWindow = 10 * time.Minute

	// SynonymMatchWeight discounts keyword matches made through the synonym table
	SynonymMatchWeight = 0.8
)

// Duplicate risk contribution caps
const (
	FuzzyContribution      = 0.7
	SemanticContribution   = 0.6
	StructuralContribution = 0.5
	PatternContribution    = 0.4
	RecencyContribution    = 0.3
)

// Signal check defaults
const (
	DefaultMaxSubmissionsPerHour  = 3
	DefaultRapidFireGap           = 2 * time.Minute
	DefaultImpossibleTravelWindow = time.Hour
	DefaultLocationChurnLimit     = 5
	DefaultHighDailyRate          = 5.0
	DefaultModerateDailyRate      = 2.0
	DefaultBurstWindow            = 10 * time.Minute
	DefaultBurstSize              = 3

	// MinHistoryForConfidence is how many prior data points a history-based
	// check needs before its confidence rises above SparseHistoryConfidence
	MinHistoryForConfidence  = 2
	SparseHistoryConfidence  = 0.4
	RegularIntervalMinSample = 3
)

// Screen resolution sanity bounds for the device check
const (
	MinScreenWidth  = 800
	MinScreenHeight = 600
	MaxScreenWidth  = 4000
	MaxScreenHeight = 3000
)

// Severity breakpoints
const (
	// Duplicate detector breakpoints
	DuplicateSeverityMedium = 0.5
	DuplicateSeverityHigh   = 0.8

	// Signal check breakpoints
	SignalSeverityMedium = 0.3
	SignalSeverityHigh   = 0.6
)

// Fusion and recommendation defaults
const (
	DefaultFlagThreshold          = 0.3
	DefaultConservativeMultiplier = 1.3
	DefaultWeight                 = 0.3

	RejectOverallThreshold     = 0.8
	RejectFlagConfidence       = 0.8
	ReviewOverallThreshold     = 0.5
	ReviewFlagCount            = 2
	VoiceFlagConfidence        = 0.7
	VoiceRejectThreshold       = 0.6
	FallbackRiskScore          = 0.3
	PlaceholderVoiceScore      = 0.1
	PlaceholderVoiceConfidence = 0.3

	// CheckCount is how many independent checks one analysis can run
	CheckCount = 6
)

// History store defaults
const (
	DefaultMaxFingerprintAge = 24 * time.Hour
	DefaultSweepInterval     = time.Hour
	DefaultMaxHistoryEntries = 10000
)
