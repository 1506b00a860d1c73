package fraud

import (
	"time"

	"github.com/kundrost/feedback-rewards-backend/internal/domain/errors"
)

// DetectionConfig holds all tunable thresholds and weights. Loaded at
// startup from the application config; may be hot-swapped through
// Service.UpdateConfig.
type DetectionConfig struct {
	// Duplicate detector thresholds
	FuzzyMatchThreshold      float64       `koanf:"fuzzy_match_threshold" json:"fuzzy_match_threshold"`
	SemanticMatchThreshold   float64       `koanf:"semantic_match_threshold" json:"semantic_match_threshold"`
	StructuralMatchThreshold float64       `koanf:"structural_match_threshold" json:"structural_match_threshold"`
	MinPatternOccurrences    int           `koanf:"min_pattern_occurrences" json:"min_pattern_occurrences"`
	SuspiciousTimeWindow     time.Duration `koanf:"suspicious_time_window" json:"suspicious_time_window"`

	// Conservative mode inflates every risk score to bias toward flagging
	ConservativeMode       bool    `koanf:"conservative_mode" json:"conservative_mode"`
	ConservativeMultiplier float64 `koanf:"conservative_multiplier" json:"conservative_multiplier"`

	// Signal check tuning
	MaxSubmissionsPerHour  int           `koanf:"max_submissions_per_hour" json:"max_submissions_per_hour"`
	RapidFireGap           time.Duration `koanf:"rapid_fire_gap" json:"rapid_fire_gap"`
	ImpossibleTravelWindow time.Duration `koanf:"impossible_travel_window" json:"impossible_travel_window"`
	LocationChurnLimit     int           `koanf:"location_churn_limit" json:"location_churn_limit"`
	HighDailyRate          float64       `koanf:"high_daily_rate" json:"high_daily_rate"`
	ModerateDailyRate      float64       `koanf:"moderate_daily_rate" json:"moderate_daily_rate"`
	BurstWindow            time.Duration `koanf:"burst_window" json:"burst_window"`
	BurstSize              int           `koanf:"burst_size" json:"burst_size"`

	// Fusion
	FlagThreshold float64            `koanf:"flag_threshold" json:"flag_threshold"`
	Weights       map[string]float64 `koanf:"weights" json:"weights"`

	// History store
	MaxFingerprintAge time.Duration `koanf:"max_fingerprint_age" json:"max_fingerprint_age"`
	SweepInterval     time.Duration `koanf:"sweep_interval" json:"sweep_interval"`
	MaxHistoryEntries int           `koanf:"max_history_entries" json:"max_history_entries"`
}

// DefaultDetectionConfig returns the production defaults. Conservative mode
// ships enabled: the platform pays cash and a borderline case should land in
// review, not in a payout.
func DefaultDetectionConfig() *DetectionConfig {
	return &DetectionConfig{
		FuzzyMatchThreshold:      DefaultFuzzyThreshold,
		SemanticMatchThreshold:   DefaultSemanticThreshold,
		StructuralMatchThreshold: DefaultStructuralThreshold,
		MinPatternOccurrences:    DefaultMinPatternOccurrences,
		SuspiciousTimeWindow:     DefaultSuspiciousTimeWindow,
		ConservativeMode:         true,
		ConservativeMultiplier:   DefaultConservativeMultiplier,
		MaxSubmissionsPerHour:    DefaultMaxSubmissionsPerHour,
		RapidFireGap:             DefaultRapidFireGap,
		ImpossibleTravelWindow:   DefaultImpossibleTravelWindow,
		LocationChurnLimit:       DefaultLocationChurnLimit,
		HighDailyRate:            DefaultHighDailyRate,
		ModerateDailyRate:        DefaultModerateDailyRate,
		BurstWindow:              DefaultBurstWindow,
		BurstSize:                DefaultBurstSize,
		FlagThreshold:            DefaultFlagThreshold,
		Weights: map[string]float64{
			string(CheckContentDuplicate): 0.8,
			string(CheckDeviceAbuse):      0.7,
			string(CheckTemporalPattern):  0.6,
			string(CheckVoiceSynthetic):   0.8,
			string(CheckLocationMismatch): 0.5,
			string(CheckContextMismatch):  0.4,
		},
		MaxFingerprintAge: DefaultMaxFingerprintAge,
		SweepInterval:     DefaultSweepInterval,
		MaxHistoryEntries: DefaultMaxHistoryEntries,
	}
}

// Validate checks the config for values that would break score invariants
func (c *DetectionConfig) Validate() error {
	if c.ConservativeMultiplier < 1.0 {
		return errors.NewValidationError("INVALID_MULTIPLIER", "conservative multiplier must not reduce scores")
	}
	for _, t := range []float64{c.FuzzyMatchThreshold, c.SemanticMatchThreshold, c.StructuralMatchThreshold, c.FlagThreshold} {
		if t < 0 || t > 1 {
			return errors.NewValidationError("INVALID_THRESHOLD", "thresholds must be within [0,1]")
		}
	}
	if c.MinPatternOccurrences < 1 {
		return errors.NewValidationError("INVALID_PATTERN_OCCURRENCES", "min pattern occurrences must be positive")
	}
	if c.MaxHistoryEntries < 1 {
		return errors.NewValidationError("INVALID_HISTORY_SIZE", "history store must hold at least one entry")
	}
	return nil
}

// Weight returns the fusion weight for a check type, falling back to the
// default for unlisted types.
func (c *DetectionConfig) Weight(t CheckType) float64 {
	if w, ok := c.Weights[string(t)]; ok {
		return w
	}
	return DefaultWeight
}
