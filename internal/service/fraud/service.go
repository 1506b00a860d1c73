package fraud

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kundrost/feedback-rewards-backend/internal/domain/errors"
	"github.com/kundrost/feedback-rewards-backend/internal/domain/feedback"
	"github.com/kundrost/feedback-rewards-backend/internal/metrics"
)

// Deps carries everything the orchestrator needs. Context, history and
// voice providers plus the repository and mirror are optional: missing
// collaborators degrade confidence, never availability.
type Deps struct {
	Tables          *LanguageTables
	History         *HistoryStore
	Patterns        *PatternStore
	Mirror          FingerprintMirror
	BusinessContext BusinessContextProvider
	CustomerHistory CustomerHistoryProvider
	Voice           VoiceAnalyzer
	Repository      AnalysisRepository
	Config          *DetectionConfig
	Logger          *slog.Logger
	Metrics         *metrics.Registry
}

// service orchestrates the duplicate detector and the five signal checks
type service struct {
	detector *DuplicateDetector
	checker  *Checker
	history  *HistoryStore

	business BusinessContextProvider
	customer CustomerHistoryProvider
	voice    VoiceAnalyzer
	repo     AnalysisRepository

	cfg *DetectionConfig
	mu  sync.RWMutex

	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *metrics.Registry
}

// NewService creates the fraud risk analysis engine
func NewService(deps Deps) Service {
	if deps.Config == nil {
		deps.Config = DefaultDetectionConfig()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.History == nil {
		deps.History = NewHistoryStore(deps.Config.MaxHistoryEntries)
	}
	if deps.Patterns == nil {
		deps.Patterns = NewPatternStore()
	}

	return &service{
		detector: NewDuplicateDetector(deps.Tables, deps.History, deps.Patterns, deps.Mirror, deps.Logger),
		checker:  NewChecker(deps.Tables),
		history:  deps.History,
		business: deps.BusinessContext,
		customer: deps.CustomerHistory,
		voice:    deps.Voice,
		repo:     deps.Repository,
		cfg:      deps.Config,
		logger:   deps.Logger,
		tracer:   otel.Tracer("fraud-engine"),
		metrics:  deps.Metrics,
	}
}

// StartSweeper launches background TTL eviction of old fingerprints. It
// stops when ctx is cancelled. Eviction shares the store mutex with
// inserts, so a sweep never races a fingerprint write for the same key.
func (s *service) StartSweeper(ctx context.Context) {
	cfg := s.currentConfig()
	s.history.StartSweeper(ctx, cfg.SweepInterval, cfg.MaxFingerprintAge, s.logger)
}

// AnalyzeSession runs all checks concurrently and fuses their verdicts.
// It always returns a result: any internal failure is converted into the
// conservative fallback so the caller can still gate the reward.
func (s *service) AnalyzeSession(ctx context.Context, session *feedback.Session) (result *AnalysisResult, err error) {
	start := time.Now()
	s.metrics.Started(ctx)

	sessionID := uuid.Nil
	if session != nil {
		sessionID = session.ID
	}

	ctx, span := s.tracer.Start(ctx, "fraud.AnalyzeSession",
		trace.WithAttributes(attribute.String("session.id", sessionID.String())))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("fraud analysis panicked, returning conservative fallback",
				"session_id", sessionID, "panic", r)
			result = s.fallbackResult(sessionID, start)
			err = nil
			s.metrics.RecordAnalysis(ctx, string(result.Recommendation), len(result.Flags), time.Since(start), true)
		}
	}()

	if session == nil {
		s.logger.Warn("nil session passed to fraud analysis")
		res := s.fallbackResult(sessionID, start)
		s.metrics.RecordAnalysis(ctx, string(res.Recommendation), len(res.Flags), time.Since(start), true)
		return res, nil
	}

	cfg := s.currentConfig()
	now := session.Timestamp
	if now.IsZero() {
		now = time.Now()
	}

	// External data is fetched up front; the checks themselves only do
	// non-blocking in-memory work.
	submissions := s.loadSubmissions(ctx, session.CustomerHash, now)
	locations := s.loadLocations(ctx, session.CustomerHash, now)
	bizCtx := s.loadBusinessContext(ctx, session.BusinessID)

	checks := s.runChecks(ctx, cfg, session, submissions, locations, bizCtx, now)

	res := s.fuse(cfg, sessionID, checks, start)
	span.SetAttributes(
		attribute.Float64("fraud.risk_score", res.OverallRiskScore),
		attribute.String("fraud.recommendation", string(res.Recommendation)),
		attribute.Int("fraud.flags", len(res.Flags)),
	)

	if s.repo != nil {
		if saveErr := s.repo.SaveResult(ctx, res); saveErr != nil {
			s.logger.Error("failed to persist analysis result",
				"session_id", sessionID, "error", saveErr)
		}
	}

	s.metrics.RecordAnalysis(ctx, string(res.Recommendation), len(res.Flags), time.Since(start), false)
	s.logger.Info("fraud analysis completed",
		"session_id", sessionID,
		"risk_score", res.OverallRiskScore,
		"recommendation", res.Recommendation,
		"flags", len(res.Flags),
		"duration", res.Duration)

	return res, nil
}

// runChecks fans out the duplicate detector and the five signal checks.
// Checks are conditionally independent given the session: none observes
// another's result. A panicking check is treated as "did not fire".
func (s *service) runChecks(ctx context.Context, cfg *DetectionConfig, session *feedback.Session,
	submissions []feedback.Submission, locations []feedback.LocationVisit,
	bizCtx *feedback.BusinessContext, now time.Time) []*FraudCheck {

	checks := make([]*FraudCheck, 7)
	var wg sync.WaitGroup

	run := func(idx int, name string, fn func() *FraudCheck) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("fraud check panicked", "check", name, "panic", r)
				}
			}()
			checks[idx] = fn()
		}()
	}

	run(0, "content_duplicate", func() *FraudCheck {
		return s.detector.Analyze(ctx, cfg, session.Transcript, session.ID, now)
	})
	run(1, "device_abuse", func() *FraudCheck {
		return s.checker.CheckDevice(cfg, session.Device)
	})
	run(2, "temporal_pattern", func() *FraudCheck {
		return s.checker.CheckTemporal(cfg, submissions, now)
	})
	run(3, "location_mismatch", func() *FraudCheck {
		return s.checker.CheckGeographic(cfg, locations, now)
	})
	run(4, "context_mismatch", func() *FraudCheck {
		return s.checker.CheckContext(cfg, session.Transcript, bizCtx)
	})
	run(5, "submission_frequency", func() *FraudCheck {
		return s.checker.CheckFrequency(cfg, submissions, now)
	})
	run(6, "voice_synthetic", func() *FraudCheck {
		return s.runVoiceCheck(ctx, session)
	})

	wg.Wait()

	out := make([]*FraudCheck, 0, len(checks))
	for _, c := range checks {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// runVoiceCheck delegates to the external voice analyzer when audio is
// present; otherwise it synthesizes the fixed low-risk placeholder so
// downstream aggregation stays uniform.
func (s *service) runVoiceCheck(ctx context.Context, session *feedback.Session) *FraudCheck {
	if !session.HasAudio() || s.voice == nil {
		return &FraudCheck{
			Type:        CheckVoiceSynthetic,
			Score:       PlaceholderVoiceScore,
			Confidence:  PlaceholderVoiceConfidence,
			Severity:    SeverityLow,
			Description: "no audio available for voice analysis",
			Evidence:    GenericEvidence{"audioPresent": false},
		}
	}

	check, err := s.voice.AnalyzeVoicePattern(ctx, session.AudioData, session.ID, session.CustomerHash, session.Transcript)
	if err != nil || check == nil {
		s.logger.Warn("voice analyzer failed, using placeholder check",
			"session_id", session.ID, "error", err)
		return &FraudCheck{
			Type:        CheckVoiceSynthetic,
			Score:       PlaceholderVoiceScore,
			Confidence:  PlaceholderVoiceConfidence,
			Severity:    SeverityLow,
			Description: "voice analysis unavailable",
			Evidence:    GenericEvidence{"audioPresent": true, "analyzerFailed": true},
		}
	}
	return check
}

// fuse combines check verdicts into the final result
func (s *service) fuse(cfg *DetectionConfig, sessionID uuid.UUID, checks []*FraudCheck, start time.Time) *AnalysisResult {
	var weightedSum, weightTotal, confidenceSum float64
	exactDuplicate := false

	allChecks := make([]FraudCheck, 0, len(checks))
	for _, c := range checks {
		allChecks = append(allChecks, *c)
		w := cfg.Weight(c.Type)
		weightedSum += c.Score * c.Confidence * w
		weightTotal += w
		confidenceSum += c.Confidence

		if c.Type == CheckContentDuplicate {
			if ev, ok := c.Evidence.(*DuplicateEvidence); ok && len(ev.ExactMatches) > 0 {
				exactDuplicate = true
			}
		}
	}

	overall := 0.0
	if weightTotal > 0 {
		overall = weightedSum / weightTotal
	}
	if cfg.ConservativeMode {
		overall *= cfg.ConservativeMultiplier
	}
	overall = clamp01(overall)

	// An exact content match alone forces high risk, whatever the other
	// signals say.
	if exactDuplicate && overall < ExactMatchScore {
		overall = ExactMatchScore
	}

	flags := make([]FraudFlag, 0)
	for _, c := range checks {
		if c.Score >= cfg.FlagThreshold {
			flags = append(flags, FraudFlag{
				Type:        c.Type,
				Severity:    c.Severity,
				Confidence:  c.Confidence,
				Description: c.Description,
				Evidence:    c.Evidence,
			})
		}
	}

	confidence := 0.0
	if len(checks) > 0 {
		avg := confidenceSum / float64(len(checks))
		coverage := float64(len(checks)) / float64(CheckCount)
		if coverage > 1 {
			coverage = 1
		}
		confidence = clamp01(avg * (0.8 + 0.2*coverage))
	}

	return &AnalysisResult{
		ID:               uuid.New(),
		SessionID:        sessionID,
		OverallRiskScore: overall,
		Confidence:       confidence,
		Recommendation:   recommend(overall, flags),
		Flags:            flags,
		Checks:           allChecks,
		AnalyzedAt:       start,
		Duration:         time.Since(start),
	}
}

// recommend maps the fused score and flags to the terminal verdict
func recommend(overall float64, flags []FraudFlag) Recommendation {
	for _, f := range flags {
		if f.Severity == SeverityHigh && f.Confidence >= RejectFlagConfidence && overall >= RejectOverallThreshold {
			return RecommendReject
		}
	}

	// Voice fraud is higher-stakes than other single signals.
	for _, f := range flags {
		if f.Type == CheckVoiceSynthetic && f.Confidence >= VoiceFlagConfidence {
			if overall >= VoiceRejectThreshold {
				return RecommendReject
			}
			return RecommendReview
		}
	}

	if overall >= ReviewOverallThreshold || len(flags) >= ReviewFlagCount {
		return RecommendReview
	}
	return RecommendAccept
}

// fallbackResult is the conservative default used when analysis fails.
// Never accept silently and never hard-fail the caller.
func (s *service) fallbackResult(sessionID uuid.UUID, start time.Time) *AnalysisResult {
	flag := FraudFlag{
		Type:        CheckAnalysisDegraded,
		Severity:    SeverityLow,
		Confidence:  0.5,
		Description: "fraud analysis degraded, manual review recommended",
	}
	return &AnalysisResult{
		ID:               uuid.New(),
		SessionID:        sessionID,
		OverallRiskScore: FallbackRiskScore,
		Confidence:       0.3,
		Recommendation:   RecommendReview,
		Flags:            []FraudFlag{flag},
		Checks:           []FraudCheck{},
		AnalyzedAt:       start,
		Duration:         time.Since(start),
	}
}

// UpdateConfig hot-swaps the detection configuration
func (s *service) UpdateConfig(_ context.Context, cfg *DetectionConfig) error {
	if cfg == nil {
		return errors.NewValidationError("INVALID_CONFIG", "detection config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()

	s.logger.Info("fraud detection config updated",
		"conservative_mode", cfg.ConservativeMode,
		"fuzzy_threshold", cfg.FuzzyMatchThreshold)
	return nil
}

// GetResult loads a persisted result
func (s *service) GetResult(ctx context.Context, sessionID uuid.UUID) (*AnalysisResult, error) {
	if s.repo == nil {
		return nil, errors.ErrResultNotFound
	}
	return s.repo.GetResult(ctx, sessionID)
}

func (s *service) currentConfig() *DetectionConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// loadSubmissions fetches the customer's recent submission history. A
// provider failure yields empty history (sparse-confidence checks), not a
// failed analysis.
func (s *service) loadSubmissions(ctx context.Context, customerHash string, now time.Time) []feedback.Submission {
	if s.customer == nil || customerHash == "" {
		return nil
	}
	subs, err := s.customer.RecentSubmissions(ctx, customerHash, now.Add(-30*24*time.Hour))
	if err != nil {
		s.logger.Warn("submission history lookup failed", "error", err)
		return nil
	}
	return subs
}

func (s *service) loadLocations(ctx context.Context, customerHash string, now time.Time) []feedback.LocationVisit {
	if s.customer == nil || customerHash == "" {
		return nil
	}
	visits, err := s.customer.RecentLocations(ctx, customerHash, now.Add(-24*time.Hour))
	if err != nil {
		s.logger.Warn("location history lookup failed", "error", err)
		return nil
	}
	return visits
}

func (s *service) loadBusinessContext(ctx context.Context, businessID uuid.UUID) *feedback.BusinessContext {
	if s.business == nil || businessID == uuid.Nil {
		return nil
	}
	bizCtx, err := s.business.GetBusinessContext(ctx, businessID)
	if err != nil {
		s.logger.Warn("business context lookup failed", "business_id", businessID, "error", err)
		return nil
	}
	return bizCtx
}
