package fraud

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DuplicateDetector fingerprints normalized feedback content and finds
// exact, fuzzy, semantic and structural matches against prior submissions,
// plus recurring template phrases. It produces a single content_duplicate
// FraudCheck per session.
type DuplicateDetector struct {
	normalizer *Normalizer
	tables     *LanguageTables
	history    *HistoryStore
	patterns   *PatternStore
	mirror     FingerprintMirror // optional
	logger     *slog.Logger
}

// NewDuplicateDetector wires the detector to its shared stores. mirror may
// be nil for single-instance deployments.
func NewDuplicateDetector(tables *LanguageTables, history *HistoryStore, patterns *PatternStore, mirror FingerprintMirror, logger *slog.Logger) *DuplicateDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &DuplicateDetector{
		normalizer: NewNormalizer(tables),
		tables:     tables,
		history:    history,
		patterns:   patterns,
		mirror:     mirror,
		logger:     logger,
	}
}

// Analyze compares new content against the submission history and returns
// the content_duplicate check. The new fingerprint is stored regardless of
// outcome, so later replay attempts always have something to hit.
func (d *DuplicateDetector) Analyze(ctx context.Context, cfg *DetectionConfig, content string, sessionID uuid.UUID, ts time.Time) *FraudCheck {
	norm := d.normalizer.Normalize(content)
	fp := NewFingerprint(norm, ts)

	entry := &HistoryEntry{
		SessionID:   sessionID,
		Fingerprint: fp,
		Normalized:  norm.Normalized,
		Structural:  norm.Structural,
		Keywords:    norm.Keywords,
		Timestamp:   ts,
	}
	d.history.Put(entry)
	d.mirrorStore(ctx, cfg, fp, sessionID, ts)

	evidence := &DuplicateEvidence{
		ContentLength: fp.Length,
		WordCount:     fp.WordCount,
		HistorySize:   d.history.Len(),
	}

	// Nothing comparable in empty or single-word content.
	if fp.WordCount <= 1 {
		return &FraudCheck{
			Type:        CheckContentDuplicate,
			Score:       0,
			Confidence:  0.5,
			Severity:    SeverityLow,
			Description: "content too short for duplicate comparison",
			Evidence:    evidence,
		}
	}

	prior := d.history.Snapshot(sessionID)
	d.findExactMatches(ctx, fp, prior, sessionID, ts, evidence)
	d.findFuzzyMatches(cfg, norm, prior, ts, evidence)
	d.findSemanticMatches(cfg, norm, prior, ts, evidence)
	d.findStructuralMatches(cfg, norm, prior, ts, evidence)
	d.mineTemplates(cfg, norm, sessionID, ts, evidence)

	return d.buildCheck(cfg, evidence)
}

func (d *DuplicateDetector) findExactMatches(ctx context.Context, fp *Fingerprint, prior []*HistoryEntry, sessionID uuid.UUID, ts time.Time, ev *DuplicateEvidence) {
	seen := map[uuid.UUID]bool{sessionID: true}
	for _, entry := range prior {
		if entry.Fingerprint.ExactHash != fp.ExactHash {
			continue
		}
		seen[entry.SessionID] = true
		ev.ExactMatches = append(ev.ExactMatches, DuplicateMatch{
			SessionID:  entry.SessionID,
			Similarity: 1.0,
			Type:       MatchExact,
			Confidence: 1.0,
			TimeDelta:  ts.Sub(entry.Timestamp),
		})
	}

	if d.mirror == nil {
		return
	}
	hits, err := d.mirror.FindExact(ctx, fp.ExactHash)
	if err != nil {
		d.logger.Warn("fingerprint mirror lookup failed, using local history only", "error", err)
		return
	}
	for _, hit := range hits {
		if seen[hit.SessionID] {
			continue
		}
		seen[hit.SessionID] = true
		ev.ExactMatches = append(ev.ExactMatches, DuplicateMatch{
			SessionID:  hit.SessionID,
			Similarity: 1.0,
			Type:       MatchExact,
			Confidence: 1.0,
			TimeDelta:  ts.Sub(hit.Timestamp),
		})
	}
}

func (d *DuplicateDetector) findFuzzyMatches(cfg *DetectionConfig, norm *Normalization, prior []*HistoryEntry, ts time.Time, ev *DuplicateEvidence) {
	exactHash := hashString(norm.Normalized)
	for _, entry := range prior {
		if entry.Normalized == "" || entry.Fingerprint.ExactHash == exactHash {
			continue
		}
		sim := fuzzySimilarity(norm.Normalized, entry.Normalized)
		if sim < cfg.FuzzyMatchThreshold {
			continue
		}
		ev.FuzzyMatches = append(ev.FuzzyMatches, DuplicateMatch{
			SessionID:       entry.SessionID,
			Similarity:      sim,
			Type:            MatchFuzzy,
			Confidence:      sim,
			MatchedSegments: commonWords(norm.Normalized, entry.Normalized, 5),
			TimeDelta:       ts.Sub(entry.Timestamp),
		})
	}
}

func (d *DuplicateDetector) findSemanticMatches(cfg *DetectionConfig, norm *Normalization, prior []*HistoryEntry, ts time.Time, ev *DuplicateEvidence) {
	if len(norm.Keywords) == 0 {
		return
	}
	for _, entry := range prior {
		if len(entry.Keywords) == 0 {
			continue
		}
		sim := semanticSimilarity(norm.Keywords, entry.Keywords, d.tables)
		if sim < cfg.SemanticMatchThreshold {
			continue
		}
		ev.SemanticMatches = append(ev.SemanticMatches, DuplicateMatch{
			SessionID:       entry.SessionID,
			Similarity:      sim,
			Type:            MatchSemantic,
			Confidence:      sim * 0.9, // keyword overlap is weaker evidence than surface text
			MatchedSegments: commonKeywords(norm.Keywords, entry.Keywords, 5),
			TimeDelta:       ts.Sub(entry.Timestamp),
		})
	}
}

func (d *DuplicateDetector) findStructuralMatches(cfg *DetectionConfig, norm *Normalization, prior []*HistoryEntry, ts time.Time, ev *DuplicateEvidence) {
	if norm.Structural == "" {
		return
	}
	for _, entry := range prior {
		if entry.Structural == "" || entry.Normalized == norm.Normalized {
			continue
		}
		sim := levenshteinSimilarity(norm.Structural, entry.Structural)
		if sim < cfg.StructuralMatchThreshold {
			continue
		}
		ev.StructuralMatches = append(ev.StructuralMatches, DuplicateMatch{
			SessionID:  entry.SessionID,
			Similarity: sim,
			Type:       MatchStructural,
			Confidence: sim * 0.8, // same sentence shape, possibly different words
			TimeDelta:  ts.Sub(entry.Timestamp),
		})
	}
}

func (d *DuplicateDetector) mineTemplates(cfg *DetectionConfig, norm *Normalization, sessionID uuid.UUID, ts time.Time, ev *DuplicateEvidence) {
	for _, re := range d.tables.Templates {
		matched := re.FindString(norm.Normalized)
		if matched == "" {
			continue
		}
		pattern := d.patterns.Record(matched, sessionID, ts)
		if pattern.Count >= cfg.MinPatternOccurrences {
			ev.SuspiciousPatterns = append(ev.SuspiciousPatterns, pattern)
		}
	}
}

// buildCheck turns gathered evidence into the content_duplicate verdict
func (d *DuplicateDetector) buildCheck(cfg *DetectionConfig, ev *DuplicateEvidence) *FraudCheck {
	// An exact duplicate is near-certain fraud on its own.
	if len(ev.ExactMatches) > 0 {
		return &FraudCheck{
			Type:       CheckContentDuplicate,
			Score:      ExactMatchScore,
			Confidence: 1.0,
			Severity:   SeverityHigh,
			Description: fmt.Sprintf("exact duplicate of %d prior submission(s)",
				len(ev.ExactMatches)),
			Evidence: ev,
		}
	}

	score := 0.0
	if sim := bestSimilarity(ev.FuzzyMatches); sim > 0 {
		score += FuzzyContribution * sim
	}
	if sim := bestSimilarity(ev.SemanticMatches); sim > 0 {
		score += SemanticContribution * sim
	}
	if sim := bestSimilarity(ev.StructuralMatches); sim > 0 {
		score += StructuralContribution * sim
	}
	if n := len(ev.SuspiciousPatterns); n > 0 {
		score += minFloat(PatternContribution, 0.2*float64(n))
	}
	score += recencyBonus(ev, cfg.SuspiciousTimeWindow)

	score = clamp01(score)
	if cfg.ConservativeMode {
		score = clamp01(score * cfg.ConservativeMultiplier)
	}

	maxSim := maxFloat(bestSimilarity(ev.FuzzyMatches),
		maxFloat(bestSimilarity(ev.SemanticMatches), bestSimilarity(ev.StructuralMatches)))
	confidence := clamp01(0.5 + 0.1*float64(ev.MatchTypeCount()) + 0.3*maxSim)

	return &FraudCheck{
		Type:        CheckContentDuplicate,
		Score:       score,
		Confidence:  confidence,
		Severity:    duplicateSeverity(score),
		Description: describeDuplicates(ev, score),
		Evidence:    ev,
	}
}

func describeDuplicates(ev *DuplicateEvidence, score float64) string {
	if score == 0 {
		return "no duplicate indicators"
	}
	return fmt.Sprintf("similar content detected: %d fuzzy, %d semantic, %d structural match(es), %d suspicious pattern(s)",
		len(ev.FuzzyMatches), len(ev.SemanticMatches), len(ev.StructuralMatches), len(ev.SuspiciousPatterns))
}

// recencyBonus rewards matches that landed inside the suspicious window;
// the closer in time, the larger the bonus.
func recencyBonus(ev *DuplicateEvidence, window time.Duration) float64 {
	if window <= 0 {
		return 0
	}
	best := 0.0
	for _, matches := range [][]DuplicateMatch{ev.FuzzyMatches, ev.SemanticMatches, ev.StructuralMatches} {
		for _, m := range matches {
			delta := m.TimeDelta
			if delta < 0 {
				delta = -delta
			}
			if delta > window {
				continue
			}
			bonus := RecencyContribution * (1.0 - float64(delta)/float64(window))
			if bonus > best {
				best = bonus
			}
		}
	}
	return best
}

func bestSimilarity(matches []DuplicateMatch) float64 {
	best := 0.0
	for _, m := range matches {
		if m.Similarity > best {
			best = m.Similarity
		}
	}
	return best
}

func duplicateSeverity(score float64) Severity {
	switch {
	case score >= DuplicateSeverityHigh:
		return SeverityHigh
	case score >= DuplicateSeverityMedium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func (d *DuplicateDetector) mirrorStore(ctx context.Context, cfg *DetectionConfig, fp *Fingerprint, sessionID uuid.UUID, ts time.Time) {
	if d.mirror == nil {
		return
	}
	if err := d.mirror.Store(ctx, fp.ExactHash, sessionID, ts, cfg.MaxFingerprintAge); err != nil {
		d.logger.Warn("fingerprint mirror store failed", "error", err)
	}
}

// commonWords returns up to limit words shared by two normalized texts
func commonWords(a, b string, limit int) []string {
	setB := wordSet(b)
	var out []string
	seen := make(map[string]bool)
	for _, w := range strings.Fields(a) {
		if seen[w] {
			continue
		}
		if _, ok := setB[w]; ok {
			out = append(out, w)
			seen[w] = true
			if len(out) >= limit {
				break
			}
		}
	}
	return out
}

func commonKeywords(a, b []string, limit int) []string {
	setB := dedupe(b)
	var out []string
	seen := make(map[string]bool)
	for _, w := range a {
		if seen[w] {
			continue
		}
		if _, ok := setB[w]; ok {
			out = append(out, w)
			seen[w] = true
			if len(out) >= limit {
				break
			}
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
