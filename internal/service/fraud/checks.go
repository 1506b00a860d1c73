package fraud

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/kundrost/feedback-rewards-backend/internal/domain/feedback"
)

// Checker implements the five independent signal checks. Each method is
// pure over its inputs and emits exactly one FraudCheck; history lookups
// happen in the orchestrator before the checks run.
type Checker struct {
	tables     *LanguageTables
	normalizer *Normalizer
}

// NewChecker creates the signal checks backed by the language tables
func NewChecker(tables *LanguageTables) *Checker {
	return &Checker{tables: tables, normalizer: NewNormalizer(tables)}
}

var suspiciousUAPattern = regexp.MustCompile(`(?i)(headless|phantomjs|selenium|puppeteer|playwright|crawler|spider|scrapy|curl/|wget/|python-requests|bot\b)`)

// CheckDevice inspects the device fingerprint for automation and spoofing
// signals. A missing fingerprint yields a low-score, low-confidence check.
func (c *Checker) CheckDevice(cfg *DetectionConfig, fp *feedback.DeviceFingerprint) *FraudCheck {
	if fp == nil {
		return &FraudCheck{
			Type:        CheckDeviceAbuse,
			Score:       0.1,
			Confidence:  0.2,
			Severity:    SeverityLow,
			Description: "no device fingerprint available",
			Evidence:    &DeviceEvidence{FingerprintPresent: false},
		}
	}

	ev := &DeviceEvidence{
		FingerprintPresent: true,
		UserAgent:          fp.UserAgent,
		ScreenResolution:   fmt.Sprintf("%dx%d", fp.ScreenWidth, fp.ScreenHeight),
	}

	score := 0.0
	if suspiciousUAPattern.MatchString(fp.UserAgent) {
		ev.SuspiciousUA = true
		score += 0.8
	}
	if !fp.CookiesEnabled {
		ev.CookiesDisabled = true
		score += 0.2
	}
	if !fp.DoNotTrack {
		ev.DoNotTrackMissing = true
		score += 0.1
	}
	if fp.ScreenWidth < MinScreenWidth || fp.ScreenHeight < MinScreenHeight ||
		fp.ScreenWidth > MaxScreenWidth || fp.ScreenHeight > MaxScreenHeight {
		ev.AbnormalResolution = true
		score += 0.3
	}
	score = clamp01(score)

	desc := "device fingerprint looks normal"
	if ev.SuspiciousUA {
		desc = "automation user agent detected"
	} else if score > 0 {
		desc = "device fingerprint anomalies detected"
	}

	return &FraudCheck{
		Type:        CheckDeviceAbuse,
		Score:       score,
		Confidence:  0.8,
		Severity:    signalSeverity(score),
		Description: desc,
		Evidence:    ev,
	}
}

// CheckTemporal inspects submission timing for one customer hash.
// submissions are the trailing-hour history, oldest first.
func (c *Checker) CheckTemporal(cfg *DetectionConfig, submissions []feedback.Submission, now time.Time) *FraudCheck {
	ev := &TemporalEvidence{HourlyLimit: cfg.MaxSubmissionsPerHour}

	lastHour := 0
	for _, s := range submissions {
		if now.Sub(s.Timestamp) <= time.Hour {
			lastHour++
		}
	}
	ev.SubmissionsLastHour = lastHour

	score := 0.0
	if lastHour > cfg.MaxSubmissionsPerHour {
		ev.ExcessiveSubmissions = true
		score += 0.6
	}

	intervals := submissionIntervals(submissions)
	if len(intervals) > 0 {
		min := intervals[0]
		for _, iv := range intervals {
			if iv < min {
				min = iv
			}
		}
		ev.MinInterval = min
		if min < cfg.RapidFireGap {
			ev.RapidFire = true
			score += 0.4
		}
	}

	if len(intervals) >= RegularIntervalMinSample {
		mean, stddev := intervalStats(intervals)
		ev.IntervalStdDev = stddev.Seconds()
		// Robotic cadence: spread under 10% of the mean gap
		if mean > 0 && stddev < mean/10 {
			ev.RegularIntervals = true
			score += 0.3
		}
	}
	score = clamp01(score)

	return &FraudCheck{
		Type:        CheckTemporalPattern,
		Score:       score,
		Confidence:  historyConfidence(len(submissions)),
		Severity:    signalSeverity(score),
		Description: describeTemporal(ev),
		Evidence:    ev,
	}
}

func describeTemporal(ev *TemporalEvidence) string {
	switch {
	case ev.ExcessiveSubmissions:
		return fmt.Sprintf("%d submissions in the last hour (limit %d)", ev.SubmissionsLastHour, ev.HourlyLimit)
	case ev.RapidFire:
		return "consecutive submissions in rapid succession"
	case ev.RegularIntervals:
		return "suspiciously regular submission intervals"
	default:
		return "submission timing looks normal"
	}
}

// CheckGeographic inspects location history for impossible travel and
// location churn. visits are ordered oldest first.
func (c *Checker) CheckGeographic(cfg *DetectionConfig, visits []feedback.LocationVisit, now time.Time) *FraudCheck {
	ev := &GeoEvidence{}

	distinct := make(map[string]struct{}, len(visits))
	for _, v := range visits {
		distinct[v.LocationID] = struct{}{}
	}
	ev.DistinctLocations = len(distinct)

	score := 0.0
	for i := 1; i < len(visits); i++ {
		prev, curr := visits[i-1], visits[i]
		gap := curr.Timestamp.Sub(prev.Timestamp)
		if prev.LocationID != curr.LocationID && gap >= 0 && gap < cfg.ImpossibleTravelWindow {
			ev.ImpossibleTravel = true
			ev.FromLocation = prev.LocationID
			ev.ToLocation = curr.LocationID
			ev.TravelGap = gap
			score += 0.4
			break
		}
	}
	if len(distinct) > cfg.LocationChurnLimit {
		ev.LocationChurn = true
		score += 0.3
	}
	score = clamp01(score)

	desc := "location history is consistent"
	if ev.ImpossibleTravel {
		desc = fmt.Sprintf("visited %s and %s within %s", ev.FromLocation, ev.ToLocation, ev.TravelGap.Round(time.Minute))
	} else if ev.LocationChurn {
		desc = fmt.Sprintf("%d distinct locations in recent history", ev.DistinctLocations)
	}

	return &FraudCheck{
		Type:        CheckLocationMismatch,
		Score:       score,
		Confidence:  historyConfidence(len(visits)),
		Severity:    signalSeverity(score),
		Description: desc,
		Evidence:    ev,
	}
}

// CheckContext verifies that the transcript plausibly describes the
// declared business. A nil business context reduces the check to its
// language-only signals at low confidence.
func (c *Checker) CheckContext(cfg *DetectionConfig, transcript string, bizCtx *feedback.BusinessContext) *FraudCheck {
	normalized := foldSwedish(cleanText(transcript))
	padded := " " + normalized + " "
	ev := &ContextEvidence{}

	score := 0.0
	confidence := 0.3
	if bizCtx != nil {
		confidence = 0.7
		ev.BusinessType = bizCtx.Type
		denylist := c.tables.DenylistFor(bizCtx.Type)
		if len(denylist) > 0 {
			for _, term := range denylist {
				if strings.Contains(padded, " "+term+" ") {
					ev.InappropriateTerms = append(ev.InappropriateTerms, term)
				}
			}
			ev.TermMatchFraction = float64(len(ev.InappropriateTerms)) / float64(len(denylist))
			score += 0.4 * minFloat(1.0, ev.TermMatchFraction*3)
		}
	}

	for _, phrase := range c.tables.GenericPhrases {
		if strings.Contains(normalized, phrase) {
			ev.GenericPhrases = append(ev.GenericPhrases, phrase)
		}
	}
	if len(ev.GenericPhrases) >= 3 {
		score += 0.3
	}

	positives := countTerms(padded, c.tables.Positive)
	negatives := countTerms(padded, c.tables.Negative)
	ev.SuperlativeCount = positives
	if negatives > positives {
		ev.SuperlativeCount = negatives
	}
	if ev.SuperlativeCount > 2 {
		ev.ExtremeSentiment = true
		score += 0.2
	}
	score = clamp01(score)

	desc := "content matches business context"
	switch {
	case len(ev.InappropriateTerms) > 0:
		desc = fmt.Sprintf("vocabulary inappropriate for %s: %s", ev.BusinessType, strings.Join(ev.InappropriateTerms, ", "))
	case len(ev.GenericPhrases) >= 3:
		desc = "feedback consists largely of boilerplate phrases"
	case ev.ExtremeSentiment:
		desc = "unusually extreme sentiment"
	}

	return &FraudCheck{
		Type:        CheckContextMismatch,
		Score:       score,
		Confidence:  confidence,
		Severity:    signalSeverity(score),
		Description: desc,
		Evidence:    ev,
	}
}

// CheckFrequency profiles the customer's overall submission rate.
// submissions span the full retained history, oldest first.
func (c *Checker) CheckFrequency(cfg *DetectionConfig, submissions []feedback.Submission, now time.Time) *FraudCheck {
	ev := &FrequencyEvidence{TotalSubmissions: len(submissions)}

	score := 0.0
	if len(submissions) > 1 {
		span := submissions[len(submissions)-1].Timestamp.Sub(submissions[0].Timestamp)
		days := span.Hours() / 24
		if days < 1 {
			days = 1
		}
		ev.ObservedDays = days
		ev.DailyAverage = float64(len(submissions)) / days

		switch {
		case ev.DailyAverage > cfg.HighDailyRate:
			ev.HighFrequency = true
			score += 0.5
		case ev.DailyAverage > cfg.ModerateDailyRate:
			ev.ModerateFrequency = true
			score += 0.2
		}

		ev.BurstClusters = countBursts(submissions, cfg.BurstWindow, cfg.BurstSize)
		score += minFloat(0.3, 0.15*float64(ev.BurstClusters))
	}
	score = clamp01(score)

	desc := "submission frequency looks normal"
	switch {
	case ev.HighFrequency:
		desc = fmt.Sprintf("%.1f submissions per day on average", ev.DailyAverage)
	case ev.BurstClusters > 0:
		desc = fmt.Sprintf("%d burst cluster(s) of rapid submissions", ev.BurstClusters)
	case ev.ModerateFrequency:
		desc = "moderately elevated submission frequency"
	}

	return &FraudCheck{
		Type:        CheckSubmissionFrequency,
		Score:       score,
		Confidence:  historyConfidence(len(submissions)),
		Severity:    signalSeverity(score),
		Description: desc,
		Evidence:    ev,
	}
}

// countBursts counts non-overlapping clusters of at least burstSize
// submissions inside a sliding window.
func countBursts(submissions []feedback.Submission, window time.Duration, burstSize int) int {
	if burstSize <= 0 || len(submissions) < burstSize {
		return 0
	}
	times := make([]time.Time, len(submissions))
	for i, s := range submissions {
		times[i] = s.Timestamp
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	clusters := 0
	i := 0
	for i+burstSize-1 < len(times) {
		if times[i+burstSize-1].Sub(times[i]) <= window {
			clusters++
			i += burstSize // consume the cluster
		} else {
			i++
		}
	}
	return clusters
}

func submissionIntervals(submissions []feedback.Submission) []time.Duration {
	if len(submissions) < 2 {
		return nil
	}
	intervals := make([]time.Duration, 0, len(submissions)-1)
	for i := 1; i < len(submissions); i++ {
		iv := submissions[i].Timestamp.Sub(submissions[i-1].Timestamp)
		if iv < 0 {
			iv = -iv
		}
		intervals = append(intervals, iv)
	}
	return intervals
}

func intervalStats(intervals []time.Duration) (mean, stddev time.Duration) {
	var sum float64
	for _, iv := range intervals {
		sum += iv.Seconds()
	}
	m := sum / float64(len(intervals))

	var variance float64
	for _, iv := range intervals {
		d := iv.Seconds() - m
		variance += d * d
	}
	variance /= float64(len(intervals))

	return time.Duration(m * float64(time.Second)), time.Duration(math.Sqrt(variance) * float64(time.Second))
}

func countTerms(padded string, terms []string) int {
	count := 0
	for _, term := range terms {
		if strings.Contains(padded, " "+term+" ") {
			count++
		}
	}
	return count
}

// historyConfidence degrades when supporting history is sparse
func historyConfidence(samples int) float64 {
	if samples < MinHistoryForConfidence {
		return SparseHistoryConfidence
	}
	return minFloat(0.9, 0.6+0.05*float64(samples))
}

func signalSeverity(score float64) Severity {
	switch {
	case score >= SignalSeverityHigh:
		return SeverityHigh
	case score >= SignalSeverityMedium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
