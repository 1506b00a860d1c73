package fraud

import "time"

// Evidence is the typed payload attached to a FraudCheck. Each check type
// has its own variant; Map flattens it for generic consumers (dashboards,
// persistence) using the wire keys the review tooling expects.
type Evidence interface {
	Map() map[string]interface{}
}

// GenericEvidence is the key-value fallback for checks that have no typed
// variant yet (forward compatibility with external analyzers).
type GenericEvidence map[string]interface{}

func (e GenericEvidence) Map() map[string]interface{} { return e }

// DuplicateEvidence carries everything the duplicate detector observed
type DuplicateEvidence struct {
	ContentLength      int              `json:"contentLength"`
	WordCount          int              `json:"wordCount"`
	ExactMatches       []DuplicateMatch `json:"exactMatches,omitempty"`
	FuzzyMatches       []DuplicateMatch `json:"fuzzyMatches,omitempty"`
	SemanticMatches    []DuplicateMatch `json:"semanticMatches,omitempty"`
	StructuralMatches  []DuplicateMatch `json:"structuralMatches,omitempty"`
	SuspiciousPatterns []ContentPattern `json:"suspiciousPatterns,omitempty"`
	HistorySize        int              `json:"historySize"`
}

func (e *DuplicateEvidence) Map() map[string]interface{} {
	m := map[string]interface{}{
		"contentLength": e.ContentLength,
		"wordCount":     e.WordCount,
		"historySize":   e.HistorySize,
	}
	if len(e.ExactMatches) > 0 {
		m["exactMatches"] = e.ExactMatches
	}
	if len(e.FuzzyMatches) > 0 {
		m["fuzzyMatches"] = e.FuzzyMatches
	}
	if len(e.SemanticMatches) > 0 {
		m["semanticMatches"] = e.SemanticMatches
	}
	if len(e.StructuralMatches) > 0 {
		m["structuralMatches"] = e.StructuralMatches
	}
	if len(e.SuspiciousPatterns) > 0 {
		m["suspiciousPatterns"] = e.SuspiciousPatterns
	}
	return m
}

// MatchTypeCount returns how many distinct match strategies fired
func (e *DuplicateEvidence) MatchTypeCount() int {
	n := 0
	if len(e.ExactMatches) > 0 {
		n++
	}
	if len(e.FuzzyMatches) > 0 {
		n++
	}
	if len(e.SemanticMatches) > 0 {
		n++
	}
	if len(e.StructuralMatches) > 0 {
		n++
	}
	return n
}

// DeviceEvidence carries device-fingerprint anomalies
type DeviceEvidence struct {
	FingerprintPresent bool   `json:"fingerprintPresent"`
	SuspiciousUA       bool   `json:"suspiciousUserAgent"`
	UserAgent          string `json:"userAgent,omitempty"`
	CookiesDisabled    bool   `json:"cookiesDisabled"`
	DoNotTrackMissing  bool   `json:"doNotTrackMissing"`
	AbnormalResolution bool   `json:"abnormalResolution"`
	ScreenResolution   string `json:"screenResolution,omitempty"`
}

func (e *DeviceEvidence) Map() map[string]interface{} {
	m := map[string]interface{}{
		"fingerprintPresent":  e.FingerprintPresent,
		"suspiciousUserAgent": e.SuspiciousUA,
		"cookiesDisabled":     e.CookiesDisabled,
		"doNotTrackMissing":   e.DoNotTrackMissing,
		"abnormalResolution":  e.AbnormalResolution,
	}
	if e.UserAgent != "" {
		m["userAgent"] = e.UserAgent
	}
	if e.ScreenResolution != "" {
		m["screenResolution"] = e.ScreenResolution
	}
	return m
}

// TemporalEvidence carries submission-timing anomalies for a customer hash
type TemporalEvidence struct {
	SubmissionsLastHour  int           `json:"submissionsLastHour"`
	HourlyLimit          int           `json:"hourlyLimit"`
	ExcessiveSubmissions bool          `json:"excessiveSubmissions"`
	RapidFire            bool          `json:"rapidFire"`
	MinInterval          time.Duration `json:"minInterval"`
	RegularIntervals     bool          `json:"regularIntervals"`
	IntervalStdDev       float64       `json:"intervalStdDevSeconds"`
}

func (e *TemporalEvidence) Map() map[string]interface{} {
	return map[string]interface{}{
		"submissionsLastHour":   e.SubmissionsLastHour,
		"hourlyLimit":           e.HourlyLimit,
		"excessiveSubmissions":  e.ExcessiveSubmissions,
		"rapidFire":             e.RapidFire,
		"minIntervalSeconds":    e.MinInterval.Seconds(),
		"regularIntervals":      e.RegularIntervals,
		"intervalStdDevSeconds": e.IntervalStdDev,
	}
}

// GeoEvidence carries geographic-consistency anomalies
type GeoEvidence struct {
	ImpossibleTravel  bool          `json:"impossibleTravel"`
	FromLocation      string        `json:"fromLocation,omitempty"`
	ToLocation        string        `json:"toLocation,omitempty"`
	TravelGap         time.Duration `json:"travelGap"`
	DistinctLocations int           `json:"distinctLocations"`
	LocationChurn     bool          `json:"locationChurn"`
}

func (e *GeoEvidence) Map() map[string]interface{} {
	m := map[string]interface{}{
		"impossibleTravel":  e.ImpossibleTravel,
		"distinctLocations": e.DistinctLocations,
		"locationChurn":     e.LocationChurn,
	}
	if e.ImpossibleTravel {
		m["fromLocation"] = e.FromLocation
		m["toLocation"] = e.ToLocation
		m["travelGapSeconds"] = e.TravelGap.Seconds()
	}
	return m
}

// ContextEvidence carries business-context authenticity anomalies
type ContextEvidence struct {
	BusinessType       string   `json:"businessType,omitempty"`
	InappropriateTerms []string `json:"inappropriateTerms,omitempty"`
	TermMatchFraction  float64  `json:"termMatchFraction"`
	GenericPhrases     []string `json:"genericPhrases,omitempty"`
	ExtremeSentiment   bool     `json:"extremeSentiment"`
	SuperlativeCount   int      `json:"superlativeCount"`
}

func (e *ContextEvidence) Map() map[string]interface{} {
	m := map[string]interface{}{
		"termMatchFraction": e.TermMatchFraction,
		"extremeSentiment":  e.ExtremeSentiment,
		"superlativeCount":  e.SuperlativeCount,
	}
	if e.BusinessType != "" {
		m["businessType"] = e.BusinessType
	}
	if len(e.InappropriateTerms) > 0 {
		m["inappropriateTerms"] = e.InappropriateTerms
	}
	if len(e.GenericPhrases) > 0 {
		m["genericPhrases"] = e.GenericPhrases
	}
	return m
}

// FrequencyEvidence carries submission-rate anomalies over the full history
type FrequencyEvidence struct {
	TotalSubmissions  int     `json:"totalSubmissions"`
	ObservedDays      float64 `json:"observedDays"`
	DailyAverage      float64 `json:"dailyAverage"`
	HighFrequency     bool    `json:"highFrequency"`
	ModerateFrequency bool    `json:"moderateFrequency"`
	BurstClusters     int     `json:"burstClusters"`
}

func (e *FrequencyEvidence) Map() map[string]interface{} {
	return map[string]interface{}{
		"totalSubmissions":  e.TotalSubmissions,
		"observedDays":      e.ObservedDays,
		"dailyAverage":      e.DailyAverage,
		"highFrequency":     e.HighFrequency,
		"moderateFrequency": e.ModerateFrequency,
		"burstClusters":     e.BurstClusters,
	}
}
