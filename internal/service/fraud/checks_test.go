package fraud

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kundrost/feedback-rewards-backend/internal/domain/feedback"
)

func newTestChecker(t *testing.T) *Checker {
	t.Helper()
	tables, err := LoadEmbeddedTables()
	require.NoError(t, err)
	return NewChecker(tables)
}

func normalFingerprint() *feedback.DeviceFingerprint {
	return &feedback.DeviceFingerprint{
		UserAgent:      "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15",
		ScreenWidth:    1170,
		ScreenHeight:   2532,
		CookiesEnabled: true,
		DoNotTrack:     true,
		Language:       "sv-SE",
		Timezone:       "Europe/Stockholm",
	}
}

func submissionsAt(now time.Time, offsets ...time.Duration) []feedback.Submission {
	out := make([]feedback.Submission, len(offsets))
	for i, off := range offsets {
		out[i] = feedback.Submission{
			SessionID:  uuid.New(),
			LocationID: "loc-1",
			Timestamp:  now.Add(-off),
		}
	}
	// oldest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func TestCheckDevice(t *testing.T) {
	c := newTestChecker(t)
	cfg := DefaultDetectionConfig()

	t.Run("missing fingerprint", func(t *testing.T) {
		check := c.CheckDevice(cfg, nil)
		assert.Equal(t, CheckDeviceAbuse, check.Type)
		assert.Equal(t, 0.1, check.Score)
		assert.Equal(t, 0.2, check.Confidence)
		assert.Equal(t, SeverityLow, check.Severity)
	})

	t.Run("normal fingerprint", func(t *testing.T) {
		check := c.CheckDevice(cfg, normalFingerprint())
		assert.Equal(t, 0.0, check.Score)
		assert.Equal(t, 0.8, check.Confidence)
		assert.Equal(t, SeverityLow, check.Severity)
	})

	t.Run("automation user agent", func(t *testing.T) {
		fp := normalFingerprint()
		fp.UserAgent = "Mozilla/5.0 HeadlessChrome/120.0"
		check := c.CheckDevice(cfg, fp)

		ev, ok := check.Evidence.(*DeviceEvidence)
		require.True(t, ok)
		assert.True(t, ev.SuspiciousUA)
		assert.GreaterOrEqual(t, check.Score, 0.8)
		assert.Equal(t, SeverityHigh, check.Severity)
	})

	t.Run("cookies disabled and no dnt", func(t *testing.T) {
		fp := normalFingerprint()
		fp.CookiesEnabled = false
		fp.DoNotTrack = false
		check := c.CheckDevice(cfg, fp)
		assert.InDelta(t, 0.3, check.Score, 0.001)
		assert.Equal(t, SeverityMedium, check.Severity)
	})

	t.Run("abnormal resolution", func(t *testing.T) {
		fp := normalFingerprint()
		fp.ScreenWidth = 100
		fp.ScreenHeight = 100
		check := c.CheckDevice(cfg, fp)

		ev, ok := check.Evidence.(*DeviceEvidence)
		require.True(t, ok)
		assert.True(t, ev.AbnormalResolution)
		assert.InDelta(t, 0.3, check.Score, 0.001)
	})
}

func TestCheckTemporal(t *testing.T) {
	c := newTestChecker(t)
	cfg := DefaultDetectionConfig()
	now := time.Now()

	t.Run("no history", func(t *testing.T) {
		check := c.CheckTemporal(cfg, nil, now)
		assert.Equal(t, 0.0, check.Score)
		assert.Equal(t, SparseHistoryConfidence, check.Confidence)
	})

	t.Run("excessive submissions in one hour", func(t *testing.T) {
		// Six in the trailing hour against a limit of three; irregular
		// gaps keep the cadence and rapid-fire signals quiet.
		subs := submissionsAt(now, 55*time.Minute, 47*time.Minute, 40*time.Minute, 26*time.Minute, 18*time.Minute, 3*time.Minute)
		check := c.CheckTemporal(cfg, subs, now)

		ev, ok := check.Evidence.(*TemporalEvidence)
		require.True(t, ok)
		assert.True(t, ev.ExcessiveSubmissions)
		assert.Equal(t, 6, ev.SubmissionsLastHour)
		assert.InDelta(t, 0.6, check.Score, 0.001)
		assert.Equal(t, SeverityHigh, check.Severity)
	})

	t.Run("rapid fire pair", func(t *testing.T) {
		subs := submissionsAt(now, 90*time.Second, 30*time.Second)
		check := c.CheckTemporal(cfg, subs, now)

		ev, ok := check.Evidence.(*TemporalEvidence)
		require.True(t, ok)
		assert.True(t, ev.RapidFire)
		assert.False(t, ev.ExcessiveSubmissions)
		assert.InDelta(t, 0.4, check.Score, 0.001)
	})

	t.Run("robotic cadence", func(t *testing.T) {
		subs := submissionsAt(now, 90*time.Minute, 60*time.Minute, 30*time.Minute, 0)
		check := c.CheckTemporal(cfg, subs, now)

		ev, ok := check.Evidence.(*TemporalEvidence)
		require.True(t, ok)
		assert.True(t, ev.RegularIntervals)
		assert.False(t, ev.ExcessiveSubmissions)
		assert.InDelta(t, 0.3, check.Score, 0.001)
	})
}

func TestCheckGeographic(t *testing.T) {
	c := newTestChecker(t)
	cfg := DefaultDetectionConfig()
	now := time.Now()

	t.Run("no history", func(t *testing.T) {
		check := c.CheckGeographic(cfg, nil, now)
		assert.Equal(t, 0.0, check.Score)
		assert.Equal(t, SparseHistoryConfidence, check.Confidence)
	})

	t.Run("impossible travel", func(t *testing.T) {
		visits := []feedback.LocationVisit{
			{LocationID: "stockholm-01", Timestamp: now.Add(-20 * time.Minute)},
			{LocationID: "goteborg-07", Timestamp: now.Add(-10 * time.Minute)},
		}
		check := c.CheckGeographic(cfg, visits, now)

		ev, ok := check.Evidence.(*GeoEvidence)
		require.True(t, ok)
		assert.True(t, ev.ImpossibleTravel)
		assert.Equal(t, "stockholm-01", ev.FromLocation)
		assert.Equal(t, "goteborg-07", ev.ToLocation)
		assert.InDelta(t, 0.4, check.Score, 0.001)
		assert.Equal(t, SeverityMedium, check.Severity)
	})

	t.Run("same location back to back is fine", func(t *testing.T) {
		visits := []feedback.LocationVisit{
			{LocationID: "stockholm-01", Timestamp: now.Add(-20 * time.Minute)},
			{LocationID: "stockholm-01", Timestamp: now.Add(-10 * time.Minute)},
		}
		check := c.CheckGeographic(cfg, visits, now)
		assert.Equal(t, 0.0, check.Score)
	})

	t.Run("location churn", func(t *testing.T) {
		var visits []feedback.LocationVisit
		for i := 0; i < 6; i++ {
			visits = append(visits, feedback.LocationVisit{
				LocationID: string(rune('a' + i)),
				Timestamp:  now.Add(-time.Duration(6-i) * 2 * time.Hour),
			})
		}
		check := c.CheckGeographic(cfg, visits, now)

		ev, ok := check.Evidence.(*GeoEvidence)
		require.True(t, ok)
		assert.True(t, ev.LocationChurn)
		assert.False(t, ev.ImpossibleTravel)
		assert.InDelta(t, 0.3, check.Score, 0.001)
	})
}

func TestCheckContext(t *testing.T) {
	c := newTestChecker(t)
	cfg := DefaultDetectionConfig()

	t.Run("no business context", func(t *testing.T) {
		check := c.CheckContext(cfg, "Maten var god och personalen hjälpsam", nil)
		assert.Equal(t, 0.0, check.Score)
		assert.Equal(t, 0.3, check.Confidence)
	})

	t.Run("denylisted vocabulary for business type", func(t *testing.T) {
		bizCtx := &feedback.BusinessContext{BusinessID: uuid.New(), Type: "cafe"}
		check := c.CheckContext(cfg, "Tandläkare var snäll och kaffet var gott", bizCtx)

		ev, ok := check.Evidence.(*ContextEvidence)
		require.True(t, ok)
		assert.Contains(t, ev.InappropriateTerms, "tandlakare")
		assert.Greater(t, check.Score, 0.0)
		assert.Equal(t, 0.7, check.Confidence)
	})

	t.Run("boilerplate feedback", func(t *testing.T) {
		check := c.CheckContext(cfg, "Bra service och trevlig personal, helt ok och jag kommer tillbaka", nil)

		ev, ok := check.Evidence.(*ContextEvidence)
		require.True(t, ok)
		assert.GreaterOrEqual(t, len(ev.GenericPhrases), 3)
		assert.InDelta(t, 0.3, check.Score, 0.001)
	})

	t.Run("extreme sentiment", func(t *testing.T) {
		check := c.CheckContext(cfg, "Det var fantastiskt helt perfekt och underbart verkligen magiskt", nil)

		ev, ok := check.Evidence.(*ContextEvidence)
		require.True(t, ok)
		assert.True(t, ev.ExtremeSentiment)
		assert.InDelta(t, 0.2, check.Score, 0.001)
	})
}

func TestCheckFrequency(t *testing.T) {
	c := newTestChecker(t)
	cfg := DefaultDetectionConfig()
	now := time.Now()

	t.Run("single submission", func(t *testing.T) {
		subs := submissionsAt(now, time.Hour)
		check := c.CheckFrequency(cfg, subs, now)
		assert.Equal(t, 0.0, check.Score)
		assert.Equal(t, SparseHistoryConfidence, check.Confidence)
	})

	t.Run("high daily rate", func(t *testing.T) {
		var offsets []time.Duration
		for i := 0; i < 20; i++ {
			offsets = append(offsets, time.Duration(i)*150*time.Minute)
		}
		subs := submissionsAt(now, offsets...)
		check := c.CheckFrequency(cfg, subs, now)

		ev, ok := check.Evidence.(*FrequencyEvidence)
		require.True(t, ok)
		assert.True(t, ev.HighFrequency)
		assert.Greater(t, ev.DailyAverage, cfg.HighDailyRate)
		assert.GreaterOrEqual(t, check.Score, 0.5)
	})

	t.Run("burst cluster", func(t *testing.T) {
		subs := submissionsAt(now, 12*time.Hour, 9*time.Minute, 5*time.Minute, 2*time.Minute)
		check := c.CheckFrequency(cfg, subs, now)

		ev, ok := check.Evidence.(*FrequencyEvidence)
		require.True(t, ok)
		assert.Equal(t, 1, ev.BurstClusters)
		assert.Greater(t, check.Score, 0.0)
	})
}

func TestCountBursts(t *testing.T) {
	now := time.Now()
	window := 10 * time.Minute

	cluster := func(start time.Duration) []time.Duration {
		return []time.Duration{start, start - 3*time.Minute, start - 6*time.Minute}
	}

	t.Run("two separated clusters", func(t *testing.T) {
		offsets := append(cluster(5*time.Hour), cluster(30*time.Minute)...)
		subs := submissionsAt(now, offsets...)
		assert.Equal(t, 2, countBursts(subs, window, 3))
	})

	t.Run("spread submissions form no cluster", func(t *testing.T) {
		subs := submissionsAt(now, 6*time.Hour, 4*time.Hour, 2*time.Hour, 0)
		assert.Equal(t, 0, countBursts(subs, window, 3))
	})

	t.Run("too few submissions", func(t *testing.T) {
		subs := submissionsAt(now, time.Minute, 0)
		assert.Equal(t, 0, countBursts(subs, window, 3))
	})
}

func TestHistoryConfidence(t *testing.T) {
	assert.Equal(t, SparseHistoryConfidence, historyConfidence(0))
	assert.Equal(t, SparseHistoryConfidence, historyConfidence(1))
	assert.InDelta(t, 0.7, historyConfidence(2), 0.001)
	assert.InDelta(t, 0.9, historyConfidence(10), 0.001)
}
