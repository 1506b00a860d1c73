package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Registry holds the fraud-engine metrics
type Registry struct {
	meter metric.Meter

	AnalysesStarted    metric.Int64Counter
	AnalysesCompleted  metric.Int64Counter
	AnalysesDegraded   metric.Int64Counter
	Recommendations    metric.Int64Counter
	AnalysisDuration   metric.Float64Histogram
	FlagsRaised        metric.Int64Counter
	HistoryStoreSize   metric.Int64ObservableGauge
	PatternStoreSize   metric.Int64ObservableGauge
}

// SizeFunc reports the current size of a store for gauge callbacks
type SizeFunc func() int

// NewRegistry creates the fraud metrics. historySize and patternSize feed
// the observable gauges; pass nil to skip a gauge.
func NewRegistry(meterName string, historySize, patternSize SizeFunc) (*Registry, error) {
	meter := otel.Meter(meterName)
	r := &Registry{meter: meter}

	var err error
	r.AnalysesStarted, err = meter.Int64Counter(
		"fraud.analysis.started_total",
		metric.WithDescription("Total number of fraud analyses started"),
	)
	if err != nil {
		return nil, err
	}

	r.AnalysesCompleted, err = meter.Int64Counter(
		"fraud.analysis.completed_total",
		metric.WithDescription("Total number of fraud analyses completed"),
	)
	if err != nil {
		return nil, err
	}

	r.AnalysesDegraded, err = meter.Int64Counter(
		"fraud.analysis.degraded_total",
		metric.WithDescription("Total number of analyses that fell back to the conservative default"),
	)
	if err != nil {
		return nil, err
	}

	r.Recommendations, err = meter.Int64Counter(
		"fraud.analysis.recommendations_total",
		metric.WithDescription("Recommendations by verdict"),
	)
	if err != nil {
		return nil, err
	}

	r.AnalysisDuration, err = meter.Float64Histogram(
		"fraud.analysis.duration",
		metric.WithDescription("Duration of one full session analysis in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 5, 10, 25, 50, 100, 250, 500, 1000),
	)
	if err != nil {
		return nil, err
	}

	r.FlagsRaised, err = meter.Int64Counter(
		"fraud.analysis.flags_total",
		metric.WithDescription("Fraud flags raised by check type"),
	)
	if err != nil {
		return nil, err
	}

	if historySize != nil {
		r.HistoryStoreSize, err = meter.Int64ObservableGauge(
			"fraud.history.fingerprints",
			metric.WithDescription("Fingerprints currently retained in the history store"),
			metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
				o.Observe(int64(historySize()))
				return nil
			}),
		)
		if err != nil {
			return nil, err
		}
	}

	if patternSize != nil {
		r.PatternStoreSize, err = meter.Int64ObservableGauge(
			"fraud.history.patterns",
			metric.WithDescription("Distinct template patterns observed"),
			metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
				o.Observe(int64(patternSize()))
				return nil
			}),
		)
		if err != nil {
			return nil, err
		}
	}

	return r, nil
}

// RecordAnalysis records the outcome of one analysis. Nil-safe so callers
// can run without metrics wired.
func (r *Registry) RecordAnalysis(ctx context.Context, recommendation string, flags int, duration time.Duration, degraded bool) {
	if r == nil {
		return
	}
	r.AnalysesCompleted.Add(ctx, 1)
	r.Recommendations.Add(ctx, 1, metric.WithAttributes(attribute.String("recommendation", recommendation)))
	r.AnalysisDuration.Record(ctx, float64(duration.Microseconds())/1000.0)
	if flags > 0 {
		r.FlagsRaised.Add(ctx, int64(flags))
	}
	if degraded {
		r.AnalysesDegraded.Add(ctx, 1)
	}
}

// Started records the start of one analysis. Nil-safe.
func (r *Registry) Started(ctx context.Context) {
	if r == nil {
		return
	}
	r.AnalysesStarted.Add(ctx, 1)
}
