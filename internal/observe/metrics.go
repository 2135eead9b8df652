// Package observe provides the application's observability primitives:
// OpenTelemetry metric instruments and a Prometheus exporter bridge.
//
// Metrics are recorded through the OpenTelemetry Metrics API and exposed for
// scraping via [InitProvider]. A package-level default [Metrics] instance is
// available through [DefaultMetrics]; tests should build their own with
// [NewMetrics] and a private MeterProvider to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope for all voxnav metrics.
const meterName = "github.com/voxnav/voxnav"

// Metrics holds the metric instruments. The underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// Commands counts handled voice commands. Attributes: action, status.
	Commands metric.Int64Counter

	// ParsePath counts resolutions by which backend answered. Attribute:
	// path (remote, local, llm).
	ParsePath metric.Int64Counter

	// MatchScore tracks accepted descriptor match scores.
	MatchScore metric.Float64Histogram

	// CacheRefreshDuration tracks element enumeration latency.
	CacheRefreshDuration metric.Float64Histogram

	// CacheElements reports the interactive element count after a refresh.
	CacheElements metric.Int64Gauge

	// SessionRestarts counts listening session restarts.
	SessionRestarts metric.Int64Counter

	// ActiveEngines tracks the number of running engines.
	ActiveEngines metric.Int64UpDownCounter
}

// scoreBuckets covers the match score range.
var scoreBuckets = []float64{0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1}

// refreshBuckets covers element enumeration latencies in seconds.
var refreshBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// NewMetrics creates a fully initialised [Metrics] using the given
// MeterProvider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Commands, err = m.Int64Counter("voxnav.commands",
		metric.WithDescription("Handled voice commands by action and status."),
	); err != nil {
		return nil, err
	}
	if met.ParsePath, err = m.Int64Counter("voxnav.parse.path",
		metric.WithDescription("Resolutions by answering parse backend."),
	); err != nil {
		return nil, err
	}
	if met.MatchScore, err = m.Float64Histogram("voxnav.match.score",
		metric.WithDescription("Accepted descriptor match scores."),
		metric.WithExplicitBucketBoundaries(scoreBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CacheRefreshDuration, err = m.Float64Histogram("voxnav.cache.refresh.duration",
		metric.WithDescription("Element enumeration latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(refreshBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CacheElements, err = m.Int64Gauge("voxnav.cache.elements",
		metric.WithDescription("Interactive elements in the current inventory."),
	); err != nil {
		return nil, err
	}
	if met.SessionRestarts, err = m.Int64Counter("voxnav.listening.restarts",
		metric.WithDescription("Listening session restarts."),
	); err != nil {
		return nil, err
	}
	if met.ActiveEngines, err = m.Int64UpDownCounter("voxnav.active_engines",
		metric.WithDescription("Number of running command engines."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics], creating it on first
// call from the global MeterProvider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordCommand increments the command counter with the standard attributes.
func (m *Metrics) RecordCommand(ctx context.Context, action, status string) {
	m.Commands.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("status", status),
	))
}

// RecordParsePath notes which backend produced a resolution.
func (m *Metrics) RecordParsePath(ctx context.Context, path string) {
	m.ParsePath.Add(ctx, 1, metric.WithAttributes(attribute.String("path", path)))
}
