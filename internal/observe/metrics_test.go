package observe

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestRecordCommand(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordCommand(ctx, "click", "ok")
	m.RecordCommand(ctx, "click", "ok")
	m.RecordCommand(ctx, "scroll", "no-match")

	rm := collect(t, reader)
	mtr := findMetric(rm, "voxnav.commands")
	if mtr == nil {
		t.Fatal("voxnav.commands not found")
	}
	sum, ok := mtr.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("unexpected data type %T", mtr.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
}

func TestMatchScoreHistogram(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.MatchScore.Record(ctx, 0.9)
	m.MatchScore.Record(ctx, 0.72)

	rm := collect(t, reader)
	mtr := findMetric(rm, "voxnav.match.score")
	if mtr == nil {
		t.Fatal("voxnav.match.score not found")
	}
	hist, ok := mtr.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("unexpected data type %T", mtr.Data)
	}
	if len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 2 {
		t.Fatalf("histogram data points = %+v", hist.DataPoints)
	}
}

func TestActiveEnginesUpDown(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ActiveEngines.Add(ctx, 1)
	m.ActiveEngines.Add(ctx, 1)
	m.ActiveEngines.Add(ctx, -1)

	rm := collect(t, reader)
	mtr := findMetric(rm, "voxnav.active_engines")
	if mtr == nil {
		t.Fatal("voxnav.active_engines not found")
	}
	sum, ok := mtr.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("unexpected data type %T", mtr.Data)
	}
	if len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 1 {
		t.Fatalf("data points = %+v", sum.DataPoints)
	}
}
