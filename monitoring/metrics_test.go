package monitoring

import (
	"strings"
	"testing"
	"time"
)

func TestCounterAccumulatesPerLabelSet(t *testing.T) {
	mc := NewMetricsCollector()
	mc.IncrCounter("requests", 1, map[string]string{"path": "/a"})
	mc.IncrCounter("requests", 1, map[string]string{"path": "/a"})
	mc.IncrCounter("requests", 1, map[string]string{"path": "/b"})

	if got := mc.Value("requests", map[string]string{"path": "/a"}); got != 2 {
		t.Fatalf("expected 2, got %v", got)
	}
	series, err := mc.GetMetric("requests")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("expected 2 series, got %d", len(series))
	}
	if _, err := mc.GetMetric("missing"); err == nil {
		t.Fatal("expected error for unknown metric")
	}
}

func TestExportPrometheus(t *testing.T) {
	mc := NewMetricsCollector()
	pm := NewPredictionMetrics(mc)
	pm.RecordOutcome("diabetes", "NEGATIVE", 2*time.Millisecond)
	pm.RecordOutcome("diabetes", "NEGATIVE", 4*time.Millisecond)
	pm.RecordError("thyroid", "model_unavailable")

	out := mc.ExportPrometheus()
	for _, want := range []string{
		"# TYPE predictions_total counter",
		`predictions_total{disease="diabetes",outcome="NEGATIVE"} 2`,
		`prediction_errors_total{disease="thyroid",kind="model_unavailable"} 1`,
		`prediction_latency_ms_sum{disease="diabetes"} 6`,
		`prediction_latency_ms_count{disease="diabetes"} 2`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("export missing %q:\n%s", want, out)
		}
	}
}

func TestNilPredictionMetricsIsNoop(t *testing.T) {
	var pm *PredictionMetrics
	pm.RecordOutcome("diabetes", "POSITIVE", time.Millisecond)
	pm.RecordError("diabetes", "inference_error")
	NewPredictionMetrics(nil).RecordOutcome("diabetes", "POSITIVE", time.Millisecond)
}
