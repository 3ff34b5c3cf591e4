package metrics

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestWrapper(t *testing.T) (*Metrics, *MetricsWrapper) {
	t.Helper()
	registry := prometheus.NewRegistry()
	metrics := NewWithRegistry(registry)
	return metrics, NewWrapper(metrics)
}

func TestNewWrapper(t *testing.T) {
	metrics, wrapper := newTestWrapper(t)

	if wrapper == nil {
		t.Fatal("NewWrapper returned nil")
	}
	if wrapper.m != metrics {
		t.Error("Wrapper does not contain correct metrics instance")
	}
}

func TestMetricsWrapper_PredictionCounters(t *testing.T) {
	metrics, wrapper := newTestWrapper(t)

	if v := testutil.ToFloat64(metrics.Predictions); v != 0 {
		t.Errorf("Expected initial counter value 0, got %f", v)
	}

	wrapper.PredictionsInc()
	wrapper.PredictionsInc()
	wrapper.PredictionFailuresInc()

	if v := testutil.ToFloat64(metrics.Predictions); v != 2 {
		t.Errorf("Expected 2 predictions, got %f", v)
	}
	if v := testutil.ToFloat64(metrics.PredictionFailures); v != 1 {
		t.Errorf("Expected 1 failure, got %f", v)
	}
}

func TestMetricsWrapper_LabelledCounters(t *testing.T) {
	metrics, wrapper := newTestWrapper(t)

	wrapper.ConfidenceInc("High")
	wrapper.ConfidenceInc("High")
	wrapper.ConfidenceInc("Low")
	wrapper.CategoryFallbackInc("Sex")

	testCases := []struct {
		name     string
		counter  prometheus.Collector
		expected float64
	}{
		{"high confidence", metrics.Confidence.WithLabelValues("High"), 2},
		{"low confidence", metrics.Confidence.WithLabelValues("Low"), 1},
		{"medium confidence", metrics.Confidence.WithLabelValues("Medium"), 0},
		{"sex fallback", metrics.CategoryFallbacks.WithLabelValues("Sex"), 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if v := testutil.ToFloat64(tc.counter); v != tc.expected {
				t.Errorf("Expected %f, got %f", tc.expected, v)
			}
		})
	}
}

func TestMetricsWrapper_Histograms(t *testing.T) {
	metrics, wrapper := newTestWrapper(t)

	wrapper.PredictionLatencyObserve(0.002)
	wrapper.SurvivalProbabilityObserve(0.73)
	wrapper.TrainingDurationObserve(3.5)

	for name, h := range map[string]prometheus.Collector{
		"prediction_latency_seconds": metrics.PredictionLatency,
		"survival_probability":       metrics.SurvivalProbability,
		"training_duration_seconds":  metrics.TrainingDuration,
	} {
		if n := testutil.CollectAndCount(h, name); n != 1 {
			t.Errorf("Expected histogram %s to be collected once, got %d", name, n)
		}
	}
}

func TestMetricsWrapper_Gauges(t *testing.T) {
	metrics, wrapper := newTestWrapper(t)

	wrapper.ModelLoadedSet(true)
	if v := testutil.ToFloat64(metrics.ModelLoaded); v != 1 {
		t.Errorf("Expected model_loaded 1, got %f", v)
	}
	wrapper.ModelLoadedSet(false)
	if v := testutil.ToFloat64(metrics.ModelLoaded); v != 0 {
		t.Errorf("Expected model_loaded 0, got %f", v)
	}

	wrapper.ModelAgeSet(3600)
	if v := testutil.ToFloat64(metrics.ModelAge); v != 3600 {
		t.Errorf("Expected model age 3600, got %f", v)
	}

	wrapper.TrainingAccuracySet(0.82)
	if v := testutil.ToFloat64(metrics.TrainingAccuracy); v != 0.82 {
		t.Errorf("Expected training accuracy 0.82, got %f", v)
	}

	wrapper.FeedClientsSet(3)
	if v := testutil.ToFloat64(metrics.FeedClients); v != 3 {
		t.Errorf("Expected 3 feed clients, got %f", v)
	}
}

func TestMetricsWrapper_TrainingCounters(t *testing.T) {
	metrics, wrapper := newTestWrapper(t)

	wrapper.TrainingRunsInc()
	wrapper.TrainingFailuresInc()
	wrapper.FeedDroppedInc()

	if v := testutil.ToFloat64(metrics.TrainingRuns); v != 1 {
		t.Errorf("Expected 1 training run, got %f", v)
	}
	if v := testutil.ToFloat64(metrics.TrainingFailures); v != 1 {
		t.Errorf("Expected 1 training failure, got %f", v)
	}
	if v := testutil.ToFloat64(metrics.FeedDropped); v != 1 {
		t.Errorf("Expected 1 dropped event, got %f", v)
	}
}

func TestMetricsWrapper_ConcurrentAccess(t *testing.T) {
	metrics, wrapper := newTestWrapper(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				wrapper.PredictionsInc()
				wrapper.PredictionLatencyObserve(0.01)
				wrapper.ConfidenceInc("Medium")
			}
		}()
	}
	wg.Wait()

	expected := 1000.0 // 10 goroutines * 100 increments
	if v := testutil.ToFloat64(metrics.Predictions); v != expected {
		t.Errorf("Expected %f predictions after concurrent access, got %f", expected, v)
	}
	if v := testutil.ToFloat64(metrics.Confidence.WithLabelValues("Medium")); v != expected {
		t.Errorf("Expected %f medium confidence after concurrent access, got %f", expected, v)
	}
}

func TestNewWithRegistry_RegistersAll(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewWithRegistry(registry)

	// A second registration on the same registry must panic.
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected duplicate registration to panic")
		}
	}()
	NewWithRegistry(registry)
}

func BenchmarkMetricsWrapper_PredictionsInc(b *testing.B) {
	wrapper := NewWrapper(NewWithRegistry(prometheus.NewRegistry()))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		wrapper.PredictionsInc()
	}
}

func BenchmarkMetricsWrapper_ConfidenceInc(b *testing.B) {
	wrapper := NewWrapper(NewWithRegistry(prometheus.NewRegistry()))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		wrapper.ConfidenceInc("High")
	}
}
