package ml

import "sync"

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu            sync.Mutex
	predictions   int
	failures      int
	latencySum    float64
	probabilities []float64
	confidence    map[string]int
	fallbacks     map[string]int
	modelLoaded   bool
	modelAge      float64
}

func (m *MockMetrics) PredictionsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions++
}

func (m *MockMetrics) PredictionFailuresInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *MockMetrics) PredictionLatencyObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencySum += v
}

func (m *MockMetrics) SurvivalProbabilityObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probabilities = append(m.probabilities, v)
}

func (m *MockMetrics) ConfidenceInc(level string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.confidence == nil {
		m.confidence = make(map[string]int)
	}
	m.confidence[level]++
}

func (m *MockMetrics) CategoryFallbackInc(column string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fallbacks == nil {
		m.fallbacks = make(map[string]int)
	}
	m.fallbacks[column]++
}

func (m *MockMetrics) ModelLoadedSet(loaded bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelLoaded = loaded
}

func (m *MockMetrics) ModelAgeSet(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelAge = v
}

func (m *MockMetrics) Predictions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.predictions
}

func (m *MockMetrics) Failures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures
}

func (m *MockMetrics) Probabilities() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.probabilities...)
}

func (m *MockMetrics) Confidence(level string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.confidence[level]
}

func (m *MockMetrics) Fallbacks(column string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fallbacks[column]
}

func (m *MockMetrics) ModelLoaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.modelLoaded
}

func (m *MockMetrics) ModelAge() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.modelAge
}
