package metrics

// MetricsWrapper adapts Metrics to the narrow interfaces the predictor, the
// training pipeline and the live feed depend on, so those packages do not
// import Prometheus.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) PredictionsInc() {
	w.m.Predictions.Inc()
}

func (w *MetricsWrapper) PredictionFailuresInc() {
	w.m.PredictionFailures.Inc()
}

func (w *MetricsWrapper) PredictionLatencyObserve(v float64) {
	w.m.PredictionLatency.Observe(v)
}

func (w *MetricsWrapper) SurvivalProbabilityObserve(v float64) {
	w.m.SurvivalProbability.Observe(v)
}

func (w *MetricsWrapper) ConfidenceInc(level string) {
	w.m.Confidence.WithLabelValues(level).Inc()
}

func (w *MetricsWrapper) CategoryFallbackInc(column string) {
	w.m.CategoryFallbacks.WithLabelValues(column).Inc()
}

func (w *MetricsWrapper) ModelLoadedSet(loaded bool) {
	if loaded {
		w.m.ModelLoaded.Set(1)
		return
	}
	w.m.ModelLoaded.Set(0)
}

func (w *MetricsWrapper) ModelAgeSet(v float64) {
	w.m.ModelAge.Set(v)
}

func (w *MetricsWrapper) TrainingRunsInc() {
	w.m.TrainingRuns.Inc()
}

func (w *MetricsWrapper) TrainingFailuresInc() {
	w.m.TrainingFailures.Inc()
}

func (w *MetricsWrapper) TrainingAccuracySet(v float64) {
	w.m.TrainingAccuracy.Set(v)
}

func (w *MetricsWrapper) TrainingDurationObserve(v float64) {
	w.m.TrainingDuration.Observe(v)
}

func (w *MetricsWrapper) FeedClientsSet(n int) {
	w.m.FeedClients.Set(float64(n))
}

func (w *MetricsWrapper) FeedDroppedInc() {
	w.m.FeedDropped.Inc()
}
