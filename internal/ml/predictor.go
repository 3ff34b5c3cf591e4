package ml

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"titanic-survival/internal/features"
)

// MetricsInterface defines metrics methods needed by the predictor
type MetricsInterface interface {
	PredictionsInc()
	PredictionFailuresInc()
	PredictionLatencyObserve(float64)
	SurvivalProbabilityObserve(float64)
	ConfidenceInc(level string)
	CategoryFallbackInc(column string)
	ModelLoadedSet(bool)
	ModelAgeSet(float64)
}

// Confidence is the coarse certainty label attached to a prediction.
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

// ConfidenceFor buckets a survival probability. Both bounds are strict, so
// 0.8 and 0.2 are Medium while 0.6 and 0.4 are Low.
func ConfidenceFor(p float64) Confidence {
	switch {
	case p > 0.8 || p < 0.2:
		return ConfidenceHigh
	case p > 0.6 || p < 0.4:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Prediction is the result of scoring one passenger.
type Prediction struct {
	Survived            bool       `json:"survived"`
	SurvivalProbability float64    `json:"survival_probability"`
	Confidence          Confidence `json:"confidence"`
}

// ModelInfo describes the loaded model for the /model-info endpoint.
type ModelInfo struct {
	Status       string    `json:"status"`
	ModelType    string    `json:"model_type,omitempty"`
	FeatureCount int       `json:"feature_count,omitempty"`
	Features     []string  `json:"features,omitempty"`
	TrainedAt    time.Time `json:"trained_at,omitzero"`
}

// Predictor scores passengers against loaded artifacts. A Predictor without
// artifacts stays usable and reports ErrModelUnavailable.
type Predictor struct {
	artifacts *Artifacts
	metrics   MetricsInterface
}

// NewPredictor wraps artifacts, which may be nil when loading failed.
func NewPredictor(artifacts *Artifacts, metrics MetricsInterface) *Predictor {
	p := &Predictor{artifacts: artifacts, metrics: metrics}
	if metrics != nil {
		metrics.ModelLoadedSet(artifacts != nil)
	}
	p.RefreshModelAge()
	return p
}

// RefreshModelAge updates the model age gauge.
func (p *Predictor) RefreshModelAge() {
	if !p.Available() || p.metrics == nil || p.artifacts.TrainedAt.IsZero() {
		return
	}
	p.metrics.ModelAgeSet(time.Since(p.artifacts.TrainedAt).Seconds())
}

// LoadPredictor loads artifacts from dir. Load failures are logged and
// produce a Predictor in the unavailable state; the error is returned too so
// callers can decide whether to continue.
func LoadPredictor(dir string, metrics MetricsInterface) (*Predictor, error) {
	artifacts, err := LoadArtifacts(dir)
	if err != nil {
		log.Warn().Err(err).Str("model_dir", dir).Msg("Model artifacts unavailable, predictions disabled")
		return NewPredictor(nil, metrics), err
	}
	return NewPredictor(artifacts, metrics), nil
}

// Available reports whether a model is loaded.
func (p *Predictor) Available() bool {
	return p != nil && p.artifacts != nil
}

// Predict derives, encodes and scales the passenger and returns the model
// verdict with its bucketed confidence.
func (p *Predictor) Predict(passenger features.Passenger) (Prediction, error) {
	if !p.Available() {
		if p != nil && p.metrics != nil {
			p.metrics.PredictionFailuresInc()
		}
		return Prediction{}, ErrModelUnavailable
	}

	start := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.PredictionLatencyObserve(time.Since(start).Seconds())
		}
	}()

	row := features.Derive(passenger)
	vec := p.artifacts.Vectorizer().Transform(row, func(column, value string) {
		log.Debug().
			Str("column", column).
			Str("value", value).
			Msg("Unseen category, using first known class")
		if p.metrics != nil {
			p.metrics.CategoryFallbackInc(column)
		}
	})

	label := p.artifacts.Model.Predict(vec)
	proba := p.artifacts.Model.PredictProba(vec)

	prob, err := survivalProbability(proba)
	if err != nil {
		log.Error().
			Err(err).
			Interface("features", vec).
			Msg("Model returned an unusable probability distribution")
		if p.metrics != nil {
			p.metrics.PredictionFailuresInc()
		}
		return Prediction{}, err
	}

	result := Prediction{
		Survived:            label != 0,
		SurvivalProbability: prob,
		Confidence:          ConfidenceFor(prob),
	}

	if p.metrics != nil {
		p.metrics.PredictionsInc()
		p.metrics.SurvivalProbabilityObserve(prob)
		p.metrics.ConfidenceInc(string(result.Confidence))
	}

	log.Debug().
		Interface("features", vec).
		Interface("probabilities", proba).
		Int("prediction", label).
		Msg("Prediction successful")

	return result, nil
}

// survivalProbability picks the positive-class probability, or the sole
// entry when the model saw only one class.
func survivalProbability(proba []float64) (float64, error) {
	if len(proba) == 0 {
		return 0, errors.New("empty probability distribution")
	}
	prob := proba[0]
	if len(proba) > 1 {
		prob = proba[1]
	}
	if math.IsNaN(prob) || prob < 0 || prob > 1 {
		return 0, fmt.Errorf("invalid survival probability %v", prob)
	}
	return prob, nil
}

// Info reports the loaded model, or the not-loaded status.
func (p *Predictor) Info() ModelInfo {
	if !p.Available() {
		return ModelInfo{Status: "Model not loaded"}
	}
	a := p.artifacts
	return ModelInfo{
		Status:       "Model loaded",
		ModelType:    a.ModelType,
		FeatureCount: len(a.FeatureNames),
		Features:     append([]string(nil), a.FeatureNames...),
		TrainedAt:    a.TrainedAt,
	}
}

// HealthStatus is the /health payload.
type HealthStatus struct {
	Status      string    `json:"status"`
	ModelLoaded bool      `json:"model_loaded"`
	Timestamp   time.Time `json:"timestamp"`
}

// Health reports whether the predictor can serve.
func (p *Predictor) Health() HealthStatus {
	status := "healthy"
	if !p.Available() {
		status = "unhealthy"
	}
	return HealthStatus{
		Status:      status,
		ModelLoaded: p.Available(),
		Timestamp:   time.Now().UTC(),
	}
}
