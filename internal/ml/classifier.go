// Package ml serves survival predictions from trained artifacts.
// It holds the classifier abstraction and its random forest implementation,
// the artifact loader and writer, the inference Predictor and the HTTP API
// in front of it.
//
// Artifacts are loaded once into an immutable Artifacts value; every request
// reads that value concurrently without locking.
package ml

// Classifier is the capability a trained model exposes to the serving path.
// Implementations must be safe for concurrent use once fitted.
type Classifier interface {
	// Predict returns the class label for one feature vector.
	Predict(features []float64) int

	// PredictProba returns the class probability distribution for one
	// feature vector, ordered by ascending class label.
	PredictProba(features []float64) []float64
}

// featureCounter is implemented by models that know their input width.
type featureCounter interface {
	FeatureCount() int
}
