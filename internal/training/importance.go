package training

import (
	"fmt"
	"math/rand"
	"sort"

	"titanic-survival/internal/ml"
)

// FeatureImportance is the hold-out accuracy lost when one column is shuffled.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"` // clamped at zero
	Drop       float64 `json:"accuracy_drop"`
}

// PermutationImportance scores each column of X by shuffling it across rows
// and measuring the accuracy drop of model. Results are ordered by importance,
// most important first; ties keep column order.
func PermutationImportance(model ml.Classifier, X [][]float64, y []int, names []string, seed int64) ([]FeatureImportance, error) {
	if len(X) == 0 {
		return nil, fmt.Errorf("permutation importance: no rows")
	}
	if len(X) != len(y) {
		return nil, fmt.Errorf("permutation importance: %d rows but %d labels", len(X), len(y))
	}
	if len(X[0]) != len(names) {
		return nil, fmt.Errorf("permutation importance: %d columns but %d names", len(X[0]), len(names))
	}

	baseline := accuracyOf(model, X, y)
	rnd := rand.New(rand.NewSource(seed))

	permuted := make([][]float64, len(X))
	for i := range X {
		permuted[i] = append([]float64(nil), X[i]...)
	}
	column := make([]float64, len(X))

	result := make([]FeatureImportance, len(names))
	for j, name := range names {
		for i := range X {
			column[i] = X[i][j]
		}
		rnd.Shuffle(len(column), func(a, b int) { column[a], column[b] = column[b], column[a] })
		for i := range permuted {
			permuted[i][j] = column[i]
		}

		drop := baseline - accuracyOf(model, permuted, y)
		result[j] = FeatureImportance{Feature: name, Importance: max(0, drop), Drop: drop}

		for i := range permuted {
			permuted[i][j] = X[i][j]
		}
	}

	sort.SliceStable(result, func(a, b int) bool {
		return result[a].Importance > result[b].Importance
	})
	return result, nil
}

// TopFeatures returns the names of the n most important features.
func TopFeatures(importances []FeatureImportance, n int) []string {
	if n > len(importances) {
		n = len(importances)
	}
	names := make([]string, n)
	for i := 0; i < n; i++ {
		names[i] = importances[i].Feature
	}
	return names
}

func accuracyOf(model ml.Classifier, X [][]float64, y []int) float64 {
	correct := 0
	for i, x := range X {
		if model.Predict(x) == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(X))
}
