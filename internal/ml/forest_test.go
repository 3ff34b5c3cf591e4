package ml

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// separableData returns rows where label is 1 exactly when x[0] > 0.5.
func separableData(n int, seed int64) ([][]float64, []int) {
	rnd := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]int, n)
	for i := range X {
		X[i] = []float64{rnd.Float64(), rnd.Float64(), rnd.Float64()}
		if X[i][0] > 0.5 {
			y[i] = 1
		}
	}
	return X, y
}

func TestRandomForest_Defaults(t *testing.T) {
	f := NewRandomForest()

	assert.Equal(t, 100, f.NEstimators)
	assert.Equal(t, 10, f.MaxDepth)
	assert.Equal(t, int64(42), f.RandomState)
	assert.True(t, f.Bootstrap)
}

func TestRandomForest_FitSeparable(t *testing.T) {
	X, y := separableData(200, 1)
	f := NewRandomForest(WithEstimators(25), WithMaxFeatures(3))
	require.NoError(t, f.Fit(X, y))

	assert.Equal(t, []int{0, 1}, f.Classes)
	assert.Equal(t, 3, f.FeatureCount())
	assert.Len(t, f.Trees, 25)

	assert.Equal(t, 1, f.Predict([]float64{0.95, 0.5, 0.5}))
	assert.Equal(t, 0, f.Predict([]float64{0.05, 0.5, 0.5}))

	correct := 0
	for i, row := range X {
		if f.Predict(row) == y[i] {
			correct++
		}
	}
	assert.Greater(t, float64(correct)/float64(len(X)), 0.95)
}

func TestRandomForest_ProbaIsDistribution(t *testing.T) {
	X, y := separableData(150, 2)
	f := NewRandomForest(WithEstimators(10))
	require.NoError(t, f.Fit(X, y))

	for _, row := range X[:20] {
		proba := f.PredictProba(row)
		require.Len(t, proba, 2)
		sum := 0.0
		for _, p := range proba {
			assert.GreaterOrEqual(t, p, 0.0)
			assert.LessOrEqual(t, p, 1.0)
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestRandomForest_DeterministicForSeed(t *testing.T) {
	X, y := separableData(120, 3)

	first := NewRandomForest(WithEstimators(8), WithWorkers(1))
	second := NewRandomForest(WithEstimators(8), WithWorkers(4))
	require.NoError(t, first.Fit(X, y))
	require.NoError(t, second.Fit(X, y))

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))

	other := NewRandomForest(WithEstimators(8), WithRandomState(7))
	require.NoError(t, other.Fit(X, y))
	c, err := json.Marshal(other)
	require.NoError(t, err)
	assert.NotEqual(t, string(a), string(c))
}

func TestRandomForest_SingleClass(t *testing.T) {
	X := [][]float64{{1, 2}, {3, 4}, {5, 6}}
	y := []int{1, 1, 1}

	f := NewRandomForest(WithEstimators(3))
	require.NoError(t, f.Fit(X, y))

	assert.Equal(t, []int{1}, f.Classes)
	assert.Equal(t, []float64{1}, f.PredictProba([]float64{0, 0}))
	assert.Equal(t, 1, f.Predict([]float64{0, 0}))
}

func TestRandomForest_MaxDepthRespected(t *testing.T) {
	X, y := separableData(200, 4)
	f := NewRandomForest(WithEstimators(5), WithMaxDepth(2))
	require.NoError(t, f.Fit(X, y))

	for _, tree := range f.Trees {
		assert.LessOrEqual(t, depth(tree, 0), 2)
	}
}

func depth(t *DecisionTree, i int) int {
	n := t.Nodes[i]
	if n.Left == leaf {
		return 0
	}
	return 1 + int(math.Max(float64(depth(t, n.Left)), float64(depth(t, n.Right))))
}

func TestRandomForest_FitErrors(t *testing.T) {
	testCases := []struct {
		name string
		X    [][]float64
		y    []int
	}{
		{"no rows", nil, nil},
		{"label count mismatch", [][]float64{{1}, {2}}, []int{0}},
		{"ragged rows", [][]float64{{1, 2}, {3}}, []int{0, 1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, NewRandomForest().Fit(tc.X, tc.y))
		})
	}

	assert.Error(t, NewRandomForest(WithEstimators(0)).Fit([][]float64{{1}}, []int{0}))
}

func TestRandomForest_ValidateAfterRoundTrip(t *testing.T) {
	X, y := separableData(80, 5)
	f := NewRandomForest(WithEstimators(4))
	require.NoError(t, f.Fit(X, y))

	data, err := json.Marshal(f)
	require.NoError(t, err)

	var restored RandomForest
	require.NoError(t, json.Unmarshal(data, &restored))
	require.NoError(t, restored.Validate())

	for _, row := range X {
		assert.Equal(t, f.PredictProba(row), restored.PredictProba(row))
	}

	restored.Trees[0].Nodes[0].Left = 9999
	assert.Error(t, restored.Validate())

	assert.Error(t, (&RandomForest{}).Validate())
}
