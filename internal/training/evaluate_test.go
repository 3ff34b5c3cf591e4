package training

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	yTrue := []int{0, 0, 0, 0, 1, 1, 1, 1, 1, 0}
	yPred := []int{0, 0, 1, 0, 1, 1, 0, 1, 1, 0}

	eval, err := Evaluate(yTrue, yPred)
	require.NoError(t, err)

	assert.InDelta(t, 0.8, eval.Accuracy, 1e-12)
	assert.Equal(t, 10, eval.Samples)
	require.Len(t, eval.Classes, 2)

	died := eval.Classes[0]
	assert.Equal(t, 0, died.Label)
	assert.Equal(t, 5, died.Support)
	assert.InDelta(t, 4.0/5.0, died.Precision, 1e-12)
	assert.InDelta(t, 4.0/5.0, died.Recall, 1e-12)
	assert.InDelta(t, 0.8, died.F1, 1e-12)

	survived := eval.Classes[1]
	assert.Equal(t, 1, survived.Label)
	assert.Equal(t, 5, survived.Support)
	assert.InDelta(t, 0.8, survived.Precision, 1e-12)
	assert.InDelta(t, 0.8, survived.Recall, 1e-12)
}

func TestEvaluate_NeverPredictedClass(t *testing.T) {
	eval, err := Evaluate([]int{0, 1, 1}, []int{0, 0, 0})
	require.NoError(t, err)

	survived := eval.Classes[1]
	assert.Equal(t, 0.0, survived.Precision)
	assert.Equal(t, 0.0, survived.Recall)
	assert.Equal(t, 0.0, survived.F1)
	assert.Equal(t, 2, survived.Support)
}

func TestEvaluate_Errors(t *testing.T) {
	_, err := Evaluate([]int{0}, []int{0, 1})
	assert.Error(t, err)
	_, err = Evaluate(nil, nil)
	assert.Error(t, err)
}

func TestEvaluation_String(t *testing.T) {
	eval, err := Evaluate([]int{0, 1}, []int{0, 1})
	require.NoError(t, err)

	report := eval.String()
	assert.Contains(t, report, "precision")
	assert.Contains(t, report, "accuracy")
	assert.Equal(t, 5, strings.Count(report, "\n"))
}
