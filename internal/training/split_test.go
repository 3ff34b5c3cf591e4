package training

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labelsWith(zeros, ones int) []int {
	labels := make([]int, 0, zeros+ones)
	for i := 0; i < zeros; i++ {
		labels = append(labels, 0)
	}
	for i := 0; i < ones; i++ {
		labels = append(labels, 1)
	}
	return labels
}

func TestStratifiedSplit_PreservesProportions(t *testing.T) {
	labels := labelsWith(549, 342)

	train, test, err := StratifiedSplit(labels, 0.2, 42)
	require.NoError(t, err)

	// round(549*0.2) + round(342*0.2)
	assert.Len(t, test, 110+68)
	assert.Len(t, train, 891-178)

	count := func(idx []int, label int) int {
		n := 0
		for _, i := range idx {
			if labels[i] == label {
				n++
			}
		}
		return n
	}
	assert.Equal(t, 110, count(test, 0))
	assert.Equal(t, 68, count(test, 1))
	assert.Equal(t, 549-110, count(train, 0))
}

func TestStratifiedSplit_PartitionsAllRows(t *testing.T) {
	labels := labelsWith(40, 20)

	train, test, err := StratifiedSplit(labels, 0.25, 7)
	require.NoError(t, err)

	seen := make(map[int]bool)
	for _, i := range append(append([]int{}, train...), test...) {
		assert.False(t, seen[i], "index %d assigned twice", i)
		seen[i] = true
	}
	assert.Len(t, seen, len(labels))
	assert.IsIncreasing(t, train)
	assert.IsIncreasing(t, test)
}

func TestStratifiedSplit_Deterministic(t *testing.T) {
	labels := labelsWith(30, 30)

	train1, test1, err := StratifiedSplit(labels, 0.2, 42)
	require.NoError(t, err)
	train2, test2, err := StratifiedSplit(labels, 0.2, 42)
	require.NoError(t, err)
	assert.Equal(t, train1, train2)
	assert.Equal(t, test1, test2)

	_, test3, err := StratifiedSplit(labels, 0.2, 43)
	require.NoError(t, err)
	assert.NotEqual(t, test1, test3)
}

func TestStratifiedSplit_Errors(t *testing.T) {
	_, _, err := StratifiedSplit(labelsWith(5, 5), 0, 1)
	assert.Error(t, err)
	_, _, err = StratifiedSplit(labelsWith(5, 5), 1, 1)
	assert.Error(t, err)
	_, _, err = StratifiedSplit([]int{1}, 0.2, 1)
	assert.Error(t, err)
	_, _, err = StratifiedSplit(labelsWith(1, 1), 0.2, 1)
	assert.Error(t, err, "both classes round to zero test rows")
}
