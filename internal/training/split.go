package training

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// StratifiedSplit partitions row indices into train and test sets so each
// label keeps its share of the test set. Every class contributes
// round(n*testRatio) rows to the test set, but never all of its rows.
// Indices in both sets are returned in ascending order.
func StratifiedSplit(labels []int, testRatio float64, seed int64) ([]int, []int, error) {
	if testRatio <= 0 || testRatio >= 1 {
		return nil, nil, fmt.Errorf("test ratio must be in (0, 1), got %v", testRatio)
	}
	if len(labels) < 2 {
		return nil, nil, fmt.Errorf("need at least 2 rows to split, got %d", len(labels))
	}

	byClass := make(map[int][]int)
	for i, label := range labels {
		byClass[label] = append(byClass[label], i)
	}
	classes := make([]int, 0, len(byClass))
	for label := range byClass {
		classes = append(classes, label)
	}
	sort.Ints(classes)

	rnd := rand.New(rand.NewSource(seed))
	var train, test []int
	for _, label := range classes {
		idx := byClass[label]
		rnd.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

		nTest := int(math.Round(float64(len(idx)) * testRatio))
		if nTest >= len(idx) {
			nTest = len(idx) - 1
		}
		test = append(test, idx[:nTest]...)
		train = append(train, idx[nTest:]...)
	}

	if len(test) == 0 {
		return nil, nil, fmt.Errorf("test ratio %v leaves no test rows for %d records", testRatio, len(labels))
	}

	sort.Ints(train)
	sort.Ints(test)
	return train, test, nil
}
