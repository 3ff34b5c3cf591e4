package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// RandomForestType is the model type recorded in the model artifact.
const RandomForestType = "RandomForestClassifier"

const (
	DefaultEstimators  = 100
	DefaultMaxDepth    = 10
	DefaultRandomState = 42
)

// RandomForest is a bagged ensemble of gini decision trees. Probabilities are
// the mean of the per-tree leaf distributions.
type RandomForest struct {
	NEstimators     int             `json:"n_estimators"`
	MaxDepth        int             `json:"max_depth"`
	MinSamplesSplit int             `json:"min_samples_split"`
	MinSamplesLeaf  int             `json:"min_samples_leaf"`
	MaxFeatures     int             `json:"max_features"`
	Bootstrap       bool            `json:"bootstrap"`
	RandomState     int64           `json:"random_state"`
	Workers         int             `json:"-"`
	Classes         []int           `json:"classes"`
	NFeatures       int             `json:"n_features"`
	Trees           []*DecisionTree `json:"trees"`
}

// ForestOption configures a RandomForest.
type ForestOption func(*RandomForest)

func WithEstimators(n int) ForestOption {
	return func(f *RandomForest) { f.NEstimators = n }
}

func WithMaxDepth(d int) ForestOption {
	return func(f *RandomForest) { f.MaxDepth = d }
}

func WithMinSamplesSplit(n int) ForestOption {
	return func(f *RandomForest) { f.MinSamplesSplit = n }
}

func WithMinSamplesLeaf(n int) ForestOption {
	return func(f *RandomForest) { f.MinSamplesLeaf = n }
}

// WithMaxFeatures sets the number of features tried per split. Zero selects
// floor(sqrt(n_features)).
func WithMaxFeatures(n int) ForestOption {
	return func(f *RandomForest) { f.MaxFeatures = n }
}

func WithBootstrap(b bool) ForestOption {
	return func(f *RandomForest) { f.Bootstrap = b }
}

func WithRandomState(seed int64) ForestOption {
	return func(f *RandomForest) { f.RandomState = seed }
}

// WithWorkers bounds how many trees are grown concurrently.
func WithWorkers(n int) ForestOption {
	return func(f *RandomForest) { f.Workers = n }
}

// NewRandomForest returns an unfitted forest with 100 trees of depth 10
// seeded with 42, unless overridden.
func NewRandomForest(opts ...ForestOption) *RandomForest {
	f := &RandomForest{
		NEstimators:     DefaultEstimators,
		MaxDepth:        DefaultMaxDepth,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Bootstrap:       true,
		RandomState:     DefaultRandomState,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fit grows the forest on X and labels y. Each tree draws from its own
// generator seeded with RandomState+i, so results do not depend on
// scheduling.
func (f *RandomForest) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return errors.New("fit: no training rows")
	}
	if len(X) != len(y) {
		return fmt.Errorf("fit: %d rows but %d labels", len(X), len(y))
	}
	if f.NEstimators <= 0 {
		return fmt.Errorf("fit: n_estimators must be positive, got %d", f.NEstimators)
	}

	nFeatures := len(X[0])
	for i, row := range X {
		if len(row) != nFeatures {
			return fmt.Errorf("fit: row %d has %d features, expected %d", i, len(row), nFeatures)
		}
	}

	classes, encoded := indexClasses(y)
	maxFeatures := f.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Max(1, math.Floor(math.Sqrt(float64(nFeatures)))))
	}
	params := treeParams{
		maxDepth:        f.MaxDepth,
		minSamplesSplit: max(f.MinSamplesSplit, 2),
		minSamplesLeaf:  max(f.MinSamplesLeaf, 1),
		maxFeatures:     maxFeatures,
	}

	workers := f.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	trees := make([]*DecisionTree, f.NEstimators)
	var g errgroup.Group
	g.SetLimit(workers)
	for i := range trees {
		g.Go(func() error {
			rnd := rand.New(rand.NewSource(f.RandomState + int64(i)))
			idx := make([]int, len(X))
			for j := range idx {
				if f.Bootstrap {
					idx[j] = rnd.Intn(len(X))
				} else {
					idx[j] = j
				}
			}
			trees[i] = fitTree(X, encoded, idx, len(classes), params, rnd)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	f.Classes = classes
	f.NFeatures = nFeatures
	f.Trees = trees
	return nil
}

// PredictProba returns the mean class distribution over all trees, ordered
// like Classes.
func (f *RandomForest) PredictProba(x []float64) []float64 {
	proba := make([]float64, len(f.Classes))
	if len(f.Trees) == 0 {
		return proba
	}
	for _, t := range f.Trees {
		for k, p := range t.proba(x) {
			proba[k] += p
		}
	}
	n := float64(len(f.Trees))
	for k := range proba {
		proba[k] /= n
	}
	return proba
}

// Predict returns the class with the highest mean probability. Ties go to
// the lower label.
func (f *RandomForest) Predict(x []float64) int {
	proba := f.PredictProba(x)
	if len(proba) == 0 {
		return 0
	}
	best := 0
	for k := 1; k < len(proba); k++ {
		if proba[k] > proba[best] {
			best = k
		}
	}
	return f.Classes[best]
}

func (f *RandomForest) FeatureCount() int {
	return f.NFeatures
}

// Validate checks a deserialized forest before it is served.
func (f *RandomForest) Validate() error {
	if len(f.Trees) == 0 {
		return errors.New("forest has no trees")
	}
	if len(f.Classes) == 0 {
		return errors.New("forest has no classes")
	}
	for ti, t := range f.Trees {
		if t == nil || len(t.Nodes) == 0 {
			return fmt.Errorf("tree %d is empty", ti)
		}
		for ni, n := range t.Nodes {
			if n.Left == leaf {
				if len(n.Proba) != len(f.Classes) {
					return fmt.Errorf("tree %d node %d: leaf has %d probabilities for %d classes", ti, ni, len(n.Proba), len(f.Classes))
				}
				continue
			}
			if n.Left <= ni || n.Right <= ni || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
				return fmt.Errorf("tree %d node %d: child index out of range", ti, ni)
			}
			if n.Feature < 0 || n.Feature >= f.NFeatures {
				return fmt.Errorf("tree %d node %d: feature %d out of range", ti, ni, n.Feature)
			}
		}
	}
	return nil
}

// indexClasses maps labels to dense indices in ascending label order.
func indexClasses(y []int) ([]int, []int) {
	seen := make(map[int]struct{})
	for _, label := range y {
		seen[label] = struct{}{}
	}
	classes := make([]int, 0, len(seen))
	for label := range seen {
		classes = append(classes, label)
	}
	sort.Ints(classes)

	pos := make(map[int]int, len(classes))
	for i, label := range classes {
		pos[label] = i
	}
	encoded := make([]int, len(y))
	for i, label := range y {
		encoded[i] = pos[label]
	}
	return classes, encoded
}
