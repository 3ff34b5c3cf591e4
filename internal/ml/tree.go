package ml

import (
	"math/rand"
	"sort"
)

const leaf = -1

// TreeNode is one node of a fitted tree. Internal nodes send x[Feature] <=
// Threshold to Left; leaves have Left == Right == -1 and carry Proba.
type TreeNode struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Samples   int       `json:"samples"`
	Proba     []float64 `json:"proba,omitempty"`
}

// DecisionTree is a CART classifier stored as a flat node slice, root first.
type DecisionTree struct {
	Nodes []TreeNode `json:"nodes"`
}

type treeParams struct {
	maxDepth        int // 0 means unlimited
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int // 0 means all features
}

type treeBuilder struct {
	X        [][]float64
	y        []int // class indices
	nClasses int
	params   treeParams
	rnd      *rand.Rand
	tree     *DecisionTree
}

// fitTree grows a gini tree on the rows listed in idx. Rows may repeat.
func fitTree(X [][]float64, y []int, idx []int, nClasses int, params treeParams, rnd *rand.Rand) *DecisionTree {
	b := &treeBuilder{
		X:        X,
		y:        y,
		nClasses: nClasses,
		params:   params,
		rnd:      rnd,
		tree:     &DecisionTree{},
	}
	b.build(idx, 0)
	return b.tree
}

func (b *treeBuilder) build(idx []int, depth int) int {
	counts := b.counts(idx)
	pos := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, TreeNode{Left: leaf, Right: leaf, Samples: len(idx)})

	stop := isPure(counts) ||
		len(idx) < b.params.minSamplesSplit ||
		(b.params.maxDepth > 0 && depth >= b.params.maxDepth)
	if stop {
		b.tree.Nodes[pos].Proba = toProba(counts)
		return pos
	}

	feature, threshold, ok := b.bestSplit(idx, counts)
	if !ok {
		b.tree.Nodes[pos].Proba = toProba(counts)
		return pos
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if b.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)

	node := &b.tree.Nodes[pos]
	node.Feature = feature
	node.Threshold = threshold
	node.Left = l
	node.Right = r
	return pos
}

// bestSplit scans the sampled features for the threshold with the largest
// gini decrease.
func (b *treeBuilder) bestSplit(idx []int, parentCounts []int) (int, float64, bool) {
	nFeatures := len(b.X[0])
	candidates := b.rnd.Perm(nFeatures)
	if b.params.maxFeatures > 0 && b.params.maxFeatures < nFeatures {
		candidates = candidates[:b.params.maxFeatures]
	}

	n := float64(len(idx))
	parent := gini(parentCounts, len(idx))
	bestGain := 1e-12
	bestFeature, bestThreshold, found := 0, 0.0, false

	sorted := make([]int, len(idx))
	leftCounts := make([]int, b.nClasses)
	rightCounts := make([]int, b.nClasses)

	for _, f := range candidates {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, c int) bool { return b.X[sorted[a]][f] < b.X[sorted[c]][f] })

		for k := range leftCounts {
			leftCounts[k] = 0
		}
		copy(rightCounts, parentCounts)

		for s := 1; s < len(sorted); s++ {
			cls := b.y[sorted[s-1]]
			leftCounts[cls]++
			rightCounts[cls]--

			lo, hi := b.X[sorted[s-1]][f], b.X[sorted[s]][f]
			if lo == hi {
				continue
			}
			if s < b.params.minSamplesLeaf || len(sorted)-s < b.params.minSamplesLeaf {
				continue
			}

			weighted := (float64(s)/n)*gini(leftCounts, s) +
				(float64(len(sorted)-s)/n)*gini(rightCounts, len(sorted)-s)
			if gain := parent - weighted; gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = (lo + hi) / 2
				found = true
			}
		}
	}
	return bestFeature, bestThreshold, found
}

func (b *treeBuilder) counts(idx []int) []int {
	counts := make([]int, b.nClasses)
	for _, i := range idx {
		counts[b.y[i]]++
	}
	return counts
}

// proba walks the tree for x and returns the leaf distribution.
func (t *DecisionTree) proba(x []float64) []float64 {
	i := 0
	for {
		node := &t.Nodes[i]
		if node.Left == leaf {
			return node.Proba
		}
		if x[node.Feature] <= node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
	}
}

func gini(counts []int, n int) float64 {
	if n == 0 {
		return 0
	}
	res := 1.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		res -= p * p
	}
	return res
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func toProba(counts []int) []float64 {
	total := 0
	for _, c := range counts {
		total += c
	}
	p := make([]float64, len(counts))
	if total == 0 {
		return p
	}
	for i, c := range counts {
		p[i] = float64(c) / float64(total)
	}
	return p
}
