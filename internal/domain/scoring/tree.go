package scoring

import (
	"math/rand"
	"sort"
)

// node is one node of a flattened tree. Leaves have Left == -1.
type node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	// Prob is the fraction of positive training samples that reached the
	// node; it is the prediction when the node is a leaf.
	Prob float64 `json:"p"`
}

func (n node) leaf() bool { return n.Left < 0 }

// tree is a binary classification tree. Rows with x[Feature] <= Threshold
// go left.
type tree struct {
	nodes []node
}

func (t *tree) predict(x []float64) float64 {
	i := 0
	for {
		n := t.nodes[i]
		if n.leaf() {
			return n.Prob
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// treeParams are the growth limits for a single tree.
type treeParams struct {
	maxDepth        int // 0 means unlimited
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int // features sampled per split
}

// grower builds one tree from the rows selected by sample.
type grower struct {
	X      [][]float64
	y      []int
	params treeParams
	rnd    *rand.Rand
	nodes  []node
}

func growTree(X [][]float64, y []int, sample []int, params treeParams, rnd *rand.Rand) *tree {
	g := &grower{X: X, y: y, params: params, rnd: rnd}
	idx := make([]int, len(sample))
	copy(idx, sample)
	g.build(idx, 0)
	return &tree{nodes: g.nodes}
}

func (g *grower) build(idx []int, depth int) int {
	pos := 0
	for _, i := range idx {
		pos += g.y[i]
	}
	self := len(g.nodes)
	g.nodes = append(g.nodes, node{Left: -1, Right: -1, Prob: float64(pos) / float64(len(idx))})

	if pos == 0 || pos == len(idx) ||
		len(idx) < g.params.minSamplesSplit ||
		(g.params.maxDepth > 0 && depth >= g.params.maxDepth) {
		return self
	}

	feature, threshold, ok := g.bestSplit(idx, pos)
	if !ok {
		return self
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if g.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := g.build(left, depth+1)
	r := g.build(right, depth+1)
	g.nodes[self].Feature = feature
	g.nodes[self].Threshold = threshold
	g.nodes[self].Left = l
	g.nodes[self].Right = r
	return self
}

// bestSplit searches maxFeatures randomly chosen features for the
// threshold with the lowest weighted gini impurity. If none of them splits
// the node it keeps drawing features until one does or all were tried.
// It reports false when no split separates the samples while honoring
// minSamplesLeaf.
func (g *grower) bestSplit(idx []int, pos int) (int, float64, bool) {
	p := len(g.X[idx[0]])
	k := g.params.maxFeatures
	if k <= 0 || k > p {
		k = p
	}
	order := g.rnd.Perm(p)

	n := len(idx)
	best := gini(pos, n)
	bestFeature, bestThreshold, found := -1, 0.0, false

	sorted := make([]int, n)
	for tried, f := range order {
		if tried >= k && found {
			break
		}
		copy(sorted, idx)
		sort.Slice(sorted, func(a, b int) bool { return g.X[sorted[a]][f] < g.X[sorted[b]][f] })

		leftPos := 0
		for i := 1; i < n; i++ {
			leftPos += g.y[sorted[i-1]]
			lo, hi := g.X[sorted[i-1]][f], g.X[sorted[i]][f]
			if lo == hi {
				continue
			}
			if i < g.params.minSamplesLeaf || n-i < g.params.minSamplesLeaf {
				continue
			}
			impurity := (float64(i)*gini(leftPos, i) + float64(n-i)*gini(pos-leftPos, n-i)) / float64(n)
			if impurity < best {
				best = impurity
				bestFeature = f
				bestThreshold = lo + (hi-lo)/2
				found = true
			}
		}
	}
	return bestFeature, bestThreshold, found
}

// gini returns the impurity of a node with pos positives out of n.
func gini(pos, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(pos) / float64(n)
	return 2 * p * (1 - p)
}
