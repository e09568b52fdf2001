package anomaly

import (
	"math"
	"math/rand"
)

// Isolation forest scoring after Liu, Ting & Zhou (2008). Points isolated by
// fewer random partitions receive higher scores. All randomness flows from a
// caller-supplied seed, so a given dataset always produces the same forest.

const (
	defaultTrees     = 100
	defaultSubsample = 256

	// scoreFloor is the paper's normalization midpoint. Scores at or below it
	// read as typical no matter how the rest of the sample scores.
	scoreFloor = 0.5

	// scoreSpreadFactor sets the contamination estimate: a row is anomalous
	// only when its score exceeds the sample's mean score by this many
	// standard deviations. On small subsamples the height-limited trees push
	// a distribution's min/max past 0.5 even when they are typical values,
	// so a flat cut at the floor over-flags; the spread term separates rows
	// that stand out from rows that merely sit at the edges.
	scoreSpreadFactor = 2.0
)

type iNode struct {
	left, right *iNode
	splitAttr   int
	splitValue  float64
	size        int // external node: number of samples that landed here
}

type isolationForest struct {
	trees     []*iNode
	subsample int
}

// newIsolationForest builds numTrees trees over random subsamples of X.
// X must be non-empty and rectangular.
func newIsolationForest(X [][]float64, numTrees, subsample int, seed int64) *isolationForest {
	rng := rand.New(rand.NewSource(seed))
	if subsample > len(X) {
		subsample = len(X)
	}
	heightLimit := int(math.Ceil(math.Log2(float64(subsample))))
	if heightLimit < 1 {
		heightLimit = 1
	}

	f := &isolationForest{subsample: subsample}
	for t := 0; t < numTrees; t++ {
		idx := rng.Perm(len(X))[:subsample]
		sample := make([][]float64, subsample)
		for i, j := range idx {
			sample[i] = X[j]
		}
		f.trees = append(f.trees, buildTree(sample, 0, heightLimit, rng))
	}
	return f
}

func buildTree(sample [][]float64, depth, heightLimit int, rng *rand.Rand) *iNode {
	if depth >= heightLimit || len(sample) <= 1 {
		return &iNode{size: len(sample)}
	}

	dims := len(sample[0])
	attr := rng.Intn(dims)

	lo, hi := sample[0][attr], sample[0][attr]
	for _, row := range sample[1:] {
		if row[attr] < lo {
			lo = row[attr]
		}
		if row[attr] > hi {
			hi = row[attr]
		}
	}
	if lo == hi {
		// Constant along the chosen attribute; nothing left to split.
		return &iNode{size: len(sample)}
	}

	split := lo + rng.Float64()*(hi-lo)
	var left, right [][]float64
	for _, row := range sample {
		if row[attr] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	return &iNode{
		splitAttr:  attr,
		splitValue: split,
		left:       buildTree(left, depth+1, heightLimit, rng),
		right:      buildTree(right, depth+1, heightLimit, rng),
	}
}

// pathLength walks x down a tree, adding the average-subtree adjustment at
// the external node it lands in.
func pathLength(x []float64, node *iNode, depth int) float64 {
	if node.left == nil && node.right == nil {
		return float64(depth) + avgPathLength(node.size)
	}
	if x[node.splitAttr] < node.splitValue {
		return pathLength(x, node.left, depth+1)
	}
	return pathLength(x, node.right, depth+1)
}

// avgPathLength is c(n): the expected path length of an unsuccessful BST
// search over n points.
func avgPathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+0.5772156649) - 2*(fn-1)/fn
}

// score returns the anomaly score of x in [0, 1].
func (f *isolationForest) score(x []float64) float64 {
	c := avgPathLength(f.subsample)
	if c == 0 {
		return 0.5
	}
	sum := 0.0
	for _, tree := range f.trees {
		sum += pathLength(x, tree, 0)
	}
	mean := sum / float64(len(f.trees))
	return math.Pow(2, -mean/c)
}
