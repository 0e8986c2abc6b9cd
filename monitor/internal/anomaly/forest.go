package anomaly

import (
	"math"
	"math/rand"
	"sort"
)

// Label classifies one reading's value within its window.
type Label int8

const (
	Normal Label = iota
	Anomalous
)

func (l Label) String() string {
	if l == Anomalous {
		return "anomalous"
	}
	return "normal"
}

// Defaults for the forest. The seed is fixed so identical windows always
// produce identical labels — the fusion layer requires idempotence.
const (
	defaultTrees     = 100
	defaultSampleCap = 256
	defaultSeed      = 42
)

// Options tune the forest. Zero values fall back to the defaults above.
type Options struct {
	Trees      int
	SampleSize int
	Seed       int64
}

// Detect refits an isolation forest on the window's values and labels each
// one. There is no persisted model: the notion of "normal" is whatever the
// current window mostly looks like, so it drifts with the window itself.
//
// contamination is the expected outlier fraction. The label cutoff is the
// (1 - contamination) quantile of the window's own scores; only values
// scoring strictly above it are flagged, so a window of identical values
// yields no anomalies.
func Detect(values []float64, contamination float64) []Label {
	return DetectWith(values, contamination, Options{})
}

// DetectWith is Detect with explicit forest options.
func DetectWith(values []float64, contamination float64, opts Options) []Label {
	labels := make([]Label, len(values))
	if len(values) == 0 || contamination <= 0 {
		return labels
	}

	lo, hi := minMax(values)
	if lo == hi {
		// No spread at all — nothing can be isolated faster than anything else.
		return labels
	}

	f := grow(values, opts)
	scores := make([]float64, len(values))
	for i, v := range values {
		scores[i] = f.score(v)
	}

	cutoff := offsetQuantile(scores, 1-clampContamination(contamination))
	for i, s := range scores {
		if s > cutoff {
			labels[i] = Anomalous
		}
	}
	return labels
}

// forest is a fitted ensemble of isolation trees over a single feature.
type forest struct {
	trees []*node
	norm  float64 // c(sampleSize), the average path normalizer
}

// node is one tree node. A node with left == nil is external; size is the
// number of sample values that ended up in it.
type node struct {
	split       float64
	left, right *node
	size        int
}

// grow fits the ensemble on values.
func grow(values []float64, opts Options) *forest {
	trees := opts.Trees
	if trees <= 0 {
		trees = defaultTrees
	}
	sample := opts.SampleSize
	if sample <= 0 {
		sample = defaultSampleCap
	}
	if sample > len(values) {
		sample = len(values)
	}
	seed := opts.Seed
	if seed == 0 {
		seed = defaultSeed
	}
	rng := rand.New(rand.NewSource(seed))

	heightLimit := int(math.Ceil(math.Log2(float64(sample)))) + 1
	f := &forest{
		trees: make([]*node, trees),
		norm:  avgPathLength(sample),
	}
	buf := make([]float64, sample)
	for t := range f.trees {
		subsample(rng, values, buf)
		f.trees[t] = build(buf, 0, heightLimit, rng)
	}
	return f
}

// subsample fills dst with a random subset of values without replacement.
func subsample(rng *rand.Rand, values, dst []float64) {
	if len(dst) == len(values) {
		copy(dst, values)
		return
	}
	for i, idx := range rng.Perm(len(values))[:len(dst)] {
		dst[i] = values[idx]
	}
}

// build grows one isolation tree over vals.
func build(vals []float64, depth, limit int, rng *rand.Rand) *node {
	if depth >= limit || len(vals) <= 1 {
		return &node{size: len(vals)}
	}
	lo, hi := minMax(vals)
	if lo == hi {
		return &node{size: len(vals)}
	}
	split := lo + rng.Float64()*(hi-lo)

	var left, right []float64
	for _, v := range vals {
		if v < split {
			left = append(left, v)
		} else {
			right = append(right, v)
		}
	}
	return &node{
		split: split,
		left:  build(left, depth+1, limit, rng),
		right: build(right, depth+1, limit, rng),
		size:  len(vals),
	}
}

// score returns the anomaly score of v in [0, 1]; higher isolates faster.
func (f *forest) score(v float64) float64 {
	var total float64
	for _, t := range f.trees {
		total += pathLength(t, v, 0)
	}
	mean := total / float64(len(f.trees))
	return math.Exp2(-mean / f.norm)
}

// pathLength descends the tree until v reaches an external node. External
// nodes holding more than one value contribute the expected depth of an
// unbuilt subtree of that size.
func pathLength(n *node, v float64, depth int) float64 {
	if n.left == nil {
		return float64(depth) + avgPathLength(n.size)
	}
	if v < n.split {
		return pathLength(n.left, v, depth+1)
	}
	return pathLength(n.right, v, depth+1)
}

const eulerGamma = 0.5772156649015329

// avgPathLength is c(n): the average path length of an unsuccessful BST
// search among n values, used to normalize isolation depths.
func avgPathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		fn := float64(n)
		h := math.Log(fn-1) + eulerGamma
		return 2*h - 2*(fn-1)/fn
	}
}

// offsetQuantile returns the q-quantile of scores using linear
// interpolation between order statistics. Tied scores at the cutoff stay
// below it under the strict comparison in DetectWith, which keeps a window
// of near-identical values from being flagged wholesale.
func offsetQuantile(scores []float64, q float64) float64 {
	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func clampContamination(c float64) float64 {
	if c > 0.5 {
		return 0.5
	}
	return c
}

func minMax(vals []float64) (lo, hi float64) {
	lo, hi = vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
