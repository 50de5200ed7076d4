// Package codebook implements the online vector quantizer that turns
// frame embeddings into a small personal vocabulary of phonetic units.
//
// The quantizer maintains K unit-norm centroids. Each observation is
// assigned to the most similar centroid (dot product on unit vectors),
// which is then pulled toward the observation by an exponential moving
// average whose learning rate decays both with that cluster's count
// and with the total number of observations (global annealing). This
// is deliberately single-pass — no batch k-means — so the codebook
// keeps adapting on device at O(K·D) per observation.
package codebook

import (
	"math"
	"math/rand/v2"
	"sync"

	"github.com/haivivi/vocab/pkg/vec"
)

// Config controls quantizer behavior.
type Config struct {
	// K is the codebook size (number of phonetic units). Default 64.
	K int

	// Dim is the embedding dimension. Required.
	Dim int

	// BaseRate is the initial EMA learning rate. Default 0.3.
	BaseRate float64

	// AnnealScale is the observation count at which the global
	// annealing term halves the learning rate. Default 1000.
	AnnealScale float64

	// Seed drives deterministic centroid initialization. Default 1.
	Seed uint64
}

func (c *Config) defaults() {
	if c.K == 0 {
		c.K = 64
	}
	if c.BaseRate == 0 {
		c.BaseRate = 0.3
	}
	if c.AnnealScale == 0 {
		c.AnnealScale = 1000
	}
	if c.Seed == 0 {
		c.Seed = 1
	}
}

// Quantizer is the online codebook. Safe for concurrent use; all
// mutations are serialized behind a single mutex (single-writer
// discipline).
type Quantizer struct {
	mu        sync.Mutex
	cfg       Config
	centroids [][]float32
	counts    []uint64
	total     uint64
}

// New creates a Quantizer with K random unit-norm centroids.
func New(cfg Config) *Quantizer {
	cfg.defaults()
	q := &Quantizer{cfg: cfg}
	q.init()
	return q
}

func (q *Quantizer) init() {
	rng := rand.New(rand.NewPCG(q.cfg.Seed, 0))
	q.centroids = make([][]float32, q.cfg.K)
	q.counts = make([]uint64, q.cfg.K)
	q.total = 0
	for k := range q.centroids {
		c := make([]float32, q.cfg.Dim)
		for d := range c {
			c[d] = float32(rng.NormFloat64())
		}
		vec.Normalize(c)
		q.centroids[k] = c
	}
}

// K returns the codebook size.
func (q *Quantizer) K() int { return q.cfg.K }

// Dim returns the embedding dimension.
func (q *Quantizer) Dim() int { return q.cfg.Dim }

// Observe assigns v to its nearest unit, updates that centroid, and
// returns the unit ID in [0, K). Degenerate vectors are rejected with
// ok=false and leave the codebook untouched.
func (q *Quantizer) Observe(v []float32) (unit int, ok bool) {
	if vec.IsDegenerate(v) {
		return 0, false
	}
	x := vec.Normalized(v)

	q.mu.Lock()
	defer q.mu.Unlock()

	best := q.nearest(x)

	// Learning rate decays with the cluster's own count and anneals
	// globally with total observations.
	count := float64(q.counts[best])
	anneal := q.cfg.AnnealScale / (q.cfg.AnnealScale + float64(q.total))
	lr := float32(q.cfg.BaseRate / math.Sqrt(1+count) * anneal)

	c := q.centroids[best]
	for d := range c {
		c[d] = (1-lr)*c[d] + lr*x[d]
	}
	vec.Normalize(c)

	q.counts[best]++
	q.total++
	return best, true
}

// Lookup returns the nearest unit without updating the codebook.
func (q *Quantizer) Lookup(v []float32) (unit int, ok bool) {
	if vec.IsDegenerate(v) {
		return 0, false
	}
	x := vec.Normalized(v)
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.nearest(x), true
}

// nearest returns the index of the centroid with maximum dot product.
// Caller holds mu. x must be unit-norm.
func (q *Quantizer) nearest(x []float32) int {
	best := 0
	bestSim := float32(math.Inf(-1))
	for k, c := range q.centroids {
		if sim := vec.Dot(x, c); sim > bestSim {
			bestSim = sim
			best = k
		}
	}
	return best
}

// ClusterSizes returns a copy of the per-unit observation counts.
func (q *Quantizer) ClusterSizes() []uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]uint64, len(q.counts))
	copy(out, q.counts)
	return out
}

// ActiveClusters returns the number of units observed at least once.
func (q *Quantizer) ActiveClusters() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, c := range q.counts {
		if c > 0 {
			n++
		}
	}
	return n
}

// Total returns the total number of observations processed.
func (q *Quantizer) Total() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.total
}

// Purity is a diagnostic statistic: 1 minus the mean pairwise
// inter-centroid cosine similarity. Higher values mean the units are
// more spread out.
func (q *Quantizer) Purity() float64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.centroids)
	if n < 2 {
		return 0
	}
	var sum float64
	pairs := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sum += float64(vec.Dot(q.centroids[i], q.centroids[j]))
			pairs++
		}
	}
	return 1 - sum/float64(pairs)
}

// Reset reinitializes the codebook to fresh random centroids.
func (q *Quantizer) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.init()
}
