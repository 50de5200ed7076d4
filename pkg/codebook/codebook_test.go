package codebook

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/haivivi/vocab/pkg/vec"
)

func randVec(dim int, rng *rand.Rand) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = float32(rng.NormFloat64())
	}
	vec.Normalize(v)
	return v
}

// jitter returns base plus small noise, renormalized. The result stays
// within cosine similarity > 0.999 of base for noise = 0.01.
func jitter(base []float32, noise float64, rng *rand.Rand) []float32 {
	v := make([]float32, len(base))
	for i := range v {
		v[i] = base[i] + float32(rng.NormFloat64()*noise)
	}
	vec.Normalize(v)
	return v
}

func TestObserveConverges(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 0))
	q := New(Config{K: 16, Dim: 32})
	base := randVec(32, rng)

	// Feeding near-identical vectors settles on one stable unit.
	var last int
	for i := range 200 {
		unit, ok := q.Observe(jitter(base, 0.01, rng))
		if !ok {
			t.Fatal("observe rejected a valid vector")
		}
		if i >= 10 && unit != last {
			t.Fatalf("unit flipped from %d to %d at observation %d", last, unit, i)
		}
		last = unit
	}

	sizes := q.ClusterSizes()
	if sizes[last] < 190 {
		t.Errorf("stable unit count = %d, want ≥ 190", sizes[last])
	}
	if q.Total() != 200 {
		t.Errorf("total = %d, want 200", q.Total())
	}
}

func TestObserveSeparatesClusters(t *testing.T) {
	rng := rand.New(rand.NewPCG(12, 0))
	q := New(Config{K: 32, Dim: 64})

	a := randVec(64, rng)
	b := randVec(64, rng)

	var unitA, unitB int
	for range 100 {
		unitA, _ = q.Observe(jitter(a, 0.02, rng))
		unitB, _ = q.Observe(jitter(b, 0.02, rng))
	}
	if unitA == unitB {
		t.Errorf("distinct clusters mapped to the same unit %d", unitA)
	}
	if q.ActiveClusters() < 2 {
		t.Errorf("active clusters = %d, want ≥ 2", q.ActiveClusters())
	}
}

func TestObserveRejectsDegenerate(t *testing.T) {
	q := New(Config{K: 8, Dim: 4})
	for _, v := range [][]float32{
		nil,
		{0, 0, 0, 0},
		{1, 1, 1, 1},
		{float32(math.NaN()), 0, 0, 1},
	} {
		if _, ok := q.Observe(v); ok {
			t.Errorf("degenerate vector %v accepted", v)
		}
	}
	if q.Total() != 0 {
		t.Errorf("degenerate observations mutated the codebook")
	}
}

func TestCentroidsStayUnitNorm(t *testing.T) {
	rng := rand.New(rand.NewPCG(13, 0))
	q := New(Config{K: 4, Dim: 16})
	for range 50 {
		q.Observe(randVec(16, rng))
	}
	s := q.Snapshot()
	for k, c := range s.Centroids {
		if n := vec.Norm(c); math.Abs(float64(n)-1) > 1e-4 {
			t.Errorf("centroid %d norm = %v, want 1", k, n)
		}
	}
}

func TestPurity(t *testing.T) {
	q := New(Config{K: 16, Dim: 64})
	p := q.Purity()
	// Random unit vectors in 64 dims are near-orthogonal.
	if p < 0.5 || p > 1.5 {
		t.Errorf("purity = %v, want ≈ 1", p)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(14, 0))
	q := New(Config{K: 8, Dim: 16, Seed: 5})
	base := randVec(16, rng)
	for range 30 {
		q.Observe(jitter(base, 0.02, rng))
	}

	data, err := EncodeSnapshot(q.Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	snap, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatal(err)
	}

	q2 := New(Config{K: 8, Dim: 16, Seed: 99})
	if err := q2.Restore(snap); err != nil {
		t.Fatal(err)
	}

	// The restored codebook assigns the same unit.
	u1, _ := q.Lookup(base)
	u2, _ := q2.Lookup(base)
	if u1 != u2 {
		t.Errorf("restored codebook assigns %d, original %d", u2, u1)
	}

	// Shape mismatch is rejected.
	q3 := New(Config{K: 4, Dim: 16})
	if err := q3.Restore(snap); err == nil {
		t.Error("mismatched snapshot accepted")
	}
}
