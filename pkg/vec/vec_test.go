package vec

import (
	"math"
	"math/rand/v2"
	"testing"
)

func TestNormalize(t *testing.T) {
	v := []float32{3, 4}
	Normalize(v)
	if n := Norm(v); math.Abs(float64(n)-1) > 1e-6 {
		t.Errorf("norm after Normalize = %v, want 1", n)
	}

	// Zero vector is the identity, not NaN.
	z := []float32{0, 0, 0}
	Normalize(z)
	for i, x := range z {
		if x != 0 {
			t.Errorf("z[%d] = %v, want 0", i, x)
		}
	}
}

func TestNormalizedLeavesInputUntouched(t *testing.T) {
	v := []float32{2, 0}
	u := Normalized(v)
	if v[0] != 2 {
		t.Errorf("input mutated: %v", v)
	}
	if u[0] != 1 {
		t.Errorf("Normalized = %v, want [1 0]", u)
	}
}

func TestCosine(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 0))
	for range 20 {
		a := make([]float32, 16)
		b := make([]float32, 16)
		for i := range a {
			a[i] = float32(rng.NormFloat64())
			b[i] = float32(rng.NormFloat64())
		}
		if s := Cosine(a, a); math.Abs(float64(s)-1) > 1e-5 {
			t.Fatalf("Cosine(a,a) = %v, want 1", s)
		}
		if d := Cosine(a, b) - Cosine(b, a); math.Abs(float64(d)) > 1e-6 {
			t.Fatalf("Cosine not symmetric, diff %v", d)
		}
	}

	if s := Cosine(nil, nil); s != 0 {
		t.Errorf("Cosine(nil,nil) = %v, want 0", s)
	}
	if s := Cosine([]float32{0, 0}, []float32{1, 0}); s != 0 {
		t.Errorf("Cosine(zero, x) = %v, want 0", s)
	}
}

func TestMean(t *testing.T) {
	m := Mean([][]float32{{1, 2}, {3, 4}})
	if m[0] != 2 || m[1] != 3 {
		t.Errorf("Mean = %v, want [2 3]", m)
	}
	if Mean(nil) != nil {
		t.Error("Mean(nil) should be nil")
	}
}

func TestIsDegenerate(t *testing.T) {
	tests := []struct {
		name string
		v    []float32
		want bool
	}{
		{"empty", nil, true},
		{"nan", []float32{1, float32(math.NaN())}, true},
		{"inf", []float32{1, float32(math.Inf(1))}, true},
		{"zero norm", []float32{0, 0, 0}, true},
		{"all equal", []float32{0.5, 0.5, 0.5}, true},
		{"ok", []float32{0.1, -0.3, 0.7}, false},
	}
	for _, tt := range tests {
		if got := IsDegenerate(tt.v); got != tt.want {
			t.Errorf("%s: IsDegenerate = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestZeroFraction(t *testing.T) {
	if f := ZeroFraction([]float32{0, 0, 1, 1}); f != 0.5 {
		t.Errorf("ZeroFraction = %v, want 0.5", f)
	}
	if f := ZeroFraction(nil); f != 1 {
		t.Errorf("ZeroFraction(nil) = %v, want 1", f)
	}
}
