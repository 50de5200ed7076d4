// Package vec provides float32 vector math shared by the embedding
// pipeline: normalization, cosine similarity, means, and degenerate
// vector detection.
//
// All accumulation happens in float64 to avoid precision drift on
// long vectors, matching the convention used throughout the codebase.
package vec

import "math"

// Norm returns the L2 norm of v.
func Norm(v []float32) float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return float32(math.Sqrt(sum))
}

// Normalize scales v to unit L2 norm in-place and returns it.
// The zero vector is returned unchanged (no divide-by-zero).
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm > 0 {
		scale := float32(1.0 / norm)
		for i := range v {
			v[i] *= scale
		}
	}
	return v
}

// Normalized returns a unit-norm copy of v, leaving v untouched.
func Normalized(v []float32) []float32 {
	cp := make([]float32, len(v))
	copy(cp, v)
	return Normalize(cp)
}

// Dot returns the dot product of a and b. Trailing elements of the
// longer vector are ignored.
func Dot(a, b []float32) float32 {
	n := min(len(a), len(b))
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot)
}

// Cosine computes cosine similarity between a and b in [-1, 1].
// Returns 0 if either vector is zero or empty.
func Cosine(a, b []float32) float32 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		ai, bi := float64(a[i]), float64(b[i])
		dot += ai * bi
		na += ai * ai
		nb += bi * bi
	}
	denom := math.Sqrt(na) * math.Sqrt(nb)
	if denom == 0 {
		return 0
	}
	return float32(dot / denom)
}

// Mean returns the arithmetic mean of the given vectors. Vectors shorter
// than the first one contribute zeros for their missing dimensions.
// Returns nil for empty input.
func Mean(vs [][]float32) []float32 {
	if len(vs) == 0 {
		return nil
	}
	dim := len(vs[0])
	sum := make([]float64, dim)
	for _, v := range vs {
		for d := 0; d < dim && d < len(v); d++ {
			sum[d] += float64(v[d])
		}
	}
	out := make([]float32, dim)
	inv := 1.0 / float64(len(vs))
	for d, s := range sum {
		out[d] = float32(s * inv)
	}
	return out
}

// nearZeroEps is the component magnitude below which a value counts as
// zero for degeneracy checks.
const nearZeroEps = 1e-6

// IsDegenerate reports whether v is unusable as an embedding: empty,
// containing NaN or Inf, near-zero norm, or all components equal.
// Degenerate vectors are excluded from quantization, classification,
// and matching.
func IsDegenerate(v []float32) bool {
	if len(v) == 0 {
		return true
	}
	first := v[0]
	allEqual := true
	var sum float64
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return true
		}
		if x != first {
			allEqual = false
		}
		sum += f * f
	}
	if allEqual {
		return true
	}
	return math.Sqrt(sum) < nearZeroEps
}

// ZeroFraction returns the fraction of components of v whose magnitude
// is below the near-zero epsilon. Used by the fallback matcher to
// reject silence-on-silence matches.
func ZeroFraction(v []float32) float32 {
	if len(v) == 0 {
		return 1
	}
	zeros := 0
	for _, x := range v {
		if math.Abs(float64(x)) < nearZeroEps {
			zeros++
		}
	}
	return float32(zeros) / float32(len(v))
}
