// Package spectral provides the small frequency-domain toolkit shared
// by the voice activity detector and the filterbank front-end: an
// in-place radix-2 FFT, Hamming windowing, magnitude spectra, and
// spectral flux.
package spectral

import "math"

// FFT performs an in-place radix-2 Cooley-Tukey FFT.
// re and im must have the same power-of-2 length.
func FFT(re, im []float64) {
	n := len(re)
	if n <= 1 {
		return
	}

	// Bit-reversal permutation
	j := 0
	for i := 0; i < n-1; i++ {
		if i < j {
			re[i], re[j] = re[j], re[i]
			im[i], im[j] = im[j], im[i]
		}
		k := n >> 1
		for k <= j {
			j -= k
			k >>= 1
		}
		j += k
	}

	// Cooley-Tukey butterfly
	for size := 2; size <= n; size <<= 1 {
		half := size >> 1
		angle := -2.0 * math.Pi / float64(size)
		wR := math.Cos(angle)
		wI := math.Sin(angle)

		for start := 0; start < n; start += size {
			tR, tI := 1.0, 0.0
			for k := 0; k < half; k++ {
				u := start + k
				v := u + half

				tmpR := tR*re[v] - tI*im[v]
				tmpI := tR*im[v] + tI*re[v]

				re[v] = re[u] - tmpR
				im[v] = im[u] - tmpI
				re[u] += tmpR
				im[u] += tmpI

				tR, tI = tR*wR-tI*wI, tR*wI+tI*wR
			}
		}
	}
}

// HammingWindow generates a Hamming window of the given length.
func HammingWindow(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// Magnitudes computes the magnitude spectrum of a windowed frame.
// The frame is multiplied by window (which must be at least as long as
// frame), zero-padded to fftSize (power of 2), and transformed. The
// result has fftSize/2+1 bins.
func Magnitudes(frame []float32, window []float64, fftSize int) []float64 {
	re := make([]float64, fftSize)
	im := make([]float64, fftSize)
	n := len(frame)
	if n > fftSize {
		n = fftSize
	}
	for i := 0; i < n; i++ {
		re[i] = float64(frame[i]) * window[i]
	}
	FFT(re, im)

	half := fftSize/2 + 1
	mag := make([]float64, half)
	for i := 0; i < half; i++ {
		mag[i] = math.Sqrt(re[i]*re[i] + im[i]*im[i])
	}
	return mag
}

// Flux returns the spectral flux between two magnitude spectra: the sum
// of positive-only bin increases from prev to cur. A nil prev yields 0
// so the first frame of a stream never spikes.
func Flux(cur, prev []float64) float64 {
	if prev == nil {
		return 0
	}
	n := len(cur)
	if len(prev) < n {
		n = len(prev)
	}
	var sum float64
	for i := 0; i < n; i++ {
		if d := cur[i] - prev[i]; d > 0 {
			sum += d
		}
	}
	return sum
}
