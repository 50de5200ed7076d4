package spectral

import (
	"math"
	"testing"
)

func TestFFTImpulse(t *testing.T) {
	// The FFT of an impulse is flat with magnitude 1 everywhere.
	n := 64
	re := make([]float64, n)
	im := make([]float64, n)
	re[0] = 1
	FFT(re, im)
	for i := range re {
		mag := math.Sqrt(re[i]*re[i] + im[i]*im[i])
		if math.Abs(mag-1) > 1e-9 {
			t.Fatalf("bin %d magnitude = %v, want 1", i, mag)
		}
	}
}

func TestMagnitudesPeakAtTone(t *testing.T) {
	const (
		rate    = 16000
		fftSize = 512
		freq    = 1000.0
	)
	frame := make([]float32, fftSize)
	for i := range frame {
		frame[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / rate))
	}
	mag := Magnitudes(frame, HammingWindow(fftSize), fftSize)

	peak := 0
	for i, m := range mag {
		if m > mag[peak] {
			peak = i
		}
	}
	wantBin := int(freq / rate * fftSize)
	if peak < wantBin-1 || peak > wantBin+1 {
		t.Errorf("peak bin = %d, want ≈ %d", peak, wantBin)
	}
}

func TestFlux(t *testing.T) {
	if f := Flux([]float64{1, 2}, nil); f != 0 {
		t.Errorf("first-frame flux = %v, want 0", f)
	}
	// Only positive increases count.
	f := Flux([]float64{3, 1, 5}, []float64{1, 4, 2})
	if f != 5 { // (3-1) + (5-2)
		t.Errorf("flux = %v, want 5", f)
	}
}

func TestHammingWindow(t *testing.T) {
	w := HammingWindow(400)
	if math.Abs(w[0]-0.08) > 0.001 {
		t.Errorf("w[0] = %v, want 0.08", w[0])
	}
	mid := w[len(w)/2]
	if mid < 0.99 || mid > 1.0 {
		t.Errorf("w[mid] = %v, want ≈ 1", mid)
	}
}
