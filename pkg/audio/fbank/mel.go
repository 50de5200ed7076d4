package fbank

import "math"

// hzToMel converts frequency in Hz to the mel scale.
func hzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// melToHz converts a mel-scale frequency back to Hz.
func melToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// melFilter is one triangular filter stored sparsely: weights covers
// FFT bins [offset, offset+len(weights)).
type melFilter struct {
	offset  int
	weights []float64
}

// apply sums the filter over a power spectrum.
func (f melFilter) apply(power []float64) float64 {
	acc := 0.0
	for i, w := range f.weights {
		acc += w * power[f.offset+i]
	}
	return acc
}

// melFilterBank builds numMels triangular filters over fftSize/2+1
// spectrum bins. Filter edges sit at numMels+2 equally spaced mel
// points between lowFreq and highFreq, snapped to FFT bins and forced
// to at least one bin of width.
func melFilterBank(numMels, fftSize, sampleRate int, lowFreq, highFreq float64) []melFilter {
	halfFFT := fftSize/2 + 1
	bins := edgeBins(numMels, fftSize, sampleRate, lowFreq, highFreq)

	bank := make([]melFilter, numMels)
	for m := range bank {
		left, center, right := bins[m], bins[m+1], bins[m+2]
		top := right
		if top >= halfFFT {
			top = halfFFT - 1
		}
		if top < left {
			bank[m] = melFilter{offset: left}
			continue
		}
		w := make([]float64, top-left+1)
		for k := left; k <= top; k++ {
			if k < center {
				w[k-left] = float64(k-left) / float64(center-left)
			} else {
				w[k-left] = float64(right-k) / float64(right-center)
			}
		}
		bank[m] = melFilter{offset: left, weights: w}
	}
	return bank
}

// edgeBins returns numMels+2 strictly increasing FFT bin indices for
// the filter edge frequencies.
func edgeBins(numMels, fftSize, sampleRate int, lowFreq, highFreq float64) []int {
	halfFFT := fftSize/2 + 1
	lowMel := hzToMel(lowFreq)
	step := (hzToMel(highFreq) - lowMel) / float64(numMels+1)

	bins := make([]int, numMels+2)
	for i := range bins {
		hz := melToHz(lowMel + float64(i)*step)
		bin := int(math.Round(hz * float64(fftSize) / float64(sampleRate)))
		if bin >= halfFFT {
			bin = halfFFT - 1
		}
		if i > 0 && bin <= bins[i-1] {
			bin = bins[i-1] + 1
		}
		bins[i] = bin
	}
	return bins
}
