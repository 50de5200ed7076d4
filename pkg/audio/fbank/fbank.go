// Package fbank computes log mel filterbank features from PCM audio.
//
// This is the front-end for the reference vocalization embedding used
// when no neural model is available: frames of log-mel energies whose
// mean and standard deviation form a fixed-length statistics vector.
//
// Default parameters follow the Kaldi convention:
//
//	SampleRate:  16000
//	WindowSize:  400 (25 ms)
//	HopSize:     160 (10 ms)
//	FFTSize:     512
//	NumMels:     80
//	LowFreq:     20
//	HighFreq:  7600
//	PreEmphasis: 0.97
package fbank

import (
	"math"

	"github.com/haivivi/vocab/pkg/audio/spectral"
)

// Config controls mel filterbank extraction parameters.
type Config struct {
	SampleRate  int     // Hz
	WindowSize  int     // analysis window in samples
	HopSize     int     // frame advance in samples
	FFTSize     int     // transform size, >= WindowSize
	NumMels     int     // mel bins per frame
	LowFreq     float64 // bottom of the mel range in Hz
	HighFreq    float64 // top of the mel range in Hz
	PreEmphasis float64 // first-order high-pass coefficient
}

// DefaultConfig returns the standard 16 kHz / 80 mel config.
func DefaultConfig() Config {
	return Config{
		SampleRate:  16000,
		WindowSize:  400,
		HopSize:     160,
		FFTSize:     512,
		NumMels:     80,
		LowFreq:     20,
		HighFreq:    7600,
		PreEmphasis: 0.97,
	}
}

// Extractor computes mel filterbank features from PCM samples.
type Extractor struct {
	cfg     Config
	window  []float64
	melBank []melFilter

	// scratch buffers reused across frames
	re    []float64
	im    []float64
	power []float64
}

// New creates a new fbank Extractor with the given config.
func New(cfg Config) *Extractor {
	return &Extractor{
		cfg:     cfg,
		window:  spectral.HammingWindow(cfg.WindowSize),
		melBank: melFilterBank(cfg.NumMels, cfg.FFTSize, cfg.SampleRate, cfg.LowFreq, cfg.HighFreq),
		re:      make([]float64, cfg.FFTSize),
		im:      make([]float64, cfg.FFTSize),
		power:   make([]float64, cfg.FFTSize/2+1),
	}
}

// Extract computes log mel filterbank features from normalized float32
// samples in [-1, 1].
// Output: [T][numMels] where T = (len(pcm) - windowSize) / hopSize + 1.
// Input shorter than one window yields nil.
func (e *Extractor) Extract(pcm []float32) [][]float32 {
	if len(pcm) < e.cfg.WindowSize {
		return nil
	}
	numFrames := (len(pcm)-e.cfg.WindowSize)/e.cfg.HopSize + 1
	features := make([][]float32, numFrames)
	for t := range features {
		features[t] = e.frame(pcm[t*e.cfg.HopSize:])
	}
	return features
}

// frame computes the log-mel energies of one window starting at pcm[0].
// len(pcm) >= WindowSize.
func (e *Extractor) frame(pcm []float32) []float32 {
	win := e.cfg.WindowSize
	for i := 0; i < win; i++ {
		s := float64(pcm[i])
		if i > 0 {
			s -= e.cfg.PreEmphasis * float64(pcm[i-1])
		}
		e.re[i] = s * e.window[i]
	}
	clearTail(e.re, win)
	clearTail(e.im, 0)
	spectral.FFT(e.re, e.im)

	for i := range e.power {
		e.power[i] = e.re[i]*e.re[i] + e.im[i]*e.im[i]
	}

	mel := make([]float32, e.cfg.NumMels)
	for m, filter := range e.melBank {
		mel[m] = float32(math.Log(math.Max(filter.apply(e.power), 1e-10)))
	}
	return mel
}

func clearTail(buf []float64, from int) {
	for i := from; i < len(buf); i++ {
		buf[i] = 0
	}
}

// moments returns the mean and standard deviation of mel dimension m
// across all frames.
func moments(features [][]float32, m int) (mean, std float64) {
	T := float64(len(features))
	for _, f := range features {
		mean += float64(f[m])
	}
	mean /= T
	for _, f := range features {
		d := float64(f[m]) - mean
		std += d * d
	}
	return mean, math.Sqrt(std / T)
}

// CMVN applies cepstral mean and variance normalization in-place:
// per mel dimension, subtract the mean and divide by the standard
// deviation across all frames.
func CMVN(features [][]float32) {
	if len(features) == 0 {
		return
	}
	for m := range features[0] {
		mean, std := moments(features, m)
		if std < 1e-10 {
			std = 1e-10
		}
		for _, f := range features {
			f[m] = float32((float64(f[m]) - mean) / std)
		}
	}
}

// Stats pools a [T][numMels] feature matrix into a single vector of
// per-dimension mean followed by per-dimension standard deviation
// (length 2*numMels). Returns nil for empty input.
func Stats(features [][]float32) []float32 {
	if len(features) == 0 {
		return nil
	}
	numMels := len(features[0])
	out := make([]float32, 2*numMels)
	for m := 0; m < numMels; m++ {
		mean, std := moments(features, m)
		out[m] = float32(mean)
		out[numMels+m] = float32(std)
	}
	return out
}
