package pcm

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resample converts the buffer to the given sample rate using the pure
// Go soxr-style resampler. Returns the buffer itself if the rate
// already matches. Empty buffers resample to empty buffers.
func (b *Buffer) Resample(rate int) (*Buffer, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("pcm: invalid target rate %d", rate)
	}
	if b.Rate == rate || len(b.Samples) == 0 {
		return New(b.Samples, rate), nil
	}

	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(b.Rate),
		OutputRate: float64(rate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("pcm: create resampler: %w", err)
	}

	input := make([]float64, len(b.Samples))
	for i, s := range b.Samples {
		input[i] = float64(s)
	}
	output, err := r.Process(input)
	if err != nil {
		return nil, fmt.Errorf("pcm: resample: %w", err)
	}

	out := make([]float32, len(output))
	for i, s := range output {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		out[i] = float32(s)
	}
	return New(out, rate), nil
}
