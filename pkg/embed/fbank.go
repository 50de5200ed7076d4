package embed

import (
	"context"

	"github.com/haivivi/vocab/pkg/audio/fbank"
	"github.com/haivivi/vocab/pkg/audio/pcm"
)

// FbankWindow is the window length the reference extractor expects:
// 500 ms at 16 kHz.
const FbankWindow = 8000

// Fbank is the reference extractor: log mel filterbank frames with
// CMVN, pooled into a mean+std statistics vector (2 × NumMels dims).
//
// It is fully deterministic and requires no model weights, which makes
// the whole pipeline runnable end-to-end in tests and bench tooling.
// It is not a substitute for a trained neural embedding in production.
type Fbank struct {
	fb  *fbank.Extractor
	cfg fbank.Config
}

// NewFbank creates the reference extractor with the default 16 kHz /
// 80 mel front-end.
func NewFbank() *Fbank {
	cfg := fbank.DefaultConfig()
	return &Fbank{fb: fbank.New(cfg), cfg: cfg}
}

func (f *Fbank) Dimension() int     { return 2 * f.cfg.NumMels }
func (f *Fbank) Rate() int          { return f.cfg.SampleRate }
func (f *Fbank) WindowSamples() int { return FbankWindow }

// Extract computes the statistics embedding for one prepared window.
func (f *Fbank) Extract(_ context.Context, window *pcm.Buffer) ([]float32, error) {
	if window == nil || window.Len() == 0 {
		return nil, ErrEmptyInput
	}
	// No CMVN here: per-window mean/variance normalization would erase
	// exactly the statistics the pooled vector is built from.
	feats := f.fb.Extract(window.Samples)
	if len(feats) == 0 {
		return nil, ErrEmptyInput
	}
	stats := fbank.Stats(feats)
	if stats == nil {
		return nil, ErrEmptyInput
	}
	return stats, nil
}
