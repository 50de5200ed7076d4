// Package embed defines the vocalization embedding extractor interface
// and a reference implementation built on log mel filterbank statistics.
//
// An Extractor maps a fixed-duration, fixed-sample-rate mono audio
// window to a fixed-length float32 vector. The neural model hosting is
// out of scope here; anything that satisfies [Extractor] plugs in.
//
// # Window Contract
//
// Callers prepare windows with [Window] before invoking Extract:
// audio is resampled to the extractor's rate, then windows shorter
// than the required length are TILED (samples repeated) and longer
// windows truncated. Tiling is the single short-window policy used
// throughout the pipeline.
package embed

import (
	"context"
	"errors"

	"github.com/haivivi/vocab/pkg/audio/pcm"
)

// Common errors.
var (
	// ErrUnavailable is returned when the extractor cannot run
	// (model not loaded, accelerator busy, backend gone).
	ErrUnavailable = errors.New("embed: extractor unavailable")

	// ErrEmptyInput is returned for windows with no usable audio.
	ErrEmptyInput = errors.New("embed: empty input")
)

// Extractor converts audio windows into dense float32 vectors.
//
// Implementations must be safe for concurrent use, but callers should
// assume the extractor serializes internally (a single accelerator
// context) and avoid unbounded fan-out.
type Extractor interface {
	// Extract computes the embedding for one prepared window.
	Extract(ctx context.Context, window *pcm.Buffer) ([]float32, error)

	// Dimension returns the length of vectors produced by Extract.
	Dimension() int

	// Rate returns the sample rate Extract expects, in Hz.
	Rate() int

	// WindowSamples returns the exact window length Extract expects.
	WindowSamples() int
}

// Window prepares buf for e: resamples to the extractor's rate, then
// tiles or truncates to the exact required length.
func Window(e Extractor, buf *pcm.Buffer) (*pcm.Buffer, error) {
	if buf == nil || buf.Len() == 0 {
		return nil, ErrEmptyInput
	}
	rs, err := buf.Resample(e.Rate())
	if err != nil {
		return nil, err
	}
	return rs.Fit(e.WindowSamples()), nil
}

// ExtractBuffer is the convenience path used by the pipeline: prepare
// the window per the tiling contract and run the extractor.
func ExtractBuffer(ctx context.Context, e Extractor, buf *pcm.Buffer) ([]float32, error) {
	w, err := Window(e, buf)
	if err != nil {
		return nil, err
	}
	return e.Extract(ctx, w)
}
