package phonetic

import (
	"context"
	"fmt"
	"time"

	"github.com/haivivi/vocab/pkg/audio/pcm"
	"github.com/haivivi/vocab/pkg/audio/vad"
	"github.com/haivivi/vocab/pkg/codebook"
	"github.com/haivivi/vocab/pkg/embed"
)

// TranscriberConfig controls frame slicing over voiced segments.
type TranscriberConfig struct {
	// FrameSize is the embedding frame length. Default 80 ms.
	FrameSize time.Duration

	// HopSize is the embedding frame hop. Default 40 ms.
	HopSize time.Duration

	// MaxFramesPerSegment caps embedding extractions per voiced
	// segment (backpressure valve, not an error). Default 200.
	MaxFramesPerSegment int

	// VAD configures the voice activity detector.
	VAD vad.Config
}

func (c *TranscriberConfig) defaults() {
	if c.FrameSize == 0 {
		c.FrameSize = 80 * time.Millisecond
	}
	if c.HopSize == 0 {
		c.HopSize = 40 * time.Millisecond
	}
	if c.MaxFramesPerSegment == 0 {
		c.MaxFramesPerSegment = 200
	}
}

// Transcriber orchestrates VAD, per-frame embedding extraction,
// quantization, and run-collapsing into one unit string.
type Transcriber struct {
	cfg   TranscriberConfig
	det   *vad.Detector
	ext   embed.Extractor
	quant *codebook.Quantizer
}

// NewTranscriber creates a Transcriber over the given extractor and
// codebook.
func NewTranscriber(ext embed.Extractor, quant *codebook.Quantizer, cfg TranscriberConfig) *Transcriber {
	cfg.defaults()
	return &Transcriber{
		cfg:   cfg,
		det:   vad.New(cfg.VAD),
		ext:   ext,
		quant: quant,
	}
}

// Detector exposes the underlying VAD for diagnostics.
func (t *Transcriber) Detector() *vad.Detector { return t.det }

// Transcribe converts buf into a run-collapsed unit sequence. Empty
// input or no voiced segments yields an empty transcription and a nil
// error. If every attempted frame fails to embed, the extractor error
// is reported so callers can distinguish "silent" from "broken".
//
// Observing frames updates the codebook: transcription is also how the
// unit vocabulary continues to learn.
func (t *Transcriber) Transcribe(ctx context.Context, buf *pcm.Buffer) (Transcription, error) {
	if buf == nil || buf.Len() == 0 {
		return Transcription{}, nil
	}

	segs := t.det.Detect(buf)
	if len(segs) == 0 {
		return Transcription{}, nil
	}

	var (
		raw       []int
		attempted int
		failed    int
		lastErr   error
	)
	for _, seg := range segs {
		frames := 0
		for start := seg.Start; start+t.cfg.FrameSize <= seg.End; start += t.cfg.HopSize {
			if frames >= t.cfg.MaxFramesPerSegment {
				break
			}
			frames++
			attempted++

			frame := buf.Slice(start, start+t.cfg.FrameSize)
			emb, err := embed.ExtractBuffer(ctx, t.ext, frame)
			if err != nil {
				failed++
				lastErr = err
				continue
			}
			unit, ok := t.quant.Observe(emb)
			if !ok {
				continue
			}
			raw = append(raw, unit)
		}
		// Segments shorter than one frame contribute one tiled frame.
		if frames == 0 {
			attempted++
			emb, err := embed.ExtractBuffer(ctx, t.ext, buf.Slice(seg.Start, seg.End))
			if err != nil {
				failed++
				lastErr = err
				continue
			}
			if unit, ok := t.quant.Observe(emb); ok {
				raw = append(raw, unit)
			}
		}
	}

	if attempted > 0 && failed == attempted {
		return Transcription{}, fmt.Errorf("phonetic: no frame embedded: %w", lastErr)
	}
	return Transcription{Units: Collapse(raw)}, nil
}
