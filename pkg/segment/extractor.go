package segment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/haivivi/vocab/pkg/audio/pcm"
	"github.com/haivivi/vocab/pkg/embed"
	"github.com/haivivi/vocab/pkg/vec"
)

// Extractor produces embedded segments from an utterance buffer.
type Extractor struct {
	cfg Config
	ext embed.Extractor
}

// NewExtractor creates an Extractor over the given embedding extractor.
func NewExtractor(ext embed.Extractor, cfg Config) *Extractor {
	cfg.defaults()
	return &Extractor{cfg: cfg, ext: ext}
}

// Config returns the effective configuration.
func (e *Extractor) Config() Config { return e.cfg }

// Segments splits buf per the configured strategy and embeds each
// range. A range whose slice or embedding fails is skipped; the pass
// continues with the rest. Only if every range fails does the last
// extractor error surface, so callers can tell "empty" from "broken".
func (e *Extractor) Segments(ctx context.Context, buf *pcm.Buffer, parentID string) ([]Segment, error) {
	if buf == nil || buf.Len() == 0 {
		return nil, nil
	}

	spans := e.ranges(ctx, buf)
	if len(spans) == 0 {
		return nil, nil
	}

	var (
		out     []Segment
		failed  int
		lastErr error
	)
	for _, sp := range spans {
		sub := buf.Slice(sp.start, sp.end)
		if sub.Len() == 0 {
			continue
		}
		emb, err := embed.ExtractBuffer(ctx, e.ext, sub)
		if err != nil {
			failed++
			lastErr = err
			continue
		}
		out = append(out, Segment{
			ID:         uuid.NewString(),
			ParentID:   parentID,
			Start:      sp.start,
			End:        sp.end,
			Embedding:  emb,
			Confidence: e.confidence(sub, sp.dur()),
		})
	}
	if out == nil && failed > 0 {
		return nil, fmt.Errorf("segment: no range embedded: %w", lastErr)
	}
	return out, nil
}

// confidence scores a segment from its RMS level and whether its
// duration falls in the configured band.
func (e *Extractor) confidence(sub *pcm.Buffer, dur time.Duration) float32 {
	db := sub.RMSdB()
	// -60 dB → 0, -20 dB → 1.
	energy := (db + 60) / 40
	if energy < 0 {
		energy = 0
	} else if energy > 1 {
		energy = 1
	}
	durTerm := 1.0
	if dur < e.cfg.MinSegment || dur > e.cfg.MaxSegment {
		durTerm = 0.5
	}
	return float32(energy * durTerm)
}

// ranges dispatches to the configured strategy.
func (e *Extractor) ranges(ctx context.Context, buf *pcm.Buffer) []span {
	total := buf.Duration()
	if total <= 0 {
		return nil
	}
	var spans []span
	switch e.cfg.Strategy {
	case StrategyFixed:
		spans = e.fixedRanges(total)
	case StrategyVariable:
		spans = e.variableRanges(total)
	case StrategyEmbedding:
		spans = e.embeddingRanges(ctx, buf)
	default:
		spans = e.energyRanges(buf)
	}
	return e.normalize(spans, total)
}

// fixedRanges tiles the utterance with fixed-width windows.
func (e *Extractor) fixedRanges(total time.Duration) []span {
	var out []span
	for start := time.Duration(0); start < total; start += e.cfg.FixedWindow {
		end := start + e.cfg.FixedWindow
		if end > total {
			end = total
		}
		out = append(out, span{start, end})
	}
	return out
}

// variableRanges divides the utterance evenly, bounded by MaxSegments.
func (e *Extractor) variableRanges(total time.Duration) []span {
	n := int(total / e.cfg.MinSegment)
	if n < 1 {
		n = 1
	}
	if n > e.cfg.MaxSegments {
		n = e.cfg.MaxSegments
	}
	width := total / time.Duration(n)
	out := make([]span, 0, n)
	for i := 0; i < n; i++ {
		start := time.Duration(i) * width
		end := start + width
		if i == n-1 {
			end = total
		}
		out = append(out, span{start, end})
	}
	return out
}

// energyRanges cuts at local energy minima below a fraction of the
// mean frame energy.
func (e *Extractor) energyRanges(buf *pcm.Buffer) []span {
	frames, times := frameEnergies(buf, e.cfg.FrameSize, e.cfg.HopSize)
	if len(frames) < 3 {
		return []span{{0, buf.Duration()}}
	}

	var mean float64
	for _, f := range frames {
		mean += f
	}
	mean /= float64(len(frames))
	floor := mean * e.cfg.EnergyFraction

	var cuts []time.Duration
	for i := 1; i < len(frames)-1; i++ {
		if frames[i] < floor && frames[i] <= frames[i-1] && frames[i] <= frames[i+1] {
			cuts = append(cuts, times[i])
		}
	}
	return cutsToSpans(cuts, buf.Duration())
}

// embeddingRanges cuts where consecutive-frame embedding similarity
// drops below the threshold. Frame embedding failures skip the frame.
func (e *Extractor) embeddingRanges(ctx context.Context, buf *pcm.Buffer) []span {
	total := buf.Duration()
	var (
		prev  []float32
		cuts  []time.Duration
		count int
	)
	for start := time.Duration(0); start+e.cfg.FrameSize <= total; start += e.cfg.HopSize {
		if count >= e.cfg.MaxFrames {
			break
		}
		count++
		emb, err := embed.ExtractBuffer(ctx, e.ext, buf.Slice(start, start+e.cfg.FrameSize))
		if err != nil {
			continue
		}
		if prev != nil {
			if sim := vec.Cosine(prev, emb); float64(sim) < e.cfg.SimilarityDrop {
				cuts = append(cuts, start)
			}
		}
		prev = emb
	}
	return cutsToSpans(cuts, total)
}

// normalize enforces the min/max duration band: under-long spans merge
// with their successor (or predecessor at the end), over-long spans
// split evenly.
func (e *Extractor) normalize(spans []span, total time.Duration) []span {
	if len(spans) == 0 {
		return nil
	}

	// Merge pass.
	var merged []span
	for _, sp := range spans {
		if len(merged) > 0 && merged[len(merged)-1].dur() < e.cfg.MinSegment {
			merged[len(merged)-1].end = sp.end
			continue
		}
		merged = append(merged, sp)
	}
	// A trailing short span merges backward.
	if n := len(merged); n > 1 && merged[n-1].dur() < e.cfg.MinSegment {
		merged[n-2].end = merged[n-1].end
		merged = merged[:n-1]
	}

	// Split pass.
	var out []span
	for _, sp := range merged {
		if sp.dur() <= e.cfg.MaxSegment {
			out = append(out, sp)
			continue
		}
		parts := int(sp.dur()/e.cfg.MaxSegment) + 1
		width := sp.dur() / time.Duration(parts)
		for i := 0; i < parts; i++ {
			start := sp.start + time.Duration(i)*width
			end := start + width
			if i == parts-1 {
				end = sp.end
			}
			out = append(out, span{start, end})
		}
	}
	return out
}

// frameEnergies returns per-frame RMS values and frame start times.
func frameEnergies(buf *pcm.Buffer, frame, hop time.Duration) ([]float64, []time.Duration) {
	var (
		energies []float64
		times    []time.Duration
	)
	total := buf.Duration()
	for start := time.Duration(0); start+frame <= total; start += hop {
		energies = append(energies, buf.Slice(start, start+frame).RMS())
		times = append(times, start)
	}
	return energies, times
}

// cutsToSpans converts boundary times into covering spans over [0, total].
func cutsToSpans(cuts []time.Duration, total time.Duration) []span {
	var out []span
	prev := time.Duration(0)
	for _, c := range cuts {
		if c <= prev || c >= total {
			continue
		}
		out = append(out, span{prev, c})
		prev = c
	}
	out = append(out, span{prev, total})
	return out
}
