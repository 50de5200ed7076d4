package vad

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/haivivi/vocab/pkg/audio/pcm"
)

const rate = 16000

// signal builds a buffer from (duration, amplitude) spans of seeded noise.
func signal(rng *rand.Rand, spans ...struct {
	dur time.Duration
	amp float64
}) *pcm.Buffer {
	var samples []float32
	for _, sp := range spans {
		n := int(sp.dur.Seconds() * rate)
		for range n {
			samples = append(samples, float32(rng.NormFloat64()*sp.amp))
		}
	}
	return pcm.New(samples, rate)
}

func span(dur time.Duration, amp float64) struct {
	dur time.Duration
	amp float64
} {
	return struct {
		dur time.Duration
		amp float64
	}{dur, amp}
}

func TestDetectBurst(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 0))
	buf := signal(rng,
		span(500*time.Millisecond, 0.0005),
		span(600*time.Millisecond, 0.2),
		span(500*time.Millisecond, 0.0005),
	)

	d := New(Config{})
	segs := d.Detect(buf)
	if len(segs) != 1 {
		t.Fatalf("segments = %d, want 1 (%v)", len(segs), segs)
	}
	s := segs[0]
	if s.Start < 400*time.Millisecond || s.Start > 700*time.Millisecond {
		t.Errorf("start = %v, want ≈ 500ms", s.Start)
	}
	if s.End < 900*time.Millisecond || s.End > 1400*time.Millisecond {
		t.Errorf("end = %v, want ≈ 1100ms", s.End)
	}
	if s.Confidence <= 0 || s.Confidence > 1 {
		t.Errorf("confidence = %v, want (0, 1]", s.Confidence)
	}
}

func TestDetectSilence(t *testing.T) {
	rng := rand.New(rand.NewPCG(2, 0))
	buf := signal(rng, span(time.Second, 0.0003))
	if segs := New(Config{}).Detect(buf); len(segs) != 0 {
		t.Errorf("silence produced %d segments", len(segs))
	}
}

func TestDetectTwoBursts(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 0))
	buf := signal(rng,
		span(400*time.Millisecond, 0.0005),
		span(500*time.Millisecond, 0.25),
		span(600*time.Millisecond, 0.0005),
		span(500*time.Millisecond, 0.25),
		span(400*time.Millisecond, 0.0005),
	)
	segs := New(Config{}).Detect(buf)
	if len(segs) != 2 {
		t.Fatalf("segments = %d, want 2 (%v)", len(segs), segs)
	}
	if segs[1].Start <= segs[0].End {
		t.Errorf("segments overlap: %v", segs)
	}
}

func TestShortBufferIsSilence(t *testing.T) {
	// Shorter than one frame: never raises, no segments.
	buf := pcm.New(make([]float32, 100), rate)
	if segs := New(Config{}).Detect(buf); segs != nil {
		t.Errorf("short buffer segments = %v, want nil", segs)
	}
	if segs := New(Config{}).Detect(pcm.New(nil, rate)); segs != nil {
		t.Errorf("empty buffer segments = %v, want nil", segs)
	}
}

func TestMinSegmentDrop(t *testing.T) {
	rng := rand.New(rand.NewPCG(4, 0))
	buf := signal(rng,
		span(400*time.Millisecond, 0.0005),
		span(60*time.Millisecond, 0.25), // below the 150 ms minimum
		span(600*time.Millisecond, 0.0005),
	)
	if segs := New(Config{}).Detect(buf); len(segs) != 0 {
		t.Errorf("below-minimum burst reported: %v", segs)
	}
}
