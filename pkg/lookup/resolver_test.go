package lookup

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/haivivi/vocab/pkg/audio/pcm"
	"github.com/haivivi/vocab/pkg/classify"
	"github.com/haivivi/vocab/pkg/codebook"
	"github.com/haivivi/vocab/pkg/embed"
	"github.com/haivivi/vocab/pkg/pattern"
	"github.com/haivivi/vocab/pkg/phonetic"
	"github.com/haivivi/vocab/pkg/segment"
)

const rate = 16000

// toneEmbedder maps audio to a dense vector peaked at a zero-crossing
// bucket, standing in for a real model.
type toneEmbedder struct{}

func (toneEmbedder) Rate() int          { return rate }
func (toneEmbedder) Dimension() int     { return 8 }
func (toneEmbedder) WindowSamples() int { return 8000 }

func (toneEmbedder) Extract(_ context.Context, w *pcm.Buffer) ([]float32, error) {
	crossings := 0
	for i := 1; i < len(w.Samples); i++ {
		if (w.Samples[i-1] < 0) != (w.Samples[i] < 0) {
			crossings++
		}
	}
	bucket := int(float64(crossings) / float64(len(w.Samples)) * 20)
	if bucket > 7 {
		bucket = 7
	}
	v := make([]float32, 8)
	for i := range v {
		v[i] = 0.1
	}
	v[bucket] += 1
	return v, nil
}

// brokenEmbedder always fails, modeling a missing accelerator.
type brokenEmbedder struct{ toneEmbedder }

func (brokenEmbedder) Extract(_ context.Context, _ *pcm.Buffer) ([]float32, error) {
	return nil, embed.ErrUnavailable
}

func tone(freq float64, dur time.Duration) *pcm.Buffer {
	n := int(dur.Seconds() * rate)
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.4 * math.Sin(2*math.Pi*freq*float64(i)/rate))
	}
	return pcm.New(out, rate)
}

func newTestResolver(ext embed.Extractor) *Resolver {
	quant := codebook.New(codebook.Config{Dim: 8, K: 16})
	trans := phonetic.NewTranscriber(ext, quant, phonetic.TranscriberConfig{})
	cls := classify.New(classify.Config{})
	segx := segment.NewExtractor(ext, segment.Config{Strategy: segment.StrategyFixed})
	miner := pattern.NewMiner(segx, pattern.MinerConfig{SimilarityThreshold: 0.9})
	matcher := pattern.NewMatcher(segx, ext, pattern.MatcherConfig{})
	return NewResolver(ext, trans, cls, miner, matcher, pattern.NewCollection(), Config{})
}

func TestLearnThenResolve(t *testing.T) {
	r := newTestResolver(toneEmbedder{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := r.Learn(ctx, tone(400, time.Second), "water"); err != nil {
			t.Fatal(err)
		}
		if _, err := r.Learn(ctx, tone(2000, time.Second), "food"); err != nil {
			t.Fatal(err)
		}
	}
	if got := len(r.Examples()); got != 6 {
		t.Fatalf("examples = %d, want 6", got)
	}

	res := r.Resolve(ctx, tone(400, time.Second))
	if !res.Matched {
		t.Fatalf("no match: %s", res.Reason)
	}
	if res.Meaning != "water" {
		t.Errorf("meaning = %q, want water", res.Meaning)
	}
	if res.Tier != TierClassifier {
		t.Errorf("tier = %q, want %q", res.Tier, TierClassifier)
	}
	if res.NeedsConfirmation {
		t.Error("confident resolution flagged for confirmation")
	}

	res = r.Resolve(ctx, tone(2000, time.Second))
	if res.Meaning != "food" {
		t.Errorf("meaning = %q, want food", res.Meaning)
	}
}

func TestResolveEmptyState(t *testing.T) {
	r := newTestResolver(toneEmbedder{})
	res := r.Resolve(context.Background(), tone(400, time.Second))
	if res.Matched {
		t.Fatalf("matched with no training data: %+v", res)
	}
	if res.Reason == "" {
		t.Error("no-match reason missing")
	}
	if r.Resolve(context.Background(), nil).Matched {
		t.Error("matched nil audio")
	}
}

func TestConfirmReinforcesAndVerifies(t *testing.T) {
	r := newTestResolver(toneEmbedder{})
	ctx := context.Background()
	if _, err := r.Learn(ctx, tone(400, time.Second), "water"); err != nil {
		t.Fatal(err)
	}
	if err := r.Confirm(ctx, "water", tone(400, time.Second)); err != nil {
		t.Fatal(err)
	}
	ex := r.Examples()[0]
	if !ex.Verified {
		t.Error("confirmed example not marked verified")
	}
	if err := r.Confirm(ctx, "", tone(400, time.Second)); err == nil {
		t.Error("empty meaning accepted")
	}
}

func TestDiscoveryThenPatternLookup(t *testing.T) {
	r := newTestResolver(toneEmbedder{})
	ctx := context.Background()
	// Shared 400 Hz opener with varying second halves.
	combos := []struct {
		second      float64
		explanation string
	}{
		{800, "I want water"},
		{2000, "I want food"},
		{3000, "I want milk"},
	}
	for _, c := range combos {
		buf := pcm.New(append(tone(400, 500*time.Millisecond).Samples,
			tone(c.second, 500*time.Millisecond).Samples...), rate)
		if _, err := r.Learn(ctx, buf, c.explanation); err != nil {
			t.Fatal(err)
		}
	}
	added, err := r.RunDiscovery(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if added == 0 {
		t.Fatal("discovery found no patterns")
	}
	if r.Collection().Len() == 0 {
		t.Fatal("collection empty after discovery")
	}
	// A second run with nothing new is a no-op.
	added, err = r.RunDiscovery(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if added != 0 {
		t.Errorf("repeat discovery added %d patterns", added)
	}
}

func TestBrokenExtractorNeverPanics(t *testing.T) {
	r := newTestResolver(brokenEmbedder{})
	ctx := context.Background()
	rng := rand.New(rand.NewPCG(7, 0))

	for i := 0; i < 1000; i++ {
		n := 1 + rng.IntN(rate)
		samples := make([]float32, n)
		for j := range samples {
			samples[j] = float32(rng.NormFloat64() * 0.2)
		}
		buf := pcm.New(samples, rate)
		if _, err := r.Learn(ctx, buf, "anything"); err == nil {
			t.Fatal("learn succeeded without embeddings")
		}
		if res := r.Resolve(ctx, buf); res.Matched {
			t.Fatalf("resolved without embeddings: %+v", res)
		}
	}
	if _, err := r.RunDiscovery(ctx); err != nil {
		t.Fatalf("discovery over empty state errored: %v", err)
	}
}
