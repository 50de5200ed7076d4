package phonetic

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/haivivi/vocab/pkg/audio/pcm"
	"github.com/haivivi/vocab/pkg/codebook"
	"github.com/haivivi/vocab/pkg/embed"
)

const rate = 16000

// noiseBurst builds: silence, noise, silence.
func noiseBurst(rng *rand.Rand, lead, body, tail time.Duration, amp float64) *pcm.Buffer {
	var samples []float32
	for _, part := range []struct {
		dur time.Duration
		amp float64
	}{{lead, 0.0004}, {body, amp}, {tail, 0.0004}} {
		n := int(part.dur.Seconds() * rate)
		for range n {
			samples = append(samples, float32(rng.NormFloat64()*part.amp))
		}
	}
	return pcm.New(samples, rate)
}

func newTranscriber(ext embed.Extractor) *Transcriber {
	q := codebook.New(codebook.Config{K: 16, Dim: ext.Dimension()})
	return NewTranscriber(ext, q, TranscriberConfig{})
}

func TestTranscribeCollapsesRuns(t *testing.T) {
	rng := rand.New(rand.NewPCG(21, 0))
	tr := newTranscriber(embed.NewFbank())
	buf := noiseBurst(rng, 400*time.Millisecond, time.Second, 400*time.Millisecond, 0.2)

	out, err := tr.Transcribe(context.Background(), buf)
	if err != nil {
		t.Fatal(err)
	}
	if out.IsEmpty() {
		t.Fatal("no units transcribed from a clear burst")
	}
	for i := 1; i < len(out.Units); i++ {
		if out.Units[i] == out.Units[i-1] {
			t.Fatalf("adjacent duplicate unit %d at %d: %v", out.Units[i], i, out.Units)
		}
	}
}

func TestTranscribeEmptyInput(t *testing.T) {
	tr := newTranscriber(embed.NewFbank())
	out, err := tr.Transcribe(context.Background(), pcm.New(nil, rate))
	if err != nil {
		t.Fatal(err)
	}
	if !out.IsEmpty() {
		t.Errorf("empty input produced units %v", out.Units)
	}
	if out.String() != "" {
		t.Errorf("empty transcription renders %q", out.String())
	}
}

func TestTranscribeSilence(t *testing.T) {
	rng := rand.New(rand.NewPCG(22, 0))
	tr := newTranscriber(embed.NewFbank())
	silence := noiseBurst(rng, 0, 0, time.Second, 0)
	out, err := tr.Transcribe(context.Background(), silence)
	if err != nil {
		t.Fatal(err)
	}
	if !out.IsEmpty() {
		t.Errorf("silence produced units %v", out.Units)
	}
}

// failingExtractor always reports the accelerator as gone.
type failingExtractor struct{}

func (failingExtractor) Extract(context.Context, *pcm.Buffer) ([]float32, error) {
	return nil, embed.ErrUnavailable
}
func (failingExtractor) Dimension() int     { return 8 }
func (failingExtractor) Rate() int          { return rate }
func (failingExtractor) WindowSamples() int { return 1280 }

func TestTranscribeExtractorDown(t *testing.T) {
	rng := rand.New(rand.NewPCG(23, 0))
	tr := newTranscriber(failingExtractor{})
	buf := noiseBurst(rng, 300*time.Millisecond, time.Second, 300*time.Millisecond, 0.2)

	out, err := tr.Transcribe(context.Background(), buf)
	if !errors.Is(err, embed.ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
	if !out.IsEmpty() {
		t.Errorf("broken extractor produced units %v", out.Units)
	}
}

func TestSpellAndString(t *testing.T) {
	tr := Transcription{Units: []int{12, 7, 3}}
	if s := tr.String(); s != "U12 U7 U3" {
		t.Errorf("String = %q", s)
	}
	syms := []string{"ba", "da", "ga", "ma"}
	if s := tr.Spell(syms); s != "ba ma ma" { // 12%4=0, 7%4=3, 3%4=3
		t.Errorf("Spell = %q, want %q", s, "ba ma ma")
	}
	if s := tr.Spell(nil); s != "U12 U7 U3" {
		t.Errorf("Spell(nil) = %q, want unit string", s)
	}
}

func TestCollapse(t *testing.T) {
	got := Collapse([]int{1, 1, 2, 2, 2, 1, 3, 3})
	want := []int{1, 2, 1, 3}
	if len(got) != len(want) {
		t.Fatalf("Collapse = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Collapse = %v, want %v", got, want)
		}
	}
	if Collapse(nil) != nil {
		t.Error("Collapse(nil) should be nil")
	}
}
