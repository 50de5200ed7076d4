package fbank

import (
	"math"
	"testing"
)

func sine(freq float64, rate, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

func TestMelFilterBank(t *testing.T) {
	bank := melFilterBank(80, 512, 16000, 20, 7600)
	if len(bank) != 80 {
		t.Fatalf("numMels = %d, want 80", len(bank))
	}
	prev := -1
	for m, filter := range bank {
		if filter.offset <= prev {
			t.Fatalf("filter %d offset %d not increasing", m, filter.offset)
		}
		prev = filter.offset
		if end := filter.offset + len(filter.weights); end > 257 {
			t.Fatalf("filter %d extends to bin %d, past spectrum end", m, end)
		}
		sum := 0.0
		for _, w := range filter.weights {
			sum += w
		}
		if sum <= 0 {
			t.Errorf("filter %d has zero weight", m)
		}
	}
}

func TestExtractShape(t *testing.T) {
	e := New(DefaultConfig())
	pcm := sine(440, 16000, 16000) // 1 second
	feats := e.Extract(pcm)

	wantFrames := (16000-400)/160 + 1
	if len(feats) != wantFrames {
		t.Fatalf("frames = %d, want %d", len(feats), wantFrames)
	}
	if len(feats[0]) != 80 {
		t.Fatalf("mels = %d, want 80", len(feats[0]))
	}

	// Too-short input yields nil, not a panic.
	if got := e.Extract(make([]float32, 100)); got != nil {
		t.Errorf("short input: got %d frames, want nil", len(got))
	}
}

func TestCMVN(t *testing.T) {
	e := New(DefaultConfig())
	feats := e.Extract(sine(440, 16000, 8000))
	CMVN(feats)

	// After CMVN each dimension has ≈0 mean and ≈1 std.
	T := float64(len(feats))
	for m := 0; m < 80; m++ {
		sum := 0.0
		for _, f := range feats {
			sum += float64(f[m])
		}
		mean := sum / T
		if math.Abs(mean) > 1e-3 {
			t.Fatalf("dim %d mean = %v after CMVN", m, mean)
		}
	}
}

func TestStats(t *testing.T) {
	feats := [][]float32{{1, 10}, {3, 10}}
	s := Stats(feats)
	if len(s) != 4 {
		t.Fatalf("len = %d, want 4", len(s))
	}
	if s[0] != 2 || s[1] != 10 {
		t.Errorf("means = %v %v, want 2 10", s[0], s[1])
	}
	if s[2] != 1 || s[3] != 0 {
		t.Errorf("stds = %v %v, want 1 0", s[2], s[3])
	}
	if Stats(nil) != nil {
		t.Error("Stats(nil) should be nil")
	}
}
