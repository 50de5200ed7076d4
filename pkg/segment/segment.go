// Package segment splits a training utterance into candidate
// sub-segments and attaches an embedding to each. Four interchangeable
// strategies produce the candidate ranges; the extractor then embeds
// every range, skipping individual failures so one bad span never
// aborts the whole utterance.
package segment

import (
	"time"

	"github.com/haivivi/vocab/pkg/vec"
)

// Segment is a sub-span of one training utterance's audio.
type Segment struct {
	// ID uniquely identifies this segment within a discovery pass.
	ID string `json:"id" msgpack:"id"`

	// ParentID is the training example this segment came from.
	ParentID string `json:"parent_id" msgpack:"parent_id"`

	// Start and End are offsets into the parent audio.
	Start time.Duration `json:"start" msgpack:"start"`
	End   time.Duration `json:"end" msgpack:"end"`

	// Embedding is the segment's embedding vector.
	Embedding []float32 `json:"embedding" msgpack:"embedding"`

	// Confidence in [0, 1] reflects signal level and duration sanity.
	Confidence float32 `json:"confidence" msgpack:"confidence"`
}

// Duration returns the segment's span length.
func (s Segment) Duration() time.Duration { return s.End - s.Start }

// Valid reports whether the segment is usable for mining and matching:
// a positive span, a non-degenerate embedding, and confidence above
// the minimum.
func (s Segment) Valid(minConfidence float32) bool {
	return s.End > s.Start &&
		!vec.IsDegenerate(s.Embedding) &&
		s.Confidence > minConfidence
}

// Strategy selects how candidate ranges are produced.
type Strategy string

const (
	// StrategyFixed slides fixed-width windows over the utterance.
	StrategyFixed Strategy = "fixed"

	// StrategyVariable divides the utterance evenly, bounded by a
	// maximum segment count.
	StrategyVariable Strategy = "variable"

	// StrategyEnergy places boundaries at local energy minima below a
	// fraction of the mean energy.
	StrategyEnergy Strategy = "energy"

	// StrategyEmbedding places boundaries where consecutive-frame
	// embedding similarity drops below a threshold.
	StrategyEmbedding Strategy = "embedding"
)

// Config controls range production and embedding.
type Config struct {
	// Strategy is the range producer. Default StrategyEnergy. The
	// default is an explicit configuration choice, not a build-mode
	// artifact.
	Strategy Strategy

	// MinSegment and MaxSegment bound finalized range durations.
	// Under-long ranges merge with a neighbor, over-long ranges split
	// evenly. Defaults 200 ms and 1.5 s.
	MinSegment time.Duration
	MaxSegment time.Duration

	// FixedWindow is the window width for StrategyFixed. Default 500 ms.
	FixedWindow time.Duration

	// MaxSegments caps StrategyVariable's segment count. Default 8.
	MaxSegments int

	// EnergyFraction is the fraction of mean frame energy below which
	// a local minimum becomes a boundary. Default 0.5.
	EnergyFraction float64

	// SimilarityDrop is the consecutive-frame cosine similarity below
	// which StrategyEmbedding marks a boundary. Default 0.85.
	SimilarityDrop float64

	// FrameSize and HopSize drive per-frame analysis for the energy
	// and embedding strategies. Defaults 80 ms and 40 ms.
	FrameSize time.Duration
	HopSize   time.Duration

	// MaxFrames caps per-utterance frame embeddings for
	// StrategyEmbedding (backpressure valve). Default 256.
	MaxFrames int

	// MinConfidence is the validity floor for produced segments.
	// Default 0.2.
	MinConfidence float32
}

func (c *Config) defaults() {
	if c.Strategy == "" {
		c.Strategy = StrategyEnergy
	}
	if c.MinSegment == 0 {
		c.MinSegment = 200 * time.Millisecond
	}
	if c.MaxSegment == 0 {
		c.MaxSegment = 1500 * time.Millisecond
	}
	if c.FixedWindow == 0 {
		c.FixedWindow = 500 * time.Millisecond
	}
	if c.MaxSegments == 0 {
		c.MaxSegments = 8
	}
	if c.EnergyFraction == 0 {
		c.EnergyFraction = 0.5
	}
	if c.SimilarityDrop == 0 {
		c.SimilarityDrop = 0.85
	}
	if c.FrameSize == 0 {
		c.FrameSize = 80 * time.Millisecond
	}
	if c.HopSize == 0 {
		c.HopSize = 40 * time.Millisecond
	}
	if c.MaxFrames == 0 {
		c.MaxFrames = 256
	}
	if c.MinConfidence == 0 {
		c.MinConfidence = 0.2
	}
}

// span is a candidate time range before embedding.
type span struct {
	start, end time.Duration
}

func (s span) dur() time.Duration { return s.end - s.start }
