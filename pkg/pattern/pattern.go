// Package pattern discovers, validates, stores, and matches
// compositional patterns: clusters of acoustically similar
// sub-utterance segments recurring across training examples, each
// associated with one or more caregiver meanings.
//
// The [Miner] clusters segments greedily by cosine similarity (full
// discovery) and merges new segments into existing patterns
// (incremental mode). The [Validator] re-checks stored patterns
// without re-discovering. The [Collection] is the persisted pattern
// set with bounded-memory pruning. The [Matcher] explains new audio
// in terms of stored patterns, falling back to whole-utterance
// nearest-neighbor search over the raw training examples.
package pattern

import (
	"sort"
	"time"

	"github.com/haivivi/vocab/pkg/audio/pcm"
	"github.com/haivivi/vocab/pkg/vec"
)

// Pattern is a discovered recurring segment cluster.
type Pattern struct {
	// ID uniquely identifies the pattern.
	ID string `json:"id" msgpack:"id"`

	// Embedding is the arithmetic mean of member segment embeddings.
	Embedding []float32 `json:"embedding" msgpack:"embedding"`

	// Frequency is the number of contributing segments.
	Frequency int `json:"frequency" msgpack:"frequency"`

	// Confidence in [0, 1] blends member confidence, temporal
	// consistency, and frequency.
	Confidence float32 `json:"confidence" msgpack:"confidence"`

	// AvgPosition is the mean temporal position of members within
	// their parent utterances, in [0, 1].
	AvgPosition float32 `json:"avg_position" msgpack:"avg_position"`

	// Cohesion is the mean cosine similarity of member segments to
	// Embedding, maintained at discovery and merge time so validation
	// can re-run without the ephemeral segments.
	Cohesion float32 `json:"cohesion" msgpack:"cohesion"`

	// Meanings lists associated meanings, deduplicated, primary first.
	Meanings []string `json:"meanings,omitempty" msgpack:"meanings,omitempty"`

	// MeaningCounts tracks how often each meaning was associated,
	// for the meaning-consistency check.
	MeaningCounts map[string]int `json:"meaning_counts,omitempty" msgpack:"meaning_counts,omitempty"`

	// SegmentIDs lists contributing segment IDs, bounded by
	// maxSegmentIDs.
	SegmentIDs []string `json:"segment_ids,omitempty" msgpack:"segment_ids,omitempty"`

	CreatedAt time.Time `json:"created_at" msgpack:"created_at"`
	UpdatedAt time.Time `json:"updated_at" msgpack:"updated_at"`
}

// maxSegmentIDs bounds the contributing-segment list per pattern so
// the collection fits a fixed memory footprint.
const maxSegmentIDs = 64

// Significant reports whether the pattern clears the minimum
// confidence and frequency for use in matching.
func (p *Pattern) Significant(minConfidence float32, minFrequency int) bool {
	return p.Confidence >= minConfidence && p.Frequency >= minFrequency
}

// ModalMeaning returns the most frequently associated meaning and the
// fraction of associations it accounts for. Ties break lexically.
// Empty patterns return ("", 0).
func (p *Pattern) ModalMeaning() (string, float64) {
	total := 0
	best := ""
	bestCount := 0
	keys := make([]string, 0, len(p.MeaningCounts))
	for m := range p.MeaningCounts {
		keys = append(keys, m)
	}
	sort.Strings(keys)
	for _, m := range keys {
		n := p.MeaningCounts[m]
		total += n
		if n > bestCount {
			best = m
			bestCount = n
		}
	}
	if total == 0 {
		return "", 0
	}
	return best, float64(bestCount) / float64(total)
}

// clone returns a deep copy.
func (p *Pattern) clone() *Pattern {
	cp := *p
	cp.Embedding = append([]float32(nil), p.Embedding...)
	cp.Meanings = append([]string(nil), p.Meanings...)
	cp.SegmentIDs = append([]string(nil), p.SegmentIDs...)
	if p.MeaningCounts != nil {
		cp.MeaningCounts = make(map[string]int, len(p.MeaningCounts))
		for k, v := range p.MeaningCounts {
			cp.MeaningCounts[k] = v
		}
	}
	return &cp
}

// addMeaning records an association, keeping Meanings deduplicated.
func (p *Pattern) addMeaning(meaning string, count int) {
	if meaning == "" || count <= 0 {
		return
	}
	if p.MeaningCounts == nil {
		p.MeaningCounts = make(map[string]int)
	}
	if p.MeaningCounts[meaning] == 0 {
		p.Meanings = append(p.Meanings, meaning)
	}
	p.MeaningCounts[meaning] += count
}

// mergeSegment folds one new segment into the pattern: running-mean
// embedding and position, cohesion update, bounded segment list, and
// a mild confidence reinforcement.
func (p *Pattern) mergeSegment(embedding []float32, segID, meaning string, position float32, now time.Time) {
	n := float32(p.Frequency)
	if len(p.Embedding) == 0 {
		p.Embedding = append([]float32(nil), embedding...)
	} else {
		sim := vec.Cosine(embedding, p.Embedding)
		for d := range p.Embedding {
			if d < len(embedding) {
				p.Embedding[d] = (p.Embedding[d]*n + embedding[d]) / (n + 1)
			}
		}
		p.Cohesion = (p.Cohesion*n + sim) / (n + 1)
	}
	p.AvgPosition = (p.AvgPosition*n + position) / (n + 1)
	p.Frequency++
	p.Confidence += (1 - p.Confidence) * 0.05
	p.addMeaning(meaning, 1)
	if len(p.SegmentIDs) < maxSegmentIDs {
		p.SegmentIDs = append(p.SegmentIDs, segID)
	}
	p.UpdatedAt = now
}

// Utterance is the miner's and matcher's view of one training example:
// its audio, caregiver explanation, and identity.
type Utterance struct {
	ID          string
	Explanation string
	Audio       *pcm.Buffer
}

// ExampleEmbedding is the fallback matcher's view of one training
// example: its cached whole-utterance embedding.
type ExampleEmbedding struct {
	ID          string
	Explanation string
	Embedding   []float32
}
