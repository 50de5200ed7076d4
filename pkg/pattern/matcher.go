package pattern

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/haivivi/vocab/pkg/audio/pcm"
	"github.com/haivivi/vocab/pkg/embed"
	"github.com/haivivi/vocab/pkg/segment"
	"github.com/haivivi/vocab/pkg/vec"
)

// Reconstruction strategies for combining matched patterns into a
// single translation.
const (
	MethodCombination = "pattern-combination"
	MethodFrequency   = "pattern-frequency"
	MethodDominant    = "pattern-dominant"
	MethodFallback    = "nearest-example"
)

// Match is the outcome of explaining one utterance.
type Match struct {
	// Matched reports whether any strategy produced a translation.
	Matched bool

	// Translation is the reconstructed meaning.
	Translation string

	// Confidence in [0, 1].
	Confidence float64

	// Method names the strategy that produced the translation.
	Method string

	// Coverage is the fraction of the utterance explained by matched
	// patterns, blending duration and segment-count ratios.
	Coverage float64

	// Reason explains a non-match.
	Reason string
}

// MatcherConfig controls pattern matching.
type MatcherConfig struct {
	// SimilarityThreshold is the minimum cosine similarity for a
	// segment to match a pattern.
	SimilarityThreshold float32

	// MinCoverage is the minimum explained fraction for pattern
	// reconstruction to apply.
	MinCoverage float64

	// MinCombined is the acceptance threshold on a reconstruction
	// strategy's combined confidence.
	MinCombined float64

	// FallbackThreshold is the minimum similarity for the
	// whole-utterance nearest-neighbor fallback.
	FallbackThreshold float32

	// MinPatternConfidence and MinPatternFrequency gate which stored
	// patterns participate.
	MinPatternConfidence float32
	MinPatternFrequency  int

	// MinSegmentConfidence filters query segments.
	MinSegmentConfidence float32

	// CombinationShare is the minimum weight share a meaning needs to
	// be kept by the combination strategy. Every meaning at or above
	// the share joins the translation in temporal order; above 0.5 the
	// strategy degenerates to the single highest-weighted meaning.
	// Default 0.25.
	CombinationShare float64

	// MaxZeroFraction rejects fallback queries that are mostly
	// silence and would match everything weakly.
	MaxZeroFraction float32

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

func (c *MatcherConfig) defaults() {
	if c.SimilarityThreshold == 0 {
		c.SimilarityThreshold = 0.75
	}
	if c.MinCoverage == 0 {
		c.MinCoverage = 0.4
	}
	if c.MinCombined == 0 {
		c.MinCombined = 0.35
	}
	if c.FallbackThreshold == 0 {
		c.FallbackThreshold = 0.75
	}
	if c.MinPatternConfidence == 0 {
		c.MinPatternConfidence = 0.3
	}
	if c.MinPatternFrequency == 0 {
		c.MinPatternFrequency = 2
	}
	if c.MinSegmentConfidence == 0 {
		c.MinSegmentConfidence = 0.2
	}
	if c.CombinationShare == 0 {
		c.CombinationShare = 0.25
	}
	if c.MaxZeroFraction == 0 {
		c.MaxZeroFraction = 0.6
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Matcher explains new utterances in terms of stored patterns.
type Matcher struct {
	cfg  MatcherConfig
	segx *segment.Extractor
	ext  embed.Extractor
}

// NewMatcher returns a matcher that segments queries with segx; ext
// embeds the whole buffer when a fallback query has no usable segments.
func NewMatcher(segx *segment.Extractor, ext embed.Extractor, cfg MatcherConfig) *Matcher {
	cfg.defaults()
	return &Matcher{cfg: cfg, segx: segx, ext: ext}
}

// segMatch pairs a query segment with its best pattern.
type segMatch struct {
	seg segment.Segment
	pat *Pattern
	sim float32
}

// MatchPatterns explains the utterance using stored patterns only.
// It tries three reconstruction strategies in order and returns the
// first whose combined confidence clears the threshold.
func (m *Matcher) MatchPatterns(ctx context.Context, buf *pcm.Buffer, coll *Collection) Match {
	if buf == nil || buf.Len() == 0 {
		return noMatch("empty audio")
	}
	significant := coll.Significant(m.cfg.MinPatternConfidence, m.cfg.MinPatternFrequency)
	if len(significant) == 0 {
		return noMatch("no significant patterns")
	}
	segs, err := m.segx.Segments(ctx, buf, "query")
	if err != nil || len(segs) == 0 {
		return noMatch("segmentation produced nothing usable")
	}
	var usable []segment.Segment
	for _, s := range segs {
		if s.Valid(m.cfg.MinSegmentConfidence) {
			usable = append(usable, s)
		}
	}
	if len(usable) == 0 {
		return noMatch("no confident segments")
	}

	var matches []segMatch
	var matchedDur time.Duration
	for _, s := range usable {
		var best *Pattern
		var bestSim float32 = -1
		for _, p := range significant {
			if sim := vec.Cosine(s.Embedding, p.Embedding); sim > bestSim {
				bestSim = sim
				best = p
			}
		}
		if best != nil && bestSim >= m.cfg.SimilarityThreshold {
			matches = append(matches, segMatch{seg: s, pat: best, sim: bestSim})
			matchedDur += s.Duration()
		}
	}
	if len(matches) == 0 {
		return noMatch("no segment matched a pattern")
	}

	var totalDur time.Duration
	for _, s := range usable {
		totalDur += s.Duration()
	}
	coverage := 0.0
	if totalDur > 0 {
		coverage = 0.6*(float64(matchedDur)/float64(totalDur)) +
			0.4*(float64(len(matches))/float64(len(usable)))
	}
	if coverage < m.cfg.MinCoverage {
		return noMatch(fmt.Sprintf("coverage %.2f below minimum", coverage))
	}

	for _, try := range []func([]segMatch, float64) (Match, bool){
		m.byCombination,
		m.byFrequency,
		m.byDominant,
	} {
		if match, ok := try(matches, coverage); ok {
			return match
		}
	}
	return noMatch("no reconstruction cleared the confidence threshold")
}

// byCombination weights each matched pattern's meanings by squared
// pattern confidence and joins every meaning whose weight share clears
// CombinationShare, ordered by earliest matched segment. Compositional
// utterances thus reconstruct as full phrases rather than collapsing
// to one constituent.
func (m *Matcher) byCombination(matches []segMatch, coverage float64) (Match, bool) {
	weights := make(map[string]float64)
	order := make(map[string]time.Duration)
	var total float64
	for _, sm := range matches {
		w := float64(sm.pat.Confidence) * float64(sm.pat.Confidence)
		for _, meaning := range sm.pat.Meanings {
			weights[meaning] += w
			if cur, ok := order[meaning]; !ok || sm.seg.Start < cur {
				order[meaning] = sm.seg.Start
			}
		}
		total += w
	}
	if total == 0 {
		return Match{}, false
	}
	var kept []string
	for meaning, w := range weights {
		if w/total >= m.cfg.CombinationShare {
			kept = append(kept, meaning)
		}
	}
	if len(kept) == 0 {
		return Match{}, false
	}
	sort.Slice(kept, func(i, j int) bool {
		if order[kept[i]] != order[kept[j]] {
			return order[kept[i]] < order[kept[j]]
		}
		return kept[i] < kept[j]
	})
	var topShare float64
	for _, meaning := range kept {
		if s := weights[meaning] / total; s > topShare {
			topShare = s
		}
	}
	conf := topShare * coverage
	if conf < m.cfg.MinCombined {
		return Match{}, false
	}
	return Match{
		Matched:     true,
		Translation: strings.Join(kept, " "),
		Confidence:  conf,
		Method:      MethodCombination,
		Coverage:    coverage,
	}, true
}

// byFrequency weights meanings by pattern confidence scaled by how
// well-attested the pattern is.
func (m *Matcher) byFrequency(matches []segMatch, coverage float64) (Match, bool) {
	weights := make(map[string]float64)
	var total float64
	for _, sm := range matches {
		freqTerm := float64(sm.pat.Frequency) / 10
		if freqTerm > 1 {
			freqTerm = 1
		}
		w := float64(sm.pat.Confidence) * freqTerm
		for _, meaning := range sm.pat.Meanings {
			weights[meaning] += w
		}
		total += w
	}
	if total == 0 {
		return Match{}, false
	}
	meanings := make([]string, 0, len(weights))
	for meaning := range weights {
		meanings = append(meanings, meaning)
	}
	sort.Strings(meanings)
	best, bestW := "", 0.0
	for _, meaning := range meanings {
		if weights[meaning] > bestW {
			best, bestW = meaning, weights[meaning]
		}
	}
	conf := (bestW / total) * coverage
	if conf < m.cfg.MinCombined {
		return Match{}, false
	}
	return Match{
		Matched:     true,
		Translation: best,
		Confidence:  conf,
		Method:      MethodFrequency,
		Coverage:    coverage,
	}, true
}

// byDominant takes the single strongest pattern by confidence times
// attestation and answers with its modal meaning.
func (m *Matcher) byDominant(matches []segMatch, coverage float64) (Match, bool) {
	var best segMatch
	var bestScore float64 = -1
	for _, sm := range matches {
		score := float64(sm.pat.Confidence) * float64(sm.pat.Frequency)
		if score > bestScore || (score == bestScore && sm.pat.ID < best.pat.ID) {
			best = sm
			bestScore = score
		}
	}
	if best.pat == nil {
		return Match{}, false
	}
	meaning, _ := best.pat.ModalMeaning()
	if meaning == "" {
		return Match{}, false
	}
	conf := float64(best.sim) * float64(best.pat.Confidence)
	if conf < m.cfg.MinCombined {
		return Match{}, false
	}
	return Match{
		Matched:     true,
		Translation: meaning,
		Confidence:  conf,
		Method:      MethodDominant,
		Coverage:    coverage,
	}, true
}

// Fallback answers with the nearest stored example by whole-utterance
// embedding similarity. Degenerate queries and suspiciously uniform
// score profiles are rejected rather than guessed at.
func (m *Matcher) Fallback(ctx context.Context, buf *pcm.Buffer, examples []ExampleEmbedding) Match {
	if buf == nil || buf.Len() == 0 {
		return noMatch("empty audio")
	}
	if len(examples) == 0 {
		return noMatch("no stored examples")
	}
	query, err := m.queryEmbedding(ctx, buf)
	if err != nil {
		return noMatch("embedding unavailable")
	}
	if vec.IsDegenerate(query) {
		return noMatch("degenerate query embedding")
	}
	if vec.ZeroFraction(query) > m.cfg.MaxZeroFraction {
		return noMatch("query is mostly silence")
	}

	type scored struct {
		ex  ExampleEmbedding
		sim float32
	}
	ranked := make([]scored, 0, len(examples))
	for _, ex := range examples {
		if vec.IsDegenerate(ex.Embedding) {
			continue
		}
		ranked = append(ranked, scored{ex: ex, sim: vec.Cosine(query, ex.Embedding)})
	}
	if len(ranked) == 0 {
		return noMatch("no usable example embeddings")
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].sim != ranked[j].sim {
			return ranked[i].sim > ranked[j].sim
		}
		return ranked[i].ex.Explanation < ranked[j].ex.Explanation
	})

	// A near-uniform top of the ranking means the query is equally
	// close to unrelated examples, which happens with flat or noisy
	// audio rather than a real repetition.
	if len(ranked) >= 3 && ranked[0].sim > 0.95 && ranked[0].sim-ranked[2].sim < 0.02 {
		return noMatch("uniformly high similarity across unrelated examples")
	}
	top := ranked[0]
	if top.sim < m.cfg.FallbackThreshold {
		return noMatch(fmt.Sprintf("best example similarity %.2f below threshold", top.sim))
	}
	return Match{
		Matched:     true,
		Translation: top.ex.Explanation,
		Confidence:  float64(top.sim),
		Method:      MethodFallback,
	}
}

// queryEmbedding represents the utterance as the mean of its
// confident-segment embeddings, so a long query is not reduced to the
// extractor's first window. Only when no segment qualifies does it
// embed the buffer directly.
func (m *Matcher) queryEmbedding(ctx context.Context, buf *pcm.Buffer) ([]float32, error) {
	segs, err := m.segx.Segments(ctx, buf, "query")
	if err == nil {
		var embs [][]float32
		for _, s := range segs {
			if s.Valid(m.cfg.MinSegmentConfidence) {
				embs = append(embs, s.Embedding)
			}
		}
		if len(embs) > 0 {
			return vec.Mean(embs), nil
		}
	}
	return embed.ExtractBuffer(ctx, m.ext, buf)
}

// Match tries pattern reconstruction first, then the whole-utterance
// fallback.
func (m *Matcher) Match(ctx context.Context, buf *pcm.Buffer, coll *Collection, examples []ExampleEmbedding) Match {
	if match := m.MatchPatterns(ctx, buf, coll); match.Matched {
		return match
	}
	return m.Fallback(ctx, buf, examples)
}

func noMatch(reason string) Match {
	return Match{Reason: reason}
}
