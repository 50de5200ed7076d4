package pattern

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/haivivi/vocab/pkg/segment"
	"github.com/haivivi/vocab/pkg/vec"
)

// MinerConfig controls pattern discovery.
type MinerConfig struct {
	// SimilarityThreshold is the minimum cosine similarity for a
	// segment to join a cluster or merge into an existing pattern.
	SimilarityThreshold float32

	// MinClusterSize is the minimum segment count for a cluster to
	// become a pattern.
	MinClusterSize int

	// MinPatternConfidence discards freshly mined patterns below it.
	MinPatternConfidence float32

	// MaxExamples caps the training examples consumed per pass.
	MaxExamples int

	// MaxTotalSegments caps the segments clustered per pass.
	MaxTotalSegments int

	// MinSegmentConfidence filters out low-quality segments before
	// clustering.
	MinSegmentConfidence float32

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

func (c *MinerConfig) defaults() {
	if c.SimilarityThreshold == 0 {
		c.SimilarityThreshold = 0.8
	}
	if c.MinClusterSize == 0 {
		c.MinClusterSize = 2
	}
	if c.MinPatternConfidence == 0 {
		c.MinPatternConfidence = 0.3
	}
	if c.MaxExamples == 0 {
		c.MaxExamples = 50
	}
	if c.MaxTotalSegments == 0 {
		c.MaxTotalSegments = 400
	}
	if c.MinSegmentConfidence == 0 {
		c.MinSegmentConfidence = 0.2
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Miner discovers patterns by greedy single-link clustering of
// sub-utterance segments.
type Miner struct {
	cfg  MinerConfig
	segx *segment.Extractor
}

// NewMiner returns a miner that segments utterances with segx.
func NewMiner(segx *segment.Extractor, cfg MinerConfig) *Miner {
	cfg.defaults()
	return &Miner{cfg: cfg, segx: segx}
}

// member is one clustered segment plus its parent context.
type member struct {
	seg         segment.Segment
	explanation string
	position    float32
}

// Discover runs a full discovery pass over the given utterances and
// commits the resulting patterns to coll. It returns the number of
// patterns added. A cancelled context commits nothing.
func (m *Miner) Discover(ctx context.Context, utts []Utterance, coll *Collection) (int, error) {
	members, err := m.collect(ctx, utts)
	if err != nil {
		return 0, err
	}
	clusters := m.cluster(members)
	staged := &patch{}
	for _, cl := range clusters {
		p := m.build(cl)
		if p == nil {
			continue
		}
		staged.upserts = append(staged.upserts, p)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	coll.apply(staged)
	m.cfg.Logger.Debug("pattern discovery complete",
		"utterances", len(utts),
		"segments", len(members),
		"clusters", len(clusters),
		"patterns", len(staged.upserts))
	return len(staged.upserts), nil
}

// Update runs an incremental pass: segments of new utterances are
// merged into the best matching significant pattern when similar
// enough, and the remainder are clustered into new patterns. It
// returns the number of patterns added.
func (m *Miner) Update(ctx context.Context, utts []Utterance, coll *Collection) (int, error) {
	members, err := m.collect(ctx, utts)
	if err != nil {
		return 0, err
	}
	existing := coll.Significant(m.cfg.MinPatternConfidence, m.cfg.MinClusterSize)
	staged := &patch{}
	var leftover []member
	for _, mb := range members {
		bestID := ""
		var bestSim float32 = -1
		for _, p := range existing {
			sim := vec.Cosine(mb.seg.Embedding, p.Embedding)
			if sim > bestSim {
				bestSim = sim
				bestID = p.ID
			}
		}
		if bestID != "" && bestSim >= m.cfg.SimilarityThreshold {
			staged.merges = append(staged.merges, stagedMerge{
				id:        bestID,
				embedding: mb.seg.Embedding,
				segID:     mb.seg.ID,
				meaning:   mb.explanation,
				position:  mb.position,
			})
			continue
		}
		leftover = append(leftover, mb)
	}
	for _, cl := range m.cluster(leftover) {
		if p := m.build(cl); p != nil {
			staged.upserts = append(staged.upserts, p)
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	coll.apply(staged)
	m.cfg.Logger.Debug("pattern update complete",
		"merged", len(staged.merges),
		"patterns", len(staged.upserts))
	return len(staged.upserts), nil
}

// collect segments the utterances and filters out unusable segments.
func (m *Miner) collect(ctx context.Context, utts []Utterance) ([]member, error) {
	if len(utts) > m.cfg.MaxExamples {
		utts = utts[:m.cfg.MaxExamples]
	}
	var members []member
	for _, u := range utts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if u.Audio == nil || u.Audio.Len() == 0 {
			continue
		}
		segs, err := m.segx.Segments(ctx, u.Audio, u.ID)
		if err != nil {
			m.cfg.Logger.Warn("segmenting utterance failed", "utterance", u.ID, "error", err)
			continue
		}
		total := u.Audio.Duration()
		for _, s := range segs {
			if !s.Valid(m.cfg.MinSegmentConfidence) {
				continue
			}
			pos := float32(0)
			if total > 0 {
				pos = float32(s.Start) / float32(total)
			}
			members = append(members, member{seg: s, explanation: u.Explanation, position: pos})
			if len(members) >= m.cfg.MaxTotalSegments {
				return members, nil
			}
		}
	}
	return members, nil
}

// cluster groups members by greedy single-link assignment: each
// unclustered member seeds a cluster and pulls in every remaining
// member within the similarity threshold of the seed.
func (m *Miner) cluster(members []member) [][]member {
	var clusters [][]member
	used := make([]bool, len(members))
	for i := range members {
		if used[i] {
			continue
		}
		used[i] = true
		cl := []member{members[i]}
		for j := i + 1; j < len(members); j++ {
			if used[j] {
				continue
			}
			if vec.Cosine(members[i].seg.Embedding, members[j].seg.Embedding) >= m.cfg.SimilarityThreshold {
				used[j] = true
				cl = append(cl, members[j])
			}
		}
		if len(cl) >= m.cfg.MinClusterSize {
			clusters = append(clusters, cl)
		}
	}
	return clusters
}

// build turns a cluster into a pattern, or nil when the result does
// not clear the minimum confidence.
func (m *Miner) build(cl []member) *Pattern {
	vecs := make([][]float32, len(cl))
	positions := make([]float32, len(cl))
	var segConf float64
	for i, mb := range cl {
		vecs[i] = mb.seg.Embedding
		positions[i] = mb.position
		segConf += float64(mb.seg.Confidence)
	}
	rep := vec.Mean(vecs)
	segConf /= float64(len(cl))

	var meanPos, cohesion float64
	for i, mb := range cl {
		meanPos += float64(positions[i])
		cohesion += float64(vec.Cosine(mb.seg.Embedding, rep))
	}
	meanPos /= float64(len(cl))
	cohesion /= float64(len(cl))

	var posVar float64
	for _, p := range positions {
		d := float64(p) - meanPos
		posVar += d * d
	}
	posVar /= float64(len(cl))
	consistency := 1 - 2*math.Sqrt(posVar)
	if consistency < 0 {
		consistency = 0
	}
	freqTerm := float64(len(cl)) / 5
	if freqTerm > 1 {
		freqTerm = 1
	}
	conf := float32(segConf * consistency * freqTerm)
	if conf < m.cfg.MinPatternConfidence {
		return nil
	}

	now := time.Now()
	p := &Pattern{
		ID:          uuid.NewString(),
		Embedding:   rep,
		Frequency:   len(cl),
		Confidence:  conf,
		AvgPosition: float32(meanPos),
		Cohesion:    float32(cohesion),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	explanations := make([]string, len(cl))
	for i, mb := range cl {
		explanations[i] = mb.explanation
		if len(p.SegmentIDs) < maxSegmentIDs {
			p.SegmentIDs = append(p.SegmentIDs, mb.seg.ID)
		}
	}
	p.addMeaning(deriveMeaning(explanations, float32(meanPos)), len(cl))
	return p
}

// deriveMeaning infers a meaning phrase for a cluster from its parent
// explanations, guided by where the members sit in their utterances:
// early clusters take the longest common token prefix, late clusters
// the longest common suffix, and mid-utterance clusters the shorter
// of the two. When no common affix exists the most frequent token
// across the explanations stands in.
func deriveMeaning(explanations []string, avgPosition float32) string {
	tokenized := make([][]string, 0, len(explanations))
	for _, e := range explanations {
		if toks := strings.Fields(e); len(toks) > 0 {
			tokenized = append(tokenized, toks)
		}
	}
	if len(tokenized) == 0 {
		return ""
	}
	prefix := commonAffix(tokenized, false)
	suffix := commonAffix(tokenized, true)

	var phrase []string
	switch {
	case avgPosition < 1.0/3:
		phrase = prefix
	case avgPosition > 2.0/3:
		phrase = suffix
	default:
		phrase = prefix
		if len(suffix) > 0 && (len(phrase) == 0 || len(suffix) < len(phrase)) {
			phrase = suffix
		}
	}
	if len(phrase) > 0 {
		return strings.Join(phrase, " ")
	}
	return frequentToken(tokenized)
}

// commonAffix returns the longest token sequence shared by every
// tokenized explanation, from the back when suffix is set.
func commonAffix(tokenized [][]string, suffix bool) []string {
	n := len(tokenized[0])
	for _, toks := range tokenized[1:] {
		if len(toks) < n {
			n = len(toks)
		}
	}
	match := 0
	for i := 0; i < n; i++ {
		ref := tokenAt(tokenized[0], i, suffix)
		same := true
		for _, toks := range tokenized[1:] {
			if tokenAt(toks, i, suffix) != ref {
				same = false
				break
			}
		}
		if !same {
			break
		}
		match++
	}
	if match == 0 {
		return nil
	}
	if suffix {
		tail := tokenized[0][len(tokenized[0])-match:]
		return append([]string(nil), tail...)
	}
	return append([]string(nil), tokenized[0][:match]...)
}

func tokenAt(toks []string, i int, fromEnd bool) string {
	if fromEnd {
		return toks[len(toks)-1-i]
	}
	return toks[i]
}

// frequentToken returns the most frequent token across all
// explanations, with lexical tie-break.
func frequentToken(tokenized [][]string) string {
	counts := make(map[string]int)
	for _, toks := range tokenized {
		for _, t := range toks {
			counts[t]++
		}
	}
	keys := make([]string, 0, len(counts))
	for t := range counts {
		keys = append(keys, t)
	}
	sort.Strings(keys)
	best, bestN := "", 0
	for _, t := range keys {
		if counts[t] > bestN {
			best, bestN = t, counts[t]
		}
	}
	return best
}

// String describes the miner's configuration for diagnostics.
func (m *Miner) String() string {
	return fmt.Sprintf("miner(threshold=%.2f min_cluster=%d cap=%d)",
		m.cfg.SimilarityThreshold, m.cfg.MinClusterSize, m.cfg.MaxTotalSegments)
}
