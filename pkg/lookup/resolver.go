package lookup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haivivi/vocab/pkg/audio/pcm"
	"github.com/haivivi/vocab/pkg/classify"
	"github.com/haivivi/vocab/pkg/embed"
	"github.com/haivivi/vocab/pkg/pattern"
	"github.com/haivivi/vocab/pkg/phonetic"
)

// Resolution tiers, in the order they are tried.
const (
	TierClassifier = "classifier"
	TierPattern    = "pattern"
	TierFallback   = "fallback"
)

// Resolution is the answer to one resolve request.
type Resolution struct {
	// Matched reports whether any tier produced a meaning.
	Matched bool `json:"matched"`

	// Meaning is the resolved meaning.
	Meaning string `json:"meaning,omitempty"`

	// Confidence in [0, 1].
	Confidence float64 `json:"confidence,omitempty"`

	// Tier names the stage that answered.
	Tier string `json:"tier,omitempty"`

	// NeedsConfirmation asks the caregiver to confirm before the
	// answer is trusted for learning.
	NeedsConfirmation bool `json:"needs_confirmation,omitempty"`

	// Units is the phonetic transcription of the query, for
	// diagnostics.
	Units string `json:"units,omitempty"`

	// Reason explains a non-match.
	Reason string `json:"reason,omitempty"`
}

// Config controls the resolver.
type Config struct {
	// MaxExamples bounds the in-memory example set. The oldest
	// examples are dropped first.
	MaxExamples int

	// MaxAudioHeld bounds how many raw recordings stay in memory for
	// background discovery. Older audio is released; its example
	// keeps the cached embedding and transcription.
	MaxAudioHeld int

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.MaxExamples == 0 {
		c.MaxExamples = 200
	}
	if c.MaxAudioHeld == 0 {
		c.MaxAudioHeld = 50
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// held pairs an example with its in-memory audio, when still held.
type held struct {
	ex    *Example
	audio *pcm.Buffer
}

// Resolver ties the pipeline together. Safe for concurrent use.
type Resolver struct {
	mu       sync.Mutex
	cfg      Config
	ext      embed.Extractor
	trans    *phonetic.Transcriber
	cls      *classify.Classifier
	matcher  *pattern.Matcher
	miner    *pattern.Miner
	coll     *pattern.Collection
	examples []held
	deb      *Debouncer
}

// NewResolver assembles a resolver from the pipeline stages.
func NewResolver(ext embed.Extractor, trans *phonetic.Transcriber, cls *classify.Classifier,
	miner *pattern.Miner, matcher *pattern.Matcher, coll *pattern.Collection, cfg Config) *Resolver {
	cfg.defaults()
	return &Resolver{
		cfg:     cfg,
		ext:     ext,
		trans:   trans,
		cls:     cls,
		matcher: matcher,
		miner:   miner,
		coll:    coll,
	}
}

// SetDebouncer attaches a discovery debouncer notified on every new
// example.
func (r *Resolver) SetDebouncer(d *Debouncer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deb = d
}

// Collection exposes the pattern collection for persistence and
// inspection.
func (r *Resolver) Collection() *pattern.Collection { return r.coll }

// Classifier exposes the phonetic classifier for persistence.
func (r *Resolver) Classifier() *classify.Classifier { return r.cls }

// Learn records a caregiver-labeled example: it transcribes and
// embeds the audio, stores the example, teaches the classifier, and
// nudges the discovery debouncer.
func (r *Resolver) Learn(ctx context.Context, audio *pcm.Buffer, explanation string) (*Example, error) {
	if audio == nil || audio.Len() == 0 {
		return nil, fmt.Errorf("lookup: empty audio")
	}
	if explanation == "" {
		return nil, fmt.Errorf("lookup: empty explanation")
	}
	units, emb, err := r.analyze(ctx, audio)
	if err != nil {
		return nil, fmt.Errorf("lookup: analyze example: %w", err)
	}
	ex := &Example{
		ID:          uuid.NewString(),
		Explanation: explanation,
		Embedding:   emb,
		Units:       units.Units,
		CreatedAt:   time.Now(),
	}
	r.cls.Update(explanation, emb, units.String())

	r.mu.Lock()
	r.examples = append(r.examples, held{ex: ex, audio: audio.Clone()})
	if len(r.examples) > r.cfg.MaxExamples {
		r.examples = r.examples[len(r.examples)-r.cfg.MaxExamples:]
	}
	for i := 0; i < len(r.examples)-r.cfg.MaxAudioHeld; i++ {
		r.examples[i].audio = nil
	}
	deb := r.deb
	n := len(r.examples)
	r.mu.Unlock()

	r.cfg.Logger.Info("learned example",
		"example", ex.ID, "explanation", explanation, "units", units.String(), "total", n)
	if deb != nil {
		deb.Notify()
	}
	return ex.clone(), nil
}

// analyze runs transcription and whole-utterance embedding. A failed
// transcription is tolerated; a failed embedding is not, since every
// downstream tier needs the vector.
func (r *Resolver) analyze(ctx context.Context, audio *pcm.Buffer) (phonetic.Transcription, []float32, error) {
	units, err := r.trans.Transcribe(ctx, audio)
	if err != nil {
		r.cfg.Logger.Warn("transcription failed", "error", err)
		units = phonetic.Transcription{}
	}
	emb, err := embed.ExtractBuffer(ctx, r.ext, audio)
	if err != nil {
		return units, nil, err
	}
	return units, emb, nil
}

// Resolve answers "what does this mean" by trying the classifier,
// then pattern reconstruction, then the nearest stored example. It
// never returns an error: an unanswerable query yields an unmatched
// resolution with a reason.
func (r *Resolver) Resolve(ctx context.Context, audio *pcm.Buffer) Resolution {
	if audio == nil || audio.Len() == 0 {
		return Resolution{Reason: "empty audio"}
	}
	units, emb, err := r.analyze(ctx, audio)
	if err != nil {
		r.cfg.Logger.Warn("resolve: embedding unavailable", "error", err)
		emb = nil
	}

	if emb != nil {
		res := r.cls.Classify(emb, units.String())
		if res.Meaning != "" && !res.NeedsConfirmation {
			return Resolution{
				Matched:    true,
				Meaning:    res.Meaning,
				Confidence: res.Confidence,
				Tier:       TierClassifier,
				Units:      units.String(),
			}
		}
	}

	if match := r.matcher.MatchPatterns(ctx, audio, r.coll); match.Matched {
		return Resolution{
			Matched:           true,
			Meaning:           match.Translation,
			Confidence:        match.Confidence,
			Tier:              TierPattern,
			NeedsConfirmation: match.Confidence < 0.5,
			Units:             units.String(),
		}
	}

	if match := r.matcher.Fallback(ctx, audio, r.exampleEmbeddings()); match.Matched {
		return Resolution{
			Matched:           true,
			Meaning:           match.Translation,
			Confidence:        match.Confidence,
			Tier:              TierFallback,
			NeedsConfirmation: true,
			Units:             units.String(),
		}
	}
	return Resolution{
		Units:  units.String(),
		Reason: "no tier produced a confident answer",
	}
}

// Confirm records a caregiver confirming (or correcting) a resolved
// meaning for the given audio, reinforcing the classifier.
func (r *Resolver) Confirm(ctx context.Context, meaning string, audio *pcm.Buffer) error {
	if meaning == "" {
		return fmt.Errorf("lookup: empty meaning")
	}
	units, emb, err := r.analyze(ctx, audio)
	if err != nil {
		return fmt.Errorf("lookup: analyze confirmation: %w", err)
	}
	r.cls.Update(meaning, emb, units.String())

	r.mu.Lock()
	for _, h := range r.examples {
		if h.ex.Explanation == meaning {
			h.ex.Verified = true
		}
	}
	r.mu.Unlock()
	return nil
}

// Examples returns copies of the stored examples, oldest first.
func (r *Resolver) Examples() []*Example {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Example, len(r.examples))
	for i, h := range r.examples {
		out[i] = h.ex.clone()
	}
	return out
}

// RestoreExamples replaces the example set, for startup from
// persisted state. Audio is not held for restored examples.
func (r *Resolver) RestoreExamples(examples []*Example) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.examples = r.examples[:0]
	for _, ex := range examples {
		r.examples = append(r.examples, held{ex: ex.clone()})
	}
}

func (r *Resolver) exampleEmbeddings() []pattern.ExampleEmbedding {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]pattern.ExampleEmbedding, 0, len(r.examples))
	for _, h := range r.examples {
		out = append(out, h.ex.PatternEmbedding())
	}
	return out
}

// RunDiscovery executes one pattern discovery pass over the examples
// whose audio is still held: a full pass when the collection is
// empty, otherwise an incremental pass over examples newer than the
// last run. It returns the number of patterns added.
func (r *Resolver) RunDiscovery(ctx context.Context) (int, error) {
	r.mu.Lock()
	since := r.coll.LastDiscovery()
	full := r.coll.Len() == 0
	var utts []pattern.Utterance
	for _, h := range r.examples {
		if h.audio == nil {
			continue
		}
		if !full && !h.ex.CreatedAt.After(since) {
			continue
		}
		utts = append(utts, pattern.Utterance{
			ID:          h.ex.ID,
			Explanation: h.ex.Explanation,
			Audio:       h.audio,
		})
	}
	r.mu.Unlock()

	if len(utts) == 0 {
		return 0, nil
	}
	if full {
		return r.miner.Discover(ctx, utts, r.coll)
	}
	return r.miner.Update(ctx, utts, r.coll)
}
