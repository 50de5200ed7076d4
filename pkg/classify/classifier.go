// Package classify implements the nearest-centroid meaning classifier.
//
// Each known meaning keeps one unit-norm centroid in embedding space
// plus a bounded list of phonetic exemplar strings. Classification
// fuses cosine similarity to the centroid with the best token-level
// phonetic similarity across exemplars, then applies a temperature
// softmax to calibrate a per-meaning probability. Caregiver
// confirmations reinforce a meaning's centroid by an exponential
// moving average whose rate decays with how often that meaning has
// been reinforced.
package classify

import (
	"math"
	"sort"
	"sync"

	"github.com/haivivi/vocab/pkg/phonetic"
	"github.com/haivivi/vocab/pkg/vec"
)

// Config controls fusion, calibration, and update behavior.
type Config struct {
	// EmbeddingWeight and PhoneticWeight set the score fusion. They
	// default to 0.6 and 0.4.
	EmbeddingWeight float64
	PhoneticWeight  float64

	// Temperature scales the softmax. Larger values soften the
	// distribution. Default 0.5.
	Temperature float64

	// MinConfidence and MinMargin set the thresholds below which a
	// decision needs caregiver confirmation. Defaults 0.5 and 0.1.
	MinConfidence float64
	MinMargin     float64

	// MaxExemplars bounds the phonetic exemplar list per meaning;
	// the oldest exemplar is dropped beyond the cap. Default 10.
	MaxExemplars int

	// BaseRate is the initial centroid EMA learning rate. Default 0.3.
	BaseRate float64
}

func (c *Config) defaults() {
	if c.EmbeddingWeight == 0 && c.PhoneticWeight == 0 {
		c.EmbeddingWeight = 0.6
		c.PhoneticWeight = 0.4
	}
	if c.Temperature == 0 {
		c.Temperature = 0.5
	}
	if c.MinConfidence == 0 {
		c.MinConfidence = 0.5
	}
	if c.MinMargin == 0 {
		c.MinMargin = 0.1
	}
	if c.MaxExemplars == 0 {
		c.MaxExemplars = 10
	}
	if c.BaseRate == 0 {
		c.BaseRate = 0.3
	}
}

// Centroid is the per-meaning state.
type Centroid struct {
	// Meaning is the caregiver-defined label.
	Meaning string `json:"meaning" msgpack:"meaning"`

	// Vector is the unit-norm embedding centroid.
	Vector []float32 `json:"vector" msgpack:"vector"`

	// Exemplars are recent phonetic unit strings for this meaning,
	// newest last, bounded by MaxExemplars.
	Exemplars []string `json:"exemplars,omitempty" msgpack:"exemplars,omitempty"`

	// Updates counts how many times this meaning was reinforced.
	Updates int `json:"updates" msgpack:"updates"`
}

// Alternative is a runner-up classification candidate.
type Alternative struct {
	Meaning     string  `json:"meaning"`
	Probability float64 `json:"probability"`
}

// Result is a classification decision.
type Result struct {
	// Meaning is the top meaning, or "" when the classifier has no
	// information (no known meanings, or unusable input).
	Meaning string `json:"meaning"`

	// Confidence is the top meaning's calibrated probability.
	Confidence float64 `json:"confidence"`

	// Margin is the probability gap between the top two meanings.
	Margin float64 `json:"margin"`

	// NeedsConfirmation is set when confidence or margin falls below
	// the configured minimums, or when there is no information.
	NeedsConfirmation bool `json:"needs_confirmation"`

	// Alternatives lists up to two runner-up meanings.
	Alternatives []Alternative `json:"alternatives,omitempty"`
}

// Classifier holds all per-meaning state. Safe for concurrent use;
// classification and updates serialize behind one mutex.
type Classifier struct {
	mu        sync.Mutex
	cfg       Config
	centroids map[string]*Centroid
}

// New creates an empty Classifier.
func New(cfg Config) *Classifier {
	cfg.defaults()
	return &Classifier{
		cfg:       cfg,
		centroids: make(map[string]*Centroid),
	}
}

// Classify scores (embedding, optional unit string) against every
// known meaning. With no known meanings or a degenerate embedding it
// returns a no-information result, never an error.
func (c *Classifier) Classify(emb []float32, unitString string) Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.centroids) == 0 || vec.IsDegenerate(emb) {
		return Result{NeedsConfirmation: true}
	}
	x := vec.Normalized(emb)

	scores := make([]scored, 0, len(c.centroids))
	for meaning, cent := range c.centroids {
		embSim := float64(vec.Cosine(x, cent.Vector))

		fused := embSim
		if unitString != "" {
			// A meaning with no exemplars contributes zero phonetic
			// evidence; every meaning is scored on the same scale.
			phonSim := 0.0
			for _, ex := range cent.Exemplars {
				if s := phonetic.Similarity(unitString, ex); s > phonSim {
					phonSim = s
				}
			}
			fused = c.cfg.EmbeddingWeight*embSim + c.cfg.PhoneticWeight*phonSim
		}
		scores = append(scores, scored{meaning, fused})
	}

	// Deterministic order: descending score, lexical tie-break.
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].fused != scores[j].fused {
			return scores[i].fused > scores[j].fused
		}
		return scores[i].meaning < scores[j].meaning
	})

	probs := softmax(scores, c.cfg.Temperature)

	res := Result{
		Meaning:    scores[0].meaning,
		Confidence: probs[0],
	}
	if len(probs) > 1 {
		res.Margin = probs[0] - probs[1]
	} else {
		res.Margin = probs[0]
	}
	res.NeedsConfirmation = res.Confidence < c.cfg.MinConfidence || res.Margin < c.cfg.MinMargin

	for i := 1; i < len(scores) && i <= 2; i++ {
		res.Alternatives = append(res.Alternatives, Alternative{
			Meaning:     scores[i].meaning,
			Probability: probs[i],
		})
	}
	return res
}

// Update reinforces (or creates) a meaning's centroid from a confirmed
// example. Degenerate embeddings only append the phonetic exemplar.
func (c *Classifier) Update(meaning string, emb []float32, unitString string) {
	if meaning == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	cent, ok := c.centroids[meaning]
	if !ok {
		cent = &Centroid{Meaning: meaning}
		c.centroids[meaning] = cent
	}

	if !vec.IsDegenerate(emb) {
		x := vec.Normalized(emb)
		if cent.Vector == nil {
			cent.Vector = x
		} else {
			// Learning rate decays with reinforcement count.
			lr := float32(c.cfg.BaseRate / (1 + float64(cent.Updates)*0.5))
			for d := range cent.Vector {
				cent.Vector[d] = (1-lr)*cent.Vector[d] + lr*x[d]
			}
			vec.Normalize(cent.Vector)
		}
		cent.Updates++
	}

	if unitString != "" {
		cent.Exemplars = append(cent.Exemplars, unitString)
		if len(cent.Exemplars) > c.cfg.MaxExemplars {
			cent.Exemplars = cent.Exemplars[len(cent.Exemplars)-c.cfg.MaxExemplars:]
		}
	}
}

// Meanings returns the known meanings in lexical order.
func (c *Classifier) Meanings() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.centroids))
	for m := range c.centroids {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Reset forgets all meanings.
func (c *Classifier) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.centroids = make(map[string]*Centroid)
}

type scored struct {
	meaning string
	fused   float64
}

// softmax converts fused scores to probabilities at temperature T,
// subtracting the max score for numerical stability.
func softmax(scores []scored, temperature float64) []float64 {
	maxScore := scores[0].fused
	for _, s := range scores[1:] {
		if s.fused > maxScore {
			maxScore = s.fused
		}
	}
	probs := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		probs[i] = math.Exp((s.fused - maxScore) / temperature)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}
