// Package lookup is the top of the pipeline: it owns the training
// example set and answers "what does this vocalization mean" by
// trying, in order, the phonetic classifier, pattern reconstruction,
// and whole-utterance nearest-neighbor search. Pattern discovery runs
// in the background behind a debouncer so bursts of new examples
// trigger one pass, not one per example.
package lookup

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/vocab/pkg/pattern"
	"github.com/haivivi/vocab/pkg/phonetic"
)

// Example is one caregiver-labeled training example.
type Example struct {
	// ID uniquely identifies the example.
	ID string `json:"id" msgpack:"id"`

	// AudioRef locates the stored recording (blob key or file path).
	AudioRef string `json:"audio_ref,omitempty" msgpack:"audio_ref,omitempty"`

	// Explanation is the caregiver's meaning for the vocalization.
	Explanation string `json:"explanation" msgpack:"explanation"`

	// Verified is set once a caregiver confirms a resolution that
	// used this example's meaning.
	Verified bool `json:"verified" msgpack:"verified"`

	// Embedding is the cached whole-utterance embedding.
	Embedding []float32 `json:"embedding,omitempty" msgpack:"embedding,omitempty"`

	// Units is the cached phonetic transcription.
	Units []int `json:"units,omitempty" msgpack:"units,omitempty"`

	CreatedAt time.Time `json:"created_at" msgpack:"created_at"`
}

// Transcription returns the cached phonetic transcription.
func (e *Example) Transcription() phonetic.Transcription {
	return phonetic.Transcription{Units: e.Units}
}

// PatternEmbedding adapts the example for the fallback matcher.
func (e *Example) PatternEmbedding() pattern.ExampleEmbedding {
	return pattern.ExampleEmbedding{
		ID:          e.ID,
		Explanation: e.Explanation,
		Embedding:   e.Embedding,
	}
}

func (e *Example) clone() *Example {
	cp := *e
	cp.Embedding = append([]float32(nil), e.Embedding...)
	cp.Units = append([]int(nil), e.Units...)
	return &cp
}

// EncodeExample serializes an example with msgpack.
func EncodeExample(e *Example) ([]byte, error) {
	return msgpack.Marshal(e)
}

// DecodeExample deserializes a msgpack example.
func DecodeExample(data []byte) (*Example, error) {
	var e Example
	if err := msgpack.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("lookup: decode example: %w", err)
	}
	return &e, nil
}
