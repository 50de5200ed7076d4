package pattern

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Collection is the persisted set of discovered patterns. All methods
// are safe for concurrent use.
type Collection struct {
	mu            sync.Mutex
	patterns      map[string]*Pattern
	lastDiscovery time.Time
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{patterns: make(map[string]*Pattern)}
}

// Len returns the number of stored patterns.
func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.patterns)
}

// Get returns a copy of the pattern with the given id.
func (c *Collection) Get(id string) (*Pattern, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.patterns[id]
	if !ok {
		return nil, false
	}
	return p.clone(), true
}

// Upsert inserts or replaces a pattern.
func (c *Collection) Upsert(p *Pattern) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.patterns[p.ID] = p.clone()
}

// Remove deletes a pattern by id.
func (c *Collection) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.patterns, id)
}

// All returns copies of every pattern, sorted by descending
// confidence with lexical id tie-break.
func (c *Collection) All() []*Pattern {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sortedLocked()
}

func (c *Collection) sortedLocked() []*Pattern {
	out := make([]*Pattern, 0, len(c.patterns))
	for _, p := range c.patterns {
		out = append(out, p.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Significant returns copies of patterns clearing the given minimums,
// sorted like [Collection.All].
func (c *Collection) Significant(minConfidence float32, minFrequency int) []*Pattern {
	all := c.All()
	out := all[:0]
	for _, p := range all {
		if p.Significant(minConfidence, minFrequency) {
			out = append(out, p)
		}
	}
	return out
}

// MergeSegment folds one new segment into an existing pattern. It
// reports false when the pattern does not exist.
func (c *Collection) MergeSegment(id string, embedding []float32, segID, meaning string, position float32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.patterns[id]
	if !ok {
		return false
	}
	p.mergeSegment(embedding, segID, meaning, position, time.Now())
	return true
}

// Prune removes every pattern the validator rejects and returns the
// number removed.
func (c *Collection) Prune(v *Validator) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for id, p := range c.patterns {
		if !v.IsValid(p) {
			delete(c.patterns, id)
			removed++
		}
	}
	return removed
}

// AggressivePrune first prunes with the validator, then keeps only
// the keep highest-confidence patterns. It returns the total number
// removed.
func (c *Collection) AggressivePrune(v *Validator, keep int) int {
	removed := c.Prune(v)
	c.mu.Lock()
	defer c.mu.Unlock()
	if keep < 0 || len(c.patterns) <= keep {
		return removed
	}
	ranked := c.sortedLocked()
	for _, p := range ranked[keep:] {
		delete(c.patterns, p.ID)
		removed++
	}
	return removed
}

// LastDiscovery returns the time of the last completed discovery run.
func (c *Collection) LastDiscovery() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastDiscovery
}

func (c *Collection) setLastDiscovery(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastDiscovery = t
}

// apply commits a batch of upserts and merges atomically with respect
// to readers. The miner stages its results and applies them only when
// its context is still live, so a cancelled discovery leaves the
// collection at its last committed state.
func (c *Collection) apply(patch *patch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for _, p := range patch.upserts {
		c.patterns[p.ID] = p.clone()
	}
	for _, m := range patch.merges {
		if p, ok := c.patterns[m.id]; ok {
			p.mergeSegment(m.embedding, m.segID, m.meaning, m.position, now)
		}
	}
	c.lastDiscovery = now
}

// patch is a staged set of collection mutations.
type patch struct {
	upserts []*Pattern
	merges  []stagedMerge
}

type stagedMerge struct {
	id        string
	embedding []float32
	segID     string
	meaning   string
	position  float32
}

// Snapshot is the serialized form of a collection.
type Snapshot struct {
	Patterns      []*Pattern `json:"patterns" msgpack:"patterns"`
	LastDiscovery time.Time  `json:"last_discovery" msgpack:"last_discovery"`
}

// Snapshot captures the collection for persistence. Patterns are
// sorted by id for deterministic output.
func (c *Collection) Snapshot() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Pattern, 0, len(c.patterns))
	for _, p := range c.patterns {
		out = append(out, p.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return &Snapshot{Patterns: out, LastDiscovery: c.lastDiscovery}
}

// Restore replaces the collection's contents from a snapshot.
func (c *Collection) Restore(s *Snapshot) error {
	if s == nil {
		return fmt.Errorf("pattern: nil snapshot")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.patterns = make(map[string]*Pattern, len(s.Patterns))
	for _, p := range s.Patterns {
		if p.ID == "" {
			return fmt.Errorf("pattern: snapshot entry missing id")
		}
		c.patterns[p.ID] = p.clone()
	}
	c.lastDiscovery = s.LastDiscovery
	return nil
}

// EncodeSnapshot serializes a snapshot with msgpack.
func EncodeSnapshot(s *Snapshot) ([]byte, error) {
	return msgpack.Marshal(s)
}

// DecodeSnapshot deserializes a msgpack snapshot.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("pattern: decode snapshot: %w", err)
	}
	return &s, nil
}
