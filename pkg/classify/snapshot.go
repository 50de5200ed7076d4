package classify

import (
	"fmt"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
)

// Snapshot is the serializable per-meaning state of a Classifier.
type Snapshot struct {
	Centroids []Centroid `json:"centroids" msgpack:"centroids"`
}

// Snapshot captures all centroids, ordered by meaning.
func (c *Classifier) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{Centroids: make([]Centroid, 0, len(c.centroids))}
	for _, cent := range c.centroids {
		cp := *cent
		cp.Vector = append([]float32(nil), cent.Vector...)
		cp.Exemplars = append([]string(nil), cent.Exemplars...)
		s.Centroids = append(s.Centroids, cp)
	}
	sort.Slice(s.Centroids, func(i, j int) bool {
		return s.Centroids[i].Meaning < s.Centroids[j].Meaning
	})
	return s
}

// Restore replaces all centroids with the snapshot's.
func (c *Classifier) Restore(s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.centroids = make(map[string]*Centroid, len(s.Centroids))
	for _, cent := range s.Centroids {
		cp := cent
		cp.Vector = append([]float32(nil), cent.Vector...)
		cp.Exemplars = append([]string(nil), cent.Exemplars...)
		c.centroids[cp.Meaning] = &cp
	}
}

// EncodeSnapshot serializes a snapshot with msgpack.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	return msgpack.Marshal(s)
}

// DecodeSnapshot deserializes a snapshot produced by EncodeSnapshot.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("classify: decode snapshot: %w", err)
	}
	return s, nil
}
