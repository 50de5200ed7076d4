package codebook

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Snapshot is the serializable state of a Quantizer.
type Snapshot struct {
	K         int         `json:"k" msgpack:"k"`
	Dim       int         `json:"dim" msgpack:"dim"`
	Centroids [][]float32 `json:"centroids" msgpack:"centroids"`
	Counts    []uint64    `json:"counts" msgpack:"counts"`
	Total     uint64      `json:"total" msgpack:"total"`
}

// Snapshot captures the current codebook state.
func (q *Quantizer) Snapshot() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := Snapshot{
		K:         q.cfg.K,
		Dim:       q.cfg.Dim,
		Centroids: make([][]float32, len(q.centroids)),
		Counts:    make([]uint64, len(q.counts)),
		Total:     q.total,
	}
	for i, c := range q.centroids {
		cp := make([]float32, len(c))
		copy(cp, c)
		s.Centroids[i] = cp
	}
	copy(s.Counts, q.counts)
	return s
}

// Restore replaces the codebook state with a previously captured
// snapshot. The snapshot's K and Dim must match the configuration.
func (q *Quantizer) Restore(s Snapshot) error {
	if s.K != q.cfg.K || s.Dim != q.cfg.Dim {
		return fmt.Errorf("codebook: snapshot shape %dx%d does not match config %dx%d",
			s.K, s.Dim, q.cfg.K, q.cfg.Dim)
	}
	if len(s.Centroids) != s.K || len(s.Counts) != s.K {
		return fmt.Errorf("codebook: malformed snapshot")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, c := range s.Centroids {
		cp := make([]float32, len(c))
		copy(cp, c)
		q.centroids[i] = cp
	}
	copy(q.counts, s.Counts)
	q.total = s.Total
	return nil
}

// EncodeSnapshot serializes a snapshot with msgpack.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	return msgpack.Marshal(s)
}

// DecodeSnapshot deserializes a snapshot produced by EncodeSnapshot.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("codebook: decode snapshot: %w", err)
	}
	return s, nil
}
