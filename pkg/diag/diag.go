// Package diag collects live pipeline telemetry and serves it to a
// browser dashboard over WebSocket. The collector is written from the
// hot path (frame analysis, resolutions, state changes) and read by
// the monitor, so it holds plain values behind one mutex and never
// blocks.
package diag

import (
	"sync"
	"time"
)

// Snapshot is one point-in-time view of the pipeline.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`

	// Front-end signal measurements from the last analyzed frame.
	EnergyDB float64 `json:"energy_db"`
	Flux     float64 `json:"flux"`

	// Learner state sizes.
	ActiveClusters int    `json:"active_clusters"`
	CodebookTotal  uint64 `json:"codebook_total"`
	Meanings       int    `json:"meanings"`
	Patterns       int    `json:"patterns"`
	Examples       int    `json:"examples"`

	// Last resolution.
	LastMeaning    string  `json:"last_meaning,omitempty"`
	LastConfidence float64 `json:"last_confidence,omitempty"`
	LastTier       string  `json:"last_tier,omitempty"`
	LastUnits      string  `json:"last_units,omitempty"`
}

// Collector accumulates telemetry. Safe for concurrent use.
type Collector struct {
	mu   sync.Mutex
	snap Snapshot
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// ObserveFrame records the front end's last frame measurements.
func (c *Collector) ObserveFrame(energyDB, flux float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.EnergyDB = energyDB
	c.snap.Flux = flux
}

// ObserveResolution records the outcome of a resolve request.
func (c *Collector) ObserveResolution(meaning, tier, units string, confidence float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.LastMeaning = meaning
	c.snap.LastTier = tier
	c.snap.LastUnits = units
	c.snap.LastConfidence = confidence
}

// ObserveState records the learner's state sizes.
func (c *Collector) ObserveState(activeClusters int, codebookTotal uint64, meanings, patterns, examples int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.ActiveClusters = activeClusters
	c.snap.CodebookTotal = codebookTotal
	c.snap.Meanings = meanings
	c.snap.Patterns = patterns
	c.snap.Examples = examples
}

// Snapshot returns the current view, stamped with the current time.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.snap
	s.Timestamp = time.Now()
	return s
}
