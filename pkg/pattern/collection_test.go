package pattern

import (
	"fmt"
	"testing"
	"time"
)

func testPattern(id string, conf float32, freq int, meanings map[string]int) *Pattern {
	now := time.Now()
	p := &Pattern{
		ID:         id,
		Embedding:  denseOneHot(1),
		Frequency:  freq,
		Confidence: conf,
		Cohesion:   0.9,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for m, n := range meanings {
		p.addMeaning(m, n)
	}
	return p
}

func TestCollectionSnapshotRoundTrip(t *testing.T) {
	c := NewCollection()
	c.Upsert(testPattern("a", 0.8, 4, map[string]int{"water": 3, "milk": 1}))
	c.Upsert(testPattern("b", 0.5, 2, map[string]int{"more": 2}))

	data, err := EncodeSnapshot(c.Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	snap, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatal(err)
	}
	restored := NewCollection()
	if err := restored.Restore(snap); err != nil {
		t.Fatal(err)
	}
	if restored.Len() != 2 {
		t.Fatalf("restored %d patterns, want 2", restored.Len())
	}
	p, ok := restored.Get("a")
	if !ok {
		t.Fatal("pattern a missing after restore")
	}
	if p.MeaningCounts["water"] != 3 || p.Frequency != 4 {
		t.Errorf("pattern a corrupted: %+v", p)
	}
	meaning, consistency := p.ModalMeaning()
	if meaning != "water" || consistency != 0.75 {
		t.Errorf("modal meaning = %q/%v, want water/0.75", meaning, consistency)
	}
}

func TestPruneRemovesInvalid(t *testing.T) {
	c := NewCollection()
	c.Upsert(testPattern("keep", 0.8, 4, map[string]int{"water": 4}))
	c.Upsert(testPattern("rare", 0.8, 1, map[string]int{"milk": 1}))
	c.Upsert(testPattern("weak", 0.1, 4, map[string]int{"more": 4}))

	removed := c.Prune(DefaultValidator())
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	if _, ok := c.Get("keep"); !ok {
		t.Error("valid pattern pruned")
	}
}

func TestAggressivePruneKeepsTopByConfidence(t *testing.T) {
	c := NewCollection()
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("p%d", i)
		c.Upsert(testPattern(id, 0.9-float32(i)*0.1, 3, map[string]int{"m": 3}))
	}
	removed := c.AggressivePrune(DefaultValidator(), 2)
	if removed != 3 {
		t.Fatalf("removed = %d, want 3", removed)
	}
	if _, ok := c.Get("p0"); !ok {
		t.Error("highest-confidence pattern pruned")
	}
	if _, ok := c.Get("p1"); !ok {
		t.Error("second pattern pruned")
	}
	if c.Len() != 2 {
		t.Errorf("remaining = %d, want 2", c.Len())
	}
}

func TestMergeSegmentBoundsAndReinforces(t *testing.T) {
	c := NewCollection()
	c.Upsert(testPattern("a", 0.4, 2, map[string]int{"water": 2}))
	for i := 0; i < 100; i++ {
		if !c.MergeSegment("a", denseOneHot(1), fmt.Sprintf("s%d", i), "water", 0.1) {
			t.Fatal("merge into existing pattern failed")
		}
	}
	p, _ := c.Get("a")
	if p.Frequency != 102 {
		t.Errorf("frequency = %d, want 102", p.Frequency)
	}
	if p.Confidence <= 0.4 {
		t.Errorf("confidence not reinforced: %v", p.Confidence)
	}
	if len(p.SegmentIDs) > maxSegmentIDs {
		t.Errorf("segment list unbounded: %d", len(p.SegmentIDs))
	}
	if c.MergeSegment("missing", denseOneHot(1), "s", "m", 0) {
		t.Error("merge into missing pattern reported success")
	}
}

func TestValidatorMonotonic(t *testing.T) {
	p := testPattern("a", 0.5, 3, map[string]int{"water": 2, "milk": 1})
	p.Cohesion = 0.7

	base := &Validator{MinFrequency: 2, MinConfidence: 0.3, MinCohesion: 0.6, MinMeaningConsistency: 0.5}
	if !base.IsValid(p) {
		t.Fatal("pattern should be valid under base thresholds")
	}
	relaxed := []*Validator{
		{MinFrequency: 1, MinConfidence: 0.3, MinCohesion: 0.6, MinMeaningConsistency: 0.5},
		{MinFrequency: 2, MinConfidence: 0.1, MinCohesion: 0.6, MinMeaningConsistency: 0.5},
		{MinFrequency: 2, MinConfidence: 0.3, MinCohesion: 0.2, MinMeaningConsistency: 0.5},
		{MinFrequency: 2, MinConfidence: 0.3, MinCohesion: 0.6, MinMeaningConsistency: 0.1},
	}
	for i, v := range relaxed {
		if !v.IsValid(p) {
			t.Errorf("relaxing threshold %d invalidated the pattern", i)
		}
	}
	tightened := []*Validator{
		{MinFrequency: 4, MinConfidence: 0.3, MinCohesion: 0.6, MinMeaningConsistency: 0.5},
		{MinFrequency: 2, MinConfidence: 0.6, MinCohesion: 0.6, MinMeaningConsistency: 0.5},
		{MinFrequency: 2, MinConfidence: 0.3, MinCohesion: 0.8, MinMeaningConsistency: 0.5},
		{MinFrequency: 2, MinConfidence: 0.3, MinCohesion: 0.6, MinMeaningConsistency: 0.9},
	}
	for i, v := range tightened {
		if v.IsValid(p) {
			t.Errorf("tightening threshold %d kept the pattern valid", i)
		}
	}
}
