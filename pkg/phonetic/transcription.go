// Package phonetic turns audio into compact unit-ID strings: the
// transcriber runs voice activity detection, embeds each frame,
// quantizes frames against the personal codebook, and run-collapses
// the resulting unit sequence. It also provides token-level edit
// distance over unit strings.
package phonetic

import (
	"strconv"
	"strings"
)

// Transcription is a run-collapsed sequence of phonetic unit IDs.
type Transcription struct {
	// Units holds the collapsed unit IDs in temporal order. No two
	// adjacent entries are equal.
	Units []int `json:"units" msgpack:"units"`
}

// IsEmpty reports whether no units were transcribed.
func (t Transcription) IsEmpty() bool { return len(t.Units) == 0 }

// String renders the canonical space-separated unit string, e.g.
// "U12 U7 U3". Empty transcriptions render as "".
func (t Transcription) String() string {
	if len(t.Units) == 0 {
		return ""
	}
	var b strings.Builder
	for i, u := range t.Units {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte('U')
		b.WriteString(strconv.Itoa(u))
	}
	return b.String()
}

// Spell renders a human-readable form using the given symbol table,
// indexing symbols by unit ID modulo the table size. An empty table
// falls back to String().
func (t Transcription) Spell(symbols []string) string {
	if len(symbols) == 0 {
		return t.String()
	}
	var b strings.Builder
	for i, u := range t.Units {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(symbols[u%len(symbols)])
	}
	return b.String()
}

// Collapse removes consecutive duplicate IDs (run-length reduction,
// analogous to CTC collapsing).
func Collapse(units []int) []int {
	if len(units) == 0 {
		return nil
	}
	out := make([]int, 0, len(units))
	out = append(out, units[0])
	for _, u := range units[1:] {
		if u != out[len(out)-1] {
			out = append(out, u)
		}
	}
	return out
}
