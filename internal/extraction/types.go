// Package extraction turns free-form conversational text into knowledge
// candidates. Two paths produce candidates: explicit bracketed markers
// ([D], [P], [T], [I] and their legacy long forms) and, when no markers are
// present, heuristic trigger phrases. Candidates are transient; the quality
// scorer consumes and discards them.
package extraction

import (
	"github.com/fyrsmithlabs/recalld/internal/knowledge"
)

// Candidate is a potential knowledge record found in text. Never persisted.
type Candidate struct {
	// Type is the knowledge variant this candidate would become.
	Type knowledge.Type `json:"type"`

	// Label is the explicit topic (decisions) or name (patterns) from a
	// marker, when present. Empty for heuristic candidates; the
	// classifier fills it downstream.
	Label string `json:"label,omitempty"`

	// Text is the raw candidate text.
	Text string `json:"text"`

	// Rationale holds a trailing causal snippet for decisions.
	Rationale string `json:"rationale,omitempty"`

	// Usage holds a trailing usage snippet for patterns.
	Usage string `json:"usage,omitempty"`

	// SourceOffset is the byte offset of the candidate's origin in the
	// input text, for diagnostics.
	SourceOffset int `json:"source_offset"`

	// FromMarker is true for explicitly marked candidates. Marked
	// candidates bypass similarity scoring but still honor the absolute
	// length windows.
	FromMarker bool `json:"from_marker"`
}

// lengthWindow bounds accepted candidate lengths.
type lengthWindow struct {
	min, max int
}

func (w lengthWindow) contains(n int) bool {
	return n >= w.min && n <= w.max
}

// Marker length windows are absolute; heuristic windows are per-type.
var (
	singleLineWindow = lengthWindow{min: 10, max: 500}
	multiLineWindow  = lengthWindow{min: 10, max: 2000}

	heuristicWindows = map[knowledge.Type]lengthWindow{
		knowledge.TypeDecision: {min: 20, max: 500},
		knowledge.TypePattern:  {min: 20, max: 500},
		knowledge.TypeTask:     {min: 10, max: 300},
		knowledge.TypeInsight:  {min: 25, max: 500},
	}
)
