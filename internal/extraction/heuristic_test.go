package extraction

import (
	"testing"

	"github.com/fyrsmithlabs/recalld/internal/knowledge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidatesOfType(cands []Candidate, typ knowledge.Type) []Candidate {
	var out []Candidate
	for _, c := range cands {
		if c.Type == typ {
			out = append(out, c)
		}
	}
	return out
}

func TestHeuristicDecisionTrigger(t *testing.T) {
	input := "After some back and forth we decided to use SQLite for local persistence. It keeps the deploy story simple."

	got := NewHeuristicExtractor(nil).Extract(input)
	decisions := candidatesOfType(got, knowledge.TypeDecision)
	require.Len(t, decisions, 1)
	assert.Equal(t, "After some back and forth we decided to use SQLite for local persistence.", decisions[0].Text)
	assert.False(t, decisions[0].FromMarker)
}

func TestHeuristicDecisionRationaleFollowup(t *testing.T) {
	input := "We settled on chromem for the default vector index. Because it needs no external service, setup stays a one-liner."

	got := NewHeuristicExtractor(nil).Extract(input)
	decisions := candidatesOfType(got, knowledge.TypeDecision)
	require.Len(t, decisions, 1)
	assert.Contains(t, decisions[0].Rationale, "no external service")
}

func TestHeuristicPatternUsageFollowup(t *testing.T) {
	input := "By convention every handler returns a typed error wrapper. Since middleware unwraps them, status codes stay consistent."

	got := NewHeuristicExtractor(nil).Extract(input)
	patterns := candidatesOfType(got, knowledge.TypePattern)
	require.Len(t, patterns, 1)
	assert.Contains(t, patterns[0].Usage, "middleware unwraps them")
}

func TestHeuristicTaskAndInsightTriggers(t *testing.T) {
	input := "We still need to wire the retry budget into the fetch loop.\n\nTurns out the connection pool was capped at four all along."

	got := NewHeuristicExtractor(nil).Extract(input)
	assert.Len(t, candidatesOfType(got, knowledge.TypeTask), 1)

	insights := candidatesOfType(got, knowledge.TypeInsight)
	require.Len(t, insights, 1)
	assert.Contains(t, insights[0].Text, "connection pool was capped")
}

func TestHeuristicSkipsCodeAndHeaders(t *testing.T) {
	input := "# We decided to refactor everything\n\n```\nwe decided to use goto statements here\n```"
	assert.Empty(t, NewHeuristicExtractor(nil).Extract(input))
}

func TestHeuristicLengthWindow(t *testing.T) {
	// Below the decision minimum of 20 characters.
	assert.Empty(t, NewHeuristicExtractor(nil).Extract("We chose to go."))
}

func TestHeuristicDedupAcrossTriggers(t *testing.T) {
	// Two decision triggers inside the same sentence yield one candidate.
	input := "We decided to simplify, so we settled on a flat package layout for the daemon."

	got := NewHeuristicExtractor(nil).Extract(input)
	assert.Len(t, candidatesOfType(got, knowledge.TypeDecision), 1)
}

func TestHeuristicBulletSegments(t *testing.T) {
	input := "- we opted for koanf over a hand-rolled config loader\n- unrelated housekeeping note"

	got := NewHeuristicExtractor(nil).Extract(input)
	decisions := candidatesOfType(got, knowledge.TypeDecision)
	require.Len(t, decisions, 1)
	assert.Contains(t, decisions[0].Text, "opted for koanf")
}

func TestExtractorPrefersMarkersOverTriggers(t *testing.T) {
	// With a marker present, heuristic triggers in the same text are ignored.
	input := "[D] storage: Use SQLite for persistence\n\nWe decided to keep everything in one file."

	got := NewExtractor(nil).Extract(input)
	require.Len(t, got, 1)
	assert.True(t, got[0].FromMarker)
	assert.Equal(t, "Use SQLite for persistence", got[0].Text)
}

func TestExtractorHeuristicFallback(t *testing.T) {
	input := "We decided to adopt structured logging across every internal package."

	got := NewExtractor(nil).Extract(input)
	require.Len(t, got, 1)
	assert.False(t, got[0].FromMarker)
	assert.Equal(t, knowledge.TypeDecision, got[0].Type)
}
