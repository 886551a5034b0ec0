package extraction

import (
	"strings"
	"testing"

	"github.com/fyrsmithlabs/recalld/internal/knowledge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkerSingleLineBoundary(t *testing.T) {
	input := "[D] database: Use SQLite\n\n[P] naming: kebab-case files"

	got := NewMarkerExtractor(nil).Extract(input)
	require.Len(t, got, 2)

	assert.Equal(t, knowledge.TypeDecision, got[0].Type)
	assert.Equal(t, "database", got[0].Label)
	assert.Equal(t, "Use SQLite", got[0].Text)
	assert.True(t, got[0].FromMarker)

	assert.Equal(t, knowledge.TypePattern, got[1].Type)
	assert.Equal(t, "naming", got[1].Label)
	assert.Equal(t, "kebab-case files", got[1].Text)
}

func TestMarkerMultiLineBlockTermination(t *testing.T) {
	input := strings.Join([]string{
		"[T] Migrate the config loader",
		"- switch env prefix",
		"- keep yaml precedence",
		"",
		"this line is after the block and ignored",
	}, "\n")

	got := NewMarkerExtractor(nil).Extract(input)
	require.Len(t, got, 1)
	assert.Equal(t, knowledge.TypeTask, got[0].Type)
	assert.Equal(t, "Migrate the config loader - switch env prefix - keep yaml precedence", got[0].Text)
}

func TestMarkerBlockClosedByNextMarker(t *testing.T) {
	input := "[I] the cache saturates at 10k entries\n[T] raise the cache limit setting"

	got := NewMarkerExtractor(nil).Extract(input)
	require.Len(t, got, 2)
	assert.Equal(t, knowledge.TypeInsight, got[0].Type)
	assert.Equal(t, knowledge.TypeTask, got[1].Type)
	// No cross-contamination between blocks.
	assert.NotContains(t, got[0].Text, "raise the cache")
}

func TestMarkerLegacyLongForms(t *testing.T) {
	input := "[DECISION] api: version every endpoint\n\n[INSIGHT] latency doubles past 3 joins"

	got := NewMarkerExtractor(nil).Extract(input)
	require.Len(t, got, 2)
	assert.Equal(t, knowledge.TypeDecision, got[0].Type)
	assert.Equal(t, "api", got[0].Label)
	assert.Equal(t, knowledge.TypeInsight, got[1].Type)
}

func TestMarkerTaskColonNotTreatedAsLabel(t *testing.T) {
	// Tasks and insights take no label; the colon stays in the text.
	input := "[T] fix: the broken retry loop in the fetcher"

	got := NewMarkerExtractor(nil).Extract(input)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Label)
	assert.Equal(t, "fix: the broken retry loop in the fetcher", got[0].Text)
}

func TestMarkerSingleLineDecisionPatternRequireLabel(t *testing.T) {
	// Without a "label:" prefix there is no topic or name to merge on.
	for _, input := range []string{
		"[D] use sqlite for local persistence",
		"[P] handlers return typed error wrappers",
	} {
		assert.Empty(t, NewMarkerExtractor(nil).Extract(input), "input %q", input)
	}

	// Multi-line blocks may omit the label; the classifier derives one.
	multi := "[D]\nuse sqlite for local persistence\nkeep it in one file"
	got := NewMarkerExtractor(nil).Extract(multi)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Label)

	// Tasks and insights never need one.
	got = NewMarkerExtractor(nil).Extract("[T] add equivalence tests for both backends")
	assert.Len(t, got, 1)
}

func TestMarkerTooShortRejected(t *testing.T) {
	got := NewMarkerExtractor(nil).Extract("[D] db: tiny")
	assert.Empty(t, got)
}

func TestMarkerTooLongRejected(t *testing.T) {
	long := "[I] " + strings.Repeat("x", 600)
	got := NewMarkerExtractor(nil).Extract(long)
	assert.Empty(t, got)

	// The same length is fine for a multi-line block (window 10-2000).
	multi := "[I] " + strings.Repeat("x", 300) + "\n" + strings.Repeat("y", 300)
	got = NewMarkerExtractor(nil).Extract(multi)
	assert.Len(t, got, 1)
}

func TestMarkerMetaDocumentationRejected(t *testing.T) {
	inputs := []string{
		"[D] markers: the marker was added to flag decisions explicitly",
		"[I] no new [DECISION] entries were found in this session",
		"[P] docs: example: how to annotate your conversation text",
	}
	for _, input := range inputs {
		assert.Empty(t, NewMarkerExtractor(nil).Extract(input), "input %q", input)
	}
}

func TestMarkerInsideFencedCodeIgnored(t *testing.T) {
	input := "```\n[D] database: Use SQLite\n```"
	assert.Empty(t, NewMarkerExtractor(nil).Extract(input))
	assert.False(t, HasMarkers(input))
}

func TestMarkerDedupWithinPass(t *testing.T) {
	input := "[I] the scheduler starves long jobs under load\n\n[I] the scheduler  starves long jobs under load"
	got := NewMarkerExtractor(nil).Extract(input)
	assert.Len(t, got, 1)
}

func TestMarkerExtractionIdempotent(t *testing.T) {
	input := "[D] database: Use SQLite for local persistence\n\n[T] add equivalence tests for both backends"

	first := NewMarkerExtractor(nil).Extract(input)
	second := NewMarkerExtractor(nil).Extract(input)
	assert.Equal(t, first, second)
}

func TestHasMarkers(t *testing.T) {
	assert.True(t, HasMarkers("[D] db: use sqlite everywhere"))
	assert.True(t, HasMarkers("prose first\n[T] then a task marker"))
	assert.False(t, HasMarkers("we decided to use sqlite"))
}
