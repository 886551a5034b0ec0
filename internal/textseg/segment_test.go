package textseg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Segment
	}{
		{
			name: "header levels",
			text: "# Title\n### Sub",
			want: []Segment{
				{Type: SegmentHeader, Content: "Title", Level: 1},
				{Type: SegmentHeader, Content: "Sub", Level: 3},
			},
		},
		{
			name: "bullets with nesting",
			text: "- top\n  - nested\n    * deep",
			want: []Segment{
				{Type: SegmentBullet, Content: "top", Level: 0},
				{Type: SegmentBullet, Content: "nested", Level: 1},
				{Type: SegmentBullet, Content: "deep", Level: 2},
			},
		},
		{
			name: "blockquote",
			text: "> quoted text",
			want: []Segment{
				{Type: SegmentBlockquote, Content: "quoted text"},
			},
		},
		{
			name: "prose paragraph merges lines",
			text: "first line\nsecond line\n\nnew paragraph",
			want: []Segment{
				{Type: SegmentProse, Content: "first line second line"},
				{Type: SegmentProse, Content: "new paragraph"},
			},
		},
		{
			name: "fenced code becomes single segment",
			text: "before\n```go\nfunc main() {}\n// [D] not a marker\n```\nafter",
			want: []Segment{
				{Type: SegmentProse, Content: "before"},
				{Type: SegmentCode, Content: "func main() {}\n// [D] not a marker"},
				{Type: SegmentProse, Content: "after"},
			},
		},
		{
			name: "unterminated fence keeps content as code",
			text: "```\ndangling",
			want: []Segment{
				{Type: SegmentCode, Content: "dangling"},
			},
		},
		{
			name: "empty input",
			text: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.text)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTildeFence(t *testing.T) {
	got := Parse("~~~\ncode here\n~~~")
	require.Len(t, got, 1)
	assert.Equal(t, SegmentCode, got[0].Type)
	assert.Equal(t, "code here", got[0].Content)
}
