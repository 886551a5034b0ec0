// Package textseg provides structural segmentation of free-form text and
// sentence boundary detection that survives abbreviations, version numbers,
// code references and URLs.
package textseg

import (
	"regexp"
	"strings"
)

// SegmentType classifies a structural segment.
type SegmentType string

const (
	SegmentProse      SegmentType = "prose"
	SegmentHeader     SegmentType = "header"
	SegmentBullet     SegmentType = "bullet"
	SegmentCode       SegmentType = "code"
	SegmentBlockquote SegmentType = "blockquote"
)

// Segment is one structural unit of a text block.
type Segment struct {
	Type    SegmentType `json:"type"`
	Content string      `json:"content"`

	// Level is the header level (1-6) or bullet nesting depth.
	Level int `json:"level,omitempty"`
}

var (
	fenceRe  = regexp.MustCompile("^\\s*(```|~~~)")
	headerRe = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	bulletRe = regexp.MustCompile(`^(\s*)[-*+]\s+(.+)$`)
)

// Parse splits raw text into ordered structural segments.
//
// A fenced-code delimiter toggles code mode; everything inside a fence
// becomes a single code segment and is never seen by extraction.
// Consecutive prose lines merge into one paragraph segment so sentence
// extraction can operate across soft line breaks.
func Parse(text string) []Segment {
	var segments []Segment

	var code []string
	inCode := false

	var prose []string
	flushProse := func() {
		if len(prose) > 0 {
			segments = append(segments, Segment{Type: SegmentProse, Content: strings.Join(prose, " ")})
			prose = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if fenceRe.MatchString(line) {
			if inCode {
				segments = append(segments, Segment{Type: SegmentCode, Content: strings.Join(code, "\n")})
				code = nil
				inCode = false
			} else {
				flushProse()
				inCode = true
			}
			continue
		}

		if inCode {
			code = append(code, line)
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flushProse()
			continue
		}

		if m := headerRe.FindStringSubmatch(line); m != nil {
			flushProse()
			segments = append(segments, Segment{
				Type:    SegmentHeader,
				Content: strings.TrimSpace(m[2]),
				Level:   len(m[1]),
			})
			continue
		}

		if m := bulletRe.FindStringSubmatch(line); m != nil {
			flushProse()
			segments = append(segments, Segment{
				Type:    SegmentBullet,
				Content: strings.TrimSpace(m[2]),
				Level:   len(m[1]) / 2,
			})
			continue
		}

		if strings.HasPrefix(trimmed, ">") {
			flushProse()
			segments = append(segments, Segment{
				Type:    SegmentBlockquote,
				Content: strings.TrimSpace(strings.TrimPrefix(trimmed, ">")),
			})
			continue
		}

		prose = append(prose, trimmed)
	}

	// Unterminated fence: keep the accumulated lines as code rather than
	// losing them.
	if inCode && len(code) > 0 {
		segments = append(segments, Segment{Type: SegmentCode, Content: strings.Join(code, "\n")})
	}
	flushProse()

	return segments
}
