package extraction

import (
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/recalld/internal/knowledge"
	"go.uber.org/zap"
)

// markerLineRe matches a marker line: a bracketed type tag, optionally
// followed by inline text. Short codes and legacy long forms both parse.
var markerLineRe = regexp.MustCompile(`^\[(D|P|T|I|DECISION|PATTERN|TASK|INSIGHT)\]\s*(.*)$`)

// labelRe splits an optional "label:" prefix from marker text. The label
// ends at the first colon followed by whitespace.
var labelRe = regexp.MustCompile(`^([^:\n]{1,80}):\s+(.*)$`)

// metaDenylist rejects candidates that describe the marker system itself,
// which show up when the capture instructions appear in a transcript.
var metaDenylist = []*regexp.Regexp{
	regexp.MustCompile(`(?i)the marker was`),
	regexp.MustCompile(`(?i)marker syntax`),
	regexp.MustCompile(`(?i)no new \[?(?:D|P|T|I|DECISION|PATTERN|TASK|INSIGHT)\]?`),
	regexp.MustCompile(`(?i)^example:`),
	regexp.MustCompile("^`[^`]*`$"),
}

var markerTypes = map[string]knowledge.Type{
	"D": knowledge.TypeDecision, "DECISION": knowledge.TypeDecision,
	"P": knowledge.TypePattern, "PATTERN": knowledge.TypePattern,
	"T": knowledge.TypeTask, "TASK": knowledge.TypeTask,
	"I": knowledge.TypeInsight, "INSIGHT": knowledge.TypeInsight,
}

// MarkerExtractor recognizes explicit marker annotations.
type MarkerExtractor struct {
	logger *zap.Logger
}

// NewMarkerExtractor creates a marker extractor.
func NewMarkerExtractor(logger *zap.Logger) *MarkerExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarkerExtractor{logger: logger}
}

// openBlock tracks a marker block being accumulated.
type openBlock struct {
	typ    knowledge.Type
	label  string
	lines  []string
	offset int
	// multi is true once at least one continuation line accumulated.
	multi bool
}

// Extract scans text line by line for marker annotations.
//
// A marker line flushes any open block and opens a new one; subsequent
// non-blank lines (bullets and indentation included) accumulate into the
// block; a blank line closes it; end of input force-closes. Markers inside
// fenced code are never recognized.
func (m *MarkerExtractor) Extract(text string) []Candidate {
	var candidates []Candidate
	seen := knowledge.NewSeenSet()

	var current *openBlock
	flush := func() {
		if current == nil {
			return
		}
		if cand, ok := m.finishBlock(current, seen); ok {
			candidates = append(candidates, cand)
		}
		current = nil
	}

	offset := 0
	inCode := false
	for _, line := range strings.Split(text, "\n") {
		lineStart := offset
		offset += len(line) + 1

		if strings.HasPrefix(strings.TrimSpace(line), "```") || strings.HasPrefix(strings.TrimSpace(line), "~~~") {
			flush()
			inCode = !inCode
			continue
		}
		if inCode {
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}

		if match := markerLineRe.FindStringSubmatch(trimmed); match != nil {
			flush()
			current = &openBlock{
				typ:    markerTypes[match[1]],
				offset: lineStart,
			}
			rest := strings.TrimSpace(match[2])
			if rest != "" {
				if current.typ == knowledge.TypeDecision || current.typ == knowledge.TypePattern {
					if lm := labelRe.FindStringSubmatch(rest); lm != nil {
						current.label = strings.TrimSpace(lm[1])
						rest = strings.TrimSpace(lm[2])
					}
				}
				if rest != "" {
					current.lines = append(current.lines, rest)
				}
			}
			continue
		}

		if current != nil {
			current.lines = append(current.lines, trimmed)
			current.multi = true
			continue
		}
	}
	flush()

	return candidates
}

// finishBlock validates and converts an accumulated block into a candidate.
func (m *MarkerExtractor) finishBlock(block *openBlock, seen *knowledge.SeenSet) (Candidate, bool) {
	text := strings.TrimSpace(strings.Join(block.lines, " "))
	if text == "" {
		return Candidate{}, false
	}

	window := singleLineWindow
	if block.multi {
		window = multiLineWindow
	}
	// Single-line decision and pattern markers must carry a "label:" prefix;
	// without one there is no topic or name to merge on. Multi-line blocks
	// may omit it and take a classifier-derived label downstream.
	if !block.multi && block.label == "" &&
		(block.typ == knowledge.TypeDecision || block.typ == knowledge.TypePattern) {
		m.logger.Debug("rejecting unlabeled single-line marker",
			zap.String("type", string(block.typ)))
		return Candidate{}, false
	}

	if !window.contains(len(text)) {
		m.logger.Debug("marker candidate outside length window",
			zap.String("type", string(block.typ)),
			zap.Int("length", len(text)))
		return Candidate{}, false
	}

	if isMetaDocumentation(text) {
		m.logger.Debug("rejecting meta-documentation candidate",
			zap.String("type", string(block.typ)))
		return Candidate{}, false
	}

	if seen.Seen(block.typ, text) {
		return Candidate{}, false
	}

	return Candidate{
		Type:         block.typ,
		Label:        block.label,
		Text:         text,
		SourceOffset: block.offset,
		FromMarker:   true,
	}, true
}

// isMetaDocumentation reports whether text talks about the marker system
// rather than carrying knowledge.
func isMetaDocumentation(text string) bool {
	for _, re := range metaDenylist {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// HasMarkers reports whether text contains any marker lines outside fenced
// code; callers use it to choose between marker and heuristic extraction.
func HasMarkers(text string) bool {
	inCode := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inCode = !inCode
			continue
		}
		if inCode {
			continue
		}
		if markerLineRe.MatchString(trimmed) {
			return true
		}
	}
	return false
}
