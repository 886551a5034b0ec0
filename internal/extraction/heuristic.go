package extraction

import (
	"strings"

	"github.com/fyrsmithlabs/recalld/internal/knowledge"
	"github.com/fyrsmithlabs/recalld/internal/textseg"
	"go.uber.org/zap"
)

// HeuristicExtractor finds knowledge candidates via conversational trigger
// phrases. It is the fallback path for text without explicit markers; its
// candidates still pass through the quality scorer.
type HeuristicExtractor struct {
	logger *zap.Logger
}

// NewHeuristicExtractor creates a heuristic extractor.
func NewHeuristicExtractor(logger *zap.Logger) *HeuristicExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HeuristicExtractor{logger: logger}
}

// Extract scans prose and bullet segments for trigger phrases and returns
// the complete containing sentence of every match. Code, headers and
// blockquotes are never scanned.
func (h *HeuristicExtractor) Extract(text string) []Candidate {
	var candidates []Candidate
	seen := knowledge.NewSeenSet()

	offset := 0
	for _, segment := range textseg.Parse(text) {
		segStart := strings.Index(text[offset:], segment.Content)
		if segStart >= 0 {
			segStart += offset
			offset = segStart + len(segment.Content)
		} else {
			segStart = offset
		}

		if segment.Type != textseg.SegmentProse && segment.Type != textseg.SegmentBullet {
			continue
		}

		candidates = append(candidates, h.extractFromSegment(segment.Content, segStart, seen)...)
	}

	return candidates
}

// extractFromSegment applies every trigger table to one segment.
func (h *HeuristicExtractor) extractFromSegment(content string, base int, seen *knowledge.SeenSet) []Candidate {
	var candidates []Candidate
	sentences := textseg.Sentences(content)

	for _, typ := range knowledge.Types() {
		for _, trig := range triggerTables[typ] {
			for _, loc := range trig.regex.FindAllStringIndex(content, -1) {
				sentence := textseg.ContainingSentence(content, loc[0])
				if sentence == "" {
					continue
				}

				if !heuristicWindows[typ].contains(len(sentence)) {
					continue
				}
				if seen.Seen(typ, sentence) {
					continue
				}

				cand := Candidate{
					Type:         typ,
					Text:         sentence,
					SourceOffset: base + loc[0],
				}

				// Decisions and patterns pick up a causal snippet
				// from the following sentence or two.
				switch typ {
				case knowledge.TypeDecision:
					cand.Rationale = followupSnippet(sentences, sentence)
				case knowledge.TypePattern:
					cand.Usage = followupSnippet(sentences, sentence)
				}

				h.logger.Debug("heuristic trigger matched",
					zap.String("type", string(typ)),
					zap.String("trigger", trig.name))

				candidates = append(candidates, cand)
			}
		}
	}

	return candidates
}

// followupSnippet returns the first of the up to two sentences after the
// matched one that carries a causal connective.
func followupSnippet(sentences []string, matched string) string {
	idx := -1
	for i, s := range sentences {
		if s == matched {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ""
	}

	for i := idx + 1; i < len(sentences) && i <= idx+2; i++ {
		if causalRe.MatchString(sentences[i]) {
			return sentences[i]
		}
	}
	return ""
}
