package textseg

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Protected substrings contain periods that must never be treated as
// sentence boundaries. Each is swapped for a placeholder before splitting
// and restored afterwards. Order matters: inline code and URLs first so
// their contents are never re-matched by the narrower patterns.
var protectedPatterns = []*regexp.Regexp{
	// Inline code spans.
	regexp.MustCompile("`[^`]*`"),
	// URLs.
	regexp.MustCompile(`https?://[^\s]+`),
	// Version numbers, optionally v-prefixed: v2.0.1, 1.2.3.
	regexp.MustCompile(`\bv?\d+(?:\.\d+)+\b`),
	// Dotted code identifiers, with or without call parens: fs.mkdir(),
	// os.path.join.
	regexp.MustCompile(`\b[A-Za-z_][\w]*(?:\.[A-Za-z_][\w]*)+(?:\(\))?`),
	// Common abbreviations.
	regexp.MustCompile(`(?i)\b(?:e\.g\.|i\.e\.|etc\.|vs\.|cf\.|et al\.|approx\.|Mr\.|Mrs\.|Ms\.|Dr\.)`),
}

// boundaryRe matches terminal punctuation that ends a sentence when
// followed by whitespace and a capital letter, or by end of input.
var boundaryRe = regexp.MustCompile(`[.!?]+`)

// Sentences splits text into complete sentences.
//
// Periods inside abbreviations, version numbers, code identifiers, URLs and
// inline code never split. Terminal punctuation splits only when followed by
// whitespace plus an upper-case letter, or at end of input.
func Sentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	protected, restore := protect(text)

	var sentences []string
	start := 0
	for _, loc := range boundaryRe.FindAllStringIndex(protected, -1) {
		if !isBoundary(protected, loc[1]) {
			continue
		}
		sentence := strings.TrimSpace(protected[start:loc[1]])
		if sentence != "" {
			sentences = append(sentences, restore(sentence))
		}
		start = loc[1]
	}

	if tail := strings.TrimSpace(protected[start:]); tail != "" {
		sentences = append(sentences, restore(tail))
	}

	return sentences
}

// ContainingSentence returns the sentence of text that covers byte offset
// pos, or the empty string when pos is out of range.
func ContainingSentence(text string, pos int) string {
	if pos < 0 || pos >= len(text) {
		return ""
	}
	offset := 0
	for _, sentence := range Sentences(text) {
		idx := strings.Index(text[offset:], sentence)
		if idx < 0 {
			continue
		}
		begin := offset + idx
		end := begin + len(sentence)
		if pos >= begin && pos < end {
			return sentence
		}
		offset = end
	}
	return ""
}

// isBoundary reports whether the text following a punctuation run at end
// qualifies as a sentence boundary.
func isBoundary(s string, end int) bool {
	rest := s[end:]
	if strings.TrimSpace(rest) == "" {
		return true
	}
	if !unicode.IsSpace(rune(rest[0])) {
		return false
	}
	trimmed := strings.TrimLeft(rest, " \t\r\n")
	if trimmed == "" {
		return true
	}
	return unicode.IsUpper([]rune(trimmed)[0])
}

// protect swaps protected substrings for placeholders and returns the
// protected text plus a restore function.
func protect(text string) (string, func(string) string) {
	var originals []string
	for _, re := range protectedPatterns {
		text = re.ReplaceAllStringFunc(text, func(match string) string {
			placeholder := fmt.Sprintf("\x00%d\x00", len(originals))
			originals = append(originals, match)
			return placeholder
		})
	}

	restore := func(s string) string {
		// Placeholders can nest (an abbreviation inside an already
		// protected span cannot, but restore in reverse order is still
		// the safe direction).
		for i := len(originals) - 1; i >= 0; i-- {
			s = strings.ReplaceAll(s, fmt.Sprintf("\x00%d\x00", i), originals[i])
		}
		return s
	}

	return text, restore
}
