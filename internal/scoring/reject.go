package scoring

import (
	"regexp"
	"strings"
)

// Cheap rejection rules run before any embedding call is spent. Each rule
// returns a stable reason string used in score results and logs.

var (
	punctOnlyRe = regexp.MustCompile(`^[\s[:punct:]]*$`)

	continuationRe = regexp.MustCompile(`(?i)^(?:and|or|but|so|also|then)\b`)

	// regexLiteralRe catches candidates that are themselves regex source,
	// which trigger phrases inside pattern tables tend to produce.
	regexLiteralRe = regexp.MustCompile(`^/.*/[a-z]*$|\\[bdwsBDWS]|\(\?[i:]`)

	systemDenylist = []*regexp.Regexp{
		regexp.MustCompile(`(?i)system-reminder`),
		regexp.MustCompile(`(?i)\bmalware\b`),
		regexp.MustCompile(`CRITICAL:.*READ-ONLY`),
	}

	pronounOnlyRe = regexp.MustCompile(`(?i)^(?:it|this|that|these|those|they|the|a|an)[.!?]?$`)
)

// rejectReason returns a non-empty reason when text fails a cheap check.
func rejectReason(text string, minLength int) string {
	trimmed := strings.TrimSpace(text)

	if len(trimmed) < minLength {
		return "below minimum length"
	}
	if punctOnlyRe.MatchString(trimmed) {
		return "punctuation only"
	}
	if strings.HasSuffix(trimmed, ",") || strings.HasSuffix(trimmed, ":") {
		return "incomplete thought"
	}
	if continuationRe.MatchString(trimmed) {
		return "starts with continuation word"
	}
	if regexLiteralRe.MatchString(trimmed) || strings.Count(trimmed, "`") >= 5 {
		return "looks like code"
	}
	for _, re := range systemDenylist {
		if re.MatchString(trimmed) {
			return "system content"
		}
	}
	if pronounOnlyRe.MatchString(trimmed) {
		return "pronoun or article only"
	}
	return ""
}
