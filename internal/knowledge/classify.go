package knowledge

import (
	"regexp"
	"strings"
)

// topicRule pairs a compiled regex with the topic label it detects.
// Rules are evaluated in order; the first match wins, so ordering is
// significant and adding a rule is a data change.
type topicRule struct {
	regex *regexp.Regexp
	label string
}

// topicRules is the ordered topic classification table for decisions.
// More specific patterns precede broader ones to avoid shadowing.
var topicRules = []topicRule{
	{regexp.MustCompile(`(?i)\b(?:architect|microservice|monolith|module bound|layer|hexagonal|event.driven)`), "architecture"},
	{regexp.MustCompile(`(?i)\b(?:state manage|redux|zustand|store|global state|context api)`), "state-management"},
	{regexp.MustCompile(`(?i)\b(?:database|sql|postgres|sqlite|mysql|mongo|schema|migration|index(?:es|ing)?\b)`), "database"},
	{regexp.MustCompile(`(?i)\b(?:auth(?:entication|orization)?|oauth|jwt|login|session token|password)`), "authentication"},
	{regexp.MustCompile(`(?i)\b(?:api|endpoint|rest|grpc|graphql|webhook|route)`), "api"},
	{regexp.MustCompile(`(?i)\b(?:test(?:s|ing)?|coverage|mock|fixture|assert)`), "testing"},
	{regexp.MustCompile(`(?i)\b(?:styl(?:e|ing)|css|tailwind|theme|design token)`), "styling"},
	{regexp.MustCompile(`(?i)\b(?:deploy|ci/?cd|docker|kubernetes|release|pipeline|infra)`), "deployment"},
	{regexp.MustCompile(`(?i)\b(?:lint|format|code review|refactor|clean.?up|naming convention)`), "code-quality"},
	{regexp.MustCompile(`(?i)\b(?:typescript|type safety|typing|generics|type annotation)`), "typing"},
	{regexp.MustCompile(`(?i)\b(?:component|widget|props|render)`), "components"},
	{regexp.MustCompile(`(?i)\b(?:dependenc|package|library|vendor|upgrade|version bump)`), "dependencies"},
	{regexp.MustCompile(`(?i)\b(?:error handl|exception|panic|recover|retry|fallback)`), "error-handling"},
	{regexp.MustCompile(`(?i)\b(?:cach(?:e|ing)|memoiz|invalidat|ttl)`), "caching"},
	{regexp.MustCompile(`(?i)\b(?:file structure|folder|director(?:y|ies)|organiz|layout)`), "file-organization"},
}

// ClassifyTopic maps decision text to a topic label. First matching rule
// wins; unmatched text classifies as "general".
func ClassifyTopic(text string) string {
	for _, rule := range topicRules {
		if rule.regex.MatchString(text) {
			return rule.label
		}
	}
	return "general"
}

// nameStopwords are skipped when deriving a pattern name.
var nameStopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "to": {}, "of": {}, "in": {}, "on": {},
	"for": {}, "and": {}, "or": {}, "is": {}, "are": {}, "be": {},
	"we": {}, "use": {}, "using": {}, "with": {}, "that": {}, "this": {},
	"always": {}, "never": {}, "should": {}, "all": {}, "our": {},
}

var nonAlpha = regexp.MustCompile(`[^a-z]+`)

const maxNameLen = 50

// DeriveName derives a pattern name from description text: the first up to
// four significant words, lowercased, hyphen-joined, truncated to 50 chars.
// Returns "pattern" when nothing significant remains.
func DeriveName(text string) string {
	var words []string
	for _, raw := range strings.Fields(strings.ToLower(text)) {
		word := nonAlpha.ReplaceAllString(raw, "")
		if word == "" {
			continue
		}
		if _, stop := nameStopwords[word]; stop {
			continue
		}
		words = append(words, word)
		if len(words) == 4 {
			break
		}
	}

	name := strings.Join(words, "-")
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
		name = strings.TrimRight(name, "-")
	}
	if name == "" {
		return "pattern"
	}
	return name
}
