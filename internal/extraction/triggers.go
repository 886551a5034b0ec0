package extraction

import (
	"regexp"

	"github.com/fyrsmithlabs/recalld/internal/knowledge"
)

// trigger is one heuristic rule: a phrase pattern and the knowledge type it
// signals. Triggers live in ordered tables per type; adding one is a data
// change, not new control flow.
type trigger struct {
	name  string
	regex *regexp.Regexp
}

// triggerTables is the ordered heuristic rule table, evaluated only when a
// text block carries no explicit markers.
var triggerTables = map[knowledge.Type][]trigger{
	knowledge.TypeDecision: {
		{name: "decided_to", regex: regexp.MustCompile(`(?i)\b(?:we )?decided to\b`)},
		{name: "chose_to", regex: regexp.MustCompile(`(?i)\b(?:we )?chose (?:to\b|\w+ over\b)`)},
		{name: "going_with", regex: regexp.MustCompile(`(?i)\b(?:we're |we are )?going with\b`)},
		{name: "lets_use", regex: regexp.MustCompile(`(?i)\blet's (?:go with|use|pick)\b`)},
		{name: "settled_on", regex: regexp.MustCompile(`(?i)\b(?:we )?settled on\b`)},
		{name: "opted_for", regex: regexp.MustCompile(`(?i)\b(?:we )?opted for\b`)},
		{name: "will_use", regex: regexp.MustCompile(`(?i)\bwe(?:'ll| will) (?:use|adopt|standardize on)\b`)},
	},
	knowledge.TypePattern: {
		{name: "the_pattern_is", regex: regexp.MustCompile(`(?i)\bthe pattern (?:is|here is)\b`)},
		{name: "by_convention", regex: regexp.MustCompile(`(?i)\bby convention\b`)},
		{name: "convention_is", regex: regexp.MustCompile(`(?i)\bthe convention (?:is|will be)\b`)},
		{name: "we_always", regex: regexp.MustCompile(`(?i)\bwe always\b`)},
		{name: "as_a_rule", regex: regexp.MustCompile(`(?i)\bas a rule\b`)},
		{name: "standard_approach", regex: regexp.MustCompile(`(?i)\b(?:the )?standard approach (?:is|here)\b`)},
	},
	knowledge.TypeTask: {
		{name: "todo", regex: regexp.MustCompile(`\bTODO\b`)},
		{name: "need_to", regex: regexp.MustCompile(`(?i)\b(?:we |i |still )?need(?:s)? to\b`)},
		{name: "should_verb", regex: regexp.MustCompile(`(?i)\bshould (?:add|fix|update|refactor|implement|remove|write|clean|migrate)\b`)},
		{name: "must_verb", regex: regexp.MustCompile(`(?i)\bmust (?:add|fix|update|refactor|implement|remove|write|handle)\b`)},
		{name: "remaining", regex: regexp.MustCompile(`(?i)\bremaining work\b`)},
		{name: "dont_forget", regex: regexp.MustCompile(`(?i)\bdon't forget to\b`)},
	},
	knowledge.TypeInsight: {
		{name: "turns_out", regex: regexp.MustCompile(`(?i)\b(?:it )?turns out\b`)},
		{name: "interestingly", regex: regexp.MustCompile(`(?i)\binterestingly\b`)},
		{name: "discovered", regex: regexp.MustCompile(`(?i)\bdiscovered that\b`)},
		{name: "realized", regex: regexp.MustCompile(`(?i)\b(?:i |we )?realized that\b`)},
		{name: "learned", regex: regexp.MustCompile(`(?i)\b(?:i |we )?learned that\b`)},
		{name: "root_cause", regex: regexp.MustCompile(`(?i)\bthe root cause (?:was|is|turned out)\b`)},
		{name: "surprisingly", regex: regexp.MustCompile(`(?i)\bsurprisingly\b`)},
	},
}

// causalRe detects rationale/usage connectives in the sentences following a
// decision or pattern match.
var causalRe = regexp.MustCompile(`(?i)\b(?:because|since|in order to|when|for \w+(?:\s+\w+)? reasons?)\b`)
