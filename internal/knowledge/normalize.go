package knowledge

import (
	"strings"
)

// Normalize lowercases text and collapses runs of whitespace to single
// spaces. Normalized text is the cross-capture duplicate-suppression key.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// SeenSet suppresses duplicate normalized text within one extraction pass,
// tracked per knowledge type.
type SeenSet struct {
	seen map[Type]map[string]struct{}
}

// NewSeenSet creates an empty SeenSet.
func NewSeenSet() *SeenSet {
	return &SeenSet{seen: make(map[Type]map[string]struct{})}
}

// Seen reports whether text was already observed for typ, and records it.
func (s *SeenSet) Seen(typ Type, text string) bool {
	key := Normalize(text)
	if key == "" {
		return true
	}
	byType, ok := s.seen[typ]
	if !ok {
		byType = make(map[string]struct{})
		s.seen[typ] = byType
	}
	if _, dup := byType[key]; dup {
		return true
	}
	byType[key] = struct{}{}
	return false
}
