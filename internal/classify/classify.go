// Package classify assigns a memory type from content and tags.
package classify

import "strings"

// Rule is one entry of the ordered classification table. Rules are evaluated
// top to bottom and the first match wins; ties are broken by rule order, not
// by input order. Matching is case-insensitive substring containment, so
// "liked" matches the keyword "like".
type Rule struct {
	Type     string
	Keywords []string
	// MatchTags routes the keyword check to the joined lowercased tag set
	// instead of the content.
	MatchTags bool
}

// Rules is the classification table, highest priority first. The table is
// data rather than control flow so rules can be tested and reordered
// independently.
var Rules = []Rule{
	{Type: "preferences", Keywords: []string{"prefer", "like", "hate", "love", "dislike", "values", "style"}},
	{Type: "decisions", Keywords: []string{"decided", "decision", "chose", "will use", "strategy"}},
	{Type: "experiences", Keywords: []string{"built", "created", "today", "yesterday", "happened", "did"}},
	{Type: "skills", Keywords: []string{"how to", "guide", "tutorial", "steps to", "method"}},
	{Type: "context", Keywords: []string{"project", "system", "overview", "about"}, MatchTags: true},
}

// DefaultType is assigned when no rule matches.
const DefaultType = "facts"

// MemoryType classifies content and tags against the rule table.
func MemoryType(content string, tags []string) string {
	lowered := strings.ToLower(content)
	joinedTags := strings.ToLower(strings.Join(tags, " "))

	for _, rule := range Rules {
		haystack := lowered
		if rule.MatchTags {
			haystack = joinedTags
		}
		for _, kw := range rule.Keywords {
			if strings.Contains(haystack, kw) {
				return rule.Type
			}
		}
	}
	return DefaultType
}
