package moderation

import (
	"fmt"
	"strings"
)

const safeExplanation = "Content appears to be safe and follows community guidelines."

// Explain renders a deterministic human-readable rationale from the matched
// rules, the score and the decided action. Identical inputs always yield
// identical text.
func Explain(matches []MatchedRule, score float64, action Action) string {
	if len(matches) == 0 {
		return safeExplanation
	}

	// Group by category, preserving first-seen order.
	var categories []string
	byCategory := make(map[string][]MatchedRule)
	for _, m := range matches {
		if _, seen := byCategory[m.Category]; !seen {
			categories = append(categories, m.Category)
		}
		byCategory[m.Category] = append(byCategory[m.Category], m)
	}

	var parts []string

	if len(categories) == 1 {
		category := categories[0]
		group := byCategory[category]
		if len(group) == 1 {
			desc := group[0].Description
			if desc == "" {
				desc = group[0].Pattern
			}
			parts = append(parts, fmt.Sprintf("Content flagged for %s: %s", category, desc))
		} else {
			parts = append(parts, fmt.Sprintf(
				"Content flagged for multiple %s violations (%d rules matched)",
				category, len(group)))
		}
	} else {
		parts = append(parts, fmt.Sprintf(
			"Content flagged for multiple violation categories: %s",
			strings.Join(categories, ", ")))
	}

	switch {
	case score >= 2.5:
		parts = append(parts, "This represents a severe violation requiring immediate action.")
	case score >= 1.5:
		parts = append(parts, "This represents a moderate violation requiring review.")
	default:
		parts = append(parts, "This represents a mild violation that may need attention.")
	}

	switch action {
	case ActionBlock:
		parts = append(parts, "Content has been blocked due to policy violations.")
	case ActionFlag:
		parts = append(parts, "Content has been flagged for moderator review.")
	default:
		parts = append(parts, "Content has been marked for review.")
	}

	return strings.Join(parts, " ")
}
