// Package moderation implements the rule-based content classification
// engine: indexed candidate retrieval plus regex evaluation, match
// aggregation, severity scoring, action decision and explanation synthesis.
package moderation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// PatternType determines how a rule's pattern is matched against content.
type PatternType string

const (
	PatternKeyword PatternType = "keyword"
	PatternRegex   PatternType = "regex"
	PatternPhrase  PatternType = "phrase"
)

// Action is a moderation outcome for a piece of content.
type Action string

const (
	ActionFlag   Action = "flag"
	ActionReview Action = "review"
	ActionBlock  Action = "block"
)

// Severity bounds for rules (1=mild, 2=moderate, 3=severe).
const (
	SeverityMin = 1
	SeverityMax = 3
)

// Rule is one stored detection pattern. Rules are created through the
// administration path, soft-disabled via Active, and never mutated by the
// classification pipeline.
type Rule struct {
	ID          int         `json:"id"`
	Pattern     string      `json:"pattern"`
	PatternType PatternType `json:"pattern_type"`
	Category    string      `json:"category"`
	Severity    int         `json:"severity"`
	Action      Action      `json:"action"`
	Description string      `json:"description,omitempty"`
	Active      bool        `json:"is_active"`
	CreatedAt   time.Time   `json:"created_at"`
}

// ValidationError reports a malformed rule at the administration boundary.
// It is the only classification-adjacent error surfaced to callers.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid rule: %s %s", e.Field, e.Message)
}

// Validate checks the rule's invariants and normalizes its pattern.
// Regex patterns must compile here so that broken patterns are rejected on
// creation rather than silently skipped at classification time.
func (r *Rule) Validate() error {
	r.Pattern = strings.TrimSpace(r.Pattern)
	if r.Pattern == "" {
		return &ValidationError{Field: "pattern", Message: "cannot be empty"}
	}

	switch r.PatternType {
	case PatternKeyword, PatternRegex, PatternPhrase:
	default:
		return &ValidationError{
			Field:   "pattern_type",
			Message: fmt.Sprintf("%q is not one of keyword, regex, phrase", r.PatternType),
		}
	}

	if r.Severity < SeverityMin || r.Severity > SeverityMax {
		return &ValidationError{
			Field:   "severity",
			Message: fmt.Sprintf("%d is out of range [%d, %d]", r.Severity, SeverityMin, SeverityMax),
		}
	}

	switch r.Action {
	case ActionFlag, ActionReview, ActionBlock:
	default:
		return &ValidationError{
			Field:   "action",
			Message: fmt.Sprintf("%q is not one of flag, review, block", r.Action),
		}
	}

	if r.PatternType == PatternRegex {
		if _, err := regexp.Compile("(?i)" + r.Pattern); err != nil {
			return &ValidationError{
				Field:   "pattern",
				Message: fmt.Sprintf("does not compile: %v", err),
			}
		}
	}

	return nil
}

// MatchedRule is a per-classification projection of a Rule plus the number
// of times it matched. It lives only inside one Result.
type MatchedRule struct {
	RuleID      int         `json:"rule_id"`
	Pattern     string      `json:"pattern"`
	PatternType PatternType `json:"pattern_type"`
	Category    string      `json:"category"`
	Severity    int         `json:"severity"`
	Action      Action      `json:"action"`
	Description string      `json:"description,omitempty"`
	MatchCount  int         `json:"match_count"`
}

// Result is the outcome of classifying one piece of content. It is
// constructed once by the engine and never mutated afterwards; Action is
// always derived from Score via Decide, never set independently.
type Result struct {
	PostID           string        `json:"post_id"`
	Content          string        `json:"content"`
	Score            float64       `json:"score"`
	Action           Action        `json:"action"`
	Matched          []MatchedRule `json:"matched_rules"`
	ProcessingTimeMS int64         `json:"processing_time_ms"`
	Explanation      string        `json:"explanation"`
	Timestamp        time.Time     `json:"timestamp"`
}

// Post is one unit of batch classification input.
type Post struct {
	ID      string `json:"post_id"`
	Content string `json:"content"`
}
