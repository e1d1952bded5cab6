package main

import "github.com/contentguard/contentguard/moderation"

// API request and response models.

// ModerateRequest is the request body for classifying a single post.
type ModerateRequest struct {
	PostID  string `json:"post_id"`
	Content string `json:"content"`
	UserID  string `json:"user_id,omitempty"`
}

// ModerateBatchRequest is the request body for batch classification.
type ModerateBatchRequest struct {
	Posts []moderation.Post `json:"posts"`
}

// ModerateBatchResponse carries batch results in input order.
type ModerateBatchResponse struct {
	Results []*moderation.Result `json:"results"`
}

// CreateRuleRequest is the request body for adding a rule.
type CreateRuleRequest struct {
	Pattern     string `json:"pattern"`
	PatternType string `json:"pattern_type"`
	Category    string `json:"category"`
	Severity    int    `json:"severity"`
	Action      string `json:"action"`
	Description string `json:"description,omitempty"`
	Active      *bool  `json:"is_active,omitempty"`
}

// RulesListResponse is the response for listing rules.
type RulesListResponse struct {
	Rules []*moderation.Rule `json:"rules"`
}

// TestMatchRequest is the request body for the rule-matching debug endpoint.
type TestMatchRequest struct {
	Content string `json:"content"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
