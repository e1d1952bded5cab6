package moderation

import (
	"errors"
	"testing"
)

func TestRuleValidate(t *testing.T) {
	testCases := []struct {
		name    string
		rule    Rule
		wantErr bool
	}{
		{
			name: "valid keyword rule",
			rule: Rule{Pattern: "scam", PatternType: PatternKeyword, Category: "fraud",
				Severity: 3, Action: ActionBlock},
		},
		{
			name: "valid regex rule",
			rule: Rule{Pattern: `guaranteed.*return`, PatternType: PatternRegex, Category: "scam",
				Severity: 3, Action: ActionBlock},
		},
		{
			name: "empty pattern",
			rule: Rule{Pattern: "   ", PatternType: PatternKeyword, Category: "fraud",
				Severity: 1, Action: ActionReview},
			wantErr: true,
		},
		{
			name: "unknown pattern type",
			rule: Rule{Pattern: "scam", PatternType: "glob", Category: "fraud",
				Severity: 1, Action: ActionReview},
			wantErr: true,
		},
		{
			name: "severity too low",
			rule: Rule{Pattern: "scam", PatternType: PatternKeyword, Category: "fraud",
				Severity: 0, Action: ActionReview},
			wantErr: true,
		},
		{
			name: "severity too high",
			rule: Rule{Pattern: "scam", PatternType: PatternKeyword, Category: "fraud",
				Severity: 4, Action: ActionReview},
			wantErr: true,
		},
		{
			name: "unknown action",
			rule: Rule{Pattern: "scam", PatternType: PatternKeyword, Category: "fraud",
				Severity: 1, Action: "approve"},
			wantErr: true,
		},
		{
			name: "regex that does not compile",
			rule: Rule{Pattern: `[unclosed`, PatternType: PatternRegex, Category: "fraud",
				Severity: 1, Action: ActionReview},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.rule.Validate()
			if tc.wantErr && err == nil {
				t.Error("Validate() should return error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Validate() failed: %v", err)
			}
			if err != nil {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Errorf("error should be a *ValidationError, got %T", err)
				}
			}
		})
	}
}

func TestRuleValidateTrimsPattern(t *testing.T) {
	rule := Rule{Pattern: "  scam  ", PatternType: PatternKeyword, Category: "fraud",
		Severity: 1, Action: ActionReview}

	if err := rule.Validate(); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if rule.Pattern != "scam" {
		t.Errorf("Pattern = %q, want trimmed %q", rule.Pattern, "scam")
	}
}

func TestSampleRulesAllValid(t *testing.T) {
	for _, sample := range SampleRules() {
		rule := sample
		if err := rule.Validate(); err != nil {
			t.Errorf("sample rule %q invalid: %v", rule.Pattern, err)
		}
	}
}
