package moderation

// SampleRules returns the built-in finance-community rule set used to
// bootstrap fresh deployments.
func SampleRules() []Rule {
	return []Rule{
		{
			Pattern:     "fuck|shit|bitch|asshole",
			PatternType: PatternRegex,
			Category:    "profanity",
			Severity:    2,
			Action:      ActionFlag,
			Description: "Profane language detected",
			Active:      true,
		},
		{
			Pattern:     "stupid|idiot|moron",
			PatternType: PatternRegex,
			Category:    "offensive",
			Severity:    1,
			Action:      ActionReview,
			Description: "Potentially offensive language",
			Active:      true,
		},
		{
			Pattern:     "guaranteed.*return|no risk.*reward",
			PatternType: PatternRegex,
			Category:    "scam",
			Severity:    3,
			Action:      ActionBlock,
			Description: "Scam indicators detected",
			Active:      true,
		},
		{
			Pattern:     "insider.*tip|leaked.*information",
			PatternType: PatternRegex,
			Category:    "fraud",
			Severity:    3,
			Action:      ActionBlock,
			Description: "Potential insider trading",
			Active:      true,
		},
		{
			Pattern:     "get rich quick",
			PatternType: PatternPhrase,
			Category:    "scam",
			Severity:    2,
			Action:      ActionFlag,
			Description: "Suspicious financial promises",
			Active:      true,
		},
		{
			Pattern:     "pump.*dump|coordinate.*buying",
			PatternType: PatternRegex,
			Category:    "manipulation",
			Severity:    3,
			Action:      ActionBlock,
			Description: "Market manipulation indicators",
			Active:      true,
		},
		{
			Pattern:     "artificial.*price",
			PatternType: PatternPhrase,
			Category:    "manipulation",
			Severity:    2,
			Action:      ActionFlag,
			Description: "Suspicious trading activity",
			Active:      true,
		},
		{
			Pattern:     "buy now|limited time|act fast",
			PatternType: PatternRegex,
			Category:    "spam",
			Severity:    1,
			Action:      ActionReview,
			Description: "Promotional spam indicators",
			Active:      true,
		},
		{
			Pattern:     "click here|free money",
			PatternType: PatternPhrase,
			Category:    "spam",
			Severity:    1,
			Action:      ActionReview,
			Description: "Spam link indicators",
			Active:      true,
		},
	}
}
