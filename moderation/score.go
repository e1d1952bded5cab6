package moderation

// Scoring weights. A single low-severity rule cannot cross an escalation
// threshold alone; repeated or co-occurring violations escalate
// super-linearly but are hard-capped at the maximum severity band.
const (
	contextBonus     = 0.5
	frequencyPenalty = 0.2
	maxScore         = 3.0
)

// Score converts an aggregated match set into a severity score in [0, 3]:
// the highest matched severity, plus a bonus when distinct rules co-occur,
// plus a penalty per repeated occurrence of the same rule.
func Score(matches []MatchedRule) float64 {
	if len(matches) == 0 {
		return 0.0
	}

	base := 0
	penalty := 0.0
	for _, m := range matches {
		if m.Severity > base {
			base = m.Severity
		}
		if m.MatchCount > 1 {
			penalty += float64(m.MatchCount-1) * frequencyPenalty
		}
	}

	score := float64(base) + penalty
	if len(matches) > 1 {
		score += contextBonus
	}

	if score > maxScore {
		score = maxScore
	}
	return score
}

// Decide maps a severity score to an action. The bands are closed at the
// lower end and open at the upper end; review is the catch-all for both
// safe and sub-threshold content.
func Decide(score float64) Action {
	switch {
	case score < 1:
		return ActionReview
	case score < 2:
		return ActionFlag
	default:
		return ActionBlock
	}
}
