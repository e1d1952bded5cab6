package main

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"github.com/contentguard/contentguard/llmgen"
	"github.com/contentguard/contentguard/moderation"
)

// LabeledPost is one synthetic post with its expected moderation outcome.
type LabeledPost struct {
	PostID         string    `json:"post_id"`
	Username       string    `json:"username"`
	Content        string    `json:"content"`
	Label          string    `json:"label"`
	Severity       int       `json:"severity"`
	ExpectedAction string    `json:"expected_action"`
	Timestamp      time.Time `json:"timestamp"`
}

// Dataset label names.
const (
	LabelSafe     = "safe"
	LabelMild     = "mild_violation"
	LabelModerate = "moderate_violation"
	LabelSevere   = "severe_violation"
)

// expectedAction maps a label to the action the engine is expected to take.
// Safe and mild content both land on review: the engine has no separate
// approve action.
func expectedAction(label string) moderation.Action {
	switch label {
	case LabelModerate:
		return moderation.ActionFlag
	case LabelSevere:
		return moderation.ActionBlock
	default:
		return moderation.ActionReview
	}
}

func severityFor(label string) int {
	switch label {
	case LabelMild:
		return 1
	case LabelModerate:
		return 2
	case LabelSevere:
		return 3
	default:
		return 0
	}
}

var financeTopics = map[string][]string{
	"trading": {
		"stock analysis", "market trends", "technical indicators",
		"portfolio diversification", "risk management", "day trading",
		"swing trading", "options trading", "forex trading",
	},
	"accounting": {
		"financial statements", "cash flow analysis", "balance sheet review",
		"income statement", "budgeting", "expense tracking", "tax preparation",
	},
	"loans": {
		"mortgage rates", "personal loans", "business loans", "student loans",
		"loan refinancing", "credit scores", "debt consolidation",
	},
	"investment": {
		"mutual funds", "ETFs", "bonds", "retirement planning",
		"401k strategies", "dividend investing", "index funds",
	},
	"cash_flow": {
		"monthly budgets", "expense management", "savings goals",
		"emergency funds", "financial planning", "cash reserves",
	},
}

var safeTemplates = []string{
	"Just completed my {topic} analysis for {detail}. The numbers look promising this quarter.",
	"Looking for advice on {topic}. Has anyone tried {detail} strategies?",
	"Monthly {topic} update: {detail} improved by {percentage}% compared to last month.",
	"Sharing my {topic} experience with {detail}. Key lesson: {insight}.",
	"Question about {topic}: How do you approach {detail} in volatile markets?",
	"Weekly {topic} review: {detail} performance exceeded expectations.",
	"Beginner's guide to {topic}: Start with {detail} before moving to advanced strategies.",
	"Personal finance win: Improved my {topic} by focusing on {detail}.",
	"Educational content: Understanding {detail} is essential for {topic} success.",
}

var mildTemplates = []string{
	"This {service} is a complete scam. {company} stole my money and disappeared.",
	"URGENT: {service} rates are skyrocketing! Act now or lose thousands!",
	"Secret {strategy} that banks don't want you to know! DM me for details.",
	"I made ${amount} in one day using this {method}. It's so easy!",
	"Financial advisors hate this one trick! {strategy} guaranteed returns!",
	"Exclusive {opportunity} available for next 24 hours only! Don't miss out!",
	"Proven {system} beats the market 99% of the time. Limited spots available!",
}

var moderateTemplates = []string{
	"Selling guaranteed {return}% monthly returns. No risk, all reward. Contact me privately.",
	"Leaked {document} from {institution}. Download before they remove it.",
	"Bypass {regulation} with this offshore {service}. Completely legal loophole.",
	"Pump and dump {stock} group. Coordinate buying to drive up price.",
	"Insider trading network. Get tips before major {event} announcements.",
	"Tax evasion strategies that work. Reduce your {taxtype} to zero legally.",
}

var severeTemplates = []string{
	"Selling stolen {datatype} from {institution}. Verified accounts available.",
	"Counterfeit {currency} operation. High quality, undetectable bills.",
	"Hacking services for {platform}. Access any account for ${price}.",
	"Embezzlement scheme. Help me move ${amount} from {source}.",
	"Drug money laundering. Turn dirty cash into clean {asset}.",
	"Ransomware profits. Share in our {attack} earnings.",
}

var insights = []string{
	"diversification reduces risk", "compound interest works best long-term",
	"cash flow timing matters", "market volatility creates opportunities",
	"consistent investing beats timing", "emergency funds provide security",
}

var fillers = map[string][]string{
	"service":     {"loan service", "trading platform", "investment fund", "crypto exchange"},
	"strategy":    {"arbitrage strategy", "options strategy", "forex strategy", "crypto strategy"},
	"method":      {"trading algorithm", "investment system", "financial model"},
	"amount":      {"5000", "10000", "25000", "50000", "100000"},
	"opportunity": {"investment opportunity", "trading opportunity", "loan opportunity"},
	"system":      {"trading system", "investment system", "financial system"},
	"return":      {"15", "25", "50", "100", "200"},
	"document":    {"financial report", "audit document", "regulatory filing", "internal memo"},
	"institution": {"major bank", "investment firm", "regulatory agency"},
	"regulation":  {"KYC requirements", "tax reporting", "compliance rules"},
	"stock":       {"AAPL", "GOOGL", "TSLA", "MSFT", "AMZN", "NVDA"},
	"event":       {"earnings", "merger", "acquisition", "regulatory"},
	"taxtype":     {"income tax", "capital gains tax", "corporate tax"},
	"currency":    {"bitcoin", "ethereum", "cash", "digital assets"},
	"datatype":    {"credit reports", "bank statements", "financial records"},
	"platform":    {"trading platforms", "banking systems", "investment accounts"},
	"price":       {"500", "1000", "2500", "5000"},
	"source":      {"company accounts", "investment funds", "client deposits"},
	"asset":       {"real estate", "investments", "business assets"},
	"attack":      {"ransomware attack", "cyber attack", "financial hack"},
	"percentage":  {"15.2", "8.7", "23.5", "12.1", "6.8", "18.9"},
}

// Generator produces synthetic labeled finance posts. With an LLM provider
// attached it rewrites template posts through the provider; otherwise output
// is purely template-driven and reproducible from the seed.
type Generator struct {
	rng  *rand.Rand
	fake *gofakeit.Faker
	llm  llmgen.Provider
}

// NewGenerator creates a generator seeded for reproducible output.
func NewGenerator(seed int64, llm llmgen.Provider) *Generator {
	return &Generator{
		rng:  rand.New(rand.NewSource(seed)),
		fake: gofakeit.New(seed),
		llm:  llm,
	}
}

func (g *Generator) pick(options []string) string {
	return options[g.rng.Intn(len(options))]
}

func (g *Generator) fill(template string) string {
	content := template
	for placeholder, options := range fillers {
		token := "{" + placeholder + "}"
		for strings.Contains(content, token) {
			content = strings.Replace(content, token, g.pick(options), 1)
		}
	}
	if strings.Contains(content, "{company}") {
		content = strings.ReplaceAll(content, "{company}", g.fake.Company())
	}
	return content
}

func (g *Generator) safeContent() string {
	topics := make([]string, 0, len(financeTopics))
	for topic := range financeTopics {
		topics = append(topics, topic)
	}
	// Map iteration order is random; sort for seed-reproducible picks.
	sort.Strings(topics)

	topic := g.pick(topics)
	content := g.pick(safeTemplates)
	content = strings.ReplaceAll(content, "{topic}", topic)
	content = strings.ReplaceAll(content, "{detail}", g.pick(financeTopics[topic]))
	content = strings.ReplaceAll(content, "{insight}", g.pick(insights))
	return g.fill(content)
}

// Post generates one post for the given label.
func (g *Generator) Post(ctx context.Context, label string) LabeledPost {
	var content string
	switch label {
	case LabelMild:
		content = g.fill(g.pick(mildTemplates))
	case LabelModerate:
		content = g.fill(g.pick(moderateTemplates))
	case LabelSevere:
		content = g.fill(g.pick(severeTemplates))
	default:
		content = g.safeContent()
	}

	if g.llm != nil {
		prompt := "Rewrite the following social media post about finance in a natural voice, " +
			"keeping its meaning and tone exactly, in at most two sentences: " + content
		if rewritten, err := g.llm.Generate(ctx, prompt, 120); err == nil && rewritten != "" {
			content = strings.TrimSpace(rewritten)
		}
	}

	return LabeledPost{
		PostID:         uuid.NewString(),
		Username:       g.fake.Username(),
		Content:        content,
		Label:          label,
		Severity:       severityFor(label),
		ExpectedAction: string(expectedAction(label)),
		Timestamp:      time.Now().Add(-time.Duration(g.rng.Intn(30*24)) * time.Hour),
	}
}

// Dataset generates a shuffled dataset with the given label ratios. The
// ratios must sum to 1; severe absorbs rounding remainder.
func (g *Generator) Dataset(ctx context.Context, total int, safeRatio, mildRatio, moderateRatio float64) []LabeledPost {
	safeCount := int(float64(total) * safeRatio)
	mildCount := int(float64(total) * mildRatio)
	moderateCount := int(float64(total) * moderateRatio)
	severeCount := total - safeCount - mildCount - moderateCount

	posts := make([]LabeledPost, 0, total)
	for i := 0; i < safeCount; i++ {
		posts = append(posts, g.Post(ctx, LabelSafe))
	}
	for i := 0; i < mildCount; i++ {
		posts = append(posts, g.Post(ctx, LabelMild))
	}
	for i := 0; i < moderateCount; i++ {
		posts = append(posts, g.Post(ctx, LabelModerate))
	}
	for i := 0; i < severeCount; i++ {
		posts = append(posts, g.Post(ctx, LabelSevere))
	}

	g.rng.Shuffle(len(posts), func(i, j int) {
		posts[i], posts[j] = posts[j], posts[i]
	})
	return posts
}
