package moderation

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"
)

// batchWorkers bounds concurrent classifications in ClassifyBatch.
const batchWorkers = 8

// Engine sequences the classification pipeline: candidate retrieval and
// regex evaluation (concurrent), aggregation, scoring, action decision and
// explanation. Compiled regex programs are cached per rule ID.
//
// Classify never returns an error: any internal failure, including
// collaborator failures, degrades into a safe review result.
type Engine struct {
	store RuleStore
	sink  LogSink
	cache RulesCache
	log   *slog.Logger

	mu       sync.RWMutex
	programs map[int]*compiledPattern
}

// compiledPattern pins the source the program was compiled from, so a
// stale cache entry is never used for a different pattern.
type compiledPattern struct {
	source string
	re     *regexp.Regexp
}

// NewEngine creates a classification engine. The sink may be nil, in which
// case results are only returned, not persisted.
func NewEngine(store RuleStore, sink LogSink, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		store:    store,
		sink:     sink,
		cache:    NewMemoryRulesCache(DefaultCacheConfig()),
		log:      log,
		programs: make(map[int]*compiledPattern),
	}
}

// Classify analyzes one piece of content and returns a fully populated
// result. On any pipeline failure it returns a degraded result (score 0,
// action review, empty matches) carrying the failure reason; it never
// panics past this boundary.
func (en *Engine) Classify(ctx context.Context, postID, content string) (result *Result) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			en.log.Error("classification panicked", "post_id", postID, "panic", r)
			result = en.degraded(postID, content, start, fmt.Errorf("internal error: %v", r))
		}
	}()

	matches, err := en.match(ctx, content)
	if err != nil {
		en.log.Error("classification failed", "post_id", postID, "error", err)
		return en.degraded(postID, content, start, err)
	}

	score := Score(matches)
	action := Decide(score)

	result = &Result{
		PostID:           postID,
		Content:          content,
		Score:            score,
		Action:           action,
		Matched:          matches,
		Explanation:      Explain(matches, score, action),
		Timestamp:        start,
		ProcessingTimeMS: time.Since(start).Milliseconds(),
	}

	if en.sink != nil {
		if err := en.sink.LogResult(ctx, result); err != nil {
			// Fire-and-forget: the caller already has a valid result.
			en.log.Warn("failed to persist moderation result", "post_id", postID, "error", err)
		}
	}

	en.log.Debug("classified content",
		"post_id", postID,
		"score", result.Score,
		"action", result.Action,
		"matched", len(result.Matched),
		"elapsed_ms", result.ProcessingTimeMS)

	return result
}

// ClassifyBatch classifies posts independently over a bounded worker pool
// and returns results in input order. Per-item failures degrade that item
// only.
func (en *Engine) ClassifyBatch(ctx context.Context, posts []Post) []*Result {
	results := make([]*Result, len(posts))
	sem := make(chan struct{}, batchWorkers)

	var wg sync.WaitGroup
	for i, p := range posts {
		wg.Add(1)
		go func(i int, p Post) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = en.Classify(ctx, p.ID, p.Content)
		}(i, p)
	}
	wg.Wait()

	return results
}

// match runs the two retrieval phases concurrently and aggregates their
// union. A failure in either phase fails the whole match; individual bad
// regex patterns do not.
func (en *Engine) match(ctx context.Context, content string) ([]MatchedRule, error) {
	type phase struct {
		rules []*Rule
		err   error
	}

	candidateCh := make(chan phase, 1)
	regexCh := make(chan phase, 1)

	// Each goroutine recovers its own panics: an escaped panic in a
	// goroutine would crash the process regardless of the Classify guard.
	go func() {
		defer func() {
			if r := recover(); r != nil {
				candidateCh <- phase{err: fmt.Errorf("indexed search panicked: %v", r)}
			}
		}()
		rules, err := en.store.SearchIndexed(ctx, content)
		candidateCh <- phase{rules: rules, err: err}
	}()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				regexCh <- phase{err: fmt.Errorf("regex evaluation panicked: %v", r)}
			}
		}()
		rules, err := en.evaluateRegex(ctx, content)
		regexCh <- phase{rules: rules, err: err}
	}()

	candidates := <-candidateCh
	regexes := <-regexCh

	if candidates.err != nil {
		return nil, fmt.Errorf("indexed search failed: %w", candidates.err)
	}
	if regexes.err != nil {
		return nil, fmt.Errorf("regex evaluation failed: %w", regexes.err)
	}

	return aggregate(append(candidates.rules, regexes.rules...)), nil
}

// evaluateRegex tests all active regex rules against content. Each matching
// rule is counted once for this phase; occurrence counting happens in
// aggregation. A pattern that fails to compile is logged and skipped, never
// fatal.
func (en *Engine) evaluateRegex(ctx context.Context, content string) ([]*Rule, error) {
	rules := en.cache.Get()
	if rules == nil {
		var err error
		rules, err = en.store.ListActiveByType(ctx, PatternRegex)
		if err != nil {
			return nil, err
		}
		en.cache.Set(rules)
	}

	var matched []*Rule
	for _, rule := range rules {
		re, err := en.program(rule)
		if err != nil {
			en.log.Warn("skipping rule with invalid regex pattern",
				"rule_id", rule.ID, "pattern", rule.Pattern, "error", err)
			continue
		}
		if re.MatchString(content) {
			matched = append(matched, rule)
		}
	}
	return matched, nil
}

// program returns the compiled case-insensitive program for a regex rule,
// compiling and caching it on first use.
func (en *Engine) program(rule *Rule) (*regexp.Regexp, error) {
	en.mu.RLock()
	cp, ok := en.programs[rule.ID]
	en.mu.RUnlock()
	if ok && cp.source == rule.Pattern {
		return cp.re, nil
	}

	re, err := regexp.Compile("(?i)" + rule.Pattern)
	if err != nil {
		return nil, err
	}

	en.mu.Lock()
	en.programs[rule.ID] = &compiledPattern{source: rule.Pattern, re: re}
	en.mu.Unlock()

	return re, nil
}

// aggregate folds the combined candidate+regex sequence into per-rule
// matches: first appearance inserts with MatchCount 1, repeats increment.
// First-seen order is preserved for explanation determinism; the counts are
// independent of input order.
func aggregate(rules []*Rule) []MatchedRule {
	seen := make(map[int]int, len(rules))
	out := []MatchedRule{}

	for _, r := range rules {
		if i, ok := seen[r.ID]; ok {
			out[i].MatchCount++
			continue
		}
		seen[r.ID] = len(out)
		out = append(out, MatchedRule{
			RuleID:      r.ID,
			Pattern:     r.Pattern,
			PatternType: r.PatternType,
			Category:    r.Category,
			Severity:    r.Severity,
			Action:      r.Action,
			Description: r.Description,
			MatchCount:  1,
		})
	}
	return out
}

// degraded builds the safe fallback result: score 0, action review, the
// failure reason in the explanation, and the elapsed time so far.
func (en *Engine) degraded(postID, content string, start time.Time, err error) *Result {
	return &Result{
		PostID:           postID,
		Content:          content,
		Score:            0.0,
		Action:           ActionReview,
		Matched:          []MatchedRule{},
		Explanation:      fmt.Sprintf("Analysis failed: %v", err),
		Timestamp:        start,
		ProcessingTimeMS: time.Since(start).Milliseconds(),
	}
}

// AddRule validates a rule and stores it. Validation errors surface to the
// caller; there is no safe default for a malformed rule.
func (en *Engine) AddRule(ctx context.Context, rule *Rule) (int, error) {
	if err := rule.Validate(); err != nil {
		return 0, err
	}

	id, err := en.store.Add(ctx, rule)
	if err != nil {
		return 0, fmt.Errorf("failed to store rule: %w", err)
	}
	rule.ID = id

	en.cache.Invalidate()
	return id, nil
}

// DeactivateRule soft-disables a rule and drops its compiled program.
func (en *Engine) DeactivateRule(ctx context.Context, id int) error {
	if err := en.store.Deactivate(ctx, id); err != nil {
		return err
	}

	en.mu.Lock()
	delete(en.programs, id)
	en.mu.Unlock()

	en.cache.Invalidate()
	return nil
}

// RuleStats summarizes the active rule set.
type RuleStats struct {
	TotalRules    int                 `json:"total_rules"`
	ByCategory    map[string]int      `json:"category_distribution"`
	BySeverity    map[int]int         `json:"severity_distribution"`
	ByPatternType map[PatternType]int `json:"pattern_type_distribution"`
}

// Stats counts active rules by category, severity and pattern type.
func (en *Engine) Stats(ctx context.Context) (*RuleStats, error) {
	rules, err := en.store.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	stats := &RuleStats{
		TotalRules:    len(rules),
		ByCategory:    make(map[string]int),
		BySeverity:    make(map[int]int),
		ByPatternType: make(map[PatternType]int),
	}
	for _, r := range rules {
		stats.ByCategory[r.Category]++
		stats.BySeverity[r.Severity]++
		stats.ByPatternType[r.PatternType]++
	}
	return stats, nil
}

// MatchReport is a debugging view of how content matched the rule set.
type MatchReport struct {
	Content      string        `json:"content"`
	TotalRules   int           `json:"total_rules"`
	MatchedRules int           `json:"matched_rules"`
	MatchPercent float64       `json:"match_percentage"`
	Matches      []MatchedRule `json:"matches"`
}

// TestMatch runs the matching phases without scoring or logging, for rule
// debugging. Unlike Classify, errors surface to the caller.
func (en *Engine) TestMatch(ctx context.Context, content string) (*MatchReport, error) {
	matches, err := en.match(ctx, content)
	if err != nil {
		return nil, err
	}

	all, err := en.store.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	report := &MatchReport{
		Content:      content,
		TotalRules:   len(all),
		MatchedRules: len(matches),
		Matches:      matches,
	}
	if len(all) > 0 {
		report.MatchPercent = float64(len(matches)) / float64(len(all)) * 100
	}
	return report, nil
}

// Seed inserts the built-in sample rules, skipping any that fail, and
// returns the number inserted.
func (en *Engine) Seed(ctx context.Context) int {
	inserted := 0
	for _, sample := range SampleRules() {
		rule := sample
		if _, err := en.AddRule(ctx, &rule); err != nil {
			en.log.Warn("failed to seed rule", "pattern", rule.Pattern, "error", err)
			continue
		}
		inserted++
	}
	en.log.Info("seeded sample rules", "count", inserted)
	return inserted
}
