package moderation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"
)

// RuleStore manages rule persistence and retrieval. SearchIndexed is the
// candidate-retrieval phase of classification: a recall-oriented full-text
// prefilter over active keyword and phrase rules.
type RuleStore interface {
	// Add validates nothing itself; it assigns and returns the new rule ID.
	Add(ctx context.Context, rule *Rule) (int, error)

	// Get retrieves a rule by ID.
	Get(ctx context.Context, id int) (*Rule, error)

	// List returns active rules, restricted to a category when one is given.
	List(ctx context.Context, category string) ([]*Rule, error)

	// ListActiveByType returns all active rules of one pattern type.
	ListActiveByType(ctx context.Context, pt PatternType) ([]*Rule, error)

	// SearchIndexed returns active keyword/phrase rules whose pattern is a
	// full-text match against content. Case-insensitive and stem/prefix
	// tolerant; no ordering guarantee.
	SearchIndexed(ctx context.Context, content string) ([]*Rule, error)

	// Deactivate soft-disables a rule. Inactive rules are invisible to
	// matching but keep their IDs.
	Deactivate(ctx context.Context, id int) error
}

// LogSink persists classification outcomes. A sink failure must never fail
// the classification already returned to the caller.
type LogSink interface {
	LogResult(ctx context.Context, result *Result) error
}

// MemoryStore implements RuleStore with an in-memory map. It backs unit
// tests and DB-less deployments; SearchIndexed emulates the tokenizer
// behavior of the Postgres full-text index.
type MemoryStore struct {
	mu     sync.RWMutex
	rules  map[int]*Rule
	nextID int
}

// NewMemoryStore creates an empty in-memory rule store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rules:  make(map[int]*Rule),
		nextID: 1,
	}
}

// Add stores a rule and assigns the next sequential ID.
func (s *MemoryStore) Add(ctx context.Context, rule *Rule) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	stored := *rule
	stored.ID = id
	stored.CreatedAt = time.Now()
	s.rules[id] = &stored
	return id, nil
}

// Get retrieves a rule by ID.
func (s *MemoryStore) Get(ctx context.Context, id int) (*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, ok := s.rules[id]
	if !ok {
		return nil, fmt.Errorf("rule %d not found", id)
	}
	copied := *rule
	return &copied, nil
}

// List returns active rules, optionally restricted to one category.
func (s *MemoryStore) List(ctx context.Context, category string) ([]*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Rule
	for _, rule := range s.rules {
		if !rule.Active {
			continue
		}
		if category != "" && rule.Category != category {
			continue
		}
		copied := *rule
		out = append(out, &copied)
	}
	return out, nil
}

// ListActiveByType returns active rules of the given pattern type.
func (s *MemoryStore) ListActiveByType(ctx context.Context, pt PatternType) ([]*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Rule
	for _, rule := range s.rules {
		if rule.Active && rule.PatternType == pt {
			copied := *rule
			out = append(out, &copied)
		}
	}
	return out, nil
}

// SearchIndexed matches active keyword/phrase rules against content the way
// plainto_tsquery does: case-insensitive word tokens, every pattern token
// present in the content, with prefix tolerance standing in for stemming
// ("scam" matches "scams").
func (s *MemoryStore) SearchIndexed(ctx context.Context, content string) ([]*Rule, error) {
	contentTokens := tokenize(content)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Rule
	for _, rule := range s.rules {
		if !rule.Active {
			continue
		}
		if rule.PatternType != PatternKeyword && rule.PatternType != PatternPhrase {
			continue
		}
		if tokensMatch(tokenize(rule.Pattern), contentTokens) {
			copied := *rule
			out = append(out, &copied)
		}
	}
	return out, nil
}

// Deactivate soft-disables a rule.
func (s *MemoryStore) Deactivate(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, ok := s.rules[id]
	if !ok {
		return fmt.Errorf("rule %d not found", id)
	}
	rule.Active = false
	return nil
}

// tokenize lowercases and splits on anything that is not a letter or digit.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// tokensMatch reports whether every pattern token appears among the content
// tokens, treating a content token as a hit when the pattern token is a
// prefix of it.
func tokensMatch(patternTokens, contentTokens []string) bool {
	if len(patternTokens) == 0 {
		return false
	}
	for _, pt := range patternTokens {
		found := false
		for _, ct := range contentTokens {
			if strings.HasPrefix(ct, pt) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// MemorySink is a LogSink that keeps results in memory, for tests and
// DB-less runs.
type MemorySink struct {
	mu      sync.Mutex
	results []*Result
}

// NewMemorySink creates an empty in-memory log sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// LogResult appends the result.
func (s *MemorySink) LogResult(ctx context.Context, result *Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return nil
}

// Results returns a snapshot of everything logged so far.
func (s *MemorySink) Results() []*Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Result, len(s.results))
	copy(out, s.results)
	return out
}
