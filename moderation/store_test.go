package moderation

import (
	"context"
	"testing"
)

func TestRuleStoreInterface(t *testing.T) {
	var _ RuleStore = (*MemoryStore)(nil)
	var _ RuleStore = (*PostgresStore)(nil)
	var _ LogSink = (*MemorySink)(nil)
	var _ LogSink = (*PostgresStore)(nil)
}

func addRule(t *testing.T, store *MemoryStore, rule Rule) int {
	t.Helper()
	id, err := store.Add(context.Background(), &rule)
	if err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	return id
}

func TestMemoryStoreAddAssignsIDs(t *testing.T) {
	store := NewMemoryStore()

	first := addRule(t, store, Rule{Pattern: "scam", PatternType: PatternKeyword,
		Category: "fraud", Severity: 3, Action: ActionBlock, Active: true})
	second := addRule(t, store, Rule{Pattern: "spam", PatternType: PatternKeyword,
		Category: "spam", Severity: 1, Action: ActionReview, Active: true})

	if first == second {
		t.Errorf("IDs should be unique, both %d", first)
	}

	rule, err := store.Get(context.Background(), first)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if rule.Pattern != "scam" {
		t.Errorf("Pattern = %q, want scam", rule.Pattern)
	}
	if rule.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set on Add")
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Get(context.Background(), 42); err == nil {
		t.Error("Get() should fail for missing rule")
	}
}

func TestMemoryStoreListFiltersByCategory(t *testing.T) {
	store := NewMemoryStore()
	addRule(t, store, Rule{Pattern: "a", PatternType: PatternKeyword,
		Category: "spam", Severity: 1, Action: ActionReview, Active: true})
	addRule(t, store, Rule{Pattern: "b", PatternType: PatternKeyword,
		Category: "fraud", Severity: 3, Action: ActionBlock, Active: true})
	addRule(t, store, Rule{Pattern: "c", PatternType: PatternKeyword,
		Category: "spam", Severity: 1, Action: ActionReview, Active: false})

	all, err := store.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("List(\"\") returned %d rules, want 2 (inactive excluded)", len(all))
	}

	spam, err := store.List(context.Background(), "spam")
	if err != nil {
		t.Fatalf("List(spam) failed: %v", err)
	}
	if len(spam) != 1 {
		t.Errorf("List(spam) returned %d rules, want 1", len(spam))
	}
}

func TestMemoryStoreListActiveByType(t *testing.T) {
	store := NewMemoryStore()
	addRule(t, store, Rule{Pattern: "scam", PatternType: PatternKeyword,
		Category: "fraud", Severity: 3, Action: ActionBlock, Active: true})
	addRule(t, store, Rule{Pattern: `free.*money`, PatternType: PatternRegex,
		Category: "spam", Severity: 1, Action: ActionReview, Active: true})
	addRule(t, store, Rule{Pattern: `pump.*dump`, PatternType: PatternRegex,
		Category: "manipulation", Severity: 3, Action: ActionBlock, Active: false})

	regexes, err := store.ListActiveByType(context.Background(), PatternRegex)
	if err != nil {
		t.Fatalf("ListActiveByType() failed: %v", err)
	}
	if len(regexes) != 1 {
		t.Fatalf("got %d regex rules, want 1", len(regexes))
	}
	if regexes[0].Pattern != `free.*money` {
		t.Errorf("Pattern = %q, want free.*money", regexes[0].Pattern)
	}
}

func TestMemoryStoreSearchIndexed(t *testing.T) {
	store := NewMemoryStore()
	addRule(t, store, Rule{Pattern: "scam", PatternType: PatternKeyword,
		Category: "fraud", Severity: 3, Action: ActionBlock, Active: true})
	addRule(t, store, Rule{Pattern: "get rich quick", PatternType: PatternPhrase,
		Category: "scam", Severity: 2, Action: ActionFlag, Active: true})
	addRule(t, store, Rule{Pattern: `insider.*tip`, PatternType: PatternRegex,
		Category: "fraud", Severity: 3, Action: ActionBlock, Active: true})
	addRule(t, store, Rule{Pattern: "ponzi", PatternType: PatternKeyword,
		Category: "scam", Severity: 3, Action: ActionBlock, Active: false})

	testCases := []struct {
		name    string
		content string
		want    int
	}{
		{"keyword hit", "this is a scam", 1},
		{"case-insensitive", "This Is A SCAM", 1},
		{"stem tolerance via prefix", "so many scams around here", 1},
		{"phrase needs all tokens", "how to get rich quick with crypto", 1},
		{"phrase partial tokens miss", "how to get rich slowly", 0},
		{"regex rules not indexed", "insider tip for you", 0},
		{"inactive invisible", "classic ponzi", 0},
		{"no match", "hello world", 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := store.SearchIndexed(context.Background(), tc.content)
			if err != nil {
				t.Fatalf("SearchIndexed() failed: %v", err)
			}
			if len(got) != tc.want {
				t.Errorf("SearchIndexed(%q) returned %d rules, want %d", tc.content, len(got), tc.want)
			}
		})
	}
}

func TestMemoryStoreDeactivate(t *testing.T) {
	store := NewMemoryStore()
	id := addRule(t, store, Rule{Pattern: "scam", PatternType: PatternKeyword,
		Category: "fraud", Severity: 3, Action: ActionBlock, Active: true})

	if err := store.Deactivate(context.Background(), id); err != nil {
		t.Fatalf("Deactivate() failed: %v", err)
	}

	rules, err := store.SearchIndexed(context.Background(), "a scam")
	if err != nil {
		t.Fatalf("SearchIndexed() failed: %v", err)
	}
	if len(rules) != 0 {
		t.Error("deactivated rule should be invisible to matching")
	}

	// The rule keeps its identity.
	rule, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get() failed after Deactivate(): %v", err)
	}
	if rule.Active {
		t.Error("rule should be inactive")
	}

	if err := store.Deactivate(context.Background(), 999); err == nil {
		t.Error("Deactivate() should fail for missing rule")
	}
}

func TestTokenize(t *testing.T) {
	got := tokenize("Get-Rich QUICK, now!!")
	want := []string{"get", "rich", "quick", "now"}
	if len(got) != len(want) {
		t.Fatalf("tokenize() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
