package moderation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements RuleStore and LogSink backed by PostgreSQL.
// Candidate retrieval rides the GIN-indexed tsvector column on the rules
// table, so keyword/phrase matching inherits the tokenizer's
// case-insensitivity and stemming.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed store. The schema is managed
// by the migrations under migrations/.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const ruleColumns = "id, pattern, pattern_type, category, severity, action, description, is_active, created_at"

func scanRule(row interface{ Scan(...any) error }) (*Rule, error) {
	var r Rule
	var description sql.NullString
	err := row.Scan(&r.ID, &r.Pattern, &r.PatternType, &r.Category,
		&r.Severity, &r.Action, &description, &r.Active, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.Description = description.String
	return &r, nil
}

func collectRules(rows *sql.Rows) ([]*Rule, error) {
	defer rows.Close()

	var out []*Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		out = append(out, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}
	return out, nil
}

// Add inserts a new rule and returns its assigned ID.
func (s *PostgresStore) Add(ctx context.Context, rule *Rule) (int, error) {
	var id int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO rules (pattern, pattern_type, category, severity, action, description, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, rule.Pattern, rule.PatternType, rule.Category, rule.Severity,
		rule.Action, nullString(rule.Description), rule.Active).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert rule: %w", err)
	}
	return id, nil
}

// Get retrieves a rule by ID.
func (s *PostgresStore) Get(ctx context.Context, id int) (*Rule, error) {
	rule, err := scanRule(s.db.QueryRowContext(ctx, `
		SELECT `+ruleColumns+` FROM rules WHERE id = $1
	`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("rule %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return rule, nil
}

// List returns active rules, restricted to a category when one is given.
func (s *PostgresStore) List(ctx context.Context, category string) ([]*Rule, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if category == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+ruleColumns+` FROM rules
			WHERE is_active = TRUE
			ORDER BY category, severity DESC
		`)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+ruleColumns+` FROM rules
			WHERE is_active = TRUE AND category = $1
			ORDER BY severity DESC, created_at DESC
		`, category)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	return collectRules(rows)
}

// ListActiveByType returns all active rules of one pattern type.
func (s *PostgresStore) ListActiveByType(ctx context.Context, pt PatternType) ([]*Rule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+ruleColumns+` FROM rules
		WHERE is_active = TRUE AND pattern_type = $1
		ORDER BY id
	`, pt)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s rules: %w", pt, err)
	}
	return collectRules(rows)
}

// SearchIndexed returns active keyword/phrase rules whose pattern is a
// full-text match against content.
func (s *PostgresStore) SearchIndexed(ctx context.Context, content string) ([]*Rule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+ruleColumns+` FROM rules
		WHERE is_active = TRUE
		AND pattern_type IN ('keyword', 'phrase')
		AND search_vector @@ plainto_tsquery('english', $1)
	`, content)
	if err != nil {
		return nil, fmt.Errorf("full-text search failed: %w", err)
	}
	return collectRules(rows)
}

// Deactivate soft-disables a rule.
func (s *PostgresStore) Deactivate(ctx context.Context, id int) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE rules SET is_active = FALSE WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate rule: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("rule %d not found", id)
	}
	return nil
}

// LogResult persists a classification outcome to moderation_logs.
func (s *PostgresStore) LogResult(ctx context.Context, result *Result) error {
	matched, err := json.Marshal(result.Matched)
	if err != nil {
		return fmt.Errorf("failed to encode matched rules: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO moderation_logs
		(post_id, content, matched_rules, final_score, action, processing_time_ms)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, result.PostID, result.Content, matched, result.Score,
		result.Action, result.ProcessingTimeMS)
	if err != nil {
		return fmt.Errorf("failed to insert moderation log: %w", err)
	}
	return nil
}

// ModerationStats aggregates logged outcomes over a time window.
type ModerationStats struct {
	TotalPosts          int            `json:"total_posts"`
	AverageScore        float64        `json:"average_score"`
	AverageProcessingMS float64        `json:"average_processing_time_ms"`
	ActionCounts        map[string]int `json:"action_distribution"`
	CategoryCounts      map[string]int `json:"category_distribution"`
	Window              string         `json:"time_period"`
}

// ModerationStats reports aggregate outcomes for the last N hours.
func (s *PostgresStore) ModerationStats(ctx context.Context, hours int) (*ModerationStats, error) {
	stats := &ModerationStats{
		ActionCounts:   make(map[string]int),
		CategoryCounts: make(map[string]int),
		Window:         fmt.Sprintf("last %d hours", hours),
	}

	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)

	rows, err := s.db.QueryContext(ctx, `
		SELECT action, COUNT(*), AVG(final_score), AVG(processing_time_ms)
		FROM moderation_logs
		WHERE created_at >= $1
		GROUP BY action
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate moderation logs: %w", err)
	}
	defer rows.Close()

	var scoreSum, timeSum float64
	for rows.Next() {
		var action string
		var count int
		var avgScore, avgTime float64
		if err := rows.Scan(&action, &count, &avgScore, &avgTime); err != nil {
			return nil, fmt.Errorf("failed to scan action stats: %w", err)
		}
		stats.ActionCounts[action] = count
		stats.TotalPosts += count
		scoreSum += avgScore * float64(count)
		timeSum += avgTime * float64(count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating action stats: %w", err)
	}

	if stats.TotalPosts > 0 {
		stats.AverageScore = scoreSum / float64(stats.TotalPosts)
		stats.AverageProcessingMS = timeSum / float64(stats.TotalPosts)
	}

	catRows, err := s.db.QueryContext(ctx, `
		SELECT jsonb_array_elements(matched_rules)->>'category' AS category, COUNT(*)
		FROM moderation_logs
		WHERE created_at >= $1 AND matched_rules != '[]'::jsonb
		GROUP BY category
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate categories: %w", err)
	}
	defer catRows.Close()

	for catRows.Next() {
		var category string
		var count int
		if err := catRows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("failed to scan category stats: %w", err)
		}
		stats.CategoryCounts[category] = count
	}
	if err := catRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category stats: %w", err)
	}

	return stats, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
