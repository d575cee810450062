package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/archon-labs/intelligence-engine/pkg/database/pgxpool_manager"
)

// PostgresPatternStore backs PatternStore with a relational table of
// success patterns, using the teacher's pgxpool_manager for a pooled,
// OTel-traced connection rather than opening one connection per query.
// Its schema lives under internal/store/migrations and is applied by
// RunMigrations before the store is ever queried.
type PostgresPatternStore struct {
	manager *pgxpool_manager.PgxPoolManager
}

// NewPostgresPatternStore wraps an already-started pool manager.
func NewPostgresPatternStore(manager *pgxpool_manager.PgxPoolManager) *PostgresPatternStore {
	return &PostgresPatternStore{manager: manager}
}

// Lookup queries the patterns table. Traversal of parent patterns, if
// ever needed by a caller, follows ParentID as a second Lookup call —
// never an in-memory pointer — so the (id, parent_id) tuple model can
// never produce a cycle in this process.
func (s *PostgresPatternStore) Lookup(ctx context.Context, filters PatternFilters) ([]Pattern, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, parent_id, keywords, quality_score, success_rate, domain, created_at
		FROM success_patterns
		WHERE quality_score >= $1
	`
	args := []any{filters.MinScore}
	argN := 2

	if filters.Domain != "" {
		query += fmt.Sprintf(" AND domain = $%d", argN)
		args = append(args, filters.Domain)
		argN++
	}
	if len(filters.Keywords) > 0 {
		query += fmt.Sprintf(" AND keywords && $%d", argN)
		args = append(args, normalizeKeywords(filters.Keywords))
		argN++
	}
	query += fmt.Sprintf(" ORDER BY success_rate DESC LIMIT $%d", argN)
	args = append(args, limit)

	rows, err := s.manager.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: pattern lookup: %w", err)
	}
	defer rows.Close()

	var patterns []Pattern
	for rows.Next() {
		var (
			p        Pattern
			parentID *string
			domain   string
			created  time.Time
		)
		if err := rows.Scan(&p.ID, &parentID, &p.Keywords, &p.QualityScore, &p.SuccessRate, &domain, &created); err != nil {
			return nil, fmt.Errorf("store: scan pattern row: %w", err)
		}
		if parentID != nil {
			p.ParentID = *parentID
		}
		p.CreatedAt = created
		p.Metadata = map[string]string{"domain": domain}
		patterns = append(patterns, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: pattern rows: %w", err)
	}
	return patterns, nil
}

// normalizeKeywords lower-cases and trims a keyword slice before it is
// used in a query, matching the case-folding the scorer applies.
func normalizeKeywords(keywords []string) []string {
	out := make([]string, len(keywords))
	for i, k := range keywords {
		out[i] = strings.ToLower(strings.TrimSpace(k))
	}
	return out
}
