package db

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// StorySummary is the read model served by the stories endpoint and CLI.
type StorySummary struct {
	StoryID     int64     `json:"story_id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	PrimaryURL  string    `json:"url"`
	Sources     []string  `json:"sources"`
	PublishedAt time.Time `json:"published_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// InsertStory inserts at most one row per key hash. The unique constraint on
// key_hash makes the insert-ignore atomic, so overlapping runs cannot publish
// the same story twice. Returns false when the key hash was already present.
func (p *Pool) InsertStory(ctx context.Context, story PublishedStory) (bool, error) {
	if p == nil || p.gdb == nil {
		return false, fmt.Errorf("database pool is not initialized")
	}

	const q = `
INSERT INTO news.published_stories (key_hash, title, summary, primary_url, sources, published_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (key_hash) DO NOTHING`

	tag, err := p.Exec(
		ctx,
		q,
		story.KeyHash,
		story.Title,
		story.Summary,
		story.PrimaryURL,
		story.Sources,
		story.PublishedAt.UTC(),
		story.CreatedAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("insert published story: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// StoryExistsByKeyHash reports whether a story with the given key hash is
// already published. Callers may use it as a cheap skip; InsertStory remains
// the authoritative dedup point.
func (p *Pool) StoryExistsByKeyHash(ctx context.Context, keyHash string) (bool, error) {
	if p == nil || p.gdb == nil {
		return false, fmt.Errorf("database pool is not initialized")
	}

	var exists bool
	const q = `SELECT EXISTS (SELECT 1 FROM news.published_stories WHERE key_hash = $1)`
	if err := p.QueryRow(ctx, q, keyHash).Scan(&exists); err != nil {
		return false, fmt.Errorf("check story key hash: %w", err)
	}
	return exists, nil
}

// ListRecentStories returns published stories ordered by event time, newest
// first, ties broken by insertion order.
func (p *Pool) ListRecentStories(ctx context.Context, limit int) ([]StorySummary, error) {
	if p == nil || p.gdb == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	const q = `
SELECT story_id, title, summary, primary_url, sources, published_at, created_at
FROM news.published_stories
ORDER BY published_at DESC, story_id DESC
LIMIT $1`

	rows, err := p.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent stories: %w", err)
	}
	defer rows.Close()

	summaries := make([]StorySummary, 0, limit)
	for rows.Next() {
		var (
			summary    StorySummary
			sourcesRaw string
		)
		if err := rows.Scan(
			&summary.StoryID,
			&summary.Title,
			&summary.Summary,
			&summary.PrimaryURL,
			&sourcesRaw,
			&summary.PublishedAt,
			&summary.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan story row: %w", err)
		}
		summary.Sources = SplitSources(sourcesRaw)
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate story rows: %w", err)
	}
	return summaries, nil
}

// JoinSources serializes a source-name set into the stored representation,
// sorted for stable output.
func JoinSources(sources []string) string {
	cleaned := make([]string, 0, len(sources))
	seen := make(map[string]struct{}, len(sources))
	for _, source := range sources {
		trimmed := strings.TrimSpace(source)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		cleaned = append(cleaned, trimmed)
	}
	sort.Strings(cleaned)
	return strings.Join(cleaned, ",")
}

// SplitSources parses the stored representation back into a slice.
func SplitSources(raw string) []string {
	parts := strings.Split(raw, ",")
	sources := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		sources = append(sources, trimmed)
	}
	return sources
}
