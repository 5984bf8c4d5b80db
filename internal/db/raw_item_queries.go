package db

import (
	"context"
	"fmt"
)

// InsertRawItems appends one audit row per fetched item inside a single
// transaction. It never updates existing rows.
func (p *Pool) InsertRawItems(ctx context.Context, items []RawItem) error {
	if p == nil || p.gdb == nil {
		return fmt.Errorf("database pool is not initialized")
	}
	if len(items) == 0 {
		return nil
	}

	tx, err := p.BeginTx(ctx, TxOptions{})
	if err != nil {
		return fmt.Errorf("begin raw item tx: %w", err)
	}

	const q = `
INSERT INTO news.raw_items (source, title, description, url, published_at, fetched_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for _, item := range items {
		if _, err := tx.Exec(
			ctx,
			q,
			item.Source,
			item.Title,
			item.Description,
			item.URL,
			item.PublishedAt.UTC(),
			item.FetchedAt.UTC(),
			item.FetchedAt.UTC(),
		); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("insert raw item from %q: %w", item.Source, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("commit raw item tx: %w", err)
	}
	return nil
}

// CountRawItems reports how many audit rows exist.
func (p *Pool) CountRawItems(ctx context.Context) (int64, error) {
	if p == nil || p.gdb == nil {
		return 0, fmt.Errorf("database pool is not initialized")
	}

	var count int64
	if err := p.QueryRow(ctx, `SELECT COUNT(*) FROM news.raw_items`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count raw items: %w", err)
	}
	return count, nil
}
