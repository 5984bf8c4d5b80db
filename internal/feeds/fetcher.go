package feeds

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"enpole.fr/paddock/internal/db"
	"enpole.fr/paddock/internal/globaltime"
)

const (
	DefaultFetchTimeout = 15 * time.Second

	defaultUserAgent = "paddock-fetcher/1.0"
)

// Fetcher retrieves raw entries from every configured source. One fetcher is
// built per process and reused across runs.
type Fetcher struct {
	sources      []Source
	parser       *gofeed.Parser
	perSourceCap int
	logger       zerolog.Logger
}

func NewFetcher(sources []Source, perSourceCap int, logger zerolog.Logger) *Fetcher {
	if perSourceCap <= 0 {
		perSourceCap = 20
	}

	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: DefaultFetchTimeout}
	parser.UserAgent = defaultUserAgent

	return &Fetcher{
		sources:      sources,
		parser:       parser,
		perSourceCap: perSourceCap,
		logger:       logger,
	}
}

// FetchAll retrieves entries from every source in configuration order. A
// source that is unreachable or malformed contributes nothing and is logged;
// it never aborts the batch.
func (f *Fetcher) FetchAll(ctx context.Context) []db.RawItem {
	if f == nil {
		return nil
	}

	items := make([]db.RawItem, 0, len(f.sources)*f.perSourceCap)
	for _, source := range f.sources {
		entries, err := f.fetchSource(ctx, source)
		if err != nil {
			f.logger.Warn().Err(err).Str("source", source.Name).Msg("feed fetch failed")
			continue
		}
		items = append(items, entries...)
	}
	return items
}

func (f *Fetcher) fetchSource(ctx context.Context, source Source) ([]db.RawItem, error) {
	feed, err := f.parser.ParseURLWithContext(source.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %q: %w", source.URL, err)
	}

	fetchedAt := globaltime.UTC()
	entries := feed.Items
	if len(entries) > f.perSourceCap {
		entries = entries[:f.perSourceCap]
	}

	items := make([]db.RawItem, 0, len(entries))
	for _, entry := range entries {
		title := strings.TrimSpace(entry.Title)
		if title == "" {
			continue
		}
		items = append(items, db.RawItem{
			Source:      source.Name,
			Title:       title,
			Description: strings.TrimSpace(entry.Description),
			URL:         strings.TrimSpace(entry.Link),
			PublishedAt: f.resolveEntryTime(entry, fetchedAt),
			FetchedAt:   fetchedAt,
		})
	}
	return items, nil
}

// resolveEntryTime prefers the parsed feed timestamp, then a best-effort
// parse of the raw string, then the fetch time.
func (f *Fetcher) resolveEntryTime(entry *gofeed.Item, fallback time.Time) time.Time {
	if entry.PublishedParsed != nil {
		return entry.PublishedParsed.UTC()
	}
	if entry.UpdatedParsed != nil {
		return entry.UpdatedParsed.UTC()
	}
	if raw := strings.TrimSpace(entry.Published); raw != "" {
		if ts, err := dateparse.ParseAny(raw); err == nil {
			return ts.UTC()
		}
		f.logger.Debug().Str("published", raw).Msg("unparsable feed timestamp, using fetch time")
	}
	return fallback
}
