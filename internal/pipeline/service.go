package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"enpole.fr/paddock/internal/db"
	"enpole.fr/paddock/internal/globaltime"
)

// minSummaryInputRunes is the point below which the combined feed text is
// considered too thin to summarize without page enrichment.
const minSummaryInputRunes = 280

// Store is the durable storage consumed by the pipeline.
type Store interface {
	InsertRawItems(ctx context.Context, items []db.RawItem) error
	InsertStory(ctx context.Context, story db.PublishedStory) (bool, error)
	StoryExistsByKeyHash(ctx context.Context, keyHash string) (bool, error)
}

// Fetcher supplies the raw item batch for one run.
type Fetcher interface {
	FetchAll(ctx context.Context) []db.RawItem
}

// Reformulator turns a confirmed group's raw text into a publish-ready
// summary.
type Reformulator interface {
	Reformulate(ctx context.Context, candidateTitle, rawText string, urls []string) (string, error)
}

// Enricher supplies readable page text for a URL when feed descriptions are
// too thin to summarize. Optional; failures are non-fatal.
type Enricher func(ctx context.Context, pageURL, title string) (string, error)

// RunStats summarizes one pipeline invocation.
type RunStats struct {
	ItemsFetched     int `json:"items_fetched"`
	GroupsFormed     int `json:"groups_formed"`
	GroupsConfirmed  int `json:"groups_confirmed"`
	StoriesPublished int `json:"stories_published"`
}

// Service sequences fetch, group, confirm, reformulate and publish. It holds
// no state between runs; the durable store is the only cross-run memory.
type Service struct {
	store      Store
	fetcher    Fetcher
	reform     Reformulator
	enrich     Enricher
	minSources int
	logger     zerolog.Logger
}

func NewService(store Store, fetcher Fetcher, reform Reformulator, minSources int, logger zerolog.Logger) *Service {
	if minSources < 1 {
		minSources = 2
	}
	return &Service{
		store:      store,
		fetcher:    fetcher,
		reform:     reform,
		minSources: minSources,
		logger:     logger,
	}
}

// WithEnricher attaches an optional page-text enricher and returns the
// service for chaining.
func (s *Service) WithEnricher(enrich Enricher) *Service {
	s.enrich = enrich
	return s
}

// Run executes one full pipeline cycle. Raw items are persisted regardless
// of the grouping outcome; grouping only ever sees this run's batch.
func (s *Service) Run(ctx context.Context) (RunStats, error) {
	var stats RunStats
	if s == nil || s.store == nil || s.fetcher == nil {
		return stats, fmt.Errorf("pipeline service is not initialized")
	}

	items := s.fetcher.FetchAll(ctx)
	stats.ItemsFetched = len(items)

	if err := s.store.InsertRawItems(ctx, items); err != nil {
		return RunStats{}, fmt.Errorf("persist raw items: %w", err)
	}

	groups := GroupItems(items)
	stats.GroupsFormed = len(groups)

	for _, group := range groups {
		if !group.Confirmed(s.minSources) {
			s.logger.Debug().
				Str("title", group.Title).
				Int("sources", len(group.Sources())).
				Msg("group below confirmation threshold")
			continue
		}
		stats.GroupsConfirmed++

		summary := s.summarize(ctx, group)
		published, err := s.Publish(ctx, group.Title, summary, firstURL(group), group.Sources(), group.EarliestPublishedAt())
		if err != nil {
			return RunStats{}, fmt.Errorf("publish %q: %w", group.Title, err)
		}
		if published {
			stats.StoriesPublished++
		}
	}

	s.logger.Info().
		Int("items_fetched", stats.ItemsFetched).
		Int("groups_formed", stats.GroupsFormed).
		Int("groups_confirmed", stats.GroupsConfirmed).
		Int("stories_published", stats.StoriesPublished).
		Msg("pipeline run completed")
	return stats, nil
}

// Publish writes at most one story per derived key. The existence probe is a
// cheap skip only; the store's unique constraint on key_hash makes the insert
// atomic, so overlapping runs cannot double-publish. A duplicate is a normal
// false return, not an error.
func (s *Service) Publish(
	ctx context.Context,
	title, summary, primaryURL string,
	sources []string,
	publishedAt time.Time,
) (bool, error) {
	keyHash := DeriveKey(title)

	exists, err := s.store.StoryExistsByKeyHash(ctx, keyHash)
	if err != nil {
		return false, fmt.Errorf("check key hash: %w", err)
	}
	if exists {
		s.logger.Debug().Str("key_hash", keyHash).Str("title", title).Msg("story already published")
		return false, nil
	}

	inserted, err := s.store.InsertStory(ctx, db.PublishedStory{
		KeyHash:     keyHash,
		Title:       title,
		Summary:     summary,
		PrimaryURL:  primaryURL,
		Sources:     db.JoinSources(sources),
		PublishedAt: publishedAt.UTC(),
		CreatedAt:   globaltime.UTC(),
	})
	if err != nil {
		return false, fmt.Errorf("insert story: %w", err)
	}

	if inserted {
		s.logger.Info().Str("key_hash", keyHash).Str("title", title).Msg("story published")
	} else {
		s.logger.Debug().Str("key_hash", keyHash).Str("title", title).Msg("story lost insert race, skipped")
	}
	return inserted, nil
}

// PublishPlaceholder inserts an hour-stamped quiet-news story through the
// regular idempotent publish path. The filler trigger calls it when an hour
// passes without a publication; the hour stamp in the title keys at most one
// placeholder per hour.
func (s *Service) PublishPlaceholder(ctx context.Context) (bool, error) {
	if s == nil || s.store == nil {
		return false, fmt.Errorf("pipeline service is not initialized")
	}

	hour := globaltime.UTC().Truncate(time.Hour)
	title := fmt.Sprintf("Paddock calme ce %s", hour.Format("02 Jan 2006 15h"))
	summary := "Aucune actualité corroborée par plusieurs sources sur la dernière heure."
	return s.Publish(ctx, title, summary, "", []string{"paddock"}, hour)
}

func (s *Service) summarize(ctx context.Context, group *StoryGroup) string {
	raw := group.CombinedText()

	if s.enrich != nil && utf8.RuneCountInString(raw) < minSummaryInputRunes {
		if text, err := s.enrich(ctx, firstURL(group), group.Title); err != nil {
			s.logger.Debug().Err(err).Str("title", group.Title).Msg("page enrichment failed")
		} else if text != "" {
			raw = strings.TrimSpace(raw + "\n\n" + text)
		}
	}

	if s.reform == nil {
		return group.Title
	}

	summary, err := s.reform.Reformulate(ctx, group.Title, raw, group.URLs())
	if err != nil || strings.TrimSpace(summary) == "" {
		s.logger.Warn().Err(err).Str("title", group.Title).Msg("reformulation failed, using candidate title")
		return group.Title
	}
	return strings.TrimSpace(summary)
}

func firstURL(group *StoryGroup) string {
	urls := group.URLs()
	if len(urls) == 0 {
		return ""
	}
	return urls[0]
}
