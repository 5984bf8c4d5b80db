package app

import (
	"context"

	"github.com/rs/zerolog"

	"enpole.fr/paddock/internal/config"
	"enpole.fr/paddock/internal/db"
	"enpole.fr/paddock/internal/feeds"
	"enpole.fr/paddock/internal/pipeline"
	"enpole.fr/paddock/internal/reader"
	"enpole.fr/paddock/internal/reform"
)

const enrichmentTextLimit = 6000

// buildService assembles the pipeline from configuration: feed registry,
// fetcher, reformulation client and the optional reader enrichment.
func buildService(cfg *config.Config, pool *db.Pool, logger zerolog.Logger) (*pipeline.Service, *reform.Client, error) {
	sources, err := feeds.LoadSources(cfg.FeedSourcesFile)
	if err != nil {
		return nil, nil, err
	}

	fetcher := feeds.NewFetcher(sources, cfg.PerSourceItemCap, logger)
	reformClient := reform.NewClient(cfg.OpenAIEndpoint, cfg.OpenAIModel, cfg.OpenAIAPIKey)

	svc := pipeline.NewService(pool, fetcher, reformClient, cfg.MinConfirmingSources, logger).
		WithEnricher(func(ctx context.Context, pageURL, title string) (string, error) {
			text, err := reader.FetchText(ctx, pageURL, title)
			if err != nil {
				return "", err
			}
			clipped, _ := reader.TruncateText(text, enrichmentTextLimit)
			return clipped, nil
		})

	return svc, reformClient, nil
}
