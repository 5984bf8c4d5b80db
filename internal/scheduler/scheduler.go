package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"enpole.fr/paddock/internal/pipeline"
)

// Runner executes one full fetch-to-publish pass.
type Runner interface {
	Run(ctx context.Context) (pipeline.RunStats, error)
}

// FillerFunc publishes a placeholder story when a quiet window produced
// nothing. It reports whether a story was actually written.
type FillerFunc func(ctx context.Context) (bool, error)

// Scheduler drives the pipeline on a fixed interval and keeps the published
// feed alive with filler stories during quiet windows.
type Scheduler struct {
	runner         Runner
	filler         FillerFunc
	fetchInterval  time.Duration
	fillerInterval time.Duration
	logger         zerolog.Logger

	mu                   sync.Mutex
	publishedSinceFiller int
}

func New(runner Runner, fetchInterval, fillerInterval time.Duration, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		runner:         runner,
		fetchInterval:  fetchInterval,
		fillerInterval: fillerInterval,
		logger:         logger,
	}
}

// WithFiller enables placeholder publication for quiet windows.
func (s *Scheduler) WithFiller(filler FillerFunc) *Scheduler {
	s.filler = filler
	return s
}

// Start blocks until ctx is canceled. The first pipeline pass runs
// immediately so a fresh deployment does not wait a full interval.
func (s *Scheduler) Start(ctx context.Context) {
	fetchTicker := time.NewTicker(s.fetchInterval)
	defer fetchTicker.Stop()

	fillerTicker := time.NewTicker(s.fillerInterval)
	defer fillerTicker.Stop()

	s.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopping")
			return
		case <-fetchTicker.C:
			s.runOnce(ctx)
		case <-fillerTicker.C:
			s.fillQuietWindow(ctx)
		}
	}
}

// RunNow executes a single pass outside the ticker, for manual triggers.
func (s *Scheduler) RunNow(ctx context.Context) (pipeline.RunStats, error) {
	stats, err := s.runner.Run(ctx)
	if err == nil {
		s.recordPublished(stats.StoriesPublished)
	}
	return stats, err
}

func (s *Scheduler) recordPublished(count int) {
	s.mu.Lock()
	s.publishedSinceFiller += count
	s.mu.Unlock()
}

func (s *Scheduler) runOnce(ctx context.Context) {
	stats, err := s.safeRun(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("pipeline pass failed")
		return
	}

	s.recordPublished(stats.StoriesPublished)
	s.logger.Info().
		Int("items_fetched", stats.ItemsFetched).
		Int("groups_confirmed", stats.GroupsConfirmed).
		Int("stories_published", stats.StoriesPublished).
		Msg("pipeline pass complete")
}

// safeRun isolates a panicking pass so one bad feed cannot kill the daemon.
func (s *Scheduler) safeRun(ctx context.Context) (stats pipeline.RunStats, err error) {
	defer func() {
		if r := recover(); r != nil {
			stats = pipeline.RunStats{}
			err = fmt.Errorf("pipeline pass panicked: %v", r)
		}
	}()

	return s.runner.Run(ctx)
}

func (s *Scheduler) fillQuietWindow(ctx context.Context) {
	if s.filler == nil {
		return
	}

	s.mu.Lock()
	published := s.publishedSinceFiller
	s.publishedSinceFiller = 0
	s.mu.Unlock()
	if published > 0 {
		return
	}

	didPublish, err := s.filler(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("filler publication failed")
		return
	}
	if didPublish {
		s.logger.Info().Msg("published filler story for quiet window")
	}
}
