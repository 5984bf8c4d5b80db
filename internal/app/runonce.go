package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"enpole.fr/paddock/internal/cli"
	"enpole.fr/paddock/internal/config"
	"enpole.fr/paddock/internal/db"
	"enpole.fr/paddock/internal/logging"
)

func runOnce(args []string) int {
	fs := flag.NewFlagSet("run-once", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 5*time.Minute, "Overall pass timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dbCancel()

	pool, err := db.NewPool(dbCtx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("run-once failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	svc, _, err := buildService(cfg, pool, logger)
	if err != nil {
		logger.Error().Err(err).Msg("run-once failed to build pipeline")
		fmt.Fprintf(os.Stderr, "Failed to build pipeline: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	stats, err := svc.Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("pipeline pass failed")
		fmt.Fprintf(os.Stderr, "Pipeline pass failed: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(stats); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode output: %v\n", err)
			return 1
		}
		return 0
	}

	fmt.Printf("items fetched:     %d\n", stats.ItemsFetched)
	fmt.Printf("groups formed:     %d\n", stats.GroupsFormed)
	fmt.Printf("groups confirmed:  %d\n", stats.GroupsConfirmed)
	fmt.Printf("stories published: %d\n", stats.StoriesPublished)
	return 0
}
