package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"tradeindex/internal/config"
	"tradeindex/internal/logging"
	"tradeindex/internal/model"
	"tradeindex/internal/sources/feedfile"
	"tradeindex/internal/store"
	"tradeindex/internal/store/sqlite"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "run":
		run(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func run(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config (optional)")
	feeds := fs.String("feeds", "jp,org", "comma-separated feeds to load")
	file := fs.String("file", "", "feed file to load (overrides the configured path; requires a single feed)")
	dbPath := fs.String("db", "", "sqlite database path (overrides config)")
	sheet := fs.String("sheet", "", "worksheet name for .xlsx feeds (default: first sheet)")
	dryRun := fs.Bool("dry-run", false, "parse feed files without writing to the database")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "collector config failed:", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, "collector logging failed:", err)
		os.Exit(1)
	}

	if err := runCollector(context.Background(), cfg, logger, *feeds, *file, *sheet, *dryRun); err != nil {
		fmt.Fprintln(os.Stderr, "collector run failed:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: collector run [options]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "options:")
	fmt.Fprintln(os.Stderr, "  -config  path to YAML config (default: none)")
	fmt.Fprintln(os.Stderr, "  -feeds   comma-separated feeds to load (default: jp,org)")
	fmt.Fprintln(os.Stderr, "  -file    feed file to load, single feed only")
	fmt.Fprintln(os.Stderr, "  -db      sqlite database path (default: from config)")
	fmt.Fprintln(os.Stderr, "  -sheet   worksheet name for .xlsx feeds")
	fmt.Fprintln(os.Stderr, "  -dry-run parse feed files without writing to the database")
}

type loadResult struct {
	Feed    model.Feed
	BatchID string
	Rows    int
}

func runCollector(ctx context.Context, cfg *config.Config, logger *logrus.Logger, feedsCSV, file, sheet string, dryRun bool) error {
	feeds, err := parseFeeds(feedsCSV)
	if err != nil {
		return err
	}
	if file != "" && len(feeds) != 1 {
		return errors.New("-file requires exactly one feed")
	}

	st, err := openStore(cfg.Database.Path, dryRun)
	if err != nil {
		return err
	}
	defer st.Close()

	results := make([]loadResult, 0, len(feeds))
	for _, feed := range feeds {
		path := file
		if path == "" {
			path = feedPath(cfg.Feeds, feed)
		}
		if path == "" {
			logger.WithField("feed", feed).Warn("no file configured, skipping feed")
			continue
		}
		result, err := loadFeed(ctx, st, feed, path, sheet)
		if err != nil {
			return fmt.Errorf("load %s: %w", feed, err)
		}
		logger.WithFields(logrus.Fields{
			"feed":  feed,
			"file":  path,
			"batch": result.BatchID,
			"rows":  result.Rows,
		}).Info("feed loaded")
		results = append(results, result)
	}

	total := 0
	for _, r := range results {
		total += r.Rows
	}
	fmt.Printf("collector run complete (db=%s feeds=%d records=%d dry_run=%t)\n", cfg.Database.Path, len(results), total, dryRun)
	return nil
}

func openStore(path string, dryRun bool) (store.Store, error) {
	if dryRun {
		return &store.NopStore{}, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	st, err := sqlite.New(path)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func loadFeed(ctx context.Context, st store.Store, feed model.Feed, path, sheet string) (loadResult, error) {
	reader := feedfile.New(path, feed)
	reader.Sheet = sheet
	records, err := reader.Records(ctx)
	if err != nil {
		return loadResult{}, err
	}

	batch := store.Batch{
		ID:       uuid.NewString(),
		Feed:     feed,
		Source:   filepath.Base(path),
		LoadedAt: time.Now().UTC(),
	}
	if err := st.UpsertRecords(ctx, batch, records); err != nil {
		return loadResult{}, err
	}
	return loadResult{Feed: feed, BatchID: batch.ID, Rows: len(records)}, nil
}

func feedPath(cfg config.FeedsConfig, feed model.Feed) string {
	switch feed {
	case model.FeedInstitute:
		return cfg.Institute
	case model.FeedCurated:
		return cfg.Curated
	default:
		return ""
	}
}

func parseFeeds(value string) ([]model.Feed, error) {
	raw := strings.Split(value, ",")
	feeds := make([]model.Feed, 0, len(raw))
	seen := make(map[model.Feed]struct{})
	for _, item := range raw {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		feed, err := model.ParseFeed(item)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[feed]; ok {
			continue
		}
		seen[feed] = struct{}{}
		feeds = append(feeds, feed)
	}
	if len(feeds) == 0 {
		return nil, errors.New("no feeds provided")
	}
	return feeds, nil
}
