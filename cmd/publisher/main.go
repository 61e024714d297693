package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"tradeindex/internal/aggregate"
	"tradeindex/internal/analytics"
	"tradeindex/internal/app"
	"tradeindex/internal/config"
	"tradeindex/internal/logging"
	"tradeindex/internal/metrics"
	"tradeindex/internal/model"
	"tradeindex/internal/sources"
	"tradeindex/internal/store/sqlite"
)

type metaFile struct {
	GeneratedAt string             `json:"generated_at"`
	Records     map[model.Feed]int `json:"records"`
	Files       []string           `json:"files"`
}

type aggregateFile struct {
	GeneratedAt string          `json:"generated_at"`
	Feed        model.Feed      `json:"feed"`
	Level       model.Level     `json:"level"`
	TimeFrame   model.TimeFrame `json:"time_frame"`
	Rows        []periodRow     `json:"rows"`
}

type periodRow struct {
	Period string `json:"period"`
	model.AggregatedRecord
}

type sharesFile struct {
	GeneratedAt string                   `json:"generated_at"`
	Imports     []aggregate.CountryShare `json:"imports"`
	Exports     []aggregate.CountryShare `json:"exports"`
}

var timeFrames = []model.TimeFrame{model.TimeYearly, model.TimeFiscal, model.TimeQuarter, model.TimeMonthly}

var feedLevels = map[model.Feed][]model.Level{
	model.FeedInstitute: {model.LevelTotal, model.LevelIndustry, model.LevelCommodity, model.LevelCountry},
	model.FeedCurated:   {model.LevelTotal, model.LevelCommodity, model.LevelCountry},
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "build":
		build(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func build(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config (optional)")
	outDir := fs.String("out", "site/data", "output directory")
	dbPath := fs.String("db", "", "sqlite database path (overrides config)")
	agri := fs.Bool("agriculture", false, "restrict the price index to agricultural commodities")
	metricsPath := fs.String("metrics", "", "write Prometheus metrics to this textfile")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "publisher config failed:", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, "publisher logging failed:", err)
		os.Exit(1)
	}

	if err := buildSite(context.Background(), cfg, logger, *outDir, *agri, *metricsPath); err != nil {
		fmt.Fprintln(os.Stderr, "publisher build failed:", err)
		os.Exit(1)
	}
	fmt.Printf("publisher build complete (out=%s)\n", *outDir)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: publisher build [options]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "options:")
	fmt.Fprintln(os.Stderr, "  -config       path to YAML config (default: none)")
	fmt.Fprintln(os.Stderr, "  -out          output directory (default: site/data)")
	fmt.Fprintln(os.Stderr, "  -db           sqlite database path (default: from config)")
	fmt.Fprintln(os.Stderr, "  -agriculture  agricultural price index only")
	fmt.Fprintln(os.Stderr, "  -metrics      Prometheus textfile path (default: none)")
}

func buildSite(ctx context.Context, cfg *config.Config, logger *logrus.Logger, outDir string, agri bool, metricsPath string) error {
	if err := os.MkdirAll(filepath.Join(outDir, "aggregates"), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	st, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	var (
		refs    *app.References
		records = make(map[model.Feed][]model.TradeRecord, 2)
		feeds   = []model.Feed{model.FeedInstitute, model.FeedCurated}
		loaded  = make([][]model.TradeRecord, len(feeds))
	)
	g, gctx := errgroup.WithContext(ctx)
	for i, feed := range feeds {
		i, feed := i, feed
		g.Go(func() error {
			rows, err := st.ListRecords(gctx, feed)
			if err != nil {
				return fmt.Errorf("load %s records: %w", feed, err)
			}
			loaded[i] = rows
			return nil
		})
	}
	g.Go(func() error {
		var err error
		refs, err = app.LoadReferences(gctx, cfg.Lookups)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	srcs := make(map[model.Feed]sources.Source, len(feeds))
	for i, feed := range feeds {
		records[feed] = loaded[i]
		srcs[feed] = &sources.StaticSource{SourceName: string(feed), Rows: loaded[i]}
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	for feed, rows := range records {
		m.RecordsLoaded(string(feed), len(rows))
	}
	svc, err := app.NewService(cfg, srcs, refs, logger, m)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	files := make([]string, 0)
	write := func(name string, value any) error {
		if err := writeJSON(filepath.Join(outDir, name), value); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		files = append(files, name)
		return nil
	}

	for _, feed := range feeds {
		if len(records[feed]) == 0 {
			logger.WithField("feed", feed).Warn("no records stored, skipping aggregates")
			continue
		}
		for _, tf := range timeFrames {
			for _, level := range feedLevels[feed] {
				rows, err := svc.Aggregate(ctx, analytics.Query{Feed: feed, Level: level, TimeFrame: tf})
				if err != nil {
					return err
				}
				name := filepath.Join("aggregates", fmt.Sprintf("%s_%s_%s.json", feed, tf, level))
				if err := write(name, aggregateFile{
					GeneratedAt: now,
					Feed:        feed,
					Level:       level,
					TimeFrame:   tf,
					Rows:        withPeriods(rows, tf),
				}); err != nil {
					return err
				}
			}
		}
	}

	if len(records[model.FeedCurated]) > 0 {
		if err := publishPriceIndex(ctx, svc, logger, agri, now, write); err != nil {
			return err
		}
	}

	if err := write("meta.json", metaFile{GeneratedAt: now, Records: countRecords(records), Files: files}); err != nil {
		return err
	}

	if metricsPath != "" {
		if err := prometheus.WriteToTextfile(metricsPath, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	logger.WithFields(logrus.Fields{"out": outDir, "files": len(files)}).Info("site built")
	return nil
}

func publishPriceIndex(ctx context.Context, svc *analytics.Service, logger *logrus.Logger, agri bool, now string, write func(string, any) error) error {
	index, err := svc.PriceIndex(ctx, agri)
	if err != nil {
		return err
	}
	if err := write("price_index.json", index); err != nil {
		return err
	}

	movers, err := svc.Movers(ctx, index)
	switch {
	case errors.Is(err, analytics.ErrMissingLookup):
		logger.Warn("descriptions not configured, skipping movers")
	case err != nil:
		return err
	default:
		if err := write("movers.json", movers); err != nil {
			return err
		}
	}

	q := analytics.Query{Feed: model.FeedCurated, TimeFrame: model.TimeYearly}
	imports, err := svc.CountryShares(ctx, q, aggregate.MetricImports)
	if err != nil {
		return err
	}
	exports, err := svc.CountryShares(ctx, q, aggregate.MetricExports)
	if err != nil {
		return err
	}
	return write("country_shares.json", sharesFile{GeneratedAt: now, Imports: imports, Exports: exports})
}

func withPeriods(rows []model.AggregatedRecord, tf model.TimeFrame) []periodRow {
	out := make([]periodRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, periodRow{Period: aggregate.PeriodLabel(r, tf), AggregatedRecord: r})
	}
	return out
}

func countRecords(records map[model.Feed][]model.TradeRecord) map[model.Feed]int {
	out := make(map[model.Feed]int, len(records))
	for feed, rows := range records {
		out[feed] = len(rows)
	}
	return out
}

func writeJSON(path string, value any) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
