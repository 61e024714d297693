// Package analytics composes record sources, the dimensional aggregator and
// the price index engine behind one query surface.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"tradeindex/internal/aggregate"
	"tradeindex/internal/logging"
	"tradeindex/internal/metrics"
	"tradeindex/internal/model"
	"tradeindex/internal/priceindex"
	"tradeindex/internal/sources"
)

var (
	ErrUnknownFeed   = errors.New("analytics: unknown feed")
	ErrMissingLookup = errors.New("analytics: lookup not configured")
)

const defaultTopCountries = 20

type DescriptionLookup interface {
	Descriptions(ctx context.Context) ([]model.CommodityDescription, error)
}

type Config struct {
	Sources      map[model.Feed]sources.Source
	Agriculture  aggregate.AgricultureLookup
	Descriptions DescriptionLookup
	PriceIndex   priceindex.Options
	TopCountries int
	Logger       *logrus.Logger
	Metrics      *metrics.Metrics
}

// Service is safe for concurrent use; it holds no mutable state.
type Service struct {
	sources      map[model.Feed]sources.Source
	agriculture  aggregate.AgricultureLookup
	descriptions DescriptionLookup
	engine       *priceindex.Engine
	topCountries int
	log          *logrus.Entry
	metrics      *metrics.Metrics
}

type Query struct {
	Feed            model.Feed
	Level           model.Level
	TimeFrame       model.TimeFrame
	Date            string
	AgricultureOnly bool
	CodePrefix      string
	Group           bool
}

func New(cfg Config) (*Service, error) {
	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("analytics: at least one source is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	top := cfg.TopCountries
	if top <= 0 {
		top = defaultTopCountries
	}

	srcs := make(map[model.Feed]sources.Source, len(cfg.Sources))
	for feed, src := range cfg.Sources {
		srcs[feed] = src
	}
	return &Service{
		sources:      srcs,
		agriculture:  cfg.Agriculture,
		descriptions: cfg.Descriptions,
		engine:       priceindex.New(cfg.PriceIndex),
		topCountries: top,
		log:          logger.WithField("component", "analytics"),
		metrics:      cfg.Metrics,
	}, nil
}

// feedFor picks the institute feed for industry queries and the curated
// feed otherwise when the query names none.
func feedFor(q Query) model.Feed {
	if q.Feed != "" {
		return q.Feed
	}
	if q.Level == model.LevelIndustry {
		return model.FeedInstitute
	}
	return model.FeedCurated
}

func (s *Service) records(ctx context.Context, feed model.Feed) ([]model.TradeRecord, error) {
	src, ok := s.sources[feed]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFeed, feed)
	}
	records, err := src.Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("analytics: load %s: %w", src.Name(), err)
	}
	return records, nil
}

func (s *Service) Aggregate(ctx context.Context, q Query) (out []model.AggregatedRecord, err error) {
	start := time.Now()
	defer func() { s.observe("aggregate", start, len(out), err) }()

	feed := feedFor(q)
	records, err := s.records(ctx, feed)
	if err != nil {
		return nil, err
	}
	filter := aggregate.Filter{
		AgricultureOnly: q.AgricultureOnly,
		CodePrefix:      q.CodePrefix,
		Date:            q.Date,
		Group:           q.Group,
	}
	out, err = aggregate.Run(records, q.TimeFrame, q.Level, filter, s.agriculture)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"feed":       feed,
		"level":      q.Level,
		"time_frame": q.TimeFrame,
		"records":    len(records),
		"rows":       len(out),
	}).Debug("aggregated")
	return out, nil
}

// PriceIndex aggregates the curated feed monthly by commodity and derives the
// price index from it.
func (s *Service) PriceIndex(ctx context.Context, agricultureOnly bool) (out []model.PriceRecord, err error) {
	start := time.Now()
	defer func() { s.observe("price_index", start, len(out), err) }()

	records, err := s.records(ctx, model.FeedCurated)
	if err != nil {
		return nil, err
	}
	monthly, err := aggregate.Run(records, model.TimeMonthly, model.LevelCommodity, aggregate.Filter{AgricultureOnly: agricultureOnly}, s.agriculture)
	if err != nil {
		return nil, err
	}
	out = s.engine.Compute(monthly)
	s.log.WithFields(logrus.Fields{
		"agriculture_only": agricultureOnly,
		"monthly_rows":     len(monthly),
		"rows":             len(out),
	}).Debug("price index computed")
	return out, nil
}

func (s *Service) Movers(ctx context.Context, records []model.PriceRecord) (out priceindex.Movers, err error) {
	start := time.Now()
	defer func() {
		n := len(out.TopImports) + len(out.BottomImports) + len(out.TopExports) + len(out.BottomExports)
		s.observe("movers", start, n, err)
	}()

	if s.descriptions == nil {
		return priceindex.Movers{}, fmt.Errorf("%w: descriptions", ErrMissingLookup)
	}
	descriptions, err := s.descriptions.Descriptions(ctx)
	if err != nil {
		return priceindex.Movers{}, fmt.Errorf("analytics: load descriptions: %w", err)
	}
	return s.engine.Movers(records, descriptions), nil
}

// CountryShares aggregates q at country level and folds countries beyond the
// configured top into "Others".
func (s *Service) CountryShares(ctx context.Context, q Query, metric aggregate.Metric) ([]aggregate.CountryShare, error) {
	q.Level = model.LevelCountry
	records, err := s.Aggregate(ctx, q)
	if err != nil {
		return nil, err
	}
	return aggregate.CountryShares(records, metric, s.topCountries)
}

func (s *Service) observe(operation string, start time.Time, rows int, err error) {
	s.metrics.Observe(operation, start, rows, err)
	if err != nil {
		s.log.WithError(err).WithField("operation", operation).Warn("operation failed")
	}
}
