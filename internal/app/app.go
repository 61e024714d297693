// Package app wires configuration, storage, lookups and the analytics
// service for the commands.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"tradeindex/internal/analytics"
	"tradeindex/internal/config"
	"tradeindex/internal/lookup"
	"tradeindex/internal/metrics"
	"tradeindex/internal/model"
	"tradeindex/internal/priceindex"
	"tradeindex/internal/sources"
)

// References holds the lookup tables shared by every query.
type References struct {
	Agriculture  *lookup.Agriculture
	Descriptions lookup.DescriptionList
}

// LoadReferences reads the agriculture list and the description workbook
// concurrently. An empty path leaves the table unset.
func LoadReferences(ctx context.Context, cfg config.LookupsConfig) (*References, error) {
	refs := &References{}
	g, ctx := errgroup.WithContext(ctx)

	if cfg.Agriculture != "" {
		g.Go(func() error {
			agri, err := lookup.LoadAgriculture(cfg.Agriculture)
			if err != nil {
				return err
			}
			refs.Agriculture = agri
			return nil
		})
	}
	if cfg.Descriptions != "" {
		g.Go(func() error {
			desc, err := lookup.NewDescriptionWorkbook(cfg.Descriptions).Descriptions(ctx)
			if err != nil {
				return err
			}
			refs.Descriptions = desc
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return refs, nil
}

func PriceIndexOptions(cfg config.PriceIndexConfig) priceindex.Options {
	return priceindex.Options{
		Window:      cfg.Window,
		MinPeriods:  cfg.MinPeriods,
		BandWidth:   cfg.BandWidth,
		LagPeriods:  cfg.LagPeriods,
		MoversLimit: cfg.MoversLimit,
		Scope:       priceindex.Scope(cfg.Scope),
	}
}

// NewService builds the analytics service over srcs.
func NewService(cfg *config.Config, srcs map[model.Feed]sources.Source, refs *References, logger *logrus.Logger, m *metrics.Metrics) (*analytics.Service, error) {
	if refs == nil {
		refs = &References{}
	}
	svcCfg := analytics.Config{
		Sources:      srcs,
		PriceIndex:   PriceIndexOptions(cfg.PriceIndex),
		TopCountries: cfg.PriceIndex.TopCountries,
		Logger:       logger,
		Metrics:      m,
	}
	// typed nils would defeat the service's nil checks
	if refs.Agriculture != nil {
		svcCfg.Agriculture = refs.Agriculture
	}
	if refs.Descriptions != nil {
		svcCfg.Descriptions = refs.Descriptions
	}
	svc, err := analytics.New(svcCfg)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	return svc, nil
}
