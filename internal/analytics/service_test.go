package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeindex/internal/aggregate"
	"tradeindex/internal/lookup"
	"tradeindex/internal/metrics"
	"tradeindex/internal/model"
	"tradeindex/internal/priceindex"
	"tradeindex/internal/sources"
)

type staticDescriptions []model.CommodityDescription

func (d staticDescriptions) Descriptions(ctx context.Context) ([]model.CommodityDescription, error) {
	return d, nil
}

type failingSource struct{}

func (failingSource) Name() string { return "failing" }

func (failingSource) Records(ctx context.Context) ([]model.TradeRecord, error) {
	return nil, errors.New("unreachable")
}

func trade(year, month int, flow model.Flow, code, naics, country string, value, qty float64) model.TradeRecord {
	return model.TradeRecord{
		Date:          time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC),
		Flow:          flow,
		CommodityCode: code,
		IndustryCode:  naics,
		Country:       country,
		Value:         value,
		Qty1:          qty,
		Unit1:         "kg",
	}
}

func newService(t *testing.T) *Service {
	t.Helper()
	curated := []model.TradeRecord{
		trade(2021, 1, model.FlowImport, "0101210010", "", "Spain", 100, 10),
		trade(2021, 1, model.FlowExport, "0101210010", "", "Japan", 40, 4),
		trade(2021, 1, model.FlowImport, "8703230000", "", "Japan", 900, 3),
		trade(2021, 2, model.FlowImport, "0101290000", "", "Chile", 60, 2),
	}
	institute := []model.TradeRecord{
		trade(2021, 1, model.FlowImport, "0101210010", "1121", "Spain", 5, 1),
		trade(2021, 1, model.FlowExport, "8703230000", "3361", "Japan", 7, 1),
	}
	svc, err := New(Config{
		Sources: map[model.Feed]sources.Source{
			model.FeedCurated:   &sources.StaticSource{SourceName: "org", Rows: curated},
			model.FeedInstitute: &sources.StaticSource{SourceName: "jp", Rows: institute},
		},
		Agriculture:  lookup.NewAgriculture([]string{"101"}),
		Descriptions: staticDescriptions{{HS4: "0101", Description: "Live horses"}},
		PriceIndex:   priceindex.DefaultOptions(),
		TopCountries: 1,
		Metrics:      metrics.New(prometheus.NewRegistry()),
	})
	require.NoError(t, err)
	return svc
}

func TestNewRequiresSources(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestAggregateTotalMonthly(t *testing.T) {
	svc := newService(t)
	out, err := svc.Aggregate(context.Background(), Query{Level: model.LevelTotal, TimeFrame: model.TimeMonthly})
	require.NoError(t, err)
	require.Len(t, out, 2)

	jan := out[0]
	assert.Equal(t, 2021, jan.Year)
	assert.Equal(t, 1, jan.Month)
	assert.Equal(t, 1000.0, jan.Imports)
	assert.Equal(t, 40.0, jan.Exports)
	assert.Equal(t, 13.0, jan.ImportsQty)
	assert.Equal(t, -960.0, jan.NetExports)
}

func TestAggregateIndustryDefaultsToInstituteFeed(t *testing.T) {
	svc := newService(t)
	out, err := svc.Aggregate(context.Background(), Query{Level: model.LevelIndustry, TimeFrame: model.TimeYearly})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "1121", out[0].IndustryCode)
	assert.Equal(t, 5.0, out[0].Imports)
	assert.Equal(t, "3361", out[1].IndustryCode)
	assert.Equal(t, 7.0, out[1].Exports)
}

func TestAggregateErrors(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Aggregate(ctx, Query{Level: "bogus", TimeFrame: model.TimeYearly})
	assert.ErrorIs(t, err, aggregate.ErrInvalidCombination)

	_, err = svc.Aggregate(ctx, Query{Level: model.LevelCommodity, TimeFrame: model.TimeYearly, CodePrefix: "9999999999"})
	assert.ErrorIs(t, err, aggregate.ErrInvalidFilterValue)

	_, err = svc.Aggregate(ctx, Query{Feed: "xx", Level: model.LevelTotal, TimeFrame: model.TimeYearly})
	assert.ErrorIs(t, err, ErrUnknownFeed)
}

func TestAggregateSourceFailure(t *testing.T) {
	svc, err := New(Config{Sources: map[model.Feed]sources.Source{model.FeedCurated: failingSource{}}})
	require.NoError(t, err)
	_, err = svc.Aggregate(context.Background(), Query{Level: model.LevelTotal, TimeFrame: model.TimeYearly})
	assert.ErrorContains(t, err, "unreachable")
}

func TestPriceIndexAgricultureOnly(t *testing.T) {
	svc := newService(t)
	out, err := svc.PriceIndex(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, out, 2)
	for _, r := range out {
		assert.Equal(t, "0101", r.HS4)
	}
	assert.Equal(t, 10.0, out[0].PriceImports)
	assert.Equal(t, 10.0, out[0].PriceExports)
	assert.Equal(t, 30.0, out[1].PriceImports)
	assert.Equal(t, 20.0, out[1].MovingPriceImports)
}

func TestMovers(t *testing.T) {
	svc := newService(t)
	dec := time.Date(2021, 12, 1, 0, 0, 0, 0, time.UTC)
	change := 3
	records := []model.PriceRecord{{HS4: "0101", Date: dec, RankImportsChangeYearOverYear: &change}}

	movers, err := svc.Movers(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, movers.TopImports, 1)
	assert.Equal(t, "Live horses", movers.TopImports[0].Description)
	assert.Len(t, movers.BottomImports, 1)
}

func TestMoversRequiresDescriptions(t *testing.T) {
	svc, err := New(Config{Sources: map[model.Feed]sources.Source{model.FeedCurated: &sources.StaticSource{}}})
	require.NoError(t, err)
	_, err = svc.Movers(context.Background(), nil)
	assert.ErrorIs(t, err, ErrMissingLookup)
}

func TestCountryShares(t *testing.T) {
	svc := newService(t)
	shares, err := svc.CountryShares(context.Background(), Query{TimeFrame: model.TimeYearly}, aggregate.MetricImports)
	require.NoError(t, err)
	require.Len(t, shares, 2)
	assert.Equal(t, "Japan", shares[0].Country)
	assert.Equal(t, 900.0, shares[0].Value)
	assert.Equal(t, aggregate.OthersCountry, shares[1].Country)
	assert.Equal(t, 160.0, shares[1].Value)
}

func TestConcurrentQueries(t *testing.T) {
	svc := newService(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Aggregate(context.Background(), Query{Level: model.LevelCountry, TimeFrame: model.TimeQuarter})
			assert.NoError(t, err)
			_, err = svc.PriceIndex(context.Background(), false)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}
