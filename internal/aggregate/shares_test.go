package aggregate

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeindex/internal/model"
)

func TestCountrySharesFoldsTailIntoOthers(t *testing.T) {
	records := []model.AggregatedRecord{
		{Country: "Spain", Imports: 50},
		{Country: "Japan", Imports: 30},
		{Country: "Spain", Imports: 10},
		{Country: "Chile", Imports: 5},
		{Country: "Peru", Imports: 5},
	}

	shares, err := CountryShares(records, MetricImports, 2)
	require.NoError(t, err)
	require.Len(t, shares, 3)
	assert.Equal(t, CountryShare{Country: "Spain", Value: 60, Percent: 60}, shares[0])
	assert.Equal(t, CountryShare{Country: "Japan", Value: 30, Percent: 30}, shares[1])
	assert.Equal(t, CountryShare{Country: OthersCountry, Value: 10, Percent: 10}, shares[2])
}

func TestCountrySharesDenseRankKeepsTies(t *testing.T) {
	records := make([]model.AggregatedRecord, 0, 4)
	for i, v := range []float64{3, 2, 2, 1} {
		records = append(records, model.AggregatedRecord{Country: fmt.Sprintf("C%d", i), Exports: v})
	}

	shares, err := CountryShares(records, MetricExports, 2)
	require.NoError(t, err)
	require.Len(t, shares, 4)
	assert.Equal(t, "C0", shares[0].Country)
	assert.Equal(t, OthersCountry, shares[3].Country)
	assert.Equal(t, 12.5, shares[3].Percent)
}

func TestCountrySharesUnknownMetric(t *testing.T) {
	_, err := CountryShares(nil, Metric("qty"), 20)
	assert.ErrorIs(t, err, ErrInvalidFilterValue)
}

func TestPeriodLabel(t *testing.T) {
	r := model.AggregatedRecord{Year: 2020, Quarter: 2, Month: 7, FiscalYear: 2021}
	assert.Equal(t, "2020-q2", PeriodLabel(r, model.TimeQuarter))
	assert.Equal(t, "2020-7", PeriodLabel(r, model.TimeMonthly))
	assert.Equal(t, "2021", PeriodLabel(r, model.TimeFiscal))
	assert.Equal(t, "2020", PeriodLabel(r, model.TimeYearly))
}
