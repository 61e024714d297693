package aggregate

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"tradeindex/internal/model"
)

const OthersCountry = "Others"

type Metric string

const (
	MetricImports Metric = "imports"
	MetricExports Metric = "exports"
)

type CountryShare struct {
	Country string  `json:"country"`
	Value   float64 `json:"value"`
	Percent float64 `json:"percent"`
}

// CountryShares sums metric per country, keeps the countries whose dense
// rank is within top and folds the remainder into "Others". Percentages are
// rounded to one decimal.
func CountryShares(records []model.AggregatedRecord, metric Metric, top int) ([]CountryShare, error) {
	if metric != MetricImports && metric != MetricExports {
		return nil, fmt.Errorf("%w: unknown metric %q", ErrInvalidFilterValue, metric)
	}

	totals := make(map[string]float64)
	order := make([]string, 0)
	for _, r := range records {
		if _, ok := totals[r.Country]; !ok {
			order = append(order, r.Country)
		}
		if metric == MetricImports {
			totals[r.Country] += r.Imports
		} else {
			totals[r.Country] += r.Exports
		}
	}

	distinct := make([]float64, 0, len(totals))
	seen := make(map[float64]struct{})
	for _, v := range totals {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		distinct = append(distinct, v)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(distinct)))
	rank := make(map[float64]int, len(distinct))
	for i, v := range distinct {
		rank[v] = i + 1
	}

	grouped := make(map[string]float64)
	groupOrder := make([]string, 0)
	var sum float64
	for _, country := range order {
		value := totals[country]
		name := country
		if top > 0 && rank[value] > top {
			name = OthersCountry
		}
		if _, ok := grouped[name]; !ok {
			groupOrder = append(groupOrder, name)
		}
		grouped[name] += value
		sum += value
	}

	shares := make([]CountryShare, 0, len(grouped))
	for _, name := range groupOrder {
		share := CountryShare{Country: name, Value: grouped[name]}
		if sum != 0 {
			share.Percent = math.Round(grouped[name]/sum*100*10) / 10
		}
		shares = append(shares, share)
	}
	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].Value > shares[j].Value
	})
	return shares, nil
}

// PeriodLabel renders the time bucket of r for reports, e.g. "2020-q2" or "2020-1".
func PeriodLabel(r model.AggregatedRecord, tf model.TimeFrame) string {
	switch tf {
	case model.TimeQuarter:
		return fmt.Sprintf("%d-q%d", r.Year, r.Quarter)
	case model.TimeMonthly:
		return fmt.Sprintf("%d-%d", r.Year, r.Month)
	case model.TimeFiscal:
		return strconv.Itoa(r.FiscalYear)
	default:
		return strconv.Itoa(r.Year)
	}
}
