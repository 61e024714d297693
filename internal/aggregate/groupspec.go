package aggregate

import (
	"fmt"
	"strings"

	"tradeindex/internal/model"
)

type Dimension string

const (
	DimYear       Dimension = "year"
	DimFiscalYear Dimension = "fiscal_year"
	DimQuarter    Dimension = "qrt"
	DimMonth      Dimension = "month"
	DimIndustry   Dimension = "industry_code"
	DimCountry    Dimension = "country"
	DimCommodity  Dimension = "commodity_code"
)

// Key holds the value of every dimension; only the dimensions of the active
// GroupSpec are populated.
type Key struct {
	Year          int
	FiscalYear    int
	Quarter       int
	Month         int
	IndustryCode  string
	Country       string
	CommodityCode string
}

// GroupSpec declares the grouping dimensions of one (time frame, level) pair
// and the keys its result is ordered by.
type GroupSpec struct {
	Dims     []Dimension
	SortKeys []Dimension
}

var timeDims = map[model.TimeFrame][]Dimension{
	model.TimeYearly:  {DimYear},
	model.TimeFiscal:  {DimFiscalYear},
	model.TimeQuarter: {DimYear, DimQuarter},
	model.TimeMonthly: {DimYear, DimMonth},
}

var specs = buildSpecs()

func buildSpecs() map[model.TimeFrame]map[model.Level]GroupSpec {
	out := make(map[model.TimeFrame]map[model.Level]GroupSpec, len(timeDims))
	for tf, dims := range timeDims {
		out[tf] = map[model.Level]GroupSpec{
			model.LevelTotal:     {Dims: dims, SortKeys: dims},
			model.LevelIndustry:  {Dims: with(dims, DimIndustry), SortKeys: with(dims, DimIndustry)},
			model.LevelCommodity: {Dims: with(dims, DimCommodity), SortKeys: with(dims, DimCommodity)},
			// the commodity code only breaks ties inside a country
			model.LevelCountry: {Dims: with(dims, DimCountry, DimCommodity), SortKeys: with(dims, DimCountry)},
		}
	}
	return out
}

func with(base []Dimension, extra ...Dimension) []Dimension {
	out := make([]Dimension, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

// SpecFor resolves the grouping of a (time frame, level) pair.
func SpecFor(tf model.TimeFrame, level model.Level) (GroupSpec, error) {
	byLevel, ok := specs[tf]
	if !ok {
		return GroupSpec{}, fmt.Errorf("%w: [%s %s]", ErrInvalidCombination, tf, level)
	}
	spec, ok := byLevel[level]
	if !ok {
		return GroupSpec{}, fmt.Errorf("%w: [%s %s]", ErrInvalidCombination, tf, level)
	}
	return spec, nil
}

func (s GroupSpec) keyOf(row Row) Key {
	var key Key
	for _, dim := range s.Dims {
		switch dim {
		case DimYear:
			key.Year = row.Bucket.Year
		case DimFiscalYear:
			key.FiscalYear = row.Bucket.FiscalYear
		case DimQuarter:
			key.Quarter = row.Bucket.Quarter
		case DimMonth:
			key.Month = row.Bucket.Month
		case DimIndustry:
			key.IndustryCode = row.IndustryCode
		case DimCountry:
			key.Country = row.Country
		case DimCommodity:
			key.CommodityCode = row.CommodityCode
		}
	}
	return key
}

func (s GroupSpec) less(keys []Dimension, a, b Key) bool {
	for _, dim := range keys {
		if c := dim.compare(a, b); c != 0 {
			return c < 0
		}
	}
	return false
}

func (d Dimension) compare(a, b Key) int {
	switch d {
	case DimYear:
		return compareInt(a.Year, b.Year)
	case DimFiscalYear:
		return compareInt(a.FiscalYear, b.FiscalYear)
	case DimQuarter:
		return compareInt(a.Quarter, b.Quarter)
	case DimMonth:
		return compareInt(a.Month, b.Month)
	case DimIndustry:
		return strings.Compare(a.IndustryCode, b.IndustryCode)
	case DimCountry:
		return strings.Compare(a.Country, b.Country)
	case DimCommodity:
		return strings.Compare(a.CommodityCode, b.CommodityCode)
	default:
		return 0
	}
}

// copyFrom sets dimension d of dst to its value in src.
func (d Dimension) copyFrom(dst *Key, src Key) {
	switch d {
	case DimYear:
		dst.Year = src.Year
	case DimFiscalYear:
		dst.FiscalYear = src.FiscalYear
	case DimQuarter:
		dst.Quarter = src.Quarter
	case DimMonth:
		dst.Month = src.Month
	case DimIndustry:
		dst.IndustryCode = src.IndustryCode
	case DimCountry:
		dst.Country = src.Country
	case DimCommodity:
		dst.CommodityCode = src.CommodityCode
	}
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
