package model

import (
	"fmt"
	"strings"
	"time"
)

type Flow string

const (
	FlowImport Flow = "import"
	FlowExport Flow = "export"
)

// Feed identifies one of the two upstream trade tables.
type Feed string

const (
	// FeedInstitute is the statistics-institute feed. It carries industry codes.
	FeedInstitute Feed = "jp"
	// FeedCurated is the curated feed used for the price index.
	FeedCurated Feed = "org"
)

type TimeFrame string

const (
	TimeYearly  TimeFrame = "yearly"
	TimeFiscal  TimeFrame = "fiscal"
	TimeQuarter TimeFrame = "qrt"
	TimeMonthly TimeFrame = "monthly"
)

type Level string

const (
	LevelTotal     Level = "total"
	LevelIndustry  Level = "industry"
	LevelCommodity Level = "commodity"
	LevelCountry   Level = "country"
)

// ParseFlow accepts the long names and the single-letter trade flags used by the feeds.
func ParseFlow(value string) (Flow, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "i", "1", "import", "imports":
		return FlowImport, nil
	case "e", "2", "export", "exports":
		return FlowExport, nil
	default:
		return "", fmt.Errorf("unknown flow: %s", value)
	}
}

func ParseFeed(value string) (Feed, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "jp", "institute":
		return FeedInstitute, nil
	case "org", "curated":
		return FeedCurated, nil
	default:
		return "", fmt.Errorf("unknown feed: %s", value)
	}
}

// ParseLevel normalizes level names. Unknown values are returned as-is so
// that the aggregation lookup can reject the combination.
func ParseLevel(value string) Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "naics":
		return LevelIndustry
	case "hts", "hs":
		return LevelCommodity
	default:
		return Level(strings.ToLower(strings.TrimSpace(value)))
	}
}

func ParseTimeFrame(value string) TimeFrame {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "quarterly", "quarter":
		return TimeQuarter
	case "year", "calendar":
		return TimeYearly
	default:
		return TimeFrame(strings.ToLower(strings.TrimSpace(value)))
	}
}

// TradeRecord is one transaction-period observation as supplied by a feed.
type TradeRecord struct {
	Date          time.Time `json:"date"`
	Flow          Flow      `json:"flow"`
	CommodityCode string    `json:"commodity_code"`
	IndustryCode  string    `json:"industry_code,omitempty"`
	Country       string    `json:"country"`
	Description   string    `json:"description,omitempty"`
	Value         float64   `json:"value"`
	Qty1          float64   `json:"qty_1"`
	Unit1         string    `json:"unit_1"`
	Qty2          float64   `json:"qty_2"`
	Unit2         string    `json:"unit_2"`
}

// AggregatedRecord is one row per dimension key and time bucket. Time and
// dimension columns that are not part of the grouping stay zero.
type AggregatedRecord struct {
	Year          int    `json:"year,omitempty"`
	FiscalYear    int    `json:"fiscal_year,omitempty"`
	Quarter       int    `json:"qrt,omitempty"`
	Month         int    `json:"month,omitempty"`
	IndustryCode  string `json:"industry_code,omitempty"`
	Country       string `json:"country,omitempty"`
	CommodityCode string `json:"commodity_code,omitempty"`

	Imports    float64 `json:"imports"`
	Exports    float64 `json:"exports"`
	ImportsQty float64 `json:"imports_qty"`
	ExportsQty float64 `json:"exports_qty"`
	NetExports float64 `json:"net_exports"`
	NetQty     float64 `json:"net_qty"`
}

// PriceRecord is one row per hs4 prefix and month of the price index.
type PriceRecord struct {
	HS4   string    `json:"hs4"`
	Date  time.Time `json:"date"`
	Year  int       `json:"year"`
	Month int       `json:"month"`

	Imports    float64 `json:"imports"`
	Exports    float64 `json:"exports"`
	ImportsQty float64 `json:"imports_qty"`
	ExportsQty float64 `json:"exports_qty"`

	PriceImports float64 `json:"price_imports"`
	PriceExports float64 `json:"price_exports"`

	MovingPriceImports    float64  `json:"moving_price_imports"`
	MovingPriceExports    float64  `json:"moving_price_exports"`
	MovingPriceImportsStd *float64 `json:"moving_price_imports_std"`
	MovingPriceExportsStd *float64 `json:"moving_price_exports_std"`

	UpperBandImports *float64 `json:"upper_band_imports"`
	LowerBandImports *float64 `json:"lower_band_imports"`
	UpperBandExports *float64 `json:"upper_band_exports"`
	LowerBandExports *float64 `json:"lower_band_exports"`

	RankImports int `json:"rank_imports"`
	RankExports int `json:"rank_exports"`

	PctChangeImports *float64 `json:"pct_change_imports"`

	PrevYearImports     *float64 `json:"prev_year_imports"`
	PrevYearExports     *float64 `json:"prev_year_exports"`
	PrevYearRankImports *int     `json:"prev_year_rank_imports"`
	PrevYearRankExports *int     `json:"prev_year_rank_exports"`

	PctChangeImportsYearOverYear  *float64 `json:"pct_change_imports_year_over_year"`
	PctChangeExportsYearOverYear  *float64 `json:"pct_change_exports_year_over_year"`
	RankImportsChangeYearOverYear *int     `json:"rank_imports_change_year_over_year"`
	RankExportsChangeYearOverYear *int     `json:"rank_exports_change_year_over_year"`
}

type CommodityDescription struct {
	HS4         string `json:"hs4"`
	Description string `json:"hts_desc"`
}
