// Package priceindex derives a commodity price index from monthly
// commodity-level trade aggregates.
package priceindex

import (
	"sort"
	"strings"
	"time"

	"tradeindex/internal/model"
)

// Scope selects the series that period-over-period changes and the
// year-over-year lag run over.
type Scope string

const (
	// ScopeSequence runs over the whole (date, hs4)-sorted table and lags
	// every row that has LagPeriods predecessors.
	ScopeSequence Scope = "sequence"
	// ScopeCommodity runs inside each hs4 series and lags only once the
	// series holds LagPeriods earlier months.
	ScopeCommodity Scope = "commodity"
)

const (
	defaultWindow      = 3
	defaultMinPeriods  = 1
	defaultBandWidth   = 2
	defaultLagPeriods  = 12
	defaultMoversLimit = 20
	hs4Length          = 4
)

type Options struct {
	Window      int
	MinPeriods  int
	BandWidth   float64
	LagPeriods  int
	MoversLimit int
	Scope       Scope
}

func DefaultOptions() Options {
	return Options{
		Window:      defaultWindow,
		MinPeriods:  defaultMinPeriods,
		BandWidth:   defaultBandWidth,
		LagPeriods:  defaultLagPeriods,
		MoversLimit: defaultMoversLimit,
		Scope:       ScopeSequence,
	}
}

type Engine struct {
	opts Options
}

func New(opts Options) *Engine {
	if opts.Window <= 0 {
		opts.Window = defaultWindow
	}
	if opts.MinPeriods <= 0 {
		opts.MinPeriods = defaultMinPeriods
	}
	if opts.BandWidth == 0 {
		opts.BandWidth = defaultBandWidth
	}
	if opts.LagPeriods <= 0 {
		opts.LagPeriods = defaultLagPeriods
	}
	if opts.MoversLimit <= 0 {
		opts.MoversLimit = defaultMoversLimit
	}
	if opts.Scope != ScopeCommodity {
		opts.Scope = ScopeSequence
	}
	return &Engine{opts: opts}
}

func (e *Engine) Options() Options {
	return e.opts
}

// Compute builds the price index from a monthly, commodity-level aggregate.
// The steps run in a fixed order; later steps depend on the sort order and
// columns produced by earlier ones.
func (e *Engine) Compute(monthly []model.AggregatedRecord) []model.PriceRecord {
	raw := regroupHS4(monthly)
	guardQuantities(raw)
	priceRows(raw)
	sortByDate(raw)

	rolled := make([]model.PriceRecord, len(raw))
	copy(rolled, raw)
	e.rolling(rolled)
	rankByDate(rolled)
	e.bands(rolled)

	out := joinBack(raw, rolled)
	sortByDate(out)
	e.pctChange(out)
	e.yearOverYear(out)
	return out
}

type hs4Key struct {
	hs4   string
	year  int
	month int
}

func regroupHS4(monthly []model.AggregatedRecord) []model.PriceRecord {
	index := make(map[hs4Key]int)
	out := make([]model.PriceRecord, 0)
	for _, r := range monthly {
		key := hs4Key{hs4: truncate(r.CommodityCode, hs4Length), year: r.Year, month: r.Month}
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, model.PriceRecord{HS4: key.hs4, Year: key.year, Month: key.month})
		}
		out[i].Imports += r.Imports
		out[i].Exports += r.Exports
		out[i].ImportsQty += r.ImportsQty
		out[i].ExportsQty += r.ExportsQty
	}
	return out
}

func truncate(code string, n int) string {
	code = strings.TrimSpace(code)
	if len(code) <= n {
		return code
	}
	return code[:n]
}

// guardQuantities replaces zero quantities with one so prices stay finite.
func guardQuantities(rows []model.PriceRecord) {
	for i := range rows {
		if rows[i].ImportsQty == 0 {
			rows[i].ImportsQty = 1
		}
		if rows[i].ExportsQty == 0 {
			rows[i].ExportsQty = 1
		}
	}
}

func priceRows(rows []model.PriceRecord) {
	for i := range rows {
		rows[i].PriceImports = rows[i].Imports / rows[i].ImportsQty
		rows[i].PriceExports = rows[i].Exports / rows[i].ExportsQty
		rows[i].Date = time.Date(rows[i].Year, time.Month(rows[i].Month), 1, 0, 0, 0, 0, time.UTC)
	}
}

func sortByDate(rows []model.PriceRecord) {
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date)
		}
		return rows[i].HS4 < rows[j].HS4
	})
}

// seriesIndex lists row positions per hs4 in table order.
func seriesIndex(rows []model.PriceRecord) (map[string][]int, []string) {
	series := make(map[string][]int)
	order := make([]string, 0)
	for i, r := range rows {
		if _, ok := series[r.HS4]; !ok {
			order = append(order, r.HS4)
		}
		series[r.HS4] = append(series[r.HS4], i)
	}
	return series, order
}

func (e *Engine) rolling(rows []model.PriceRecord) {
	series, order := seriesIndex(rows)
	for _, hs4 := range order {
		positions := series[hs4]
		imports := make([]float64, len(positions))
		exports := make([]float64, len(positions))
		for k, i := range positions {
			imports[k] = rows[i].PriceImports
			exports[k] = rows[i].PriceExports
		}
		meanImports := RollingMean(imports, e.opts.Window, e.opts.MinPeriods)
		meanExports := RollingMean(exports, e.opts.Window, e.opts.MinPeriods)
		stdImports := RollingStd(imports, e.opts.Window, e.opts.MinPeriods)
		stdExports := RollingStd(exports, e.opts.Window, e.opts.MinPeriods)
		for k, i := range positions {
			rows[i].MovingPriceImports = meanImports[k]
			rows[i].MovingPriceExports = meanExports[k]
			rows[i].MovingPriceImportsStd = stdImports[k]
			rows[i].MovingPriceExportsStd = stdExports[k]
		}
	}
}

func rankByDate(rows []model.PriceRecord) {
	byDate := make(map[time.Time][]int)
	dates := make([]time.Time, 0)
	for i, r := range rows {
		if _, ok := byDate[r.Date]; !ok {
			dates = append(dates, r.Date)
		}
		byDate[r.Date] = append(byDate[r.Date], i)
	}
	for _, date := range dates {
		positions := byDate[date]
		imports := make([]float64, len(positions))
		exports := make([]float64, len(positions))
		for k, i := range positions {
			imports[k] = rows[i].MovingPriceImports
			exports[k] = rows[i].MovingPriceExports
		}
		rankImports := OrdinalRank(imports)
		rankExports := OrdinalRank(exports)
		for k, i := range positions {
			rows[i].RankImports = rankImports[k]
			rows[i].RankExports = rankExports[k]
		}
	}
}

func (e *Engine) bands(rows []model.PriceRecord) {
	for i := range rows {
		r := &rows[i]
		r.UpperBandImports, r.LowerBandImports = band(r.MovingPriceImports, r.MovingPriceImportsStd, e.opts.BandWidth)
		r.UpperBandExports, r.LowerBandExports = band(r.MovingPriceExports, r.MovingPriceExportsStd, e.opts.BandWidth)
	}
}

func band(moving float64, std *float64, width float64) (*float64, *float64) {
	if std == nil {
		return nil, nil
	}
	upper := moving + width*(*std)
	lower := moving - width*(*std)
	return &upper, &lower
}

type dateKey struct {
	date time.Time
	hs4  string
}

// joinBack left-joins raw onto the rolling table on (date, hs4). Columns
// present on both sides keep the raw value; the derived columns come from
// the rolling side.
func joinBack(raw, rolled []model.PriceRecord) []model.PriceRecord {
	index := make(map[dateKey]int, len(rolled))
	for i, r := range rolled {
		index[dateKey{date: r.Date, hs4: r.HS4}] = i
	}
	out := make([]model.PriceRecord, 0, len(raw))
	for _, base := range raw {
		i, ok := index[dateKey{date: base.Date, hs4: base.HS4}]
		if !ok {
			out = append(out, base)
			continue
		}
		joined := rolled[i]
		joined.Year = base.Year
		joined.Month = base.Month
		joined.Imports = base.Imports
		joined.Exports = base.Exports
		joined.ImportsQty = base.ImportsQty
		joined.ExportsQty = base.ExportsQty
		joined.PriceImports = base.PriceImports
		joined.PriceExports = base.PriceExports
		out = append(out, joined)
	}
	return out
}

// series returns the positions each row is compared against: the whole
// table, or the rows of its hs4 group.
func (e *Engine) series(rows []model.PriceRecord) [][]int {
	if e.opts.Scope == ScopeCommodity {
		groups, order := seriesIndex(rows)
		out := make([][]int, 0, len(order))
		for _, hs4 := range order {
			out = append(out, groups[hs4])
		}
		return out
	}
	all := make([]int, len(rows))
	for i := range all {
		all[i] = i
	}
	return [][]int{all}
}

func (e *Engine) pctChange(rows []model.PriceRecord) {
	for _, positions := range e.series(rows) {
		for k := 1; k < len(positions); k++ {
			prev := rows[positions[k-1]].MovingPriceImports
			rows[positions[k]].PctChangeImports = relativeChange(rows[positions[k]].MovingPriceImports, prev)
		}
	}
}

func (e *Engine) yearOverYear(rows []model.PriceRecord) {
	lag := e.opts.LagPeriods
	for _, positions := range e.series(rows) {
		for k := lag; k < len(positions); k++ {
			cur := &rows[positions[k]]
			prev := rows[positions[k-lag]]

			prevImports := prev.MovingPriceImports
			prevExports := prev.MovingPriceExports
			prevRankImports := prev.RankImports
			prevRankExports := prev.RankExports
			cur.PrevYearImports = &prevImports
			cur.PrevYearExports = &prevExports
			cur.PrevYearRankImports = &prevRankImports
			cur.PrevYearRankExports = &prevRankExports

			cur.PctChangeImportsYearOverYear = relativeChange(cur.MovingPriceImports, prevImports)
			cur.PctChangeExportsYearOverYear = relativeChange(cur.MovingPriceExports, prevExports)
			rankImports := cur.RankImports - prevRankImports
			rankExports := cur.RankExports - prevRankExports
			cur.RankImportsChangeYearOverYear = &rankImports
			cur.RankExportsChangeYearOverYear = &rankExports
		}
	}
}

// relativeChange is (cur-prev)/prev, undefined when prev is zero.
func relativeChange(cur, prev float64) *float64 {
	if prev == 0 {
		return nil
	}
	v := (cur - prev) / prev
	return &v
}
