package priceindex

import (
	"sort"
	"time"

	"tradeindex/internal/model"
)

// Mover is a price record of the latest month annotated with the commodity
// description of its hs4 prefix.
type Mover struct {
	model.PriceRecord
	Description string `json:"hts_desc"`
}

type Movers struct {
	TopImports    []Mover `json:"top_imports"`
	BottomImports []Mover `json:"bottom_imports"`
	TopExports    []Mover `json:"top_exports"`
	BottomExports []Mover `json:"bottom_exports"`
}

func (e *Engine) Movers(records []model.PriceRecord, descriptions []model.CommodityDescription) Movers {
	return TopBottomMovers(records, descriptions, e.opts.MoversLimit)
}

// TopBottomMovers takes the latest month of records, drops rows whose
// year-over-year rank change is missing or zero, and returns the first and
// last limit rows after sorting ascending by that change. The two lists may
// overlap when fewer than 2*limit rows remain.
func TopBottomMovers(records []model.PriceRecord, descriptions []model.CommodityDescription, limit int) Movers {
	if limit <= 0 {
		limit = defaultMoversLimit
	}
	latest := latestDate(records)
	desc := describe(descriptions)

	imports := changed(records, latest, func(r model.PriceRecord) *int { return r.RankImportsChangeYearOverYear })
	exports := changed(records, latest, func(r model.PriceRecord) *int { return r.RankExportsChangeYearOverYear })

	return Movers{
		TopImports:    annotate(head(imports, limit), desc),
		BottomImports: annotate(tail(imports, limit), desc),
		TopExports:    annotate(head(exports, limit), desc),
		BottomExports: annotate(tail(exports, limit), desc),
	}
}

func latestDate(records []model.PriceRecord) time.Time {
	var latest time.Time
	for _, r := range records {
		if r.Date.After(latest) {
			latest = r.Date
		}
	}
	return latest
}

func changed(records []model.PriceRecord, latest time.Time, change func(model.PriceRecord) *int) []model.PriceRecord {
	out := make([]model.PriceRecord, 0)
	for _, r := range records {
		if !r.Date.Equal(latest) {
			continue
		}
		if c := change(r); c != nil && *c != 0 {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return *change(out[i]) < *change(out[j])
	})
	return out
}

// describe keeps the first description seen per hs4.
func describe(descriptions []model.CommodityDescription) map[string]string {
	out := make(map[string]string, len(descriptions))
	for _, d := range descriptions {
		if _, ok := out[d.HS4]; ok {
			continue
		}
		out[d.HS4] = d.Description
	}
	return out
}

func head(records []model.PriceRecord, n int) []model.PriceRecord {
	if len(records) < n {
		n = len(records)
	}
	return records[:n]
}

func tail(records []model.PriceRecord, n int) []model.PriceRecord {
	if len(records) < n {
		n = len(records)
	}
	return records[len(records)-n:]
}

func annotate(records []model.PriceRecord, desc map[string]string) []Mover {
	out := make([]Mover, 0, len(records))
	for _, r := range records {
		out = append(out, Mover{PriceRecord: r, Description: desc[r.HS4]})
	}
	return out
}
