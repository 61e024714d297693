// Package aggregate rolls trade records up to import/export totals per
// dimension key and time bucket.
package aggregate

import (
	"sort"

	"tradeindex/internal/model"
	"tradeindex/internal/units"
)

// Row is a trade record with its canonical quantity and time bucket resolved.
type Row struct {
	model.TradeRecord
	Quantity float64
	Bucket   units.Bucket
}

// Prepare converts quantities to the canonical unit and derives time buckets.
func Prepare(records []model.TradeRecord) []Row {
	rows := make([]Row, 0, len(records))
	for _, record := range records {
		rows = append(rows, Row{
			TradeRecord: record,
			Quantity:    units.Quantity(record.Qty1, record.Unit1, record.Qty2, record.Unit2),
			Bucket:      units.BucketOf(record.Date),
		})
	}
	return rows
}

// Partial is one side of the import/export split after grouping.
type Partial struct {
	Key   Key
	Value float64
	Qty   float64
}

// Joined is a row of the outer join; a nil metric means the key was absent
// on that side.
type Joined struct {
	Key        Key
	Imports    *float64
	ImportsQty *float64
	Exports    *float64
	ExportsQty *float64
}

// SplitAndSum drops rows without a commodity code, partitions the rest by
// flow and sums value and quantity per key of spec.
func SplitAndSum(rows []Row, spec GroupSpec) (imports, exports []Partial) {
	importIdx := make(map[Key]int)
	exportIdx := make(map[Key]int)
	for _, row := range rows {
		if row.CommodityCode == "" {
			continue
		}
		key := spec.keyOf(row)
		switch row.Flow {
		case model.FlowImport:
			imports = addTo(imports, importIdx, key, row)
		case model.FlowExport:
			exports = addTo(exports, exportIdx, key, row)
		}
	}
	sortPartials(imports, spec)
	sortPartials(exports, spec)
	return imports, exports
}

func addTo(partials []Partial, index map[Key]int, key Key, row Row) []Partial {
	if i, ok := index[key]; ok {
		partials[i].Value += row.Value
		partials[i].Qty += row.Quantity
		return partials
	}
	index[key] = len(partials)
	return append(partials, Partial{Key: key, Value: row.Value, Qty: row.Quantity})
}

func sortPartials(partials []Partial, spec GroupSpec) {
	sort.SliceStable(partials, func(i, j int) bool {
		return spec.less(spec.Dims, partials[i].Key, partials[j].Key)
	})
}

// OuterJoinCoalesce full-outer-joins the two partial tables on the key.
// Every dimension column takes the import side's value and falls back to the
// export side's when the import side is missing.
func OuterJoinCoalesce(imports, exports []Partial, spec GroupSpec) []Joined {
	exportIdx := make(map[Key]int, len(exports))
	for i, p := range exports {
		exportIdx[p.Key] = i
	}
	matched := make([]bool, len(exports))

	joined := make([]Joined, 0, len(imports)+len(exports))
	for i := range imports {
		left := &imports[i]
		var right *Partial
		if j, ok := exportIdx[left.Key]; ok {
			right = &exports[j]
			matched[j] = true
		}
		joined = append(joined, joinRow(spec, left, right))
	}
	for j := range exports {
		if matched[j] {
			continue
		}
		joined = append(joined, joinRow(spec, nil, &exports[j]))
	}
	return joined
}

func joinRow(spec GroupSpec, left, right *Partial) Joined {
	var row Joined
	for _, dim := range spec.Dims {
		if left != nil {
			dim.copyFrom(&row.Key, left.Key)
			continue
		}
		dim.copyFrom(&row.Key, right.Key)
	}
	if left != nil {
		row.Imports = floatPtr(left.Value)
		row.ImportsQty = floatPtr(left.Qty)
	}
	if right != nil {
		row.Exports = floatPtr(right.Value)
		row.ExportsQty = floatPtr(right.Qty)
	}
	return row
}

// ZeroFill replaces missing metrics with zero.
func ZeroFill(joined []Joined) []model.AggregatedRecord {
	out := make([]model.AggregatedRecord, 0, len(joined))
	for _, row := range joined {
		out = append(out, model.AggregatedRecord{
			Year:          row.Key.Year,
			FiscalYear:    row.Key.FiscalYear,
			Quarter:       row.Key.Quarter,
			Month:         row.Key.Month,
			IndustryCode:  row.Key.IndustryCode,
			Country:       row.Key.Country,
			CommodityCode: row.Key.CommodityCode,
			Imports:       valueOrZero(row.Imports),
			ImportsQty:    valueOrZero(row.ImportsQty),
			Exports:       valueOrZero(row.Exports),
			ExportsQty:    valueOrZero(row.ExportsQty),
		})
	}
	return out
}

// DeriveNet returns a copy of records with the net columns computed.
func DeriveNet(records []model.AggregatedRecord) []model.AggregatedRecord {
	out := make([]model.AggregatedRecord, len(records))
	for i, record := range records {
		record.NetExports = record.Exports - record.Imports
		record.NetQty = record.ExportsQty - record.ImportsQty
		out[i] = record
	}
	return out
}

// Aggregate groups prepared rows for a (time frame, level) pair.
func Aggregate(rows []Row, tf model.TimeFrame, level model.Level) ([]model.AggregatedRecord, error) {
	spec, err := SpecFor(tf, level)
	if err != nil {
		return nil, err
	}
	imports, exports := SplitAndSum(rows, spec)
	records := ZeroFill(OuterJoinCoalesce(imports, exports, spec))
	sort.SliceStable(records, func(i, j int) bool {
		return spec.less(spec.SortKeys, keyOfRecord(records[i]), keyOfRecord(records[j]))
	})
	return DeriveNet(records), nil
}

func keyOfRecord(r model.AggregatedRecord) Key {
	return Key{
		Year:          r.Year,
		FiscalYear:    r.FiscalYear,
		Quarter:       r.Quarter,
		Month:         r.Month,
		IndustryCode:  r.IndustryCode,
		Country:       r.Country,
		CommodityCode: r.CommodityCode,
	}
}

func floatPtr(v float64) *float64 {
	return &v
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
