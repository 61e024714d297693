package lookup

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"tradeindex/internal/model"
)

// DescriptionWorkbook reads hs4 descriptions from a workbook with HTS_4 and
// HTS_desc columns.
type DescriptionWorkbook struct {
	Path  string
	Sheet string
}

func NewDescriptionWorkbook(path string) *DescriptionWorkbook {
	return &DescriptionWorkbook{Path: path}
}

// Descriptions returns the distinct (hs4, description) pairs in sheet order.
func (w *DescriptionWorkbook) Descriptions(ctx context.Context) ([]model.CommodityDescription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(w.Path)
	if err != nil {
		return nil, fmt.Errorf("lookup: open %s: %w", w.Path, err)
	}
	defer f.Close()

	sheet := w.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("lookup: read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return []model.CommodityDescription{}, nil
	}

	codeCol, descCol := -1, -1
	for i, name := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "hts_4", "hs4":
			codeCol = i
		case "hts_desc":
			descCol = i
		}
	}
	if codeCol < 0 || descCol < 0 {
		return nil, fmt.Errorf("%w: %s needs HTS_4 and HTS_desc columns", ErrMalformedLookup, w.Path)
	}

	seen := make(map[model.CommodityDescription]struct{})
	out := make([]model.CommodityDescription, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if codeCol >= len(row) {
			continue
		}
		code := strings.TrimSpace(row[codeCol])
		if code == "" {
			continue
		}
		d := model.CommodityDescription{HS4: hs4(code)}
		if descCol < len(row) {
			d.Description = strings.TrimSpace(row[descCol])
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out, nil
}

// DescriptionList serves descriptions loaded ahead of time.
type DescriptionList []model.CommodityDescription

func (l DescriptionList) Descriptions(ctx context.Context) ([]model.CommodityDescription, error) {
	out := make([]model.CommodityDescription, len(l))
	copy(out, l)
	return out, nil
}
