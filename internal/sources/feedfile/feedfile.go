// Package feedfile reads trade feed exports from CSV or XLSX files.
package feedfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"tradeindex/internal/model"
)

var (
	ErrUnsupportedFormat = errors.New("feedfile: unsupported file format")
	ErrMissingColumn     = errors.New("feedfile: missing column")
	ErrMalformedRow      = errors.New("feedfile: malformed row")
)

const (
	codeWidth      = 10
	returnIndustry = "RETURN"
)

// columns names the feed-specific headers; the rest are shared.
type columns struct {
	code  string
	flow  string
	value string
}

var feedColumns = map[model.Feed]columns{
	model.FeedInstitute: {code: "commodity_code", flow: "trade", value: "data"},
	model.FeedCurated:   {code: "hts", flow: "import_export", value: "value"},
}

// Reader is a sources.Source backed by one feed export file.
type Reader struct {
	Path  string
	Feed  model.Feed
	Sheet string
}

func New(path string, feed model.Feed) *Reader {
	return &Reader{Path: path, Feed: feed}
}

func (r *Reader) Name() string {
	return fmt.Sprintf("feedfile:%s", r.Feed)
}

func (r *Reader) Records(ctx context.Context) ([]model.TradeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(r.Path)) {
	case ".csv":
		rows, err = readCSV(r.Path)
	case ".xlsx":
		rows, err = readXLSX(r.Path, r.Sheet)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, r.Path)
	}
	if err != nil {
		return nil, err
	}
	return Parse(rows, r.Feed)
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("feedfile: open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("feedfile: read %s: %w", path, err)
	}
	return rows, nil
}

func readXLSX(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("feedfile: open %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: %s has no sheets", ErrMalformedRow, path)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("feedfile: read sheet %s: %w", sheet, err)
	}
	return rows, nil
}

// Parse normalizes a header row plus data rows into trade records.
func Parse(rows [][]string, feed model.Feed) ([]model.TradeRecord, error) {
	cols, ok := feedColumns[feed]
	if !ok {
		return nil, fmt.Errorf("feedfile: unknown feed %q", feed)
	}
	if len(rows) == 0 {
		return []model.TradeRecord{}, nil
	}

	header := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		header[name] = i
	}
	for _, required := range []string{"year", "month", "country", cols.code, cols.flow, cols.value} {
		if _, ok := header[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	out := make([]model.TradeRecord, 0, len(rows)-1)
	for n, row := range rows[1:] {
		line := n + 2
		cell := func(name string) string {
			i, ok := header[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		if isBlank(row) {
			continue
		}

		industry := cell("naics")
		if feed == model.FeedInstitute && strings.EqualFold(industry, returnIndustry) {
			continue
		}

		year, err := strconv.Atoi(cell("year"))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: year %q", ErrMalformedRow, line, cell("year"))
		}
		month, err := strconv.Atoi(cell("month"))
		if err != nil || month < 1 || month > 12 {
			return nil, fmt.Errorf("%w: line %d: month %q", ErrMalformedRow, line, cell("month"))
		}

		record := model.TradeRecord{
			Date:          time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC),
			Flow:          flowOf(cell(cols.flow)),
			CommodityCode: NormalizeCode(cell(cols.code)),
			IndustryCode:  industry,
			Country:       cell("country"),
			Description:   cell("hts_desc"),
			Unit1:         strings.ToLower(cell("unit_1")),
			Unit2:         strings.ToLower(cell("unit_2")),
		}
		numbers := []struct {
			name string
			dst  *float64
		}{
			{cols.value, &record.Value},
			{"qty_1", &record.Qty1},
			{"qty_2", &record.Qty2},
		}
		for _, num := range numbers {
			v, err := parseNumber(cell(num.name))
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %s %q", ErrMalformedRow, line, num.name, cell(num.name))
			}
			*num.dst = v
		}
		out = append(out, record)
	}
	return out, nil
}

// NormalizeCode strips quote marks and left-pads the code with zeros to ten
// digits. Empty codes stay empty.
func NormalizeCode(code string) string {
	code = strings.TrimSpace(strings.ReplaceAll(code, "'", ""))
	if code == "" || len(code) >= codeWidth {
		return code
	}
	return strings.Repeat("0", codeWidth-len(code)) + code
}

// flowOf maps the single-letter trade flag; anything that is not an import
// is treated as an export.
func flowOf(value string) model.Flow {
	flow, err := model.ParseFlow(value)
	if err != nil {
		return model.FlowExport
	}
	return flow
}

func parseNumber(value string) (float64, error) {
	value = strings.ReplaceAll(value, ",", "")
	if value == "" {
		return 0, nil
	}
	return strconv.ParseFloat(value, 64)
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
