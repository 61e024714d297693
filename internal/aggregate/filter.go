package aggregate

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"tradeindex/internal/model"
)

const dateLayout = "2006-01-02"

// AgricultureLookup flags agricultural commodity codes.
type AgricultureLookup interface {
	IsAgricultural(commodityCode string) bool
}

// Filter narrows the records fed to the aggregation. Every field is optional.
type Filter struct {
	AgricultureOnly bool
	CodePrefix      string
	Date            string
	// Group requests category rollups, which are not supported.
	Group bool
}

type DateFilterKind int

const (
	DateAny DateFilterKind = iota
	DateYear
	DateRange
)

type DateFilter struct {
	Kind  DateFilterKind
	Year  int
	Start time.Time
	End   time.Time
}

// ParseDateFilter accepts "", a four digit year, or two ISO dates joined by
// "+" that bound an inclusive range.
func ParseDateFilter(value string) (DateFilter, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return DateFilter{Kind: DateAny}, nil
	}

	parts := strings.Split(value, "+")
	switch len(parts) {
	case 1:
		year, ok := parseYear(parts[0])
		if !ok {
			return DateFilter{}, fmt.Errorf("%w: invalid year %q", ErrMalformedDateFilter, parts[0])
		}
		return DateFilter{Kind: DateYear, Year: year}, nil
	case 2:
		start, err := time.Parse(dateLayout, strings.TrimSpace(parts[0]))
		if err != nil {
			return DateFilter{}, fmt.Errorf("%w: invalid start date %q", ErrMalformedDateFilter, parts[0])
		}
		end, err := time.Parse(dateLayout, strings.TrimSpace(parts[1]))
		if err != nil {
			return DateFilter{}, fmt.Errorf("%w: invalid end date %q", ErrMalformedDateFilter, parts[1])
		}
		return DateFilter{Kind: DateRange, Start: start, End: end}, nil
	default:
		return DateFilter{}, fmt.Errorf("%w: use \"date\" or \"start_date+end_date\", got %q", ErrMalformedDateFilter, value)
	}
}

func (f DateFilter) Match(date time.Time) bool {
	switch f.Kind {
	case DateYear:
		return date.Year() == f.Year
	case DateRange:
		return !date.Before(f.Start) && !date.After(f.End)
	default:
		return true
	}
}

func parseYear(value string) (int, bool) {
	value = strings.TrimSpace(value)
	if len(value) != 4 || !isDigits(value) {
		return 0, false
	}
	year, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return year, true
}

func isDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Apply runs the pre-filters in order: agriculture flag, code prefix, date.
// The date filter is parsed before any record is touched so a malformed
// value fails fast.
func Apply(records []model.TradeRecord, level model.Level, filter Filter, agri AgricultureLookup) ([]model.TradeRecord, error) {
	if filter.Group {
		return nil, fmt.Errorf("%w: grouping by category is not implemented", ErrUnsupportedOperation)
	}
	dates, err := ParseDateFilter(filter.Date)
	if err != nil {
		return nil, err
	}

	out := records
	if filter.AgricultureOnly {
		if agri == nil {
			return nil, fmt.Errorf("%w: agriculture filter requires a lookup", ErrInvalidFilterValue)
		}
		out = keep(out, func(r model.TradeRecord) bool {
			return agri.IsAgricultural(r.CommodityCode)
		})
	}

	if filter.CodePrefix != "" {
		prefix := filter.CodePrefix
		out = keep(out, func(r model.TradeRecord) bool {
			if level == model.LevelIndustry {
				return strings.HasPrefix(r.IndustryCode, prefix)
			}
			return strings.HasPrefix(r.CommodityCode, prefix)
		})
		if len(out) == 0 {
			return nil, &FilterValueError{Level: level, Code: prefix}
		}
	}

	if dates.Kind != DateAny {
		out = keep(out, func(r model.TradeRecord) bool {
			return dates.Match(r.Date)
		})
	}
	return out, nil
}

func keep(records []model.TradeRecord, pred func(model.TradeRecord) bool) []model.TradeRecord {
	out := make([]model.TradeRecord, 0, len(records))
	for _, r := range records {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

// Run filters records and aggregates them at the requested granularity.
func Run(records []model.TradeRecord, tf model.TimeFrame, level model.Level, filter Filter, agri AgricultureLookup) ([]model.AggregatedRecord, error) {
	if _, err := SpecFor(tf, level); err != nil {
		return nil, err
	}
	filtered, err := Apply(records, level, filter, agri)
	if err != nil {
		return nil, err
	}
	return Aggregate(Prepare(filtered), tf, level)
}
