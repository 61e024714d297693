// Package units normalizes trade quantities to kilograms and derives the
// calendar and fiscal time buckets of a record date.
package units

import (
	"strings"
	"time"
)

type factor struct {
	value  float64
	divide bool
}

var kgFactors = map[string]factor{
	"kg":  {value: 1},
	"l":   {value: 1},
	"doz": {value: 0.756, divide: true},
	"m3":  {value: 1560},
	"t":   {value: 907.185},
	"kts": {value: 1},
	"pfl": {value: 0.789},
	"gm":  {value: 1000},
}

// Convert returns qty expressed in the canonical unit. Units outside the
// table pass through unchanged.
func Convert(qty float64, unit string) float64 {
	f, ok := kgFactors[strings.ToLower(strings.TrimSpace(unit))]
	if !ok {
		return qty
	}
	if f.divide {
		return qty / f.value
	}
	return qty * f.value
}

// Quantity is the canonical quantity of a record carrying two quantity/unit pairs.
func Quantity(qty1 float64, unit1 string, qty2 float64, unit2 string) float64 {
	return Convert(qty1, unit1) + Convert(qty2, unit2)
}

type quarterRule struct {
	from, to int
	quarter  int
}

// The 4-8 and 7-9 ranges overlap; rules are checked in order so July and
// August land in Q2.
var quarterRules = []quarterRule{
	{from: 1, to: 3, quarter: 1},
	{from: 4, to: 8, quarter: 2},
	{from: 7, to: 9, quarter: 3},
	{from: 10, to: 12, quarter: 4},
}

// Quarter returns the quarter of month, or 0 for a month outside 1-12.
func Quarter(month int) int {
	for _, rule := range quarterRules {
		if month >= rule.from && month <= rule.to {
			return rule.quarter
		}
	}
	return 0
}

func FiscalYear(date time.Time) int {
	if int(date.Month()) > 6 {
		return date.Year() + 1
	}
	return date.Year()
}

type Bucket struct {
	Year       int
	Month      int
	Quarter    int
	FiscalYear int
}

func BucketOf(date time.Time) Bucket {
	month := int(date.Month())
	return Bucket{
		Year:       date.Year(),
		Month:      month,
		Quarter:    Quarter(month),
		FiscalYear: FiscalYear(date),
	}
}
