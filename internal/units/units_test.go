package units

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		name string
		qty  float64
		unit string
		want float64
	}{
		{name: "kilograms", qty: 12, unit: "kg", want: 12},
		{name: "liters", qty: 3, unit: "L", want: 3},
		{name: "dozens", qty: 75.6, unit: "doz", want: 100},
		{name: "cubic meters", qty: 2, unit: "m3", want: 3120},
		{name: "tons", qty: 1, unit: "T", want: 907.185},
		{name: "karats", qty: 5, unit: "kts", want: 5},
		{name: "proof liters", qty: 10, unit: "pfl", want: 7.89},
		{name: "grams", qty: 0.5, unit: "GM", want: 500},
		{name: "unknown unit passes through", qty: 42, unit: "no", want: 42},
		{name: "empty unit passes through", qty: 7, unit: "", want: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Convert(tt.qty, tt.unit), 1e-9)
		})
	}
}

func TestQuantitySumsBothPairs(t *testing.T) {
	assert.InDelta(t, 1100.0, Quantity(100, "kg", 1, "gm"), 1e-9)
	assert.InDelta(t, 0.0, Quantity(0, "", 0, ""), 1e-9)
}

func TestQuarterFirstMatchWins(t *testing.T) {
	want := map[int]int{
		1: 1, 2: 1, 3: 1,
		4: 2, 5: 2, 6: 2, 7: 2, 8: 2,
		9:  3,
		10: 4, 11: 4, 12: 4,
	}
	for month, quarter := range want {
		assert.Equal(t, quarter, Quarter(month), "month %d", month)
	}
	assert.Equal(t, 0, Quarter(13))
}

func TestFiscalYear(t *testing.T) {
	assert.Equal(t, 2021, FiscalYear(time.Date(2020, 7, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 2020, FiscalYear(time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 2021, FiscalYear(time.Date(2020, 12, 1, 0, 0, 0, 0, time.UTC)))
}

func TestBucketOf(t *testing.T) {
	b := BucketOf(time.Date(2019, 8, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, Bucket{Year: 2019, Month: 8, Quarter: 2, FiscalYear: 2020}, b)
}
