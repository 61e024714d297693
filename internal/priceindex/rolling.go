package priceindex

import (
	"math"
	"sort"
)

// RollingMean returns the trailing mean of values over window observations.
// Positions with fewer than minPeriods observations get NaN.
func RollingMean(values []float64, window, minPeriods int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		w := trailing(values, i, window)
		if len(w) < minPeriods {
			out[i] = math.NaN()
			continue
		}
		out[i] = mean(w)
	}
	return out
}

// RollingStd returns the trailing sample standard deviation. It is undefined
// (nil) until a window holds two observations and minPeriods is reached.
func RollingStd(values []float64, window, minPeriods int) []*float64 {
	out := make([]*float64, len(values))
	for i := range values {
		w := trailing(values, i, window)
		if len(w) < minPeriods || len(w) < 2 {
			continue
		}
		m := mean(w)
		var ss float64
		for _, v := range w {
			ss += (v - m) * (v - m)
		}
		std := math.Sqrt(ss / float64(len(w)-1))
		out[i] = &std
	}
	return out
}

func trailing(values []float64, i, window int) []float64 {
	start := i - window + 1
	if start < 0 {
		start = 0
	}
	return values[start : i+1]
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// OrdinalRank ranks values descending: 1 is the highest value and ties keep
// their encounter order.
func OrdinalRank(values []float64) []int {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return values[idx[a]] > values[idx[b]]
	})
	ranks := make([]int, len(values))
	for rank, i := range idx {
		ranks[i] = rank + 1
	}
	return ranks
}
