// Package stats holds the cross-sectional helpers shared by heat, composer and outlier.
package stats

import (
	"math"
	"sort"
)

// Percentiles assigns each item its cross-sectional percentile in [0, 1].
//
// Items are ordered ascending by value; on equal values the item for which
// ranksHigher(a, b) is true gets the higher position. pct = pos / (N-1),
// a single item gets 1.0, and an empty input returns nil.
// The result is indexed like items.
func Percentiles[T any](items []T, value func(T) float64, ranksHigher func(a, b T) bool) []float64 {
	n := len(items)
	if n == 0 {
		return nil
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(x, y int) bool {
		a, b := items[order[x]], items[order[y]]
		va, vb := value(a), value(b)
		if va != vb {
			return va < vb
		}
		// 동점: 상위로 취급되는 쪽이 뒤로
		return ranksHigher(b, a)
	})

	out := make([]float64, n)
	if n == 1 {
		out[0] = 1.0
		return out
	}
	denom := float64(n - 1)
	for pos, idx := range order {
		out[idx] = float64(pos) / denom
	}
	return out
}

// MeanStd returns the population mean and standard deviation
func MeanStd(values []float64) (mean, std float64) {
	n := len(values)
	if n == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(n)

	if n < 2 {
		return mean, 0
	}
	ss := 0.0
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(n))
}
