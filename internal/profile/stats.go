package profile

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// describe computes numeric statistics over non-empty values.
func describe(values []float64) NumericStats {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mean := stat.Mean(sorted, nil)
	std := 0.0
	if len(sorted) > 1 {
		// stat.StdDev is the unbiased (n-1) estimator.
		std = stat.StdDev(sorted, nil)
	}

	return NumericStats{
		Mean:   mean,
		Median: Quantile(sorted, 0.5),
		Std:    std,
		Q1:     Quantile(sorted, 0.25),
		Q3:     Quantile(sorted, 0.75),
		Min:    floats.Min(sorted),
		Max:    floats.Max(sorted),
	}
}

// Quantile returns the p-quantile of ascending-sorted values, interpolating
// linearly between the closest ranks at position (n-1)*p.
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	pos := float64(n-1) * p
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
