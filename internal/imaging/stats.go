package imaging

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Percentile returns the p-th percentile (0-100) of vals. The input is
// copied; vals is left unsorted.
func Percentile(vals []float64, p float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	return stat.Quantile(p/100, stat.Empirical, sorted, nil)
}

// percentiles evaluates several percentile points against one sorted copy.
func percentiles(vals []float64, ps ...float64) []float64 {
	out := make([]float64, len(ps))
	if len(vals) == 0 {
		return out
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	for i, p := range ps {
		out[i] = stat.Quantile(p/100, stat.Empirical, sorted, nil)
	}

	return out
}

// Median returns the 50th percentile of vals.
func Median(vals []float64) float64 {
	return Percentile(vals, 50)
}

// Mean returns the arithmetic mean of vals, 0 for an empty slice.
func Mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}

	return stat.Mean(vals, nil)
}

// MAD returns the median absolute deviation of vals around med.
func MAD(vals []float64, med float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	dev := make([]float64, len(vals))
	for i, v := range vals {
		d := v - med
		if d < 0 {
			d = -d
		}
		dev[i] = d
	}

	return Median(dev)
}

// RobustStddev estimates the standard deviation from the MAD using the
// normal consistency constant.
func RobustStddev(vals []float64, med float64) float64 {
	return MAD(vals, med) * 1.4826
}
