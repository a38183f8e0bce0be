// Package sweep orchestrates Monte Carlo parameter sweeps over traffic
// trials. It includes range parsing, aggregate statistics, CSV/chart output
// and the background sweep runner.
package sweep

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// MetricSummary aggregates one scalar metric across the trials of a
// parameter combination. Variance here is the variance of the sample mean
// (population variance over N), and Stderr its square root, so error bars
// shrink as trials are added.
type MetricSummary struct {
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	Stderr   float64 `json:"stderr"`
}

// Summarise reduces per-trial samples to a MetricSummary. An empty input
// yields the zero summary.
func Summarise(xs []float64) MetricSummary {
	if len(xs) == 0 {
		return MetricSummary{}
	}
	n := float64(len(xs))
	v := stat.PopVariance(xs, nil) / n
	return MetricSummary{
		Mean:     stat.Mean(xs, nil),
		Variance: v,
		Stderr:   math.Sqrt(v),
	}
}

// MeanStddev calculates the mean and sample standard deviation of a slice.
// Returns (0, 0) for empty slices.
func MeanStddev(xs []float64) (mean float64, stddev float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	mean = stat.Mean(xs, nil)
	if len(xs) > 1 {
		stddev = math.Sqrt(stat.Variance(xs, nil))
	}
	return mean, stddev
}
