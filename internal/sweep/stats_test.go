package sweep

import (
	"math"
	"testing"
)

func TestSummarise(t *testing.T) {
	// mean 12, population variance 2.0; variance of the mean 2/5 = 0.4.
	xs := []float64{10, 12, 11, 13, 14}
	got := Summarise(xs)

	if math.Abs(got.Mean-12.0) > 1e-12 {
		t.Errorf("mean: got %f, want 12", got.Mean)
	}
	if math.Abs(got.Variance-0.4) > 1e-12 {
		t.Errorf("variance: got %f, want 0.4", got.Variance)
	}
	if math.Abs(got.Stderr-math.Sqrt(0.4)) > 1e-12 {
		t.Errorf("stderr: got %f, want %f", got.Stderr, math.Sqrt(0.4))
	}
}

func TestSummariseEdgeCases(t *testing.T) {
	if got := Summarise(nil); got != (MetricSummary{}) {
		t.Errorf("empty input: got %+v, want zero summary", got)
	}

	got := Summarise([]float64{7.5})
	if got.Mean != 7.5 || got.Variance != 0 || got.Stderr != 0 {
		t.Errorf("single sample: got %+v, want mean 7.5 with zero spread", got)
	}
}

func TestMeanStddev(t *testing.T) {
	// Sample (n-1) standard deviation of the same vector is √2.5.
	mean, stddev := MeanStddev([]float64{10, 12, 11, 13, 14})
	if math.Abs(mean-12.0) > 1e-12 {
		t.Errorf("mean: got %f, want 12", mean)
	}
	if math.Abs(stddev-math.Sqrt(2.5)) > 1e-12 {
		t.Errorf("stddev: got %f, want %f", stddev, math.Sqrt(2.5))
	}

	if m, s := MeanStddev(nil); m != 0 || s != 0 {
		t.Errorf("empty input: got (%f, %f), want (0, 0)", m, s)
	}
	if _, s := MeanStddev([]float64{3}); s != 0 {
		t.Errorf("single sample stddev: got %f, want 0", s)
	}
}
