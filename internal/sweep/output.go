package sweep

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
)

// CSVWriter wraps csv.Writer with methods for sweep output. The summary file
// carries one row per parameter combination; the raw file carries one row per
// trial, seed included, so any point can be re-run.
type CSVWriter struct {
	Summary *csv.Writer
	Raw     *csv.Writer
}

// NewCSVWriter creates a new CSVWriter with the given summary and raw writers.
// Either writer may be nil to skip that output.
func NewCSVWriter(summary, raw io.Writer) *CSVWriter {
	c := &CSVWriter{}
	if summary != nil {
		c.Summary = csv.NewWriter(summary)
	}
	if raw != nil {
		c.Raw = csv.NewWriter(raw)
	}
	return c
}

// WriteHeaders writes the headers to both summary and raw CSV files.
func (c *CSVWriter) WriteHeaders() {
	if c.Summary != nil {
		c.Summary.Write(SummaryHeaders())
	}
	if c.Raw != nil {
		c.Raw.Write(RawHeaders())
	}
}

// SummaryHeaders returns the summary header column names.
func SummaryHeaders() []string {
	header := []string{"vehicle_count", "distracted_pct", "trials", "failed_trials"}
	for _, m := range []string{"mean_speed", "flow", "density", "exits"} {
		header = append(header, m+"_mean", m+"_variance", m+"_stderr")
	}
	return header
}

// RawHeaders returns the raw data header column names.
func RawHeaders() []string {
	return []string{
		"vehicle_count", "distracted_pct", "trial", "seed",
		"duration", "spawned", "exits", "final_vehicle_count",
		"mean_speed", "flow", "density",
	}
}

// WriteCombo writes one combination: a summary row plus one raw row per
// surviving trial.
func (c *CSVWriter) WriteCombo(combo ComboResult) {
	if combo.Trials == 0 {
		log.Printf("WARNING: combination with no trials, skipping")
		return
	}

	if c.Summary != nil {
		row := []string{
			fmt.Sprintf("%d", combo.VehicleCount),
			fmt.Sprintf("%.2f", combo.DistractedPct),
			fmt.Sprintf("%d", combo.Trials),
			fmt.Sprintf("%d", combo.FailedTrials),
		}
		for _, m := range []MetricSummary{combo.MeanSpeed, combo.Flow, combo.Density, combo.Exits} {
			row = append(row,
				fmt.Sprintf("%.6f", m.Mean),
				fmt.Sprintf("%.6f", m.Variance),
				fmt.Sprintf("%.6f", m.Stderr),
			)
		}
		c.Summary.Write(row)
		c.Summary.Flush()
	}

	if c.Raw != nil {
		for _, s := range combo.Raw {
			c.Raw.Write([]string{
				fmt.Sprintf("%d", combo.VehicleCount),
				fmt.Sprintf("%.2f", combo.DistractedPct),
				fmt.Sprintf("%d", s.Trial),
				fmt.Sprintf("%d", s.Seed),
				fmt.Sprintf("%.1f", s.Result.Duration),
				fmt.Sprintf("%d", s.Result.Spawned),
				fmt.Sprintf("%d", s.Result.Exits),
				fmt.Sprintf("%d", s.Result.FinalVehicleCount),
				fmt.Sprintf("%.6f", s.Result.MeanSpeed),
				fmt.Sprintf("%.6f", s.Result.Flow),
				fmt.Sprintf("%.6f", s.Result.Density),
			})
		}
		c.Raw.Flush()
	}
}

// WriteState writes every completed combination of a finished sweep.
func (c *CSVWriter) WriteState(state State) {
	c.WriteHeaders()
	for _, combo := range state.Results {
		c.WriteCombo(combo)
	}
	c.Flush()
}

// Flush flushes both summary and raw writers.
func (c *CSVWriter) Flush() {
	if c.Summary != nil {
		c.Summary.Flush()
	}
	if c.Raw != nil {
		c.Raw.Flush()
	}
}
