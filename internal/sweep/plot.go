package sweep

import (
	"fmt"
	"image/color"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// SaveSpeedPlot writes a PNG of mean speed against initial vehicle count,
// one line per distracted percentage.
func SaveSpeedPlot(state State, path string) error {
	series := map[float64]plotter.XYs{}
	for _, combo := range state.Results {
		series[combo.DistractedPct] = append(series[combo.DistractedPct],
			plotter.XY{X: float64(combo.VehicleCount), Y: combo.MeanSpeed.Mean})
	}
	if len(series) == 0 {
		return fmt.Errorf("no results to plot")
	}

	pcts := make([]float64, 0, len(series))
	for pct := range series {
		pcts = append(pcts, pct)
	}
	sort.Float64s(pcts)

	p := plot.New()
	p.Title.Text = "Mean Speed vs Vehicle Count"
	p.X.Label.Text = "Initial Vehicle Count"
	p.Y.Label.Text = "Mean Speed (m/s)"

	colors := seriesColors(len(pcts))
	for i, pct := range pcts {
		pts := series[pct]
		sort.Slice(pts, func(a, b int) bool { return pts[a].X < pts[b].X })

		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("series %.0f%%: %w", pct, err)
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("%.0f%% distracted", pct), line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}

// seriesColors returns n visually distinct line colours.
func seriesColors(n int) []color.Color {
	palette := []color.Color{
		color.RGBA{R: 31, G: 119, B: 180, A: 255},
		color.RGBA{R: 255, G: 127, B: 14, A: 255},
		color.RGBA{R: 44, G: 160, B: 44, A: 255},
		color.RGBA{R: 214, G: 39, B: 40, A: 255},
		color.RGBA{R: 148, G: 103, B: 189, A: 255},
		color.RGBA{R: 140, G: 86, B: 75, A: 255},
		color.RGBA{R: 227, G: 119, B: 194, A: 255},
		color.RGBA{R: 127, G: 127, B: 127, A: 255},
	}
	out := make([]color.Color, n)
	for i := range out {
		out[i] = palette[i%len(palette)]
	}
	return out
}
