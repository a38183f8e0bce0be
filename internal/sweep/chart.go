package sweep

import (
	"fmt"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderFlowDensityChart renders an interactive HTML scatter of flow against
// density for a finished sweep, one series per distracted percentage. The
// traced-out curve is the fundamental diagram of the swept road.
func RenderFlowDensityChart(state State, w io.Writer) error {
	series := map[float64][]opts.ScatterData{}
	for _, combo := range state.Results {
		series[combo.DistractedPct] = append(series[combo.DistractedPct], opts.ScatterData{
			Value: []interface{}{combo.Density.Mean, combo.Flow.Mean, combo.VehicleCount},
		})
	}
	if len(series) == 0 {
		return fmt.Errorf("no results to chart")
	}

	pcts := make([]float64, 0, len(series))
	for pct := range series {
		pcts = append(pcts, pct)
	}
	sort.Float64s(pcts)

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Flow vs Density", Theme: "dark", Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Flow vs Density",
			Subtitle: fmt.Sprintf("run=%s combos=%d", state.RunID, len(state.Results)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Density (veh/m)", NameLocation: "middle", NameGap: 30}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Flow (veh/s)", NameLocation: "middle", NameGap: 40}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "5%"}),
	)

	for _, pct := range pcts {
		scatter.AddSeries(fmt.Sprintf("%.0f%% distracted", pct), series[pct],
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
	}

	return scatter.Render(w)
}
