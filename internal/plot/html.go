package plot

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/dailyqa/internal/db"
)

// missing is how echarts marks an absent value in a series.
const missing = "-"

// WriteHTML renders a page with recovery against r-band depth and recovery
// per exposure in scan order.
func WriteHTML(w io.Writer, run *db.Run, records []db.ExposureRecord) error {
	page := components.NewPage()
	page.SetPageTitle(fmt.Sprintf("dailyqa run %s", run.ID))
	page.AddCharts(depthChart(run, records), exposureChart(run, records))

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	return nil
}

func depthChart(run *db.Run, records []db.ExposureRecord) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Recovery vs. r-band depth", Subtitle: fmt.Sprintf("run=%s exposures=%d", run.ID, len(records))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "R_DEPTH", NameLocation: "middle", NameGap: 25, Scale: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "Recovery (%)", NameLocation: "middle", NameGap: 40, Min: 0, Max: 100}),
	)

	for _, s := range Samples {
		pts := Points(records, s, rDepth)
		data := make([]opts.ScatterData, 0, len(pts))
		for _, p := range pts {
			data = append(data, opts.ScatterData{Value: []interface{}{p.X, p.Y}})
		}
		scatter.AddSeries(s.Name, data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
	}
	return scatter
}

func exposureChart(run *db.Run, records []db.ExposureRecord) *charts.Line {
	labels := make([]string, len(records))
	for i, r := range records {
		labels[i] = fmt.Sprintf("%s %d/%d", r.Night, r.ID.Exposure, r.ID.Petal)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Recovery per exposure", Subtitle: fmt.Sprintf("run=%s version=%s", run.ID, run.Version)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "Recovery (%)", NameLocation: "middle", NameGap: 40, Min: 0, Max: 100}),
	)
	line.SetXAxis(labels)

	for _, s := range Samples {
		data := make([]opts.LineData, len(records))
		for i, r := range records {
			data[i] = opts.LineData{Value: missing}
			if pct, ok := s.Pick(r.Recovery).Percent(); ok {
				data[i] = opts.LineData{Value: math.Round(pct*1000) / 1000}
			}
		}
		line.AddSeries(s.Name, data, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}))
	}
	return line
}
