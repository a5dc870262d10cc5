// Package render draws ingestion results as standalone HTML chart pages using go-echarts.
package render

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/opt-statistics/backend/internal/models"
)

// ErrNothingToRender is returned for results without any series.
var ErrNothingToRender = errors.New("result has no series")

// Options tune the rendered page.
type Options struct {
	Title string
	// AssetsHost overrides where the echarts scripts are loaded from. Empty uses the library default.
	AssetsHost string
	Width      string
	Height     string
}

func (o Options) init(pageTitle string) opts.Initialization {
	width, height := o.Width, o.Height
	if width == "" {
		width = "100%"
	}
	if height == "" {
		height = "480px"
	}
	return opts.Initialization{PageTitle: pageTitle, Width: width, Height: height, AssetsHost: o.AssetsHost}
}

// Page writes one HTML page holding every chart the result can feed: score, budget and
// domination for mission logs, FPS over time and the FPS summary for performance logs.
func Page(w io.Writer, result *models.IngestionResult, o Options) error {
	if o.Title == "" {
		o.Title = "OPT statistics"
	}

	page := components.NewPage()
	page.PageTitle = o.Title
	if o.AssetsHost != "" {
		page.SetAssetsHost(o.AssetsHost)
	}

	added := 0
	add := func(c components.Charter) {
		page.AddCharts(c)
		added++
	}

	if len(result.ScoreSeries) > 0 {
		add(lineChart(o, "Score", "points", result.ScoreSeries))
	}
	if len(result.BudgetSeries) > 0 {
		add(lineChart(o, "Budget", "budget", result.BudgetSeries))
	}
	if len(result.DominationSeries) > 0 {
		add(dominationChart(o, result.DominationSeries))
	}
	if len(result.PerformanceSeries) > 0 {
		add(lineChart(o, "Server FPS", "fps", result.PerformanceSeries))
	}
	if len(result.PerformanceSummaryBars) > 0 {
		add(summaryChart(o, result.PerformanceSummaryBars))
	}

	if added == 0 {
		return ErrNothingToRender
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("rendering charts: %w", err)
	}
	return nil
}

// minutes converts a game time or elapsed offset to fractional minutes for the x axis.
func minutes(ms int64) float64 {
	return float64(ms) / 60000
}

func color(style models.SeriesStyle) string {
	switch {
	case style.BorderColor != nil:
		return style.BorderColor.CSS()
	case style.BackgroundColor != nil:
		return style.BackgroundColor.CSS()
	}
	return ""
}

// hiddenSeries maps the names of series that start hidden to false, the legend's "deselected" state.
func hiddenSeries(list models.SeriesList) map[string]bool {
	selected := make(map[string]bool)
	for _, s := range list {
		if s.Style.Hidden {
			selected[s.Name] = false
		}
	}
	return selected
}

func lineChart(o Options, title, yName string, list models.SeriesList) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(o.init(title)),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("series=%d", len(list))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom", Selected: hiddenSeries(list)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "min", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: yName}),
	)

	for _, s := range list {
		data := make([]opts.LineData, 0, len(s.Points))
		for _, p := range s.Points {
			if p.Value == nil {
				continue
			}
			data = append(data, opts.LineData{Value: []interface{}{minutes(p.GameTimeMs), *p.Value}})
		}

		chartOpts := opts.LineChart{
			Smooth:     opts.Bool(s.Style.LineTension > 0),
			ShowSymbol: opts.Bool(s.Style.PointRadius > 0),
		}
		if s.Style.Stepped {
			chartOpts.Step = "end"
		}

		seriesOpts := []charts.SeriesOpts{charts.WithLineChartOpts(chartOpts)}
		if c := color(s.Style); c != "" {
			seriesOpts = append(seriesOpts, charts.WithItemStyleOpts(opts.ItemStyle{Color: c}))
		}
		line.AddSeries(s.Name, data, seriesOpts...)
	}

	return line
}

// dominationChart draws every capture as a horizontal bar on its faction's row.
func dominationChart(o Options, list models.SeriesList) *charts.Bar {
	var factions []string
	seen := make(map[string]bool)
	for _, s := range list {
		for _, p := range s.Points {
			if p.Category != "" && !seen[p.Category] {
				seen[p.Category] = true
				factions = append(factions, p.Category)
			}
		}
	}
	sort.Strings(factions)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(o.init("Domination")),
		charts.WithTitleOpts(opts.Title{Title: "Domination", Subtitle: fmt.Sprintf("captures=%d", len(list))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "min", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: factions}),
	)

	for _, s := range list {
		data := make([]opts.BarData, 0, len(s.Points))
		for _, p := range s.Points {
			data = append(data, opts.BarData{Value: []interface{}{minutes(p.GameTimeMs), p.Category}})
		}

		seriesOpts := []charts.SeriesOpts{charts.WithBarChartOpts(opts.BarChart{Stack: s.Style.Stack})}
		if c := color(s.Style); c != "" {
			seriesOpts = append(seriesOpts, charts.WithItemStyleOpts(opts.ItemStyle{Color: c}))
		}
		bar.AddSeries(s.Name, data, seriesOpts...)
	}

	return bar
}

// summaryChart draws the per-player FPS statistics, one bar group per player.
func summaryChart(o Options, list models.SeriesList) *charts.Bar {
	var players []string
	if len(list) > 0 {
		for _, p := range list[0].Points {
			players = append(players, p.Category)
		}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(o.init("FPS summary")),
		charts.WithTitleOpts(opts.Title{Title: "FPS summary", Subtitle: fmt.Sprintf("players=%d", len(players))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom", Selected: hiddenSeries(list)}),
	)
	bar.SetXAxis(players)

	for _, s := range list {
		data := make([]opts.BarData, 0, len(s.Points))
		for _, p := range s.Points {
			var v interface{}
			if p.Value != nil {
				v = *p.Value
			}
			data = append(data, opts.BarData{Value: v})
		}

		var seriesOpts []charts.SeriesOpts
		if c := color(s.Style); c != "" {
			seriesOpts = append(seriesOpts, charts.WithItemStyleOpts(opts.ItemStyle{Color: c}))
		}
		bar.AddSeries(s.Name, data, seriesOpts...)
	}

	return bar
}
