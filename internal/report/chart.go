package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/rcintent/internal/classify"
	"github.com/banshee-data/rcintent/internal/pipeline"
	"github.com/banshee-data/rcintent/internal/rcframe"
)

// maxTimelinePoints caps the samples per series in the timeline chart.
const maxTimelinePoints = 2000

// AssetsHost is where rendered pages load the echarts scripts from. Empty
// uses the go-echarts default CDN.
var AssetsHost = ""

func initOpts(title, height string) opts.Initialization {
	o := opts.Initialization{PageTitle: title, Width: "100%", Height: height}
	if AssetsHost != "" {
		o.AssetsHost = AssetsHost
	}
	return o
}

// CountsBar charts the report entries as bars in report order.
func CountsBar(title, subtitle string, entries []Entry) *charts.Bar {
	x := make([]string, 0, len(entries))
	y := make([]opts.BarData, 0, len(entries))
	for _, e := range entries {
		x = append(x, string(e.Label))
		y = append(y, opts.BarData{Value: e.Count})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts(title, "480px")),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "action"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "count"}),
	)
	bar.SetXAxis(x).
		AddSeries("count", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

// AxisTimeline charts the four stick channels against time since the first
// frame. Long captures are thinned to maxTimelinePoints per channel.
func AxisTimeline(frames []rcframe.Frame, neutral int) *charts.Line {
	stride := 1
	if len(frames) > maxTimelinePoints {
		stride = (len(frames) + maxTimelinePoints - 1) / maxTimelinePoints
	}

	var t0 float64
	if len(frames) > 0 {
		t0 = frames[0].Timestamp
	}
	x := make([]string, 0, len(frames)/stride+1)
	series := make([][]opts.LineData, len(classify.Axes))
	for i := 0; i < len(frames); i += stride {
		f := frames[i]
		x = append(x, fmt.Sprintf("%.2f", f.Timestamp-t0))
		for j, a := range classify.Axes {
			series[j] = append(series[j], opts.LineData{Value: classify.AxisValue(f, a)})
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts("Stick positions", "480px")),
		charts.WithTitleOpts(opts.Title{Title: "Stick positions", Subtitle: fmt.Sprintf("frames=%d neutral=%d", len(frames), neutral)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "value", Min: 0, Max: 255}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)
	line.SetXAxis(x)
	for j, a := range classify.Axes {
		line.AddSeries(a.String(), series[j], charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	}
	return line
}

// RenderChart writes an HTML page with the counts bar chart and, when res
// kept its frames, the stick timeline.
func RenderChart(w io.Writer, res *pipeline.Result) error {
	subtitle := fmt.Sprintf("frames=%d deadband=±%d debounce=%.2fs", res.FramesDecoded, res.Deadband, res.Window)
	title := "RC actions"
	if res.Source != "" {
		title = "RC actions: " + res.Source
	}

	charters := []components.Charter{CountsBar(title, subtitle, Order(res.Counts))}
	if len(res.Frames) > 0 {
		charters = append(charters, AxisTimeline(res.Frames, res.Neutral))
	}
	return renderPage(w, title, charters...)
}

// RenderCountsPage writes an HTML page holding only the counts bar chart.
func RenderCountsPage(w io.Writer, title, subtitle string, entries []Entry) error {
	return renderPage(w, title, CountsBar(title, subtitle, entries))
}

func renderPage(w io.Writer, title string, charters ...components.Charter) error {
	page := components.NewPage()
	page.SetPageTitle(title)
	if AssetsHost != "" {
		page.SetAssetsHost(AssetsHost)
	}
	page.AddCharts(charters...)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

// SaveChart renders the chart page for res to path.
func SaveChart(path string, res *pipeline.Result) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	if err := RenderChart(f, res); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
