package report

import (
	"errors"
	"fmt"
	"image/color"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/rcintent/internal/classify"
	"github.com/banshee-data/rcintent/internal/pipeline"
	"github.com/banshee-data/rcintent/internal/rcframe"
)

// axisColors matches classify.Axes order: pitch, roll, throttle, yaw.
var axisColors = [...]color.Color{
	color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 255},
	color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 255},
	color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 255},
	color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 255},
}

// AxisPlot builds a plot of the stick channels over time with the deadband
// edges drawn as dashed lines.
func AxisPlot(title string, frames []rcframe.Frame, neutral, deadband int) (*plot.Plot, error) {
	if len(frames) == 0 {
		return nil, errors.New("no frames to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Stick value"
	p.Y.Min = 0
	p.Y.Max = 255

	t0 := frames[0].Timestamp
	tEnd := frames[len(frames)-1].Timestamp - t0

	for i, a := range classify.Axes {
		pts := make(plotter.XYs, 0, len(frames))
		for _, f := range frames {
			pts = append(pts, plotter.XY{X: f.Timestamp - t0, Y: float64(classify.AxisValue(f, a))})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("%s line: %w", a, err)
		}
		line.Color = axisColors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(a.String(), line)
	}

	for _, edge := range []int{neutral - deadband, neutral + deadband} {
		band, err := plotter.NewLine(plotter.XYs{{X: 0, Y: float64(edge)}, {X: tEnd, Y: float64(edge)}})
		if err != nil {
			return nil, fmt.Errorf("deadband line: %w", err)
		}
		band.Color = color.Gray{Y: 128}
		band.Width = vg.Points(0.5)
		band.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(band)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// SaveAxisPlot writes the stick plot of res to path. The image format
// follows the extension (.png, .svg, .pdf).
func SaveAxisPlot(path string, res *pipeline.Result) error {
	title := "Stick positions"
	if res.Source != "" {
		title = fmt.Sprintf("Stick positions: %s", res.Source)
	}
	p, err := AxisPlot(title, res.Frames, res.Neutral, res.Deadband)
	if err != nil {
		return err
	}
	if err := p.Save(14*vg.Inch, 6*vg.Inch, filepath.Clean(path)); err != nil {
		return fmt.Errorf("save axis plot: %w", err)
	}
	return nil
}
