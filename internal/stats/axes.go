// Package stats summarises stick positions across a capture.
package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/rcintent/internal/classify"
	"github.com/banshee-data/rcintent/internal/rcframe"
)

// AxisSummary describes one stick channel over all decoded frames.
type AxisSummary struct {
	Axis   string  `json:"axis"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	P50    float64 `json:"p50"`
	// Active is the number of frames where the stick was outside the deadband.
	Active int `json:"active_frames"`
}

// Accumulator collects stick values frame by frame.
type Accumulator struct {
	classifier *classify.Classifier
	values     [len(classify.Axes)][]float64
	active     [len(classify.Axes)]int
}

// NewAccumulator creates an Accumulator using c to decide which frames are
// outside the deadband.
func NewAccumulator(c *classify.Classifier) *Accumulator {
	return &Accumulator{classifier: c}
}

// Add records f.
func (a *Accumulator) Add(f rcframe.Frame) {
	for i, axis := range classify.Axes {
		v := classify.AxisValue(f, axis)
		a.values[i] = append(a.values[i], float64(v))
		if _, ok := a.classifier.AxisLabel(axis, v); ok {
			a.active[i]++
		}
	}
}

// Len returns the number of frames recorded.
func (a *Accumulator) Len() int {
	return len(a.values[0])
}

// Summary returns one entry per axis in emission order.
func (a *Accumulator) Summary() []AxisSummary {
	out := make([]AxisSummary, 0, len(classify.Axes))
	for i, axis := range classify.Axes {
		out = append(out, summarise(axis.String(), a.values[i], a.active[i]))
	}
	return out
}

func summarise(name string, values []float64, active int) AxisSummary {
	s := AxisSummary{Axis: name, Active: active}
	if len(values) == 0 {
		return s
	}

	s.Min = floats.Min(values)
	s.Max = floats.Max(values)
	if len(values) == 1 {
		s.Mean = values[0]
		s.P50 = values[0]
		return s
	}

	s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
	if math.IsNaN(s.StdDev) {
		s.StdDev = 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	floats.Argsort(sorted, make([]int, len(sorted)))
	s.P50 = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	return s
}
