// Package pipeline folds a capture through the decoder, classifier and
// debouncer and collects everything the reports need.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/rcintent/internal/capture"
	"github.com/banshee-data/rcintent/internal/classify"
	"github.com/banshee-data/rcintent/internal/config"
	"github.com/banshee-data/rcintent/internal/debounce"
	"github.com/banshee-data/rcintent/internal/monitoring"
	"github.com/banshee-data/rcintent/internal/rcframe"
	"github.com/banshee-data/rcintent/internal/stats"
)

// ErrNoFrames is returned with a valid, empty Result when the capture held no
// decodable control frames.
var ErrNoFrames = errors.New("no RC frames found")

// Options controls one run.
type Options struct {
	Port       int
	Classify   classify.Options
	Window     float64
	MaxFrames  int  // stop after this many decoded frames; 0 reads everything
	ShowFirst  int  // keep this many leading frames for diagnostics
	KeepFrames bool // keep every decoded frame in Result.Frames
	UseLibpcap bool
}

// DefaultOptions returns the options for a stock controller on port 8800.
func DefaultOptions() Options {
	return Options{
		Port:     capture.DefaultPort,
		Classify: classify.DefaultOptions(),
		Window:   debounce.DefaultWindow,
	}
}

// OptionsFromConfig builds Options from a run config.
func OptionsFromConfig(cfg *config.RunConfig) Options {
	return Options{
		Port:       cfg.GetUDPPort(),
		Classify:   cfg.ClassifyOptions(),
		Window:     cfg.GetDebounceSeconds(),
		MaxFrames:  cfg.GetMaxFrames(),
		ShowFirst:  cfg.GetShowFirst(),
		UseLibpcap: cfg.GetUseLibpcap(),
	}
}

// Result is everything learned from one capture.
type Result struct {
	Source         string              `json:"source,omitempty"`
	Port           int                 `json:"udp_port"`
	Neutral        int                 `json:"neutral"`
	Deadband       int                 `json:"deadband"`
	Window         float64             `json:"debounce_seconds"`
	Capture        capture.WalkStats   `json:"capture"`
	FramesDecoded  int                 `json:"frames_decoded"`
	Detections     int                 `json:"detections"`
	FirstTimestamp float64             `json:"first_timestamp,omitempty"`
	LastTimestamp  float64             `json:"last_timestamp,omitempty"`
	Counts         debounce.CountTable `json:"counts"`
	Axes           []stats.AxisSummary `json:"axes,omitempty"`
	Events         []debounce.Event    `json:"-"`
	FirstFrames    []rcframe.Frame     `json:"-"`
	Frames         []rcframe.Frame     `json:"-"`
}

// Duration returns the time between the first and last decoded frame.
func (r *Result) Duration() float64 {
	if r.FramesDecoded < 2 {
		return 0
	}
	return r.LastTimestamp - r.FirstTimestamp
}

// Folder accumulates frames one at a time. Run drives it from a capture;
// Replay drives it from an archive of already decoded frames.
type Folder struct {
	opts       Options
	classifier *classify.Classifier
	debouncer  *debounce.Debouncer
	axes       *stats.Accumulator
	res        *Result
}

// NewFolder returns a Folder with its own classifier and debouncer.
func NewFolder(opts Options) *Folder {
	c := classify.New(opts.Classify)
	copts := c.Options()
	return &Folder{
		opts:       opts,
		classifier: c,
		debouncer:  debounce.New(opts.Window),
		axes:       stats.NewAccumulator(c),
		res: &Result{
			Port:     opts.Port,
			Neutral:  copts.Neutral,
			Deadband: copts.Deadband,
			Window:   opts.Window,
		},
	}
}

// Feed decodes payload and folds it in. It reports whether the payload was a
// control frame.
func (f *Folder) Feed(ts float64, payload []byte) bool {
	frame, ok := rcframe.Decode(ts, payload)
	if !ok {
		return false
	}
	f.AddFrame(frame)
	return true
}

// AddFrame folds one decoded frame.
func (f *Folder) AddFrame(frame rcframe.Frame) {
	r := f.res
	if r.FramesDecoded == 0 {
		r.FirstTimestamp = frame.Timestamp
	}
	r.LastTimestamp = frame.Timestamp
	r.FramesDecoded++

	if len(r.FirstFrames) < f.opts.ShowFirst {
		r.FirstFrames = append(r.FirstFrames, frame)
	}
	if f.opts.KeepFrames {
		r.Frames = append(r.Frames, frame)
	}
	f.axes.Add(frame)

	for _, label := range f.classifier.Classify(frame) {
		r.Detections++
		ev := debounce.Event{Timestamp: frame.Timestamp, Label: label}
		if f.debouncer.Add(ev) {
			r.Events = append(r.Events, ev)
		}
	}
}

// Done reports whether the frame limit has been reached.
func (f *Folder) Done() bool {
	return f.opts.MaxFrames > 0 && f.res.FramesDecoded >= f.opts.MaxFrames
}

// Result finalises and returns the accumulated result. It returns
// ErrNoFrames alongside the result when nothing was decoded.
func (f *Folder) Result() (*Result, error) {
	r := f.res
	r.Counts = f.debouncer.Counts()
	if r.FramesDecoded == 0 {
		r.Axes = nil
		return r, ErrNoFrames
	}
	r.Axes = f.axes.Summary()
	return r, nil
}

// Run walks reader and folds every control frame on opts.Port. The reader
// must already be open.
func Run(ctx context.Context, reader capture.PCAPReader, opts Options) (*Result, error) {
	f := NewFolder(opts)
	st, err := capture.Walk(ctx, reader, opts.Port, func(ts float64, payload []byte) error {
		if f.Feed(ts, payload) && f.Done() {
			monitoring.Logf("pipeline: reached frame limit %d", opts.MaxFrames)
			return capture.ErrStop
		}
		return nil
	})
	f.res.Capture = st
	if err != nil {
		return f.res, fmt.Errorf("walk capture: %w", err)
	}
	monitoring.Debugf("pipeline: %d packets, %d udp, %d on port %d, %d frames decoded",
		st.Packets, st.UDP, st.Matched, opts.Port, f.res.FramesDecoded)
	return f.Result()
}

// RunFile opens filename and runs it.
func RunFile(ctx context.Context, filename string, opts Options) (*Result, error) {
	reader, err := capture.NewReader(opts.UseLibpcap)
	if err != nil {
		return nil, err
	}
	if err := reader.Open(filename); err != nil {
		return nil, err
	}
	defer reader.Close()

	res, err := Run(ctx, reader, opts)
	if res != nil {
		res.Source = filepath.Base(filename)
	}
	return res, err
}

// Replay folds already decoded frames, for example from a raw archive, with
// possibly different thresholds than the original run.
func Replay(frames []rcframe.Frame, opts Options) (*Result, error) {
	f := NewFolder(opts)
	for _, frame := range frames {
		if f.Done() {
			break
		}
		f.AddFrame(frame)
	}
	return f.Result()
}
