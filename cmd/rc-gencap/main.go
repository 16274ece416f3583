// Command rc-gencap writes a synthetic capture of a scripted demo flight.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/banshee-data/rcintent/internal/capture"
	"github.com/banshee-data/rcintent/internal/flight"
	"github.com/banshee-data/rcintent/internal/monitoring"
	"github.com/banshee-data/rcintent/internal/timeutil"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr, timeutil.RealClock{}))
}

func run(args []string, stderr io.Writer, clock timeutil.Clock) int {
	fs := flag.NewFlagSet("rc-gencap", flag.ContinueOnError)
	fs.SetOutput(stderr)
	output := fs.String("o", "demo.pcap", "output path; .pcapng writes pcapng, anything else pcap")
	seed := fs.Int64("seed", 1, "random seed for jitter and noise")
	rate := fs.Float64("rate", 20, "frames per second")
	jitter := fs.Int("jitter", 0, "max random stick noise per axis, in counts")
	noise := fs.Float64("noise", 0, "fraction of packets replaced by non-frame keep-alives")
	port := fs.Int("port", capture.DefaultPort, "UDP destination port")
	repeat := fs.Int("repeat", 1, "number of times to fly the demo script")
	start := fs.String("start", "", "capture start time, RFC3339 (default now)")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: rc-gencap [options]\n\n")
		fmt.Fprintf(stderr, "Write a capture of a scripted flight: takeoff, climb, moves on every\n")
		fmt.Fprintf(stderr, "axis, headless toggle, descent and landing.\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	t0 := clock.Now().UTC()
	if *start != "" {
		parsed, err := time.Parse(time.RFC3339, *start)
		if err != nil {
			fmt.Fprintf(stderr, "Error: invalid -start: %v\n", err)
			return 1
		}
		t0 = parsed
	}
	if *repeat < 1 {
		fmt.Fprintf(stderr, "Error: -repeat must be at least 1\n")
		return 1
	}

	var segments []flight.Segment
	for i := 0; i < *repeat; i++ {
		segments = append(segments, flight.DemoFlight()...)
	}

	gen := flight.NewGenerator(*seed)
	gen.FrameRate = *rate
	gen.Jitter = *jitter
	gen.NoiseRate = *noise

	ep := capture.DefaultEndpoints()
	ep.DstPort = *port

	n, err := writeCapture(*output, ep, gen, t0, segments)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	monitoring.Logf("Created %s: %d packets over %d segments", *output, n, len(segments))
	return 0
}

func writeCapture(path string, ep capture.Endpoints, gen *flight.Generator, start time.Time, segments []flight.Segment) (int, error) {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return 0, fmt.Errorf("create capture: %w", err)
	}
	defer f.Close()

	newWriter := capture.NewWriter
	if strings.EqualFold(filepath.Ext(path), ".pcapng") {
		newWriter = capture.NewNgWriter
	}
	w, err := newWriter(f, ep)
	if err != nil {
		return 0, err
	}
	n, err := gen.WriteCapture(w, start, segments)
	if err != nil {
		return n, err
	}
	if err := w.Close(); err != nil {
		return n, err
	}
	return n, f.Close()
}
