// Command rc-rawlog-dump prints the frames held in a raw frame archive and
// can recount them with different thresholds.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/rcintent/internal/classify"
	"github.com/banshee-data/rcintent/internal/debounce"
	"github.com/banshee-data/rcintent/internal/pipeline"
	"github.com/banshee-data/rcintent/internal/rawlog"
	"github.com/banshee-data/rcintent/internal/rcframe"
	"github.com/banshee-data/rcintent/internal/report"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("rc-rawlog-dump", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("path", "", "Path to the .rawlog archive")
	limit := fs.Int("limit", 10, "Number of frames to print (0 = all, -1 = none)")
	recount := fs.Bool("recount", false, "Classify and debounce the archived frames and print the report")
	deadband := fs.Int("deadband", classify.DefaultDeadband, "Deadband used by -recount")
	debounceSecs := fs.Float64("debounce", debounce.DefaultWindow, "Debounce window in seconds used by -recount")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if *path == "" && fs.NArg() == 1 {
		*path = fs.Arg(0)
	}
	if *path == "" {
		fmt.Fprintln(stderr, "Error: -path is required")
		return 1
	}

	f, err := os.Open(filepath.Clean(*path))
	if err != nil {
		fmt.Fprintf(stderr, "Error: open rawlog: %v\n", err)
		return 1
	}
	defer f.Close()

	r, err := rawlog.NewReader(f)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	var frames []rcframe.Frame
	for {
		frame, ns, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		frames = append(frames, frame)
		if *limit == 0 || len(frames) <= *limit {
			fmt.Fprintf(stdout, "record %d captured=%s %s\n",
				len(frames)-1, time.Unix(0, ns).UTC().Format(time.RFC3339Nano), frame.String())
		}
	}
	fmt.Fprintf(stdout, "%d frames\n", len(frames))

	if !*recount {
		return 0
	}
	opts := pipeline.DefaultOptions()
	opts.Classify.Deadband = *deadband
	opts.Window = *debounceSecs
	res, err := pipeline.Replay(frames, opts)
	res.Source = filepath.Base(*path)
	fmt.Fprintln(stdout)
	if errors.Is(err, pipeline.ErrNoFrames) {
		report.WriteNoFrames(stdout)
		return 2
	}
	if err := report.WriteText(stdout, res, false); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
