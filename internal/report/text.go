package report

import (
	"fmt"
	"io"

	"github.com/banshee-data/rcintent/internal/debounce"
	"github.com/banshee-data/rcintent/internal/pipeline"
	"github.com/banshee-data/rcintent/internal/rcframe"
	"github.com/banshee-data/rcintent/internal/stats"
)

// FormatEntry renders one report line.
func FormatEntry(e Entry) string {
	return fmt.Sprintf("%-16s x%d", e.Label, e.Count)
}

// Lines renders counts as report lines in report order.
func Lines(counts debounce.CountTable) []string {
	entries := Order(counts)
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, FormatEntry(e))
	}
	return lines
}

// WriteNoFrames writes the message shown when a capture held no frames.
func WriteNoFrames(w io.Writer) error {
	_, err := fmt.Fprint(w, "No RC frames found.\n"+
		"Tips:\n"+
		"- Confirm capture contains IP/UDP packets (recommend capturing with: tshark -I -i wlan0mon ... -w session.pcap)\n"+
		"- Try changing --port if your drone uses a different port\n")
	return err
}

// WriteFirstFrames writes one diagnostics line per frame followed by a blank
// line. Nothing is written for an empty slice.
func WriteFirstFrames(w io.Writer, frames []rcframe.Frame) error {
	if len(frames) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, "First %d frames:\n", len(frames)); err != nil {
		return err
	}
	for _, f := range frames {
		if _, err := fmt.Fprintln(w, f.String()); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

// WriteSummary writes the run header and the ordered counts.
func WriteSummary(w io.Writer, res *pipeline.Result) error {
	if _, err := fmt.Fprintf(w, "Decoded RC frames: %d\n", res.FramesDecoded); err != nil {
		return err
	}
	fmt.Fprintf(w, "UDP port: %d\n", res.Port)
	fmt.Fprintf(w, "Deadband: ±%d around %d (0x%02x)\n", res.Deadband, res.Neutral, res.Neutral)
	fmt.Fprintf(w, "Debounce: %.2fs\n", res.Window)
	fmt.Fprintln(w)

	for _, line := range Lines(res.Counts) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// WriteAxes writes the per-axis statistics table.
func WriteAxes(w io.Writer, axes []stats.AxisSummary) error {
	if len(axes) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, "\n%-9s %7s %7s %5s %5s %5s %7s\n", "axis", "mean", "stddev", "min", "p50", "max", "active"); err != nil {
		return err
	}
	for _, a := range axes {
		if _, err := fmt.Fprintf(w, "%-9s %7.1f %7.1f %5.0f %5.0f %5.0f %7d\n",
			a.Axis, a.Mean, a.StdDev, a.Min, a.P50, a.Max, a.Active); err != nil {
			return err
		}
	}
	return nil
}

// WriteText writes the full text report for res: first frames, summary and,
// when withAxes is set, the axis table.
func WriteText(w io.Writer, res *pipeline.Result, withAxes bool) error {
	if res.FramesDecoded == 0 {
		return WriteNoFrames(w)
	}
	if err := WriteFirstFrames(w, res.FirstFrames); err != nil {
		return err
	}
	if err := WriteSummary(w, res); err != nil {
		return err
	}
	if withAxes {
		return WriteAxes(w, res.Axes)
	}
	return nil
}
