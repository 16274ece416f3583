// Command rc-decode reads a packet capture of a toy drone controller's UDP
// control stream and prints the debounced actions it contains.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/banshee-data/rcintent/internal/config"
	"github.com/banshee-data/rcintent/internal/db"
	"github.com/banshee-data/rcintent/internal/monitoring"
	"github.com/banshee-data/rcintent/internal/pipeline"
	"github.com/banshee-data/rcintent/internal/rawlog"
	"github.com/banshee-data/rcintent/internal/report"
	"github.com/banshee-data/rcintent/internal/timeutil"
	"github.com/banshee-data/rcintent/internal/version"
)

// Exit codes.
const (
	exitOK       = 0
	exitError    = 1
	exitNoFrames = 2
)

// Config holds the command line of one invocation.
type Config struct {
	CaptureFile string
	ConfigFile  string

	Port               int
	Neutral            int
	Deadband           int
	Debounce           float64
	MaxFrames          int
	ShowFirst          int
	IgnoreHeadlessZero bool
	UseLibpcap         bool

	Stats      bool
	JSONOut    string
	WithEvents bool
	ChartOut   string
	PlotOut    string
	RawlogOut  string
	DBPath     string

	Verbose     bool
	ShowVersion bool

	// set records which flags were given explicitly.
	set map[string]bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func parseFlags(args []string, stderr io.Writer) (Config, error) {
	cfg := Config{set: map[string]bool{}}
	defaults := config.DefaultRunConfig()

	fs := flag.NewFlagSet("rc-decode", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.ConfigFile, "config", "", "Run config file (.json or .toml); flags override it")
	fs.IntVar(&cfg.Port, "port", defaults.GetUDPPort(), "UDP control port")
	fs.IntVar(&cfg.Neutral, "neutral", defaults.GetNeutral(), "Stick neutral value")
	fs.IntVar(&cfg.Deadband, "deadband", defaults.GetDeadband(), "Neutral deadband threshold")
	fs.Float64Var(&cfg.Debounce, "debounce", defaults.GetDebounceSeconds(), "Debounce time in seconds")
	fs.IntVar(&cfg.MaxFrames, "max", 0, "Max frames to parse (0 = no limit)")
	fs.IntVar(&cfg.ShowFirst, "show-first", 0, "Print first N decoded frames for debugging")
	fs.BoolVar(&cfg.IgnoreHeadlessZero, "ignore-headless-zero", false, "Do not report headless byte 0x00")
	fs.BoolVar(&cfg.UseLibpcap, "libpcap", false, "Read the capture with libpcap (needs a pcap build)")
	fs.BoolVar(&cfg.Stats, "stats", false, "Print per-axis stick statistics")
	fs.StringVar(&cfg.JSONOut, "json", "", "Write the full result as JSON to `FILE`")
	fs.BoolVar(&cfg.WithEvents, "events", false, "Include counted events in the JSON output")
	fs.StringVar(&cfg.ChartOut, "chart", "", "Write an HTML chart to `FILE`")
	fs.StringVar(&cfg.PlotOut, "plot", "", "Write a stick trace image (.png, .svg, .pdf) to `FILE`")
	fs.StringVar(&cfg.RawlogOut, "rawlog", "", "Archive decoded frames to `FILE`")
	fs.StringVar(&cfg.DBPath, "db", "", "Store the run in the sqlite database at `FILE`")
	fs.BoolVar(&cfg.Verbose, "v", false, "Verbose logging")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: rc-decode [options] CAPTURE\n\n")
		fmt.Fprintf(stderr, "Decode toy drone RC frames from a pcap or pcapng capture and report\n")
		fmt.Fprintf(stderr, "the debounced actions: takeoff, land, stick moves and headless toggles.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  rc-decode session.pcap\n")
		fmt.Fprintf(stderr, "  rc-decode --deadband 20 --debounce 1.0 -stats session.pcapng\n")
		fmt.Fprintf(stderr, "  rc-decode -db runs.db -chart session.html session.pcap\n")
	}

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	fs.Visit(func(f *flag.Flag) { cfg.set[f.Name] = true })

	if cfg.ShowVersion {
		return cfg, nil
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return cfg, errors.New("exactly one capture file is required")
	}
	cfg.CaptureFile = fs.Arg(0)
	return cfg, nil
}

// runConfig loads the config file, if any, and applies explicitly set flags
// on top of it.
func (c Config) runConfig() (*config.RunConfig, error) {
	rc := config.EmptyRunConfig()
	if c.ConfigFile != "" {
		loaded, err := config.LoadRunConfig(c.ConfigFile)
		if err != nil {
			return nil, err
		}
		rc = loaded
	}

	flags := config.EmptyRunConfig()
	if c.set["port"] {
		flags.UDPPort = &c.Port
	}
	if c.set["neutral"] {
		flags.Neutral = &c.Neutral
	}
	if c.set["deadband"] {
		flags.Deadband = &c.Deadband
	}
	if c.set["debounce"] {
		flags.DebounceSeconds = &c.Debounce
	}
	if c.set["max"] {
		flags.MaxFrames = &c.MaxFrames
	}
	if c.set["show-first"] {
		flags.ShowFirst = &c.ShowFirst
	}
	if c.set["ignore-headless-zero"] {
		flags.IgnoreHeadlessZero = &c.IgnoreHeadlessZero
	}
	if c.set["libpcap"] {
		flags.UseLibpcap = &c.UseLibpcap
	}
	rc.Merge(flags)

	if err := rc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	return rc, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	if cfg.ShowVersion {
		fmt.Fprintln(stdout, version.String("rc-decode"))
		return exitOK
	}
	monitoring.Init("rc-decode", cfg.Verbose)

	rc, err := cfg.runConfig()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	opts := pipeline.OptionsFromConfig(rc)
	opts.KeepFrames = cfg.ChartOut != "" || cfg.PlotOut != "" || cfg.RawlogOut != ""

	clock := timeutil.RealClock{}
	start := clock.Now()
	res, err := pipeline.RunFile(ctx, cfg.CaptureFile, opts)
	if errors.Is(err, pipeline.ErrNoFrames) {
		report.WriteNoFrames(stdout)
		return exitNoFrames
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	monitoring.Debugf("decoded %s in %v", cfg.CaptureFile, clock.Since(start))

	if err := report.WriteText(stdout, res, cfg.Stats); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	if err := export(ctx, cfg, res); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	return exitOK
}

// export writes every output the flags asked for.
func export(ctx context.Context, cfg Config, res *pipeline.Result) error {
	if cfg.JSONOut != "" {
		if err := report.SaveJSON(cfg.JSONOut, res, cfg.WithEvents); err != nil {
			return err
		}
		monitoring.Logf("wrote %s", cfg.JSONOut)
	}
	if cfg.ChartOut != "" {
		if err := report.SaveChart(cfg.ChartOut, res); err != nil {
			return err
		}
		monitoring.Logf("wrote %s", cfg.ChartOut)
	}
	if cfg.PlotOut != "" {
		if err := report.SaveAxisPlot(cfg.PlotOut, res); err != nil {
			return err
		}
		monitoring.Logf("wrote %s", cfg.PlotOut)
	}
	if cfg.RawlogOut != "" {
		if err := rawlog.WriteFile(cfg.RawlogOut, res.Frames); err != nil {
			return err
		}
		monitoring.Logf("archived %d frames to %s", len(res.Frames), cfg.RawlogOut)
	}
	if cfg.DBPath != "" {
		store, err := db.NewDB(cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		id, err := store.InsertRun(ctx, res)
		if err != nil {
			return err
		}
		monitoring.Logf("stored run %s in %s", id, cfg.DBPath)
	}
	return nil
}
