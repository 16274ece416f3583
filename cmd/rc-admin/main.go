// Command rc-admin serves stored decode runs over HTTP and manages the run
// database schema.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/rcintent/internal/api"
	"github.com/banshee-data/rcintent/internal/config"
	"github.com/banshee-data/rcintent/internal/db"
	"github.com/banshee-data/rcintent/internal/monitoring"
	"github.com/banshee-data/rcintent/internal/report"
	"github.com/banshee-data/rcintent/internal/version"
)

const (
	exitOK    = 0
	exitError = 1
)

type serveConfig struct {
	Listen      string
	DBPath      string
	CaptureDir  string
	ConfigFile  string
	AssetsHost  string
	Verbose     bool
	ShowVersion bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func usage(out io.Writer) {
	fmt.Fprintf(out, "Usage: rc-admin [serve] [options]\n")
	fmt.Fprintf(out, "       rc-admin migrate <action> [args] [-db FILE]\n\n")
	fmt.Fprintf(out, "Examples:\n")
	fmt.Fprintf(out, "  rc-admin -listen :8081 -db runs.db -captures ./captures\n")
	fmt.Fprintf(out, "  rc-admin migrate status -db runs.db\n")
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		switch args[0] {
		case "migrate":
			return runMigrate(args[1:], stdout, stderr)
		case "serve":
			args = args[1:]
		case "help", "-h", "--help":
			usage(stdout)
			return exitOK
		}
	}
	return runServe(ctx, args, stdout, stderr)
}

func runMigrate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("rc-admin migrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dbPath := fs.String("db", "rc_runs.db", "Path to the sqlite run database")
	fs.Usage = func() { db.PrintMigrateHelp(stderr) }

	// Flags may follow the action, e.g. "migrate version 1 -db runs.db".
	var positional []string
	for len(args) > 0 {
		if err := fs.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return exitOK
			}
			return exitError
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}

	if err := db.RunMigrateCommand(stdout, positional, *dbPath); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	return exitOK
}

func parseServeFlags(args []string, stderr io.Writer) (serveConfig, error) {
	var cfg serveConfig
	fs := flag.NewFlagSet("rc-admin serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.Listen, "listen", ":8081", "HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db", "rc_runs.db", "Path to the sqlite run database")
	fs.StringVar(&cfg.CaptureDir, "captures", "", "Directory POST /api/runs may decode captures from (empty disables)")
	fs.StringVar(&cfg.ConfigFile, "config", "", "Run config file (.json or .toml) with server-wide decode settings")
	fs.StringVar(&cfg.AssetsHost, "assets-host", "", "Base URL chart pages load echarts scripts from")
	fs.BoolVar(&cfg.Verbose, "v", false, "Verbose logging")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Print version and exit")
	fs.Usage = func() {
		usage(stderr)
		fmt.Fprintf(stderr, "\nServe options:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if fs.NArg() > 0 {
		return cfg, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	return cfg, nil
}

// buildHandler mounts the API and the admin debug routes on one mux.
func buildHandler(store *db.DB, rc *config.RunConfig, captureDir string) (http.Handler, error) {
	mux := http.NewServeMux()
	mux.Handle("/api/", api.NewServer(store, rc, captureDir).ServeMux())
	if err := store.AttachAdminRoutes(mux); err != nil {
		return nil, err
	}
	return api.LoggingMiddleware(mux), nil
}

func runServe(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := parseServeFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	if cfg.ShowVersion {
		fmt.Fprintln(stdout, version.String("rc-admin"))
		return exitOK
	}
	monitoring.Init("rc-admin", cfg.Verbose)

	rc := config.EmptyRunConfig()
	if cfg.ConfigFile != "" {
		if rc, err = config.LoadRunConfig(cfg.ConfigFile); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
	}
	if err := rc.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: invalid config: %v\n", err)
		return exitError
	}
	report.AssetsHost = cfg.AssetsHost

	store, err := db.NewDB(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	defer store.Close()

	h, err := buildHandler(store, rc, cfg.CaptureDir)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	if err := serve(ctx, ln, h); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	return exitOK
}

// serve runs an HTTP server on ln until ctx is done.
func serve(ctx context.Context, ln net.Listener, h http.Handler) error {
	server := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		monitoring.Logf("serving on http://%s", ln.Addr())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			monitoring.Logf("HTTP server close error: %v", err)
		}
	}
	monitoring.Logf("HTTP server stopped")
	return nil
}
