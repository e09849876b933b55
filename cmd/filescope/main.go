package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/term"

	"github.com/wilbur182/filescope/internal/app"
	"github.com/wilbur182/filescope/internal/config"
	"github.com/wilbur182/filescope/internal/configwatch"
	"github.com/wilbur182/filescope/internal/devserver"
	"github.com/wilbur182/filescope/internal/features"
	"github.com/wilbur182/filescope/internal/loader"
	"github.com/wilbur182/filescope/internal/session"
	"github.com/wilbur182/filescope/internal/version"
)

var (
	configPath   = flag.String("config", "", "path to config file (.json or .toml)")
	debugFlag    = flag.Bool("debug", false, "enable debug logging")
	logPath      = flag.String("log", "", "write logs to this file (the TUI discards logs otherwise)")
	versionFlag  = flag.Bool("version", false, "print version and exit")
	shortVersion = flag.Bool("v", false, "print version and exit (short)")
	queryFlag    = flag.String("query", "", "initial search text")
	demoFlag     = flag.Bool("demo", false, "serve a synthetic listing in-process and browse it")
	demoFiles    = flag.Int("demo-files", 5000, "number of files in the demo listing")
	demoLatency  = flag.Duration("demo-latency", 150*time.Millisecond, "latency added to demo responses")
	dumpFlag     = flag.Bool("dump", false, "print every matching file and exit (implied when stdout is not a terminal)")
	pageFlag     = flag.Int("page", 500, "window size used by -dump")
	featureFlag  = flag.String("feature", "", "feature overrides, e.g. dedupe_inflight=false,response_cache")
	metricsAddr  = flag.String("metrics", "", "serve Prometheus metrics on this address, e.g. :9464")
)

func main() {
	flag.Parse()

	if *versionFlag || *shortVersion {
		fmt.Printf("filescope version %s\n", version.String())
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "filescope: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	flags := features.Init(cfg)
	overrides, err := features.ParseOverrides(*featureFlag)
	if err != nil {
		return err
	}
	for name, on := range overrides {
		flags.SetOverride(name, on)
	}

	headless := *dumpFlag || !term.IsTerminal(int(os.Stdout.Fd()))

	logger, closeLog, err := newLogger(headless)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := loader.NewMetrics(reg)
	if *metricsAddr != "" {
		go serveMetrics(ctx, *metricsAddr, reg, logger)
	}

	override := func(c *config.Config) *config.Config { return c }
	if *demoFlag {
		addr, err := startDemo(ctx, logger)
		if err != nil {
			return err
		}
		override = func(c *config.Config) *config.Config {
			cc := *c
			cc.API.Protocol = "http"
			cc.API.Host = addr.IP.String()
			cc.API.Port = addr.Port
			cc.API.PathPrefix = ""
			return &cc
		}
		logger.Info("demo listing ready", "addr", addr.String())
	}
	newSource := func(c *config.Config) loader.Source {
		return app.NewClient(override(c), flags, logger)
	}

	if headless {
		coord := loader.New(session.New(), newSource(cfg), app.LoaderConfig(cfg, flags, metrics, logger))
		defer coord.Close()
		return dump(ctx, os.Stdout, coord, *queryFlag, *pageFlag, cfg.API.MaxInFlight)
	}
	return runTUI(cfg, flags, metrics, logger, newSource)
}

func runTUI(cfg *config.Config, flags *features.Manager, metrics *loader.Metrics, logger *slog.Logger, newSource func(*config.Config) loader.Source) error {
	opts := app.Options{
		Config:    cfg,
		Query:     *queryFlag,
		NewSource: newSource,
		Flags:     flags,
		Metrics:   metrics,
		Logger:    logger,
	}

	path := *configPath
	if path == "" {
		path = config.ConfigPath()
	}
	if w, err := configwatch.New(path, configwatch.DefaultDebounce); err != nil {
		logger.Warn("config watch disabled", "path", path, "err", err)
	} else {
		defer w.Stop()
		opts.Watcher = w
	}

	model := app.New(opts)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen())
	final, err := p.Run()
	if m, ok := final.(app.Model); ok {
		m.Close()
	}
	if err != nil {
		return fmt.Errorf("running application: %w", err)
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

// newLogger logs to -log when given, to stderr in headless mode, and nowhere
// while the TUI owns the terminal.
func newLogger(headless bool) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if *debugFlag {
		level = slog.LevelDebug
	}

	var w io.Writer = io.Discard
	closeFn := func() {}
	switch {
	case *logPath != "":
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = func() { f.Close() }
	case headless:
		w = os.Stderr
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return logger, closeFn, nil
}

// startDemo serves the synthetic listing on a loopback port until ctx ends.
func startDemo(ctx context.Context, logger *slog.Logger) (*net.TCPAddr, error) {
	srv, err := devserver.New(ctx, devserver.Options{
		Files:   *demoFiles,
		Latency: *demoLatency,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("demo: %w", err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		srv.Close()
		return nil, fmt.Errorf("demo: listen: %w", err)
	}
	go func() {
		defer srv.Close()
		if err := srv.Serve(ctx, ln); err != nil {
			logger.Error("demo server stopped", "err", err)
		}
	}()
	return ln.Addr().(*net.TCPAddr), nil
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server", "addr", addr, "err", err)
	}
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: filescope [options]\n\n")
		fmt.Fprintf(os.Stderr, "Browse and search a remote file listing, loading rows as you scroll.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
}
