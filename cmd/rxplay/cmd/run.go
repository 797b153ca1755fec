package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/go-drift/rxdrift/cmd/rxplay/internal/config"
	"github.com/go-drift/rxdrift/cmd/rxplay/internal/playground"
	"github.com/go-drift/rxdrift/pkg/engine"
	rxerrors "github.com/go-drift/rxdrift/pkg/errors"
	"github.com/go-drift/rxdrift/pkg/metrics"
)

func init() {
	RegisterCommand(&Command{
		Name:  "run",
		Short: "Run the playground until interrupted",
		Long: `Mount the playground and print every frame whose text changes.

The counter shows "value: N", the sum of answered clicks and interval
ticks. A scripted driver clicks every playground.click_every and toggles
the interval between playground.interval and playground.fast_interval
every playground.switch_every.

Flags:
  --dir DIR          Project directory holding rxplay.yaml (default: module root)
  --duration D       Stop after D, e.g. 10s (overrides playground.duration)
  --addr ADDR        Serve /metrics and /debug/ on ADDR (overrides server.addr)

When an address is set, /debug/widget-tree, /debug/frames, and /debug/text
expose the live tree and frame timings.`,
		Usage: "rxplay run [--dir DIR] [--duration D] [--addr ADDR]",
		Run:   runRun,
	})
}

// stderr receives log output. Tests replace it.
var stderr io.Writer = os.Stderr

type runOptions struct {
	dir      string
	duration time.Duration
	addr     string
	addrSet  bool
}

func parseRunArgs(args []string) (runOptions, error) {
	var opts runOptions
	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, hasValue := strings.Cut(arg, "=")
		switch name {
		case "--dir", "--duration", "--addr":
		default:
			return opts, fmt.Errorf("unknown flag %q", arg)
		}
		if !hasValue {
			if i+1 >= len(args) {
				return opts, fmt.Errorf("%s requires a value", name)
			}
			value = args[i+1]
			i++
		}
		switch name {
		case "--dir":
			opts.dir = value
		case "--duration":
			d, err := time.ParseDuration(value)
			if err != nil || d < 0 {
				return opts, fmt.Errorf("invalid --duration %q", value)
			}
			opts.duration = d
		case "--addr":
			opts.addr = value
			opts.addrSet = true
		}
	}
	return opts, nil
}

func resolveConfig(dir string) (*config.Resolved, error) {
	if dir == "" {
		root, err := config.FindProjectRoot()
		if err != nil {
			return nil, err
		}
		dir = root
	}
	return config.Resolve(dir)
}

func runRun(args []string) error {
	opts, err := parseRunArgs(args)
	if err != nil {
		return err
	}
	cfg, err := resolveConfig(opts.dir)
	if err != nil {
		return err
	}
	if opts.duration > 0 {
		cfg.Playground.Duration = opts.duration
	}
	if opts.addrSet {
		cfg.Addr = opts.addr
	}

	logger := newLogger(cfg, stderr)
	slog.SetDefault(logger)
	rxerrors.SetHandler(&rxerrors.LogHandler{Logger: logger})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Playground.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Playground.Duration)
		defer cancel()
	}
	return play(ctx, cfg, logger, stdout)
}

func newLogger(cfg *config.Resolved, w io.Writer) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(w, handlerOpts)
	} else {
		h = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(h).With("app", cfg.AppName)
}

// play runs the engine, the scripted driver, and the optional HTTP server
// until ctx is done or one of them fails.
func play(ctx context.Context, cfg *config.Resolved, logger *slog.Logger, out io.Writer) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(metrics.Config{
		Enabled:  true,
		Registry: reg,
		Labels:   prometheus.Labels{"app": cfg.AppName},
	})

	var last *engine.FrameSnapshot
	runner := engine.NewRunner(
		engine.WithLogger(logger),
		engine.WithMetrics(m),
		engine.WithFrameTrace(engine.NewFrameTraceBuffer(0, 0)),
		engine.WithOnFrame(func(s *engine.FrameSnapshot) {
			if s.Equal(last) {
				return
			}
			last = s
			fmt.Fprintln(out, strings.Join(s.Lines, "  "))
		}),
	)

	controls := &playground.Controls{}
	runner.SetApp(playground.App(playground.Settings{
		Interval: cfg.Playground.Interval,
		Latency:  cfg.Playground.Latency,
		Amount:   cfg.Playground.Amount,
		Logger:   logger,
		Metrics:  m,
	}, controls))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runner.Run(ctx)
	})
	g.Go(func() error {
		return drive(ctx, runner, controls, cfg.Playground)
	})
	if cfg.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		mux.Handle("/debug/", http.StripPrefix("/debug", runner.DebugHandler()))
		srv := &http.Server{Addr: cfg.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			logger.Info("serving metrics and debug endpoints", "addr", cfg.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	logger.Info("playground started",
		"interval", cfg.Playground.Interval,
		"latency", cfg.Playground.Latency)
	err := g.Wait()
	logger.Info("playground stopped")
	return err
}

// drive stands in for a user: it clicks and switches the interval on a
// schedule. Every interaction is dispatched onto the UI thread.
func drive(ctx context.Context, runner *engine.Runner, controls *playground.Controls, p config.PlaygroundConfig) error {
	var clicks, switches <-chan time.Time
	if p.ClickEvery > 0 {
		t := time.NewTicker(p.ClickEvery)
		defer t.Stop()
		clicks = t.C
	}
	if p.SwitchEvery > 0 {
		t := time.NewTicker(p.SwitchEvery)
		defer t.Stop()
		switches = t.C
	}

	fast := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-clicks:
			runner.Dispatch(controls.Click)
		case <-switches:
			fast = !fast
			period := p.Interval
			if fast {
				period = p.FastInterval
			}
			runner.Dispatch(func() { controls.SetInterval(period) })
		}
	}
}
