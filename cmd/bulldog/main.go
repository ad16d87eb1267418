package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogmulti "github.com/samber/slog-multi"
	"go.opentelemetry.io/otel"

	"github.com/tailored-agentic-units/bulldog/model"
	"github.com/tailored-agentic-units/bulldog/observability"
	"github.com/tailored-agentic-units/bulldog/pipeline"
	"github.com/tailored-agentic-units/bulldog/server"
	"github.com/tailored-agentic-units/bulldog/state"
)

type options struct {
	configFile     string
	steps          int
	size           int
	checkpointPath string
	observers      string
	logFile        string
	serve          string
	verbose        bool
}

func main() {
	var o options
	flag.StringVar(&o.configFile, "config", "", "Path to a JSON or YAML config file")
	flag.IntVar(&o.steps, "steps", 1, "Number of data_step commits after the dispatch")
	flag.IntVar(&o.size, "size", 100, "Side length of the example grid")
	flag.StringVar(&o.checkpointPath, "checkpoint", "", "Checkpoint store path (overrides config)")
	flag.StringVar(&o.observers, "observers", "", "Comma-separated observers (overrides config), one of: "+strings.Join(observability.Names(), ", "))
	flag.StringVar(&o.logFile, "log-file", "", "Also write JSON logs to this file")
	flag.StringVar(&o.serve, "serve", "", "Serve the model over RPC on this address after the run, e.g. :8080")
	flag.BoolVar(&o.verbose, "verbose", false, "Enable verbose logging to stderr")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, o)
	stop()
	if err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, o options) (err error) {
	cfg, err := pipeline.LoadConfig(o.configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if o.checkpointPath != "" {
		cfg.Checkpoint.Path = o.checkpointPath
	}
	if o.observers != "" {
		cfg.Model.Observer = o.observers
	}
	if o.serve != "" {
		cfg.Model.Observer = withObserver(cfg.Model.Observer, "prometheus")
	}

	logger, closeLog, err := newLogger(o.verbose, o.logFile)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer closeLog()

	registry := prometheus.NewRegistry()
	p, err := pipeline.New(cfg, pipeline.ExampleState(o.size),
		pipeline.WithLogger(logger),
		pipeline.WithRegisterer(registry),
	)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer func() {
		if cerr := p.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close checkpoint store: %w", cerr))
		}
	}()

	m := p.Model()
	pipeline.RegisterExample(m, logger)

	if err := runExample(ctx, m, o.steps); err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	if o.serve == "" {
		return nil
	}
	return serve(ctx, o.serve, m, registry, logger)
}

// withObserver appends name to a comma-separated observer list unless it is
// already there.
func withObserver(spec, name string) string {
	for _, n := range strings.Split(spec, ",") {
		if strings.TrimSpace(n) == name {
			return spec
		}
	}
	if strings.TrimSpace(spec) == "" {
		return name
	}
	return spec + "," + name
}

// serve exposes m over RPC and the registry on /metrics until ctx is done.
func serve(ctx context.Context, addr string, m *model.Model[state.State], registry *prometheus.Registry, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle(server.New(m).Handler())
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe() }()

	logger.Info("serving", "addr", addr, "service", server.ServiceName)

	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := <-serveErr; !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// runExample dispatches action1, commits data_step steps times, and reverts
// to the action1 checkpoint, printing the history along the way.
func runExample(ctx context.Context, m *model.Model[state.State], steps int) error {
	ctx, span := otel.Tracer("bulldog").Start(ctx, "example")
	defer span.End()

	if _, err := m.Dispatch(ctx, pipeline.StepAction); err != nil {
		return err
	}
	for range steps {
		if _, err := m.Commit(ctx, pipeline.StepScale, 9.0); err != nil {
			return err
		}
	}
	printHistory("after commits", m)

	checkpoint := model.Version{Step: 1, Name: pipeline.StepAction}
	if err := m.Revert(ctx, checkpoint); err != nil {
		return err
	}
	printHistory("after revert to "+checkpoint.String(), m)

	return nil
}

func printHistory(label string, m *model.Model[state.State]) {
	mean, _ := pipeline.Mean(m.Current())
	fmt.Printf("%s (mean %g):\n", label, mean)
	for _, e := range m.History().Entries() {
		marker := " "
		if e.Snapshot.Present() {
			marker = "*"
		}
		fmt.Printf("  %s %s\n", marker, e.Version)
	}
}

// newLogger writes text to stderr and, with path set, JSON to that file.
func newLogger(verbose bool, path string) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	handlers := []slog.Handler{slog.NewTextHandler(os.Stderr, opts)}
	closeFn := func() {}

	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers, slog.NewJSONHandler(f, opts))
		closeFn = func() { f.Close() }
	}

	return slog.New(slogmulti.Fanout(handlers...)), closeFn, nil
}
