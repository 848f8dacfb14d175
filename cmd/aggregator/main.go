package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bakkerme/api-aggregator/internal/aggregator"
	"github.com/bakkerme/api-aggregator/internal/api"
	"github.com/bakkerme/api-aggregator/internal/config"
	"github.com/bakkerme/api-aggregator/internal/core"
	"github.com/bakkerme/api-aggregator/internal/factory"
	"github.com/bakkerme/api-aggregator/internal/metrics"
	"github.com/bakkerme/api-aggregator/internal/observability/otelx"
	"github.com/bakkerme/api-aggregator/internal/warmup"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var version = "dev"

const shutdownTimeout = 10 * time.Second

type options struct {
	configPath string
	addr       string
	query      bool
	term       string
	order      string
	sources    string
}

func main() {
	env := config.LoadEnv()

	var opts options
	flag.StringVar(&opts.configPath, "config", env.ConfigPath, "path to aggregator document")
	flag.StringVar(&opts.addr, "addr", env.HTTPAddr, "http listen address")
	flag.BoolVar(&opts.query, "query", false, "run one aggregated fetch, print it as JSON and exit")
	flag.StringVar(&opts.term, "term", "", "search term for -query")
	flag.StringVar(&opts.order, "order", "Descending", "date order for -query (Ascending or Descending)")
	flag.StringVar(&opts.sources, "sources", "", "comma-separated providers for -query (default all)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(env.LogLevel)}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, env, opts, os.Stdout); err != nil {
		log.Fatalf("aggregator: %v", err)
	}
}

func run(ctx context.Context, logger *slog.Logger, env config.EnvConfig, opts options, stdout io.Writer) (err error) {
	doc, err := config.LoadDocument(opts.configPath)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	shutdownTracing, err := otelx.Init(ctx, logger, env.OTel, version)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if serr := shutdownTracing(sctx); serr != nil {
			err = multierror.Append(err, fmt.Errorf("shutdown tracing: %w", serr)).ErrorOrNil()
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New("aggregator", reg)

	engine, providers, err := factory.NewFromEnvConfig(logger, env).NewEngine(doc, m)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	logger.Info("engine ready", "providers", sourceNames(engine.Sources()), "cache_capacity", doc.Cache.Capacity)

	if opts.query {
		return queryOnce(ctx, engine, opts, stdout)
	}
	return serve(ctx, logger, engine, providers, reg, doc, opts.addr)
}

func queryOnce(ctx context.Context, engine *aggregator.Engine, opts options, stdout io.Writer) error {
	order, err := core.ParseSortOrder(opts.order)
	if err != nil {
		return err
	}
	sources, err := parseSources(opts.sources)
	if err != nil {
		return err
	}
	items := engine.Fetch(ctx, aggregator.Query{SearchTerm: opts.term, Order: order, Sources: sources})
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

func serve(ctx context.Context, logger *slog.Logger, engine *aggregator.Engine, providers []aggregator.Provider, reg *prometheus.Registry, doc *config.Document, addr string) error {
	server := api.NewServer(api.Config{
		Engine:   engine,
		DevTo:    findProvider(providers, core.SourceDevTo),
		Gatherer: reg,
		Logger:   logger,
		Version:  version,
	})

	var scheduler *warmup.Scheduler
	if w := doc.Warmup; w != nil {
		scheduler = warmup.New(engine, w.Cron.Schedule, w.Cron.Timezone, w.Terms, logger)
		if err := scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start warmup: %w", err)
		}
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Start(addr) }()

	var result *multierror.Error
	select {
	case err := <-serveErr:
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("http server: %w", err))
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(sctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("http shutdown: %w", err))
	}
	if scheduler != nil {
		scheduler.Stop()
	}
	return result.ErrorOrNil()
}

func findProvider(providers []aggregator.Provider, source core.Source) aggregator.Provider {
	for _, p := range providers {
		if p.Source() == source {
			return p
		}
	}
	return nil
}

func parseSources(raw string) ([]core.Source, error) {
	var sources []core.Source
	for _, name := range strings.Split(raw, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		src, err := core.ParseSource(name)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

func sourceNames(sources []core.Source) []string {
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.String()
	}
	return names
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
