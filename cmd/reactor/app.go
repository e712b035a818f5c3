package main

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/vango-dev/reactor/internal/config"
	"github.com/vango-dev/reactor/internal/errors"
	"github.com/vango-dev/reactor/pkg/journal"
	"github.com/vango-dev/reactor/pkg/metrics"
	"github.com/vango-dev/reactor/pkg/reactor"
	"github.com/vango-dev/reactor/pkg/snapshot"
)

// app holds everything a command needs to run a runtime.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	journal  *journal.Journal
	tracer   *sdktrace.TracerProvider
	rt       *reactor.Runtime
	runID    string
}

// newApp loads configuration and builds a runtime wired to metrics, tracing
// and, when configured, the journal. label names the journal run.
func newApp(ctx context.Context, flags *globalFlags, label string, stderr io.Writer) (*app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(flags.logLevel)); err != nil {
		return nil, errors.Newf(errors.CategoryCLI, "invalid --log-level %q", flags.logLevel).
			WithSuggestion("Use debug, info, warn or error")
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
		tracer:   sdktrace.NewTracerProvider(),
	}
	otel.SetTracerProvider(a.tracer)

	opts := append(cfg.RuntimeOptions(),
		reactor.WithLogger(logger),
		reactor.WithTracer(a.tracer.Tracer("github.com/vango-dev/reactor")),
		reactor.WithObserver(metrics.New(metrics.WithRegistry(a.registry))),
	)

	if cfg.Journal.Path != "" {
		j, err := journal.Open(ctx, cfg.Journal.Path, label, journal.WithLogger(logger))
		if err != nil {
			a.tracer.Shutdown(ctx)
			return nil, errors.New("R301").Wrap(err)
		}
		a.journal = j
		a.runID = j.RunID()
		opts = append(opts,
			reactor.WithStore(reactor.NewMemoryStore(reactor.WithWriteObserver(j.ObserveWrite))),
			reactor.WithObserver(j),
		)
		logger.Info("journal opened", "path", cfg.Journal.Path, "run", a.runID)
	}

	a.rt = reactor.New(opts...)
	return a, nil
}

func loadConfig(flags *globalFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.configPath != "" {
		cfg, err = config.LoadFile(flags.configPath)
	} else {
		cfg, err = config.FromEnv()
	}
	if err != nil {
		return nil, err
	}
	if flags.journal != "" {
		cfg.Journal.Path = flags.journal
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// exporter returns the snapshot exporters enabled by configuration: always
// the file exporter, plus S3 when a bucket is set.
func (a *app) exporter() snapshot.Exporter {
	exporters := snapshot.Multi{snapshot.FileExporter{Dir: a.cfg.Snapshot.Dir}}
	if s3cfg := a.cfg.Snapshot.S3; s3cfg.Bucket != "" {
		client := snapshot.NewS3Client(snapshot.S3Options{
			Region:    s3cfg.Region,
			Endpoint:  s3cfg.Endpoint,
			PathStyle: s3cfg.PathStyle,
		})
		exporters = append(exporters, snapshot.NewS3Exporter(client, s3cfg.Bucket, s3cfg.Prefix))
	}
	return exporters
}

// export captures the runtime and hands it to the configured exporters. It
// must run on the goroutine that owns the runtime.
func (a *app) export(ctx context.Context) (string, error) {
	loc, err := a.exporter().Export(ctx, snapshot.Capture(a.rt, a.runID))
	if err != nil {
		return "", errors.New("R300").Wrap(err)
	}
	return loc, nil
}

// Close releases the journal and tracer provider.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.journal != nil {
		if n := a.journal.Failed(); n > 0 {
			a.logger.Warn("journal dropped records", "count", n)
		}
		errs = append(errs, a.journal.Close())
	}
	errs = append(errs, a.tracer.Shutdown(ctx))
	return stderrors.Join(errs...)
}
