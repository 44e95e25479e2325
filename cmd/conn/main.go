package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/netfilter/conn/internal/config"
	"github.com/netfilter/conn/internal/cycle"
	"github.com/netfilter/conn/internal/dashboard"
	"github.com/netfilter/conn/internal/exporter"
	"github.com/netfilter/conn/internal/httpclient"
	"github.com/netfilter/conn/internal/metrics"
	"github.com/netfilter/conn/internal/output"
	"github.com/netfilter/conn/internal/runner"
	"github.com/netfilter/conn/internal/threshold"
	"github.com/netfilter/conn/internal/tracing"
)

const (
	progressInterval = time.Second
	shutdownTimeout  = 5 * time.Second
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) || errors.Is(err, config.ErrVersionRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	runID := ulid.Make().String()
	logger, err := newLogger(stderr, cfg.LogLevel)
	if err != nil {
		return err
	}
	log := logger.WithField("run_id", runID)
	for _, warning := range cfg.Warnings() {
		log.Warn(warning)
	}

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	urls, err := loadURLs(cfg)
	if err != nil {
		return err
	}
	base, err := cycle.New(urls, cfg.Skip)
	if err != nil {
		return fmt.Errorf("%s: %w", cfg.Input, err)
	}
	log.WithField("urls", base.Len()).Debug("url list loaded")

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing, tracing.Run{
		ID:        runID,
		Processes: cfg.Processes,
		Threads:   cfg.Threads,
		Sessions:  cfg.RepeatCount(),
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("tracing shutdown")
		}
	}()

	collector := metrics.NewCollector()
	if cfg.MetricsAddr != "" {
		exp := exporter.New(runID)
		if err := exp.Serve(cfg.MetricsAddr, log); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
			defer done()
			_ = exp.Close(shutdownCtx)
		}()
		collector.AddObserver(exp)
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "conn/" + config.Version
	}
	client := httpclient.NewClient(cfg.Timeout, cfg.MaxSimultaneous())
	fetcher := httpclient.NewFetcher(client,
		httpclient.WithUserAgent(userAgent),
		httpclient.WithTracePropagation(provider.ShouldPropagate()),
	)

	opts := runner.Options{
		URLs:      base,
		Processes: cfg.Processes,
		Threads:   cfg.Threads,
		Repeat:    cfg.RepeatCount(),
		Sleep:     cfg.Sleep,
		Shuffle:   cfg.Shuffle,
		Seed:      cfg.Seed,
		Offset:    cfg.Offset,
		DryRun:    cfg.DryRun,
		Fetcher:   fetcher,
		Display:   newLogDisplay(stdout, log, cfg.Quiet),
		Collector: collector,
		Observer:  stateLogger(log),
		Logger:    log,
	}
	if cfg.Tracing.Enabled() {
		opts.Tracer = provider.Tracer()
	}

	stopLive, err := startLiveOutput(cfg, base.Len(), collector, stderr, cancel)
	if err != nil {
		return err
	}

	runCtx, span := tracing.StartRunSpan(ctx, provider.Tracer(), runID, cfg.RepeatCount(), cfg.Threads)
	start := time.Now()
	agg, err := runner.NewCoordinator(opts).Execute(runCtx)
	elapsed := time.Since(start)
	tracing.EndSpan(span, err)
	stopLive()
	if err != nil {
		return fmt.Errorf("run aborted: %w", err)
	}

	stats := collector.Stats(elapsed)
	report := output.NewReport(agg, elapsed, cfg.MaxSimultaneous(), stats)
	report.RunID = runID

	var results []threshold.Result
	if len(thresholds) > 0 {
		results = threshold.NewEvaluator(thresholds).Evaluate(stats)
		report = report.WithThresholds(results)
	}

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(stdout, report); err != nil {
			return err
		}
	} else {
		output.PrintReport(stdout, report)
	}

	failed := 0
	for _, res := range results {
		if !res.Pass {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d thresholds failed", failed, len(results))
	}
	if cfg.FailOnErrors && agg.ErrorCount() > 0 {
		return fmt.Errorf("%d requests failed", agg.ErrorCount())
	}
	return nil
}

func newLogger(w io.Writer, level string) (*logrus.Logger, error) {
	if level == "" {
		level = config.DefaultLogLevel
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetLevel(lvl)
	return logger, nil
}

func stateLogger(log logrus.FieldLogger) runner.StateObserver {
	return func(index int, state runner.State) {
		log.WithFields(logrus.Fields{
			"session": index,
			"state":   state.String(),
		}).Debug("session state")
	}
}

// startLiveOutput starts the dashboard or progress line when requested and
// returns the func that tears it down.
func startLiveOutput(cfg *config.Config, urlCount int, collector *metrics.Collector, w io.Writer, cancel context.CancelFunc) (func(), error) {
	switch {
	case cfg.Dashboard:
		dash, err := dashboard.New(collector, dashboard.RunConfig{
			Input:      cfg.Input,
			URLCount:   urlCount,
			Processes:  cfg.Processes,
			Threads:    cfg.Threads,
			Sessions:   cfg.RepeatCount(),
			Timeout:    cfg.Timeout,
			Sleep:      cfg.Sleep,
			Shuffle:    cfg.Shuffle,
			Offset:     cfg.Offset,
			DryRun:     cfg.DryRun,
			ConfigFile: cfg.ConfigFile,
		}, cancel)
		if err != nil {
			return nil, err
		}
		dash.Start()
		return dash.Stop, nil
	case cfg.Progress:
		progress := output.NewProgressReporter(collector, progressInterval, w, cfg.RepeatCount(), cfg.TotalRequests())
		progress.Start()
		return progress.Stop, nil
	default:
		return func() {}, nil
	}
}
