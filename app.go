package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"perfview/browser"
	"perfview/config"
	"perfview/logging"
	"perfview/metrics"
	"perfview/network"
	"perfview/output"
	"perfview/sink"
)

// Collector loads a page and returns its timing records
type Collector interface {
	Collect(ctx context.Context, url string) (*network.Sample, error)
}

func newCollector(cfg *config.Config, logger *zap.Logger) Collector {
	if cfg.Provider == config.ProviderBrowser {
		return browser.NewCollector(logger, cfg.ChromePath, cfg.UserAgent, cfg.RequestTimeout)
	}
	return network.NewCollector(network.CreateHTTPClient(cfg.RequestTimeout), logger, cfg.UserAgent, cfg.Concurrency)
}

// App runs one analysis
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Collector Collector
	Printer   *output.Printer
	Stdout    io.Writer
	StatsOnly bool
}

// Run collects the timings of url, prints the report and resource analysis
// and, with Prometheus enabled, serves the recorded gauges until ctx is done.
// It reports false when no navigation timing could be obtained.
func (a *App) Run(ctx context.Context, url string) (bool, error) {
	logger := a.Logger.With(logging.WithURL(url), logging.WithProvider(a.Config.Provider))

	analyzer := metrics.New(metrics.WithLogger(logger))
	analyzer.OnEvent(func(eventType string, data any) error {
		logger.Debug("Performance event", zap.String("event_type", eventType))
		return nil
	})

	var registry *prometheus.Registry
	if a.Config.IsPrometheusEnabled {
		registry = prometheus.NewRegistry()
		promSink, err := sink.NewPrometheus(registry)
		if err != nil {
			return false, err
		}
		analyzer.OnEvent(promSink.Listener(url))
	}

	logger.Debug("Collecting timings")
	start := time.Now()
	sample, err := a.Collector.Collect(ctx, url)
	if err != nil {
		return false, fmt.Errorf("could not collect timings: %w", err)
	}
	logger.Debug("Collected timings",
		zap.Duration("took", time.Since(start)),
		zap.Int("resources", len(sample.Resources)),
	)

	report := analyzer.GenerateReport(sample.Navigation, sample.Environment)
	analyzer.Trigger(metrics.EventReport, report)

	analysis := analyzer.AnalyzeResources(sample.Resources)
	analyzer.Trigger(metrics.EventResources, analysis)

	if a.Config.Output == config.OutputJSON {
		err := output.WriteJSON(a.Stdout, output.Document{
			URL:       sample.URL,
			Redirects: sample.Redirects,
			Report:    report,
			Resources: analysis,
		})
		if err != nil {
			return false, err
		}
	} else {
		a.Printer.PrintSample(sample)
		a.Printer.PrintReport(report, a.StatsOnly)
		if !a.StatsOnly {
			a.Printer.PrintResources(analysis)
		}
	}

	if registry != nil {
		if err := a.serveMetrics(ctx, registry); err != nil {
			return false, err
		}
	}

	return !report.Failed(), nil
}

func (a *App) serveMetrics(ctx context.Context, registry *prometheus.Registry) error {
	svr := sink.NewPrometheusServer(a.Logger, a.Config.PrometheusListenAddr, a.Config.PrometheusPath, registry)

	errCh := make(chan error, 1)
	go func() {
		if err := svr.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("could not serve metrics: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.Logger.Info("Graceful shutdown ...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return svr.Shutdown(shutdownCtx)
}
