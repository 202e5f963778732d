package sink

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"perfview/metrics"
)

const namespace = "perfview"

var levelRank = map[metrics.Level]float64{
	metrics.LevelExcellent: 0,
	metrics.LevelGood:      1,
	metrics.LevelFair:      2,
	metrics.LevelPoor:      3,
}

// Prometheus records the latest report and resource analysis of each page
// as gauges
type Prometheus struct {
	durations     *prometheus.GaugeVec
	grades        *prometheus.GaugeVec
	resourceCount *prometheus.GaugeVec
	resourceBytes *prometheus.GaugeVec
	reports       *prometheus.CounterVec
}

// NewPrometheus creates the collectors and registers them with registry
func NewPrometheus(registry prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		durations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "page_metric_milliseconds",
			Help:      "Basic page load metrics of the latest report.",
		}, []string{"url", "metric"}),
		grades: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "page_metric_grade",
			Help:      "Grade of a scored metric: 0 excellent, 1 good, 2 fair, 3 poor.",
		}, []string{"url", "metric"}),
		resourceCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "page_resources",
			Help:      "Number of sub-resources loaded per initiator type.",
		}, []string{"url", "type"}),
		resourceBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "page_resource_bytes",
			Help:      "Transferred bytes of sub-resources per initiator type.",
		}, []string{"url", "type"}),
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "Generated reports by outcome.",
		}, []string{"url", "outcome"}),
	}

	for _, c := range []prometheus.Collector{p.durations, p.grades, p.resourceCount, p.resourceBytes, p.reports} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("could not register collector: %w", err)
		}
	}

	return p, nil
}

// Listener returns an event listener recording events of the page at url
func (p *Prometheus) Listener(url string) metrics.Listener {
	return func(eventType string, data any) error {
		switch eventType {
		case metrics.EventReport:
			report, ok := data.(metrics.Report)
			if !ok {
				return fmt.Errorf("unexpected %s payload %T", eventType, data)
			}
			p.recordReport(url, report)
		case metrics.EventResources:
			analysis, ok := data.(metrics.ResourceAnalysis)
			if !ok {
				return fmt.Errorf("unexpected %s payload %T", eventType, data)
			}
			p.recordResources(url, analysis)
		}
		return nil
	}
}

func (p *Prometheus) recordReport(url string, report metrics.Report) {
	if report.Failed() {
		p.reports.WithLabelValues(url, "unavailable").Inc()
		return
	}
	p.reports.WithLabelValues(url, "ok").Inc()

	for _, v := range report.BasicMetrics.Values() {
		p.durations.WithLabelValues(url, v.Name).Set(v.Value)
	}
	for _, g := range report.Evaluation.Grades() {
		p.grades.WithLabelValues(url, g.Name).Set(levelRank[g.Grade.Level])
	}
}

func (p *Prometheus) recordResources(url string, analysis metrics.ResourceAnalysis) {
	for _, group := range analysis.ByType {
		var size int64
		for _, r := range group.Resources {
			size += r.Size
		}
		p.resourceCount.WithLabelValues(url, group.Type).Set(float64(len(group.Resources)))
		p.resourceBytes.WithLabelValues(url, group.Type).Set(float64(size))
	}
}

// NewPrometheusServer serves the registry on listenAddr at path
func NewPrometheusServer(logger *zap.Logger, listenAddr string, path string, registry *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorLog:          zap.NewStdLog(logger),
		Registry:          registry,
		Timeout:           10 * time.Second,
	}))

	svr := &http.Server{
		Addr:              listenAddr,
		ReadTimeout:       1 * time.Minute,
		WriteTimeout:      1 * time.Minute,
		ReadHeaderTimeout: 2 * time.Second,
		IdleTimeout:       30 * time.Second,
		ErrorLog:          zap.NewStdLog(logger),
		Handler:           mux,
	}

	logger.Info("Prometheus metrics enabled", zap.String("listen_addr", svr.Addr), zap.String("endpoint", path))

	return svr
}
