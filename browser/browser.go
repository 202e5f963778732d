// Package browser collects page load timings from headless Chrome by reading
// the Navigation Timing and Resource Timing entries the page itself records.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"perfview/metrics"
	"perfview/network"
)

// entriesScript returns the navigation entry, the resource entries and the
// user agent of the current page. Navigation Timing Level 2 dropped
// domLoading, responseEnd is the instant parsing can start.
const entriesScript = `(() => {
  const n = performance.getEntriesByType("navigation")[0];
  const navigation = n ? {
    fetchStart: n.fetchStart,
    domainLookupStart: n.domainLookupStart,
    domainLookupEnd: n.domainLookupEnd,
    connectStart: n.connectStart,
    connectEnd: n.connectEnd,
    secureConnectionStart: n.secureConnectionStart,
    requestStart: n.requestStart,
    responseStart: n.responseStart,
    responseEnd: n.responseEnd,
    domLoading: n.responseEnd,
    domInteractive: n.domInteractive,
    domContentLoadedEventStart: n.domContentLoadedEventStart,
    domContentLoadedEventEnd: n.domContentLoadedEventEnd,
    domComplete: n.domComplete,
    loadEventStart: n.loadEventStart,
    loadEventEnd: n.loadEventEnd,
  } : null;
  const resources = performance.getEntriesByType("resource").map((r) => ({
    name: r.name,
    type: r.initiatorType,
    duration: r.duration,
    size: Math.round(r.transferSize || 0),
    startTime: r.startTime,
    fetchStart: r.fetchStart,
    domainLookupStart: r.domainLookupStart,
    domainLookupEnd: r.domainLookupEnd,
    connectStart: r.connectStart,
    connectEnd: r.connectEnd,
    requestStart: r.requestStart,
    responseStart: r.responseStart,
    responseEnd: r.responseEnd,
  }));
  return { url: location.href, navigation, resources, userAgent: navigator.userAgent };
})()`

// loadedScript is truthy once the load event handlers have finished
const loadedScript = `(() => {
  const n = performance.getEntriesByType("navigation")[0];
  return !!n && n.loadEventEnd > 0;
})()`

// pageEntries is the value returned by entriesScript
type pageEntries struct {
	URL        string                    `json:"url"`
	Navigation *metrics.NavigationTiming `json:"navigation"`
	Resources  []metrics.ResourceTiming  `json:"resources"`
	UserAgent  string                    `json:"userAgent"`
}

func (e pageEntries) sample() *network.Sample {
	return &network.Sample{
		URL:         e.URL,
		Navigation:  e.Navigation,
		Resources:   e.Resources,
		Environment: metrics.Environment{UserAgent: e.UserAgent},
	}
}

// Collector drives a headless Chrome instance
type Collector struct {
	logger      *zap.Logger
	execPath    string
	userAgent   string
	loadTimeout time.Duration
}

// NewCollector creates a Collector. An empty execPath lets chromedp find
// Chrome on its own, an empty userAgent keeps the browser default.
func NewCollector(logger *zap.Logger, execPath, userAgent string, loadTimeout time.Duration) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		logger:      logger,
		execPath:    execPath,
		userAgent:   userAgent,
		loadTimeout: loadTimeout,
	}
}

func (c *Collector) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if c.execPath != "" {
		opts = append(opts, chromedp.ExecPath(c.execPath))
	}
	if c.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.userAgent))
	}
	return opts
}

// Collect navigates to urlArg, waits for the load event to finish and reads
// the page's timing entries
func (c *Collector) Collect(ctx context.Context, urlArg string) (*network.Sample, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, c.allocatorOptions()...)
	defer cancelAlloc()

	sugar := c.logger.Sugar()
	taskCtx, cancelTask := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Warnf),
	)
	defer cancelTask()

	if c.loadTimeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(taskCtx, c.loadTimeout)
		defer cancel()
	}

	var loaded bool
	var entries pageEntries
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(urlArg),
		chromedp.Poll(loadedScript, &loaded, chromedp.WithPollingInterval(50*time.Millisecond)),
		chromedp.Evaluate(entriesScript, &entries),
	)
	if err != nil {
		return nil, fmt.Errorf("error loading %s in browser: %w", urlArg, err)
	}

	c.logger.Debug("Collected browser timings",
		zap.String("url", entries.URL),
		zap.Bool("navigation", entries.Navigation != nil),
		zap.Int("resources", len(entries.Resources)),
	)

	return entries.sample(), nil
}
