package metrics

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// UnavailableMessage is the error text of a report generated without
// navigation timing ("cannot obtain performance data").
const UnavailableMessage = "无法获取性能数据"

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Event types triggered while analyzing a page load
const (
	EventReport    = "report"
	EventResources = "resources"
)

// Report bundles everything known about one page load. When Error is set
// no other field is populated.
type Report struct {
	BasicMetrics    *BasicMetrics    `json:"basicMetrics,omitempty"`
	DetailedMetrics *DetailedMetrics `json:"detailedMetrics,omitempty"`
	Evaluation      *Evaluation      `json:"evaluation,omitempty"`
	Timestamp       string           `json:"timestamp,omitempty"`
	UserAgent       string           `json:"userAgent,omitempty"`

	Error string `json:"error,omitempty"`
}

// Failed reports whether the report carries only an error
func (r Report) Failed() bool {
	return r.Error != ""
}

// Listener receives performance events. Returned errors and panics are
// logged by the analyzer and never reach the caller of Trigger.
type Listener func(eventType string, data any) error

type listenerEntry struct {
	fn Listener
}

// Analyzer turns timing records into reports and broadcasts performance
// events to registered listeners.
type Analyzer struct {
	logger *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	listeners []*listenerEntry
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithLogger sets the logger used to report listener failures
func WithLogger(logger *zap.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithClock overrides the clock used for report timestamps
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		if now != nil {
			a.now = now
		}
	}
}

// New creates an Analyzer
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// GenerateReport computes basic metrics, detailed metrics and the evaluation
// of a page load. Without navigation timing it returns the error report and
// computes nothing else.
func (a *Analyzer) GenerateReport(nav *NavigationTiming, env Environment) Report {
	basic, err := ComputeBasicMetrics(nav)
	if err != nil {
		return Report{Error: UnavailableMessage}
	}

	evaluation := Evaluate(basic)
	detailed, err := ComputeDetailedMetrics(nav)
	if err != nil {
		return Report{Error: UnavailableMessage}
	}

	return Report{
		BasicMetrics:    &basic,
		DetailedMetrics: &detailed,
		Evaluation:      &evaluation,
		Timestamp:       a.now().UTC().Format(timestampLayout),
		UserAgent:       env.UserAgent,
	}
}

// AnalyzeResources aggregates the resource timings of a page load
func (a *Analyzer) AnalyzeResources(resources []ResourceTiming) ResourceAnalysis {
	return AnalyzeResources(resources)
}

// OnEvent registers a listener. The returned function removes it again and
// may be called more than once.
func (a *Analyzer) OnEvent(listener Listener) (remove func()) {
	entry := &listenerEntry{fn: listener}

	a.mu.Lock()
	a.listeners = append(a.listeners, entry)
	a.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			defer a.mu.Unlock()
			for i, e := range a.listeners {
				if e == entry {
					a.listeners = append(a.listeners[:i:i], a.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Trigger delivers an event to every listener registered at the time of the
// call. Each listener runs in isolation: a failure is logged and the
// remaining listeners still run.
func (a *Analyzer) Trigger(eventType string, data any) {
	a.mu.Lock()
	snapshot := make([]Listener, 0, len(a.listeners))
	for _, e := range a.listeners {
		snapshot = append(snapshot, e.fn)
	}
	a.mu.Unlock()

	for _, listener := range snapshot {
		if err := a.dispatch(listener, eventType, data); err != nil {
			a.logger.Error("Performance event listener failed",
				zap.String("event_type", eventType),
				zap.Error(err),
			)
		}
	}
}

var errListenerPanic = errors.New("listener panicked")

func (a *Analyzer) dispatch(listener Listener, eventType string, data any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errListenerPanic, r)
		}
	}()
	return listener(eventType, data)
}
