package metrics

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnavailable is returned when no navigation timing record was supplied,
// for example when timings are queried before the page finished loading.
var ErrUnavailable = errors.New("navigation timing unavailable")

// BasicMetrics holds the flat durations derived from a NavigationTiming.
// Malformed input is not clamped, a phase ending before it started yields a
// negative duration.
type BasicMetrics struct {
	DNSLookup    float64 `json:"dnsLookup"`
	TCPConnect   float64 `json:"tcpConnect"`
	SSLHandshake float64 `json:"sslHandshake"`
	TTFB         float64 `json:"ttfb"`
	Download     float64 `json:"download"`

	DomParse     float64 `json:"domParse"`
	DomReady     float64 `json:"domReady"`
	LoadComplete float64 `json:"loadComplete"`

	TotalTime    float64 `json:"totalTime"`
	ResourceLoad float64 `json:"resourceLoad"`
}

// NamedValue is a single metric with its report name
type NamedValue struct {
	Name  string
	Value float64
}

// ComputeBasicMetrics derives the basic metrics of a page load
func ComputeBasicMetrics(nav *NavigationTiming) (BasicMetrics, error) {
	if nav == nil {
		return BasicMetrics{}, ErrUnavailable
	}

	return BasicMetrics{
		DNSLookup:    nav.DomainLookupEnd - nav.DomainLookupStart,
		TCPConnect:   nav.ConnectEnd - nav.ConnectStart,
		SSLHandshake: sslHandshake(nav),
		TTFB:         nav.ResponseStart - nav.RequestStart,
		Download:     nav.ResponseEnd - nav.ResponseStart,

		DomParse:     nav.DomContentLoadedEventEnd - nav.DomContentLoadedEventStart,
		DomReady:     nav.DomContentLoadedEventEnd - nav.FetchStart,
		LoadComplete: nav.LoadEventEnd - nav.FetchStart,

		TotalTime:    nav.LoadEventEnd - nav.FetchStart,
		ResourceLoad: nav.LoadEventEnd - nav.LoadEventStart,
	}, nil
}

func sslHandshake(nav *NavigationTiming) float64 {
	if nav.SecureConnectionStart > 0 {
		return nav.ConnectEnd - nav.SecureConnectionStart
	}
	return 0
}

// Values returns the metrics in report order
func (m BasicMetrics) Values() []NamedValue {
	return []NamedValue{
		{"dnsLookup", m.DNSLookup},
		{"tcpConnect", m.TCPConnect},
		{"sslHandshake", m.SSLHandshake},
		{"ttfb", m.TTFB},
		{"download", m.Download},
		{"domParse", m.DomParse},
		{"domReady", m.DomReady},
		{"loadComplete", m.LoadComplete},
		{"totalTime", m.TotalTime},
		{"resourceLoad", m.ResourceLoad},
	}
}

// FormattedMetric is a metric rendered for display, e.g. "120ms"
type FormattedMetric struct {
	Name  string
	Value string
}

// FormatMetrics renders every metric as whole milliseconds
func FormatMetrics(m BasicMetrics) []FormattedMetric {
	values := m.Values()
	formatted := make([]FormattedMetric, 0, len(values))
	for _, v := range values {
		formatted = append(formatted, FormattedMetric{
			Name:  v.Name,
			Value: fmt.Sprintf("%dms", int64(math.Round(v.Value))),
		})
	}
	return formatted
}
