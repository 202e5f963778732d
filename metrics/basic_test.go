package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleNavigation() *NavigationTiming {
	return &NavigationTiming{
		FetchStart:                 0,
		DomainLookupStart:          0,
		DomainLookupEnd:            10,
		ConnectStart:               10,
		ConnectEnd:                 40,
		SecureConnectionStart:      0,
		RequestStart:               40,
		ResponseStart:              90,
		ResponseEnd:                120,
		DomLoading:                 120,
		DomInteractive:             300,
		DomContentLoadedEventStart: 300,
		DomContentLoadedEventEnd:   320,
		DomComplete:                900,
		LoadEventStart:             900,
		LoadEventEnd:               950,
	}
}

func TestComputeBasicMetrics(t *testing.T) {
	m, err := ComputeBasicMetrics(sampleNavigation())
	require.NoError(t, err)

	assert.Equal(t, BasicMetrics{
		DNSLookup:    10,
		TCPConnect:   30,
		SSLHandshake: 0,
		TTFB:         50,
		Download:     30,
		DomParse:     20,
		DomReady:     320,
		LoadComplete: 950,
		TotalTime:    950,
		ResourceLoad: 50,
	}, m)
}

func TestComputeBasicMetricsUnavailable(t *testing.T) {
	_, err := ComputeBasicMetrics(nil)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestSSLHandshake(t *testing.T) {
	tests := []struct {
		name                  string
		secureConnectionStart float64
		expected              float64
	}{
		{name: "no handshake", secureConnectionStart: 0, expected: 0},
		{name: "handshake", secureConnectionStart: 25, expected: 15},
		{name: "handshake at connect start", secureConnectionStart: 10, expected: 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nav := sampleNavigation()
			nav.SecureConnectionStart = tt.secureConnectionStart

			m, err := ComputeBasicMetrics(nav)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, m.SSLHandshake)
		})
	}
}

func TestComputeBasicMetricsNonNegative(t *testing.T) {
	nav := sampleNavigation()
	nav.SecureConnectionStart = 20

	m, err := ComputeBasicMetrics(nav)
	require.NoError(t, err)
	for _, v := range m.Values() {
		assert.GreaterOrEqual(t, v.Value, 0.0, v.Name)
	}
}

func TestComputeBasicMetricsNegativePropagates(t *testing.T) {
	nav := sampleNavigation()
	nav.DomainLookupEnd = 0
	nav.DomainLookupStart = 15

	m, err := ComputeBasicMetrics(nav)
	require.NoError(t, err)
	assert.Equal(t, -15.0, m.DNSLookup)
}

func TestFormatMetrics(t *testing.T) {
	m := BasicMetrics{DNSLookup: 10.4, TCPConnect: 29.5, TTFB: 49.6}

	formatted := FormatMetrics(m)
	require.Len(t, formatted, 10)
	assert.Equal(t, FormattedMetric{Name: "dnsLookup", Value: "10ms"}, formatted[0])
	assert.Equal(t, FormattedMetric{Name: "tcpConnect", Value: "30ms"}, formatted[1])
	assert.Equal(t, FormattedMetric{Name: "sslHandshake", Value: "0ms"}, formatted[2])
	assert.Equal(t, FormattedMetric{Name: "ttfb", Value: "50ms"}, formatted[3])
	assert.Equal(t, "resourceLoad", formatted[9].Name)
}

func TestComputeDetailedMetrics(t *testing.T) {
	nav := sampleNavigation()
	nav.SecureConnectionStart = 25

	d, err := ComputeDetailedMetrics(nav)
	require.NoError(t, err)

	assert.Equal(t, Phase{Start: 0, End: 10, Duration: 10}, d.Network.DNSLookup)
	assert.Equal(t, Phase{Start: 10, End: 40, Duration: 30}, d.Network.TCPConnect)
	assert.Equal(t, Phase{Start: 25, End: 40, Duration: 15}, d.Network.SSLHandshake)
	assert.Equal(t, Phase{Start: 40, End: 120, Duration: 80}, d.Network.Request)
	assert.Equal(t, Phase{Start: 120, End: 300, Duration: 180}, d.DOM.Parse)
	assert.Equal(t, Phase{Start: 300, End: 320, Duration: 20}, d.DOM.ContentLoaded)
	assert.Equal(t, Phase{Start: 900, End: 900, Duration: 0}, d.DOM.Complete)
	assert.Equal(t, Phase{Start: 900, End: 950, Duration: 50}, d.Load)
	assert.Len(t, d.Phases(), 8)
}

func TestComputeDetailedMetricsWithoutHandshake(t *testing.T) {
	d, err := ComputeDetailedMetrics(sampleNavigation())
	require.NoError(t, err)
	assert.Equal(t, Phase{Start: 0, End: 40, Duration: 0}, d.Network.SSLHandshake)

	_, err = ComputeDetailedMetrics(nil)
	require.ErrorIs(t, err, ErrUnavailable)
}
