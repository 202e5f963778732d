package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"perfview/config"
	"perfview/metrics"
	"perfview/network"
	"perfview/output"
)

type stubCollector struct {
	sample *network.Sample
	err    error
}

func (s stubCollector) Collect(_ context.Context, _ string) (*network.Sample, error) {
	return s.sample, s.err
}

func testConfig(out string) *config.Config {
	return &config.Config{
		LogLevel:             "info",
		Provider:             config.ProviderHTTP,
		Concurrency:          2,
		RequestTimeout:       5 * time.Second,
		UserAgent:            "perfview-test",
		Output:               out,
		PrometheusListenAddr: "127.0.0.1:0",
		PrometheusPath:       "/metrics",
	}
}

func newTestApp(cfg *config.Config, collector Collector, stdout *bytes.Buffer) *App {
	return &App{
		Config:    cfg,
		Logger:    zap.NewNop(),
		Collector: collector,
		Printer:   output.NewPrinter(stdout, false),
		Stdout:    stdout,
	}
}

func sample() *network.Sample {
	return &network.Sample{
		URL: "https://example.com/",
		Navigation: &metrics.NavigationTiming{
			DomainLookupEnd:            10,
			ConnectStart:               10,
			ConnectEnd:                 40,
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
		},
		Resources: []metrics.ResourceTiming{
			{Name: "https://example.com/app.js", Type: "script", Duration: 30, Size: 1000},
		},
		Environment: metrics.Environment{UserAgent: "stub"},
	}
}

func TestRunJSON(t *testing.T) {
	var stdout bytes.Buffer
	app := newTestApp(testConfig(config.OutputJSON), stubCollector{sample: sample()}, &stdout)

	ok, err := app.Run(context.Background(), "https://example.com/")
	require.NoError(t, err)
	assert.True(t, ok)

	var doc struct {
		URL    string         `json:"url"`
		Report metrics.Report `json:"report"`
		Res    struct {
			Total int `json:"total"`
		} `json:"resources"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &doc))
	assert.Equal(t, "https://example.com/", doc.URL)
	require.NotNil(t, doc.Report.BasicMetrics)
	assert.Equal(t, 50.0, doc.Report.BasicMetrics.TTFB)
	assert.Equal(t, "stub", doc.Report.UserAgent)
	assert.Equal(t, 1, doc.Res.Total)
}

func TestRunText(t *testing.T) {
	var stdout bytes.Buffer
	app := newTestApp(testConfig(config.OutputText), stubCollector{sample: sample()}, &stdout)

	ok, err := app.Run(context.Background(), "https://example.com/")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, stdout.String(), "Basic metrics")
	assert.Contains(t, stdout.String(), "Resources: 1")
}

func TestRunWithoutNavigation(t *testing.T) {
	s := sample()
	s.Navigation = nil

	var stdout bytes.Buffer
	app := newTestApp(testConfig(config.OutputJSON), stubCollector{sample: s}, &stdout)

	ok, err := app.Run(context.Background(), "https://example.com/")
	require.NoError(t, err)
	assert.False(t, ok)

	var doc struct {
		Report json.RawMessage `json:"report"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &doc))
	assert.JSONEq(t, `{"error":"无法获取性能数据"}`, string(doc.Report))
}

func TestRunCollectorError(t *testing.T) {
	var stdout bytes.Buffer
	app := newTestApp(testConfig(config.OutputText), stubCollector{err: errors.New("dial failed")}, &stdout)

	_, err := app.Run(context.Background(), "https://example.com/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial failed")
	assert.Empty(t, stdout.String())
}

func TestRunWithPrometheus(t *testing.T) {
	cfg := testConfig(config.OutputText)
	cfg.IsPrometheusEnabled = true

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout bytes.Buffer
	app := newTestApp(cfg, stubCollector{sample: sample()}, &stdout)

	ok, err := app.Run(ctx, "https://example.com/")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunHTTPProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/style.css" {
			fmt.Fprint(w, "body{}")
			return
		}
		fmt.Fprint(w, `<html><head><link rel="stylesheet" href="/style.css"></head><body></body></html>`)
	}))
	defer srv.Close()

	cfg := testConfig(config.OutputJSON)

	var stdout bytes.Buffer
	app := newTestApp(cfg, newCollector(cfg, zap.NewNop()), &stdout)

	ok, err := app.Run(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.True(t, ok)

	var doc struct {
		Report    metrics.Report `json:"report"`
		Resources struct {
			Total  int                                 `json:"total"`
			ByType map[string][]metrics.ResourceTiming `json:"byType"`
		} `json:"resources"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &doc))
	assert.Equal(t, "perfview-test", doc.Report.UserAgent)
	assert.Equal(t, 1, doc.Resources.Total)
	assert.Len(t, doc.Resources.ByType["link"], 1)
}
