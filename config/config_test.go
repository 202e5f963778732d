package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ProviderHTTP, cfg.Provider)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "perfview", cfg.UserAgent)
	assert.Equal(t, OutputText, cfg.Output)
	assert.False(t, cfg.IsPrometheusEnabled)
	assert.Equal(t, "127.0.0.1:8088", cfg.PrometheusListenAddr)
	assert.Equal(t, "/metrics", cfg.PrometheusPath)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PROVIDER", "browser")
	t.Setenv("CONCURRENCY", "3")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("OUTPUT", "json")
	t.Setenv("PROMETHEUS_ENABLED", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ProviderBrowser, cfg.Provider)
	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, OutputJSON, cfg.Output)
	assert.True(t, cfg.IsPrometheusEnabled)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown provider", "PROVIDER", "curl"},
		{"zero concurrency", "CONCURRENCY", "0"},
		{"unknown output", "OUTPUT", "xml"},
		{"unknown log level", "LOG_LEVEL", "verbose"},
		{"bad duration", "REQUEST_TIMEOUT", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t, t.TempDir())
			t.Setenv(tt.key, tt.value)

			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestValidateAfterOverride(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)

	cfg.Concurrency = 500
	assert.Error(t, cfg.Validate())
}

// chdir changes the working directory to dir and restores it when the test
// ends, equivalent to testing.T.Chdir which needs Go 1.24
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
