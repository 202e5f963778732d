package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	ProviderHTTP    = "http"
	ProviderBrowser = "browser"

	OutputText = "text"
	OutputJSON = "json"
)

type Config struct {
	LogLevel string `envDefault:"info" env:"LOG_LEVEL" validate:"oneof=debug info warning error fatal panic"`
	JSONLog  bool   `envDefault:"false" env:"JSON_LOG"`

	Provider       string        `envDefault:"http" env:"PROVIDER" validate:"oneof=http browser"`
	Concurrency    int           `envDefault:"8" env:"CONCURRENCY" validate:"min=1,max=100"`
	RequestTimeout time.Duration `envDefault:"30s" env:"REQUEST_TIMEOUT" validate:"required,min=1s"`
	UserAgent      string        `envDefault:"perfview" env:"USER_AGENT" validate:"required"`
	ChromePath     string        `env:"CHROME_PATH"`

	Output string `envDefault:"text" env:"OUTPUT" validate:"oneof=text json"`

	IsPrometheusEnabled  bool   `envDefault:"false" env:"PROMETHEUS_ENABLED"`
	PrometheusListenAddr string `envDefault:"127.0.0.1:8088" env:"PROMETHEUS_LISTEN_ADDR" validate:"hostname_port"`
	PrometheusPath       string `envDefault:"/metrics" env:"PROMETHEUS_PATH" validate:"startswith=/"`
}

// LoadConfig reads the configuration from .env files and the environment
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	var c Config

	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("could not parse environment: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

// Validate checks the configuration, it is called again after flags have
// overridden environment values
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
