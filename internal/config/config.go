package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const defaultProxyTarget = "http://127.0.0.1:8000"

type Config struct {
	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`
	GRPCPort string `env:"GRPC_PORT" envDefault:"50051"`

	// APIBaseURL is the prediction service base. When empty, dev calls go
	// through this server's proxy and other environments call the proxy
	// target directly.
	APIBaseURL  string `env:"API_BASE_URL"`
	ProxyTarget string `env:"PROXY_TARGET"`
	ReactAPIURL string `env:"REACT_APP_API_URL"`

	PredictorMode  string        `env:"PREDICTOR_MODE" envDefault:"live"`
	SimulatedDelay time.Duration `env:"SIMULATED_DELAY" envDefault:"2s"`
	PredictTimeout time.Duration `env:"PREDICT_TIMEOUT" envDefault:"0s"`
	HealthInterval time.Duration `env:"HEALTH_INTERVAL" envDefault:"10s"`

	MaxUploadSizeMB int    `env:"MAX_UPLOAD_SIZE_MB" envDefault:"50"`
	LogLevel        string `env:"LOG_LEVEL" envDefault:"INFO"`
	Environment     string `env:"ENVIRONMENT" envDefault:"production"`

	DatabaseURL  string `env:"DATABASE_URL"`
	OTELEndpoint string `env:"OTEL_ENDPOINT"`
}

func (c *Config) IsDev() bool {
	return c.Environment == "dev"
}

func (c *Config) IsSimulated() bool {
	return strings.EqualFold(c.PredictorMode, "simulated")
}

// ResolvedProxyTarget mirrors the dev server lookup: PROXY_TARGET, then
// REACT_APP_API_URL, then the local FastAPI default.
func (c *Config) ResolvedProxyTarget() string {
	if c.ProxyTarget != "" {
		return c.ProxyTarget
	}
	if c.ReactAPIURL != "" {
		return c.ReactAPIURL
	}
	return defaultProxyTarget
}

// PredictBaseURL is the base the prediction client calls.
func (c *Config) PredictBaseURL() string {
	if c.APIBaseURL != "" {
		return strings.TrimRight(c.APIBaseURL, "/")
	}
	if c.IsDev() {
		return "http://localhost" + c.HTTPAddr()
	}
	return strings.TrimRight(c.ResolvedProxyTarget(), "/")
}

// HealthBaseURL is where the liveness probe goes. It never points at this
// server, whose "/" is the assessment page.
func (c *Config) HealthBaseURL() string {
	if c.APIBaseURL != "" {
		return strings.TrimRight(c.APIBaseURL, "/")
	}
	return strings.TrimRight(c.ResolvedProxyTarget(), "/")
}

func (c *Config) HTTPAddr() string {
	return ":" + strings.TrimPrefix(c.HTTPPort, ":")
}

func (c *Config) GRPCAddr() string {
	return ":" + strings.TrimPrefix(c.GRPCPort, ":")
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadSizeMB) << 20
}

func (c *Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.PredictorMode) {
	case "live", "simulated":
	default:
		errs = append(errs, fmt.Errorf("PREDICTOR_MODE must be live or simulated, got %q", c.PredictorMode))
	}
	if c.MaxUploadSizeMB <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_SIZE_MB must be positive"))
	}
	if c.PredictTimeout < 0 {
		errs = append(errs, errors.New("PREDICT_TIMEOUT must not be negative"))
	}
	if c.HealthInterval <= 0 {
		errs = append(errs, errors.New("HEALTH_INTERVAL must be positive"))
	}
	return errors.Join(errs...)
}

// LoadConfig reads an optional .env file, then the process environment.
// Variables already set in the environment win over .env entries.
func LoadConfig(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
