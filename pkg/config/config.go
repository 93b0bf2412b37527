// Package config loads insights server settings from the environment and an
// optional YAML file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds server configuration.
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	UpstreamURL     string
	UpstreamToken   string
	UpstreamTimeout time.Duration

	PolicyFile      string
	PolicyWatch     bool
	DefaultRole     string
	ReportLoadDelay time.Duration

	RateLimitRPS   float64
	RateLimitBurst int
	CORSOrigins    []string

	OTelEnabled  bool
	OTelEndpoint string
	OTelInsecure bool

	// problems collects values that could not be parsed; Validate reports them.
	problems []string
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Port:            "3001",
		LogLevel:        "INFO",
		LogFormat:       "text",
		UpstreamTimeout: 30 * time.Second,
		PolicyWatch:     true,
		DefaultRole:     "bed_user",
		ReportLoadDelay: time.Second,
		RateLimitRPS:    10,
		RateLimitBurst:  20,
		CORSOrigins:     []string{"*"},
		OTelEndpoint:    "localhost:4317",
		OTelInsecure:    true,
	}
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := Default()
	cfg.applyEnv(os.LookupEnv)
	return cfg
}

// LoadWithFile overlays the YAML file at path on the defaults, then the
// environment on top. An empty path is the same as Load.
func LoadWithFile(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		fc, err := readFile(path)
		if err != nil {
			return nil, err
		}
		cfg.applyFile(fc)
	}
	cfg.applyEnv(os.LookupEnv)
	return cfg, nil
}

// Addr is the listen address for Port.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			c.problems = append(c.problems, fmt.Sprintf("%s: %v", key, err))
			return
		}
		*dst = d
	}
	boolean := func(key string, dst *bool) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.problems = append(c.problems, fmt.Sprintf("%s: %v", key, err))
			return
		}
		*dst = b
	}

	str("PORT", &c.Port)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	str("PREDICT_UPSTREAM_URL", &c.UpstreamURL)
	str("PREDICT_UPSTREAM_TOKEN", &c.UpstreamToken)
	dur("PREDICT_TIMEOUT", &c.UpstreamTimeout)
	str("POLICY_FILE", &c.PolicyFile)
	boolean("POLICY_WATCH", &c.PolicyWatch)
	str("DEFAULT_ROLE", &c.DefaultRole)
	dur("REPORT_LOAD_DELAY", &c.ReportLoadDelay)
	boolean("OTEL_ENABLED", &c.OTelEnabled)
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &c.OTelEndpoint)
	boolean("OTEL_INSECURE", &c.OTelInsecure)

	if v, ok := lookup("RATE_LIMIT_RPS"); ok && v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			c.problems = append(c.problems, fmt.Sprintf("RATE_LIMIT_RPS: %v", err))
		} else {
			c.RateLimitRPS = rps
		}
	}
	if v, ok := lookup("RATE_LIMIT_BURST"); ok && v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			c.problems = append(c.problems, fmt.Sprintf("RATE_LIMIT_BURST: %v", err))
		} else {
			c.RateLimitBurst = burst
		}
	}
	if v, ok := lookup("CORS_ALLOWED_ORIGINS"); ok && v != "" {
		c.CORSOrigins = splitList(v)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate reports every unusable value. The upstream URL is optional: the
// server starts without it and every prediction fails.
func (c *Config) Validate() error {
	var errs []error
	for _, p := range c.problems {
		errs = append(errs, errors.New(p))
	}

	if port, err := strconv.Atoi(c.Port); err != nil || port < 0 || port > 65535 {
		errs = append(errs, fmt.Errorf("PORT: %q is not a valid port", c.Port))
	}
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL: unknown level %q", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT: must be text or json, got %q", c.LogFormat))
	}
	if c.UpstreamURL != "" {
		u, err := url.Parse(c.UpstreamURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("PREDICT_UPSTREAM_URL: %q is not an http(s) URL", c.UpstreamURL))
		}
	}
	if c.UpstreamTimeout <= 0 {
		errs = append(errs, fmt.Errorf("PREDICT_TIMEOUT: must be positive, got %s", c.UpstreamTimeout))
	}
	if c.ReportLoadDelay < 0 {
		errs = append(errs, fmt.Errorf("REPORT_LOAD_DELAY: must not be negative, got %s", c.ReportLoadDelay))
	}
	if strings.TrimSpace(c.DefaultRole) == "" {
		errs = append(errs, errors.New("DEFAULT_ROLE: must not be empty"))
	}
	if c.RateLimitRPS <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS: must be positive, got %v", c.RateLimitRPS))
	}
	if c.RateLimitBurst < 1 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BURST: must be at least 1, got %d", c.RateLimitBurst))
	}
	return errors.Join(errs...)
}
