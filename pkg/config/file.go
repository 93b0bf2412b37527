package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML shape of an insights config file. Unset fields keep
// their defaults.
type fileConfig struct {
	Port      string `yaml:"port"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	Upstream struct {
		URL     string `yaml:"url"`
		Token   string `yaml:"token"`
		Timeout string `yaml:"timeout"`
	} `yaml:"upstream"`

	Policy struct {
		File  string `yaml:"file"`
		Watch *bool  `yaml:"watch"`
	} `yaml:"policy"`

	Dashboard struct {
		DefaultRole string `yaml:"default_role"`
		LoadDelay   string `yaml:"load_delay"`
	} `yaml:"dashboard"`

	RateLimit struct {
		RPS   *float64 `yaml:"rps"`
		Burst *int     `yaml:"burst"`
	} `yaml:"rate_limit"`

	CORSOrigins []string `yaml:"cors_allowed_origins"`

	Telemetry struct {
		Enabled  *bool  `yaml:"enabled"`
		Endpoint string `yaml:"endpoint"`
		Insecure *bool  `yaml:"insecure"`
	} `yaml:"telemetry"`
}

func readFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	return &fc, nil
}

func (c *Config) applyFile(fc *fileConfig) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setDur := func(key string, dst *time.Duration, v string) {
		if v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			c.problems = append(c.problems, fmt.Sprintf("%s: %v", key, err))
			return
		}
		*dst = d
	}

	set(&c.Port, fc.Port)
	set(&c.LogLevel, fc.LogLevel)
	set(&c.LogFormat, fc.LogFormat)
	set(&c.UpstreamURL, fc.Upstream.URL)
	set(&c.UpstreamToken, fc.Upstream.Token)
	setDur("upstream.timeout", &c.UpstreamTimeout, fc.Upstream.Timeout)
	set(&c.PolicyFile, fc.Policy.File)
	if fc.Policy.Watch != nil {
		c.PolicyWatch = *fc.Policy.Watch
	}
	set(&c.DefaultRole, fc.Dashboard.DefaultRole)
	setDur("dashboard.load_delay", &c.ReportLoadDelay, fc.Dashboard.LoadDelay)
	if fc.RateLimit.RPS != nil {
		c.RateLimitRPS = *fc.RateLimit.RPS
	}
	if fc.RateLimit.Burst != nil {
		c.RateLimitBurst = *fc.RateLimit.Burst
	}
	if len(fc.CORSOrigins) > 0 {
		c.CORSOrigins = fc.CORSOrigins
	}
	if fc.Telemetry.Enabled != nil {
		c.OTelEnabled = *fc.Telemetry.Enabled
	}
	set(&c.OTelEndpoint, fc.Telemetry.Endpoint)
	if fc.Telemetry.Insecure != nil {
		c.OTelInsecure = *fc.Telemetry.Insecure
	}
}
