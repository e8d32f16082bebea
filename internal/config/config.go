// Package config loads slipdesk settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/slipdesk/internal/backend"
	"github.com/roach88/slipdesk/internal/search"
)

// DefaultPath is read when no --config flag is given. A missing file at the
// default path is not an error.
const DefaultPath = "slipdesk.yaml"

// Environment overrides.
const (
	EnvBaseURL     = "SLIPDESK_BASE_URL"
	EnvDB          = "SLIPDESK_DB"
	EnvSession     = "SLIPDESK_SESSION"
	EnvHTTPTimeout = "SLIPDESK_HTTP_TIMEOUT"
)

// Config holds all settings.
type Config struct {
	BaseURL     string            `yaml:"base_url"`
	DBPath      string            `yaml:"db_path"`
	Session     string            `yaml:"session"`
	HTTPTimeout string            `yaml:"http_timeout"`
	Endpoints   backend.Endpoints `yaml:"endpoints"`
	Search      SearchConfig      `yaml:"search"`
	Report      ReportConfig      `yaml:"report"`
}

// SearchConfig tunes the search engine.
type SearchConfig struct {
	Debounce string `yaml:"debounce"`
	MinLive  int    `yaml:"min_live"`
	Limit    int    `yaml:"limit"`
	Sort     string `yaml:"sort"`
}

// ReportConfig sets report defaults.
type ReportConfig struct {
	OutDir string `yaml:"out_dir"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     "http://localhost:8000",
		DBPath:      "slipdesk.db",
		HTTPTimeout: backend.DefaultTimeout.String(),
		Endpoints:   backend.DefaultEndpoints(),
		Search: SearchConfig{
			Debounce: search.DefaultDebounce.String(),
			MinLive:  search.DefaultMinLive,
		},
		Report: ReportConfig{
			OutDir: ".",
		},
	}
}

// Load reads path over the defaults and applies environment overrides.
// A missing file is an error unless allowMissing is set.
func Load(path string, allowMissing bool) (*Config, error) {
	cfg := DefaultConfig()

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && allowMissing:
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvDB); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv(EnvSession); v != "" {
		c.Session = v
	}
	if v := os.Getenv(EnvHTTPTimeout); v != "" {
		c.HTTPTimeout = v
	}
}

func (c *Config) normalize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.DBPath = strings.TrimSpace(c.DBPath)
	c.Session = strings.TrimSpace(c.Session)
	c.HTTPTimeout = strings.TrimSpace(c.HTTPTimeout)
	c.Search.Debounce = strings.TrimSpace(c.Search.Debounce)

	// Endpoints left out of the file keep their defaults.
	def := backend.DefaultEndpoints()
	fill := func(p *string, d string) {
		if strings.TrimSpace(*p) == "" {
			*p = d
		}
	}
	fill(&c.Endpoints.Intake, def.Intake)
	fill(&c.Endpoints.Correlate, def.Correlate)
	fill(&c.Endpoints.Manual, def.Manual)
	fill(&c.Endpoints.ProductOptions, def.ProductOptions)
	fill(&c.Endpoints.Search, def.Search)
	fill(&c.Endpoints.Evidence, def.Evidence)
	fill(&c.Endpoints.Calendar, def.Calendar)
	fill(&c.Endpoints.Report, def.Report)
	fill(&c.Endpoints.Download, def.Download)
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid base_url %q: want an http or https URL", c.BaseURL)
	}
	if c.DBPath == "" {
		return errors.New("db_path is required")
	}
	if d, err := time.ParseDuration(c.HTTPTimeout); err != nil || d <= 0 {
		return fmt.Errorf("invalid http_timeout %q", c.HTTPTimeout)
	}
	if c.Search.Debounce != "" {
		if d, err := time.ParseDuration(c.Search.Debounce); err != nil || d < 0 {
			return fmt.Errorf("invalid search.debounce %q", c.Search.Debounce)
		}
	}
	if c.Search.MinLive < 0 || c.Search.Limit < 0 {
		return errors.New("search.min_live and search.limit must not be negative")
	}
	return nil
}

// Timeout returns the HTTP timeout as a duration.
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.HTTPTimeout)
	if err != nil || d <= 0 {
		return backend.DefaultTimeout
	}
	return d
}

// Debounce returns the live search window as a duration.
func (c *Config) Debounce() time.Duration {
	d, err := time.ParseDuration(c.Search.Debounce)
	if err != nil {
		return search.DefaultDebounce
	}
	return d
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
