package config

import (
	"fmt"
	"net/url"
	"os"
	"time"
)

const (
	EnvAPIBaseURL   = "FINTRACK_API_URL"
	EnvDatabasePath = "FINTRACK_DB"
	EnvLogLevel     = "FINTRACK_LOG_LEVEL"
)

// Config holds runtime settings for the FinTrack client.
type Config struct {
	APIBaseURL     string
	DatabasePath   string
	RequestTimeout time.Duration
	LogLevel       string
	Ephemeral      bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:8000/api"
	c.DatabasePath = "fintrack.db"
	c.RequestTimeout = 15 * time.Second
	c.LogLevel = "info"
	c.Ephemeral = false
}

// Validate rejects settings the client cannot start with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api base url %q must be an absolute http(s) url", c.APIBaseURL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if !c.Ephemeral && c.DatabasePath == "" {
		return fmt.Errorf("database path is required")
	}
	return nil
}

// Load builds a Config from defaults, the JSON file named in args, the
// environment (via lookupEnv) and finally the flags in args.
func Load(args []string, lookupEnv func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	parseEnv(cfg, lookupEnv)
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig loads the configuration of the running process.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:], os.LookupEnv)
}

func parseEnv(cfg *Config, lookupEnv func(string) (string, bool)) {
	if lookupEnv == nil {
		return
	}
	if v, ok := lookupEnv(EnvAPIBaseURL); ok && v != "" {
		cfg.APIBaseURL = v
	}
	if v, ok := lookupEnv(EnvDatabasePath); ok && v != "" {
		cfg.DatabasePath = v
	}
	if v, ok := lookupEnv(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = v
	}
}
