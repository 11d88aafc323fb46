package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/fintrack/internal/flagx"
	"github.com/dmitrijs2005/fintrack/internal/timex"
)

// jsonConfig is the file representation of Config. Pointer fields tell an
// absent key from an empty value.
type jsonConfig struct {
	APIBaseURL     *string         `json:"api_base_url"`
	DatabasePath   *string         `json:"database_path"`
	RequestTimeout *timex.Duration `json:"request_timeout"`
	LogLevel       *string         `json:"log_level"`
	Ephemeral      *bool           `json:"ephemeral"`
}

// parseJSON overlays cfg with the file named by -c/-config in args, if any.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if jc.APIBaseURL != nil {
		cfg.APIBaseURL = *jc.APIBaseURL
	}
	if jc.DatabasePath != nil {
		cfg.DatabasePath = *jc.DatabasePath
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.LogLevel != nil {
		cfg.LogLevel = *jc.LogLevel
	}
	if jc.Ephemeral != nil {
		cfg.Ephemeral = *jc.Ephemeral
	}

	return nil
}
