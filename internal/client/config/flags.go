package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/fintrack/internal/flagx"
)

// parseFlags overlays cfg with the command-line flags it owns. Other flags
// in args are ignored (see flagx.FilterArgs).
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-t", "-l", "-ephemeral"})

	fs := flag.NewFlagSet("fintrack", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "base URL of the REST API")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path of the local database")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.BoolVar(&cfg.Ephemeral, "ephemeral", cfg.Ephemeral, "keep the credential in memory only")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
	return nil
}
