// Package config loads runtime configuration for the FinTrack client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via flags: -c or -config.
//  3. Environment variables.
//  4. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the REST API, including the /api prefix
//	-d string   path of the local SQLite database
//	-t int      request timeout (seconds)
//	-l string   log level: debug, info, warn or error
//	-ephemeral  keep the credential in memory only
//
// Environment
//
//	FINTRACK_API_URL, FINTRACK_DB, FINTRACK_LOG_LEVEL
//
// # JSON schema
//
// The JSON loader uses timex.Duration for the timeout, so it can be either a
// string like "15s" or integer nanoseconds. Absent keys keep their earlier
// value:
//
//	{
//	  "api_base_url": "http://127.0.0.1:8000/api",
//	  "database_path": "fintrack.db",
//	  "request_timeout": "15s",
//	  "log_level": "info"
//	}
package config
