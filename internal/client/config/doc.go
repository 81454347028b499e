// Package config loads runtime configuration for the field sync client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "3s" or integer nanoseconds:
//
//	{
//	  "cache_dir": "/var/lib/fieldsync",
//	  "store_driver": "postgres",
//	  "store_dsn": "postgres://localhost/rosters",
//	  "online_check_interval": "3s",
//	  "stale_lock_threshold": "300s"
//	}
//
// Note: this package does not read environment variables; use the JSON file
// or flags to configure values.
package config
