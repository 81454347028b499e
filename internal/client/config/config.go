package config

import (
	"time"

	"github.com/google/uuid"
)

// Config holds runtime settings for the field sync client.
//
// Units: all *Interval and *Threshold fields are time.Durations
// (e.g. 3*time.Second).
type Config struct {
	// CacheDir is the root of the durable local cache.
	CacheDir string

	// StoreDriver selects the remote document store backend:
	// "memory", "sqlite" or "postgres". StoreDSN is the driver DSN
	// (file path for sqlite, connection string for postgres).
	StoreDriver string
	StoreDSN    string

	// OrgID scopes roster listings; DeviceID and DeviceLabel identify
	// this device as a lock owner.
	OrgID       string
	DeviceID    string
	DeviceLabel string

	// OnlineCheckInterval is how often the client probes store reachability.
	OnlineCheckInterval time.Duration

	// StaleLockThreshold is the age after which an advisory lock is
	// considered abandoned. SweepInterval is how often the background
	// sweep runs, and EditSweepThreshold is the tighter age used while
	// an edit session is active.
	StaleLockThreshold time.Duration
	SweepInterval      time.Duration
	EditSweepThreshold time.Duration

	// Snapshot archive (optional; disabled when S3Bucket is empty).
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3BaseEndpoint string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.CacheDir = "fieldsync-cache"
	c.StoreDriver = "sqlite"
	c.StoreDSN = "fieldsync.db"
	c.DeviceID = uuid.NewString()
	c.DeviceLabel = "unnamed device"
	c.OnlineCheckInterval = 3 * time.Second
	c.StaleLockThreshold = 300 * time.Second
	c.SweepInterval = 60 * time.Second
	c.EditSweepThreshold = 100 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
