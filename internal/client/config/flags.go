package config

import (
	"flag"
	"os"
	"time"

	"github.com/Jsunwilke/employeeapp-sub003/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   local cache directory
//	-s string   store driver (memory|sqlite|postgres)
//	-n string   store DSN
//	-o string   organization ID for roster listings
//	-l string   device label shown to other editors
//	-i int      online check interval (seconds)
//	-t int      stale lock threshold (seconds)
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-s", "-n", "-o", "-l", "-i", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.CacheDir, "d", cfg.CacheDir, "local cache directory")
	fs.StringVar(&cfg.StoreDriver, "s", cfg.StoreDriver, "store driver (memory|sqlite|postgres)")
	fs.StringVar(&cfg.StoreDSN, "n", cfg.StoreDSN, "store DSN")
	fs.StringVar(&cfg.OrgID, "o", cfg.OrgID, "organization ID")
	fs.StringVar(&cfg.DeviceLabel, "l", cfg.DeviceLabel, "device label")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	staleLockThreshold := fs.Int("t", int(cfg.StaleLockThreshold.Seconds()), "stale lock threshold (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	cfg.StaleLockThreshold = time.Duration(*staleLockThreshold) * time.Second
}
