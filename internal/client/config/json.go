package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/Jsunwilke/employeeapp-sub003/internal/flagx"
	"github.com/Jsunwilke/employeeapp-sub003/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so intervals can be strings like "3s" or integer
// nanoseconds. After parsing, values are copied into the runtime Config.
type JsonConfig struct {
	CacheDir            string         `json:"cache_dir"`
	StoreDriver         string         `json:"store_driver"`
	StoreDSN            string         `json:"store_dsn"`
	OrgID               string         `json:"org_id"`
	DeviceID            string         `json:"device_id"`
	DeviceLabel         string         `json:"device_label"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	StaleLockThreshold  timex.Duration `json:"stale_lock_threshold"`
	SweepInterval       timex.Duration `json:"sweep_interval"`
	EditSweepThreshold  timex.Duration `json:"edit_sweep_threshold"`
	S3Region            string         `json:"s3_region"`
	S3Bucket            string         `json:"s3_bucket"`
	S3AccessKey         string         `json:"s3_access_key"`
	S3SecretKey         string         `json:"s3_secret_key"`
	S3BaseEndpoint      string         `json:"s3_base_endpoint"`
}

// parseJson overlays Config with values loaded from a JSON file selected via
// the -c/-config flags. An empty path means no JSON is loaded. Read or
// unmarshal errors panic; string fields left empty in the file keep their
// earlier values, zero durations likewise.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	overlayString(&cfg.CacheDir, jc.CacheDir)
	overlayString(&cfg.StoreDriver, jc.StoreDriver)
	overlayString(&cfg.StoreDSN, jc.StoreDSN)
	overlayString(&cfg.OrgID, jc.OrgID)
	overlayString(&cfg.DeviceID, jc.DeviceID)
	overlayString(&cfg.DeviceLabel, jc.DeviceLabel)
	overlayDuration(&cfg.OnlineCheckInterval, jc.OnlineCheckInterval)
	overlayDuration(&cfg.StaleLockThreshold, jc.StaleLockThreshold)
	overlayDuration(&cfg.SweepInterval, jc.SweepInterval)
	overlayDuration(&cfg.EditSweepThreshold, jc.EditSweepThreshold)
	overlayString(&cfg.S3Region, jc.S3Region)
	overlayString(&cfg.S3Bucket, jc.S3Bucket)
	overlayString(&cfg.S3AccessKey, jc.S3AccessKey)
	overlayString(&cfg.S3SecretKey, jc.S3SecretKey)
	overlayString(&cfg.S3BaseEndpoint, jc.S3BaseEndpoint)
}

func overlayString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func overlayDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
