package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/webtrail/internal/flagx"
	"github.com/dmitrijs2005/webtrail/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "3m"
// or as integer nanoseconds. After parsing, values are copied into the
// runtime Config (which uses time.Duration).
type JsonConfig struct {
	ListenAddr          string         `json:"listen_addr"`
	BackendURL          string         `json:"backend_url"`
	DatabasePath        string         `json:"database_path"`
	SweepInterval       timex.Duration `json:"sweep_interval"`
	DeliveryTimeout     timex.Duration `json:"delivery_timeout"`
	MaxQueueAge         timex.Duration `json:"max_queue_age"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
}

// parseJson overlays Config with values loaded from a JSON file located via
// the -c/-config flags. Fields absent from the file keep their current
// values. Read or unmarshal errors panic (caller may recover).
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

	if jc.ListenAddr != "" {
		cfg.ListenAddr = jc.ListenAddr
	}
	if jc.BackendURL != "" {
		cfg.BackendURL = jc.BackendURL
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.SweepInterval.Duration != 0 {
		cfg.SweepInterval = time.Duration(jc.SweepInterval.Duration)
	}
	if jc.DeliveryTimeout.Duration != 0 {
		cfg.DeliveryTimeout = time.Duration(jc.DeliveryTimeout.Duration)
	}
	if jc.MaxQueueAge.Duration != 0 {
		cfg.MaxQueueAge = time.Duration(jc.MaxQueueAge.Duration)
	}
	if jc.OnlineCheckInterval.Duration != 0 {
		cfg.OnlineCheckInterval = time.Duration(jc.OnlineCheckInterval.Duration)
	}
}
