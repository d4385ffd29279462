package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/scorebookhq/scorebook/internal/flagx"
	"github.com/scorebookhq/scorebook/internal/timex"
)

// jsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "3s"
// or as integer nanoseconds.
type jsonConfig struct {
	CloudEndpointURL    string         `json:"cloud_endpoint_url"`
	Channel             string         `json:"channel"`
	DefaultMode         string         `json:"default_mode"`
	DatabasePath        string         `json:"database_path"`
	InitTimeout         timex.Duration `json:"init_timeout"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	ResetFlowTimeout    timex.Duration `json:"reset_flow_timeout"`
}

// parseJSON overlays Config with values loaded from a JSON file located via
// the -c/-config flags. If no path is given the function is a no-op. Read or
// unmarshal errors panic; the caller owns recovery.
//
// Intended usage is defaults -> env -> parseJSON -> parseFlags, where later
// stages override earlier ones.
func parseJSON(cfg *Config) {
	path := flagx.JSONConfigFlags()
	if path == "" {
		return
	}

	var jc jsonConfig

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.CloudEndpointURL != "" {
		cfg.CloudEndpointURL = jc.CloudEndpointURL
	}
	if jc.Channel != "" {
		cfg.Channel = Channel(jc.Channel)
	}
	if jc.DefaultMode != "" {
		cfg.DefaultMode = jc.DefaultMode
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.InitTimeout.Duration > 0 {
		cfg.InitTimeout = time.Duration(jc.InitTimeout.Duration)
	}
	if jc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = time.Duration(jc.OnlineCheckInterval.Duration)
	}
	if jc.ResetFlowTimeout.Duration > 0 {
		cfg.ResetFlowTimeout = time.Duration(jc.ResetFlowTimeout.Duration)
	}
}
