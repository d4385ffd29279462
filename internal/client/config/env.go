package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// envConfig is a DTO for environment parsing; only set variables are copied
// into the runtime Config so defaults survive.
type envConfig struct {
	CloudEndpointURL    string        `env:"SCOREBOOK_CLOUD_URL"`
	Channel             string        `env:"SCOREBOOK_CHANNEL"`
	DefaultMode         string        `env:"SCOREBOOK_DEFAULT_MODE"`
	DatabasePath        string        `env:"SCOREBOOK_DB_PATH"`
	InitTimeout         time.Duration `env:"SCOREBOOK_INIT_TIMEOUT"`
	OnlineCheckInterval time.Duration `env:"SCOREBOOK_ONLINE_CHECK_INTERVAL"`
}

// parseEnv overlays Config with values from SCOREBOOK_* environment
// variables. Parse errors are ignored: a malformed variable behaves as if it
// were unset.
func parseEnv(cfg *Config) {
	var ec envConfig
	if err := env.Parse(&ec); err != nil {
		return
	}

	if ec.CloudEndpointURL != "" {
		cfg.CloudEndpointURL = ec.CloudEndpointURL
	}
	if ec.Channel != "" {
		cfg.Channel = Channel(ec.Channel)
	}
	if ec.DefaultMode != "" {
		cfg.DefaultMode = ec.DefaultMode
	}
	if ec.DatabasePath != "" {
		cfg.DatabasePath = ec.DatabasePath
	}
	if ec.InitTimeout > 0 {
		cfg.InitTimeout = ec.InitTimeout
	}
	if ec.OnlineCheckInterval > 0 {
		cfg.OnlineCheckInterval = ec.OnlineCheckInterval
	}
}
