package config

import "time"

// Channel identifies the distribution channel of this build.
type Channel string

const (
	// ChannelStandard is the default direct-download build.
	ChannelStandard Channel = "standard"
	// ChannelStorefront is a storefront-locked build: when the cloud backend
	// is configured, cloud mode is mandatory and cannot be downgraded.
	ChannelStorefront Channel = "storefront"
)

// BuildChannel is the distribution channel baked in at link time, e.g.:
//
//	go build -ldflags "-X .../internal/client/config.BuildChannel=storefront"
//
// An empty value means ChannelStandard.
var BuildChannel string

// Config holds runtime settings for the Scorebook client.
//
// CloudEndpointURL is the base URL of the identity/sync backend; an empty
// value means the backend is not configured and the app runs purely local.
// DefaultMode is the build-time storage-mode default consulted when no user
// override is stored.
type Config struct {
	CloudEndpointURL    string
	Channel             Channel
	DefaultMode         string
	DatabasePath        string
	InitTimeout         time.Duration
	OnlineCheckInterval time.Duration
	ResetFlowTimeout    time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.CloudEndpointURL = ""
	c.Channel = ChannelStandard
	if BuildChannel != "" {
		c.Channel = Channel(BuildChannel)
	}
	c.DefaultMode = "local"
	c.DatabasePath = "scorebook.db"
	c.InitTimeout = 10 * time.Second
	c.OnlineCheckInterval = 15 * time.Second
	c.ResetFlowTimeout = 5 * time.Minute
}

// CloudConfigured reports whether a remote backend endpoint is set.
func (c *Config) CloudConfigured() bool {
	return c.CloudEndpointURL != ""
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment, a JSON file (if present) and command-line flags (if
// present). Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJSON(cfg)
	parseFlags(cfg)
	return cfg
}
