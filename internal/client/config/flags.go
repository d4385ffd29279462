package config

import (
	"flag"
	"os"
	"time"

	"github.com/scorebookhq/scorebook/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-u string   base URL of the cloud backend (default from Config)
//	-d string   path to the local database file
//	-i int      online check interval in seconds
//	-t int      initialization timeout in seconds
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-u", "-d", "-i", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.CloudEndpointURL, "u", cfg.CloudEndpointURL, "base URL of the cloud backend")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path to the local database file")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	initTimeout := fs.Int("t", int(cfg.InitTimeout.Seconds()), "initialization timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	cfg.InitTimeout = time.Duration(*initTimeout) * time.Second
}
