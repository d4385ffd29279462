// Package config loads runtime settings for the Scorebook client from four
// layered sources: built-in defaults, SCOREBOOK_* environment variables, an
// optional JSON file (-c/-config), and command-line flags. Later sources win.
package config
