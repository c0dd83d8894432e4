// Package config loads rotsniff settings from the config file, environment
// and command-line flags through viper.
package config

// Defaults applied before the config file and environment are consulted.
const (
	// DefaultDB is the index file used when --db is not given.
	DefaultDB = "./rotsniff.db"

	// DefaultOutput is the report format.
	DefaultOutput = "pretty"

	DefaultRetentionDays = 90

	DefaultLogLevel = "info"

	DefaultLogMaxSize = "10MB"

	// EnvPrefix prefixes environment overrides, e.g. ROTSNIFF_DB.
	EnvPrefix = "ROTSNIFF"

	appName = "rotsniff"
)
