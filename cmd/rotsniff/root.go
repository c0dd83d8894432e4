package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/rotsniff/pkg/rotsniff/config"
	"github.com/jamesainslie/rotsniff/pkg/rotsniff/output"
)

var (
	cfgFile  string
	logLevel string

	// configErr holds a failure from initConfig until a command can
	// report it.
	configErr error

	rootCmd = &cobra.Command{
		Use:   "rotsniff",
		Short: "Detect silent data corruption in a directory tree",
		Long: `rotsniff keeps an index of BLAKE2b-512 fingerprints for the files under a
directory and re-hashes them later to find files whose content changed
without anyone writing to them.

Examples:
  rotsniff append ~/photos          # Fingerprint files not yet indexed
  rotsniff verify ~/photos          # Re-hash and report divergence
  rotsniff update                   # Accept current contents as good
  rotsniff remove                   # Forget files that no longer exist
  rotsniff --db photos.db -f '\.jpe?g$' verify ~/photos
  rotsniff history                  # Past runs

Exit status is 0 on success, 1 when verify finds divergence and 2 on
any other error.`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: initializeLogging,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ~/.config/rotsniff/config.yaml)")
	flags.String("db", config.DefaultDB, "fingerprint index file")
	flags.BoolP("verbose", "v", false, "print every hashed and matching file")
	flags.StringP("fnfilter", "f", "", "only consider paths matching this regular expression")
	flags.BoolP("negate-fnfilter", "F", false, "only consider paths NOT matching --fnfilter")
	flags.StringSliceP("exclude", "e", nil, "glob patterns to skip while walking (repeatable)")
	flags.IntP("workers", "w", 0, "hash worker count (0=auto)")
	flags.StringP("output", "o", config.DefaultOutput, fmt.Sprintf("summary format %v", output.Available()))
	flags.BoolP("quiet", "q", false, "suppress the end-of-run summary")
	flags.StringVar(&logLevel, "log-level", "", "mirror log records at this level to stderr (debug, info, warn, error)")

	_ = viper.BindPFlag("db", flags.Lookup("db"))
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("fnfilter", flags.Lookup("fnfilter"))
	_ = viper.BindPFlag("negate_fnfilter", flags.Lookup("negate-fnfilter"))
	_ = viper.BindPFlag("exclude", flags.Lookup("exclude"))
	_ = viper.BindPFlag("workers", flags.Lookup("workers"))
	_ = viper.BindPFlag("output", flags.Lookup("output"))
	_ = viper.BindPFlag("quiet", flags.Lookup("quiet"))
}

// initConfig reads in the config file and environment variables.
func initConfig() {
	v := viper.GetViper()
	config.Configure(v, cfgFile)
	configErr = config.Read(v)
}

// loadConfig returns the resolved configuration.
func loadConfig() (*config.Config, error) {
	if configErr != nil {
		return nil, configErr
	}
	return config.FromViper(viper.GetViper())
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// printInfo prints a message unless quiet mode is enabled.
func printInfo(format string, args ...any) {
	if !viper.GetBool("quiet") {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
