package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/rotsniff/pkg/rotsniff/config"
	"github.com/jamesainslie/rotsniff/pkg/rotsniff/logging"
)

// initializeLogging is the root PersistentPreRunE hook. It creates the XDG
// directories and starts file logging.
func initializeLogging(_ *cobra.Command, _ []string) error {
	if err := config.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	level := cfg.Logging.Level
	if level == "" {
		level = config.DefaultLogLevel
	}

	if err := logging.Init(logging.Config{
		Level:        level,
		Path:         cfg.Logging.Path,
		Rotation:     parseRotationConfig(cfg.Logging.Rotation),
		Components:   cfg.Logging.Components,
		ConsoleLevel: logLevel,
		Console:      os.Stderr,
	}); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	return nil
}

// parseRotationConfig converts the config file's rotation block. An empty
// or unparsable max_size falls back to the default.
func parseRotationConfig(rc config.RotationConfig) logging.RotationConfig {
	out := logging.DefaultRotationConfig()
	if size, err := config.ParseSize(rc.MaxSize); err == nil && size > 0 {
		out.MaxSize = size
	}
	out.MaxAge = rc.MaxAge
	out.MaxBackups = rc.MaxBackups
	out.Daily = rc.Daily
	return out
}
