package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size" yaml:"max_size"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	Daily      bool   `mapstructure:"daily" yaml:"daily"`
}

// LoggingConfig configures the log file.
type LoggingConfig struct {
	Level      string            `mapstructure:"level" yaml:"level"`
	Path       string            `mapstructure:"path" yaml:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation" yaml:"rotation"`
	Components map[string]string `mapstructure:"components" yaml:"components"`
}

// HistoryConfig configures the run history store.
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled" yaml:"enabled"`
	Path          string `mapstructure:"path" yaml:"path"`
	RetentionDays int    `mapstructure:"retention_days" yaml:"retention_days"`
}

// Config is the resolved rotsniff configuration.
type Config struct {
	DB             string        `mapstructure:"db" yaml:"db"`
	Verbose        bool          `mapstructure:"verbose" yaml:"verbose"`
	Quiet          bool          `mapstructure:"quiet" yaml:"quiet"`
	FnFilter       string        `mapstructure:"fnfilter" yaml:"fnfilter"`
	NegateFnFilter bool          `mapstructure:"negate_fnfilter" yaml:"negate_fnfilter"`
	Exclude        []string      `mapstructure:"exclude" yaml:"exclude"`
	Workers        int           `mapstructure:"workers" yaml:"workers"`
	Output         string        `mapstructure:"output" yaml:"output"`
	History        HistoryConfig `mapstructure:"history" yaml:"history"`
	Logging        LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("db", DefaultDB)
	v.SetDefault("verbose", false)
	v.SetDefault("quiet", false)
	v.SetDefault("fnfilter", "")
	v.SetDefault("negate_fnfilter", false)
	v.SetDefault("exclude", []string{})
	v.SetDefault("workers", 0)
	v.SetDefault("output", DefaultOutput)

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "")
	v.SetDefault("history.retention_days", DefaultRetentionDays)

	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.rotation.max_size", DefaultLogMaxSize)
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{})
}

// Configure points v at the config file (file, or the default search path
// when empty), enables ROTSNIFF_ environment overrides and sets defaults.
func Configure(v *viper.Viper, file string) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir, err := ConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	SetDefaults(v)
}

// Read reads the config file into v. A missing file is not an error.
func Read(v *viper.Viper) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	return fmt.Errorf("reading config file: %w", err)
}

// FromViper decodes the settings held by v and expands ~ in paths.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	var err error
	for _, p := range []*string{&cfg.DB, &cfg.History.Path, &cfg.Logging.Path} {
		if *p, err = ExpandPath(*p); err != nil {
			return nil, err
		}
	}
	if cfg.History.Path == "" {
		cfg.History.Path = DefaultHistoryPath()
	}
	if cfg.History.RetentionDays <= 0 {
		cfg.History.RetentionDays = DefaultRetentionDays
	}
	if cfg.Workers < 0 {
		cfg.Workers = 0
	}
	return &cfg, nil
}

// Load builds a fresh viper instance, reads the config file and environment
// and returns the decoded Config.
func Load() (*Config, error) {
	v := viper.New()
	Configure(v, "")
	if err := Read(v); err != nil {
		return nil, err
	}
	return FromViper(v)
}

// ConfigDir returns $XDG_CONFIG_HOME/rotsniff, or ~/.config/rotsniff when
// XDG_CONFIG_HOME is unset.
func ConfigDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// ConfigFile returns the default config file path.
func ConfigFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DataDir returns $XDG_DATA_HOME/rotsniff.
func DataDir() string {
	return filepath.Join(xdg.DataHome, appName)
}

// StateDir returns $XDG_STATE_HOME/rotsniff.
func StateDir() string {
	return filepath.Join(xdg.StateHome, appName)
}

// DefaultHistoryPath is where run history lives unless history.path is set.
func DefaultHistoryPath() string {
	return filepath.Join(DataDir(), "history")
}

// DefaultLogPath mirrors logging.DefaultLogPath.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), appName+".log")
}

// EnsureDirs creates the config, data and state directories.
func EnsureDirs() error {
	cfgDir, err := ConfigDir()
	if err != nil {
		return err
	}
	for _, dir := range []string{cfgDir, DataDir(), StateDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

// ErrInvalidSize is returned by ParseSize.
var ErrInvalidSize = errors.New("invalid size")

// ParseSize parses sizes such as "512", "10MB", "1G" or "2.5GiB".
// Unit prefixes are binary: 1MB is 1024*1024 bytes.
func ParseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" || strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	num := strings.TrimSuffix(strings.TrimSuffix(s, "B"), "I")
	unit := ""
	if n := len(num); n > 0 && strings.ContainsRune("KMGTP", rune(num[n-1])) {
		unit = num[n-1:] + "iB"
		num = num[:n-1]
	}

	b, err := humanize.ParseBytes(strings.TrimSpace(num) + unit)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}
	return int64(b), nil
}
