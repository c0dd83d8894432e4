package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const defaultFile = `# rotsniff configuration
#
# Every key can be overridden with a ROTSNIFF_ environment variable,
# e.g. ROTSNIFF_DB=/srv/photos.db or ROTSNIFF_HISTORY_ENABLED=false.

# Fingerprint index used by append, remove, update and verify.
db: %s

# Print every hashed file (append) and every matching file (verify).
verbose: false

# Regular expression matched against each walked path; empty matches all.
fnfilter: ""
negate_fnfilter: false

# Glob patterns skipped during walks. A matching directory is not entered.
exclude: []

# Hash workers; 0 sizes the pool from the CPU count.
workers: 0

# Report format: pretty, plain, json or yaml.
output: %s

history:
  enabled: true
  # Empty means $XDG_DATA_HOME/rotsniff/history
  path: ""
  retention_days: %d

logging:
  # debug, info, warn or error
  level: %s
  # Empty means $XDG_STATE_HOME/rotsniff/rotsniff.log
  path: ""
  rotation:
    max_size: %s
    max_age: 30
    max_backups: 5
    daily: true
  # Per-component levels: reconcile, walker, index, history, cli
  components: {}
`

// DefaultFileContents returns the commented default config file.
func DefaultFileContents() string {
	return fmt.Sprintf(defaultFile, DefaultDB, DefaultOutput, DefaultRetentionDays, DefaultLogLevel, DefaultLogMaxSize)
}

// WriteDefault writes the default config file unless one already exists.
// It reports the path and whether a file was created.
func WriteDefault() (string, bool, error) {
	path, err := ConfigFile()
	if err != nil {
		return "", false, err
	}
	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	} else if !os.IsNotExist(err) {
		return "", false, fmt.Errorf("checking config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", false, fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(DefaultFileContents()), 0o644); err != nil {
		return "", false, fmt.Errorf("writing default config: %w", err)
	}
	return path, true, nil
}

// Encode writes cfg to w as YAML.
func (c *Config) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return enc.Close()
}
