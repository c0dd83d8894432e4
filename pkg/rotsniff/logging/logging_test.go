package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "debug", want: LevelDebug},
		{in: "INFO", want: LevelInfo},
		{in: "warn", want: LevelWarn},
		{in: "warning", want: LevelWarn},
		{in: " error ", want: LevelError},
		{in: "trace", want: LevelInfo, wantErr: true},
		{in: "", want: LevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidLevel))
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "debug", LevelDebug.String())
	assert.Equal(t, "error", LevelError.String())
	assert.Equal(t, "unknown", Level(42).String())
}

// No t.Parallel in this file: Init and Close mutate package state.

func TestGetBeforeInitIsSilent(t *testing.T) {
	require.NoError(t, Close())

	l := Get("silent")
	assert.NotPanics(t, func() { l.Info("dropped", "k", "v") })
	assert.Same(t, l, Get("silent"))
}

func TestInit_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "rotsniff.log")
	require.NoError(t, Init(Config{Level: "info", Path: path}))
	t.Cleanup(func() { _ = Close() })

	l := Get("reconcile")
	l.Debug("hidden")
	l.Info("verify started", "root", "/data")
	l.With("op", "verify").Warn("slow disk")

	require.NoError(t, Close())
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "reconcile")
	assert.Contains(t, out, "verify started")
	assert.Contains(t, out, "root=/data")
	assert.Contains(t, out, "op=verify")
	assert.NotContains(t, out, "hidden")
}

func TestInit_ComponentOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rotsniff.log")
	require.NoError(t, Init(Config{
		Level:      "warn",
		Path:       path,
		Components: map[string]string{"walker": "debug"},
	}))

	Get("walker").Debug("walker detail")
	Get("history").Info("history detail")
	require.NoError(t, Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "walker detail")
	assert.NotContains(t, string(data), "history detail")
}

func TestInit_RebuildsExistingLoggers(t *testing.T) {
	require.NoError(t, Close())
	early := Get("early")

	path := filepath.Join(t.TempDir(), "rotsniff.log")
	require.NoError(t, Init(Config{Level: "info", Path: path}))
	early.Info("after init")
	require.NoError(t, Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "after init")
}

func TestInit_Console(t *testing.T) {
	var console bytes.Buffer
	require.NoError(t, Init(Config{
		Level:        "debug",
		Path:         filepath.Join(t.TempDir(), "rotsniff.log"),
		ConsoleLevel: "warn",
		Console:      &console,
	}))
	t.Cleanup(func() { _ = Close() })

	l := Get("console-test")
	l.Info("file only")
	l.Error("both sinks")

	assert.NotContains(t, console.String(), "file only")
	assert.Contains(t, console.String(), "both sinks")
}

func TestInit_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "bad level", cfg: Config{Level: "loud", Path: filepath.Join(dir, "a.log")}},
		{name: "bad component level", cfg: Config{Level: "info", Path: filepath.Join(dir, "b.log"), Components: map[string]string{"x": "nope"}}},
		{name: "bad console level", cfg: Config{Level: "info", Path: filepath.Join(dir, "c.log"), ConsoleLevel: "nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Init(tt.cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidLevel))
		})
	}
}

func TestDefaultLogPath(t *testing.T) {
	p := DefaultLogPath()
	assert.True(t, strings.HasSuffix(p, filepath.Join("rotsniff", "rotsniff.log")), p)
}
