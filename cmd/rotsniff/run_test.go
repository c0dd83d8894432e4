package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/rotsniff/pkg/rotsniff/config"
	"github.com/jamesainslie/rotsniff/pkg/rotsniff/filter"
	"github.com/jamesainslie/rotsniff/pkg/rotsniff/history"
	"github.com/jamesainslie/rotsniff/pkg/rotsniff/index"
	"github.com/jamesainslie/rotsniff/pkg/rotsniff/reconcile"
)

type fixture struct {
	dir  string
	data string
	cfg  *config.Config
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	dir := t.TempDir()
	data := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(data, 0o755))
	for name, content := range files {
		path := filepath.Join(data, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return &fixture{
		dir:  dir,
		data: data,
		cfg: &config.Config{
			DB:      filepath.Join(dir, "rotsniff.db"),
			Workers: 2,
			Output:  "plain",
			History: config.HistoryConfig{
				Enabled:       true,
				Path:          filepath.Join(dir, "history"),
				RetentionDays: 90,
			},
		},
	}
}

func (f *fixture) run(t *testing.T, op reconcile.Op, root string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := runOperation(context.Background(), &out, f.cfg, op, root)
	return out.String(), err
}

func (f *fixture) path(name string) string {
	return filepath.Join(f.data, name)
}

func TestRunOperation_AppendThenVerifyClean(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "alpha", "sub/b.txt": "beta"})

	out, err := f.run(t, reconcile.OpAppend, f.data)
	require.NoError(t, err)
	assert.Contains(t, out, "status:")

	idx, err := index.Load(f.cfg.DB)
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())
	assert.True(t, idx.Contains(f.path("a.txt")))
	assert.True(t, idx.Contains(f.path("sub/b.txt")))

	_, err = f.run(t, reconcile.OpVerify, f.data)
	require.NoError(t, err)
}

func TestRunOperation_VerifyReportsDivergence(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "alpha", "b.txt": "beta"})

	_, err := f.run(t, reconcile.OpAppend, f.data)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(f.path("a.txt"), []byte("ALPHA"), 0o644))
	require.NoError(t, os.Remove(f.path("b.txt")))
	require.NoError(t, os.WriteFile(f.path("c.txt"), []byte("gamma"), 0o644))

	out, err := f.run(t, reconcile.OpVerify, f.data)
	require.Error(t, err)
	assert.True(t, errors.Is(err, reconcile.ErrDiverged))
	assert.Equal(t, exitDiverged, exitCode(err))

	assert.Contains(t, out, "MODIFIED: "+f.path("a.txt"))
	assert.Contains(t, out, "FILE NOT FOUND: "+f.path("b.txt"))
	assert.Contains(t, out, "NOT FOUND IN DB: "+f.path("c.txt"))

	// Verify never rewrites the index.
	idx, err := index.Load(f.cfg.DB)
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())
	assert.False(t, idx.Contains(f.path("c.txt")))
}

func TestRunOperation_UpdateAndRemove(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "alpha", "b.txt": "beta"})

	_, err := f.run(t, reconcile.OpAppend, f.data)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(f.path("a.txt"), []byte("ALPHA"), 0o644))
	require.NoError(t, os.Remove(f.path("b.txt")))

	out, err := f.run(t, reconcile.OpUpdate, "")
	require.NoError(t, err)
	assert.Contains(t, out, "UPDATED: "+f.path("a.txt"))

	idx, err := index.Load(f.cfg.DB)
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len(), "update keeps entries for missing files")

	out, err = f.run(t, reconcile.OpRemove, "")
	require.NoError(t, err)
	assert.Contains(t, out, "REMOVED: "+f.path("b.txt"))

	idx, err = index.Load(f.cfg.DB)
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Len())

	_, err = f.run(t, reconcile.OpVerify, f.data)
	require.NoError(t, err)
}

func TestRunOperation_FnFilter(t *testing.T) {
	f := newFixture(t, map[string]string{"a.jpg": "img", "b.txt": "text"})
	f.cfg.FnFilter = `\.jpg$`

	_, err := f.run(t, reconcile.OpAppend, f.data)
	require.NoError(t, err)

	idx, err := index.Load(f.cfg.DB)
	require.NoError(t, err)
	assert.Equal(t, []string{f.path("a.jpg")}, idx.Paths())

	// b.txt is filtered out of the walk, so verify stays clean.
	_, err = f.run(t, reconcile.OpVerify, f.data)
	require.NoError(t, err)
}

func TestRunOperation_InvalidFilterIsFatalBeforeLoad(t *testing.T) {
	f := newFixture(t, nil)
	f.cfg.FnFilter = "([a-z"

	_, err := f.run(t, reconcile.OpAppend, f.data)
	require.Error(t, err)
	assert.True(t, errors.Is(err, filter.ErrInvalidPattern))
	assert.Equal(t, exitFatal, exitCode(err))

	_, statErr := os.Stat(f.cfg.DB)
	assert.True(t, os.IsNotExist(statErr), "index must not be touched")
}

func TestRunOperation_MissingRootIsFatal(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.run(t, reconcile.OpAppend, filepath.Join(f.dir, "nope"))
	require.Error(t, err)
	assert.Equal(t, exitFatal, exitCode(err))
}

func TestRunOperation_AppendSingleFile(t *testing.T) {
	f := newFixture(t, map[string]string{"disk.iso": "image", "other.txt": "text"})

	_, err := f.run(t, reconcile.OpAppend, f.path("disk.iso"))
	require.NoError(t, err)

	idx, err := index.Load(f.cfg.DB)
	require.NoError(t, err)
	assert.Equal(t, []string{f.path("disk.iso")}, idx.Paths())

	_, err = f.run(t, reconcile.OpVerify, f.path("disk.iso"))
	require.NoError(t, err)
}

func TestRunOperation_UnknownOutput(t *testing.T) {
	f := newFixture(t, nil)
	f.cfg.Output = "xml"

	_, err := f.run(t, reconcile.OpAppend, f.data)
	require.Error(t, err)
}

func TestRunOperation_JSONOutputHasNoNotices(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "alpha"})

	_, err := f.run(t, reconcile.OpAppend, f.data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(f.path("a.txt"), []byte("changed"), 0o644))

	f.cfg.Output = "json"
	out, err := f.run(t, reconcile.OpVerify, f.data)
	require.True(t, errors.Is(err, reconcile.ErrDiverged))

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc), "stdout must be a single JSON document: %s", out)
	assert.Equal(t, "diverged", doc["status"])
	assert.Equal(t, "verify", doc["operation"])
}

func TestRunOperation_Quiet(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "alpha"})
	f.cfg.Quiet = true

	out, err := f.run(t, reconcile.OpAppend, f.data)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRunOperation_RecordsHistory(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "alpha"})

	_, err := f.run(t, reconcile.OpAppend, f.data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(f.path("a.txt"), []byte("changed"), 0o644))
	_, err = f.run(t, reconcile.OpVerify, f.data)
	require.Error(t, err)

	store, err := history.Open(f.cfg.History.Path)
	require.NoError(t, err)
	defer store.Close()

	recs, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "verify", recs[0].Operation)
	assert.Equal(t, history.OutcomeDiverged, recs[0].Outcome)
	assert.Equal(t, 1, recs[0].Modified)
	assert.Equal(t, "append", recs[1].Operation)
	assert.Equal(t, history.OutcomeOK, recs[1].Outcome)
}

func TestRunOperation_HistoryDisabled(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "alpha"})
	f.cfg.History.Enabled = false

	_, err := f.run(t, reconcile.OpAppend, f.data)
	require.NoError(t, err)

	_, statErr := os.Stat(f.cfg.History.Path)
	assert.True(t, os.IsNotExist(statErr))
}
