package history

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/rotsniff/pkg/rotsniff/reconcile"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_WritesSchema(t *testing.T) {
	s := openStore(t)

	schema, err := s.Schema()
	require.NoError(t, err)
	require.NotNil(t, schema)
	assert.Equal(t, CurrentSchemaVersion, schema.Version)
}

func TestOpen_EmptyDir(t *testing.T) {
	_, err := Open("")
	require.Error(t, err)
}

func TestAdd_AssignsID(t *testing.T) {
	s := openStore(t)

	rec := &Record{Operation: "verify", Outcome: OutcomeOK}
	require.NoError(t, s.Add(rec))
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.Started.IsZero())

	got, err := s.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "verify", got.Operation)
}

func TestList_NewestFirst(t *testing.T) {
	s := openStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := range 5 {
		require.NoError(t, s.Add(&Record{
			ID:        fmt.Sprintf("id-%d", i),
			Operation: "append",
			Started:   base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, rec := range all {
		assert.Equal(t, fmt.Sprintf("id-%d", 4-i), rec.ID)
	}

	limited, err := s.List(2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "id-4", limited[0].ID)
	assert.Equal(t, "id-3", limited[1].ID)
}

func TestList_Empty(t *testing.T) {
	s := openStore(t)

	recs, err := s.List(10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestGet_Prefix(t *testing.T) {
	s := openStore(t)
	now := time.Now().UTC()

	require.NoError(t, s.Add(&Record{ID: "abc123", Operation: "verify", Started: now}))
	require.NoError(t, s.Add(&Record{ID: "abd456", Operation: "update", Started: now.Add(time.Second)}))

	got, err := s.Get("abc")
	require.NoError(t, err)
	assert.Equal(t, "abc123", got.ID)

	_, err = s.Get("ab")
	assert.True(t, errors.Is(err, ErrAmbiguous))

	_, err = s.Get("zzz")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = s.Get("")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGet_ExactIDWinsOverLongerMatch(t *testing.T) {
	s := openStore(t)
	now := time.Now().UTC()

	require.NoError(t, s.Add(&Record{ID: "abc", Operation: "verify", Started: now}))
	require.NoError(t, s.Add(&Record{ID: "abcd", Operation: "update", Started: now}))

	got, err := s.Get("abc")
	require.NoError(t, err)
	assert.Equal(t, "verify", got.Operation)
}

func TestCleanup(t *testing.T) {
	s := openStore(t)
	now := time.Now().UTC()

	require.NoError(t, s.Add(&Record{ID: "old", Started: now.Add(-100 * 24 * time.Hour)}))
	require.NoError(t, s.Add(&Record{ID: "older", Started: now.Add(-200 * 24 * time.Hour)}))
	require.NoError(t, s.Add(&Record{ID: "fresh", Started: now.Add(-time.Hour)}))

	removed, err := s.Cleanup(90 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	recs, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "fresh", recs[0].ID)

	_, err = s.Get("old")
	assert.True(t, errors.Is(err, ErrNotFound))

	removed, err = s.Cleanup(90 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestReopen_KeepsRecords(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "history")

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Add(&Record{ID: "persisted", Operation: "remove"}))
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get("persisted")
	require.NoError(t, err)
	assert.Equal(t, "remove", got.Operation)
}

func TestFromReport(t *testing.T) {
	rep := &reconcile.Report{
		Op:       reconcile.OpVerify,
		Root:     "/data",
		Started:  time.Now(),
		Duration: time.Second,
		Checked:  10,
		Hashed:   8,
		Matched:  6,
		Diffs: []reconcile.Diff{
			{Path: "/data/a", Outcome: reconcile.Modified},
			{Path: "/data/b", Outcome: reconcile.Missing},
			{Path: "/data/c", Outcome: reconcile.Untracked},
		},
	}

	t.Run("diverged", func(t *testing.T) {
		rec := FromReport(rep, "db.gz", fmt.Errorf("verify: %w", reconcile.ErrDiverged))
		assert.NotEmpty(t, rec.ID)
		assert.Equal(t, "verify", rec.Operation)
		assert.Equal(t, OutcomeDiverged, rec.Outcome)
		assert.Empty(t, rec.Error)
		assert.Equal(t, 1, rec.Modified)
		assert.Equal(t, 1, rec.Missing)
		assert.Equal(t, 1, rec.Untracked)
		require.Len(t, rec.Anomalies, 3)
		assert.Equal(t, Anomaly{Path: "/data/a", Outcome: reconcile.Modified.String()}, rec.Anomalies[0])
		assert.False(t, rec.Truncated)
	})

	t.Run("failed", func(t *testing.T) {
		rec := FromReport(rep, "db.gz", errors.New("disk on fire"))
		assert.Equal(t, OutcomeFailed, rec.Outcome)
		assert.Equal(t, "disk on fire", rec.Error)
	})

	t.Run("ok", func(t *testing.T) {
		rec := FromReport(&reconcile.Report{Op: reconcile.OpUpdate, Changed: []string{"x", "y"}}, "db.gz", nil)
		assert.Equal(t, OutcomeOK, rec.Outcome)
		assert.Equal(t, 2, rec.Changed)
	})

	t.Run("truncated", func(t *testing.T) {
		big := &reconcile.Report{Op: reconcile.OpVerify}
		for i := range MaxAnomalies + 5 {
			big.Diffs = append(big.Diffs, reconcile.Diff{Path: fmt.Sprint(i), Outcome: reconcile.Untracked})
		}
		rec := FromReport(big, "db.gz", nil)
		assert.Len(t, rec.Anomalies, MaxAnomalies)
		assert.True(t, rec.Truncated)
		assert.Equal(t, MaxAnomalies+5, rec.Untracked)
	})
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "abc", (&Record{ID: "abc"}).ShortID())
	assert.Equal(t, "01234567", (&Record{ID: "0123456789"}).ShortID())
}
