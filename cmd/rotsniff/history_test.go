package main

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jamesainslie/rotsniff/pkg/rotsniff/history"
)

func TestPrintHistoryTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	printHistoryTable(&buf, nil)
	assert.Contains(t, buf.String(), "No runs recorded yet.")
}

func TestPrintHistoryTable(t *testing.T) {
	var buf bytes.Buffer
	printHistoryTable(&buf, []history.Record{{
		ID:        "0123456789abcdef",
		Operation: "verify",
		Outcome:   history.OutcomeDiverged,
		Started:   time.Now().Add(-time.Hour),
		Checked:   1234,
		Modified:  2,
		Untracked: 1,
		Root:      "/srv/photos",
	}})

	out := buf.String()
	assert.Contains(t, out, "01234567")
	assert.NotContains(t, out, "0123456789abcdef")
	assert.Contains(t, out, "1,234")
	assert.Contains(t, out, "diverged")
	assert.Contains(t, out, "/srv/photos")
}

func TestPrintHistoryRecord_TruncatesAnomalies(t *testing.T) {
	rec := &history.Record{
		ID:        "abc",
		Operation: "verify",
		Outcome:   history.OutcomeDiverged,
		Started:   time.Now(),
		Untracked: maxShownAnomalies + 10,
	}
	for i := range maxShownAnomalies + 10 {
		rec.Anomalies = append(rec.Anomalies, history.Anomaly{Path: fmt.Sprintf("/p/%d", i), Outcome: "untracked"})
	}

	var buf bytes.Buffer
	printHistoryRecord(&buf, rec)

	out := buf.String()
	assert.Equal(t, maxShownAnomalies, strings.Count(out, "untracked   /p/"))
	assert.Contains(t, out, "... and 10 more")
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 3, "abc"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, truncateString(tt.in, tt.max))
	}
}
