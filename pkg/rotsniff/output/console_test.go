package output

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jamesainslie/rotsniff/pkg/rotsniff/reconcile"
)

func TestConsole_Lines(t *testing.T) {
	fp := mustFP(t, "content")

	tests := []struct {
		name    string
		event   reconcile.Event
		verbose bool
		want    string
	}{
		{name: "removed", event: reconcile.Event{Kind: reconcile.Removed, Path: "/a"}, want: "REMOVED: /a\n"},
		{name: "updated", event: reconcile.Event{Kind: reconcile.Updated, Path: "/a"}, want: "UPDATED: /a\n"},
		{name: "modified", event: reconcile.Event{Kind: reconcile.ModifiedFile, Path: "/a"}, want: "MODIFIED: /a\n"},
		{name: "missing", event: reconcile.Event{Kind: reconcile.MissingFile, Path: "/a"}, want: "FILE NOT FOUND: /a\n"},
		{name: "untracked", event: reconcile.Event{Kind: reconcile.UntrackedFile, Path: "/a"}, want: "NOT FOUND IN DB: /a\n"},
		{name: "match quiet", event: reconcile.Event{Kind: reconcile.Matched, Path: "/a"}, want: ""},
		{name: "match verbose", event: reconcile.Event{Kind: reconcile.Matched, Path: "/a"}, verbose: true, want: "MATCH: /a\n"},
		{name: "hashed quiet", event: reconcile.Event{Kind: reconcile.Hashed, Path: "/a", Fingerprint: fp}, want: ""},
		{name: "hashed verbose", event: reconcile.Event{Kind: reconcile.Hashed, Path: "/a", Fingerprint: fp}, verbose: true, want: "/a: " + fp.String() + "\n"},
		{name: "unknown kind", event: reconcile.Event{Kind: 0, Path: "/a"}, verbose: true, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			c := NewConsole(&buf, tt.verbose)
			c.Notify(tt.event)
			assert.Equal(t, tt.want, buf.String())
			assert.Equal(t, strings.Count(tt.want, "\n"), c.Printed())
		})
	}
}

func TestConsole_ConcurrentNotify(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Notify(reconcile.Event{Kind: reconcile.Removed, Path: "/p"})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, c.Printed())
	assert.Equal(t, strings.Repeat("REMOVED: /p\n", 50), buf.String())
}
