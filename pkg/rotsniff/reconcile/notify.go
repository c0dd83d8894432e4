package reconcile

import "github.com/jamesainslie/rotsniff/pkg/rotsniff/fingerprint"

// EventKind identifies a per-file notice.
type EventKind int

// Event kinds. Hashed and Matched are informational; the rest report a
// change to the index or a divergence.
const (
	Hashed EventKind = iota + 1
	Matched
	Removed
	Updated
	ModifiedFile
	MissingFile
	UntrackedFile
)

// Event is emitted as each file is processed, from worker goroutines.
type Event struct {
	Kind        EventKind
	Path        string
	Fingerprint fingerprint.Fingerprint
}

// Notifier receives events. Implementations must be safe for concurrent
// use.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

// Notify calls f(e).
func (f NotifierFunc) Notify(e Event) { f(e) }

type discard struct{}

func (discard) Notify(Event) {}
