package reconcile

import (
	"errors"
	"time"

	"github.com/jamesainslie/rotsniff/pkg/rotsniff/fingerprint"
)

// ErrDiverged is returned by Verify when the tree and the index disagree.
var ErrDiverged = errors.New("index and filesystem diverge")

// Op names a reconciliation.
type Op string

// Operations.
const (
	OpAppend Op = "append"
	OpRemove Op = "remove"
	OpUpdate Op = "update"
	OpVerify Op = "verify"
)

// Outcome classifies a divergence found by Verify.
type Outcome int

// Divergence outcomes.
const (
	// Modified: the file exists and its fingerprint differs from the index.
	Modified Outcome = iota + 1
	// Missing: the index has the path but the file does not exist.
	Missing
	// Untracked: the walk found a file the index does not have.
	Untracked
)

func (o Outcome) String() string {
	switch o {
	case Modified:
		return "modified"
	case Missing:
		return "missing"
	case Untracked:
		return "untracked"
	default:
		return "unknown"
	}
}

// MarshalText encodes the outcome name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Diff is one divergence. Old is set for Modified and Missing, New only
// for Modified.
type Diff struct {
	Path    string
	Outcome Outcome
	Old     fingerprint.Fingerprint
	New     fingerprint.Fingerprint
}

// Report summarises a reconciliation.
type Report struct {
	Op       Op
	Root     string
	Started  time.Time
	Duration time.Duration

	// Checked counts index entries examined (remove, update, verify pass 1)
	// plus files yielded by the walk (append, verify pass 2).
	Checked int

	// Hashed counts fingerprints computed.
	Hashed int

	// Matched counts entries whose fingerprint was unchanged.
	Matched int

	// Skipped counts files that vanished before they could be read.
	Skipped int

	// Changed lists the paths added (append), removed (remove) or
	// rewritten (update), sorted.
	Changed []string

	// Diffs holds Verify's findings: the entry pass first, then the walk
	// pass, each sorted by path.
	Diffs []Diff

	// IndexSize is the number of entries after the operation.
	IndexSize int
}

// Intact reports whether Verify found no divergence.
func (r *Report) Intact() bool {
	return len(r.Diffs) == 0
}

// Count returns the number of diffs with outcome o.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, d := range r.Diffs {
		if d.Outcome == o {
			n++
		}
	}
	return n
}
