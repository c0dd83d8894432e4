// Package history keeps a log of rotsniff runs in a Badger database so
// past verifications can be reviewed with "rotsniff history".
package history

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/rotsniff/pkg/rotsniff/reconcile"
)

// MaxAnomalies caps the divergences stored per record.
const MaxAnomalies = 1000

// Outcome of a recorded run.
const (
	OutcomeOK       = "ok"
	OutcomeDiverged = "diverged"
	OutcomeFailed   = "failed"
)

// Anomaly is a stored divergence.
type Anomaly struct {
	Path    string `json:"path"`
	Outcome string `json:"outcome"`
}

// Record describes one run.
type Record struct {
	ID        string        `json:"id"`
	Operation string        `json:"operation"`
	Root      string        `json:"root,omitempty"`
	Index     string        `json:"index"`
	Started   time.Time     `json:"started"`
	Duration  time.Duration `json:"duration"`
	Outcome   string        `json:"outcome"`
	Error     string        `json:"error,omitempty"`

	Checked   int `json:"checked"`
	Hashed    int `json:"hashed"`
	Matched   int `json:"matched"`
	Skipped   int `json:"skipped"`
	Changed   int `json:"changed"`
	IndexSize int `json:"index_size"`

	Modified  int `json:"modified,omitempty"`
	Missing   int `json:"missing,omitempty"`
	Untracked int `json:"untracked,omitempty"`

	Anomalies []Anomaly `json:"anomalies,omitempty"`
	// Truncated is set when more than MaxAnomalies divergences were found.
	Truncated bool `json:"truncated,omitempty"`
}

// ShortID returns the first eight characters of the ID.
func (r *Record) ShortID() string {
	if len(r.ID) <= 8 {
		return r.ID
	}
	return r.ID[:8]
}

// FromReport builds a Record from a finished reconciliation. err is the
// operation's result.
func FromReport(rep *reconcile.Report, indexPath string, err error) *Record {
	rec := &Record{
		ID:        uuid.NewString(),
		Operation: string(rep.Op),
		Root:      rep.Root,
		Index:     indexPath,
		Started:   rep.Started.UTC(),
		Duration:  rep.Duration,
		Outcome:   OutcomeOK,
		Checked:   rep.Checked,
		Hashed:    rep.Hashed,
		Matched:   rep.Matched,
		Skipped:   rep.Skipped,
		Changed:   len(rep.Changed),
		IndexSize: rep.IndexSize,
		Modified:  rep.Count(reconcile.Modified),
		Missing:   rep.Count(reconcile.Missing),
		Untracked: rep.Count(reconcile.Untracked),
	}

	for i, d := range rep.Diffs {
		if i == MaxAnomalies {
			rec.Truncated = true
			break
		}
		rec.Anomalies = append(rec.Anomalies, Anomaly{Path: d.Path, Outcome: d.Outcome.String()})
	}

	switch {
	case err == nil:
	case errors.Is(err, reconcile.ErrDiverged):
		rec.Outcome = OutcomeDiverged
	default:
		rec.Outcome = OutcomeFailed
		rec.Error = err.Error()
	}
	return rec
}
