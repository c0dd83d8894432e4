// Package output renders rotsniff results: streaming per-file notices
// while an operation runs, and an end-of-run summary in one of several
// registered formats.
//
//	f, err := output.Get("json")
//	if err != nil {
//	    return err
//	}
//	return f.Format(os.Stdout, output.FromReport(rep, dbPath))
package output

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/jamesainslie/rotsniff/pkg/rotsniff/reconcile"
)

// Status values for Result.Status.
const (
	StatusOK       = "ok"
	StatusDiverged = "diverged"
	StatusFailed   = "failed"
)

// Diff is a divergence as rendered to users.
type Diff struct {
	Path     string `json:"path" yaml:"path"`
	Outcome  string `json:"outcome" yaml:"outcome"`
	Expected string `json:"expected,omitempty" yaml:"expected,omitempty"`
	Actual   string `json:"actual,omitempty" yaml:"actual,omitempty"`
}

// Result is the end-of-run summary handed to formatters.
type Result struct {
	Operation string        `json:"operation" yaml:"operation"`
	Root      string        `json:"root,omitempty" yaml:"root,omitempty"`
	Index     string        `json:"index" yaml:"index"`
	Status    string        `json:"status" yaml:"status"`
	Started   time.Time     `json:"started" yaml:"started"`
	Duration  time.Duration `json:"-" yaml:"-"`
	Checked   int           `json:"checked" yaml:"checked"`
	Hashed    int           `json:"hashed" yaml:"hashed"`
	Matched   int           `json:"matched" yaml:"matched"`
	Skipped   int           `json:"skipped" yaml:"skipped"`
	IndexSize int           `json:"index_size" yaml:"index_size"`
	Changed   []string      `json:"changed,omitempty" yaml:"changed,omitempty"`
	Diffs     []Diff        `json:"diffs,omitempty" yaml:"diffs,omitempty"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// FromReport converts a reconcile report. err is the operation's error,
// if any: ErrDiverged yields StatusDiverged, anything else StatusFailed.
func FromReport(rep *reconcile.Report, indexPath string, err error) *Result {
	r := &Result{
		Operation: string(rep.Op),
		Root:      rep.Root,
		Index:     indexPath,
		Status:    StatusOK,
		Started:   rep.Started,
		Duration:  rep.Duration,
		Checked:   rep.Checked,
		Hashed:    rep.Hashed,
		Matched:   rep.Matched,
		Skipped:   rep.Skipped,
		IndexSize: rep.IndexSize,
		Changed:   slices.Clone(rep.Changed),
	}
	for _, d := range rep.Diffs {
		od := Diff{Path: d.Path, Outcome: d.Outcome.String()}
		if !d.Old.IsZero() {
			od.Expected = d.Old.String()
		}
		if !d.New.IsZero() {
			od.Actual = d.New.String()
		}
		r.Diffs = append(r.Diffs, od)
	}

	switch {
	case err == nil:
	case errors.Is(err, reconcile.ErrDiverged):
		r.Status = StatusDiverged
	default:
		r.Status = StatusFailed
		r.Error = err.Error()
	}
	return r
}

// CountOutcome returns the number of diffs with the given outcome name.
func (r *Result) CountOutcome(outcome string) int {
	n := 0
	for _, d := range r.Diffs {
		if d.Outcome == outcome {
			n++
		}
	}
	return n
}

// Formatter renders a Result.
type Formatter interface {
	Format(w io.Writer, r *Result) error
}

// Structured is implemented by formatters whose output is meant for
// programs. Streaming notices are suppressed when one is selected.
type Structured interface {
	Structured() bool
}

// IsStructured reports whether f produces machine-readable output.
func IsStructured(f Formatter) bool {
	s, ok := f.(Structured)
	return ok && s.Structured()
}

// FormatterFactory creates a Formatter.
type FormatterFactory func() Formatter

// Registry maps names to formatter factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]FormatterFactory)}
}

// Register adds or replaces a factory.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (available: %v)", name, r.availableLocked())
	}
	return factory(), nil
}

// Available returns the registered names, sorted.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.availableLocked()
}

func (r *Registry) availableLocked() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DefaultRegistry holds the built-in formatters.
var DefaultRegistry = NewRegistry()

// Register adds a factory to DefaultRegistry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a formatter from DefaultRegistry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available lists DefaultRegistry's formatters.
func Available() []string {
	return DefaultRegistry.Available()
}
