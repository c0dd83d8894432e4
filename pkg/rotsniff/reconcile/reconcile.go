// Package reconcile compares a fingerprint index against the filesystem.
//
// Each operation fans work out to a bounded errgroup, one file per unit.
// Units read the index but never write it: results are staged under a
// mutex and applied after the group's Wait. The first fatal error cancels
// the group; units that have not started yet return without touching the
// filesystem.
//
// A file that does not exist is never fatal. Any other I/O error aborts
// the operation and leaves the index unchanged.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/rotsniff/pkg/rotsniff/fingerprint"
	"github.com/jamesainslie/rotsniff/pkg/rotsniff/index"
	"github.com/jamesainslie/rotsniff/pkg/rotsniff/logging"
)

// Source lists candidate files under root. fn may be called concurrently;
// a non-nil error from fn stops the walk and is returned.
type Source interface {
	Walk(ctx context.Context, root string, fn func(path string) error) error
}

// HashFunc computes a file's fingerprint. Errors for absent files must
// satisfy errors.Is(err, fs.ErrNotExist).
type HashFunc func(path string) (fingerprint.Fingerprint, error)

// StatFunc reports whether path exists, following symlinks.
type StatFunc func(path string) (fs.FileInfo, error)

// Reconciler runs reconciliations against one index.
type Reconciler struct {
	idx     *index.Index
	src     Source
	hash    HashFunc
	stat    StatFunc
	notify  Notifier
	workers int
	logger  *logging.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithSource sets the file lister used by Append and Verify.
func WithSource(s Source) Option { return func(r *Reconciler) { r.src = s } }

// WithHasher replaces fingerprint.Compute.
func WithHasher(h HashFunc) Option { return func(r *Reconciler) { r.hash = h } }

// WithStat replaces os.Stat in Remove.
func WithStat(s StatFunc) Option { return func(r *Reconciler) { r.stat = s } }

// WithNotifier receives per-file events.
func WithNotifier(n Notifier) Option { return func(r *Reconciler) { r.notify = n } }

// WithWorkers bounds concurrent file operations. Zero or negative means
// GOMAXPROCS.
func WithWorkers(n int) Option { return func(r *Reconciler) { r.workers = n } }

// WithLogger overrides the component logger.
func WithLogger(l *logging.Logger) Option { return func(r *Reconciler) { r.logger = l } }

// New returns a Reconciler over idx.
func New(idx *index.Index, opts ...Option) *Reconciler {
	r := &Reconciler{
		idx:    idx,
		hash:   fingerprint.Compute,
		stat:   os.Stat,
		notify: discard{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.workers <= 0 {
		r.workers = runtime.GOMAXPROCS(0)
	}
	if r.logger == nil {
		r.logger = logging.Get("reconcile")
	}
	return r
}

// Index returns the index being reconciled.
func (r *Reconciler) Index() *index.Index { return r.idx }

// staging collects worker results until the barrier.
type staging struct {
	mu      sync.Mutex
	entries []index.Entry
	paths   []string
	diffs   []Diff
}

func (s *staging) entry(e index.Entry) {
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.paths = append(s.paths, e.Path)
	s.mu.Unlock()
}

func (s *staging) path(p string) {
	s.mu.Lock()
	s.paths = append(s.paths, p)
	s.mu.Unlock()
}

func (s *staging) diff(d Diff) {
	s.mu.Lock()
	s.diffs = append(s.diffs, d)
	s.mu.Unlock()
}

type counters struct {
	checked, hashed, matched, skipped atomic.Int64
}

func (c *counters) fill(rep *Report) {
	rep.Checked = int(c.checked.Load())
	rep.Hashed = int(c.hashed.Load())
	rep.Matched = int(c.matched.Load())
	rep.Skipped = int(c.skipped.Load())
}

func (r *Reconciler) begin(op Op, root string) *Report {
	r.logger.Info("starting", "op", op, "root", root, "entries", r.idx.Len(), "workers", r.workers)
	return &Report{Op: op, Root: root, Started: time.Now()}
}

func (r *Reconciler) finish(rep *Report, c *counters, err error) {
	c.fill(rep)
	rep.Duration = time.Since(rep.Started)
	rep.IndexSize = r.idx.Len()
	switch {
	case errors.Is(err, ErrDiverged):
		r.logger.Warn("diverged", "op", rep.Op, "modified", rep.Count(Modified),
			"missing", rep.Count(Missing), "untracked", rep.Count(Untracked), "elapsed", rep.Duration)
		return
	case err != nil:
		r.logger.Error("failed", "op", rep.Op, "err", err, "elapsed", rep.Duration)
		return
	}
	r.logger.Info("finished", "op", rep.Op, "checked", rep.Checked, "hashed", rep.Hashed,
		"changed", len(rep.Changed), "diffs", len(rep.Diffs), "elapsed", rep.Duration)
}

// Append walks root and adds every file not yet indexed. Files that
// disappear before they are hashed are skipped.
func (r *Reconciler) Append(ctx context.Context, root string) (rep *Report, err error) {
	if r.src == nil {
		return nil, errors.New("append: no file source configured")
	}
	rep = r.begin(OpAppend, root)
	var c counters
	defer func() { r.finish(rep, &c, err) }()

	var st staging
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	walkErr := r.src.Walk(gctx, root, func(path string) error {
		c.checked.Add(1)
		if r.idx.Contains(path) {
			return nil
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fp, err := r.hash(path)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					c.skipped.Add(1)
					r.logger.Debug("vanished before hashing", "path", path)
					return nil
				}
				return fmt.Errorf("hashing %s: %w", path, err)
			}
			c.hashed.Add(1)
			st.entry(index.Entry{Path: path, Fingerprint: fp})
			r.notify.Notify(Event{Kind: Hashed, Path: path, Fingerprint: fp})
			return nil
		})
		return nil
	})

	if err := firstError(g.Wait(), walkErr); err != nil {
		return rep, fmt.Errorf("append %s: %w", root, err)
	}

	r.idx.Extend(st.entries)
	slices.Sort(st.paths)
	rep.Changed = st.paths
	return rep, nil
}

// Remove drops every entry whose path no longer exists.
func (r *Reconciler) Remove(ctx context.Context) (rep *Report, err error) {
	rep = r.begin(OpRemove, "")
	var c counters
	defer func() { r.finish(rep, &c, err) }()

	var st staging
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for path := range r.idx.All() {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c.checked.Add(1)
			_, err := r.stat(path)
			switch {
			case err == nil:
				return nil
			case errors.Is(err, fs.ErrNotExist):
				st.path(path)
				r.notify.Notify(Event{Kind: Removed, Path: path})
				return nil
			default:
				return fmt.Errorf("stat %s: %w", path, err)
			}
		})
	}

	if err := firstError(g.Wait(), ctx.Err()); err != nil {
		return rep, fmt.Errorf("remove: %w", err)
	}

	gone := make(map[string]struct{}, len(st.paths))
	for _, p := range st.paths {
		gone[p] = struct{}{}
	}
	r.idx.Retain(func(path string) bool {
		_, drop := gone[path]
		return !drop
	})
	slices.Sort(st.paths)
	rep.Changed = st.paths
	return rep, nil
}

// Update rehashes every entry and rewrites those whose content changed.
// Entries whose file is missing are left as they are.
func (r *Reconciler) Update(ctx context.Context) (rep *Report, err error) {
	rep = r.begin(OpUpdate, "")
	var c counters
	defer func() { r.finish(rep, &c, err) }()

	var st staging
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for path, old := range r.idx.All() {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c.checked.Add(1)
			fp, err := r.hash(path)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					c.skipped.Add(1)
					r.logger.Debug("missing, left stale", "path", path)
					return nil
				}
				return fmt.Errorf("hashing %s: %w", path, err)
			}
			c.hashed.Add(1)
			if fp.Equal(old) {
				c.matched.Add(1)
				return nil
			}
			st.entry(index.Entry{Path: path, Fingerprint: fp})
			r.notify.Notify(Event{Kind: Updated, Path: path, Fingerprint: fp})
			return nil
		})
	}

	if err := firstError(g.Wait(), ctx.Err()); err != nil {
		return rep, fmt.Errorf("update: %w", err)
	}

	r.idx.Extend(st.entries)
	slices.Sort(st.paths)
	rep.Changed = st.paths
	return rep, nil
}

// Verify rehashes every entry and walks root for untracked files, running
// both passes at once. It never changes the index. When anything diverges
// the report is returned together with an error wrapping ErrDiverged.
func (r *Reconciler) Verify(ctx context.Context, root string) (rep *Report, err error) {
	if r.src == nil {
		return nil, errors.New("verify: no file source configured")
	}
	rep = r.begin(OpVerify, root)
	var c counters
	defer func() { r.finish(rep, &c, err) }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var entryPass, walkPass staging
	pool, pctx := errgroup.WithContext(ctx)
	pool.SetLimit(r.workers)

	var passes errgroup.Group
	passes.Go(func() error {
		for path, old := range r.idx.All() {
			if pctx.Err() != nil {
				return nil
			}
			pool.Go(func() error {
				if err := pctx.Err(); err != nil {
					return err
				}
				return r.verifyEntry(path, old, &c, &entryPass)
			})
		}
		return nil
	})
	passes.Go(func() error {
		err := r.src.Walk(pctx, root, func(path string) error {
			c.checked.Add(1)
			if r.idx.Contains(path) {
				return nil
			}
			walkPass.diff(Diff{Path: path, Outcome: Untracked})
			r.notify.Notify(Event{Kind: UntrackedFile, Path: path})
			return nil
		})
		if err != nil {
			cancel()
		}
		return err
	})

	walkErr := passes.Wait()
	if err := firstError(pool.Wait(), walkErr); err != nil {
		return rep, fmt.Errorf("verify %s: %w", root, err)
	}

	byPath := func(a, b Diff) int {
		switch {
		case a.Path < b.Path:
			return -1
		case a.Path > b.Path:
			return 1
		}
		return 0
	}
	slices.SortFunc(entryPass.diffs, byPath)
	slices.SortFunc(walkPass.diffs, byPath)
	rep.Diffs = append(entryPass.diffs, walkPass.diffs...)

	if !rep.Intact() {
		return rep, fmt.Errorf("%w: %d modified, %d missing, %d untracked", ErrDiverged,
			rep.Count(Modified), rep.Count(Missing), rep.Count(Untracked))
	}
	return rep, nil
}

func (r *Reconciler) verifyEntry(path string, old fingerprint.Fingerprint, c *counters, st *staging) error {
	c.checked.Add(1)
	fp, err := r.hash(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			st.diff(Diff{Path: path, Outcome: Missing, Old: old})
			r.notify.Notify(Event{Kind: MissingFile, Path: path})
			return nil
		}
		return fmt.Errorf("hashing %s: %w", path, err)
	}
	c.hashed.Add(1)
	if fp.Equal(old) {
		c.matched.Add(1)
		r.notify.Notify(Event{Kind: Matched, Path: path, Fingerprint: fp})
		return nil
	}
	st.diff(Diff{Path: path, Outcome: Modified, Old: old, New: fp})
	r.notify.Notify(Event{Kind: ModifiedFile, Path: path, Fingerprint: fp})
	return nil
}

// firstError picks the error to report: the first that is not a
// cancellation, else the first non-nil.
func firstError(errs ...error) error {
	var fallback error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if !errors.Is(err, context.Canceled) {
			return err
		}
		if fallback == nil {
			fallback = err
		}
	}
	return fallback
}
