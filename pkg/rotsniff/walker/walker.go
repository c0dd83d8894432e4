// Package walker lists the files under a directory tree in parallel using
// fastwalk. It yields regular files, and symlinks that resolve to regular
// files, after applying a filter.Matcher.
package walker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"

	"github.com/jamesainslie/rotsniff/pkg/rotsniff/filter"
	"github.com/jamesainslie/rotsniff/pkg/rotsniff/logging"
)

// ErrNotDirectory is returned when the walk root is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// Walker walks directory trees. It is safe for concurrent use.
type Walker struct {
	matcher *filter.Matcher
	workers int
	logger  *logging.Logger
}

// Option configures a Walker.
type Option func(*Walker)

// WithMatcher restricts the walk to paths accepted by m.
func WithMatcher(m *filter.Matcher) Option {
	return func(w *Walker) { w.matcher = m }
}

// WithWorkers sets the number of traversal goroutines. Zero or negative
// lets fastwalk choose.
func WithWorkers(n int) Option {
	return func(w *Walker) { w.workers = n }
}

// WithLogger overrides the component logger.
func WithLogger(l *logging.Logger) Option {
	return func(w *Walker) { w.logger = l }
}

// New returns a Walker.
func New(opts ...Option) *Walker {
	w := &Walker{}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logging.Get("walker")
	}
	return w
}

// Stats counts what a single walk saw.
type Stats struct {
	Dirs     int64
	Files    int64
	Filtered int64
	Skipped  int64
}

// Walk calls fn with the path of every candidate file under root. Paths
// are root joined with the relative path, without further cleaning.
//
// fn may be called from several goroutines at once. If fn returns an
// error the walk stops and Walk returns that error. Errors reading
// individual entries are logged and skipped. A root that is a regular file
// is yielded by itself.
func (w *Walker) Walk(ctx context.Context, root string, fn func(path string) error) error {
	_, err := w.WalkStats(ctx, root, fn)
	return err
}

// WalkStats is Walk that also reports counters.
func (w *Walker) WalkStats(ctx context.Context, root string, fn func(path string) error) (Stats, error) {
	info, err := os.Stat(root)
	if err != nil {
		return Stats{}, fmt.Errorf("walk root: %w", err)
	}
	if !info.IsDir() {
		return w.walkFile(ctx, root, info, fn)
	}

	var (
		dirs, files, filtered, skipped atomic.Int64
		fnErr                          atomic.Pointer[callbackError]
	)

	conf := fastwalk.Config{
		Follow:     false,
		NumWorkers: w.workers,
	}

	walkErr := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}

		if err != nil {
			// fastwalk reports an error returned by fn a second time,
			// against the parent directory.
			var ce *callbackError
			if errors.As(err, &ce) {
				return err
			}
			skipped.Add(1)
			w.logger.Debug("skipping unreadable entry", "path", path, "err", err)
			return nil
		}

		if d.IsDir() {
			if path == root {
				return nil
			}
			if w.matcher.Prune(path) {
				filtered.Add(1)
				return fastwalk.SkipDir
			}
			dirs.Add(1)
			return nil
		}

		ok, err := isFile(path, d)
		if err != nil {
			skipped.Add(1)
			w.logger.Debug("skipping entry", "path", path, "err", err)
			return nil
		}
		if !ok {
			return nil
		}

		if !w.matcher.Match(path) {
			filtered.Add(1)
			return nil
		}

		files.Add(1)
		if err := fn(path); err != nil {
			ce := &callbackError{err: err}
			fnErr.CompareAndSwap(nil, ce)
			return ce
		}
		return nil
	})

	stats := Stats{
		Dirs:     dirs.Load(),
		Files:    files.Load(),
		Filtered: filtered.Load(),
		Skipped:  skipped.Load(),
	}
	w.logger.Debug("walk finished", "root", root, "dirs", stats.Dirs, "files", stats.Files,
		"filtered", stats.Filtered, "skipped", stats.Skipped)

	if ce := fnErr.Load(); ce != nil {
		return stats, ce.err
	}
	if walkErr != nil {
		return stats, walkErr
	}
	return stats, ctx.Err()
}

// walkFile handles a root that is not a directory. A regular file, or a
// symlink to one, is yielded on its own.
func (w *Walker) walkFile(ctx context.Context, root string, info fs.FileInfo, fn func(path string) error) (Stats, error) {
	if !info.Mode().IsRegular() {
		return Stats{}, fmt.Errorf("walk root %s: %w", root, ErrNotDirectory)
	}
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}
	if !w.matcher.Match(root) {
		return Stats{Filtered: 1}, nil
	}
	return Stats{Files: 1}, fn(root)
}

// callbackError marks an error returned by the caller's fn so it is not
// mistaken for an unreadable entry.
type callbackError struct {
	err error
}

func (e *callbackError) Error() string { return e.err.Error() }

func (e *callbackError) Unwrap() error { return e.err }

// isFile reports whether the entry is a regular file or a symlink to one.
// Dangling links are reported as not being files.
func isFile(path string, d fs.DirEntry) (bool, error) {
	t := d.Type()
	if t.IsRegular() {
		return true, nil
	}
	if t&fs.ModeSymlink == 0 {
		return false, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}
