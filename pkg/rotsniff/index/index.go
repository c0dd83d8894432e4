// Package index provides the persisted fingerprint index: an in-memory map
// from file path to fingerprint with durable load/save to a gzip-compressed,
// header-less CSV file.
//
// An Index is not safe for concurrent mutation. Concurrent readers (Get, All,
// Len) are fine as long as no mutation runs at the same time.
package index

import (
	"iter"
	"maps"
	"slices"

	"github.com/jamesainslie/rotsniff/pkg/rotsniff/fingerprint"
)

// Entry pairs a path with its last known fingerprint.
type Entry struct {
	Path        string
	Fingerprint fingerprint.Fingerprint
}

// Index maps paths to fingerprints. At most one fingerprint is kept per path.
type Index struct {
	entries map[string]fingerprint.Fingerprint
}

// New returns an empty index.
func New() *Index {
	return &Index{entries: make(map[string]fingerprint.Fingerprint)}
}

// FromEntries builds an index from entries, last writer wins.
func FromEntries(entries []Entry) *Index {
	idx := New()
	idx.Extend(entries)
	return idx
}

// Len returns the number of tracked paths.
func (x *Index) Len() int {
	return len(x.entries)
}

// Get looks up the fingerprint stored for path.
func (x *Index) Get(path string) (fingerprint.Fingerprint, bool) {
	fp, ok := x.entries[path]
	return fp, ok
}

// Contains reports whether path is tracked.
func (x *Index) Contains(path string) bool {
	_, ok := x.entries[path]
	return ok
}

// All iterates over every entry in unspecified order.
func (x *Index) All() iter.Seq2[string, fingerprint.Fingerprint] {
	return func(yield func(string, fingerprint.Fingerprint) bool) {
		for path, fp := range x.entries {
			if !yield(path, fp) {
				return
			}
		}
	}
}

// Paths returns all tracked paths in sorted order.
func (x *Index) Paths() []string {
	return slices.Sorted(maps.Keys(x.entries))
}

// Entries returns all entries sorted by path.
func (x *Index) Entries() []Entry {
	paths := x.Paths()
	out := make([]Entry, len(paths))
	for i, p := range paths {
		out[i] = Entry{Path: p, Fingerprint: x.entries[p]}
	}
	return out
}

// Extend inserts or overwrites entries. When a batch names the same path more
// than once the last occurrence wins.
func (x *Index) Extend(entries []Entry) {
	for _, e := range entries {
		x.entries[e.Path] = e.Fingerprint
	}
}

// Retain removes every entry whose path fails keep.
func (x *Index) Retain(keep func(path string) bool) {
	maps.DeleteFunc(x.entries, func(path string, _ fingerprint.Fingerprint) bool {
		return !keep(path)
	})
}
