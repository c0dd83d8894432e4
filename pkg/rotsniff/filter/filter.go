// Package filter compiles the path predicate applied to filesystem walks:
// an optional regular expression over the full path (optionally negated)
// plus glob exclusions that prune whole directories.
package filter

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/gobwas/glob"
)

// ErrInvalidPattern indicates a filter pattern failed to compile.
var ErrInvalidPattern = errors.New("invalid filter pattern")

// Matcher decides which walked paths are candidates.
// The zero value and a nil *Matcher accept everything.
type Matcher struct {
	// Pattern is matched against the full path of each file. Nil matches all.
	Pattern *regexp.Regexp

	// Negate inverts the Pattern match.
	Negate bool

	// Exclude holds compiled glob patterns. A file or directory matching any
	// of them is skipped.
	Exclude []glob.Glob

	excludeSrc []string
}

// Option configures a Matcher.
type Option func(*Matcher) error

// WithPattern sets the path regular expression.
// An empty pattern leaves the matcher unrestricted.
func WithPattern(pattern string) Option {
	return func(m *Matcher) error {
		if pattern == "" {
			return nil
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("%w %q: %w", ErrInvalidPattern, pattern, err)
		}
		m.Pattern = re
		return nil
	}
}

// WithNegate inverts the regular expression match.
func WithNegate(negate bool) Option {
	return func(m *Matcher) error {
		m.Negate = negate
		return nil
	}
}

// WithExclude adds glob exclusions. Patterns use '/' as the separator so
// "*" does not cross directories while "**" does.
func WithExclude(patterns ...string) Option {
	return func(m *Matcher) error {
		for _, p := range patterns {
			if p == "" {
				continue
			}
			g, err := glob.Compile(p, '/')
			if err != nil {
				return fmt.Errorf("%w %q: %w", ErrInvalidPattern, p, err)
			}
			m.Exclude = append(m.Exclude, g)
			m.excludeSrc = append(m.excludeSrc, p)
		}
		return nil
	}
}

// New compiles a Matcher. Any invalid pattern is an error wrapping
// ErrInvalidPattern.
func New(opts ...Option) (*Matcher, error) {
	m := &Matcher{}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Compile is shorthand for New(WithPattern(pattern), WithNegate(negate), WithExclude(exclude...)).
func Compile(pattern string, negate bool, exclude ...string) (*Matcher, error) {
	return New(WithPattern(pattern), WithNegate(negate), WithExclude(exclude...))
}

// Match reports whether the file at path is a candidate.
func (m *Matcher) Match(path string) bool {
	if m == nil {
		return true
	}
	if m.excluded(path) {
		return false
	}
	if m.Pattern == nil {
		return true
	}
	return m.Pattern.MatchString(path) != m.Negate
}

// Prune reports whether the directory at path should not be descended into.
// Only exclusions prune; the regular expression applies to files.
func (m *Matcher) Prune(dir string) bool {
	if m == nil {
		return false
	}
	return m.excluded(dir)
}

// String describes the matcher for logs.
func (m *Matcher) String() string {
	if m == nil {
		return "all"
	}
	s := "all"
	if m.Pattern != nil {
		s = "regex=" + m.Pattern.String()
		if m.Negate {
			s = "!" + s
		}
	}
	if len(m.excludeSrc) > 0 {
		s += fmt.Sprintf(" exclude=%v", m.excludeSrc)
	}
	return s
}

// excluded checks the exclusion globs against the full path and the base name.
func (m *Matcher) excluded(path string) bool {
	if len(m.Exclude) == 0 {
		return false
	}
	slashed := filepath.ToSlash(path)
	base := filepath.Base(path)
	for _, g := range m.Exclude {
		if g.Match(slashed) || g.Match(base) {
			return true
		}
	}
	return false
}
