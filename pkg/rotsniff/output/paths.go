package output

import (
	"fmt"
	"io"
)

// PathsFormatter writes one path per line: every diff path, or every
// changed path when there are no diffs.
type PathsFormatter struct{}

// Format writes r to w.
func (f *PathsFormatter) Format(w io.Writer, r *Result) error {
	for _, d := range r.Diffs {
		if _, err := fmt.Fprintln(w, d.Path); err != nil {
			return err
		}
	}
	for _, p := range r.Changed {
		if _, err := fmt.Fprintln(w, p); err != nil {
			return err
		}
	}
	return nil
}

// Structured implements Structured.
func (f *PathsFormatter) Structured() bool { return true }

func init() {
	Register("paths", func() Formatter { return &PathsFormatter{} })
}

var _ Formatter = (*PathsFormatter)(nil)
