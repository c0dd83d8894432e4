package output

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// PlainFormatter writes an unstyled key/value summary followed by one
// tab-separated line per diff or changed path.
type PlainFormatter struct{}

// Format writes r to w.
func (f *PlainFormatter) Format(w io.Writer, r *Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	rows := [][2]string{
		{"operation", r.Operation},
		{"root", r.Root},
		{"index", r.Index},
		{"status", r.Status},
		{"checked", fmt.Sprint(r.Checked)},
		{"hashed", fmt.Sprint(r.Hashed)},
		{"matched", fmt.Sprint(r.Matched)},
		{"skipped", fmt.Sprint(r.Skipped)},
		{"entries", fmt.Sprint(r.IndexSize)},
		{"duration", r.Duration.String()},
	}
	if r.Error != "" {
		rows = append(rows, [2]string{"error", r.Error})
	}
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		if _, err := fmt.Fprintf(tw, "%s:\t%s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, d := range r.Diffs {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", d.Outcome, d.Path); err != nil {
			return err
		}
	}
	for _, p := range r.Changed {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", r.Operation, p); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	Register("plain", func() Formatter { return &PlainFormatter{} })
}

var _ Formatter = (*PlainFormatter)(nil)
