package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// maxPrettyPaths caps the paths listed under the summary box.
const maxPrettyPaths = 50

// PrettyFormatter renders a boxed summary for terminals.
type PrettyFormatter struct{}

// Format writes r to w.
func (f *PrettyFormatter) Format(w io.Writer, r *Result) error {
	var sb strings.Builder

	sb.WriteString(SummaryBox.Render(f.summary(r)))
	sb.WriteString("\n")

	switch {
	case len(r.Diffs) > 0:
		sb.WriteString(f.diffs(r.Diffs))
	case len(r.Changed) > 0:
		sb.WriteString(f.changed(r))
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func (f *PrettyFormatter) summary(r *Result) string {
	title := TitleStyle.Render(r.Operation)
	if r.Root != "" {
		title += " " + ValueStyle.Render(r.Root)
	}

	lines := []string{
		title,
		field("Index:", fmt.Sprintf("%s (%s entries)", r.Index, humanize.Comma(int64(r.IndexSize)))),
		strings.Join([]string{
			field("Checked:", humanize.Comma(int64(r.Checked))),
			field("Hashed:", humanize.Comma(int64(r.Hashed))),
			field("Elapsed:", formatDuration(r.Duration)),
		}, "  "),
	}
	if r.Skipped > 0 {
		lines = append(lines, WarningStyle.Render(fmt.Sprintf("%d file(s) vanished while running", r.Skipped)))
	}
	lines = append(lines, f.status(r))
	return strings.Join(lines, "\n")
}

func (f *PrettyFormatter) status(r *Result) string {
	switch r.Status {
	case StatusFailed:
		return ErrorStyle.Render("Failed: " + r.Error)
	case StatusDiverged:
		return ErrorStyle.Render(fmt.Sprintf("Diverged: %d modified, %d missing, %d untracked",
			r.CountOutcome("modified"), r.CountOutcome("missing"), r.CountOutcome("untracked")))
	}

	switch r.Operation {
	case "verify":
		return SuccessStyle.Render(fmt.Sprintf("Intact: %s files match", humanize.Comma(int64(r.Matched))))
	case "append":
		return SuccessStyle.Render(fmt.Sprintf("Added %s", plural(len(r.Changed), "file")))
	case "remove":
		return SuccessStyle.Render(fmt.Sprintf("Removed %s", plural(len(r.Changed), "entry")))
	case "update":
		return SuccessStyle.Render(fmt.Sprintf("Updated %s", plural(len(r.Changed), "entry")))
	}
	return SuccessStyle.Render("Done")
}

func (f *PrettyFormatter) diffs(diffs []Diff) string {
	var sb strings.Builder
	width := len("untracked")
	for i, d := range diffs {
		if i == maxPrettyPaths {
			sb.WriteString(MutedStyle.Render(fmt.Sprintf("  ... and %d more\n", len(diffs)-i)))
			break
		}
		tag := fmt.Sprintf("%-*s", width, d.Outcome)
		fmt.Fprintf(&sb, "  %s  %s\n", outcomeStyle(d.Outcome).Render(tag), PathStyle.Render(d.Path))
	}
	return sb.String()
}

func (f *PrettyFormatter) changed(r *Result) string {
	var sb strings.Builder
	for i, p := range r.Changed {
		if i == maxPrettyPaths {
			sb.WriteString(MutedStyle.Render(fmt.Sprintf("  ... and %d more\n", len(r.Changed)-i)))
			break
		}
		fmt.Fprintf(&sb, "  %s\n", PathStyle.Render(p))
	}
	return sb.String()
}

func field(label, value string) string {
	return LabelStyle.Render(label) + " " + ValueStyle.Render(value)
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	if strings.HasSuffix(noun, "y") {
		noun = strings.TrimSuffix(noun, "y") + "ie"
	}
	return humanize.Comma(int64(n)) + " " + noun + "s"
}

// formatDuration renders d compactly: 850ms, 4.2s, 3m 5s, 2h 10m.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

func init() {
	Register("pretty", func() Formatter { return &PrettyFormatter{} })
}

var _ Formatter = (*PrettyFormatter)(nil)
