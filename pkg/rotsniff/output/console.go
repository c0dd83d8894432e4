package output

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/rotsniff/pkg/rotsniff/reconcile"
)

// Notice tags.
const (
	TagRemoved   = "REMOVED"
	TagUpdated   = "UPDATED"
	TagModified  = "MODIFIED"
	TagMissing   = "FILE NOT FOUND"
	TagUntracked = "NOT FOUND IN DB"
	TagMatch     = "MATCH"
)

// Console prints one line per reconcile event as it happens. Hashed and
// Matched events are printed only in verbose mode. It is safe for
// concurrent use. Styling is dropped when w is not a terminal.
type Console struct {
	mu       sync.Mutex
	w        io.Writer
	renderer *lipgloss.Renderer
	verbose  bool
	count    int
}

// NewConsole returns a Console writing to w.
func NewConsole(w io.Writer, verbose bool) *Console {
	return &Console{w: w, renderer: lipgloss.NewRenderer(w), verbose: verbose}
}

// Notify implements reconcile.Notifier.
func (c *Console) Notify(e reconcile.Event) {
	line, ok := c.line(e)
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	_, _ = fmt.Fprintln(c.w, line)
}

// Printed returns the number of lines written.
func (c *Console) Printed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func (c *Console) line(e reconcile.Event) (string, bool) {
	var tag string
	switch e.Kind {
	case reconcile.Hashed:
		if !c.verbose {
			return "", false
		}
		return c.render(PathStyle, e.Path) + ": " + c.render(MutedStyle, e.Fingerprint.String()), true
	case reconcile.Matched:
		if !c.verbose {
			return "", false
		}
		tag = TagMatch
	case reconcile.Removed:
		tag = TagRemoved
	case reconcile.Updated:
		tag = TagUpdated
	case reconcile.ModifiedFile:
		tag = TagModified
	case reconcile.MissingFile:
		tag = TagMissing
	case reconcile.UntrackedFile:
		tag = TagUntracked
	default:
		return "", false
	}
	return c.render(outcomeStyle(tag), tag+":") + " " + c.render(PathStyle, e.Path), true
}

func (c *Console) render(style lipgloss.Style, s string) string {
	return style.Renderer(c.renderer).Render(s)
}

var _ reconcile.Notifier = (*Console)(nil)
