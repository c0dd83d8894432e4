package output

import (
	"encoding/json"
	"io"
)

// jsonResult adds a string duration to Result.
type jsonResult struct {
	*Result
	Duration string `json:"duration"`
}

// JSONFormatter writes r as one indented JSON document.
type JSONFormatter struct{}

// Format writes r to w.
func (f *JSONFormatter) Format(w io.Writer, r *Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonResult{Result: r, Duration: r.Duration.String()})
}

// Structured implements Structured.
func (f *JSONFormatter) Structured() bool { return true }

// JSONLFormatter writes one compact JSON object per diff, or per changed
// path when there are no diffs, for line-oriented tools.
type JSONLFormatter struct{}

type jsonLine struct {
	Operation string `json:"operation"`
	Path      string `json:"path"`
	Outcome   string `json:"outcome"`
	Expected  string `json:"expected,omitempty"`
	Actual    string `json:"actual,omitempty"`
}

// Format writes r to w.
func (f *JSONLFormatter) Format(w io.Writer, r *Result) error {
	enc := json.NewEncoder(w)
	for _, d := range r.Diffs {
		if err := enc.Encode(jsonLine{r.Operation, d.Path, d.Outcome, d.Expected, d.Actual}); err != nil {
			return err
		}
	}
	for _, p := range r.Changed {
		if err := enc.Encode(jsonLine{Operation: r.Operation, Path: p, Outcome: changedOutcome(r.Operation)}); err != nil {
			return err
		}
	}
	return nil
}

// Structured implements Structured.
func (f *JSONLFormatter) Structured() bool { return true }

func changedOutcome(op string) string {
	switch op {
	case "append":
		return "added"
	case "remove":
		return "removed"
	case "update":
		return "updated"
	}
	return op
}

func init() {
	Register("json", func() Formatter { return &JSONFormatter{} })
	Register("jsonl", func() Formatter { return &JSONLFormatter{} })
}

var (
	_ Formatter = (*JSONFormatter)(nil)
	_ Formatter = (*JSONLFormatter)(nil)
)
