package output

import (
	"io"

	"gopkg.in/yaml.v3"
)

type yamlResult struct {
	Result   `yaml:",inline"`
	Duration string `yaml:"duration"`
}

// YAMLFormatter writes the same document as JSONFormatter, as YAML.
type YAMLFormatter struct{}

// Format writes r to w.
func (f *YAMLFormatter) Format(w io.Writer, r *Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(yamlResult{Result: *r, Duration: r.Duration.String()}); err != nil {
		return err
	}
	return enc.Close()
}

// Structured implements Structured.
func (f *YAMLFormatter) Structured() bool { return true }

func init() {
	Register("yaml", func() Formatter { return &YAMLFormatter{} })
}

var _ Formatter = (*YAMLFormatter)(nil)
