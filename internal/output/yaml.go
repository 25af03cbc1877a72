package output

import (
	"io"

	"github.com/aryankumar/bandmean/internal/engine"
	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats output as YAML
type YAMLFormatter struct {
	options *Options
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(opts *Options) *YAMLFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &YAMLFormatter{
		options: opts,
	}
}

// FormatReport outputs the run report as YAML
func (f *YAMLFormatter) FormatReport(w io.Writer, r *engine.Report) error {
	return f.encode(w, newReportView(r, f.options.Means))
}

// FormatFile outputs a single file's band means as YAML
func (f *YAMLFormatter) FormatFile(w io.Writer, res *engine.FileResult) error {
	return f.encode(w, res)
}

func (f *YAMLFormatter) encode(w io.Writer, data interface{}) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	return encoder.Encode(data)
}
