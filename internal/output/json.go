package output

import (
	"encoding/json"
	"io"

	"github.com/aryankumar/bandmean/internal/engine"
)

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	options *Options
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(opts *Options) *JSONFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &JSONFormatter{
		options: opts,
	}
}

// FormatReport outputs the run report as JSON
func (f *JSONFormatter) FormatReport(w io.Writer, r *engine.Report) error {
	return f.encode(w, newReportView(r, f.options.Means))
}

// FormatFile outputs a single file's band means as JSON
func (f *JSONFormatter) FormatFile(w io.Writer, res *engine.FileResult) error {
	return f.encode(w, res)
}

func (f *JSONFormatter) encode(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
