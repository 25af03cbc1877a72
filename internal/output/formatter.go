package output

import (
	"io"

	"github.com/aryankumar/bandmean/internal/engine"
)

// Format represents the output format type
type Format string

const (
	// FormatText prints the plain run summary
	FormatText Format = "text"
	// FormatTable outputs data in a table format
	FormatTable Format = "table"
	// FormatJSON outputs data in JSON format
	FormatJSON Format = "json"
	// FormatYAML outputs data in YAML format
	FormatYAML Format = "yaml"
)

// Formatter defines the interface for output formatting
type Formatter interface {
	// FormatReport outputs the coordinator's run report
	FormatReport(w io.Writer, r *engine.Report) error

	// FormatFile outputs the band means of a single file
	FormatFile(w io.Writer, f *engine.FileResult) error
}

// Option is a functional option for configuring formatters
type Option func(*Options)

// Options holds configuration for formatters
type Options struct {
	// NoColor disables color output
	NoColor bool

	// NoHeaders disables table headers
	NoHeaders bool

	// Means includes per-band means in run reports
	Means bool
}

// WithNoColor disables color output
func WithNoColor(noColor bool) Option {
	return func(o *Options) {
		o.NoColor = noColor
	}
}

// WithNoHeaders disables table headers
func WithNoHeaders(noHeaders bool) Option {
	return func(o *Options) {
		o.NoHeaders = noHeaders
	}
}

// WithMeans includes per-band means in run reports
func WithMeans(means bool) Option {
	return func(o *Options) {
		o.Means = means
	}
}

// NewFormatter creates a new formatter based on the specified format
func NewFormatter(format Format, opts ...Option) Formatter {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	switch format {
	case FormatJSON:
		return NewJSONFormatter(options)
	case FormatYAML:
		return NewYAMLFormatter(options)
	case FormatTable:
		return NewTableFormatter(options)
	case FormatText:
		fallthrough
	default:
		return NewTextFormatter(options)
	}
}

// reportView is the serialisable shape of a report for JSON and YAML
type reportView struct {
	RunID          string               `json:"runId" yaml:"runId"`
	Strategy       string               `json:"strategy" yaml:"strategy"`
	Method         string               `json:"method" yaml:"method"`
	Workers        int                  `json:"workers" yaml:"workers"`
	Directory      string               `json:"directory" yaml:"directory"`
	Processed      int                  `json:"processed" yaml:"processed"`
	ElapsedSeconds float64              `json:"elapsedSeconds" yaml:"elapsedSeconds"`
	Skipped        []engine.SkippedFile `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Files          []engine.FileResult  `json:"files,omitempty" yaml:"files,omitempty"`
}

func newReportView(r *engine.Report, means bool) reportView {
	v := reportView{
		RunID:          r.RunID,
		Strategy:       r.Strategy,
		Method:         r.Method,
		Workers:        r.Workers,
		Directory:      r.Directory,
		Processed:      r.Processed,
		ElapsedSeconds: r.ElapsedSeconds(),
		Skipped:        r.Skipped,
	}
	if means {
		v.Files = r.Files
	}
	return v
}
