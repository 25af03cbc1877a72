package output

import (
	"fmt"
	"io"

	"github.com/aryankumar/bandmean/internal/engine"
)

// TextFormatter prints the run summary as plain lines
type TextFormatter struct {
	options *Options
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(opts *Options) *TextFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &TextFormatter{
		options: opts,
	}
}

// FormatReport prints strategy, worker count, processed files and elapsed time
func (f *TextFormatter) FormatReport(w io.Writer, r *engine.Report) error {
	colors := NewColorScheme(w, f.options.NoColor)

	if f.options.Means {
		for i := range r.Files {
			if err := f.FormatFile(w, &r.Files[i]); err != nil {
				return err
			}
		}
	}

	fmt.Fprintf(w, "Method: %s (%s)\n", r.Method, r.Strategy)
	fmt.Fprintf(w, "Number of workers used: %d\n", r.Workers)
	fmt.Fprintf(w, "Number of processed files: %s\n", colors.Success("%d", r.Processed))
	if len(r.Skipped) > 0 {
		fmt.Fprintf(w, "Number of skipped files: %s\n", colors.Warning("%d", len(r.Skipped)))
		for _, s := range r.Skipped {
			fmt.Fprintf(w, "  %s: %s\n", colors.Path("%s", s.Path), s.Reason)
		}
	}
	_, err := fmt.Fprintf(w, "Total execution time: %s seconds\n", colors.Duration("%g", r.ElapsedSeconds()))
	return err
}

// FormatFile prints one line per band
func (f *TextFormatter) FormatFile(w io.Writer, res *engine.FileResult) error {
	colors := NewColorScheme(w, f.options.NoColor)

	fmt.Fprintf(w, "%s\n", colors.Path("%s", res.Path))
	for _, m := range res.Means {
		if _, err := fmt.Fprintf(w, "  Mean of band %d: %g\n", m.Band+1, m.Mean); err != nil {
			return err
		}
	}
	return nil
}
