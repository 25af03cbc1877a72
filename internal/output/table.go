package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/aryankumar/bandmean/internal/engine"
	"github.com/olekukonko/tablewriter"
)

// TableFormatter formats output as aligned tables
type TableFormatter struct {
	options *Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(opts *Options) *TableFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &TableFormatter{
		options: opts,
	}
}

// FormatReport outputs a key/value summary, then one row per processed or
// skipped file. Band means are listed when Means is set.
func (f *TableFormatter) FormatReport(w io.Writer, r *engine.Report) error {
	colors := NewColorScheme(w, f.options.NoColor)

	summary := f.createTable(w)
	f.setHeader(summary, colors, "FIELD", "VALUE")
	summary.AppendBulk([][]string{
		{"Strategy", r.Strategy},
		{"Method", r.Method},
		{"Workers", strconv.Itoa(r.Workers)},
		{"Processed", strconv.Itoa(r.Processed)},
		{"Skipped", strconv.Itoa(len(r.Skipped))},
		{"Elapsed", colors.Duration("%.6fs", r.ElapsedSeconds())},
	})
	summary.Render()

	if len(r.Files) == 0 && len(r.Skipped) == 0 {
		return nil
	}

	fmt.Fprintln(w, "")
	files := f.createTable(w)
	f.setHeader(files, colors, "FILE", "STATUS", "BANDS", "DURATION")
	for _, res := range r.Files {
		files.Append([]string{
			colors.Path("%s", res.Path),
			colors.StatusColor(false)("Processed"),
			strconv.Itoa(res.Bands),
			colors.Duration("%s", res.Duration.String()),
		})
	}
	for _, s := range r.Skipped {
		files.Append([]string{
			colors.Path("%s", s.Path),
			colors.StatusColor(true)("Skipped"),
			"-",
			s.Reason,
		})
	}
	files.Render()

	if f.options.Means {
		for i := range r.Files {
			fmt.Fprintln(w, "")
			if err := f.FormatFile(w, &r.Files[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// FormatFile outputs one row per band
func (f *TableFormatter) FormatFile(w io.Writer, res *engine.FileResult) error {
	colors := NewColorScheme(w, f.options.NoColor)

	fmt.Fprintln(w, colors.Path("%s", res.Path))
	table := f.createTable(w)
	f.setHeader(table, colors, "BAND", "MEAN", "VALID")
	for _, m := range res.Means {
		table.Append([]string{
			strconv.Itoa(m.Band + 1),
			strconv.FormatFloat(m.Mean, 'g', -1, 64),
			strconv.FormatInt(m.Count, 10),
		})
	}
	table.Render()
	return nil
}

func (f *TableFormatter) setHeader(table *tablewriter.Table, colors *ColorScheme, headers ...string) {
	if f.options.NoHeaders {
		return
	}
	if colors.Disabled {
		table.SetHeader(headers)
		return
	}
	colored := make([]string, len(headers))
	for i, h := range headers {
		colored[i] = colors.Header("%s", h)
	}
	table.SetHeader(colored)
}

// createTable creates a borderless, tab-padded table
func (f *TableFormatter) createTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	return table
}
