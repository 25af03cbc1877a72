// Package output renders run reports and single-file results.
//
// Four formats are supported: a plain text summary (the default), borderless
// kubectl-style tables, indented JSON and YAML. Colors are applied only when
// writing to a TTY and can be switched off with WithNoColor.
//
//	f := output.NewFormatter(output.FormatTable, output.WithMeans(true))
//	if err := f.FormatReport(os.Stdout, report); err != nil {
//		return err
//	}
//
// JSON and YAML reports carry the elapsed time as elapsedSeconds and list
// per-file band means only when WithMeans is set.
package output
