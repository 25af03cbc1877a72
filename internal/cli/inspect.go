package cli

import (
	"github.com/aryankumar/bandmean/internal/engine"
	"github.com/aryankumar/bandmean/internal/raster"
	"github.com/spf13/cobra"
)

// newInspectCmd creates the single-file command
func newInspectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the band means of one raster file",
		Long: `Decode a single raster file on one worker and print the mean of the
valid samples of each band. The validity flags of the root command apply.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := engine.Inspect(raster.NewTIFFDecoder(a.fs), args[0], a.cfg.Validity())
			if err != nil {
				return err
			}

			a.logger.Debug("file inspected", "path", res.Path, "bands", res.Bands, "duration", res.Duration)
			return a.formatter().FormatFile(cmd.OutOrStdout(), res)
		},
	}

	return cmd
}
