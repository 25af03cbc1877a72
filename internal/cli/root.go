package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"

	"github.com/aryankumar/bandmean/internal/config"
	"github.com/aryankumar/bandmean/internal/engine"
	"github.com/aryankumar/bandmean/internal/output"
	"github.com/aryankumar/bandmean/internal/raster"
	"github.com/aryankumar/bandmean/internal/util"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries the state shared by the root command and its subcommands
type app struct {
	cfgFile string
	viper   *viper.Viper
	fs      afero.Fs
	cfg     *config.Config
	logger  *slog.Logger
}

// Execute runs the root command with the provided context
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

// newRootCmd creates the root command
func newRootCmd() *cobra.Command {
	a := &app{
		viper: viper.New(),
		fs:    afero.NewOsFs(),
	}

	rootCmd := &cobra.Command{
		Use:   "bandmean [flags] <directory>",
		Short: "bandmean - per-band means of raster files",
		Long: `bandmean computes the mean of the valid samples of every band of every
raster file in a directory. Bands are spread over a group of workers and
combined with one of several collective strategies.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBandMean(cmd, args)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.bandmean.yaml)")
	flags.IntP("workers", "w", runtime.NumCPU(), "number of workers in the group")
	flags.StringP("strategy", "s", engine.DefaultStrategy,
		fmt.Sprintf("aggregation strategy (%s)", strings.Join(engine.Strategies(), ", ")))
	flags.Float64("sentinel", 0, "sample value treated as no-data")
	flags.Bool("no-sentinel", false, "count every sample except NaN")
	flags.StringSlice("extensions", raster.DefaultExtensions, "file extensions to scan for")
	flags.Int("band-parallel", 1, "bands reduced concurrently inside one worker")
	flags.StringP("output", "o", "text", "output format (text, table, json, yaml)")
	flags.Bool("no-headers", false, "omit header rows in table output")
	flags.Bool("means", false, "include per-band means in the report")
	flags.BoolP("verbose", "v", false, "verbose output with debug logging")
	flags.Bool("no-color", false, "disable colored output")
	flags.Duration("timeout", 0, "timeout for the whole run (0 means none)")

	for _, name := range []string{
		"workers", "strategy", "sentinel", "no-sentinel", "extensions",
		"band-parallel", "output", "no-headers", "means", "verbose", "no-color", "timeout",
	} {
		a.viper.BindPFlag(name, flags.Lookup(name))
	}

	// Add subcommands
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())
	rootCmd.AddCommand(newInspectCmd(a))

	return rootCmd
}

// initConfig loads configuration and sets up logging
func (a *app) initConfig(cmd *cobra.Command) error {
	cfg, err := config.NewManager(a.cfgFile, a.viper).Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = setupLogging(cmd.ErrOrStderr(), cfg)

	if cfg.Verbose && a.viper.ConfigFileUsed() != "" {
		a.logger.Debug("loaded configuration", "file", a.viper.ConfigFileUsed())
	}
	return nil
}

// runBandMean processes the directory given as the only argument
func (a *app) runBandMean(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		fmt.Fprint(cmd.ErrOrStderr(), cmd.UsageString())
		return fmt.Errorf("%w: expected exactly one directory, got %d arguments", util.ErrUsage, len(args))
	}

	ctx := cmd.Context()
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	eng, err := engine.New(engine.Options{
		Strategy:     a.cfg.Strategy,
		Workers:      a.cfg.Workers,
		BandParallel: a.cfg.BandParallel,
		Valid:        a.cfg.Validity(),
		Decoder:      raster.NewTIFFDecoder(a.fs),
		Scanner:      raster.NewScanner(a.fs, a.cfg.Extensions),
		Logger:       a.logger,
	})
	if err != nil {
		return err
	}

	report, err := eng.Run(ctx, args[0])
	switch {
	case err == nil:
	case util.IsUsageError(err):
		fmt.Fprint(cmd.ErrOrStderr(), cmd.UsageString())
		return err
	case util.IsFatalGroupError(err):
		a.logger.Error("worker group terminated",
			"strategy", eng.Strategy().Name(),
			"workers", eng.Workers(),
			"error", err)
		return err
	default:
		return err
	}

	return a.formatter().FormatReport(cmd.OutOrStdout(), report)
}

func (a *app) formatter() output.Formatter {
	return output.NewFormatter(
		output.Format(a.cfg.Output),
		output.WithNoColor(a.cfg.NoColor),
		output.WithNoHeaders(a.cfg.NoHeaders),
		output.WithMeans(a.cfg.Means),
	)
}

// setupLogging configures structured logging with slog
func setupLogging(w io.Writer, cfg *config.Config) *slog.Logger {
	// Set log level based on verbose flag
	logLevel := slog.LevelInfo
	if cfg.Verbose {
		logLevel = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var handler slog.Handler
	if cfg.NoColor {
		// Use JSON handler for no-color mode
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	if cfg.Verbose {
		logger.Debug("verbose logging enabled", "workers", cfg.Workers, "strategy", cfg.Strategy)
	}
	return logger
}
