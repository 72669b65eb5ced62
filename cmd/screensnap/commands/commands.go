package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/experimental/errmon"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/screensnap/pkg/capturetarget"
	"github.com/xaionaro-go/screensnap/pkg/config"
)

var (
	// Access these variables only from a main package:

	Root = &cobra.Command{
		Use:               "screensnap",
		Short:             "take a single screenshot of a display or a window",
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: persistentPreRun,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			logger.Debug(ctx, "end")
		},
		RunE: capture,
	}

	ListDisplays = &cobra.Command{
		Use:   "list-displays",
		Short: "print the displays that can be selected with --display",
		Args:  cobra.NoArgs,
		RunE:  listDisplays,
	}

	ListWindows = &cobra.Command{
		Use:   "list-windows [title-substring]",
		Short: "print the windows (optionally only the ones matching the title substring)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listWindows,
	}

	GenerateConfig = &cobra.Command{
		Use:   "generate-config",
		Short: "write the default config to the config path",
		Args:  cobra.NoArgs,
		RunE:  generateConfig,
	}

	Version = &cobra.Command{
		Use:   "version",
		Short: "print the build information",
		Args:  cobra.NoArgs,
		RunE:  version,
	}

	LoggerLevel = logger.LevelWarning

	// Config is the effective configuration: the defaults, overridden by
	// the config file, overridden by the explicitly set flags.
	Config = config.DefaultConfig()
)

const (
	flagConfigPath    = "config-path"
	flagLogLevel      = "log-level"
	flagLogFile       = "log-file"
	flagSentryDSN     = "sentry-dsn"
	flagMetricsFile   = "metrics-textfile"
	flagCaseSensitive = "case-sensitive"
	flagWindow        = "window"
	flagDisplay       = "display"
	flagPrimary       = "primary"
	flagOutput        = "output"
	flagTimeout       = "timeout"
	flagFrameInterval = "frame-interval"
	flagMaxWidth      = "max-width"
	flagMaxHeight     = "max-height"
)

func init() {
	defaults := config.DefaultConfig()

	persistent := Root.PersistentFlags()
	persistent.Var(&LoggerLevel, flagLogLevel, "logging level")
	persistent.String(flagConfigPath, config.DefaultConfigPath, "the path to the config file")
	persistent.String(flagLogFile, "", "also write the logs to this file")
	persistent.String(flagSentryDSN, "", "report errors to the Sentry at this DSN")
	persistent.String(flagMetricsFile, "", "write the metrics of the run to this file (in the Prometheus text format)")
	persistent.Bool(flagCaseSensitive, defaults.WindowTitleCaseSensitive, "match window titles case-sensitively")

	flags := Root.Flags()
	flags.StringP(flagWindow, "w", "", "capture the window whose title contains this substring")
	flags.IntP(flagDisplay, "d", 0, "capture the display with this number (starting from 1, see 'list-displays')")
	flags.BoolP(flagPrimary, "p", false, "capture the primary display (the default)")
	flags.StringP(flagOutput, "o", defaults.OutputPath, "the output file; the format is chosen by the extension (png, jpg, bmp, tiff, webp)")
	flags.Duration(flagTimeout, time.Duration(defaults.CaptureTimeout), "give up if no frame arrives within this time; 0 means wait forever")
	flags.Duration(flagFrameInterval, time.Duration(defaults.FrameInterval), "the interval between grabs of the frame source")
	flags.Int(flagMaxWidth, 0, "downscale the picture to fit this width (0 means no limit)")
	flags.Int(flagMaxHeight, 0, "downscale the picture to fit this height (0 means no limit)")
	Root.MarkFlagsMutuallyExclusive(flagWindow, flagDisplay, flagPrimary)

	Root.AddCommand(ListDisplays)
	Root.AddCommand(ListWindows)
	Root.AddCommand(GenerateConfig)
	Root.AddCommand(Version)
}

// Execute runs the command line. The observability tools are flushed
// before it returns.
func Execute(ctx context.Context) error {
	cmd, err := Root.ExecuteContextC(ctx)
	if cmd != nil && cmd.Context() != nil {
		ctx = cmd.Context()
	}
	if err != nil {
		logger.Debugf(ctx, "the command failed: %v", err)
		if shouldReport(err) {
			errmon.ObserveErrorCtx(ctx, err)
		}
	}
	belt.Flush(ctx)
	return err
}

// shouldReport tells if the error is worth sending to the error monitor;
// wrong target selections are the user's input, not failures.
func shouldReport(err error) bool {
	return err != nil && !errors.Is(err, capturetarget.ErrTargetResolution{})
}

func persistentPreRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	flags := cmd.Flags()

	cfgPath, err := flags.GetString(flagConfigPath)
	if err != nil {
		return err
	}
	cfg := config.DefaultConfig()
	if cmd != GenerateConfig {
		if err := config.ReadConfigFromPath(ctx, cfgPath, &cfg); err != nil {
			return err
		}
	}
	if err := applyFlags(flags, &cfg); err != nil {
		return err
	}
	Config = cfg

	ctx = initContext(ctx, cfg)
	cmd.SetContext(ctx)
	logger.Debugf(ctx, "log-level: %v", logger.Level(cfg.LoggerLevel))
	return nil
}

// applyFlags overrides the config values by the flags that are set
// explicitly.
func applyFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	var err error
	getString := func(name string, dst *string) {
		if err == nil && flags.Changed(name) {
			*dst, err = flags.GetString(name)
		}
	}
	getInt := func(name string, dst *int) {
		if err == nil && flags.Changed(name) {
			*dst, err = flags.GetInt(name)
		}
	}
	getDuration := func(name string, dst *config.Duration) {
		if err == nil && flags.Changed(name) {
			var d time.Duration
			d, err = flags.GetDuration(name)
			*dst = config.Duration(d)
		}
	}

	if flags.Changed(flagLogLevel) {
		cfg.LoggerLevel = config.LoggerLevel(LoggerLevel)
	}
	getString(flagLogFile, &cfg.LogFile)
	getString(flagSentryDSN, &cfg.SentryDSN)
	getString(flagMetricsFile, &cfg.MetricsTextfile)
	if err == nil && flags.Changed(flagCaseSensitive) {
		cfg.WindowTitleCaseSensitive, err = flags.GetBool(flagCaseSensitive)
	}
	if flags.Lookup(flagOutput) != nil {
		getString(flagOutput, &cfg.OutputPath)
		getDuration(flagTimeout, &cfg.CaptureTimeout)
		getDuration(flagFrameInterval, &cfg.FrameInterval)
		getInt(flagMaxWidth, &cfg.MaxWidth)
		getInt(flagMaxHeight, &cfg.MaxHeight)
	}
	if err != nil {
		return fmt.Errorf("unable to read the flags: %w", err)
	}
	if cfg.CaptureTimeout < 0 {
		return fmt.Errorf("the timeout cannot be negative: %s", cfg.CaptureTimeout)
	}
	return nil
}
