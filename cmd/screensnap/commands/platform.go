package commands

import (
	"context"
	"io"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/screensnap/pkg/capturetarget"
	"github.com/xaionaro-go/screensnap/pkg/config"
	"github.com/xaionaro-go/screensnap/pkg/gpu"
	"github.com/xaionaro-go/screensnap/pkg/screenshot"
	"github.com/xaionaro-go/screensnap/pkg/screenshoter"
	"github.com/xaionaro-go/screensnap/pkg/snapshotencoder"
	"github.com/xaionaro-go/screensnap/pkg/windowmanagerhandler"
)

func deviceOptions(cfg config.Config) []gpu.Option {
	var opts []gpu.Option
	if cfg.Device.RowPitchAlignment != 0 {
		opts = append(opts, gpu.OptionRowPitchAlignment(cfg.Device.RowPitchAlignment))
	}
	if cfg.Device.MemoryBudget != 0 {
		opts = append(opts, gpu.OptionMemoryBudget(cfg.Device.MemoryBudget))
	}
	return opts
}

// newResolver returns the resolver of the current platform. Windows
// are not resolvable if the window manager is not accessible; the
// returned handler is nil in this case.
func newResolver(
	ctx context.Context,
	cfg config.Config,
) (*capturetarget.Resolver, *windowmanagerhandler.WindowManagerHandler) {
	resolver := &capturetarget.Resolver{
		Displays:      screenshot.Implementation{},
		CaseSensitive: cfg.WindowTitleCaseSensitive,
	}
	wmh, err := windowmanagerhandler.New(ctx)
	if err != nil {
		logger.Warnf(ctx, "windows cannot be captured: %v", err)
		return resolver, nil
	}
	resolver.Windows = wmh
	return resolver, wmh
}

// capturerFactory is replaced in tests.
var capturerFactory = newCapturer

func newCapturer(
	ctx context.Context,
	cfg config.Config,
	in io.Reader,
	out io.Writer,
) *Capturer {
	resolver, wmh := newResolver(ctx, cfg)

	var windowEngine screenshoter.ScreenshotEngine
	var closeFuncs []func() error
	if wmh != nil {
		windowEngine = wmh
		closeFuncs = append(closeFuncs, wmh.Close)
	}

	devOpts := deviceOptions(cfg)
	return &Capturer{
		Resolver: resolver,
		Source:   screenshoter.New(windowEngine),
		NewDevice: func(ctx context.Context) (*gpu.Device, error) {
			return gpu.New(ctx, devOpts...)
		},
		Encoder: snapshotencoder.Encoder{
			MaxWidth:    cfg.MaxWidth,
			MaxHeight:   cfg.MaxHeight,
			JPEGQuality: cfg.JPEGQuality,
			WebPQuality: cfg.WebPQuality,
		},
		Timeout:       time.Duration(cfg.CaptureTimeout),
		FrameInterval: time.Duration(cfg.FrameInterval),
		Prompt:        NewPrompt(in, out),
		Metrics:       NewMetrics(),
		closeFuncs:    closeFuncs,
	}
}
