package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"github.com/xaionaro-go/screensnap/pkg/capturetarget"
	"github.com/xaionaro-go/screensnap/pkg/framepool"
	"github.com/xaionaro-go/screensnap/pkg/gpu"
	"github.com/xaionaro-go/screensnap/pkg/snapshot"
	"github.com/xaionaro-go/screensnap/pkg/snapshotencoder"
)

// Capturer resolves a target, takes a single frame of it and saves
// the frame to a file.
type Capturer struct {
	Resolver  *capturetarget.Resolver
	Source    framepool.FrameSource
	NewDevice func(ctx context.Context) (*gpu.Device, error)
	Encoder   snapshotencoder.Encoder

	Timeout       time.Duration
	FrameInterval time.Duration

	// Prompt resolves ambiguous window queries; if nil, an ambiguous
	// query is an error.
	Prompt *Prompt

	Metrics *Metrics

	closeFuncs []func() error
}

// Capture writes a picture of the selected target to outputPath.
//
// The target is resolved before any graphics resource is allocated,
// so a bad selection never reaches the device.
func (c *Capturer) Capture(
	ctx context.Context,
	sel capturetarget.Selection,
	outputPath string,
) (_ret snapshotencoder.SaveResult, _err error) {
	logger.Debugf(ctx, "Capture(ctx, %s, '%s')", sel, outputPath)
	defer func() { logger.Debugf(ctx, "/Capture(ctx, %s, '%s'): %#+v %v", sel, outputPath, _ret, _err) }()

	startedAt := time.Now()
	defer func() {
		c.Metrics.Observe(_ret, _err, time.Since(startedAt))
	}()

	target, err := c.resolve(ctx, sel)
	if err != nil {
		return snapshotencoder.SaveResult{}, err
	}
	logger.Infof(ctx, "capturing %s", target)

	device, err := c.NewDevice(ctx)
	if err != nil {
		return snapshotencoder.SaveResult{}, fmt.Errorf("unable to create a graphics device: %w", err)
	}

	snapshotter := snapshot.New(c.Source)
	snapshotter.Timeout = c.Timeout
	snapshotter.FrameInterval = c.FrameInterval
	surface, err := snapshotter.Take(ctx, device, target)
	if err != nil {
		return snapshotencoder.SaveResult{}, fmt.Errorf("unable to capture %s: %w", target, err)
	}
	defer func() {
		if err := surface.Release(ctx); err != nil {
			logger.Errorf(ctx, "unable to release %s: %v", surface, err)
		}
	}()

	return c.Encoder.Save(ctx, device, surface, outputPath)
}

func (c *Capturer) resolve(
	ctx context.Context,
	sel capturetarget.Selection,
) (capturetarget.Target, error) {
	target, err := c.Resolver.Resolve(ctx, sel)
	var ambiguous capturetarget.ErrAmbiguousWindow
	if err == nil || c.Prompt == nil || !errors.As(err, &ambiguous) {
		return target, err
	}
	return c.Prompt.ChooseWindow(ctx, ambiguous.Query, ambiguous.Candidates)
}

// Close releases the platform handles the Capturer was built with.
func (c *Capturer) Close() error {
	var result error
	for _, fn := range c.closeFuncs {
		if err := fn(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	c.closeFuncs = nil
	return result
}

func selectionFromFlags(cmd *cobra.Command) (capturetarget.Selection, error) {
	flags := cmd.Flags()
	var (
		sel capturetarget.Selection
		err error
	)
	if sel.WindowQuery, err = flags.GetString(flagWindow); err != nil {
		return sel, err
	}
	if sel.DisplayIndex, err = flags.GetInt(flagDisplay); err != nil {
		return sel, err
	}
	sel.DisplaySet = flags.Changed(flagDisplay)
	if sel.Primary, err = flags.GetBool(flagPrimary); err != nil {
		return sel, err
	}
	if flags.Changed(flagWindow) && sel.WindowQuery == "" {
		return sel, capturetarget.ErrInvalidSelection{Reason: "the window title query is empty"}
	}
	return sel, nil
}

func capture(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sel, err := selectionFromFlags(cmd)
	if err != nil {
		return err
	}

	capturer := capturerFactory(ctx, Config, cmd.InOrStdin(), cmd.ErrOrStderr())
	defer func() {
		if err := capturer.Close(); err != nil {
			logger.Errorf(ctx, "unable to close the capturer: %v", err)
		}
	}()

	res, err := capturer.Capture(ctx, sel, Config.OutputPath)
	if Config.MetricsTextfile != "" {
		if err := capturer.Metrics.WriteToTextfile(ctx, Config.MetricsTextfile); err != nil {
			logger.Errorf(ctx, "%v", err)
		}
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %dx%d %s, %s\n",
		res.Path, res.Size.X, res.Size.Y, res.Format, humanize.Bytes(uint64(res.Bytes)))
	return nil
}
