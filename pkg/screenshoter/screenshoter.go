package screenshoter

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/screensnap/pkg/capturetarget"
	"github.com/xaionaro-go/screensnap/pkg/framepool"
	"github.com/xaionaro-go/screensnap/pkg/gpu"
	"github.com/xaionaro-go/screensnap/pkg/screenshot"
)

type ScreenshotEngine interface {
	Bounds(ctx context.Context, target capturetarget.Target) (image.Rectangle, error)
	Screenshot(ctx context.Context, target capturetarget.Target) (*gpu.Bitmap, error)
}

// Screenshoter is a frame source that periodically grabs pictures of
// displays and windows.
type Screenshoter struct {
	DisplayEngine ScreenshotEngine
	WindowEngine  ScreenshotEngine
}

var _ framepool.FrameSource = (*Screenshoter)(nil)

// New returns a Screenshoter for displays; windows are supported only
// if windowEngine is not nil.
func New(windowEngine ScreenshotEngine) *Screenshoter {
	return &Screenshoter{
		DisplayEngine: screenshot.Implementation{},
		WindowEngine:  windowEngine,
	}
}

func (s *Screenshoter) engine(target capturetarget.Target) (ScreenshotEngine, error) {
	var engine ScreenshotEngine
	switch target.Kind {
	case capturetarget.KindDisplay:
		engine = s.DisplayEngine
	case capturetarget.KindWindow:
		engine = s.WindowEngine
	default:
		return nil, fmt.Errorf("unexpected target kind: %s", target.Kind)
	}
	if engine == nil {
		return nil, fmt.Errorf("capturing a %s is not supported on this platform", target.Kind)
	}
	return engine, nil
}

func (s *Screenshoter) TargetSize(
	ctx context.Context,
	target capturetarget.Target,
) (image.Point, error) {
	engine, err := s.engine(target)
	if err != nil {
		return image.Point{}, err
	}
	bounds, err := engine.Bounds(ctx, target)
	if err != nil {
		return image.Point{}, fmt.Errorf("unable to get the bounds of %s: %w", target, err)
	}
	return bounds.Size(), nil
}

// Loop takes a screenshot right away and then once per interval.
// A failed screenshot is logged and retried on the next tick.
func (s *Screenshoter) Loop(
	ctx context.Context,
	interval time.Duration,
	target capturetarget.Target,
	callback func(context.Context, *gpu.Bitmap),
) error {
	engine, err := s.engine(target)
	if err != nil {
		return err
	}
	if interval <= 0 {
		return fmt.Errorf("invalid interval: %v", interval)
	}

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		bitmap, err := engine.Screenshot(ctx, target)
		switch {
		case err != nil:
			logger.Errorf(ctx, "unable to take a screenshot of %s: %v", target, err)
		default:
			callback(ctx, bitmap)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}
