package windowmanagerhandler

import (
	"context"
	"fmt"
	"image"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/screensnap/pkg/capturetarget"
	"github.com/xaionaro-go/screensnap/pkg/gpu"
)

// WindowManagerHandler gives access to the top-level windows of
// the desktop session.
type WindowManagerHandler struct {
	*PlatformSpecificWindowManagerHandler
}

var _ capturetarget.WindowEnumerator = (*WindowManagerHandler)(nil)

func New(ctx context.Context) (*WindowManagerHandler, error) {
	wmh := &WindowManagerHandler{
		PlatformSpecificWindowManagerHandler: &PlatformSpecificWindowManagerHandler{},
	}
	if err := wmh.init(ctx); err != nil {
		return nil, fmt.Errorf("unable to initialize a window manager handler: %w", err)
	}
	return wmh, nil
}

// Windows returns the top-level windows in the stacking/creation order
// reported by the window manager.
func (wmh *WindowManagerHandler) Windows(ctx context.Context) (_ret []capturetarget.Target, _err error) {
	logger.Debugf(ctx, "Windows")
	defer func() { logger.Debugf(ctx, "/Windows: %d %v", len(_ret), _err) }()
	return wmh.PlatformSpecificWindowManagerHandler.windows(ctx)
}

// Bounds returns the current position and size of the window.
func (wmh *WindowManagerHandler) Bounds(
	ctx context.Context,
	target capturetarget.Target,
) (image.Rectangle, error) {
	if target.Kind != capturetarget.KindWindow {
		return image.Rectangle{}, fmt.Errorf("%s is not a window", target)
	}
	return wmh.PlatformSpecificWindowManagerHandler.bounds(ctx, WindowID(target.ID))
}

// Screenshot grabs the current content of the window.
func (wmh *WindowManagerHandler) Screenshot(
	ctx context.Context,
	target capturetarget.Target,
) (*gpu.Bitmap, error) {
	if target.Kind != capturetarget.KindWindow {
		return nil, fmt.Errorf("%s is not a window", target)
	}
	return wmh.PlatformSpecificWindowManagerHandler.screenshot(ctx, WindowID(target.ID))
}

func (wmh *WindowManagerHandler) Close() error {
	return wmh.PlatformSpecificWindowManagerHandler.close()
}

func windowTarget(
	ctx context.Context,
	windowID WindowID,
	title string,
	pid PID,
	bounds image.Rectangle,
) capturetarget.Target {
	return capturetarget.Target{
		Kind:        capturetarget.KindWindow,
		ID:          uint64(windowID),
		Name:        title,
		ProcessID:   int32(pid),
		ProcessName: processName(ctx, pid),
		Bounds:      bounds,
	}
}
