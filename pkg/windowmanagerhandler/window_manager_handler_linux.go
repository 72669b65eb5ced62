//go:build linux
// +build linux

package windowmanagerhandler

import (
	"context"
	"image"
	"os"

	"github.com/xaionaro-go/screensnap/pkg/capturetarget"
	"github.com/xaionaro-go/screensnap/pkg/gpu"
)

type WindowID uint64
type PID int // using the same underlying type as `os` does

type XWMOrWaylandWM interface {
	Windows(ctx context.Context) ([]capturetarget.Target, error)
	Bounds(ctx context.Context, windowID WindowID) (image.Rectangle, error)
	Screenshot(ctx context.Context, windowID WindowID) (*gpu.Bitmap, error)
	Close() error
}

type PlatformSpecificWindowManagerHandler struct {
	XWMOrWaylandWM
}

func (wmh *WindowManagerHandler) init(ctx context.Context) error {
	if os.Getenv("DISPLAY") != "" {
		return wmh.initUsingXServer(ctx)
	} else {
		return wmh.initUsingWayland(ctx)
	}
}

func (h *PlatformSpecificWindowManagerHandler) windows(ctx context.Context) ([]capturetarget.Target, error) {
	return h.XWMOrWaylandWM.Windows(ctx)
}

func (h *PlatformSpecificWindowManagerHandler) bounds(ctx context.Context, windowID WindowID) (image.Rectangle, error) {
	return h.XWMOrWaylandWM.Bounds(ctx, windowID)
}

func (h *PlatformSpecificWindowManagerHandler) screenshot(ctx context.Context, windowID WindowID) (*gpu.Bitmap, error) {
	return h.XWMOrWaylandWM.Screenshot(ctx, windowID)
}

func (h *PlatformSpecificWindowManagerHandler) close() error {
	return h.XWMOrWaylandWM.Close()
}
