//go:build !linux && !windows
// +build !linux,!windows

package windowmanagerhandler

import (
	"context"
	"fmt"
	"image"

	"github.com/xaionaro-go/screensnap/pkg/capturetarget"
	"github.com/xaionaro-go/screensnap/pkg/gpu"
)

type PlatformSpecificWindowManagerHandler struct{}
type WindowID uint64
type PID int

func (wmh *WindowManagerHandler) init(context.Context) error {
	return fmt.Errorf("the support of window manager handler for this platform is not implemented, yet")
}

func (*PlatformSpecificWindowManagerHandler) windows(context.Context) ([]capturetarget.Target, error) {
	return nil, fmt.Errorf("not implemented")
}

func (*PlatformSpecificWindowManagerHandler) bounds(context.Context, WindowID) (image.Rectangle, error) {
	return image.Rectangle{}, fmt.Errorf("not implemented")
}

func (*PlatformSpecificWindowManagerHandler) screenshot(context.Context, WindowID) (*gpu.Bitmap, error) {
	return nil, fmt.Errorf("not implemented")
}

func (*PlatformSpecificWindowManagerHandler) close() error {
	return nil
}
