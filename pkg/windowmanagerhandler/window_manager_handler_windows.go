//go:build windows
// +build windows

package windowmanagerhandler

import (
	"context"
	"fmt"
	"image"
	"sync"
	"unsafe"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/screensnap/pkg/capturetarget"
	"github.com/xaionaro-go/screensnap/pkg/gpu"
	"github.com/xaionaro-go/screensnap/pkg/screenshot"
	"golang.org/x/sys/windows"
)

type WindowID uint64
type PID uint32

var (
	user32            = windows.NewLazySystemDLL("user32.dll")
	procGetWindowRect = user32.NewProc("GetWindowRect")
	procIsIconic      = user32.NewProc("IsIconic")
)

var (
	enumWindowsLocker   sync.Mutex
	enumWindowsResult   []windows.HWND
	enumWindowsCallback = windows.NewCallback(func(hwnd windows.HWND, _ uintptr) uintptr {
		enumWindowsResult = append(enumWindowsResult, hwnd)
		return 1
	})
)

type PlatformSpecificWindowManagerHandler struct{}

func (wmh *WindowManagerHandler) init(context.Context) error {
	return user32.Load()
}

func enumWindows() ([]windows.HWND, error) {
	enumWindowsLocker.Lock()
	defer enumWindowsLocker.Unlock()
	enumWindowsResult = nil
	if err := windows.EnumWindows(enumWindowsCallback, nil); err != nil {
		return nil, fmt.Errorf("unable to enumerate windows: %w", err)
	}
	result := enumWindowsResult
	enumWindowsResult = nil
	return result, nil
}

func windowTitle(hwnd windows.HWND) string {
	buf := make([]uint16, 512)
	n, err := windows.GetWindowText(hwnd, &buf[0], int32(len(buf)))
	if err != nil || n <= 0 {
		return ""
	}
	return windows.UTF16ToString(buf[:n])
}

func windowRect(hwnd windows.HWND) (image.Rectangle, error) {
	var rect windows.Rect
	r1, _, err := procGetWindowRect.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&rect)))
	if r1 == 0 {
		return image.Rectangle{}, fmt.Errorf("GetWindowRect failed: %w", err)
	}
	return image.Rect(int(rect.Left), int(rect.Top), int(rect.Right), int(rect.Bottom)), nil
}

func isIconic(hwnd windows.HWND) bool {
	r1, _, _ := procIsIconic.Call(uintptr(hwnd))
	return r1 != 0
}

func (*PlatformSpecificWindowManagerHandler) windows(ctx context.Context) ([]capturetarget.Target, error) {
	hwnds, err := enumWindows()
	if err != nil {
		return nil, err
	}

	result := make([]capturetarget.Target, 0, len(hwnds))
	for _, hwnd := range hwnds {
		if !windows.IsWindowVisible(hwnd) || isIconic(hwnd) {
			continue
		}
		bounds, err := windowRect(hwnd)
		if err != nil {
			logger.Debugf(ctx, "unable to get the bounds of window 0x%x, skipping: %v", hwnd, err)
			continue
		}
		if bounds.Empty() {
			continue
		}
		var pid uint32
		if _, err := windows.GetWindowThreadProcessId(hwnd, &pid); err != nil {
			logger.Tracef(ctx, "unable to get the PID of window 0x%x: %v", hwnd, err)
		}
		result = append(result, windowTarget(ctx, WindowID(hwnd), windowTitle(hwnd), PID(pid), bounds))
	}
	return result, nil
}

func (*PlatformSpecificWindowManagerHandler) bounds(_ context.Context, windowID WindowID) (image.Rectangle, error) {
	hwnd := windows.HWND(windowID)
	if !windows.IsWindow(hwnd) {
		return image.Rectangle{}, fmt.Errorf("window 0x%x does not exist anymore", windowID)
	}
	return windowRect(hwnd)
}

// screenshot grabs the on-screen rectangle of the window, so
// overlapping windows are captured as well.
func (h *PlatformSpecificWindowManagerHandler) screenshot(ctx context.Context, windowID WindowID) (*gpu.Bitmap, error) {
	bounds, err := h.bounds(ctx, windowID)
	if err != nil {
		return nil, err
	}
	img, err := screenshot.Screenshot(screenshot.Config{Bounds: bounds})
	if err != nil {
		return nil, err
	}
	return gpu.NewBitmapFromRGBA(img), nil
}

func (*PlatformSpecificWindowManagerHandler) close() error {
	return nil
}
