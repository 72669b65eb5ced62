//go:build linux
// +build linux

package windowmanagerhandler

import (
	"context"
	"fmt"
	"image"
	"math"
	"os"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/screensnap/pkg/capturetarget"
	"github.com/xaionaro-go/screensnap/pkg/gpu"
)

type XWindowManagerHandler struct {
	*xgbutil.XUtil
}

func (wmh *WindowManagerHandler) initUsingXServer(ctx context.Context) error {
	display := os.Getenv("DISPLAY")
	logger.Debugf(ctx, "connecting to the X-server using DISPLAY '%s'", display)
	x, err := xgbutil.NewConnDisplay(display)
	if err != nil {
		return fmt.Errorf("unable to connect to X-server using DISPLAY '%s': %w", display, err)
	}
	wmh.XWMOrWaylandWM = &XWindowManagerHandler{
		XUtil: x,
	}
	return nil
}

func (wmh *XWindowManagerHandler) Windows(ctx context.Context) ([]capturetarget.Target, error) {
	clients, err := ewmh.ClientListGet(wmh.XUtil)
	if err != nil {
		return nil, fmt.Errorf("unable to get the list of client windows: %w", err)
	}

	result := make([]capturetarget.Target, 0, len(clients))
	for _, clientID := range clients {
		name, err := ewmh.WmNameGet(wmh.XUtil, clientID)
		if err != nil || name == "" {
			name, err = icccm.WmNameGet(wmh.XUtil, clientID)
			if err != nil {
				logger.Tracef(ctx, "unable to get the name of window %d: %v", clientID, err)
			}
		}

		pid, err := ewmh.WmPidGet(wmh.XUtil, clientID)
		if err != nil {
			logger.Tracef(ctx, "unable to get the PID of window %d: %v", clientID, err)
		}

		bounds, err := wmh.Bounds(ctx, WindowID(clientID))
		if err != nil {
			logger.Debugf(ctx, "unable to get the bounds of window %d (%q), skipping: %v", clientID, name, err)
			continue
		}

		result = append(result, windowTarget(ctx, WindowID(clientID), name, PID(pid), bounds))
	}
	return result, nil
}

func (wmh *XWindowManagerHandler) geometry(windowID WindowID) (*xproto.GetGeometryReply, error) {
	geom, err := xproto.GetGeometry(wmh.Conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return nil, fmt.Errorf("unable to get the geometry of window %d: %w", windowID, err)
	}
	return geom, nil
}

func (wmh *XWindowManagerHandler) Bounds(
	ctx context.Context,
	windowID WindowID,
) (image.Rectangle, error) {
	geom, err := wmh.geometry(windowID)
	if err != nil {
		return image.Rectangle{}, err
	}
	pos, err := xproto.TranslateCoordinates(
		wmh.Conn(),
		xproto.Window(windowID),
		wmh.RootWin(),
		0, 0,
	).Reply()
	if err != nil {
		return image.Rectangle{}, fmt.Errorf("unable to translate the coordinates of window %d: %w", windowID, err)
	}
	return image.Rect(
		int(pos.DstX), int(pos.DstY),
		int(pos.DstX)+int(geom.Width), int(pos.DstY)+int(geom.Height),
	), nil
}

// Screenshot reads the content of the window in the ZPixmap format,
// which is B8G8R8X8 for 24- and 32-bit visuals on little-endian hosts.
func (wmh *XWindowManagerHandler) Screenshot(
	ctx context.Context,
	windowID WindowID,
) (*gpu.Bitmap, error) {
	geom, err := wmh.geometry(windowID)
	if err != nil {
		return nil, err
	}
	if geom.Width == 0 || geom.Height == 0 {
		return nil, fmt.Errorf("window %d has an empty geometry", windowID)
	}

	xImg, err := xproto.GetImage(
		wmh.Conn(),
		xproto.ImageFormatZPixmap,
		xproto.Drawable(windowID),
		0, 0,
		geom.Width, geom.Height,
		math.MaxUint32,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("unable to get the image of window %d: %w", windowID, err)
	}

	width, height := int(geom.Width), int(geom.Height)
	if len(xImg.Data) != width*height*4 {
		return nil, fmt.Errorf("unsupported pixel layout of window %d: depth %d, %d bytes for %dx%d", windowID, xImg.Depth, len(xImg.Data), width, height)
	}
	if xImg.Depth != 32 {
		for i := 3; i < len(xImg.Data); i += 4 {
			xImg.Data[i] = 0xff
		}
	}
	return &gpu.Bitmap{
		Pix:    xImg.Data,
		Stride: width * 4,
		Width:  width,
		Height: height,
		Format: gpu.PixelFormatB8G8R8A8UNorm,
	}, nil
}

func (wmh *XWindowManagerHandler) Close() error {
	ctx := context.TODO()
	logger.Debugf(ctx, "Close")
	defer logger.Debugf(ctx, "/Close")
	wmh.XUtil.Conn().Close()
	return nil
}
