package screenshot

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

type Config struct {
	Bounds image.Rectangle
}

func NumActiveDisplays() uint {
	n := screenshot.NumActiveDisplays()
	if n < 0 {
		return 0
	}
	return uint(n)
}

// DisplayBounds returns the bounds of the display in the virtual screen.
// Display #0 is the primary one.
func DisplayBounds(displayIdx uint) image.Rectangle {
	return screenshot.GetDisplayBounds(int(displayIdx))
}

func Screenshot(cfg Config) (*image.RGBA, error) {
	if cfg.Bounds.Empty() {
		return nil, fmt.Errorf("unable to screenshot empty bounds %v", cfg.Bounds)
	}
	rgbaFull, err := screenshot.CaptureRect(cfg.Bounds)
	if err != nil {
		return nil, fmt.Errorf("unable to screenshot bounds %v: %w", cfg.Bounds, err)
	}

	return rgbaFull, nil
}
