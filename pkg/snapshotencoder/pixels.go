package snapshotencoder

import (
	"context"
	"fmt"
	"image"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/screensnap/pkg/gpu"
)

// RepackRows copies height rows of rowLen bytes each from src, whose rows
// start every srcPitch bytes, into a tightly packed buffer.
func RepackRows(src []byte, srcPitch, rowLen, height int) ([]byte, error) {
	if rowLen < 0 || height < 0 || srcPitch < rowLen {
		return nil, fmt.Errorf("invalid layout: pitch %d, row length %d, height %d", srcPitch, rowLen, height)
	}
	if height == 0 {
		return []byte{}, nil
	}
	if need := srcPitch*(height-1) + rowLen; len(src) < need {
		return nil, fmt.Errorf("the buffer is too short: %d < %d", len(src), need)
	}
	dst := make([]byte, rowLen*height)
	for y := 0; y < height; y++ {
		copy(dst[y*rowLen:(y+1)*rowLen], src[y*srcPitch:y*srcPitch+rowLen])
	}
	return dst, nil
}

// SwizzleBGRAToRGBA swaps the blue and red channels in place.
func SwizzleBGRAToRGBA(pix []byte) {
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i], pix[i+2] = pix[i+2], pix[i]
	}
}

type MappableDevice interface {
	MapForRead(ctx context.Context, t *gpu.Texture) (gpu.MappedSubresource, error)
	Unmap(ctx context.Context, t *gpu.Texture) error
}

var _ MappableDevice = (*gpu.Device)(nil)

// ReadSurface copies the content of the surface into an RGBA image.
// The surface is unmapped on return regardless of the outcome.
func ReadSurface(
	ctx context.Context,
	device MappableDevice,
	surface *gpu.Surface,
) (_ *image.RGBA, _err error) {
	logger.Debugf(ctx, "ReadSurface(ctx, %s)", surface)
	defer func() { logger.Debugf(ctx, "/ReadSurface(ctx, %s): %v", surface, _err) }()

	m, err := device.MapForRead(ctx, surface.Texture())
	if err != nil {
		return nil, fmt.Errorf("unable to map %s: %w", surface, err)
	}
	defer func() {
		if err := device.Unmap(ctx, surface.Texture()); err != nil {
			logger.Errorf(ctx, "unable to unmap %s: %v", surface, err)
		}
	}()

	if bpp := m.Format.BytesPerPixel(); bpp != 4 {
		return nil, fmt.Errorf("unsupported pixel format %s", m.Format)
	}

	size := surface.Size()
	if size.X <= 0 || size.Y <= 0 || size.X > m.Width || size.Y > m.Height {
		return nil, fmt.Errorf("invalid picture size %v of %s mapped as %dx%d", size, surface, m.Width, m.Height)
	}

	pix, err := RepackRows(m.Data, m.RowPitch, size.X*4, size.Y)
	if err != nil {
		return nil, fmt.Errorf("unable to repack the rows of %s: %w", surface, err)
	}
	if m.Format == gpu.PixelFormatB8G8R8A8UNorm {
		SwizzleBGRAToRGBA(pix)
	}

	return &image.RGBA{
		Pix:    pix,
		Stride: size.X * 4,
		Rect:   image.Rect(0, 0, size.X, size.Y),
	}, nil
}
