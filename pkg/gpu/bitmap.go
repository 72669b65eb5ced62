package gpu

import (
	"fmt"
	"image"
)

// Bitmap is a CPU-side pixel buffer used as an upload source
// (similar to an initial-data descriptor of a texture).
type Bitmap struct {
	Pix    []byte
	Stride int
	Width  int
	Height int
	Format PixelFormat
}

// NewBitmapFromRGBA wraps the pixels of img without copying them.
func NewBitmapFromRGBA(img *image.RGBA) *Bitmap {
	b := img.Bounds()
	return &Bitmap{
		Pix:    img.Pix[img.PixOffset(b.Min.X, b.Min.Y):],
		Stride: img.Stride,
		Width:  b.Dx(),
		Height: b.Dy(),
		Format: PixelFormatR8G8B8A8UNorm,
	}
}

func (b *Bitmap) Size() image.Point {
	return image.Point{X: b.Width, Y: b.Height}
}

func (b *Bitmap) Validate() error {
	if b == nil {
		return fmt.Errorf("the bitmap is nil")
	}
	bpp := b.Format.BytesPerPixel()
	if bpp == 0 {
		return fmt.Errorf("unsupported pixel format %s", b.Format)
	}
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("invalid bitmap size %dx%d", b.Width, b.Height)
	}
	if b.Stride < b.Width*bpp {
		return fmt.Errorf("stride %d is less than the row length %d", b.Stride, b.Width*bpp)
	}
	if need := b.Stride*(b.Height-1) + b.Width*bpp; len(b.Pix) < need {
		return fmt.Errorf("the pixel buffer is too short: %d < %d", len(b.Pix), need)
	}
	return nil
}

// copyPixels copies rows from src into dst converting between
// the BGRA and RGBA byte orders if needed.
func copyPixels(
	dst []byte, dstPitch int, dstFormat PixelFormat,
	src []byte, srcPitch int, srcFormat PixelFormat,
	width, height int,
) {
	rowLen := width * 4
	swap := dstFormat != srcFormat
	for y := 0; y < height; y++ {
		d := dst[y*dstPitch : y*dstPitch+rowLen]
		s := src[y*srcPitch : y*srcPitch+rowLen]
		if !swap {
			copy(d, s)
			continue
		}
		for x := 0; x < rowLen; x += 4 {
			d[x+0] = s[x+2]
			d[x+1] = s[x+1]
			d[x+2] = s[x+0]
			d[x+3] = s[x+3]
		}
	}
}
