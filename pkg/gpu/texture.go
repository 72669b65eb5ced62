package gpu

import (
	"context"
	"fmt"
	"image"
)

// Texture is a 2D texture allocated by a Device.
//
// All the mutable state is guarded by the immediate context of the device.
type Texture struct {
	id       uint64
	device   *Device
	desc     TextureDesc
	rowPitch int
	data     []byte

	mapped   bool
	released bool
}

func (t *Texture) ID() uint64 {
	return t.id
}

func (t *Texture) Desc() TextureDesc {
	return t.desc
}

func (t *Texture) Size() image.Point {
	return t.desc.Size()
}

// RowPitch is the amount of bytes between the beginnings of two
// consecutive rows; it may be larger than Width*BytesPerPixel.
func (t *Texture) RowPitch() int {
	return t.rowPitch
}

func (t *Texture) String() string {
	if t == nil {
		return "<nil>"
	}
	return fmt.Sprintf("texture#%d<%s>", t.id, t.desc)
}

func (t *Texture) Release(ctx context.Context) error {
	return t.device.ReleaseTexture(ctx, t)
}

// MappedSubresource is a CPU view of a mapped staging texture.
// Data is valid only until the texture is unmapped.
type MappedSubresource struct {
	Data     []byte
	RowPitch int
	Width    int
	Height   int
	Format   PixelFormat
}

// Surface is a device-agnostic handle of a captured picture.
// The picture occupies the top-left Size() pixels of the texture.
type Surface struct {
	texture *Texture
	size    image.Point
}

func NewSurface(texture *Texture) *Surface {
	return &Surface{texture: texture, size: texture.Size()}
}

// NewCroppedSurface is NewSurface for a picture smaller than the texture;
// size is clipped to the texture size.
func NewCroppedSurface(texture *Texture, size image.Point) *Surface {
	full := texture.Size()
	return &Surface{
		texture: texture,
		size: image.Point{
			X: max(0, min(size.X, full.X)),
			Y: max(0, min(size.Y, full.Y)),
		},
	}
}

func (s *Surface) Texture() *Texture {
	return s.texture
}

// Size is the size of the picture (not of the texture).
func (s *Surface) Size() image.Point {
	return s.size
}

func (s *Surface) Format() PixelFormat {
	return s.texture.desc.Format
}

func (s *Surface) Release(ctx context.Context) error {
	return s.texture.Release(ctx)
}

func (s *Surface) String() string {
	if s.size != s.texture.Size() {
		return fmt.Sprintf("surface<%s, content:%v>", s.texture, s.size)
	}
	return fmt.Sprintf("surface<%s>", s.texture)
}
