package gpu

import (
	"fmt"
	"image"
)

type PixelFormat uint32

const (
	PixelFormatUnknown = PixelFormat(iota)
	PixelFormatB8G8R8A8UNorm
	PixelFormatR8G8B8A8UNorm
	EndOfPixelFormat
)

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatUnknown:
		return "unknown"
	case PixelFormatB8G8R8A8UNorm:
		return "B8G8R8A8_UNORM"
	case PixelFormatR8G8B8A8UNorm:
		return "R8G8B8A8_UNORM"
	default:
		return fmt.Sprintf("unexpected_pixel_format_%d", uint32(f))
	}
}

// BytesPerPixel returns zero for unknown formats.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelFormatB8G8R8A8UNorm, PixelFormatR8G8B8A8UNorm:
		return 4
	default:
		return 0
	}
}

type Usage uint32

const (
	// UsageDefault is GPU-only memory: it is not readable by the CPU.
	UsageDefault = Usage(iota)

	// UsageStaging is memory that can be mapped for CPU access.
	UsageStaging
)

func (u Usage) String() string {
	switch u {
	case UsageDefault:
		return "default"
	case UsageStaging:
		return "staging"
	default:
		return fmt.Sprintf("unexpected_usage_%d", uint32(u))
	}
}

type BindFlags uint32

const (
	BindShaderResource = BindFlags(1 << iota)
	BindRenderTarget
)

type CPUAccessFlags uint32

const (
	CPUAccessRead = CPUAccessFlags(1 << iota)
	CPUAccessWrite
)

// TextureDesc describes a 2D texture.
type TextureDesc struct {
	Width     uint32
	Height    uint32
	Format    PixelFormat
	Usage     Usage
	BindFlags BindFlags
	CPUAccess CPUAccessFlags
}

func (d TextureDesc) String() string {
	return fmt.Sprintf(
		"%dx%d %s usage:%s bind:%#x cpu:%#x",
		d.Width, d.Height, d.Format, d.Usage, uint32(d.BindFlags), uint32(d.CPUAccess),
	)
}

func (d TextureDesc) Size() image.Point {
	return image.Point{X: int(d.Width), Y: int(d.Height)}
}

// AsStaging returns the description of a read-only staging texture
// with the same dimensions and format.
func (d TextureDesc) AsStaging() TextureDesc {
	d.Usage = UsageStaging
	d.BindFlags = 0
	d.CPUAccess = CPUAccessRead
	return d
}

// IsCopyCompatible reports if a full-resource copy between textures
// of these descriptions is allowed.
func (d TextureDesc) IsCopyCompatible(other TextureDesc) bool {
	return d.Width == other.Width &&
		d.Height == other.Height &&
		d.Format == other.Format
}
