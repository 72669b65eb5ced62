package gpu

import (
	"fmt"
)

type ErrDeviceCreation struct {
	Reason string
}

var _ error = ErrDeviceCreation{}

func (e ErrDeviceCreation) Error() string {
	return fmt.Sprintf("unable to create a graphics device: %s", e.Reason)
}

type ErrResourceAllocation struct {
	Desc   TextureDesc
	Reason string
}

var _ error = ErrResourceAllocation{}

func (e ErrResourceAllocation) Error() string {
	return fmt.Sprintf("unable to allocate a texture <%s>: %s", e.Desc, e.Reason)
}

type ErrCopyMismatch struct {
	Dst TextureDesc
	Src TextureDesc
}

var _ error = ErrCopyMismatch{}

func (e ErrCopyMismatch) Error() string {
	return fmt.Sprintf("unable to copy <%s> into <%s>: dimensions or formats mismatch", e.Src, e.Dst)
}

type ErrInvalidMapTarget struct {
	Desc   TextureDesc
	Reason string
}

var _ error = ErrInvalidMapTarget{}

func (e ErrInvalidMapTarget) Error() string {
	return fmt.Sprintf("unable to map texture <%s> for reading: %s", e.Desc, e.Reason)
}

type ErrTextureReleased struct {
	TextureID uint64
}

var _ error = ErrTextureReleased{}

func (e ErrTextureReleased) Error() string {
	return fmt.Sprintf("texture #%d is already released", e.TextureID)
}

type ErrNotMapped struct {
	TextureID uint64
}

var _ error = ErrNotMapped{}

func (e ErrNotMapped) Error() string {
	return fmt.Sprintf("texture #%d is not mapped", e.TextureID)
}

type ErrForeignTexture struct {
	TextureID uint64
}

var _ error = ErrForeignTexture{}

func (e ErrForeignTexture) Error() string {
	return fmt.Sprintf("texture #%d belongs to another device", e.TextureID)
}
