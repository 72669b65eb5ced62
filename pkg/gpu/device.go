package gpu

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/screensnap/pkg/xsync"
)

// AdapterName is the name of the only adapter available to Device.
const AdapterName = "screensnap software adapter"

// Device is a graphics device backed by system memory. It follows the
// contract of a hardware device with an immediate context: textures have
// usage classes, staging textures must be mapped to be read, and row
// pitches are aligned (so mapped rows usually contain padding).
//
// Device is safe for concurrent use: every operation is executed
// under the lock of the immediate context.
type Device struct {
	config         Config
	contextLocker  xsync.Mutex
	nextTextureID  atomic.Uint64
	allocatedBytes uint64
	liveTextures   atomic.Int64
}

func New(
	ctx context.Context,
	opts ...Option,
) (*Device, error) {
	cfg := Options(opts).Config()
	logger.Debugf(ctx, "New(%#+v)", cfg)
	defer logger.Debugf(ctx, "/New(%#+v)", cfg)

	if cfg.Adapter != 0 {
		return nil, ErrDeviceCreation{Reason: fmt.Sprintf("adapter #%d is not available, only adapter #0 (%s) exists", cfg.Adapter, AdapterName)}
	}
	if a := cfg.RowPitchAlignment; a == 0 || a&(a-1) != 0 {
		return nil, ErrDeviceCreation{Reason: fmt.Sprintf("row pitch alignment %d is not a power of two", a)}
	}
	if cfg.MaxTextureDimension == 0 {
		return nil, ErrDeviceCreation{Reason: "the maximal texture dimension is zero"}
	}

	return &Device{
		config: cfg,
	}, nil
}

func (d *Device) Config() Config {
	return d.config
}

// LiveTextures returns the amount of textures that are allocated
// and not released yet.
func (d *Device) LiveTextures() int {
	return int(d.liveTextures.Load())
}

func (d *Device) rowPitchFor(desc TextureDesc) int {
	align := int(d.config.RowPitchAlignment)
	rowLen := int(desc.Width) * desc.Format.BytesPerPixel()
	return (rowLen + align - 1) / align * align
}

func (d *Device) validateDesc(desc TextureDesc) error {
	switch {
	case desc.Width == 0 || desc.Height == 0:
		return ErrResourceAllocation{Desc: desc, Reason: "zero dimension"}
	case desc.Width > d.config.MaxTextureDimension || desc.Height > d.config.MaxTextureDimension:
		return ErrResourceAllocation{Desc: desc, Reason: fmt.Sprintf("a dimension exceeds the limit %d", d.config.MaxTextureDimension)}
	case desc.Format.BytesPerPixel() == 0:
		return ErrResourceAllocation{Desc: desc, Reason: "unsupported pixel format"}
	}
	switch desc.Usage {
	case UsageDefault:
		if desc.CPUAccess != 0 {
			return ErrResourceAllocation{Desc: desc, Reason: "default-usage textures cannot have CPU access"}
		}
	case UsageStaging:
		if desc.BindFlags != 0 {
			return ErrResourceAllocation{Desc: desc, Reason: "staging textures cannot be bound to the pipeline"}
		}
		if desc.CPUAccess == 0 {
			return ErrResourceAllocation{Desc: desc, Reason: "staging textures require CPU access"}
		}
	default:
		return ErrResourceAllocation{Desc: desc, Reason: "unknown usage"}
	}
	return nil
}

func (d *Device) checkOwned(t *Texture) error {
	if t == nil {
		return fmt.Errorf("the texture is nil")
	}
	if t.device != d {
		return ErrForeignTexture{TextureID: t.id}
	}
	if t.released {
		return ErrTextureReleased{TextureID: t.id}
	}
	return nil
}

// CreateTexture allocates a texture; if initial is not nil, it is
// uploaded into the texture.
func (d *Device) CreateTexture(
	ctx context.Context,
	desc TextureDesc,
	initial *Bitmap,
) (*Texture, error) {
	logger.Tracef(ctx, "CreateTexture(ctx, <%s>)", desc)
	defer logger.Tracef(ctx, "/CreateTexture(ctx, <%s>)", desc)
	return xsync.DoR2(ctx, &d.contextLocker, func() (*Texture, error) {
		return d.createTextureNoLock(ctx, desc, initial)
	})
}

func (d *Device) createTextureNoLock(
	ctx context.Context,
	desc TextureDesc,
	initial *Bitmap,
) (*Texture, error) {
	if err := d.validateDesc(desc); err != nil {
		return nil, err
	}
	if initial != nil {
		if err := initial.Validate(); err != nil {
			return nil, ErrResourceAllocation{Desc: desc, Reason: fmt.Sprintf("invalid initial data: %v", err)}
		}
	}

	rowPitch := d.rowPitchFor(desc)
	size := uint64(rowPitch) * uint64(desc.Height)
	if d.config.MemoryBudget != 0 && d.allocatedBytes+size > d.config.MemoryBudget {
		return nil, ErrResourceAllocation{
			Desc:   desc,
			Reason: fmt.Sprintf("out of memory: %d bytes requested, %d of %d are in use", size, d.allocatedBytes, d.config.MemoryBudget),
		}
	}

	t := &Texture{
		id:       d.nextTextureID.Add(1),
		device:   d,
		desc:     desc,
		rowPitch: rowPitch,
		data:     make([]byte, size),
	}
	d.allocatedBytes += size
	d.liveTextures.Add(1)

	if initial != nil {
		d.uploadNoLock(t, initial)
	}
	logger.Tracef(ctx, "allocated %s (row pitch %d)", t, rowPitch)
	return t, nil
}

// CreateStagingTexture allocates a CPU-readable (read-only) staging
// texture with the same dimensions and format as src.
func (d *Device) CreateStagingTexture(
	ctx context.Context,
	src *Texture,
) (*Texture, error) {
	if src == nil {
		return nil, fmt.Errorf("the source texture is nil")
	}
	return d.CreateTexture(ctx, src.Desc().AsStaging(), nil)
}

func (d *Device) uploadNoLock(dst *Texture, src *Bitmap) {
	width := min(int(dst.desc.Width), src.Width)
	height := min(int(dst.desc.Height), src.Height)
	copyPixels(
		dst.data, dst.rowPitch, dst.desc.Format,
		src.Pix, src.Stride, src.Format,
		width, height,
	)
}

// UpdateSubresource uploads the bitmap into a default-usage texture.
// The bitmap is clipped to the texture; pixels outside of the bitmap
// keep their previous values.
func (d *Device) UpdateSubresource(
	ctx context.Context,
	dst *Texture,
	src *Bitmap,
) error {
	if err := src.Validate(); err != nil {
		return fmt.Errorf("invalid source bitmap: %w", err)
	}
	return xsync.DoR1(ctx, &d.contextLocker, func() error {
		if err := d.checkOwned(dst); err != nil {
			return err
		}
		if dst.desc.Usage != UsageDefault {
			return fmt.Errorf("unable to update %s: only default-usage textures could be updated", dst)
		}
		d.uploadNoLock(dst, src)
		return nil
	})
}

// CopyResource copies the whole content of src into dst.
func (d *Device) CopyResource(
	ctx context.Context,
	dst *Texture,
	src *Texture,
) error {
	logger.Tracef(ctx, "CopyResource(ctx, %s, %s)", dst, src)
	defer logger.Tracef(ctx, "/CopyResource(ctx, %s, %s)", dst, src)
	return xsync.DoR1(ctx, &d.contextLocker, func() error {
		if err := d.checkOwned(dst); err != nil {
			return fmt.Errorf("invalid destination: %w", err)
		}
		if err := d.checkOwned(src); err != nil {
			return fmt.Errorf("invalid source: %w", err)
		}
		if dst == src || !dst.desc.IsCopyCompatible(src.desc) {
			return ErrCopyMismatch{Dst: dst.desc, Src: src.desc}
		}
		if dst.mapped {
			return fmt.Errorf("unable to copy into %s: it is mapped", dst)
		}
		copy(dst.data, src.data)
		return nil
	})
}

// MapForRead gives the CPU access to the content of a staging texture.
// Every successful call must be paired with exactly one Unmap.
func (d *Device) MapForRead(
	ctx context.Context,
	t *Texture,
) (MappedSubresource, error) {
	logger.Tracef(ctx, "MapForRead(ctx, %s)", t)
	defer logger.Tracef(ctx, "/MapForRead(ctx, %s)", t)
	return xsync.DoR2(ctx, &d.contextLocker, func() (MappedSubresource, error) {
		if err := d.checkOwned(t); err != nil {
			return MappedSubresource{}, err
		}
		switch {
		case t.desc.Usage != UsageStaging:
			return MappedSubresource{}, ErrInvalidMapTarget{Desc: t.desc, Reason: "not a staging texture"}
		case t.desc.CPUAccess&CPUAccessRead == 0:
			return MappedSubresource{}, ErrInvalidMapTarget{Desc: t.desc, Reason: "no CPU read access"}
		case t.mapped:
			return MappedSubresource{}, ErrInvalidMapTarget{Desc: t.desc, Reason: "already mapped"}
		}
		t.mapped = true
		return MappedSubresource{
			Data:     t.data,
			RowPitch: t.rowPitch,
			Width:    int(t.desc.Width),
			Height:   int(t.desc.Height),
			Format:   t.desc.Format,
		}, nil
	})
}

func (d *Device) Unmap(
	ctx context.Context,
	t *Texture,
) error {
	logger.Tracef(ctx, "Unmap(ctx, %s)", t)
	defer logger.Tracef(ctx, "/Unmap(ctx, %s)", t)
	return xsync.DoR1(ctx, &d.contextLocker, func() error {
		if err := d.checkOwned(t); err != nil {
			return err
		}
		if !t.mapped {
			return ErrNotMapped{TextureID: t.id}
		}
		t.mapped = false
		return nil
	})
}

// ReleaseTexture frees the texture; releasing an already released
// texture is a no-op.
func (d *Device) ReleaseTexture(
	ctx context.Context,
	t *Texture,
) error {
	if t == nil {
		return nil
	}
	if t.device != d {
		return ErrForeignTexture{TextureID: t.id}
	}
	d.contextLocker.Do(ctx, func() {
		if t.released {
			return
		}
		if t.mapped {
			logger.Warnf(ctx, "releasing %s while it is still mapped", t)
			t.mapped = false
		}
		t.released = true
		d.allocatedBytes -= uint64(len(t.data))
		t.data = nil
		d.liveTextures.Add(-1)
	})
	return nil
}
