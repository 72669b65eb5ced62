package gpu

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestDevice(t *testing.T, opts ...Option) *Device {
	d, err := New(context.Background(), opts...)
	require.NoError(t, err)
	return d
}

func defaultDesc(w, h uint32) TextureDesc {
	return TextureDesc{
		Width:     w,
		Height:    h,
		Format:    PixelFormatB8G8R8A8UNorm,
		Usage:     UsageDefault,
		BindFlags: BindShaderResource,
	}
}

func TestNewDeviceErrors(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, OptionAdapter(1))
	require.ErrorAs(t, err, &ErrDeviceCreation{})

	_, err = New(ctx, OptionRowPitchAlignment(3))
	require.ErrorAs(t, err, &ErrDeviceCreation{})

	_, err = New(ctx, OptionMaxTextureDimension(0))
	require.ErrorAs(t, err, &ErrDeviceCreation{})
}

func TestCreateTextureValidation(t *testing.T) {
	ctx := context.Background()
	d := newTestDevice(t, OptionMaxTextureDimension(64))

	for name, desc := range map[string]TextureDesc{
		"zero":             defaultDesc(0, 10),
		"too_large":        defaultDesc(65, 10),
		"unknown_format":   {Width: 1, Height: 1, Usage: UsageDefault},
		"default_with_cpu": {Width: 1, Height: 1, Format: PixelFormatB8G8R8A8UNorm, CPUAccess: CPUAccessRead},
		"staging_bound":    {Width: 1, Height: 1, Format: PixelFormatB8G8R8A8UNorm, Usage: UsageStaging, BindFlags: BindRenderTarget, CPUAccess: CPUAccessRead},
		"staging_no_cpu":   {Width: 1, Height: 1, Format: PixelFormatB8G8R8A8UNorm, Usage: UsageStaging},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := d.CreateTexture(ctx, desc, nil)
			require.ErrorAs(t, err, &ErrResourceAllocation{})
		})
	}
	require.Zero(t, d.LiveTextures())
}

func TestCreateTextureMemoryBudget(t *testing.T) {
	ctx := context.Background()
	d := newTestDevice(t, OptionRowPitchAlignment(4), OptionMemoryBudget(10*10*4))

	tex, err := d.CreateTexture(ctx, defaultDesc(10, 10), nil)
	require.NoError(t, err)

	_, err = d.CreateStagingTexture(ctx, tex)
	require.ErrorAs(t, err, &ErrResourceAllocation{})

	require.NoError(t, tex.Release(ctx))
	require.NoError(t, tex.Release(ctx))
	require.Zero(t, d.LiveTextures())

	staging, err := d.CreateTexture(ctx, defaultDesc(10, 10).AsStaging(), nil)
	require.NoError(t, err)
	require.Equal(t, 1, d.LiveTextures())
	require.NoError(t, staging.Release(ctx))
}

func TestStagingDescriptor(t *testing.T) {
	ctx := context.Background()
	d := newTestDevice(t)

	src, err := d.CreateTexture(ctx, defaultDesc(33, 7), nil)
	require.NoError(t, err)
	staging, err := d.CreateStagingTexture(ctx, src)
	require.NoError(t, err)

	desc := staging.Desc()
	require.Equal(t, uint32(33), desc.Width)
	require.Equal(t, uint32(7), desc.Height)
	require.Equal(t, PixelFormatB8G8R8A8UNorm, desc.Format)
	require.Equal(t, UsageStaging, desc.Usage)
	require.Zero(t, desc.BindFlags)
	require.Equal(t, CPUAccessRead, desc.CPUAccess)
	require.Equal(t, 256, staging.RowPitch())
}

func TestCopyResourceMismatch(t *testing.T) {
	ctx := context.Background()
	d := newTestDevice(t)

	src, err := d.CreateTexture(ctx, defaultDesc(4, 4), nil)
	require.NoError(t, err)
	dst, err := d.CreateTexture(ctx, defaultDesc(4, 5).AsStaging(), nil)
	require.NoError(t, err)

	err = d.CopyResource(ctx, dst, src)
	require.ErrorAs(t, err, &ErrCopyMismatch{})

	other := defaultDesc(4, 4)
	other.Format = PixelFormatR8G8B8A8UNorm
	dst2, err := d.CreateTexture(ctx, other.AsStaging(), nil)
	require.NoError(t, err)
	err = d.CopyResource(ctx, dst2, src)
	require.ErrorAs(t, err, &ErrCopyMismatch{})

	err = d.CopyResource(ctx, src, src)
	require.ErrorAs(t, err, &ErrCopyMismatch{})

	require.NoError(t, dst.Release(ctx))
	dst3, err := d.CreateStagingTexture(ctx, src)
	require.NoError(t, err)
	require.NoError(t, src.Release(ctx))
	err = d.CopyResource(ctx, dst3, src)
	require.ErrorAs(t, err, &ErrTextureReleased{})
}

func TestUploadCopyMapRoundTrip(t *testing.T) {
	ctx := context.Background()
	d := newTestDevice(t)

	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.SetRGBA(0, 0, color.RGBA{R: 1, G: 2, B: 3, A: 4})
	img.SetRGBA(2, 1, color.RGBA{R: 5, G: 6, B: 7, A: 8})

	src, err := d.CreateTexture(ctx, defaultDesc(3, 2), NewBitmapFromRGBA(img))
	require.NoError(t, err)
	staging, err := d.CreateStagingTexture(ctx, src)
	require.NoError(t, err)
	require.NoError(t, d.CopyResource(ctx, staging, src))

	for i := 0; i < 2; i++ {
		m, err := d.MapForRead(ctx, staging)
		require.NoError(t, err)
		require.Equal(t, 256, m.RowPitch)
		require.Equal(t, []byte{3, 2, 1, 4}, m.Data[0:4])
		require.Equal(t, []byte{7, 6, 5, 8}, m.Data[m.RowPitch+8:m.RowPitch+12])
		require.NoError(t, d.Unmap(ctx, staging))
	}

	require.ErrorAs(t, d.Unmap(ctx, staging), &ErrNotMapped{})
}

func TestMapForReadInvalidTarget(t *testing.T) {
	ctx := context.Background()
	d := newTestDevice(t)

	src, err := d.CreateTexture(ctx, defaultDesc(2, 2), nil)
	require.NoError(t, err)
	_, err = d.MapForRead(ctx, src)
	require.ErrorAs(t, err, &ErrInvalidMapTarget{})

	writeOnly := defaultDesc(2, 2).AsStaging()
	writeOnly.CPUAccess = CPUAccessWrite
	wo, err := d.CreateTexture(ctx, writeOnly, nil)
	require.NoError(t, err)
	_, err = d.MapForRead(ctx, wo)
	require.ErrorAs(t, err, &ErrInvalidMapTarget{})

	staging, err := d.CreateStagingTexture(ctx, src)
	require.NoError(t, err)
	_, err = d.MapForRead(ctx, staging)
	require.NoError(t, err)
	_, err = d.MapForRead(ctx, staging)
	require.ErrorAs(t, err, &ErrInvalidMapTarget{})
	require.Error(t, d.CopyResource(ctx, staging, src))
	require.NoError(t, d.Unmap(ctx, staging))
}

func TestForeignTexture(t *testing.T) {
	ctx := context.Background()
	d0 := newTestDevice(t)
	d1 := newTestDevice(t)

	tex, err := d0.CreateTexture(ctx, defaultDesc(1, 1), nil)
	require.NoError(t, err)
	_, err = d1.MapForRead(ctx, tex)
	require.ErrorAs(t, err, &ErrForeignTexture{})
	require.ErrorAs(t, d1.ReleaseTexture(ctx, tex), &ErrForeignTexture{})
}
