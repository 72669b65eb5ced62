package snapshotencoder

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/screensnap/pkg/capturetarget"
	"github.com/xaionaro-go/screensnap/pkg/gpu"
	"github.com/xaionaro-go/screensnap/pkg/snapshot"
)

func TestRepackRows(t *testing.T) {
	const (
		width  = 3
		height = 2
		pitch  = 256
	)
	src := make([]byte, pitch*height)
	for i := range src {
		src[i] = 0xee // padding marker
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width*4; x++ {
			src[y*pitch+x] = byte(y*100 + x)
		}
	}

	dst, err := RepackRows(src, pitch, width*4, height)
	require.NoError(t, err)
	require.Len(t, dst, width*4*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width*4; x++ {
			require.Equal(t, byte(y*100+x), dst[y*width*4+x])
		}
	}
	require.NotContains(t, dst, byte(0xee))

	_, err = RepackRows(src[:pitch], pitch, width*4, height)
	require.Error(t, err)
	_, err = RepackRows(src, 4, width*4, height)
	require.Error(t, err)
}

func TestSwizzleBGRAToRGBA(t *testing.T) {
	pix := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	SwizzleBGRAToRGBA(pix)
	require.Equal(t, []byte{3, 2, 1, 4, 7, 6, 5, 8}, pix)
}

func TestFormatFromPath(t *testing.T) {
	for path, expected := range map[string]Format{
		"screenshot":      FormatPNG,
		"a/b/shot.PNG":    FormatPNG,
		"shot.jpg":        FormatJPEG,
		"shot.jpeg":       FormatJPEG,
		"shot.bmp":        FormatBMP,
		"shot.tif":        FormatTIFF,
		"shot.tiff":       FormatTIFF,
		"shot.webp":       FormatWebP,
		"shot.final.webp": FormatWebP,
	} {
		format, err := FormatFromPath(path)
		require.NoError(t, err, path)
		require.Equal(t, expected, format, path)
	}
	_, err := FormatFromPath("shot.gif")
	require.Error(t, err)
}

// newSurface creates a staging surface filled with a gradient in
// the BGRA byte order.
func newSurface(t *testing.T, d *gpu.Device, size image.Point) *gpu.Surface {
	ctx := context.Background()
	img := image.NewRGBA(image.Rectangle{Max: size})
	for y := 0; y < size.Y; y++ {
		for x := 0; x < size.X; x++ {
			i := img.PixOffset(x, y)
			img.Pix[i+0] = byte(x)
			img.Pix[i+1] = byte(y)
			img.Pix[i+2] = 200
			img.Pix[i+3] = 255
		}
	}
	src, err := d.CreateTexture(ctx, gpu.TextureDesc{
		Width:     uint32(size.X),
		Height:    uint32(size.Y),
		Format:    gpu.PixelFormatB8G8R8A8UNorm,
		Usage:     gpu.UsageDefault,
		BindFlags: gpu.BindShaderResource,
	}, gpu.NewBitmapFromRGBA(img))
	require.NoError(t, err)
	defer src.Release(ctx)

	staging, err := d.CreateStagingTexture(ctx, src)
	require.NoError(t, err)
	require.NoError(t, d.CopyResource(ctx, staging, src))
	return gpu.NewSurface(staging)
}

func decodeFile(t *testing.T, path string) image.Image {
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, _, err := image.Decode(f)
	require.NoError(t, err)
	return img
}

func TestReadSurfaceChannelOrder(t *testing.T) {
	ctx := context.Background()
	d, err := gpu.New(ctx)
	require.NoError(t, err)
	surface := newSurface(t, d, image.Pt(5, 3))

	img, err := ReadSurface(ctx, d, surface)
	require.NoError(t, err)
	require.Equal(t, 5*4, img.Stride)
	c := img.RGBAAt(4, 2)
	require.Equal(t, uint8(4), c.R)
	require.Equal(t, uint8(2), c.G)
	require.Equal(t, uint8(200), c.B)
	require.Equal(t, uint8(255), c.A)

	// the surface is unmapped, so it could be read again
	_, err = ReadSurface(ctx, d, surface)
	require.NoError(t, err)
}

func TestReadCroppedSurface(t *testing.T) {
	ctx := context.Background()
	d, err := gpu.New(ctx)
	require.NoError(t, err)
	full := newSurface(t, d, image.Pt(8, 6))

	surface := gpu.NewCroppedSurface(full.Texture(), image.Pt(5, 3))
	require.Equal(t, image.Pt(5, 3), surface.Size())
	img, err := ReadSurface(ctx, d, surface)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 5, 3), img.Bounds())
	require.Equal(t, 5*4, img.Stride)
	c := img.RGBAAt(4, 2)
	require.Equal(t, uint8(4), c.R)
	require.Equal(t, uint8(2), c.G)

	require.Equal(t, image.Pt(8, 6), gpu.NewCroppedSurface(full.Texture(), image.Pt(100, 100)).Size())

	_, err = ReadSurface(ctx, d, gpu.NewCroppedSurface(full.Texture(), image.Pt(-1, 2)))
	require.Error(t, err)
}

func TestSaveFormats(t *testing.T) {
	ctx := context.Background()
	d, err := gpu.New(ctx)
	require.NoError(t, err)
	size := image.Pt(64, 32)
	surface := newSurface(t, d, size)
	dir := t.TempDir()

	for _, ext := range []string{".png", ".jpg", ".bmp", ".tiff", ".webp"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(dir, "shot"+ext)
			res, err := (&Encoder{}).Save(ctx, d, surface, path)
			require.NoError(t, err)
			require.Equal(t, path, res.Path)
			require.Equal(t, size, res.Size)

			st, err := os.Stat(path)
			require.NoError(t, err)
			require.Equal(t, st.Size(), res.Bytes)
			require.NoFileExists(t, path+"~")

			require.Equal(t, size, decodeFile(t, path).Bounds().Size())
		})
	}
}

func TestSaveDownscale(t *testing.T) {
	ctx := context.Background()
	d, err := gpu.New(ctx)
	require.NoError(t, err)
	surface := newSurface(t, d, image.Pt(200, 100))

	path := filepath.Join(t.TempDir(), "shot.png")
	res, err := (&Encoder{MaxWidth: 100, MaxHeight: 100}).Save(ctx, d, surface, path)
	require.NoError(t, err)
	require.Equal(t, image.Pt(100, 50), res.Size)
	require.Equal(t, image.Pt(100, 50), decodeFile(t, path).Bounds().Size())
}

func TestSaveErrors(t *testing.T) {
	ctx := context.Background()
	d, err := gpu.New(ctx)
	require.NoError(t, err)
	surface := newSurface(t, d, image.Pt(4, 4))
	dir := t.TempDir()

	path := filepath.Join(dir, "shot.gif")
	_, err = (&Encoder{}).Save(ctx, d, surface, path)
	require.ErrorAs(t, err, &ErrEncoding{})
	require.NoFileExists(t, path)

	path = filepath.Join(dir, "no-such-dir", "shot.png")
	_, err = (&Encoder{}).Save(ctx, d, surface, path)
	var encErr ErrEncoding
	require.ErrorAs(t, err, &encErr)
	require.Equal(t, path, encErr.Path)
	require.ErrorIs(t, err, os.ErrNotExist)

	// neither of the failures left the surface mapped
	_, err = d.MapForRead(ctx, surface.Texture())
	require.NoError(t, err)
	require.NoError(t, d.Unmap(ctx, surface.Texture()))
}

type fullHDSource struct{}

func (fullHDSource) TargetSize(context.Context, capturetarget.Target) (image.Point, error) {
	return image.Pt(1920, 1080), nil
}

func (fullHDSource) Loop(
	ctx context.Context,
	interval time.Duration,
	_ capturetarget.Target,
	callback func(context.Context, *gpu.Bitmap),
) error {
	img := image.NewRGBA(image.Rect(0, 0, 1920, 1080))
	for i := range img.Pix {
		img.Pix[i] = byte(i % 251)
	}
	for {
		callback(ctx, gpu.NewBitmapFromRGBA(img))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

func TestTakeAndSaveFullHD(t *testing.T) {
	ctx := context.Background()
	d, err := gpu.New(ctx)
	require.NoError(t, err)

	target := capturetarget.Target{Kind: capturetarget.KindDisplay, Bounds: image.Rect(0, 0, 1920, 1080)}
	surface, err := snapshot.New(fullHDSource{}).Take(ctx, d, target)
	require.NoError(t, err)
	defer surface.Release(ctx)

	path := filepath.Join(t.TempDir(), "screenshot.png")
	_, err = (&Encoder{}).Save(ctx, d, surface, path)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	require.Equal(t, image.Pt(1920, 1080), img.Bounds().Size())

	nonZero := false
	for y := 0; y < 1080 && !nonZero; y += 7 {
		for x := 0; x < 1920; x += 13 {
			r, g, b, _ := img.At(x, y).RGBA()
			if r|g|b != 0 {
				nonZero = true
				break
			}
		}
	}
	assert.True(t, nonZero, fmt.Sprintf("the picture at '%s' is blank", path))
}
