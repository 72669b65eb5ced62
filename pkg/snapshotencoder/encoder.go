package snapshotencoder

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"github.com/anthonynsimon/bild/transform"
	"github.com/chai2010/webp"
	"github.com/dustin/go-humanize"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/screensnap/pkg/gpu"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

type Encoder struct {
	// MaxWidth and MaxHeight limit the size of the output picture; a larger
	// picture is downscaled preserving the aspect ratio. Zero means no limit.
	MaxWidth  int
	MaxHeight int

	// JPEGQuality is in range [1, 100]; zero means jpeg.DefaultQuality.
	JPEGQuality int

	// WebPQuality is in range [1, 100]; zero means lossless.
	WebPQuality int
}

type SaveResult struct {
	Path   string
	Format Format
	Size   image.Point
	Bytes  int64
}

// Save reads the surface and writes it to path in the format chosen by
// the extension of the path. The file is replaced atomically.
func (e *Encoder) Save(
	ctx context.Context,
	device MappableDevice,
	surface *gpu.Surface,
	path string,
) (_ret SaveResult, _err error) {
	logger.Debugf(ctx, "Save(ctx, %s, '%s')", surface, path)
	defer func() { logger.Debugf(ctx, "/Save(ctx, %s, '%s'): %#+v %v", surface, path, _ret, _err) }()

	format, err := FormatFromPath(path)
	if err != nil {
		return SaveResult{}, ErrEncoding{Path: path, Err: err}
	}

	img, err := ReadSurface(ctx, device, surface)
	if err != nil {
		return SaveResult{}, ErrEncoding{Path: path, Err: err}
	}

	var out image.Image = img
	if size := e.scaledSize(img.Bounds().Size()); size != img.Bounds().Size() {
		logger.Debugf(ctx, "downscaling %v to %v", img.Bounds().Size(), size)
		out = transform.Resize(img, size.X, size.Y, transform.Lanczos)
	}

	n, err := writeFileAtomic(path, func(w io.Writer) error {
		return e.encode(w, format, out)
	})
	if err != nil {
		return SaveResult{}, ErrEncoding{Path: path, Err: err}
	}

	logger.Infof(ctx, "saved %s picture %v to '%s' (%s)", format, out.Bounds().Size(), path, humanize.Bytes(uint64(n)))
	return SaveResult{
		Path:   path,
		Format: format,
		Size:   out.Bounds().Size(),
		Bytes:  n,
	}, nil
}

func (e *Encoder) scaledSize(size image.Point) image.Point {
	scale := 1.0
	if e.MaxWidth > 0 && size.X > e.MaxWidth {
		scale = min(scale, float64(e.MaxWidth)/float64(size.X))
	}
	if e.MaxHeight > 0 && size.Y > e.MaxHeight {
		scale = min(scale, float64(e.MaxHeight)/float64(size.Y))
	}
	if scale == 1.0 {
		return size
	}
	return image.Point{
		X: max(1, int(float64(size.X)*scale)),
		Y: max(1, int(float64(size.Y)*scale)),
	}
}

func (e *Encoder) encode(
	w io.Writer,
	format Format,
	img image.Image,
) error {
	switch format {
	case FormatPNG:
		return png.Encode(w, img)
	case FormatJPEG:
		quality := e.JPEGQuality
		if quality <= 0 {
			quality = jpeg.DefaultQuality
		}
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case FormatBMP:
		return bmp.Encode(w, img)
	case FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	case FormatWebP:
		opts := &webp.Options{Lossless: true}
		if e.WebPQuality > 0 {
			opts = &webp.Options{Quality: float32(e.WebPQuality)}
		}
		return webp.Encode(w, img, opts)
	default:
		return fmt.Errorf("unexpected format: %s", format)
	}
}

type countingWriter struct {
	io.Writer
	n int64
}

func (w *countingWriter) Write(b []byte) (int, error) {
	n, err := w.Writer.Write(b)
	w.n += int64(n)
	return n, err
}

// writeFileAtomic writes into path+"~" and renames it to path on success.
func writeFileAtomic(
	path string,
	writeFn func(io.Writer) error,
) (_ int64, _err error) {
	tmpPath := path + "~"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return 0, fmt.Errorf("unable to open '%s': %w", tmpPath, err)
	}
	defer func() {
		if _err != nil {
			_ = f.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	cw := &countingWriter{Writer: f}
	bw := bufio.NewWriter(cw)
	if err := writeFn(bw); err != nil {
		return 0, fmt.Errorf("unable to encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("unable to write '%s': %w", tmpPath, err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("unable to close '%s': %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return 0, fmt.Errorf("unable to rename '%s' to '%s': %w", tmpPath, path, err)
	}
	return cw.n, nil
}
