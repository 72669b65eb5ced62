package snapshotencoder

import (
	"fmt"
	"path/filepath"
	"strings"
)

type Format int

const (
	FormatUndefined = Format(iota)
	FormatPNG
	FormatJPEG
	FormatBMP
	FormatTIFF
	FormatWebP
	EndOfFormat
)

func (f Format) String() string {
	switch f {
	case FormatUndefined:
		return "undefined"
	case FormatPNG:
		return "png"
	case FormatJPEG:
		return "jpeg"
	case FormatBMP:
		return "bmp"
	case FormatTIFF:
		return "tiff"
	case FormatWebP:
		return "webp"
	default:
		return fmt.Sprintf("unknown_format_%d", int(f))
	}
}

// FormatFromPath detects the format by the file extension;
// a path without an extension is saved as PNG.
func FormatFromPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case "", ".png":
		return FormatPNG, nil
	case ".jpg", ".jpeg":
		return FormatJPEG, nil
	case ".bmp":
		return FormatBMP, nil
	case ".tif", ".tiff":
		return FormatTIFF, nil
	case ".webp":
		return FormatWebP, nil
	default:
		return FormatUndefined, fmt.Errorf("unsupported file extension '%s'", ext)
	}
}
