package codec

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	// Decoders registered with image.Decode.
	_ "image/gif"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedFormat is returned for formats the codec cannot handle.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// ImageReader decodes image files.
type ImageReader interface {
	ReadImage(ctx context.Context, path string) (image.Image, error)
}

// ImageWriter encodes image files.
type ImageWriter interface {
	WriteImage(ctx context.Context, path string, img image.Image, format Format, quality int) error
}

// Format is an output file format.
type Format int

const (
	FormatJPG Format = iota
	FormatPNG
	FormatTGA
	FormatBMP
	FormatHDR
	FormatTIFF
)

var formatNames = map[Format]string{
	FormatJPG:  "jpg",
	FormatPNG:  "png",
	FormatTGA:  "tga",
	FormatBMP:  "bmp",
	FormatHDR:  "hdr",
	FormatTIFF: "tiff",
}

func (f Format) String() string {
	if n, ok := formatNames[f]; ok {
		return n
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Extension is the file extension for f, including the dot.
func (f Format) Extension() string {
	return "." + f.String()
}

// FormatFromPath guesses the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "jpeg" {
		ext = "jpg"
	}
	if ext == "tif" {
		ext = "tiff"
	}
	for f, n := range formatNames {
		if n == ext {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%q: %w", path, ErrUnsupportedFormat)
}

// Files reads and writes images on the local file system.
type Files struct{}

// NewFiles creates a file-system codec.
func NewFiles() *Files {
	return &Files{}
}

// ReadImage decodes png, jpeg, gif, bmp, tiff and webp files.
func (Files) ReadImage(ctx context.Context, path string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %q: %w", path, err)
	}
	return img, nil
}

// WriteImage encodes img to path. quality applies to jpg only.
func (Files) WriteImage(ctx context.Context, path string, img image.Image, format Format, quality int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image: %w", err)
	}
	if err := Encode(f, img, format, quality); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %q: %w", path, err)
	}
	return f.Close()
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, img image.Image, format Format, quality int) error {
	switch format {
	case FormatJPG:
		if quality <= 0 || quality > 100 {
			quality = jpeg.DefaultQuality
		}
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case FormatPNG:
		return png.Encode(w, img)
	case FormatBMP:
		return bmp.Encode(w, img)
	case FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case FormatTGA:
		return encodeTGA(w, img)
	case FormatHDR:
		return encodeHDR(w, img)
	default:
		return fmt.Errorf("%s: %w", format, ErrUnsupportedFormat)
	}
}
