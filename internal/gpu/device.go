package gpu

import (
	"errors"
	"image"
)

// ErrForeignTexture is returned when a texture allocated by another device is passed in.
var ErrForeignTexture = errors.New("texture was not allocated by this device")

// Device executes allocation, transfer and draw commands for evaluation targets.
type Device interface {
	// Allocate creates backing storage for shape. Only mip level 0 is addressable.
	Allocate(shape Shape, format Format) (Texture, error)
	// Release frees a texture. Releasing nil is a no-op.
	Release(tex Texture)
	// Upload replaces the contents of one face, scaling img to the face size.
	Upload(tex Texture, face int, img image.Image) error
	// Download reads one face back into host memory.
	Download(tex Texture, face int) (*image.RGBA, error)
	// Clear sets every face to transparent black.
	Clear(tex Texture) error
	// Draw composites src into dst with state. Cube sources map face to face;
	// flat sources are drawn into every face of a cube destination.
	Draw(dst, src Texture, state DrawState) error
}

// sourceRect converts a normalized region into pixel bounds of b.
func sourceRect(b image.Rectangle, r Region) image.Rectangle {
	if r.IsFull() {
		return b
	}
	w, h := float64(b.Dx()), float64(b.Dy())
	x0, x1 := min(r.X0, r.X1), max(r.X0, r.X1)
	y0, y1 := min(r.Y0, r.Y1), max(r.Y0, r.Y1)
	rect := image.Rect(
		b.Min.X+int(x0*w), b.Min.Y+int(y0*h),
		b.Min.X+int(x1*w), b.Min.Y+int(y1*h),
	).Intersect(b)
	if rect.Empty() {
		return b
	}
	return rect
}

// SourceFace picks the face of src that feeds face of dst.
func SourceFace(src Shape, face int) int {
	if face < src.Faces() {
		return face
	}
	return 0
}
