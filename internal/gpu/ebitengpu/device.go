// Package ebitengpu implements gpu.Device on top of ebiten offscreen images.
// Draw and Clear are queued on ebiten's command list; Download requires the
// game loop to be running, so headless runs use gpu.CPUDevice instead.
package ebitengpu

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/vk/evalgraph/internal/gpu"
	xdraw "golang.org/x/image/draw"
)

// Device allocates one unmanaged ebiten.Image per target face.
type Device struct{}

// New creates an ebiten-backed device.
func New() *Device {
	return &Device{}
}

// Texture is a target allocation on the ebiten device.
type Texture struct {
	shape  gpu.Shape
	format gpu.Format
	faces  []*ebiten.Image
}

func (t *Texture) Shape() gpu.Shape   { return t.shape }
func (t *Texture) Format() gpu.Format { return t.format }

// Face exposes the image of one face, for the preview window.
func (t *Texture) Face(i int) *ebiten.Image {
	if i < 0 || i >= len(t.faces) {
		return nil
	}
	return t.faces[i]
}

func (d *Device) Allocate(shape gpu.Shape, format gpu.Format) (gpu.Texture, error) {
	if shape.Faces() == 0 || shape.Width <= 0 || shape.Height <= 0 {
		return nil, fmt.Errorf("cannot allocate %s", shape)
	}
	tex := &Texture{shape: shape, format: format, faces: make([]*ebiten.Image, shape.Faces())}
	for i := range tex.faces {
		tex.faces[i] = ebiten.NewImageWithOptions(
			image.Rect(0, 0, shape.Width, shape.Height),
			&ebiten.NewImageOptions{Unmanaged: true},
		)
	}
	return tex, nil
}

func (d *Device) Release(tex gpu.Texture) {
	t, ok := tex.(*Texture)
	if !ok || t == nil {
		return
	}
	for _, f := range t.faces {
		f.Deallocate()
	}
	t.faces = nil
}

func (d *Device) face(tex gpu.Texture, face int) (*ebiten.Image, error) {
	t, ok := tex.(*Texture)
	if !ok || t == nil {
		return nil, gpu.ErrForeignTexture
	}
	if face < 0 || face >= len(t.faces) {
		return nil, fmt.Errorf("face %d out of range for %s", face, t.shape)
	}
	return t.faces[face], nil
}

func (d *Device) Upload(tex gpu.Texture, face int, img image.Image) error {
	dst, err := d.face(tex, face)
	if err != nil {
		return err
	}
	bounds := dst.Bounds()
	rgba := image.NewRGBA(bounds)
	if img.Bounds().Size() == bounds.Size() {
		draw.Draw(rgba, bounds, img, img.Bounds().Min, draw.Src)
	} else {
		xdraw.ApproxBiLinear.Scale(rgba, bounds, img, img.Bounds(), xdraw.Src, nil)
	}
	dst.WritePixels(rgba.Pix)
	return nil
}

func (d *Device) Download(tex gpu.Texture, face int) (*image.RGBA, error) {
	src, err := d.face(tex, face)
	if err != nil {
		return nil, err
	}
	out := image.NewRGBA(src.Bounds())
	src.ReadPixels(out.Pix)
	return out, nil
}

func (d *Device) Clear(tex gpu.Texture) error {
	t, ok := tex.(*Texture)
	if !ok || t == nil {
		return gpu.ErrForeignTexture
	}
	for _, f := range t.faces {
		f.Clear()
	}
	return nil
}

func (d *Device) Draw(dst, src gpu.Texture, state gpu.DrawState) error {
	dt, ok := dst.(*Texture)
	if !ok || dt == nil {
		return gpu.ErrForeignTexture
	}
	st, ok := src.(*Texture)
	if !ok || st == nil {
		return gpu.ErrForeignTexture
	}

	blend := Blend(state.Blend)
	for face, target := range dt.faces {
		from := st.faces[gpu.SourceFace(st.shape, face)]
		rect := subRect(from.Bounds(), state.Region)
		sub := from.SubImage(rect).(*ebiten.Image)

		op := &ebiten.DrawImageOptions{Blend: blend, Filter: ebiten.FilterLinear}
		tb := target.Bounds()
		op.GeoM.Scale(float64(tb.Dx())/float64(rect.Dx()), float64(tb.Dy())/float64(rect.Dy()))
		target.DrawImage(sub, op)
	}
	return nil
}

func subRect(b image.Rectangle, r gpu.Region) image.Rectangle {
	if r.IsFull() {
		return b
	}
	w, h := float64(b.Dx()), float64(b.Dy())
	rect := image.Rect(
		b.Min.X+int(min(r.X0, r.X1)*w), b.Min.Y+int(min(r.Y0, r.Y1)*h),
		b.Min.X+int(max(r.X0, r.X1)*w), b.Min.Y+int(max(r.Y0, r.Y1)*h),
	).Intersect(b)
	if rect.Empty() {
		return b
	}
	return rect
}
