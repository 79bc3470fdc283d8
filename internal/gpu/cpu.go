package gpu

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync/atomic"

	xdraw "golang.org/x/image/draw"
)

// CPUDevice keeps targets in host memory as image.RGBA faces. It backs
// headless runs and tests, where no graphics context is available.
type CPUDevice struct {
	allocations atomic.Int64
	live        atomic.Int64
}

// NewCPUDevice creates a host-memory device.
func NewCPUDevice() *CPUDevice {
	return &CPUDevice{}
}

type cpuTexture struct {
	shape  Shape
	format Format
	faces  []*image.RGBA
}

func (t *cpuTexture) Shape() Shape   { return t.shape }
func (t *cpuTexture) Format() Format { return t.format }

// Allocations is the total number of Allocate calls that succeeded.
func (d *CPUDevice) Allocations() int64 { return d.allocations.Load() }

// Live is the number of textures not yet released.
func (d *CPUDevice) Live() int64 { return d.live.Load() }

func (d *CPUDevice) Allocate(shape Shape, format Format) (Texture, error) {
	if shape.Faces() == 0 || shape.Width <= 0 || shape.Height <= 0 {
		return nil, fmt.Errorf("cannot allocate %s", shape)
	}
	tex := &cpuTexture{shape: shape, format: format, faces: make([]*image.RGBA, shape.Faces())}
	for i := range tex.faces {
		tex.faces[i] = image.NewRGBA(image.Rect(0, 0, shape.Width, shape.Height))
	}
	d.allocations.Add(1)
	d.live.Add(1)
	return tex, nil
}

func (d *CPUDevice) Release(tex Texture) {
	t, ok := tex.(*cpuTexture)
	if !ok || t == nil || t.faces == nil {
		return
	}
	t.faces = nil
	d.live.Add(-1)
}

func (d *CPUDevice) texture(tex Texture) (*cpuTexture, error) {
	t, ok := tex.(*cpuTexture)
	if !ok || t == nil {
		return nil, ErrForeignTexture
	}
	if t.faces == nil {
		return nil, fmt.Errorf("texture %s already released", t.shape)
	}
	return t, nil
}

func (d *CPUDevice) face(tex Texture, face int) (*image.RGBA, error) {
	t, err := d.texture(tex)
	if err != nil {
		return nil, err
	}
	if face < 0 || face >= len(t.faces) {
		return nil, fmt.Errorf("face %d out of range for %s", face, t.shape)
	}
	return t.faces[face], nil
}

func (d *CPUDevice) Upload(tex Texture, face int, img image.Image) error {
	dst, err := d.face(tex, face)
	if err != nil {
		return err
	}
	if img.Bounds().Size() == dst.Bounds().Size() {
		draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
		return nil
	}
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return nil
}

func (d *CPUDevice) Download(tex Texture, face int) (*image.RGBA, error) {
	src, err := d.face(tex, face)
	if err != nil {
		return nil, err
	}
	out := image.NewRGBA(src.Bounds())
	copy(out.Pix, src.Pix)
	return out, nil
}

func (d *CPUDevice) Clear(tex Texture) error {
	t, err := d.texture(tex)
	if err != nil {
		return err
	}
	for _, f := range t.faces {
		clear(f.Pix)
	}
	return nil
}

func (d *CPUDevice) Draw(dst, src Texture, state DrawState) error {
	dt, err := d.texture(dst)
	if err != nil {
		return err
	}
	st, err := d.texture(src)
	if err != nil {
		return err
	}
	for face, target := range dt.faces {
		from := st.faces[SourceFace(st.shape, face)]
		rect := sourceRect(from.Bounds(), state.Region)

		scaled := image.NewRGBA(target.Bounds())
		if rect.Size() == target.Bounds().Size() {
			draw.Draw(scaled, scaled.Bounds(), from, rect.Min, draw.Src)
		} else {
			xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), from, rect, xdraw.Src, nil)
		}

		if state.Blend == BlendReplace {
			copy(target.Pix, scaled.Pix)
			continue
		}
		blendInto(target, scaled, state.Blend)
	}
	return nil
}

func blendInto(dst, src *image.RGBA, b Blend) {
	bounds := dst.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			s := toUnit(src.RGBAAt(x, y))
			dd := toUnit(dst.RGBAAt(x, y))
			dst.SetRGBA(x, y, fromUnit(b.Apply(s, dd)))
		}
	}
}

func toUnit(c color.RGBA) [4]float64 {
	return [4]float64{float64(c.R) / 255, float64(c.G) / 255, float64(c.B) / 255, float64(c.A) / 255}
}

func fromUnit(v [4]float64) color.RGBA {
	return color.RGBA{
		R: uint8(v[0]*255 + 0.5),
		G: uint8(v[1]*255 + 0.5),
		B: uint8(v[2]*255 + 0.5),
		A: uint8(v[3]*255 + 0.5),
	}
}
