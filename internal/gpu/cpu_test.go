package gpu

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func TestCPUDevice_Allocate(t *testing.T) {
	d := NewCPUDevice()

	t.Run("flat", func(t *testing.T) {
		tex, err := d.Allocate(Flat(8, 4), FormatRGBA8)
		require.NoError(t, err)
		assert.Equal(t, Flat(8, 4), tex.Shape())
		assert.Equal(t, FormatRGBA8, tex.Format())
	})

	t.Run("cube has six faces", func(t *testing.T) {
		tex, err := d.Allocate(Cube(4, 3), FormatRGBA16F)
		require.NoError(t, err)
		for face := 0; face < 6; face++ {
			img, err := d.Download(tex, face)
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 4, 4), img.Bounds())
		}
		_, err = d.Download(tex, 6)
		require.Error(t, err)
	})

	t.Run("rejects empty shapes", func(t *testing.T) {
		_, err := d.Allocate(Shape{}, FormatRGBA8)
		require.Error(t, err)
		_, err = d.Allocate(Flat(0, 3), FormatRGBA8)
		require.Error(t, err)
	})

	assert.Equal(t, int64(2), d.Allocations())
	assert.Equal(t, int64(2), d.Live())
}

func TestCPUDevice_ReleaseIsIdempotent(t *testing.T) {
	d := NewCPUDevice()
	tex, err := d.Allocate(Flat(2, 2), FormatRGBA8)
	require.NoError(t, err)

	d.Release(tex)
	d.Release(tex)
	d.Release(nil)
	assert.Equal(t, int64(0), d.Live())

	_, err = d.Download(tex, 0)
	require.Error(t, err)
}

func TestCPUDevice_UploadScales(t *testing.T) {
	d := NewCPUDevice()
	tex, err := d.Allocate(Flat(4, 4), FormatRGBA8)
	require.NoError(t, err)

	red := color.RGBA{R: 255, A: 255}
	require.NoError(t, d.Upload(tex, 0, solid(16, 16, red)))

	out, err := d.Download(tex, 0)
	require.NoError(t, err)
	assert.Equal(t, red, out.RGBAAt(2, 2))
}

func TestCPUDevice_Draw(t *testing.T) {
	d := NewCPUDevice()
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}

	src, err := d.Allocate(Flat(4, 4), FormatRGBA8)
	require.NoError(t, err)
	require.NoError(t, d.Upload(src, 0, solid(4, 4, red)))

	t.Run("replace copies the source", func(t *testing.T) {
		dst, err := d.Allocate(Flat(2, 2), FormatRGBA8)
		require.NoError(t, err)
		require.NoError(t, d.Upload(dst, 0, solid(2, 2, blue)))

		require.NoError(t, d.Draw(dst, src, DrawState{Blend: BlendReplace}))
		out, _ := d.Download(dst, 0)
		assert.Equal(t, red, out.RGBAAt(1, 1))
	})

	t.Run("zero source factor keeps the destination", func(t *testing.T) {
		dst, err := d.Allocate(Flat(2, 2), FormatRGBA8)
		require.NoError(t, err)
		require.NoError(t, d.Upload(dst, 0, solid(2, 2, blue)))

		require.NoError(t, d.Draw(dst, src, DrawState{Blend: Blend{Src: BlendZero, Dst: BlendOne}}))
		out, _ := d.Download(dst, 0)
		assert.Equal(t, blue, out.RGBAAt(0, 0))
	})

	t.Run("flat source fills every cube face", func(t *testing.T) {
		dst, err := d.Allocate(Cube(2, 1), FormatRGBA8)
		require.NoError(t, err)
		require.NoError(t, d.Draw(dst, src, DrawState{Blend: BlendReplace}))
		for face := 0; face < 6; face++ {
			out, _ := d.Download(dst, face)
			assert.Equal(t, red, out.RGBAAt(0, 0), "face %d", face)
		}
	})

	t.Run("clear", func(t *testing.T) {
		dst, err := d.Allocate(Flat(2, 2), FormatRGBA8)
		require.NoError(t, err)
		require.NoError(t, d.Upload(dst, 0, solid(2, 2, blue)))
		require.NoError(t, d.Clear(dst))
		out, _ := d.Download(dst, 0)
		assert.Equal(t, color.RGBA{}, out.RGBAAt(0, 0))
	})
}

func TestSourceRect(t *testing.T) {
	b := image.Rect(0, 0, 512, 512)
	assert.Equal(t, b, sourceRect(b, Region{}))
	assert.Equal(t, image.Rect(0, 0, 256, 256), sourceRect(b, Region{X1: 0.5, Y1: 0.5}))
	assert.Equal(t, image.Rect(256, 0, 512, 256), sourceRect(b, Region{X0: 1, Y0: 0.5, X1: 0.5, Y1: 0}))
	assert.Equal(t, b, sourceRect(b, Region{X0: 0.5, X1: 0.5, Y1: 1}), "degenerate regions fall back to the full image")
}
