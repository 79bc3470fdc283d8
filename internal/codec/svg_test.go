package codec

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRasterizeRect(t *testing.T) {
	doc := `<svg xmlns="http://www.w3.org/2000/svg" width="20" height="10">
  <rect x="0" y="0" width="10" height="10" fill="#ff0000"/>
</svg>`
	img, err := NewSVG().Rasterize(strings.NewReader(doc), 96)
	require.NoError(t, err)
	assert.Equal(t, 20, img.Bounds().Dx())
	assert.Equal(t, 10, img.Bounds().Dy())

	assert.Equal(t, color.RGBA{R: 255, A: 255}, img.RGBAAt(5, 5))
	assert.Equal(t, color.RGBA{}, img.RGBAAt(15, 5))
}

func TestRasterizeDPIScales(t *testing.T) {
	doc := `<svg width="10px" height="10px"><circle cx="5" cy="5" r="4" fill="blue"/></svg>`
	img, err := NewSVG().Rasterize(strings.NewReader(doc), 192)
	require.NoError(t, err)
	assert.Equal(t, 20, img.Bounds().Dx())
	assert.Equal(t, color.RGBA{B: 255, A: 255}, img.RGBAAt(10, 10))
	assert.Equal(t, uint8(0), img.RGBAAt(0, 0).A)
}

func TestRasterizeDefaultDPI(t *testing.T) {
	doc := `<svg width="8" height="8"><rect width="8" height="8"/></svg>`
	img, err := NewSVG().Rasterize(strings.NewReader(doc), 0)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
	assert.Equal(t, color.RGBA{A: 255}, img.RGBAAt(4, 4), "fill defaults to black")
}

func TestRasterizeViewBoxAndGroups(t *testing.T) {
	doc := `<svg width="40" height="40" viewBox="0 0 4 4">
  <g fill="lime">
    <path d="M0 0 H2 V2 H0 Z"/>
    <g fill="none"><rect x="2" y="2" width="2" height="2"/></g>
  </g>
  <polygon points="2,0 4,0 4,2 2,2" style="fill: #00f"/>
</svg>`
	img, err := NewSVG().Rasterize(strings.NewReader(doc), 96)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{G: 255, A: 255}, img.RGBAAt(10, 10))
	assert.Equal(t, color.RGBA{B: 255, A: 255}, img.RGBAAt(30, 10))
	assert.Equal(t, color.RGBA{}, img.RGBAAt(30, 30))
}

func TestRasterizeErrors(t *testing.T) {
	tests := map[string]string{
		"no root":       `<rect width="1" height="1"/>`,
		"no size":       `<svg></svg>`,
		"bad color":     `<svg width="1" height="1"><rect fill="url(#g)"/></svg>`,
		"bad path":      `<svg width="1" height="1"><path d="M0 0 A1 1 0 0 0 1 1"/></svg>`,
		"bad viewbox":   `<svg viewBox="0 0 1"></svg>`,
		"short polygon": `<svg width="1" height="1"><polygon points="0,0 1,1"/></svg>`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewSVG().Rasterize(strings.NewReader(doc), 96)
			require.Error(t, err)
		})
	}
}

func TestLoadSVG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "icon.svg")
	require.NoError(t, os.WriteFile(path, []byte(`<svg width="4" height="4"><rect width="4" height="4" fill="white"/></svg>`), 0o644))

	img, err := NewSVG().LoadSVG(context.Background(), path, 96)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())

	_, err = NewSVG().LoadSVG(context.Background(), filepath.Join(t.TempDir(), "missing.svg"), 96)
	require.Error(t, err)
}

func TestParseColor(t *testing.T) {
	c, err := parseColor("#0f0")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{G: 255, A: 255}, c)

	c, err = parseColor("rgb(1, 2, 3)")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 1, G: 2, B: 3, A: 255}, c)

	c, err = parseColor("none")
	require.NoError(t, err)
	assert.Nil(t, c)
}
