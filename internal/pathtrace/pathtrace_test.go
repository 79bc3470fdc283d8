package pathtrace

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/evalgraph/internal/resource"
	"github.com/vk/evalgraph/internal/scene"
)

var _ resource.Renderer = (*Renderer)(nil)

func triangleScene() *scene.Scene {
	return &scene.Scene{
		Name: "tri.gltf",
		Meshes: []*scene.Mesh{{
			Positions: [][3]float32{{-1, -1, 0}, {1, -1, 0}, {0, 1, 0}},
			Indices:   []uint32{0, 1, 2},
		}},
	}
}

func TestCompile(t *testing.T) {
	s, err := Compile(triangleScene())
	require.NoError(t, err)
	assert.Equal(t, 1, s.Triangles())
	assert.Equal(t, "tri.gltf", s.Name)
}

func TestCompileErrors(t *testing.T) {
	_, err := Compile(nil)
	require.ErrorIs(t, err, ErrEmptyScene)

	_, err = Compile(&scene.Scene{})
	require.ErrorIs(t, err, ErrEmptyScene)

	degenerate := &scene.Scene{Meshes: []*scene.Mesh{{
		Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}},
	}}}
	_, err = Compile(degenerate)
	require.ErrorIs(t, err, ErrEmptyScene)

	badIndex := triangleScene()
	badIndex.Meshes[0].Indices = []uint32{0, 1, 7}
	_, err = Compile(badIndex)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyScene)
}

func TestRendererConverges(t *testing.T) {
	s, err := Compile(triangleScene())
	require.NoError(t, err)
	r := NewRenderer(s, Options{Width: 16, Height: 16, Samples: 2, RowsPerStep: 8})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		done, err := r.Step(ctx)
		require.NoError(t, err)
		assert.False(t, done, "step %d", i)
	}
	done, err := r.Step(ctx)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, 2, r.Samples())

	done, err = r.Step(ctx)
	require.NoError(t, err)
	assert.True(t, done, "converged renderers stay converged")

	img := r.Image().(*image.RGBA)
	center := img.RGBAAt(8, 8)
	assert.Equal(t, center.R, center.G)
	assert.Equal(t, center.G, center.B)
	assert.InDelta(t, 148, int(center.R), 2)

	sky := img.RGBAAt(0, 0)
	assert.Greater(t, sky.B, sky.R)

	r.Reset()
	assert.Equal(t, 0, r.Samples())
	assert.Equal(t, uint8(0), r.Image().(*image.RGBA).RGBAAt(8, 8).A)
}

func TestRendererDefaultsAndClose(t *testing.T) {
	s, err := Compile(triangleScene())
	require.NoError(t, err)
	r := NewRenderer(s, Options{})
	assert.Equal(t, image.Rect(0, 0, 1024, 1024), r.Image().Bounds())

	r.Close()
	_, err = r.Step(context.Background())
	require.Error(t, err)
}

func TestRendererCancelled(t *testing.T) {
	s, err := Compile(triangleScene())
	require.NoError(t, err)
	r := NewRenderer(s, Options{Width: 4, Height: 4, Samples: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Step(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
