package crop

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/evalgraph/internal/gpu"
	"github.com/vk/evalgraph/internal/node"
	"github.com/vk/evalgraph/internal/status"
	"github.com/vk/evalgraph/internal/testutil"
)

func TestEvaluate_Size(t *testing.T) {
	tests := []struct {
		name   string
		quad   []float64
		source int
		ui     bool
		want   gpu.Shape
	}{
		{name: "quarter", quad: []float64{0, 0, 0.5, 0.5}, source: 512, want: gpu.Flat(256, 256)},
		{name: "ui pass shows the input", quad: []float64{0, 0, 0.5, 0.5}, source: 512, ui: true, want: gpu.Flat(512, 512)},
		{name: "reversed corners", quad: []float64{0.75, 1, 0.25, 0}, source: 100, want: gpu.Flat(50, 100)},
		{name: "degenerate quad keeps one pixel", quad: []float64{0.5, 0.5, 0.5, 0.5}, source: 64, want: gpu.Flat(1, 1)},
		{name: "no input", quad: []float64{0, 0, 0.5, 0.5}, want: gpu.Flat(DefaultSize, DefaultSize)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testutil.NewEnv(t)
			n := env.AddNode(t, 1, node.KindCrop, map[string]any{"quad": tt.quad})
			if tt.source > 0 {
				env.AddNode(t, 0, node.KindSVG, nil)
				env.Flat(t, 0, tt.source, tt.source)
				n.Inputs[0] = 0
			}

			require.Equal(t, status.Ok, Evaluate(env.Ctx, env.Context, env.Evaluation(n, tt.ui)))
			assert.Equal(t, tt.want, env.Table.Shape(1))
			snap, _ := env.Table.Snapshot(1)
			assert.True(t, snap.Persistent)
		})
	}
}

func TestEvaluate_BadQuad(t *testing.T) {
	env := testutil.NewEnv(t)
	n := env.AddNode(t, 0, node.KindCrop, map[string]any{"quad": []float64{0, 1}})
	assert.Equal(t, status.Err, Evaluate(env.Ctx, env.Context, env.Evaluation(n, false)))
	assert.True(t, env.Table.Shape(0).IsZero())
}

func TestKernel(t *testing.T) {
	env := testutil.NewEnv(t)
	env.AddNode(t, 0, node.KindSVG, nil)
	src := testutil.Solid(4, 4, color.RGBA{A: 255})
	src.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	src.SetRGBA(1, 0, color.RGBA{R: 255, A: 255})
	src.SetRGBA(0, 1, color.RGBA{R: 255, A: 255})
	src.SetRGBA(1, 1, color.RGBA{R: 255, A: 255})
	require.NoError(t, env.Table.Upload(0, -1, src))

	n := env.AddNode(t, 1, node.KindCrop, map[string]any{"quad": []float64{0, 0, 0.5, 0.5}})
	n.Inputs[0] = 0
	e := env.Evaluation(n, false)
	require.Equal(t, status.Ok, Evaluate(env.Ctx, env.Context, e))
	require.NoError(t, Kernel(env.Ctx, env.Context, e))

	out, err := env.Table.Download(1, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Bounds().Dx())
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			assert.Equal(t, uint8(255), out.RGBAAt(x, y).R, "pixel %d,%d", x, y)
		}
	}
}

func TestParams_Region(t *testing.T) {
	p := Params{Quad: []float64{0.8, 0.6, 0.2, 0.1}}
	assert.Equal(t, gpu.Region{X0: 0.2, Y0: 0.1, X1: 0.8, Y1: 0.6}, p.Region())
}
