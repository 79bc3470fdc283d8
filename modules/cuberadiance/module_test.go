package cuberadiance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/evalgraph/internal/gpu"
	"github.com/vk/evalgraph/internal/node"
	"github.com/vk/evalgraph/internal/status"
	"github.com/vk/evalgraph/internal/testutil"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
		source int
		want   gpu.Shape
	}{
		{name: "irradiance follows the source", params: map[string]any{"mode": ModeIrradiance}, source: 512, want: gpu.Cube(512, 10)},
		{name: "radiance follows the source", params: map[string]any{"mode": ModeRadiance}, source: 512, want: gpu.Cube(512, 1)},
		{name: "no source", params: map[string]any{"mode": ModeIrradiance}, want: gpu.Cube(128, 8)},
		{name: "explicit size ignores the source", params: map[string]any{"size": 2}, source: 512, want: gpu.Cube(512, 1)},
		{name: "size step", params: map[string]any{"size": 1, "mode": ModeIrradiance}, want: gpu.Cube(256, 9)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testutil.NewEnv(t)
			n := env.AddNode(t, 1, node.KindCubeRadiance, tt.params)
			if tt.source > 0 {
				env.AddNode(t, 0, node.KindSVG, nil)
				env.Flat(t, 0, tt.source, tt.source)
				n.Inputs[0] = 0
			}
			require.Equal(t, status.Ok, Evaluate(env.Ctx, env.Context, env.Evaluation(n, false)))
			assert.Equal(t, tt.want, env.Table.Shape(1))
		})
	}
}

func TestEvaluate_NegativeSize(t *testing.T) {
	env := testutil.NewEnv(t)
	n := env.AddNode(t, 0, node.KindCubeRadiance, map[string]any{"size": -1})
	assert.Equal(t, status.Err, Evaluate(env.Ctx, env.Context, env.Evaluation(n, false)))
}
