package paint3d

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/evalgraph/internal/gpu"
	"github.com/vk/evalgraph/internal/node"
	"github.com/vk/evalgraph/internal/resource"
	"github.com/vk/evalgraph/internal/scene"
	"github.com/vk/evalgraph/internal/status"
	"github.com/vk/evalgraph/internal/testutil"
)

func TestEvaluate_RenderState(t *testing.T) {
	env := testutil.NewEnv(t)
	n := env.AddNode(t, 0, node.KindPaint3D, nil)

	require.Equal(t, status.Ok, Evaluate(env.Ctx, env.Context, env.Evaluation(n, true)))
	got, _ := env.Table.Snapshot(0)
	want := resource.State{
		Format:      gpu.FormatRGBA8,
		Blend:       gpu.BlendReplace,
		DepthBuffer: true,
		FrameClear:  true,
		VertexSpace: gpu.VertexSpaceWorld,
		Overrides:   map[int]int{0: 0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ui pass state mismatch (-want +got):\n%s", diff)
	}

	require.Equal(t, status.Ok, Evaluate(env.Ctx, env.Context, env.Evaluation(n, false)))
	got, _ = env.Table.Snapshot(0)
	assert.Equal(t, gpu.BlendPremultipliedOver, got.Blend)
	assert.Equal(t, gpu.VertexSpaceUV, got.VertexSpace)
	assert.False(t, got.DepthBuffer)
	assert.False(t, got.FrameClear)
	_, overridden := env.Table.Override(0, 0)
	assert.False(t, overridden)
}

func TestEvaluate_SharesInputScene(t *testing.T) {
	env := testutil.NewEnv(t)
	env.AddNode(t, 0, node.KindGLTFRead, nil)
	h := scene.NewHandle(testutil.Triangle(), nil)
	require.Equal(t, status.Ok, env.Table.SetScene(0, h))
	n := env.AddNode(t, 1, node.KindPaint3D, nil)
	n.Inputs[0] = 0

	require.Equal(t, status.Ok, Evaluate(env.Ctx, env.Context, env.Evaluation(n, false)))
	got, _ := env.Table.Scene(1)
	assert.Same(t, h, got)
	assert.Equal(t, 2, h.Refs())

	require.Equal(t, status.Ok, Evaluate(env.Ctx, env.Context, env.Evaluation(n, false)))
	assert.Equal(t, 2, h.Refs(), "re-sharing the same scene keeps one reference")
}
