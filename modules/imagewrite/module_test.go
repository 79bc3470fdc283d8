package imagewrite

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/evalgraph/internal/codec"
	"github.com/vk/evalgraph/internal/node"
	"github.com/vk/evalgraph/internal/status"
	"github.com/vk/evalgraph/internal/testutil"
	"github.com/zclconf/go-cty/cty"
)

func setup(t *testing.T, values map[string]any) (*testutil.Env, *node.Node) {
	t.Helper()
	env := testutil.NewEnv(t)
	env.AddNode(t, 0, node.KindSVG, nil)
	env.Flat(t, 0, 400, 200)
	n := env.AddNode(t, 1, node.KindImageWrite, values)
	n.Inputs[0] = 0
	return env, n
}

func TestEvaluate_RatioModes(t *testing.T) {
	tests := []struct {
		name       string
		mode       int
		wantWidth  int64
		wantHeight int64
	}{
		{name: "fixed", mode: ModeFixed, wantWidth: 1024, wantHeight: 1024},
		{name: "keep width", mode: ModeKeepWidth, wantWidth: 400, wantHeight: 200},
		{name: "keep height", mode: ModeKeepHeight, wantWidth: 2048, wantHeight: 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, n := setup(t, map[string]any{"mode": tt.mode})
			require.Equal(t, status.Ok, Evaluate(env.Ctx, env.Context, env.Evaluation(n, false)))
			assert.Empty(t, env.Writer.Written(), "nothing is written without force")

			if tt.mode == ModeFixed {
				_, ok := n.Params.Get("width")
				assert.False(t, ok)
				return
			}
			w, _ := n.Params.Get("width")
			h, _ := n.Params.Get("height")
			assert.True(t, w.Equals(cty.NumberIntVal(tt.wantWidth)).True())
			assert.True(t, h.Equals(cty.NumberIntVal(tt.wantHeight)).True())
		})
	}
}

func TestEvaluate_ForcedWrites(t *testing.T) {
	env, n := setup(t, map[string]any{"filename": "out.jpg", "format": int(codec.FormatJPG), "quality": 75, "width": 40, "height": 20})
	readback := env.BindReadback()
	env.Tracker.Force(1)

	require.Equal(t, status.Ok, Evaluate(env.Ctx, env.Context, env.Evaluation(n, false)))
	written := env.Writer.Written()
	require.Len(t, written, 1)
	assert.Equal(t, "out.jpg", written[0].Path)
	assert.Equal(t, codec.FormatJPG, written[0].Format)
	assert.Equal(t, 75, written[0].Quality)
	assert.Equal(t, 40, written[0].Image.Bounds().Dx())
	assert.Equal(t, []testutil.EvaluateCall{{Target: 0, Width: 40, Height: 20}}, readback.Calls())
	assert.Contains(t, env.Logs.String(), "Image saved.")
}

func TestEvaluate_Errors(t *testing.T) {
	t.Run("write failure", func(t *testing.T) {
		env, n := setup(t, map[string]any{"filename": "out.png"})
		env.BindReadback()
		env.Writer.Err = errors.New("disk full")
		env.Tracker.Force(1)
		assert.Equal(t, status.Err, Evaluate(env.Ctx, env.Context, env.Evaluation(n, false)))
	})
	t.Run("no filename", func(t *testing.T) {
		env, n := setup(t, nil)
		env.BindReadback()
		env.Tracker.Force(1)
		assert.Equal(t, status.Err, Evaluate(env.Ctx, env.Context, env.Evaluation(n, false)))
	})
	t.Run("unknown format", func(t *testing.T) {
		env, n := setup(t, map[string]any{"format": 42})
		assert.Equal(t, status.Err, Evaluate(env.Ctx, env.Context, env.Evaluation(n, false)))
	})
	t.Run("bad parameter type", func(t *testing.T) {
		env, n := setup(t, map[string]any{"quality": "best"})
		assert.Equal(t, status.Err, Evaluate(env.Ctx, env.Context, env.Evaluation(n, false)))
	})
}
