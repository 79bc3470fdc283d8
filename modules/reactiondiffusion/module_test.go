package reactiondiffusion

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
	env := testutil.NewEnv(t)
	n := env.AddNode(t, 0, node.KindReactionDiffusion, map[string]any{"boost": 0.5, "pass_count": 4})
	require.Equal(t, status.Ok, Evaluate(env.Ctx, env.Context, env.Evaluation(n, false)))
	assert.Equal(t, gpu.Flat(256, 256), env.Table.Shape(0))

	bad := env.AddNode(t, 1, node.KindReactionDiffusion, map[string]any{"size": "huge"})
	assert.Equal(t, status.Err, Evaluate(env.Ctx, env.Context, env.Evaluation(bad, false)))
	assert.Contains(t, env.Logs.String(), "Invalid ReactionDiffusion parameters.")
}
