package evaluator

import (
	"context"
	"image/color"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/evalgraph/internal/dirty"
	"github.com/vk/evalgraph/internal/evalctx"
	"github.com/vk/evalgraph/internal/gpu"
	"github.com/vk/evalgraph/internal/graph"
	"github.com/vk/evalgraph/internal/node"
	"github.com/vk/evalgraph/internal/registry"
	"github.com/vk/evalgraph/internal/status"
	"github.com/vk/evalgraph/internal/testutil"
	"github.com/zclconf/go-cty/cty"
)

type harness struct {
	env  *testutil.Env
	eval *Evaluator
}

func newHarness(t *testing.T, modules ...registry.Module) *harness {
	t.Helper()
	env := testutil.NewEnv(t)
	reg := registry.New()
	reg.RegisterAll(modules...)
	return &harness{env: env, eval: New(env.Ctx, graph.New(), reg, env.Context)}
}

func (h *harness) add(t *testing.T, kind node.Kind, name string) *node.Node {
	t.Helper()
	n, err := h.eval.AddNode(kind, name, nil)
	require.NoError(t, err)
	return n
}

func (h *harness) settle(t *testing.T) {
	t.Helper()
	_, err := h.eval.RunUntilSettled(context.Background(), 50)
	require.NoError(t, err)
}

func okEvaluate(context.Context, *evalctx.Context, *evalctx.Evaluation) status.Status {
	return status.Ok
}

// kernelLog records which targets ran their kernel in which pass.
type kernelLog struct {
	mu  sync.Mutex
	ran map[int][]int
}

func (k *kernelLog) kernel(_ context.Context, _ *evalctx.Context, e *evalctx.Evaluation) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.ran == nil {
		k.ran = make(map[int][]int)
	}
	k.ran[e.Pass] = append(k.ran[e.Pass], e.Target)
	return nil
}

func (k *kernelLog) reset() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.ran = nil
}

func TestPass_ChainSettlesOneHopPerPass(t *testing.T) {
	log := &kernelLog{}
	h := newHarness(t, &testutil.SimpleModule{Kind: node.KindCrop, Evaluate: okEvaluate, Kernel: log.kernel})

	chain := make([]*node.Node, 4)
	for i := range chain {
		chain[i] = h.add(t, node.KindCrop, "")
		if i > 0 {
			require.NoError(t, h.eval.Connect(chain[i].Index, 0, chain[i-1].Index))
		}
	}
	h.settle(t)
	log.reset()

	require.NoError(t, h.eval.SetParameter(chain[0].Index, "quad", cty.ListValEmpty(cty.Number)))
	start := h.eval.PassNumber()
	for p := 0; p < len(chain); p++ {
		_, err := h.eval.Pass(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []int{chain[p].Index}, log.ran[start+p], "pass %d", p)
		if p+1 < len(chain) {
			assert.True(t, h.env.Tracker.Pending(chain[p+1].Index).Has(dirty.UpstreamDirty))
		}
	}
	assert.True(t, h.eval.Settled())
}

func TestPass_SetSizeTwiceAllocatesOnce(t *testing.T) {
	h := newHarness(t, &testutil.SimpleModule{
		Kind: node.KindReactionDiffusion,
		Evaluate: func(_ context.Context, c *evalctx.Context, e *evalctx.Evaluation) status.Status {
			if st := c.SetEvaluationSize(e.Target, 64, 64); st != status.Ok {
				return st
			}
			return c.SetEvaluationSize(e.Target, 64, 64)
		},
	})
	n := h.add(t, node.KindReactionDiffusion, "rd")
	h.settle(t)
	assert.Equal(t, 1, h.env.Table.Allocations(n.Index))

	require.NoError(t, h.eval.Force(n.Index))
	h.settle(t)
	assert.Equal(t, 1, h.env.Table.Allocations(n.Index))
	assert.Equal(t, int64(1), h.env.Device.Live())
}

func TestPass_ProcessingSkipsKernelAndRejectsSecondDispatch(t *testing.T) {
	log := &kernelLog{}
	var flags []dirty.Flags
	var second status.Status
	h := newHarness(t, &testutil.SimpleModule{
		Kind: node.KindImageRead,
		Evaluate: func(_ context.Context, c *evalctx.Context, e *evalctx.Evaluation) status.Status {
			if !e.ParameterDirty() {
				return status.Ok
			}
			c.SetProcessing(e.Target, 1)
			if st := c.ReadImageAsync(e.Target, "a.png", -1); st != status.Ok {
				return st
			}
			second = c.ReadImageAsync(e.Target, "b.png", -1)
			return status.Ok
		},
		Kernel: func(ctx context.Context, c *evalctx.Context, e *evalctx.Evaluation) error {
			flags = append(flags, e.Dirty)
			return log.kernel(ctx, c, e)
		},
	})
	h.env.Images.Put("a.png", testutil.Solid(4, 4, color.RGBA{R: 255, A: 255}))
	h.env.Images.Put("b.png", testutil.Solid(8, 8, color.RGBA{B: 255, A: 255}))
	h.env.Images.Hold()
	d := h.add(t, node.KindImageRead, "d")
	ctx := context.Background()

	for p := 0; p < 3; p++ {
		r, err := h.eval.Pass(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, r.Processing, "pass %d", p)
		assert.Equal(t, 0, r.Kernels, "pass %d", p)
	}
	assert.Equal(t, status.Err, second)
	assert.Equal(t, dirty.Loading, h.env.Tracker.Processing(d.Index))

	h.env.Images.Release()
	require.Eventually(t, func() bool { return h.env.Jobs.Ready() == 1 }, 2*time.Second, time.Millisecond)

	r, err := h.eval.Pass(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Completions)
	assert.Equal(t, 1, r.Kernels)
	require.Len(t, flags, 1)
	assert.True(t, flags[0].Has(dirty.UpstreamDirty), "completion marks the node dirty")
	assert.Equal(t, dirty.Idle, h.env.Tracker.Processing(d.Index))

	w, hgt, st := h.env.Table.Size(d.Index)
	require.Equal(t, status.Ok, st)
	assert.Equal(t, []int{4, 4}, []int{w, hgt}, "the first job's result is installed")
	assert.Equal(t, []string{"a.png"}, h.env.Images.Reads())
	assert.True(t, h.eval.Settled())
}

func TestPass_CallbackErrKeepsTargetAndStopsPropagation(t *testing.T) {
	fail := false
	h := newHarness(t,
		&testutil.SimpleModule{
			Kind: node.KindSVG,
			Evaluate: func(_ context.Context, c *evalctx.Context, e *evalctx.Evaluation) status.Status {
				if fail {
					return status.Err
				}
				return c.SetEvaluationSize(e.Target, 32, 32)
			},
		},
		&testutil.SimpleModule{Kind: node.KindCrop, Evaluate: okEvaluate},
	)
	a := h.add(t, node.KindSVG, "a")
	b := h.add(t, node.KindCrop, "b")
	require.NoError(t, h.eval.Connect(b.Index, 0, a.Index))
	h.settle(t)
	before, _ := h.env.Table.Snapshot(a.Index)

	fail = true
	require.NoError(t, h.eval.SetParameter(a.Index, "dpi", cty.NumberIntVal(300)))
	r, err := h.eval.Pass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, r.Errors)
	assert.Equal(t, 0, r.Kernels)

	after, _ := h.env.Table.Snapshot(a.Index)
	assert.Equal(t, before, after)
	assert.Equal(t, 1, h.env.Table.Allocations(a.Index))
	assert.False(t, h.env.Tracker.Pending(b.Index).Any())
	assert.False(t, h.env.Tracker.Flags(b.Index).Any())
	assert.Contains(t, h.env.Logs.String(), "Evaluation callback failed.")
	assert.True(t, h.eval.Settled(), "a failed node is at rest")
	assert.True(t, h.env.Tracker.Flags(a.Index).Has(dirty.ParameterDirty), "the edit is kept for the retry")
}

func TestPass_FailedCallbackKeepsForcedRequest(t *testing.T) {
	fail := true
	var forced []bool
	h := newHarness(t, &testutil.SimpleModule{
		Kind: node.KindSVG,
		Evaluate: func(_ context.Context, c *evalctx.Context, e *evalctx.Evaluation) status.Status {
			forced = append(forced, e.Forced)
			if fail {
				return status.Err
			}
			return c.SetEvaluationSize(e.Target, 8, 8)
		},
	})
	a := h.add(t, node.KindSVG, "a")
	fail = false
	h.settle(t)
	forced = nil

	fail = true
	require.NoError(t, h.eval.Force(a.Index))
	r, err := h.eval.Pass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, r.Errors)
	assert.True(t, h.env.Tracker.Flags(a.Index).Has(dirty.ForcedDirty))

	fail = false
	r, err = h.eval.Pass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, r.Kernels)
	assert.Equal(t, []bool{true, true}, forced, "the retry still sees the forced request")
	assert.False(t, h.env.Tracker.Flags(a.Index).Any())
	assert.True(t, h.eval.Settled())
}

func TestPass_FailedCallbackBlocksKernelUntilOk(t *testing.T) {
	fail := true
	callbacks, kernels := 0, 0
	h := newHarness(t, &testutil.SimpleModule{
		Kind: node.KindSVG,
		Evaluate: func(_ context.Context, c *evalctx.Context, e *evalctx.Evaluation) status.Status {
			callbacks++
			if fail {
				return status.Err
			}
			return c.SetEvaluationSize(e.Target, 8, 8)
		},
		Kernel: func(context.Context, *evalctx.Context, *evalctx.Evaluation) error {
			kernels++
			return nil
		},
	})
	a := h.add(t, node.KindSVG, "a")
	h.env.Tracker.Mark(a.Index, dirty.UpstreamDirty)

	for range 3 {
		r, err := h.eval.Pass(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, r.Errors)
	}
	assert.Equal(t, 3, callbacks, "a failed callback is retried every pass")
	assert.Zero(t, kernels)
	assert.Equal(t, 1, strings.Count(h.env.Logs.String(), "Evaluation callback failed."))

	fail = false
	_, err := h.eval.Pass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, kernels)
	assert.False(t, h.env.Tracker.Failed(a.Index))
}

func TestPass_CallbackPanicIsAnError(t *testing.T) {
	h := newHarness(t, &testutil.SimpleModule{
		Kind: node.KindPhysicalSky,
		Evaluate: func(context.Context, *evalctx.Context, *evalctx.Evaluation) status.Status {
			panic("boom")
		},
	})
	h.add(t, node.KindPhysicalSky, "sky")

	r, err := h.eval.Pass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, r.Errors)
	assert.Contains(t, h.env.Logs.String(), "Evaluation callback panicked.")
}

func TestPass_MissingRequiredInput(t *testing.T) {
	calls := 0
	h := newHarness(t,
		&testutil.SimpleModule{
			Kind: node.KindImageWrite,
			Evaluate: func(context.Context, *evalctx.Context, *evalctx.Evaluation) status.Status {
				calls++
				return status.Ok
			},
		},
		&testutil.SimpleModule{Kind: node.KindSVG, Evaluate: okEvaluate},
	)
	out := h.add(t, node.KindImageWrite, "out")
	src := h.add(t, node.KindSVG, "src")

	r, err := h.eval.Pass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, r.Unresolved)
	assert.Equal(t, 0, calls)
	assert.True(t, h.env.Table.Shape(out.Index).IsZero())

	require.NoError(t, h.eval.Connect(out.Index, 0, src.Index))
	h.settle(t)
	assert.Equal(t, 1, calls)
}

func TestPass_InputShapeChangeReRunsCallback(t *testing.T) {
	size := 16
	var seen []int
	h := newHarness(t,
		&testutil.SimpleModule{
			Kind: node.KindReactionDiffusion,
			Evaluate: func(_ context.Context, c *evalctx.Context, e *evalctx.Evaluation) status.Status {
				return c.SetEvaluationSize(e.Target, size, size)
			},
		},
		&testutil.SimpleModule{
			Kind: node.KindCrop,
			Evaluate: func(_ context.Context, c *evalctx.Context, e *evalctx.Evaluation) status.Status {
				w, _, st := c.GetEvaluationSize(e.Input(0))
				if st == status.Ok {
					seen = append(seen, w)
					return c.SetEvaluationSize(e.Target, w, w)
				}
				return status.Ok
			},
		},
	)
	src := h.add(t, node.KindReactionDiffusion, "src")
	crop := h.add(t, node.KindCrop, "crop")
	require.NoError(t, h.eval.Connect(crop.Index, 0, src.Index))
	h.settle(t)
	require.Equal(t, []int{16}, seen)

	size = 32
	require.NoError(t, h.eval.SetParameter(src.Index, "size", cty.NumberIntVal(1)))
	h.settle(t)
	assert.Equal(t, []int{16, 32}, seen)
	w, _, _ := h.env.Table.Size(crop.Index)
	assert.Equal(t, 32, w)
}

func TestPass_ProgressiveRendering(t *testing.T) {
	h := newHarness(t,
		&testutil.SimpleModule{
			Kind: node.KindGLTFRead,
			Evaluate: func(_ context.Context, c *evalctx.Context, e *evalctx.Evaluation) status.Status {
				if !e.ParameterDirty() {
					return status.Ok
				}
				c.SetProcessing(e.Target, 1)
				return c.GLTFReadAsync(e.Target, "tri.gltf")
			},
		},
		&testutil.SimpleModule{
			Kind: node.KindPathTracer,
			Evaluate: func(_ context.Context, c *evalctx.Context, e *evalctx.Evaluation) status.Status {
				sc, st := c.GetEvaluationScene(e.Input(0))
				if st != status.Ok || sc == nil {
					return status.Ok
				}
				if r, _ := c.GetEvaluationRenderer(e.Target); r == nil {
					c.SetEvaluationSize(e.Target, 16, 16)
					if st := c.InitRenderer(e.Target, sc); st != status.Ok {
						return st
					}
				}
				return c.UpdateRenderer(e.Target)
			},
		},
	)
	h.env.Scenes.Put("tri.gltf", testutil.Triangle())
	src := h.add(t, node.KindGLTFRead, "mesh")
	pt := h.add(t, node.KindPathTracer, "pt")
	require.NoError(t, h.eval.Connect(pt.Index, 0, src.Index))

	h.settle(t)
	assert.Equal(t, dirty.Idle, h.env.Tracker.Processing(pt.Index))
	assert.False(t, h.env.Jobs.Tracking(pt.Index))
	snap, ok := h.env.Table.Snapshot(pt.Index)
	require.True(t, ok)
	assert.True(t, snap.HasRenderer)
	assert.Equal(t, gpu.Flat(16, 16), snap.Shape)
	assert.Equal(t, 1, h.env.Scenes.Reads())
}

func TestRunUntilSettled_GivesUp(t *testing.T) {
	h := newHarness(t, &testutil.SimpleModule{
		Kind:     node.KindPhysicalSky,
		Evaluate: okEvaluate,
		Kernel: func(_ context.Context, c *evalctx.Context, e *evalctx.Evaluation) error {
			c.Tracker().Propagate([]int{e.Target})
			return nil
		},
	})
	h.add(t, node.KindPhysicalSky, "spin")

	reports, err := h.eval.RunUntilSettled(context.Background(), 5)
	require.ErrorIs(t, err, ErrNotSettled)
	assert.Len(t, reports, 5)
}

func TestEvaluate(t *testing.T) {
	h := newHarness(t, &testutil.SimpleModule{
		Kind: node.KindSVG,
		Evaluate: func(_ context.Context, c *evalctx.Context, e *evalctx.Evaluation) status.Status {
			return c.SetEvaluationImage(e.Target, testutil.Solid(8, 8, color.RGBA{R: 255, A: 255}))
		},
	})
	n := h.add(t, node.KindSVG, "icon")
	h.settle(t)
	ctx := context.Background()

	img, err := h.eval.Evaluate(ctx, n.Index, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())
	assert.Equal(t, 2, img.Bounds().Dy())
	assert.InDelta(t, 255, int(img.RGBAAt(1, 1).R), 1)

	img, err = h.eval.Evaluate(ctx, n.Index, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())

	_, err = h.eval.Evaluate(ctx, 99, 4, 4)
	require.Error(t, err)
}

func TestEditing(t *testing.T) {
	h := newHarness(t,
		&testutil.SimpleModule{Kind: node.KindCrop, Evaluate: okEvaluate},
		&testutil.SimpleModule{Kind: node.KindSVG, Evaluate: okEvaluate},
	)
	src := h.add(t, node.KindSVG, "src")
	a := h.add(t, node.KindCrop, "a")
	b := h.add(t, node.KindCrop, "b")
	require.NoError(t, h.eval.Connect(a.Index, 0, src.Index))
	require.NoError(t, h.eval.Connect(b.Index, 0, a.Index))
	h.settle(t)

	require.ErrorIs(t, h.eval.Connect(a.Index, 0, b.Index), graph.ErrCycle)

	_, err := h.eval.AddNode(node.KindPaint3D, "unregistered", nil)
	require.Error(t, err)

	require.NoError(t, h.eval.RemoveNode(a.Index))
	assert.False(t, h.env.Table.Has(a.Index))
	assert.True(t, h.env.Tracker.Flags(b.Index).Has(dirty.ParameterDirty))
	assert.Equal(t, node.NoInput, b.Input(0))

	require.NoError(t, h.eval.Disconnect(b.Index, 0))
	require.ErrorIs(t, h.eval.Force(a.Index), graph.ErrUnknownNode)
	require.ErrorIs(t, h.eval.SetParameter(a.Index, "x", cty.True), graph.ErrUnknownNode)
	h.settle(t)
}

func TestPass_UIPassIsVisibleToCallbacks(t *testing.T) {
	var ui []bool
	h := newHarness(t, &testutil.SimpleModule{
		Kind: node.KindSVG,
		Evaluate: func(_ context.Context, _ *evalctx.Context, e *evalctx.Evaluation) status.Status {
			ui = append(ui, e.UIPass)
			return status.Ok
		},
	})
	n := h.add(t, node.KindSVG, "icon")
	h.eval.SetUIPass(true)
	h.settle(t)
	h.eval.SetUIPass(false)
	require.NoError(t, h.eval.Force(n.Index))
	h.settle(t)
	assert.Equal(t, []bool{true, false}, ui)
}

func TestObserve_RunsAfterEveryPass(t *testing.T) {
	h := newHarness(t, &testutil.SimpleModule{Kind: node.KindSVG, Evaluate: okEvaluate})
	h.add(t, node.KindSVG, "icon")

	var passes []int
	h.eval.Observe(func(_ context.Context, r PassReport) {
		passes = append(passes, r.Pass)
	})
	reports, err := h.eval.RunUntilSettled(context.Background(), 50)
	require.NoError(t, err)
	require.NotEmpty(t, reports)
	assert.Len(t, passes, len(reports))
	assert.Equal(t, 0, passes[0])
	assert.Equal(t, h.eval.PassNumber(), len(passes))
}
