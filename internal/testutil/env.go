package testutil

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vk/evalgraph/internal/codec"
	"github.com/vk/evalgraph/internal/ctxlog"
	"github.com/vk/evalgraph/internal/dirty"
	"github.com/vk/evalgraph/internal/evalctx"
	"github.com/vk/evalgraph/internal/gpu"
	"github.com/vk/evalgraph/internal/jobs"
	"github.com/vk/evalgraph/internal/node"
	"github.com/vk/evalgraph/internal/params"
	"github.com/vk/evalgraph/internal/pathtrace"
	"github.com/vk/evalgraph/internal/resource"
)

// Env is an evaluation session on the CPU device with fake collaborators.
type Env struct {
	Ctx        context.Context
	Logs       *SafeBuffer
	Device     *gpu.CPUDevice
	Table      *resource.Table
	Tracker    *dirty.Tracker
	Jobs       *jobs.Scheduler
	Images     *FakeImages
	Scenes     *FakeScenes
	Writer     *RecordingWriter
	SVG        *FakeSVG
	Thumbnails *codec.MemoryThumbnails
	Context    *evalctx.Context
}

// SmallRenderer keeps path tracing in tests to a single cheap sample.
var SmallRenderer = pathtrace.Options{Width: 16, Height: 16, Samples: 1, RowsPerStep: 16, Seed: 1}

// NewEnv builds a session whose scheduler is closed when the test ends.
func NewEnv(t *testing.T) *Env {
	t.Helper()
	logs := &SafeBuffer{}
	ctx := ctxlog.WithLogger(context.Background(), logs.Logger())

	e := &Env{
		Ctx:        ctx,
		Logs:       logs,
		Device:     gpu.NewCPUDevice(),
		Tracker:    dirty.New(),
		Jobs:       jobs.New(ctx, 2),
		Images:     NewFakeImages(),
		Scenes:     NewFakeScenes(),
		Writer:     &RecordingWriter{},
		SVG:        &FakeSVG{},
		Thumbnails: codec.NewMemoryThumbnails(),
	}
	e.Table = resource.New(e.Device)
	e.Context = evalctx.New(ctx, e.Table, e.Tracker, e.Jobs, evalctx.Collaborators{
		Images:     e.Images,
		Writer:     e.Writer,
		Scenes:     e.Scenes,
		SVG:        e.SVG,
		Thumbnails: e.Thumbnails,
	}, evalctx.Options{RendererSize: 16, Renderer: SmallRenderer})

	t.Cleanup(func() {
		e.Images.Release()
		e.Scenes.Release()
		_ = e.Jobs.Close()
		e.Table.Close()
	})
	return e
}

// AddNode creates a node of kind at index i with its target and dirty record.
func (e *Env) AddNode(t *testing.T, i int, kind node.Kind, values map[string]any) *node.Node {
	t.Helper()
	p, err := params.FromGo(values)
	require.NoError(t, err)
	n := node.New(i, kind, kind.String(), p)
	e.Table.Add(i, p)
	e.Tracker.Add(i)
	return n
}

// Evaluation builds the record a pass would hand to the callback of n.
func (e *Env) Evaluation(n *node.Node, uiPass bool) *evalctx.Evaluation {
	return evalctx.NewEvaluation(n, e.Tracker.Flags(n.Index), uiPass, 0)
}

// Flat uploads a w by h image into target i.
func (e *Env) Flat(t *testing.T, i, w, h int) {
	t.Helper()
	require.NoError(t, e.Table.Upload(i, -1, image.NewRGBA(image.Rect(0, 0, w, h))))
}

// WaitJobs blocks until every dispatched job has posted its completion,
// then drains them.
func (e *Env) WaitJobs(t *testing.T) []jobs.Completion {
	t.Helper()
	require.Eventually(t, func() bool {
		return e.Jobs.Ready() == e.Jobs.Pending()
	}, 2*time.Second, time.Millisecond)
	return e.Jobs.Drain()
}

// Apply runs the install step of each successful completion and returns
// the nodes to idle, as the evaluator does at the start of a pass.
func (e *Env) Apply(t *testing.T, completions []jobs.Completion) {
	t.Helper()
	for _, c := range completions {
		if c.Install != nil {
			require.NoError(t, c.Install())
		}
		if c.Final {
			e.Tracker.SetProcessing(c.Index, dirty.Idle)
		}
	}
}
