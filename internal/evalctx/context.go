package evalctx

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/vk/evalgraph/internal/codec"
	"github.com/vk/evalgraph/internal/ctxlog"
	"github.com/vk/evalgraph/internal/dirty"
	"github.com/vk/evalgraph/internal/gpu"
	"github.com/vk/evalgraph/internal/jobs"
	"github.com/vk/evalgraph/internal/pathtrace"
	"github.com/vk/evalgraph/internal/resource"
	"github.com/vk/evalgraph/internal/scene"
	"github.com/vk/evalgraph/internal/status"
)

// ErrNoEvaluator is returned by Evaluate before an evaluator is bound.
var ErrNoEvaluator = errors.New("no evaluator bound to context")

// Collaborators are the external readers and writers callbacks reach.
// Nil members make the matching operations fail with status.Err.
type Collaborators struct {
	Images     codec.ImageReader
	Writer     codec.ImageWriter
	Scenes     codec.SceneReader
	SVG        codec.SVGLoader
	Thumbnails codec.ThumbnailSink
}

// DefaultCollaborators returns the file-system implementations from codec.
func DefaultCollaborators(thumbnails codec.ThumbnailSink) Collaborators {
	files := codec.NewFiles()
	return Collaborators{
		Images:     files,
		Writer:     files,
		Scenes:     codec.NewGLTF(),
		SVG:        codec.NewSVG(),
		Thumbnails: thumbnails,
	}
}

// Evaluator renders a target synchronously at a requested size.
type Evaluator interface {
	Evaluate(ctx context.Context, target, width, height int) (*image.RGBA, error)
}

// Options tune the context.
type Options struct {
	// RendererSize is used by InitRenderer when the target has no flat size yet.
	RendererSize int
	Renderer     pathtrace.Options
}

// DefaultOptions returns the production settings.
func DefaultOptions() Options {
	return Options{
		RendererSize: 1024,
		Renderer:     pathtrace.DefaultOptions(),
	}
}

// Context is the evaluation session shared by all callbacks. It is only
// used from the evaluation goroutine.
type Context struct {
	table   *resource.Table
	tracker *dirty.Tracker
	jobs    *jobs.Scheduler
	io      Collaborators
	opts    Options
	logger  *slog.Logger

	evaluator Evaluator
	compiled  map[*scene.Scene]*pathtrace.Scene
}

// New creates a session context. The logger is taken from ctx.
func New(ctx context.Context, table *resource.Table, tracker *dirty.Tracker, scheduler *jobs.Scheduler, io Collaborators, opts Options) *Context {
	if opts.RendererSize <= 0 {
		opts.RendererSize = DefaultOptions().RendererSize
	}
	return &Context{
		table:    table,
		tracker:  tracker,
		jobs:     scheduler,
		io:       io,
		opts:     opts,
		logger:   ctxlog.FromContext(ctx),
		compiled: make(map[*scene.Scene]*pathtrace.Scene),
	}
}

// Bind attaches the evaluator used by Evaluate.
func (c *Context) Bind(e Evaluator) {
	c.evaluator = e
}

// Table exposes the resource table to the evaluator and kernels.
func (c *Context) Table() *resource.Table { return c.table }

// Tracker exposes the dirty tracker to the evaluator.
func (c *Context) Tracker() *dirty.Tracker { return c.tracker }

// Jobs exposes the scheduler to the evaluator.
func (c *Context) Jobs() *jobs.Scheduler { return c.jobs }

// Log returns the session logger.
func (c *Context) Log() *slog.Logger { return c.logger }

// GetEvaluationSize reports the flat size of target i.
func (c *Context) GetEvaluationSize(i int) (int, int, status.Status) {
	return c.table.Size(i)
}

// SetEvaluationSize declares a flat output of width by height.
func (c *Context) SetEvaluationSize(i, width, height int) status.Status {
	return c.table.SetSize(i, width, height)
}

// SetEvaluationCubeSize declares a cube output.
func (c *Context) SetEvaluationCubeSize(i, size, mips int) status.Status {
	return c.table.SetCubeSize(i, size, mips)
}

// SetEvaluationPersistent keeps target i across unchanged passes.
func (c *Context) SetEvaluationPersistent(i int, persistent bool) status.Status {
	return c.table.SetPersistent(i, persistent)
}

// GetEvaluationScene returns the scene attached to target i. The handle is
// nil with status Ok when the target exists and has no scene.
func (c *Context) GetEvaluationScene(i int) (*scene.Handle, status.Status) {
	if i < 0 {
		return nil, status.Unset
	}
	if !c.table.Has(i) {
		return nil, status.Err
	}
	h, _ := c.table.Scene(i)
	return h, status.Ok
}

// SetEvaluationScene makes target i share h.
func (c *Context) SetEvaluationScene(i int, h *scene.Handle) status.Status {
	return c.table.SetScene(i, h)
}

// GetEvaluationSceneName is the source name of the scene of target i.
func (c *Context) GetEvaluationSceneName(i int) string {
	h, _ := c.table.Scene(i)
	return h.Name()
}

// GetEvaluationRTScene returns the ray-tracing form of the scene attached
// to target i, compiling it once per loaded scene.
func (c *Context) GetEvaluationRTScene(i int) (*pathtrace.Scene, status.Status) {
	h, st := c.table.Scene(i)
	if st != status.Ok {
		return nil, status.Err
	}
	rt, err := c.compile(h)
	if err != nil {
		c.logger.Warn("Failed to compile scene for ray tracing.", "node", i, "scene", h.Name(), "error", err)
		return nil, status.Err
	}
	return rt, status.Ok
}

func (c *Context) compile(h *scene.Handle) (*pathtrace.Scene, error) {
	s := h.Scene()
	if s == nil {
		return nil, pathtrace.ErrEmptyScene
	}
	if rt, ok := c.compiled[s]; ok {
		return rt, nil
	}
	rt, err := pathtrace.Compile(s)
	if err != nil {
		return nil, err
	}
	c.compiled[s] = rt
	return rt, nil
}

// forget drops the compiled form of a released scene.
func (c *Context) forget(s *scene.Scene) {
	delete(c.compiled, s)
}

// GetEvaluationRenderer returns the renderer of target i, nil with status
// Ok when none is attached yet.
func (c *Context) GetEvaluationRenderer(i int) (resource.Renderer, status.Status) {
	if i < 0 {
		return nil, status.Unset
	}
	if !c.table.Has(i) {
		return nil, status.Err
	}
	r, _ := c.table.Renderer(i)
	return r, status.Ok
}

// InitRenderer attaches a progressive renderer for h to target i, sized
// like the target or RendererSize square when it has no flat size.
func (c *Context) InitRenderer(i int, h *scene.Handle) status.Status {
	if !c.table.Has(i) {
		return status.Err
	}
	rt, err := c.compile(h)
	if err != nil {
		c.logger.Warn("Failed to initialize renderer.", "node", i, "error", err)
		return status.Err
	}
	opts := c.opts.Renderer
	if w, hgt, st := c.table.Size(i); st == status.Ok {
		opts.Width, opts.Height = w, hgt
	} else {
		opts.Width, opts.Height = c.opts.RendererSize, c.opts.RendererSize
	}
	return c.table.SetRenderer(i, pathtrace.NewRenderer(rt, opts))
}

// UpdateRenderer restarts accumulation of the renderer of target i and
// marks the node rendering until it converges.
func (c *Context) UpdateRenderer(i int) status.Status {
	r, st := c.table.Renderer(i)
	if st != status.Ok {
		return status.Err
	}
	r.Reset()
	c.jobs.Track(i, &progressiveRender{index: i, renderer: r, table: c.table})
	c.tracker.SetProcessing(i, dirty.Rendering)
	return status.Ok
}

type progressiveRender struct {
	index    int
	renderer resource.Renderer
	table    *resource.Table
}

func (p *progressiveRender) Step(ctx context.Context) (bool, error) {
	return p.renderer.Step(ctx)
}

func (p *progressiveRender) Present() jobs.Install {
	img := p.renderer.Image()
	return func() error {
		return p.table.Upload(p.index, -1, img)
	}
}

// SetProcessing sets the processing level of node i: 0 idle, 1 loading,
// 2 rendering.
func (c *Context) SetProcessing(i, level int) status.Status {
	if i < 0 {
		return status.Ok
	}
	if !c.table.Has(i) || level < int(dirty.Idle) || level > int(dirty.Rendering) {
		return status.Err
	}
	c.tracker.SetProcessing(i, dirty.Level(level))
	return status.Ok
}

// SetBlendingMode sets the blend factors of target i.
func (c *Context) SetBlendingMode(i int, src, dst gpu.BlendFactor) status.Status {
	return c.table.SetBlend(i, gpu.Blend{Src: src, Dst: dst})
}

// OverrideInput makes slot of target i read from source; -1 removes it.
func (c *Context) OverrideInput(i, slot, source int) status.Status {
	return c.table.OverrideInput(i, slot, source)
}

// SetVertexSpace selects UV or world projection for target i.
func (c *Context) SetVertexSpace(i int, space gpu.VertexSpace) status.Status {
	return c.table.SetVertexSpace(i, space)
}

// EnableDepthBuffer toggles the depth buffer of target i.
func (c *Context) EnableDepthBuffer(i int, enabled bool) status.Status {
	return c.table.SetDepthBuffer(i, enabled)
}

// EnableFrameClear toggles clearing target i before each kernel run.
func (c *Context) EnableFrameClear(i int, enabled bool) status.Status {
	return c.table.SetFrameClear(i, enabled)
}

// SetParameter writes a value back into the parameter block of node i
// without marking it dirty.
func (c *Context) SetParameter(i int, name string, value any) status.Status {
	return c.table.SetParameter(i, name, value)
}

// SetEvaluationImage installs img as the flat content of target i.
func (c *Context) SetEvaluationImage(i int, img image.Image) status.Status {
	if i < 0 {
		return status.Ok
	}
	if img == nil {
		return status.Err
	}
	if err := c.table.Upload(i, -1, img); err != nil {
		c.logger.Warn("Failed to install image.", "node", i, "error", err)
		return status.Err
	}
	return status.Ok
}

// Evaluate renders target i at width by height for export.
func (c *Context) Evaluate(ctx context.Context, i, width, height int) (*image.RGBA, status.Status) {
	if c.evaluator == nil {
		c.logger.Warn("Evaluate called without an evaluator.", "node", i, "error", ErrNoEvaluator)
		return nil, status.Err
	}
	img, err := c.evaluator.Evaluate(ctx, i, width, height)
	if err != nil {
		c.logger.Warn("Failed to evaluate target.", "node", i, "width", width, "height", height, "error", err)
		return nil, status.Err
	}
	return img, status.Ok
}

func (c *Context) dispatch(i int, name string, work jobs.Work) status.Status {
	if i < 0 {
		return status.Ok
	}
	if !c.table.Has(i) {
		return status.Err
	}
	if err := c.jobs.Dispatch(i, name, work); err != nil {
		return status.Err
	}
	return status.Ok
}

// ReadImageAsync loads path on a worker and installs it into target i.
// face -1 installs a flat image, 0 to 5 a cube face.
func (c *Context) ReadImageAsync(i int, path string, face int) status.Status {
	if c.io.Images == nil || face < -1 || face >= 6 {
		return status.Err
	}
	reader := c.io.Images
	return c.dispatch(i, "read image "+path, func(ctx context.Context) (jobs.Install, error) {
		img, err := reader.ReadImage(ctx, path)
		if err != nil {
			return nil, err
		}
		return func() error { return c.table.Upload(i, face, img) }, nil
	})
}

// ReadCubemapAsync loads the six faces of a cube map in one job. paths are
// indexed by the gpu.Face constants.
func (c *Context) ReadCubemapAsync(i int, paths [6]string) status.Status {
	if c.io.Images == nil {
		return status.Err
	}
	for _, p := range paths {
		if p == "" {
			return status.Err
		}
	}
	reader := c.io.Images
	return c.dispatch(i, "read cubemap", func(ctx context.Context) (jobs.Install, error) {
		var faces [6]image.Image
		for f, p := range paths {
			img, err := reader.ReadImage(ctx, p)
			if err != nil {
				return nil, fmt.Errorf("face %d: %w", f, err)
			}
			faces[f] = img
		}
		size := faces[0].Bounds().Size()
		for f, img := range faces {
			s := img.Bounds().Size()
			if s.X != s.Y || s != size {
				return nil, fmt.Errorf("face %d: expected %dx%d square, got %dx%d", f, size.X, size.X, s.X, s.Y)
			}
		}
		return func() error {
			for f, img := range faces {
				if err := c.table.Upload(i, f, img); err != nil {
					return err
				}
			}
			return nil
		}, nil
	})
}

// GLTFReadAsync loads a scene on a worker and attaches it to target i.
func (c *Context) GLTFReadAsync(i int, path string) status.Status {
	if c.io.Scenes == nil {
		return status.Err
	}
	reader := c.io.Scenes
	return c.dispatch(i, "read scene "+path, func(ctx context.Context) (jobs.Install, error) {
		s, err := reader.ReadScene(ctx, path)
		if err != nil {
			return nil, err
		}
		return func() error {
			if st := c.table.SetScene(i, scene.NewHandle(s, c.forget)); st != status.Ok {
				return fmt.Errorf("target %d: %w", i, resource.ErrNoTarget)
			}
			return nil
		}, nil
	})
}

// ReadImage decodes path synchronously.
func (c *Context) ReadImage(ctx context.Context, path string) (image.Image, status.Status) {
	if c.io.Images == nil {
		return nil, status.Err
	}
	img, err := c.io.Images.ReadImage(ctx, path)
	if err != nil {
		c.logger.Warn("Failed to read image.", "path", path, "error", err)
		return nil, status.Err
	}
	return img, status.Ok
}

// WriteImage encodes img to path.
func (c *Context) WriteImage(ctx context.Context, path string, img image.Image, format codec.Format, quality int) status.Status {
	if c.io.Writer == nil {
		return status.Err
	}
	if err := c.io.Writer.WriteImage(ctx, path, img, format, quality); err != nil {
		c.logger.Warn("Failed to write image.", "path", path, "format", format.String(), "error", err)
		return status.Err
	}
	return status.Ok
}

// LoadSVG rasterizes path at dpi.
func (c *Context) LoadSVG(ctx context.Context, path string, dpi float64) (image.Image, status.Status) {
	if c.io.SVG == nil {
		return nil, status.Err
	}
	img, err := c.io.SVG.LoadSVG(ctx, path, dpi)
	if err != nil {
		c.logger.Warn("Failed to load svg.", "path", path, "error", err)
		return nil, status.Err
	}
	return img, status.Ok
}

// SetThumbnailImage hands img to the thumbnail sink under name.
func (c *Context) SetThumbnailImage(ctx context.Context, name string, img image.Image) status.Status {
	if c.io.Thumbnails == nil {
		return status.Err
	}
	if err := c.io.Thumbnails.SetThumbnail(ctx, name, img); err != nil {
		c.logger.Warn("Failed to store thumbnail.", "name", name, "error", err)
		return status.Err
	}
	return status.Ok
}
