package resource

import (
	"context"
	"errors"
	"fmt"
	"image"
	"maps"

	"github.com/vk/evalgraph/internal/gpu"
	"github.com/vk/evalgraph/internal/params"
	"github.com/vk/evalgraph/internal/scene"
	"github.com/vk/evalgraph/internal/status"
	"github.com/zclconf/go-cty/cty"
)

// ErrNoTarget is returned for indices that have no target.
var ErrNoTarget = errors.New("no evaluation target")

// Renderer is a progressive renderer attached to a target.
type Renderer interface {
	// Step advances accumulation by one increment.
	Step(ctx context.Context) (converged bool, err error)
	// Image returns the current accumulated frame.
	Image() image.Image
	// Reset restarts accumulation.
	Reset()
	Close()
}

// State is the logical, device-independent record of one target.
type State struct {
	Shape       gpu.Shape
	Format      gpu.Format
	Blend       gpu.Blend
	DepthBuffer bool
	FrameClear  bool
	VertexSpace gpu.VertexSpace
	// Overrides maps an input slot to the source it reads from instead.
	Overrides   map[int]int
	Persistent  bool
	SceneName   string
	HasRenderer bool
	Allocated   bool
}

type target struct {
	state    State
	tex      gpu.Texture
	scene    *scene.Handle
	renderer Renderer
	params   *params.Block
	allocs   int
	epoch    uint64
}

// Table owns the evaluation targets of every node. It is not safe for
// concurrent use; only the evaluation goroutine touches it.
type Table struct {
	device  gpu.Device
	targets map[int]*target
}

// New creates an empty table backed by device.
func New(device gpu.Device) *Table {
	return &Table{
		device:  device,
		targets: make(map[int]*target),
	}
}

// Device returns the device the table allocates on.
func (t *Table) Device() gpu.Device {
	return t.device
}

// Add creates the target for node i, bound to its parameter block.
func (t *Table) Add(i int, p *params.Block) {
	if i < 0 {
		return
	}
	if old, ok := t.targets[i]; ok {
		t.release(old)
	}
	t.targets[i] = &target{
		state: State{
			Format:      gpu.FormatRGBA8,
			Blend:       gpu.BlendReplace,
			VertexSpace: gpu.VertexSpaceUV,
		},
		params: p,
	}
}

// Remove releases and forgets target i.
func (t *Table) Remove(i int) {
	if tg, ok := t.targets[i]; ok {
		t.release(tg)
		delete(t.targets, i)
	}
}

// Has reports whether target i exists.
func (t *Table) Has(i int) bool {
	_, ok := t.targets[i]
	return ok
}

func (t *Table) release(tg *target) {
	if tg.tex != nil {
		t.device.Release(tg.tex)
		tg.tex = nil
	}
	if tg.scene != nil {
		tg.scene.Release()
		tg.scene = nil
	}
	if tg.renderer != nil {
		tg.renderer.Close()
		tg.renderer = nil
	}
}

func (t *Table) lookup(i int) (*target, status.Status) {
	if i < 0 {
		return nil, status.Unset
	}
	tg, ok := t.targets[i]
	if !ok {
		return nil, status.Err
	}
	return tg, status.Ok
}

// Size returns the dimensions of a flat target. The status is Ok only when
// the target has a declared flat shape.
func (t *Table) Size(i int) (int, int, status.Status) {
	tg, st := t.lookup(i)
	if st != status.Ok {
		return 0, 0, status.Unset
	}
	if tg.state.Shape.Kind != gpu.ShapeFlat {
		return 0, 0, status.Unset
	}
	return tg.state.Shape.Width, tg.state.Shape.Height, status.Ok
}

// Shape returns the declared shape of target i.
func (t *Table) Shape(i int) gpu.Shape {
	tg, st := t.lookup(i)
	if st != status.Ok {
		return gpu.Shape{}
	}
	return tg.state.Shape
}

// SetSize declares a flat shape, reallocating only when it changed.
func (t *Table) SetSize(i, width, height int) status.Status {
	if i < 0 {
		return status.Ok
	}
	if width <= 0 || height <= 0 {
		return status.Err
	}
	return t.reshape(i, gpu.Flat(width, height), false)
}

// SetCubeSize declares a cube shape, reallocating only when it changed.
func (t *Table) SetCubeSize(i, size, mips int) status.Status {
	if i < 0 {
		return status.Ok
	}
	if size <= 0 || mips <= 0 {
		return status.Err
	}
	return t.reshape(i, gpu.Cube(size, mips), false)
}

// SetFormat changes the pixel format, reallocating an existing allocation.
func (t *Table) SetFormat(i int, f gpu.Format) status.Status {
	tg, st := t.lookup(i)
	if st != status.Ok {
		return setterStatus(st)
	}
	if tg.state.Format == f {
		return status.Ok
	}
	tg.state.Format = f
	if tg.state.Shape.IsZero() {
		return status.Ok
	}
	return t.reshape(i, tg.state.Shape, true)
}

func (t *Table) reshape(i int, shape gpu.Shape, force bool) status.Status {
	tg, st := t.lookup(i)
	if st != status.Ok {
		return setterStatus(st)
	}
	if !force && tg.state.Shape == shape && tg.tex != nil {
		return status.Ok
	}
	if tg.state.Shape != shape {
		tg.epoch++
	}
	tg.state.Shape = shape
	if tg.tex != nil {
		t.device.Release(tg.tex)
		tg.tex = nil
	}
	tex, err := t.device.Allocate(shape, tg.state.Format)
	if err != nil {
		return status.Err
	}
	tg.tex = tex
	tg.allocs++
	return status.Ok
}

// Unset releases every resource of target i and clears its shape.
func (t *Table) Unset(i int) {
	tg, st := t.lookup(i)
	if st != status.Ok {
		return
	}
	if !tg.state.Shape.IsZero() || tg.scene != nil {
		tg.epoch++
	}
	t.release(tg)
	tg.state.Shape = gpu.Shape{}
}

// Epoch changes whenever the shape or scene of target i changes. Consumers
// compare epochs to detect upstream shape changes.
func (t *Table) Epoch(i int) uint64 {
	tg, st := t.lookup(i)
	if st != status.Ok {
		return 0
	}
	return tg.epoch
}

// Allocations counts device allocations made for target i.
func (t *Table) Allocations(i int) int {
	tg, st := t.lookup(i)
	if st != status.Ok {
		return 0
	}
	return tg.allocs
}

// Texture returns the device allocation of target i, if any.
func (t *Table) Texture(i int) gpu.Texture {
	tg, st := t.lookup(i)
	if st != status.Ok {
		return nil
	}
	return tg.tex
}

// Scene returns the scene attached to target i. The status is Unset when
// there is none.
func (t *Table) Scene(i int) (*scene.Handle, status.Status) {
	tg, st := t.lookup(i)
	if st != status.Ok || tg.scene == nil {
		return nil, status.Unset
	}
	return tg.scene, status.Ok
}

// SetScene attaches a shared scene. The previous scene loses an owner and
// the new one gains one, so aliasing an input's scene never moves ownership.
func (t *Table) SetScene(i int, h *scene.Handle) status.Status {
	tg, st := t.lookup(i)
	if st != status.Ok {
		return setterStatus(st)
	}
	if tg.scene == h {
		return status.Ok
	}
	if tg.scene != nil {
		tg.scene.Release()
	}
	tg.scene = h.Acquire()
	tg.epoch++
	return status.Ok
}

// Renderer returns the progressive renderer of target i.
func (t *Table) Renderer(i int) (Renderer, status.Status) {
	tg, st := t.lookup(i)
	if st != status.Ok || tg.renderer == nil {
		return nil, status.Unset
	}
	return tg.renderer, status.Ok
}

// SetRenderer attaches r, closing any previous renderer.
func (t *Table) SetRenderer(i int, r Renderer) status.Status {
	tg, st := t.lookup(i)
	if st != status.Ok {
		return setterStatus(st)
	}
	if tg.renderer != nil && tg.renderer != r {
		tg.renderer.Close()
	}
	tg.renderer = r
	return status.Ok
}

// SetBlend sets the blend factors used when drawing into target i.
func (t *Table) SetBlend(i int, b gpu.Blend) status.Status {
	if !b.Src.Valid() || !b.Dst.Valid() {
		return status.Err
	}
	return t.mutate(i, func(s *State) { s.Blend = b })
}

// SetDepthBuffer toggles the depth buffer.
func (t *Table) SetDepthBuffer(i int, enabled bool) status.Status {
	return t.mutate(i, func(s *State) { s.DepthBuffer = enabled })
}

// SetFrameClear toggles clearing before each draw.
func (t *Table) SetFrameClear(i int, enabled bool) status.Status {
	return t.mutate(i, func(s *State) { s.FrameClear = enabled })
}

// SetVertexSpace selects UV or world projection.
func (t *Table) SetVertexSpace(i int, space gpu.VertexSpace) status.Status {
	return t.mutate(i, func(s *State) { s.VertexSpace = space })
}

// SetPersistent marks a target as kept across unchanged passes.
func (t *Table) SetPersistent(i int, persistent bool) status.Status {
	return t.mutate(i, func(s *State) { s.Persistent = persistent })
}

// OverrideInput redirects input slot to source. A negative source removes
// the override.
func (t *Table) OverrideInput(i, slot, source int) status.Status {
	if slot < 0 {
		return status.Err
	}
	return t.mutate(i, func(s *State) {
		if source < 0 {
			delete(s.Overrides, slot)
			return
		}
		if s.Overrides == nil {
			s.Overrides = make(map[int]int)
		}
		s.Overrides[slot] = source
	})
}

// Override returns the source overriding slot of target i.
func (t *Table) Override(i, slot int) (int, bool) {
	tg, st := t.lookup(i)
	if st != status.Ok {
		return 0, false
	}
	src, ok := tg.state.Overrides[slot]
	return src, ok
}

func (t *Table) mutate(i int, fn func(*State)) status.Status {
	tg, st := t.lookup(i)
	if st != status.Ok {
		return setterStatus(st)
	}
	fn(&tg.state)
	return status.Ok
}

// SetParameter writes into the parameter block of node i. It never marks
// the node dirty.
func (t *Table) SetParameter(i int, name string, value any) status.Status {
	tg, st := t.lookup(i)
	if st != status.Ok {
		return setterStatus(st)
	}
	if tg.params == nil {
		return status.Err
	}
	if v, ok := value.(cty.Value); ok {
		tg.params.Set(name, v)
		return status.Ok
	}
	if err := tg.params.SetGo(name, value); err != nil {
		return status.Err
	}
	return status.Ok
}

// Upload installs decoded pixels. face < 0 targets a flat image and reshapes
// it to the image size; face >= 0 targets a cube face and reshapes to a cube
// of the image width when needed.
func (t *Table) Upload(i, face int, img image.Image) error {
	tg, st := t.lookup(i)
	if st != status.Ok {
		return fmt.Errorf("target %d: %w", i, ErrNoTarget)
	}
	size := img.Bounds().Size()
	var want gpu.Shape
	if face < 0 {
		want = gpu.Flat(size.X, size.Y)
		face = 0
	} else {
		if face >= 6 {
			return fmt.Errorf("target %d: cube face %d out of range", i, face)
		}
		mips := 1
		if tg.state.Shape.Kind == gpu.ShapeCube {
			mips = tg.state.Shape.Mips
		}
		want = gpu.Cube(size.X, mips)
	}
	if tg.state.Shape != want || tg.tex == nil {
		if t.reshape(i, want, false) != status.Ok {
			return fmt.Errorf("target %d: failed to allocate %s", i, want)
		}
	}
	if err := t.device.Upload(tg.tex, face, img); err != nil {
		return fmt.Errorf("target %d: %w", i, err)
	}
	return nil
}

// Download reads one face of target i back into host memory.
func (t *Table) Download(i, face int) (*image.RGBA, error) {
	tg, st := t.lookup(i)
	if st != status.Ok || tg.tex == nil {
		return nil, fmt.Errorf("target %d: %w", i, ErrNoTarget)
	}
	return t.device.Download(tg.tex, face)
}

// Snapshot returns a copy of the logical state of target i.
func (t *Table) Snapshot(i int) (State, bool) {
	tg, st := t.lookup(i)
	if st != status.Ok {
		return State{}, false
	}
	s := tg.state
	s.Overrides = maps.Clone(tg.state.Overrides)
	s.SceneName = tg.scene.Name()
	s.HasRenderer = tg.renderer != nil
	s.Allocated = tg.tex != nil
	return s, true
}

// Close releases every target.
func (t *Table) Close() {
	for i, tg := range t.targets {
		t.release(tg)
		delete(t.targets, i)
	}
}

// setterStatus maps a lookup status onto a setter result: the -1 target is
// a successful no-op, unknown targets are errors.
func setterStatus(st status.Status) status.Status {
	if st == status.Unset {
		return status.Ok
	}
	return status.Err
}
