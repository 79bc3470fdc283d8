package pathtrace

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"math/rand/v2"
	"sync"
)

// Options configure a Renderer.
type Options struct {
	Width, Height int
	// Samples is the number of accumulated samples per pixel after which
	// the renderer reports convergence.
	Samples int
	// RowsPerStep bounds the work done by a single Step.
	RowsPerStep int
	// Seed makes the sample jitter reproducible.
	Seed uint64
}

// DefaultOptions returns the production settings.
func DefaultOptions() Options {
	return Options{
		Width:       1024,
		Height:      1024,
		Samples:     16,
		RowsPerStep: 64,
		Seed:        1,
	}
}

var errClosed = errors.New("renderer is closed")

// Renderer accumulates a shaded image of a compiled scene.
type Renderer struct {
	mu     sync.Mutex
	scene  *Scene
	opts   Options
	rng    *rand.Rand
	accum  []float64
	sample int
	row    int
	closed bool

	eye, forward, right, up vec3
	fov                     float64
}

// NewRenderer creates a renderer for s. Zero option fields fall back to
// DefaultOptions.
func NewRenderer(s *Scene, opts Options) *Renderer {
	def := DefaultOptions()
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = def.Width, def.Height
	}
	if opts.Samples <= 0 {
		opts.Samples = def.Samples
	}
	if opts.RowsPerStep <= 0 {
		opts.RowsPerStep = def.RowsPerStep
	}
	r := &Renderer{
		scene: s,
		opts:  opts,
		accum: make([]float64, opts.Width*opts.Height*3),
	}
	r.frame()
	r.Reset()
	return r
}

// frame places the camera on +Z looking at the scene bounds.
func (r *Renderer) frame() {
	center := r.scene.lo.add(r.scene.hi).scale(0.5)
	radius := r.scene.hi.sub(r.scene.lo).length() * 0.5
	if radius == 0 {
		radius = 1
	}
	r.fov = math.Pi / 4
	dist := radius / math.Sin(r.fov/2)
	r.eye = center.add(vec3{0, 0, dist})
	r.forward = center.sub(r.eye).normalize()
	r.right = r.forward.cross(vec3{0, 1, 0}).normalize()
	r.up = r.right.cross(r.forward)
}

// Reset discards the accumulated samples.
func (r *Renderer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.accum)
	r.sample, r.row = 0, 0
	r.rng = rand.New(rand.NewPCG(r.opts.Seed, r.opts.Seed^0x9e3779b97f4a7c15))
}

// Step traces the next band of rows. It reports true once every pixel has
// received the configured sample count.
func (r *Renderer) Step(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false, errClosed
	}
	if r.sample >= r.opts.Samples {
		return true, nil
	}

	w, h := r.opts.Width, r.opts.Height
	end := min(r.row+r.opts.RowsPerStep, h)
	aspect := float64(w) / float64(h)
	tan := math.Tan(r.fov / 2)
	for y := r.row; y < end; y++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		for x := 0; x < w; x++ {
			px := (2*(float64(x)+r.rng.Float64())/float64(w) - 1) * tan * aspect
			py := (1 - 2*(float64(y)+r.rng.Float64())/float64(h)) * tan
			dir := r.forward.add(r.right.scale(px)).add(r.up.scale(py)).normalize()
			c := r.shade(r.eye, dir)
			o := (y*w + x) * 3
			r.accum[o] += c[0]
			r.accum[o+1] += c[1]
			r.accum[o+2] += c[2]
		}
	}
	r.row = end
	if r.row >= h {
		r.row = 0
		r.sample++
	}
	return r.sample >= r.opts.Samples, nil
}

var lightDir = vec3{0.4, 0.8, 0.6}.normalize()

func (r *Renderer) shade(origin, dir vec3) vec3 {
	t, tri := r.scene.intersect(origin, dir)
	if tri == nil {
		// Sky gradient.
		k := 0.5 * (dir[1] + 1)
		return vec3{1, 1, 1}.scale(1 - k).add(vec3{0.5, 0.7, 1}.scale(k))
	}
	n := tri.normal
	if n.dot(dir) > 0 {
		n = n.scale(-1)
	}
	diffuse := max(n.dot(lightDir), 0)
	hit := origin.add(dir.scale(t)).add(n.scale(1e-6))
	if _, occluder := r.scene.intersect(hit, lightDir); occluder != nil {
		diffuse = 0
	}
	v := 0.1 + 0.8*diffuse
	return vec3{v, v, v}
}

// Scene returns the compiled scene the renderer was created for.
func (r *Renderer) Scene() *Scene { return r.scene }

// Size returns the dimensions of the rendered image.
func (r *Renderer) Size() (int, int) { return r.opts.Width, r.opts.Height }

// Samples returns the number of completed full-frame samples.
func (r *Renderer) Samples() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sample
}

// Image returns the current average of the completed samples. Rows of the
// sample in progress are included with their extra contribution.
func (r *Renderer) Image() image.Image {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, h := r.opts.Width, r.opts.Height
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if r.accum == nil {
		return img
	}
	for y := 0; y < h; y++ {
		n := float64(r.sample)
		if y < r.row {
			n++
		}
		if n == 0 {
			continue
		}
		for x := 0; x < w; x++ {
			o := (y*w + x) * 3
			img.SetRGBA(x, y, color.RGBA{
				R: toByte(r.accum[o] / n),
				G: toByte(r.accum[o+1] / n),
				B: toByte(r.accum[o+2] / n),
				A: 255,
			})
		}
	}
	return img
}

func toByte(v float64) uint8 {
	return uint8(math.Round(math.Min(math.Max(v, 0), 1) * 255))
}

// Close releases the accumulation buffer.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.accum = nil
}
