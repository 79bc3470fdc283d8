package testutil

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"sync"

	"github.com/vk/evalgraph/internal/codec"
	"github.com/vk/evalgraph/internal/scene"
)

// Solid returns a w by h image filled with c.
func Solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

// gate is an optional barrier fakes wait on before returning.
type gate struct {
	mu sync.Mutex
	ch chan struct{}
}

// Hold makes subsequent reads block until Release.
func (g *gate) Hold() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ch = make(chan struct{})
}

// Release unblocks held reads.
func (g *gate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ch != nil {
		close(g.ch)
		g.ch = nil
	}
}

func (g *gate) wait(ctx context.Context) error {
	g.mu.Lock()
	ch := g.ch
	g.mu.Unlock()
	if ch == nil {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FakeImages serves in-memory images by path.
type FakeImages struct {
	gate
	mu     sync.Mutex
	images map[string]image.Image
	reads  []string
}

// NewFakeImages creates an empty image reader.
func NewFakeImages() *FakeImages {
	return &FakeImages{images: make(map[string]image.Image)}
}

// Put registers img under path.
func (f *FakeImages) Put(path string, img image.Image) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images[path] = img
}

// ReadImage implements codec.ImageReader.
func (f *FakeImages) ReadImage(ctx context.Context, path string) (image.Image, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads = append(f.reads, path)
	img, ok := f.images[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, os.ErrNotExist)
	}
	return img, nil
}

// Reads returns the paths read so far.
func (f *FakeImages) Reads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.reads...)
}

// FakeScenes serves in-memory scenes by path.
type FakeScenes struct {
	gate
	mu     sync.Mutex
	scenes map[string]*scene.Scene
	reads  int
}

// NewFakeScenes creates an empty scene reader.
func NewFakeScenes() *FakeScenes {
	return &FakeScenes{scenes: make(map[string]*scene.Scene)}
}

// Put registers s under path, naming it after the path.
func (f *FakeScenes) Put(path string, s *scene.Scene) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.Name = path
	f.scenes[path] = s
}

// ReadScene implements codec.SceneReader.
func (f *FakeScenes) ReadScene(ctx context.Context, path string) (*scene.Scene, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	s, ok := f.scenes[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, os.ErrNotExist)
	}
	return s, nil
}

// Reads counts scene reads.
func (f *FakeScenes) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

// Triangle is a one-triangle scene facing +Z.
func Triangle() *scene.Scene {
	return &scene.Scene{Meshes: []*scene.Mesh{{
		Positions: [][3]float32{{-1, -1, 0}, {1, -1, 0}, {0, 1, 0}},
		Indices:   []uint32{0, 1, 2},
	}}}
}

// Written is one image handed to a RecordingWriter.
type Written struct {
	Path    string
	Image   image.Image
	Format  codec.Format
	Quality int
}

// RecordingWriter captures written images instead of encoding them.
type RecordingWriter struct {
	mu      sync.Mutex
	written []Written
	// Err, when set, is returned by every write.
	Err error
}

// WriteImage implements codec.ImageWriter.
func (w *RecordingWriter) WriteImage(_ context.Context, path string, img image.Image, format codec.Format, quality int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.Err != nil {
		return w.Err
	}
	w.written = append(w.written, Written{Path: path, Image: img, Format: format, Quality: quality})
	return nil
}

// Written returns every recorded write.
func (w *RecordingWriter) Written() []Written {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Written(nil), w.written...)
}

// FakeSVG returns a solid image sized from the requested dpi.
type FakeSVG struct {
	mu   sync.Mutex
	DPIs []float64
}

// LoadSVG implements codec.SVGLoader with a 1 inch square.
func (f *FakeSVG) LoadSVG(_ context.Context, path string, dpi float64) (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DPIs = append(f.DPIs, dpi)
	if path == "" {
		return nil, fmt.Errorf("empty path: %w", os.ErrNotExist)
	}
	side := int(dpi)
	return Solid(side, side, color.RGBA{G: 255, A: 255}), nil
}
