package codec

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ThumbnailSink receives the preview image of a graph.
type ThumbnailSink interface {
	SetThumbnail(ctx context.Context, name string, img image.Image) error
}

// FileThumbnails stores thumbnails as png files under Dir.
type FileThumbnails struct {
	Dir string
}

// SetThumbnail writes img to <Dir>/<name>.png.
func (t FileThumbnails) SetThumbnail(ctx context.Context, name string, img image.Image) error {
	if name == "" {
		return errors.New("thumbnail name is empty")
	}
	return Files{}.WriteImage(ctx, t.Path(name), img, FormatPNG, 0)
}

// Path returns where the thumbnail for name is stored.
func (t FileThumbnails) Path(name string) string {
	return filepath.Join(t.Dir, filepath.Base(name)+FormatPNG.Extension())
}

// Exists reports whether a thumbnail file is present for name.
func (t FileThumbnails) Exists(name string) bool {
	_, err := os.Stat(t.Path(name))
	return err == nil
}

// MemoryThumbnails keeps thumbnails in memory.
type MemoryThumbnails struct {
	mu     sync.Mutex
	images map[string]image.Image
}

// NewMemoryThumbnails creates an empty in-memory sink.
func NewMemoryThumbnails() *MemoryThumbnails {
	return &MemoryThumbnails{images: make(map[string]image.Image)}
}

func (t *MemoryThumbnails) SetThumbnail(ctx context.Context, name string, img image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.images[name] = img
	return nil
}

// Get returns the stored thumbnail for name.
func (t *MemoryThumbnails) Get(name string) (image.Image, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	img, ok := t.images[name]
	return img, ok
}

// Names returns the stored thumbnail names in order.
func (t *MemoryThumbnails) Names() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.images))
	for n := range t.images {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
