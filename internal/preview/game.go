package preview

import (
	"context"
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// Options configure the preview window.
type Options struct {
	Title         string
	Width, Height int
	// TPS is the pass rate. Zero keeps ebiten's default.
	TPS int
}

// Game is the ebiten game that drives a Driver.
type Game struct {
	ctx     context.Context
	driver  *Driver
	opts    Options
	image   *ebiten.Image
	version int
	err     error
}

// NewGame wraps d. The game terminates when ctx is cancelled.
func NewGame(ctx context.Context, d *Driver, opts Options) *Game {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 768, 768
	}
	return &Game{ctx: ctx, driver: d, opts: opts}
}

// Update runs one pass per tick.
func (g *Game) Update() error {
	if g.ctx.Err() != nil {
		return ebiten.Termination
	}
	if _, err := g.driver.Step(g.ctx); err != nil {
		g.err = err
		return err
	}
	if frame := g.driver.Frame(); frame != nil && g.driver.Version() != g.version {
		b := frame.Bounds()
		if g.image == nil || g.image.Bounds().Size() != b.Size() {
			if g.image != nil {
				g.image.Deallocate()
			}
			g.image = ebiten.NewImage(b.Dx(), b.Dy())
		}
		g.image.WritePixels(frame.Pix)
		g.version = g.driver.Version()
	}
	return nil
}

// Draw fits the previewed frame into the window.
func (g *Game) Draw(screen *ebiten.Image) {
	if g.image != nil {
		sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
		iw, ih := g.image.Bounds().Dx(), g.image.Bounds().Dy()
		scale := min(float64(sw)/float64(iw), float64(sh)/float64(ih))
		var op ebiten.DrawImageOptions
		op.GeoM.Scale(scale, scale)
		op.GeoM.Translate((float64(sw)-float64(iw)*scale)/2, (float64(sh)-float64(ih)*scale)/2)
		op.Filter = ebiten.FilterLinear
		screen.DrawImage(g.image, &op)
	}
	ebitenutil.DebugPrintAt(screen, g.driver.Status(), 4, 4)
}

// Layout keeps the configured logical size.
func (g *Game) Layout(_, _ int) (int, int) {
	return g.opts.Width, g.opts.Height
}

// Run opens the window and blocks until it is closed, ctx is cancelled or
// a pass fails.
func Run(ctx context.Context, d *Driver, opts Options) error {
	g := NewGame(ctx, d, opts)
	ebiten.SetWindowTitle(g.opts.Title)
	ebiten.SetWindowSize(g.opts.Width, g.opts.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if opts.TPS > 0 {
		ebiten.SetTPS(opts.TPS)
	}
	if err := ebiten.RunGame(g); err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	return g.err
}
