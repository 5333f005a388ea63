// Package window shows a preview session in a desktop window.
package window

import (
	"context"
	"image"
	"path/filepath"

	"github.com/funvibe/dvi/internal/preview"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// Run opens a window scaled by scale and blocks until it closes.
func Run(ctx context.Context, s *preview.Session, width, height, scale int) error {
	if scale <= 0 {
		scale = 1
	}
	g := &game{ctx: ctx, s: s, width: width, height: height}
	ebiten.SetWindowTitle("dvi: " + filepath.Base(s.Path))
	ebiten.SetWindowSize(width*scale, height*scale)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(s.TPS)
	return ebiten.RunGame(g)
}

type game struct {
	ctx           context.Context
	s             *preview.Session
	width, height int

	tick  uint64
	frame *image.RGBA
	img   *ebiten.Image
	err   error
}

func (g *game) Update() error {
	if err := g.ctx.Err(); err != nil {
		return ebiten.Termination
	}
	res, err := g.s.Frame(g.ctx, g.tick)
	g.tick++
	g.err = err
	if res != nil && res.Image != nil {
		g.frame = res.Image
	}
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	if g.frame != nil {
		b := g.frame.Bounds()
		if g.img == nil || g.img.Bounds().Dx() != b.Dx() || g.img.Bounds().Dy() != b.Dy() {
			if g.img != nil {
				g.img.Deallocate()
			}
			g.img = ebiten.NewImage(b.Dx(), b.Dy())
		}
		g.img.WritePixels(g.frame.Pix)
		screen.DrawImage(g.img, nil)
	}
	if g.err != nil {
		ebitenutil.DebugPrint(screen, g.err.Error())
	}
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.width, g.height
}
