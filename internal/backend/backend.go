// Package backend renders compiled chunks onto concrete surfaces.
// This allows switching between a bare call trace and a raster image.
package backend

import (
	"context"
	"fmt"
	"image"

	"github.com/funvibe/dvi/internal/params"
	"github.com/funvibe/dvi/internal/surface"
	"github.com/funvibe/dvi/internal/vm"
)

// Result is the output of one render.
type Result struct {
	Calls []surface.Call

	// Image is nil for backends that only trace.
	Image *image.RGBA
}

// Trace renders the result calls one per line.
func (r *Result) Trace() string { return surface.FormatTrace(r.Calls) }

// Backend is the interface for render targets
type Backend interface {
	// Render runs chunk once against env. Calls made before a fault are
	// kept in the result.
	Render(ctx context.Context, chunk *vm.Chunk, env vm.Env) (*Result, error)

	// Name returns the backend name for display
	Name() string
}

// Tracer records surface calls and draws nothing.
type Tracer struct {
	Options []vm.Option
}

func NewTracer(opts ...vm.Option) *Tracer { return &Tracer{Options: opts} }

func (b *Tracer) Name() string { return "trace" }

func (b *Tracer) Render(ctx context.Context, chunk *vm.Chunk, env vm.Env) (*Result, error) {
	rec := surface.NewRecorder()
	err := vm.New(chunk, rec, b.Options...).Run(ctx, env)
	return &Result{Calls: rec.Calls}, err
}

// Raster draws into a fresh Width by Height image and records the calls
// alongside.
type Raster struct {
	Width, Height int
	Background    surface.Color
	Options       []vm.Option
}

// NewRaster parses background as a colour literal such as #ffffff.
func NewRaster(width, height int, background string, opts ...vm.Option) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("canvas must be positive, got %dx%d", width, height)
	}
	bg, err := ParseBackground(background)
	if err != nil {
		return nil, err
	}
	return &Raster{Width: width, Height: height, Background: bg, Options: opts}, nil
}

func (b *Raster) Name() string { return "raster" }

func (b *Raster) Render(ctx context.Context, chunk *vm.Chunk, env vm.Env) (*Result, error) {
	rec := surface.NewRecorder()
	canvas := surface.NewRaster(b.Width, b.Height, b.Background)
	err := vm.New(chunk, surface.Tee{rec, canvas}, b.Options...).Run(ctx, env)
	return &Result{Calls: rec.Calls, Image: canvas.Image()}, err
}

// ParseBackground reads #rgb, #rrggbb or #rrggbbaa. An empty string is
// opaque white.
func ParseBackground(s string) (surface.Color, error) {
	if s == "" {
		return surface.Color{R: 1, G: 1, B: 1, A: 1}, nil
	}
	c, ok := params.ParseColor(s)
	if !ok {
		return surface.Color{}, fmt.Errorf("bad background colour %q", s)
	}
	return surface.Color{R: c.R, G: c.G, B: c.B, A: c.A}, nil
}
