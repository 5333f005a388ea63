// Package preview drives live re-rendering of one source file: a Session
// owns the current program and renders a frame per tick, feeding the
// elapsed time to programs that declare a time parameter.
package preview

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/funvibe/dvi/internal/backend"
	"github.com/funvibe/dvi/internal/config"
	"github.com/funvibe/dvi/internal/object"
	"github.com/funvibe/dvi/internal/params"
	"github.com/funvibe/dvi/internal/typesystem"
	"github.com/funvibe/dvi/internal/vm"
	"github.com/funvibe/dvi/internal/watch"
	dvi "github.com/funvibe/dvi/pkg/embed"
)

// TimeParam is offered to command streams, which cannot declare
// parameters themselves.
var TimeParam = vm.ParamSpec{
	Name:    config.TimeParamName,
	Type:    typesystem.Float,
	Example: &object.Float{Value: 0},
	Doc:     "seconds since the preview started",
}

// Session re-renders Path on demand. Reload and Frame may be called from
// different goroutines.
type Session struct {
	Path string
	TPS  int

	raster *backend.Raster
	log    *slog.Logger

	mu   sync.Mutex
	prog      *dvi.Program
	base      vm.Env
	loadErr   error
	renderErr error
}

// NewSession compiles path once. A compile error is returned, but the
// session is still usable and picks the file up again on Reload.
func NewSession(path string, s *config.Settings, log *slog.Logger) (*Session, error) {
	raster, err := backend.NewRaster(s.Canvas.Width, s.Canvas.Height, s.Canvas.Background)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	tps := s.Preview.TPS
	if tps <= 0 {
		tps = config.DefaultTPS
	}
	sess := &Session{Path: path, TPS: tps, raster: raster, log: log}
	return sess, sess.Reload()
}

// Reload recompiles the file. On failure the previous program keeps
// rendering and Err reports the failure.
func (s *Session) Reload() error {
	var opts []dvi.CompileOption
	if dvi.IsStream(s.Path) {
		opts = append(opts, dvi.HostParams(TimeParam))
	}
	prog, err := dvi.CompileFile(s.Path, opts...)
	var base vm.Env
	if err == nil {
		base = params.Examples(prog.Params())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadErr = err
	if err != nil {
		s.log.Warn("reload failed", "file", s.Path, "err", err)
		return err
	}
	s.prog, s.base = prog, base
	s.log.Info("reloaded", "file", s.Path, "params", len(prog.Params()))
	return nil
}

// Err reports a failed reload until the file compiles again, otherwise
// the error of the last frame.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return s.loadErr
	}
	return s.renderErr
}

// Elapsed converts a tick count to wall time at the session's rate.
func (s *Session) Elapsed(tick uint64) time.Duration {
	return time.Duration(tick) * time.Second / time.Duration(s.TPS)
}

// Frame renders the current program at tick. It returns nil when no
// program has compiled yet.
func (s *Session) Frame(ctx context.Context, tick uint64) (*backend.Result, error) {
	s.mu.Lock()
	prog, base := s.prog, s.base
	s.mu.Unlock()
	if prog == nil {
		return nil, s.Err()
	}

	env := maps.Clone(base)
	if spec, ok := prog.Chunk.Param(config.TimeParamName); ok {
		env[spec.Name] = TimeValue(spec, s.Elapsed(tick))
	}
	res, err := prog.Render(ctx, s.raster, env)

	s.mu.Lock()
	if prog == s.prog {
		s.renderErr = err
	}
	s.mu.Unlock()
	return res, err
}

// TimeValue is elapsed seconds as a Float, or whole seconds when the
// parameter only admits integers.
func TimeValue(spec vm.ParamSpec, elapsed time.Duration) object.Object {
	f := &object.Float{Value: elapsed.Seconds()}
	if spec.Type == nil || spec.Type.Contains(f) {
		return f
	}
	return &object.Integer{Value: int64(elapsed / time.Second)}
}

// Watch reloads the session whenever its file changes.
func (s *Session) Watch(debounce time.Duration) (*watch.Watcher, error) {
	return watch.New(s.Path, debounce, func(string) { s.Reload() })
}

// RunHeadless renders ticks frames at the session rate without a window,
// calling onFrame after each. ticks of zero runs until ctx is done.
func RunHeadless(ctx context.Context, s *Session, ticks uint64, onFrame func(tick uint64, res *backend.Result, err error)) error {
	t := time.NewTicker(time.Second / time.Duration(s.TPS))
	defer t.Stop()

	var tick uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			res, err := s.Frame(ctx, tick)
			if onFrame != nil {
				onFrame(tick, res, err)
			}
			tick++
			if ticks > 0 && tick >= ticks {
				return nil
			}
		}
	}
}
