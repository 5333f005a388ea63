package cli

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"image/png"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/funvibe/dvi/internal/backend"
	"github.com/funvibe/dvi/internal/config"
	"github.com/funvibe/dvi/internal/diagnostics"
	"github.com/funvibe/dvi/internal/params"
	"github.com/funvibe/dvi/internal/rpc"
	"github.com/funvibe/dvi/internal/tracestore"
	dvi "github.com/funvibe/dvi/pkg/embed"
)

// parse accepts flags before and after positional arguments, as in
// "render scene.dvi -o out.png".
func parse(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			return positional, nil
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
}

func (a *App) compile(path string) (*dvi.Program, error) {
	return dvi.CompileFile(path)
}

func (a *App) handleCheck(args []string) error {
	files, err := parse(a.flags("check"), args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errUsage
	}
	failed := false
	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var opts []dvi.CompileOption
		if dvi.IsStream(path) {
			opts = append(opts, dvi.Postfix())
		}
		ctx := dvi.Check(string(content), path, opts...)
		if ctx.Failed() {
			failed = true
			report(a.Stderr, diagnostics.List(ctx.Errors))
		}
	}
	if failed {
		return errFailed
	}
	return nil
}

func (a *App) handleFmt(args []string) error {
	fs := a.flags("fmt")
	write := fs.Bool("w", false, "write the result back to the file")
	files, err := parse(fs, args)
	if err != nil {
		return err
	}
	if len(files) != 1 {
		return errUsage
	}
	prog, err := a.compile(files[0])
	if err != nil {
		return err
	}
	out, err := prog.Format()
	if err != nil {
		return err
	}
	if *write {
		return os.WriteFile(files[0], []byte(out), 0o644)
	}
	fmt.Fprint(a.Stdout, out)
	return nil
}

func (a *App) handleDisasm(args []string) error {
	files, err := parse(a.flags("disasm"), args)
	if err != nil {
		return err
	}
	if len(files) != 1 {
		return errUsage
	}
	prog, err := a.compile(files[0])
	if err != nil {
		return err
	}
	fmt.Fprint(a.Stdout, prog.Disassemble())
	return nil
}

func (a *App) handleParams(args []string) error {
	fs := a.flags("params")
	template := fs.Bool("template", false, "print an editable environment of example values")
	files, err := parse(fs, args)
	if err != nil {
		return err
	}
	if len(files) != 1 {
		return errUsage
	}
	prog, err := a.compile(files[0])
	if err != nil {
		return err
	}
	var out []byte
	if *template {
		out, err = params.Template(prog.Params())
	} else {
		out, err = prog.DescribeParams()
	}
	if err != nil {
		return err
	}
	_, err = a.Stdout.Write(out)
	return err
}

func (a *App) handleRender(args []string) error {
	fs := a.flags("render")
	envPath := fs.String("p", "", "YAML file of parameter values")
	outPath := fs.String("o", "", "PNG output path")
	trace := fs.Bool("trace", false, "print the surface calls instead of writing a PNG, unless -o is given")
	examples := fs.Bool("examples", false, "use example values for parameters the environment omits")
	store := fs.Bool("store", false, "save the trace in the trace store")
	width := fs.Int("width", 0, "canvas width")
	height := fs.Int("height", 0, "canvas height")
	background := fs.String("bg", "", "background colour")
	files, err := parse(fs, args)
	if err != nil {
		return err
	}
	if len(files) != 1 {
		return errUsage
	}
	path := files[0]

	s, err := a.settings(sourceDir(path))
	if err != nil {
		return err
	}
	if *width > 0 {
		s.Canvas.Width = *width
	}
	if *height > 0 {
		s.Canvas.Height = *height
	}
	if *background != "" {
		s.Canvas.Background = *background
	}

	prog, err := a.compile(path)
	if err != nil {
		return err
	}
	var envData []byte
	if *envPath != "" {
		if envData, err = os.ReadFile(*envPath); err != nil {
			return err
		}
	}
	env, err := prog.LoadParams(envData, *examples)
	if err != nil {
		return err
	}

	raster, err := backend.NewRaster(s.Canvas.Width, s.Canvas.Height, s.Canvas.Background)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	start := time.Now()
	res, renderErr := prog.Render(ctx, raster, env)
	a.logger().Debug("rendered", "file", path, "calls", len(res.Calls), "elapsed", time.Since(start))

	if *trace {
		if t := res.Trace(); t != "" {
			fmt.Fprintln(a.Stdout, t)
		}
	}
	if renderErr != nil {
		return renderErr
	}

	out := *outPath
	if out == "" && !*trace {
		out = s.Output
		if out == "" {
			out = strings.TrimSuffix(path, filepath.Ext(path)) + ".png"
		}
	}
	if out != "" {
		var buf bytes.Buffer
		if err := png.Encode(&buf, res.Image); err != nil {
			return err
		}
		if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
			return err
		}
		a.logger().Info("wrote", "file", out, "width", s.Canvas.Width, "height", s.Canvas.Height)
	}

	if *store {
		st, err := a.openStore(ctx, s)
		if err != nil {
			return err
		}
		defer st.Close()
		id, err := st.Save(ctx, &tracestore.Trace{
			Source: path,
			Width:  s.Canvas.Width,
			Height: s.Canvas.Height,
			Params: string(envData),
			Calls:  res.Calls,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(a.Stdout, "trace %s\n", id)
	}
	return nil
}

func (a *App) openStore(ctx context.Context, s *config.Settings) (*tracestore.Store, error) {
	st, err := tracestore.Open(ctx, s.Store.Driver, s.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("trace store: %w", err)
	}
	return st, nil
}

func (a *App) handleDiff(args []string) error {
	ids, err := parse(a.flags("diff"), args)
	if err != nil {
		return err
	}
	if len(ids) != 2 {
		return errUsage
	}
	s, err := a.settings(".")
	if err != nil {
		return err
	}
	ctx := context.Background()
	st, err := a.openStore(ctx, s)
	if err != nil {
		return err
	}
	defer st.Close()

	var traces [2]*tracestore.Trace
	for i, id := range ids {
		if traces[i], err = st.Load(ctx, id); err != nil {
			return err
		}
	}
	changes := tracestore.Diff(traces[0].Calls, traces[1].Calls)
	fmt.Fprintln(a.Stdout, tracestore.FormatDiff(changes))
	if len(changes) > 0 {
		return errFailed
	}
	return nil
}

func (a *App) handleTraces(args []string) error {
	fs := a.flags("traces")
	limit := fs.Int("n", 20, "show at most n traces")
	remove := fs.String("rm", "", "delete the trace with this id")
	files, err := parse(fs, args)
	if err != nil {
		return err
	}
	if len(files) > 1 {
		return errUsage
	}
	s, err := a.settings(".")
	if err != nil {
		return err
	}
	ctx := context.Background()
	st, err := a.openStore(ctx, s)
	if err != nil {
		return err
	}
	defer st.Close()

	if *remove != "" {
		return st.Delete(ctx, *remove)
	}
	source := ""
	if len(files) == 1 {
		source = files[0]
	}
	list, err := st.List(ctx, source, *limit)
	if err != nil {
		return err
	}
	for _, t := range list {
		fmt.Fprintf(a.Stdout, "%s  %s  %5d  %s\n", t.ID, t.Created.Format(time.DateTime), t.Calls, t.Source)
	}
	return nil
}

func (a *App) handleServe(args []string) error {
	fs := a.flags("serve")
	addr := fs.String("addr", "", "listen address")
	noStore := fs.Bool("nostore", false, "run without a trace store")
	if _, err := parse(fs, args); err != nil {
		return err
	}
	s, err := a.settings(".")
	if err != nil {
		return err
	}
	if *addr != "" {
		s.Serve.Addr = *addr
	}

	ctx, cancel := signalContext()
	defer cancel()

	opts := rpc.Options{
		Width:      s.Canvas.Width,
		Height:     s.Canvas.Height,
		Background: s.Canvas.Background,
		Logger:     a.logger(),
	}
	if !*noStore {
		st, err := a.openStore(ctx, s)
		if err != nil {
			return err
		}
		defer st.Close()
		opts.Store = st
	}
	srv, err := rpc.NewServer(opts)
	if err != nil {
		return err
	}
	lis, err := net.Listen("tcp", s.Serve.Addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		srv.Stop()
	}()
	return srv.Serve(lis)
}
