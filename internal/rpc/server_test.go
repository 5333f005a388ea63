package rpc

import (
	"bytes"
	"context"
	"image/png"
	"net"
	"path/filepath"
	"strings"
	"testing"

	"github.com/funvibe/dvi/internal/tracestore"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const dots = `param count: Int = 3, "number of dots";
param ink: Color = #ff0000;
setsource <- ink;
for i in range(count) {
	circle <- (i * 10, 0), 2;
	fill <- ;
}`

func startServer(t *testing.T, opts Options) *Client {
	t.Helper()
	srv, err := NewServer(opts)
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	lis := bufconn.Listen(1 << 20)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	c, err := Dial("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCheck(t *testing.T) {
	c := startServer(t, Options{})
	ctx := context.Background()

	diags, err := c.Check(ctx, Source{Name: "ok.dvi", Text: dots})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(diags) != 0 {
		t.Errorf("expected a clean check, got %v", diags)
	}

	diags, err = c.Check(ctx, Source{Name: "bad.dvi", Text: "param n: Int = 1;\ncircle <- (0, 0), r;"})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(diags) == 0 {
		t.Fatalf("expected diagnostics")
	}
	if d := diags[0]; d.File != "bad.dvi" || d.Line != 2 || d.Code != "B001" {
		t.Errorf("unexpected diagnostic %s", d)
	}

	diags, err = c.Check(ctx, Source{Text: "1 2 + pop", Postfix: true})
	if err != nil || len(diags) != 0 {
		t.Errorf("postfix check: %v %v", err, diags)
	}
}

func TestDescribe(t *testing.T) {
	c := startServer(t, Options{})
	ps, doc, diags, err := c.Describe(context.Background(), Source{Name: "dots.dvi", Text: dots})
	if err != nil || len(diags) != 0 {
		t.Fatalf("describe: %v %v", err, diags)
	}
	if len(ps) != 2 || ps[0].Name != "count" || ps[0].Type != "Int" || ps[0].Doc != "number of dots" || ps[0].Example != "3" {
		t.Errorf("params: %+v", ps)
	}
	if !strings.Contains(doc, "name: ink") {
		t.Errorf("yaml export:\n%s", doc)
	}
}

func TestRender(t *testing.T) {
	store, err := tracestore.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "traces.db"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	defer store.Close()
	c := startServer(t, Options{Store: store})
	ctx := context.Background()

	reply, err := c.Render(ctx, RenderRequest{
		Source: Source{Name: "dots.dvi", Text: dots},
		Width:  40, Height: 10,
		Params:   "count: 2\n",
		Examples: true,
		Store:    true,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(reply.Diagnostics) != 0 {
		t.Fatalf("diagnostics: %v", reply.Diagnostics)
	}
	want := []string{"setsource #ff0000", "circle (0,0) 2", "fill", "circle (10,0) 2", "fill"}
	if strings.Join(reply.Trace, "\n") != strings.Join(want, "\n") {
		t.Errorf("trace: %q", reply.Trace)
	}
	img, err := png.Decode(bytes.NewReader(reply.PNG))
	if err != nil {
		t.Fatalf("png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 10 {
		t.Errorf("bounds %v", b)
	}

	stored, err := store.Load(ctx, reply.ID)
	if err != nil {
		t.Fatalf("stored trace: %v", err)
	}
	if stored.Source != "dots.dvi" || len(stored.Calls) != len(want) || stored.Params != "count: 2\n" {
		t.Errorf("stored: %+v", stored)
	}
}

func TestRenderReportsFaults(t *testing.T) {
	c := startServer(t, Options{})
	reply, err := c.Render(context.Background(), RenderRequest{
		Source: Source{Name: "s.dvs", Text: "1 setlinewidth\nstroke", Postfix: true},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(reply.Diagnostics) != 1 || reply.Diagnostics[0].Code != "R002" || reply.Diagnostics[0].Line != 2 {
		t.Errorf("diagnostics: %v", reply.Diagnostics)
	}
	if len(reply.Trace) != 1 || len(reply.PNG) == 0 {
		t.Errorf("a fault keeps the partial result: %q", reply.Trace)
	}
}

func TestRenderRejects(t *testing.T) {
	c := startServer(t, Options{})
	ctx := context.Background()
	cases := []RenderRequest{
		{Source: Source{Text: dots}, Width: MaxCanvas + 1},
		{Source: Source{Text: dots}, Background: "teal"},
		{Source: Source{Text: dots}, Params: "nope: 1\n"},
	}
	for i, r := range cases {
		_, err := c.Render(ctx, r)
		if status.Code(err) != codes.InvalidArgument {
			t.Errorf("case %d: expected InvalidArgument, got %v", i, err)
		}
	}
}
