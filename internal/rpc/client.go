package rpc

import (
	"context"
	"fmt"

	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Diagnostic mirrors dvi.Diagnostic.
type Diagnostic struct {
	Code, Kind, Message, File string
	Line, Column              int
}

func (d Diagnostic) String() string {
	prefix := ""
	if d.File != "" {
		prefix = d.File + ":"
	}
	return fmt.Sprintf("%s%d:%d: %s[%s]: %s", prefix, d.Line, d.Column, d.Kind, d.Code, d.Message)
}

// Param mirrors dvi.Param.
type Param struct {
	Name, Type, Doc, Example string
}

// Source mirrors dvi.Source.
type Source struct {
	Name    string
	Text    string
	Postfix bool
}

// RenderRequest mirrors dvi.RenderRequest.
type RenderRequest struct {
	Source        Source
	Width, Height int
	Background    string
	Params        string
	Examples      bool
	Store         bool
}

// RenderReply mirrors dvi.RenderReply.
type RenderReply struct {
	ID          string
	PNG         []byte
	Trace       []string
	Diagnostics []Diagnostic
}

// Client calls a remote dvi.Renderer.
type Client struct {
	conn   *grpc.ClientConn
	schema *Schema
	owned  bool
}

// Dial connects to target without transport security.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	c, err := NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	c.owned = true
	return c, nil
}

// NewClient uses an existing connection, which Close leaves open.
func NewClient(conn *grpc.ClientConn) (*Client, error) {
	sc, err := LoadSchema()
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, schema: sc}, nil
}

func (c *Client) Close() error {
	if c.owned {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) invoke(ctx context.Context, method string, req *dynamic.Message) (*dynamic.Message, error) {
	md, err := c.schema.Method(method)
	if err != nil {
		return nil, err
	}
	resp := dynamic.NewMessage(md.GetOutputType())
	if err := c.conn.Invoke(ctx, FullMethod(method), req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) source(src Source) *dynamic.Message {
	m := c.schema.message("dvi.Source")
	m.SetFieldByName("name", src.Name)
	m.SetFieldByName("text", src.Text)
	m.SetFieldByName("postfix", src.Postfix)
	return m
}

// Check returns the diagnostics of src; none means it compiles.
func (c *Client) Check(ctx context.Context, src Source) ([]Diagnostic, error) {
	resp, err := c.invoke(ctx, "Check", c.source(src))
	if err != nil {
		return nil, err
	}
	return readDiagnostics(resp), nil
}

// Describe returns the declared parameters and their YAML export.
func (c *Client) Describe(ctx context.Context, src Source) ([]Param, string, []Diagnostic, error) {
	resp, err := c.invoke(ctx, "Describe", c.source(src))
	if err != nil {
		return nil, "", nil, err
	}
	var out []Param
	for _, v := range repeated(resp, "params") {
		out = append(out, Param{Name: str(v, "name"), Type: str(v, "type"), Doc: str(v, "doc"), Example: str(v, "example")})
	}
	return out, str(resp, "yaml"), readDiagnostics(resp), nil
}

// Render renders remotely. Compile diagnostics and runtime faults come
// back in the reply, not as an error.
func (c *Client) Render(ctx context.Context, r RenderRequest) (*RenderReply, error) {
	req := c.schema.message("dvi.RenderRequest")
	req.SetFieldByName("source", c.source(r.Source))
	req.SetFieldByName("width", int32(r.Width))
	req.SetFieldByName("height", int32(r.Height))
	req.SetFieldByName("background", r.Background)
	req.SetFieldByName("params", r.Params)
	req.SetFieldByName("examples", r.Examples)
	req.SetFieldByName("store", r.Store)

	resp, err := c.invoke(ctx, "Render", req)
	if err != nil {
		return nil, err
	}
	out := &RenderReply{ID: str(resp, "id"), Diagnostics: readDiagnostics(resp)}
	out.PNG, _ = resp.GetFieldByName("png").([]byte)
	for _, v := range resp.GetFieldByName("trace").([]interface{}) {
		out.Trace = append(out.Trace, v.(string))
	}
	return out, nil
}

func repeated(m *dynamic.Message, field string) []*dynamic.Message {
	vals, _ := m.GetFieldByName(field).([]interface{})
	out := make([]*dynamic.Message, 0, len(vals))
	for _, v := range vals {
		if dm, ok := v.(*dynamic.Message); ok {
			out = append(out, dm)
		}
	}
	return out
}

func readDiagnostics(m *dynamic.Message) []Diagnostic {
	var out []Diagnostic
	for _, d := range repeated(m, "diagnostics") {
		out = append(out, Diagnostic{
			Code:    str(d, "code"),
			Kind:    str(d, "kind"),
			Message: str(d, "message"),
			File:    str(d, "file"),
			Line:    i32(d, "line"),
			Column:  i32(d, "column"),
		})
	}
	return out
}
