package rpc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"net"
	"time"

	"github.com/funvibe/dvi/internal/backend"
	"github.com/funvibe/dvi/internal/config"
	"github.com/funvibe/dvi/internal/diagnostics"
	"github.com/funvibe/dvi/internal/params"
	"github.com/funvibe/dvi/internal/tracestore"
	dvi "github.com/funvibe/dvi/pkg/embed"

	"github.com/google/uuid"
	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/protoadapt"
)

// MaxCanvas bounds each side of a requested canvas.
const MaxCanvas = 4096

// Options configures a Server. Zero values fall back to the defaults in
// config.
type Options struct {
	Width, Height int
	Background    string

	// Store keeps traces of renders that ask for it; nil disables storing.
	Store  *tracestore.Store
	Logger *slog.Logger

	// Timeout bounds a single render.
	Timeout time.Duration
}

// Server implements dvi.Renderer.
type Server struct {
	opts   Options
	schema *Schema
	log    *slog.Logger
	grpc   *grpc.Server
}

type unaryMethod func(ctx context.Context, in *dynamic.Message) (*dynamic.Message, error)

// NewServer builds the service and registers it on a fresh grpc.Server.
func NewServer(opts Options, grpcOpts ...grpc.ServerOption) (*Server, error) {
	sc, err := LoadSchema()
	if err != nil {
		return nil, err
	}
	if opts.Width <= 0 {
		opts.Width = config.DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = config.DefaultHeight
	}
	if opts.Background == "" {
		opts.Background = config.DefaultBackground
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	s := &Server{opts: opts, schema: sc, log: opts.Logger}
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}

	grpcOpts = append(grpcOpts, grpc.ChainUnaryInterceptor(s.logCalls))
	s.grpc = grpc.NewServer(grpcOpts...)

	methods := map[string]unaryMethod{
		"Check":    s.check,
		"Describe": s.describe,
		"Render":   s.render,
	}
	sd := &grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*interface{})(nil),
		Metadata:    sc.File.GetName(),
	}
	for _, method := range sc.Service.GetMethods() {
		impl, ok := methods[method.GetName()]
		if !ok || method.IsClientStreaming() || method.IsServerStreaming() {
			return nil, fmt.Errorf("no unary handler for %s", method.GetFullyQualifiedName())
		}
		sd.Methods = append(sd.Methods, grpc.MethodDesc{
			MethodName: method.GetName(),
			Handler:    handler(method, impl),
		})
	}
	s.grpc.RegisterService(sd, s)
	return s, nil
}

func handler(md *desc.MethodDescriptor, impl unaryMethod) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := dynamic.NewMessage(md.GetInputType())
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return impl(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(md.GetName())}
		return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
			return impl(ctx, req.(*dynamic.Message))
		})
	}
}

func (s *Server) logCalls(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := next(ctx, req)
	attrs := []any{"method", info.FullMethod, "elapsed", time.Since(start)}
	if m, ok := resp.(*dynamic.Message); ok && m != nil {
		attrs = append(attrs, "bytes", proto.Size(protoadapt.MessageV2Of(m)))
	}
	if err != nil {
		s.log.Warn("rpc failed", append(attrs, "err", err)...)
	} else {
		s.log.Debug("rpc", attrs...)
	}
	return resp, err
}

// GRPC exposes the underlying server, for example to add more services.
func (s *Server) GRPC() *grpc.Server { return s.grpc }

// Serve accepts connections on lis until Stop.
func (s *Server) Serve(lis net.Listener) error {
	s.log.Info("serving", "addr", lis.Addr().String(), "service", ServiceName)
	return s.grpc.Serve(lis)
}

// Stop waits for running calls to finish.
func (s *Server) Stop() { s.grpc.GracefulStop() }

func (s *Server) source(in *dynamic.Message) (text, name string, opts []dvi.CompileOption) {
	name = str(in, "name")
	if name == "" {
		name = "<rpc>"
	}
	if flag(in, "postfix") {
		opts = append(opts, dvi.Postfix())
	}
	return str(in, "text"), name, opts
}

func (s *Server) check(ctx context.Context, in *dynamic.Message) (*dynamic.Message, error) {
	text, name, opts := s.source(in)
	reply := s.schema.message("dvi.CheckReply")
	s.addDiagnostics(reply, dvi.Check(text, name, opts...).Errors)
	return reply, nil
}

func (s *Server) describe(ctx context.Context, in *dynamic.Message) (*dynamic.Message, error) {
	text, name, opts := s.source(in)
	reply := s.schema.message("dvi.DescribeReply")
	prog, err := dvi.Compile(text, name, opts...)
	if err != nil {
		s.addError(reply, err)
		return reply, nil
	}
	for _, p := range prog.Params() {
		m := s.schema.message("dvi.Param")
		m.SetFieldByName("name", p.Name)
		if p.Type != nil {
			m.SetFieldByName("type", p.Type.String())
		}
		m.SetFieldByName("doc", p.Doc)
		if p.Example != nil {
			m.SetFieldByName("example", p.Example.Inspect())
		}
		reply.AddRepeatedFieldByName("params", m)
	}
	out, err := params.Describe(prog.Params())
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	reply.SetFieldByName("yaml", string(out))
	return reply, nil
}

func (s *Server) render(ctx context.Context, in *dynamic.Message) (*dynamic.Message, error) {
	src := sub(in, "source")
	if src == nil {
		return nil, status.Error(codes.InvalidArgument, "render needs a source")
	}
	width, height := i32(in, "width"), i32(in, "height")
	if width == 0 {
		width = s.opts.Width
	}
	if height == 0 {
		height = s.opts.Height
	}
	if width < 0 || height < 0 || width > MaxCanvas || height > MaxCanvas {
		return nil, status.Errorf(codes.InvalidArgument, "canvas %dx%d outside 1..%d", width, height, MaxCanvas)
	}
	bg := str(in, "background")
	if bg == "" {
		bg = s.opts.Background
	}
	raster, err := backend.NewRaster(width, height, bg)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	reply := s.schema.message("dvi.RenderReply")
	text, name, opts := s.source(src)
	prog, err := dvi.Compile(text, name, opts...)
	if err != nil {
		s.addError(reply, err)
		return reply, nil
	}
	paramsYAML := str(in, "params")
	env, err := prog.LoadParams([]byte(paramsYAML), flag(in, "examples"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	res, renderErr := prog.Render(ctx, raster, env)
	if renderErr != nil {
		s.addError(reply, renderErr)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, res.Image); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	reply.SetFieldByName("png", buf.Bytes())
	for _, c := range res.Calls {
		reply.AddRepeatedFieldByName("trace", c.String())
	}

	id := uuid.NewString()
	if flag(in, "store") && s.opts.Store != nil {
		t := &tracestore.Trace{ID: id, Source: name, Width: width, Height: height, Params: paramsYAML, Calls: res.Calls}
		if _, err := s.opts.Store.Save(ctx, t); err != nil {
			return nil, status.Error(codes.Unavailable, err.Error())
		}
		s.log.Info("trace stored", "id", id, "source", name, "calls", len(res.Calls))
	}
	reply.SetFieldByName("id", id)
	return reply, nil
}

// addError records a compile or render error on reply's diagnostics.
func (s *Server) addError(reply *dynamic.Message, err error) {
	var list diagnostics.List
	if !errors.As(err, &list) {
		list = diagnostics.List{backend.Diagnostic(err)}
	}
	s.addDiagnostics(reply, list)
}

func (s *Server) addDiagnostics(reply *dynamic.Message, errs []*diagnostics.DiagnosticError) {
	for _, e := range errs {
		m := s.schema.message("dvi.Diagnostic")
		m.SetFieldByName("code", string(e.Code))
		m.SetFieldByName("kind", string(e.Kind()))
		m.SetFieldByName("message", e.Message)
		m.SetFieldByName("file", e.File)
		m.SetFieldByName("line", int32(e.Line()))
		m.SetFieldByName("column", int32(e.Column()))
		reply.AddRepeatedFieldByName("diagnostics", m)
	}
}
