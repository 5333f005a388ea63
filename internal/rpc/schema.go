// Package rpc exposes checking, parameter discovery and rendering as the
// dvi.Renderer gRPC service. Messages are dynamic: the service descriptor
// is parsed at start-up from the embedded renderer.proto.
package rpc

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/dynamic"
)

//go:embed renderer.proto
var rendererProto string

const (
	protoFile   = "renderer.proto"
	ServiceName = "dvi.Renderer"
)

// Schema holds the parsed descriptors.
type Schema struct {
	File    *desc.FileDescriptor
	Service *desc.ServiceDescriptor
}

var (
	schemaOnce sync.Once
	schema     *Schema
	schemaErr  error
)

// LoadSchema parses renderer.proto once.
func LoadSchema() (*Schema, error) {
	schemaOnce.Do(func() {
		parser := protoparse.Parser{
			Accessor:              protoparse.FileContentsFromMap(map[string]string{protoFile: rendererProto}),
			IncludeSourceCodeInfo: true,
		}
		fds, err := parser.ParseFiles(protoFile)
		if err != nil {
			schemaErr = fmt.Errorf("failed to parse proto: %w", err)
			return
		}
		sd := fds[0].FindService(ServiceName)
		if sd == nil {
			schemaErr = fmt.Errorf("service %s not found in %s", ServiceName, protoFile)
			return
		}
		schema = &Schema{File: fds[0], Service: sd}
	})
	return schema, schemaErr
}

// Method finds a method of the service by its short name.
func (s *Schema) Method(name string) (*desc.MethodDescriptor, error) {
	md := s.Service.FindMethodByName(name)
	if md == nil {
		return nil, fmt.Errorf("method %s.%s not found", ServiceName, name)
	}
	return md, nil
}

// message returns an empty message of the named type, as in
// "dvi.Diagnostic". Names are fixed by renderer.proto.
func (s *Schema) message(name string) *dynamic.Message {
	md := s.File.FindMessage(name)
	if md == nil {
		panic("rpc: unknown message " + name)
	}
	return dynamic.NewMessage(md)
}

// FullMethod is the path a client invokes, as in /dvi.Renderer/Render.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func str(m *dynamic.Message, field string) string {
	s, _ := m.GetFieldByName(field).(string)
	return s
}

func i32(m *dynamic.Message, field string) int {
	v, _ := m.GetFieldByName(field).(int32)
	return int(v)
}

func flag(m *dynamic.Message, field string) bool {
	v, _ := m.GetFieldByName(field).(bool)
	return v
}

// sub returns a nested message field, or nil when it is unset.
func sub(m *dynamic.Message, field string) *dynamic.Message {
	v, _ := m.GetFieldByName(field).(*dynamic.Message)
	return v
}
