package symbols

import "github.com/funvibe/dvi/internal/ast"

// CaptureInfo is one value copied into a closure when it is created.
// Source says how to load it in the enclosing frame.
type CaptureInfo struct {
	Symbol *Symbol
	Source Resolution
}

// Frame is the activation record of the program body, a function, a method
// or a quoted loop body. Slots are never reused within a frame.
type Frame struct {
	Name     string
	Node     ast.Node
	Outer    *Frame
	Arity    int
	Locals   int
	Captures []CaptureInfo
}

func NewFrame(name string, node ast.Node, outer *Frame) *Frame {
	return &Frame{Name: name, Node: node, Outer: outer}
}

// NewSlot reserves the next local slot.
func (f *Frame) NewSlot() int {
	f.Locals++
	return f.Locals - 1
}

// capture returns the capture index for sym, adding it on first use.
func (f *Frame) capture(sym *Symbol, source Resolution) int {
	for i, c := range f.Captures {
		if c.Symbol == sym {
			return i
		}
	}
	f.Captures = append(f.Captures, CaptureInfo{Symbol: sym, Source: source})
	return len(f.Captures) - 1
}

// encloses reports whether f is outer or one of its parents.
func (f *Frame) encloses(inner *Frame) bool {
	for fr := inner; fr != nil; fr = fr.Outer {
		if fr == f {
			return true
		}
	}
	return false
}
