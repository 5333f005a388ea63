package vm

import (
	"context"

	"github.com/funvibe/dvi/internal/config"
	"github.com/funvibe/dvi/internal/diagnostics"
	"github.com/funvibe/dvi/internal/object"
	"github.com/funvibe/dvi/internal/surface"
	"github.com/funvibe/dvi/internal/typesystem"
)

// Env is the flat parameter environment of one render tick.
type Env map[string]object.Object

// Maximum operand stack size
const MaxStackSize = config.MaxStackSize

// Maximum call depth
const MaxFrameCount = config.MaxFrameCount

// Maximum number of open saves
const MaxContextDepth = config.MaxContextDepth

// cancelCheckInterval is how many instructions run between context checks.
const cancelCheckInterval = 1024

// iteration drives REPEAT: the block frame is rerun once per item group.
type iteration struct {
	items []object.Object
	width int // values pushed per run: 1, or 2 for map key and value
	next  int
}

// CallFrame represents a single ongoing function call or block run
type CallFrame struct {
	closure *Closure // nil for the program body
	proto   *Proto
	ip      int
	locals  []object.Object
	base    int // operand stack height when a function frame starts
	ctxBase int // context stack height when the frame starts
	iter    *iteration
}

// VM is the virtual machine that executes a chunk. A VM is used for one
// render at a time; Run resets all state.
type VM struct {
	chunk   *Chunk
	surface surface.Surface

	stack  []object.Object
	frames []*CallFrame

	ctx      *RenderContext
	ctxStack []*RenderContext

	env Env
	pc  int // instruction being executed, for fault positions

	maxStack  int
	maxFrames int
}

// Option configures a VM.
type Option func(*VM)

// WithMaxStack lowers or raises the operand stack limit.
func WithMaxStack(n int) Option {
	return func(vm *VM) { vm.maxStack = n }
}

// WithMaxFrames limits nesting of calls and block runs.
func WithMaxFrames(n int) Option {
	return func(vm *VM) { vm.maxFrames = n }
}

// New creates a VM rendering chunk into s.
func New(chunk *Chunk, s surface.Surface, opts ...Option) *VM {
	vm := &VM{
		chunk:     chunk,
		surface:   s,
		maxStack:  MaxStackSize,
		maxFrames: MaxFrameCount,
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// Run executes the program once against env. A returned *Fault aborts only
// this render; the VM can be run again.
func (vm *VM) Run(ctx context.Context, env Env) error {
	vm.reset(env)
	if err := vm.checkParams(); err != nil {
		return err
	}
	main := vm.chunk.Protos[0]
	vm.frames = append(vm.frames, &CallFrame{
		proto:  main,
		ip:     main.Start,
		locals: make([]object.Object, main.NumLocals),
	})
	return vm.run(ctx)
}

func (vm *VM) reset(env Env) {
	vm.stack = vm.stack[:0]
	vm.frames = vm.frames[:0]
	vm.ctx = NewRenderContext()
	vm.ctxStack = vm.ctxStack[:0]
	vm.env = env
	vm.pc = -1
}

// checkParams validates the environment before any drawing happens.
func (vm *VM) checkParams() error {
	for _, p := range vm.chunk.Params {
		v, ok := vm.env[p.Name]
		if !ok || v == nil {
			f := vm.fault(diagnostics.ErrR007, "missing parameter %q", p.Name)
			f.Line, f.Column = p.Line, p.Column
			return f
		}
		if p.Type != nil && !p.Type.Contains(v) {
			f := vm.fault(diagnostics.ErrR007, "parameter %q: %s", p.Name, typesystem.Explain(p.Type, v))
			f.Line, f.Column = p.Line, p.Column
			return f
		}
	}
	return nil
}

// Stack returns the operand stack left by the last run, bottom first.
func (vm *VM) Stack() []object.Object {
	out := make([]object.Object, len(vm.stack))
	copy(out, vm.stack)
	return out
}

// Context returns the current render context.
func (vm *VM) Context() *RenderContext {
	return vm.ctx
}

func (vm *VM) push(o object.Object) {
	vm.stack = append(vm.stack, o)
}

func (vm *VM) pop() (object.Object, *Fault) {
	n := len(vm.stack)
	if n <= vm.floor() {
		return nil, vm.fault(diagnostics.ErrR001, "stack underflow in %s", vm.chunk.Code[vm.pc].Op)
	}
	o := vm.stack[n-1]
	vm.stack = vm.stack[:n-1]
	return o, nil
}

// popN pops n values and returns them bottom first.
func (vm *VM) popN(n int) ([]object.Object, *Fault) {
	if len(vm.stack)-n < vm.floor() {
		return nil, vm.fault(diagnostics.ErrR001, "stack underflow in %s: need %d values", vm.chunk.Code[vm.pc].Op, n)
	}
	vals := make([]object.Object, n)
	copy(vals, vm.stack[len(vm.stack)-n:])
	vm.stack = vm.stack[:len(vm.stack)-n]
	return vals, nil
}

// floor is the lowest stack index the running frame may pop. Function
// frames cannot reach below their arguments; blocks share the caller's
// stack.
func (vm *VM) floor() int {
	for i := len(vm.frames) - 1; i >= 0; i-- {
		if !vm.frames[i].proto.Quote {
			return vm.frames[i].base
		}
	}
	return 0
}
