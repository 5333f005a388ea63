package vm

import (
	"fmt"

	"github.com/funvibe/dvi/internal/object"
	"github.com/funvibe/dvi/internal/typesystem"
)

// Closure is a function or quoted block: a prototype plus the values it
// captured when it was created. Captures are never updated afterwards.
type Closure struct {
	Proto    *Proto
	Captures []object.Object
}

func (c *Closure) Type() object.ObjectType { return object.CLOSURE_OBJ }
func (c *Closure) Inspect() string {
	if c.Proto.Quote {
		return fmt.Sprintf("<block %d..%d>", c.Proto.Start, c.Proto.End)
	}
	return fmt.Sprintf("<fn %s>", c.Proto.Name)
}

// Arity is -1 for quoted blocks, which take their input from the stack.
func (c *Closure) Arity() int {
	if c.Proto.Quote {
		return -1
	}
	return c.Proto.Arity
}

func (c *Closure) DeclaredType() typesystem.Type {
	return c.Proto.Type
}
