package typesystem

import (
	"fmt"

	"github.com/funvibe/dvi/internal/object"
)

// MismatchError is the generic "got X, want Y" failure.
type MismatchError struct {
	Expected Type
	Got      string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("type mismatch: expected %s, got %s", e.Expected, e.Got)
}

// MissingFieldError reports a record field the value lacks.
type MissingFieldError struct {
	Field string
	Type  Type
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %q of type %s", e.Field, e.Type)
}

// ExtraFieldError reports a field the record type does not declare.
type ExtraFieldError struct {
	Field string
}

func (e *ExtraFieldError) Error() string {
	return fmt.Sprintf("unexpected field %q", e.Field)
}

type ArityError struct {
	Expected int
	Got      int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("wrong number of arguments: expected %d, got %d", e.Expected, e.Got)
}

// Check returns nil when got is a subtype of expected, and otherwise the most
// specific error it can name.
func Check(expected, got Type) error {
	if IsSubtype(got, expected) {
		return nil
	}
	if er, ok := normalize(expected).(*Record); ok {
		if gr, ok := normalize(got).(*Record); ok {
			for _, f := range er.Fields {
				gt, ok := gr.Field(f.Name)
				if !ok {
					return &MissingFieldError{Field: f.Name, Type: f.Type}
				}
				if err := Check(f.Type, gt); err != nil {
					return fmt.Errorf("field %q: %w", f.Name, err)
				}
			}
			for _, f := range gr.Fields {
				if _, ok := er.Field(f.Name); !ok {
					return &ExtraFieldError{Field: f.Name}
				}
			}
		}
	}
	if ef, ok := normalize(expected).(*Func); ok {
		if gf, ok := normalize(got).(*Func); ok && len(ef.Params) != len(gf.Params) {
			return &ArityError{Expected: len(ef.Params), Got: len(gf.Params)}
		}
	}
	return &MismatchError{Expected: expected, Got: got.String()}
}

// Explain is the runtime counterpart of Check: nil when t admits v.
func Explain(t Type, v object.Object) error {
	if t.Contains(v) {
		return nil
	}
	if r, ok := normalize(t).(*Record); ok {
		if mp, ok := v.(*object.Map); ok {
			for _, f := range r.Fields {
				fv, ok := mp.Get(f.Name)
				if !ok {
					return &MissingFieldError{Field: f.Name, Type: f.Type}
				}
				if err := Explain(f.Type, fv); err != nil {
					return fmt.Errorf("field %q: %w", f.Name, err)
				}
			}
			for _, k := range mp.Keys {
				if _, ok := r.Field(k); !ok {
					return &ExtraFieldError{Field: k}
				}
			}
		}
	}
	return &MismatchError{Expected: t, Got: describe(v)}
}

func describe(v object.Object) string {
	if v == nil {
		return "nothing"
	}
	return object.TypeName(v) + " " + v.Inspect()
}
