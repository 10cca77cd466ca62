// Static value types tracked by the parser's symbol tables and carried on
// environment bindings at runtime.
package typesystem

import (
	"fmt"
)

type Type interface {
	String() string
	typ()
}

type Primitive string

const (
	Any      Primitive = "any"
	Number   Primitive = "number"
	String   Primitive = "string"
	Bool     Primitive = "bool"
	Void     Primitive = "void"
	Function Primitive = "function"
	Lambda   Primitive = "lambda"
	Option   Primitive = "option"
	Result   Primitive = "result"
	Dict     Primitive = "dict"
	Self     Primitive = "self"
	MutSelf  Primitive = "mut self"
)

func (p Primitive) String() string { return string(p) }
func (p Primitive) typ()           {}

// List is a homogeneous list type. Elem is Any for empty lists.
type List struct {
	Elem Type
}

func (l List) String() string { return fmt.Sprintf("list[%s]", l.Elem) }
func (l List) typ()           {}

// Instance is the type of a value built from a struct literal.
type Instance struct {
	Name   string
	Fields map[string]Type
}

func (i Instance) String() string { return i.Name }
func (i Instance) typ()           {}

// FromName resolves a type annotation lexeme. Uppercase-initial names are
// struct references and are resolved by the parser against its struct
// table, not here.
func FromName(name string) (Type, bool) {
	switch name {
	case "number":
		return Number, true
	case "string":
		return String, true
	case "bool":
		return Bool, true
	case "void":
		return Void, true
	case "any":
		return Any, true
	}
	return nil, false
}

// Equal reports structural type equality. Any matches nothing but itself;
// assignability decisions live with the callers.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch at := a.(type) {
	case Primitive:
		bt, ok := b.(Primitive)
		return ok && at == bt
	case List:
		bt, ok := b.(List)
		return ok && Equal(at.Elem, bt.Elem)
	case Instance:
		bt, ok := b.(Instance)
		return ok && at.Name == bt.Name
	}
	return false
}
