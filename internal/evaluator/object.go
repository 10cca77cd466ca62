package evaluator

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/ast"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/typesystem"
)

type ObjectType string

const (
	NUMBER_OBJ   ObjectType = "NUMBER"
	STRING_OBJ   ObjectType = "STRING"
	BOOL_OBJ     ObjectType = "BOOL"
	VOID_OBJ     ObjectType = "VOID"
	LIST_OBJ     ObjectType = "LIST"
	DICT_OBJ     ObjectType = "DICT"
	OPTION_OBJ   ObjectType = "OPTION"
	RESULT_OBJ   ObjectType = "RESULT"
	LAMBDA_OBJ   ObjectType = "LAMBDA"
	FUNCTION_OBJ ObjectType = "FUNCTION"
	STRUCT_OBJ   ObjectType = "STRUCT"
	INSTANCE_OBJ ObjectType = "INSTANCE"
	RETURN_OBJ   ObjectType = "RETURN"
	BREAK_OBJ    ObjectType = "BREAK"
	CONTINUE_OBJ ObjectType = "CONTINUE"
)

type Object interface {
	Type() ObjectType
	Inspect() string
}

// Number is an exact rational. 0.1 + 0.2 equals 0.3 with no drift.
type Number struct {
	Value *big.Rat
}

func (n *Number) Type() ObjectType { return NUMBER_OBJ }
func (n *Number) Inspect() string {
	if n.Value.IsInt() {
		return n.Value.Num().String()
	}
	// exact decimal when the denominator allows it, fraction otherwise
	if s := n.Value.FloatString(12); strings.Contains(s, ".") {
		trimmed := strings.TrimRight(strings.TrimRight(s, "0"), ".")
		if r, ok := new(big.Rat).SetString(trimmed); ok && r.Cmp(n.Value) == 0 {
			return trimmed
		}
	}
	return n.Value.RatString()
}

type String struct {
	Value string
}

func (s *String) Type() ObjectType { return STRING_OBJ }
func (s *String) Inspect() string  { return s.Value }

type Bool struct {
	Value bool
}

func (b *Bool) Type() ObjectType { return BOOL_OBJ }
func (b *Bool) Inspect() string  { return fmt.Sprintf("%t", b.Value) }

type Void struct{}

func (v *Void) Type() ObjectType { return VOID_OBJ }
func (v *Void) Inspect() string  { return "Void" }

type List struct {
	Elements []Object
}

func (l *List) Type() ObjectType { return LIST_OBJ }
func (l *List) Inspect() string {
	parts := make([]string, len(l.Elements))
	for i, el := range l.Elements {
		parts[i] = el.Inspect()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Dict is string-keyed, matching the {: "k" => v :} literal.
type Dict struct {
	Pairs map[string]Object
}

func (d *Dict) Type() ObjectType { return DICT_OBJ }
func (d *Dict) Inspect() string {
	keys := make([]string, 0, len(d.Pairs))
	for k := range d.Pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%q => %s", k, d.Pairs[k].Inspect()))
	}
	return "{: " + strings.Join(parts, ", ") + " :}"
}

type Option struct {
	Some  bool
	Value Object
}

func (o *Option) Type() ObjectType { return OPTION_OBJ }
func (o *Option) Inspect() string {
	if !o.Some {
		return "None"
	}
	return "Some(" + o.Value.Inspect() + ")"
}

type Result struct {
	Success bool
	Value   Object
}

func (r *Result) Type() ObjectType { return RESULT_OBJ }
func (r *Result) Inspect() string {
	if r.Success {
		return "Success(" + r.Value.Inspect() + ")"
	}
	return "Failure(" + r.Value.Inspect() + ")"
}

// Lambda carries a frozen snapshot of the bindings visible at creation.
// Mutations after the snapshot are not observable inside the body.
type Lambda struct {
	Params   []ast.Param
	Body     ast.Node
	Captured map[string]*Binding
}

func (l *Lambda) Type() ObjectType { return LAMBDA_OBJ }
func (l *Lambda) Inspect() string  { return "Lambda" }

// Function wraps a named function definition held in the registry.
type Function struct {
	Def *ast.FunctionDef
}

func (f *Function) Type() ObjectType { return FUNCTION_OBJ }
func (f *Function) Inspect() string  { return "Function" }

// StructValue is a registered struct definition with merged impl methods.
type StructValue struct {
	Name    string
	Fields  map[string]typesystem.Type
	Order   []string
	Pub     map[string]bool
	Methods map[string]*ast.FunctionDef
	IsPub   bool
}

func (s *StructValue) Type() ObjectType { return STRUCT_OBJ }
func (s *StructValue) Inspect() string {
	parts := make([]string, 0, len(s.Order))
	for _, name := range s.Order {
		parts = append(parts, fmt.Sprintf("%s: %s", name, s.Fields[name]))
	}
	return s.Name + "{" + strings.Join(parts, ", ") + "}"
}

type Instance struct {
	StructName string
	Fields     map[string]Object
}

func (i *Instance) Type() ObjectType { return INSTANCE_OBJ }
func (i *Instance) Inspect() string {
	keys := make([]string, 0, len(i.Fields))
	for k := range i.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, i.Fields[k].Inspect()))
	}
	return i.StructName + "{" + strings.Join(parts, ", ") + "}"
}

// ReturnValue, BreakSignal and ContinueSignal propagate control flow as
// values; blocks and loops interpret them.
type ReturnValue struct {
	Value Object
}

func (r *ReturnValue) Type() ObjectType { return RETURN_OBJ }
func (r *ReturnValue) Inspect() string  { return r.Value.Inspect() }

type BreakSignal struct{}

func (b *BreakSignal) Type() ObjectType { return BREAK_OBJ }
func (b *BreakSignal) Inspect() string  { return "break" }

type ContinueSignal struct{}

func (c *ContinueSignal) Type() ObjectType { return CONTINUE_OBJ }
func (c *ContinueSignal) Inspect() string  { return "continue" }

var (
	VOID     = &Void{}
	TRUE     = &Bool{Value: true}
	FALSE    = &Bool{Value: false}
	BREAK    = &BreakSignal{}
	CONTINUE = &ContinueSignal{}
)

func boolObject(v bool) *Bool {
	if v {
		return TRUE
	}
	return FALSE
}

// copyValue copies container values so the copy and the original can
// diverge. Scalar objects are immutable and shared.
func copyValue(obj Object) Object {
	switch v := obj.(type) {
	case *List:
		elements := make([]Object, len(v.Elements))
		for i, el := range v.Elements {
			elements[i] = copyValue(el)
		}
		return &List{Elements: elements}
	case *Dict:
		pairs := make(map[string]Object, len(v.Pairs))
		for k, p := range v.Pairs {
			pairs[k] = copyValue(p)
		}
		return &Dict{Pairs: pairs}
	case *Instance:
		fields := make(map[string]Object, len(v.Fields))
		for k, f := range v.Fields {
			fields[k] = copyValue(f)
		}
		return &Instance{StructName: v.StructName, Fields: fields}
	}
	return obj
}

// Equals is deep structural equality, used by match arms and the
// contains builtins.
func Equals(a, b Object) bool {
	if a.Type() != b.Type() {
		return false
	}
	switch av := a.(type) {
	case *Number:
		return av.Value.Cmp(b.(*Number).Value) == 0
	case *String:
		return av.Value == b.(*String).Value
	case *Bool:
		return av.Value == b.(*Bool).Value
	case *Void:
		return true
	case *List:
		bv := b.(*List)
		if len(av.Elements) != len(bv.Elements) {
			return false
		}
		for i := range av.Elements {
			if !Equals(av.Elements[i], bv.Elements[i]) {
				return false
			}
		}
		return true
	case *Dict:
		bv := b.(*Dict)
		if len(av.Pairs) != len(bv.Pairs) {
			return false
		}
		for k, v := range av.Pairs {
			other, ok := bv.Pairs[k]
			if !ok || !Equals(v, other) {
				return false
			}
		}
		return true
	case *Option:
		bv := b.(*Option)
		if av.Some != bv.Some {
			return false
		}
		return !av.Some || Equals(av.Value, bv.Value)
	case *Result:
		bv := b.(*Result)
		return av.Success == bv.Success && Equals(av.Value, bv.Value)
	case *Instance:
		bv := b.(*Instance)
		if av.StructName != bv.StructName || len(av.Fields) != len(bv.Fields) {
			return false
		}
		for k, v := range av.Fields {
			other, ok := bv.Fields[k]
			if !ok || !Equals(v, other) {
				return false
			}
		}
		return true
	}
	return false
}

// TypeOf maps a runtime object to its static type, used when writing
// bindings so later assignments can be checked.
func TypeOf(obj Object) typesystem.Type {
	switch o := obj.(type) {
	case *Number:
		return typesystem.Number
	case *String:
		return typesystem.String
	case *Bool:
		return typesystem.Bool
	case *Void:
		return typesystem.Void
	case *Dict:
		return typesystem.Dict
	case *Option:
		return typesystem.Option
	case *Result:
		return typesystem.Result
	case *Lambda:
		return typesystem.Lambda
	case *Function:
		return typesystem.Function
	case *List:
		if len(o.Elements) == 0 {
			return typesystem.List{Elem: typesystem.Any}
		}
		elem := TypeOf(o.Elements[0])
		for _, el := range o.Elements[1:] {
			if !typesystem.Equal(TypeOf(el), elem) {
				return typesystem.List{Elem: typesystem.Any}
			}
		}
		return typesystem.List{Elem: elem}
	case *Instance:
		fields := make(map[string]typesystem.Type, len(o.Fields))
		for k, v := range o.Fields {
			fields[k] = TypeOf(v)
		}
		return typesystem.Instance{Name: o.StructName, Fields: fields}
	case *ReturnValue:
		return TypeOf(o.Value)
	}
	return typesystem.Any
}
