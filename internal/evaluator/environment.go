package evaluator

import (
	"fmt"
	"sync"

	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/ast"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/typesystem"
)

// Binding is a single variable slot: the value plus the mutability and
// static type recorded at declaration.
type Binding struct {
	Value   Object
	Mutable bool
	Type    typesystem.Type
}

type frame struct {
	name string
	vars map[string]*Binding
}

// Environment is two-tier: a global map at the bottom and a stack of call
// and block frames above it. Writing to an existing global hits the
// global tier directly; names created inside a frame die with the frame.
type Environment struct {
	mu sync.RWMutex

	globals map[string]*Binding
	frames  []*frame

	functions map[string]*ast.FunctionDef
	structs   map[string]*StructValue
	builtins  map[string]BuiltinFunc

	// exported names recorded by pub declarations, for module loading
	Exports map[string]bool
}

func NewEnvironment() *Environment {
	return &Environment{
		globals:   make(map[string]*Binding),
		functions: make(map[string]*ast.FunctionDef),
		structs:   make(map[string]*StructValue),
		builtins:  make(map[string]BuiltinFunc),
		Exports:   make(map[string]bool),
	}
}

func (e *Environment) PushFrame(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.frames = append(e.frames, &frame{name: name, vars: make(map[string]*Binding)})
}

func (e *Environment) PopFrame() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.frames) > 0 {
		e.frames = e.frames[:len(e.frames)-1]
	}
}

// CurrentScope is the innermost frame name, "global" at the bottom.
func (e *Environment) CurrentScope() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.frames) == 0 {
		return "global"
	}
	return e.frames[len(e.frames)-1].name
}

// Define creates a new binding in the innermost scope unconditionally.
func (e *Environment) Define(name string, b *Binding) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.frames) == 0 {
		e.globals[name] = b
		return
	}
	e.frames[len(e.frames)-1].vars[name] = b
}

// Assign writes to an existing binding. Innermost frame first, then the
// global tier; a miss everywhere creates the name in the innermost scope.
func (e *Environment) Assign(name string, value Object, typ typesystem.Type) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.frames) > 0 {
		top := e.frames[len(e.frames)-1]
		if b, ok := top.vars[name]; ok {
			if !b.Mutable {
				return fmt.Errorf("Cannot reassign to immutable variable")
			}
			b.Value = value
			b.Type = typ
			return nil
		}
	}
	if b, ok := e.globals[name]; ok {
		if !b.Mutable {
			return fmt.Errorf("Cannot reassign to immutable variable")
		}
		b.Value = value
		b.Type = typ
		return nil
	}
	b := &Binding{Value: value, Mutable: true, Type: typ}
	if len(e.frames) == 0 {
		e.globals[name] = b
	} else {
		e.frames[len(e.frames)-1].vars[name] = b
	}
	return nil
}

// Get walks active frames innermost first, then the global tier.
func (e *Environment) Get(name string) (*Binding, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for i := len(e.frames) - 1; i >= 0; i-- {
		if b, ok := e.frames[i].vars[name]; ok {
			return b, true
		}
	}
	b, ok := e.globals[name]
	return b, ok
}

// Snapshot copies every visible binding for lambda capture. Container
// values are deep-copied so the capture stays frozen.
func (e *Environment) Snapshot() map[string]*Binding {
	e.mu.RLock()
	defer e.mu.RUnlock()
	snap := make(map[string]*Binding, len(e.globals))
	for name, b := range e.globals {
		copied := *b
		copied.Value = copyValue(b.Value)
		snap[name] = &copied
	}
	for _, fr := range e.frames {
		for name, b := range fr.vars {
			copied := *b
			copied.Value = copyValue(b.Value)
			snap[name] = &copied
		}
	}
	return snap
}

func (e *Environment) RegisterFunction(def *ast.FunctionDef) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.functions[def.Name] = def
}

func (e *Environment) GetFunction(name string) (*ast.FunctionDef, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	def, ok := e.functions[name]
	return def, ok
}

func (e *Environment) RegisterStruct(s *StructValue) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.structs[s.Name]; exists {
		return fmt.Errorf("Struct %s already exists", s.Name)
	}
	e.structs[s.Name] = s
	return nil
}

// RegisterImpl merges methods into an already registered struct.
func (e *Environment) RegisterImpl(structName string, methods []*ast.FunctionDef) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.structs[structName]
	if !ok {
		return fmt.Errorf("Struct '%s' not found for Impl", structName)
	}
	for _, m := range methods {
		s.Methods[m.Name] = m
	}
	return nil
}

func (e *Environment) GetStruct(name string) (*StructValue, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.structs[name]
	return s, ok
}

func (e *Environment) RegisterBuiltin(name string, fn BuiltinFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.builtins[name] = fn
}

func (e *Environment) GetBuiltin(name string) (BuiltinFunc, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn, ok := e.builtins[name]
	return fn, ok
}

// MarkExported records a pub name for the module loader.
func (e *Environment) MarkExported(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Exports[name] = true
}

func (e *Environment) IsExported(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.Exports[name]
}

// GetGlobal reads the global tier directly, bypassing frames. The module
// loader uses it to copy exported values.
func (e *Environment) GetGlobal(name string) (*Binding, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	b, ok := e.globals[name]
	return b, ok
}
