package evaluator

import (
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/ast"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/diagnostics"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/typesystem"
)

func (e *Evaluator) evalStructDef(n *ast.StructDef) (Object, error) {
	s := &StructValue{
		Name:    n.Name,
		Fields:  make(map[string]typesystem.Type, len(n.Fields)),
		Pub:     make(map[string]bool, len(n.Fields)),
		Methods: make(map[string]*ast.FunctionDef),
		IsPub:   n.Pub,
	}
	for _, field := range n.Fields {
		s.Fields[field.Name] = field.Type
		s.Pub[field.Name] = field.Pub
		s.Order = append(s.Order, field.Name)
	}
	if err := e.env.RegisterStruct(s); err != nil {
		return nil, e.errf(diagnostics.ErrR006, n, "%s", err.Error())
	}
	if n.Pub {
		e.env.MarkExported(n.Name)
	}
	return s, nil
}

func (e *Evaluator) evalImplBlock(n *ast.ImplBlock) (Object, error) {
	if err := e.env.RegisterImpl(n.StructName, n.Methods); err != nil {
		return nil, e.errf(diagnostics.ErrR006, n, "%s", err.Error())
	}
	return VOID, nil
}

func (e *Evaluator) evalStructLiteral(n *ast.StructLiteral) (Object, error) {
	def, ok := e.env.GetStruct(n.Name)
	if !ok {
		return nil, e.errf(diagnostics.ErrR006, n, "missing struct: %s", n.Name)
	}
	inst := &Instance{StructName: n.Name, Fields: make(map[string]Object, len(n.Fields))}
	for _, field := range n.Fields {
		declared, ok := def.Fields[field.Name]
		if !ok {
			return nil, e.errf(diagnostics.ErrR006, n, "Field not found: %s", field.Name)
		}
		value, err := e.Eval(field.Value)
		if err != nil {
			return nil, err
		}
		if !typesystem.Equal(declared, typesystem.Any) && !typesystem.Equal(TypeOf(value), declared) {
			return nil, e.errf(diagnostics.ErrR006, n, "Struct field type mismatch: %s.%s:%s = %s", n.Name, field.Name, declared, TypeOf(value))
		}
		inst.Fields[field.Name] = value
	}
	return inst, nil
}

// validateInstance re-checks a bound instance against its registered
// definition, covering instances produced by method returns.
func (e *Evaluator) validateInstance(node ast.Node, inst *Instance) error {
	def, ok := e.env.GetStruct(inst.StructName)
	if !ok {
		return nil
	}
	for name, value := range inst.Fields {
		declared, ok := def.Fields[name]
		if !ok {
			return e.errf(diagnostics.ErrR006, node, "Field not found: %s", name)
		}
		if !typesystem.Equal(declared, typesystem.Any) && !typesystem.Equal(TypeOf(value), declared) {
			return e.errf(diagnostics.ErrR006, node, "Struct field type mismatch: %s.%s:%s = %s", inst.StructName, name, declared, TypeOf(value))
		}
	}
	return nil
}

func (e *Evaluator) evalFieldAccess(n *ast.FieldAccess) (Object, error) {
	recv, err := e.Eval(n.Recv)
	if err != nil {
		return nil, err
	}
	inst, ok := recv.(*Instance)
	if !ok {
		return nil, e.errf(diagnostics.ErrR006, n, "missing struct instance: %s", recv.Type())
	}
	value, ok := inst.Fields[n.Field]
	if !ok {
		return nil, e.errf(diagnostics.ErrR006, n, "Field not found: %s", n.Field)
	}
	return value, nil
}

// evalFieldAssign writes recv.field = value. A write through self is only
// legal inside a method whose receiver is declared mut self.
func (e *Evaluator) evalFieldAssign(n *ast.FieldAssign) (Object, error) {
	recvIdent, ok := n.Target.Recv.(*ast.Identifier)
	if !ok {
		return nil, e.errf(diagnostics.ErrR006, n, "cannot assign through this expression")
	}

	if recvIdent.Name == "self" {
		if !e.currentMutSelf {
			return nil, e.errf(diagnostics.ErrR006, n, "%s is not mut self argument", e.currentMethod)
		}
	}

	b, ok := e.env.Get(recvIdent.Name)
	if !ok {
		return nil, e.errf(diagnostics.ErrR001, n, "Undefined variable: %s", recvIdent.Name)
	}
	if recvIdent.Name != "self" && !b.Mutable {
		return nil, e.errf(diagnostics.ErrR003, n, "Cannot reassign to immutable variable")
	}
	inst, ok := b.Value.(*Instance)
	if !ok {
		return nil, e.errf(diagnostics.ErrR006, n, "missing struct instance: %s", recvIdent.Name)
	}

	value, err := e.Eval(n.Value)
	if err != nil {
		return nil, err
	}

	if def, ok := e.env.GetStruct(inst.StructName); ok {
		declared, exists := def.Fields[n.Target.Field]
		if !exists {
			return nil, e.errf(diagnostics.ErrR006, n, "Field not found: %s", n.Target.Field)
		}
		if !typesystem.Equal(declared, typesystem.Any) && !typesystem.Equal(TypeOf(value), declared) {
			return nil, e.errf(diagnostics.ErrR006, n, "Struct field type mismatch: %s.%s:%s = %s", recvIdent.Name, n.Target.Field, declared, TypeOf(value))
		}
	}

	// the write replaces the receiver binding with a copy; other
	// bindings to the same instance keep the value they had
	updated := &Instance{StructName: inst.StructName, Fields: make(map[string]Object, len(inst.Fields))}
	for name, field := range inst.Fields {
		updated.Fields[name] = field
	}
	updated.Fields[n.Target.Field] = value
	b.Value = updated
	b.Type = TypeOf(updated)
	return updated, nil
}

// evalMethodCall dispatches struct instance methods; anything else falls
// through to the builtin methods on primitive receivers.
func (e *Evaluator) evalMethodCall(n *ast.MethodCall) (Object, error) {
	recv, err := e.Eval(n.Recv)
	if err != nil {
		return nil, err
	}
	inst, ok := recv.(*Instance)
	if !ok {
		return e.evalBuiltinMethod(n, recv)
	}

	recvIdent, _ := n.Recv.(*ast.Identifier)
	def, ok := e.env.GetStruct(inst.StructName)
	if !ok {
		return nil, e.errf(diagnostics.ErrR006, n, "missing struct: %s", inst.StructName)
	}
	method, ok := def.Methods[n.Method]
	if !ok {
		return nil, e.errf(diagnostics.ErrR006, n, "call failed method: %s", n.Method)
	}

	// calling through a variable requires a mutable receiver
	if recvIdent != nil && recvIdent.Name != "self" {
		if b, ok := e.env.Get(recvIdent.Name); ok && !b.Mutable {
			return nil, e.errf(diagnostics.ErrR003, n, "%s is not mutable", recvIdent.Name)
		}
	}

	selfParams := 0
	mutSelf := false
	for _, param := range method.Params {
		if param.Self != ast.NoSelf {
			selfParams++
			mutSelf = param.Self == ast.MutSelfRef
		}
	}
	if len(n.Args) != len(method.Params)-selfParams {
		return nil, e.errf(diagnostics.ErrR004, n, "does not match arguments length")
	}
	args, err := e.evalArgs(n.Args)
	if err != nil {
		return nil, err
	}

	tok := n.GetToken()
	e.CallStack = append(e.CallStack, CallFrame{Function: inst.StructName + "." + n.Method, Line: tok.Line, Column: tok.Column})
	savedMethod, savedMutSelf := e.currentMethod, e.currentMutSelf
	e.currentMethod, e.currentMutSelf = n.Method, mutSelf

	e.env.PushFrame(n.Method)
	e.env.Define("self", &Binding{Value: inst, Mutable: true, Type: TypeOf(inst)})
	// fields are addressable by bare name inside the method body
	for name, value := range inst.Fields {
		e.env.Define(name, &Binding{Value: value, Mutable: true, Type: TypeOf(value)})
	}
	argIdx := 0
	for _, param := range method.Params {
		if param.Self != ast.NoSelf {
			continue
		}
		e.env.Define(param.Name, &Binding{Value: args[argIdx], Mutable: false, Type: param.Type})
		argIdx++
	}

	result, err := e.Eval(method.Body)

	var mutated Object
	if b, ok := e.env.Get("self"); ok {
		mutated = b.Value
	}
	e.env.PopFrame()
	e.currentMethod, e.currentMutSelf = savedMethod, savedMutSelf
	e.CallStack = e.CallStack[:len(e.CallStack)-1]
	if err != nil {
		return nil, err
	}

	// write the possibly mutated self back to the receiver variable
	if recvIdent != nil && mutated != nil {
		if after, ok := mutated.(*Instance); ok {
			if b, ok := e.env.Get(recvIdent.Name); ok {
				b.Value = after
				b.Type = TypeOf(after)
			}
		}
	}

	if rv, ok := result.(*ReturnValue); ok {
		return rv.Value, nil
	}
	return result, nil
}
