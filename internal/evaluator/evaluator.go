// Package evaluator walks the AST and produces objects. Failures are
// typed RuntimeErrors carrying position and call stack; there are no
// panics on user input.
package evaluator

import (
	"fmt"
	"io"
	"math/big"

	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/ast"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/diagnostics"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/typesystem"
)

const maxEvalDepth = 10000

type CallFrame struct {
	Function string
	Line     int
	Column   int
}

// ModuleResolver loads a module by name and returns its evaluated
// environment. Wired by the pipeline to avoid an import cycle.
type ModuleResolver interface {
	Load(name string) (*Environment, error)
}

type Evaluator struct {
	Out io.Writer

	env       *Environment
	evalDepth int
	CallStack []CallFrame
	Modules   ModuleResolver

	currentMethod  string
	currentMutSelf bool
}

func New(out io.Writer) *Evaluator {
	e := &Evaluator{Out: out, env: NewEnvironment()}
	registerBuiltins(e.env)
	return e
}

// NewWithEnvironment shares an existing environment, used by the REPL and
// the module loader.
func NewWithEnvironment(out io.Writer, env *Environment) *Evaluator {
	return &Evaluator{Out: out, env: env}
}

func (e *Evaluator) Env() *Environment { return e.env }

func (e *Evaluator) errf(code string, node ast.Node, format string, args ...interface{}) *diagnostics.RuntimeError {
	tok := node.GetToken()
	err := diagnostics.NewRuntimeError(code, fmt.Sprintf(format, args...), tok.Line, tok.Column)
	for i := len(e.CallStack) - 1; i >= 0; i-- {
		err.Frames = append(err.Frames, e.CallStack[i].Function)
	}
	return err
}

// EvalProgram evaluates statements in order. Every statement produces a
// value; only the final one is returned. The REPL feeds one statement at
// a time, so each intermediate value still reaches a caller.
func (e *Evaluator) EvalProgram(nodes []ast.Node) (Object, error) {
	var result Object = VOID
	for _, node := range nodes {
		obj, err := e.Eval(node)
		if err != nil {
			return nil, err
		}
		result = obj
	}
	return result, nil
}

func (e *Evaluator) Eval(node ast.Node) (Object, error) {
	e.evalDepth++
	defer func() { e.evalDepth-- }()
	if e.evalDepth > maxEvalDepth {
		return nil, e.errf(diagnostics.ErrR008, node, "evaluation depth exceeded")
	}
	return e.evalCore(node)
}

func (e *Evaluator) evalCore(node ast.Node) (Object, error) {
	switch n := node.(type) {
	case *ast.NumberLiteral:
		return &Number{Value: new(big.Rat).Set(n.Value)}, nil
	case *ast.StringLiteral:
		return &String{Value: n.Value}, nil
	case *ast.BoolLiteral:
		return boolObject(n.Value), nil
	case *ast.Identifier:
		return e.evalIdentifier(n)
	case *ast.PrefixExpression:
		return e.evalPrefix(n)
	case *ast.InfixExpression:
		return e.evalInfix(n)
	case *ast.ListLiteral:
		return e.evalListLiteral(n)
	case *ast.DictLiteral:
		return e.evalDictLiteral(n)
	case *ast.Block:
		return e.evalBlock(n)
	case *ast.Assign:
		return e.evalAssign(n)
	case *ast.FunctionDef:
		e.env.RegisterFunction(n)
		if n.Pub {
			e.env.MarkExported(n.Name)
		}
		return &Function{Def: n}, nil
	case *ast.Lambda:
		return &Lambda{Params: n.Params, Body: n.Body, Captured: e.env.Snapshot()}, nil
	case *ast.FunctionCall:
		return e.evalFunctionCall(n)
	case *ast.LambdaCall:
		return e.evalLambdaCall(n)
	case *ast.ReturnStatement:
		if n.Value == nil {
			return &ReturnValue{Value: VOID}, nil
		}
		value, err := e.Eval(n.Value)
		if err != nil {
			return nil, err
		}
		return &ReturnValue{Value: value}, nil
	case *ast.BreakStatement:
		return BREAK, nil
	case *ast.ContinueStatement:
		return CONTINUE, nil
	case *ast.If:
		return e.evalIf(n)
	case *ast.For:
		return e.evalFor(n)
	case *ast.Match:
		return e.evalMatch(n)
	case *ast.StructDef:
		return e.evalStructDef(n)
	case *ast.ImplBlock:
		return e.evalImplBlock(n)
	case *ast.StructLiteral:
		return e.evalStructLiteral(n)
	case *ast.FieldAccess:
		return e.evalFieldAccess(n)
	case *ast.FieldAssign:
		return e.evalFieldAssign(n)
	case *ast.MethodCall:
		return e.evalMethodCall(n)
	case *ast.OptionExpr:
		return e.evalOptionExpr(n)
	case *ast.ResultExpr:
		return e.evalResultExpr(n)
	case *ast.Import:
		return e.evalImport(n)
	}
	return nil, e.errf(diagnostics.ErrR002, node, "unsupported node %T", node)
}

func (e *Evaluator) evalIdentifier(n *ast.Identifier) (Object, error) {
	if b, ok := e.env.Get(n.Name); ok {
		return b.Value, nil
	}
	if def, ok := e.env.GetFunction(n.Name); ok {
		return &Function{Def: def}, nil
	}
	return nil, e.errf(diagnostics.ErrR001, n, "Undefined variable: %s", n.Name)
}

func (e *Evaluator) evalPrefix(n *ast.PrefixExpression) (Object, error) {
	right, err := e.Eval(n.Right)
	if err != nil {
		return nil, err
	}
	if n.Operator == "-" {
		num, ok := right.(*Number)
		if !ok {
			return nil, e.errf(diagnostics.ErrR002, n, "unary - expects a number, got %s", right.Type())
		}
		return &Number{Value: new(big.Rat).Neg(num.Value)}, nil
	}
	return nil, e.errf(diagnostics.ErrR002, n, "unknown prefix operator %s", n.Operator)
}

func (e *Evaluator) evalInfix(n *ast.InfixExpression) (Object, error) {
	left, err := e.Eval(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := e.Eval(n.Right)
	if err != nil {
		return nil, err
	}

	switch n.Operator {
	case "==":
		return boolObject(Equals(left, right)), nil
	case "!=":
		return boolObject(!Equals(left, right)), nil
	}

	ln, lok := left.(*Number)
	rn, rok := right.(*Number)
	if lok && rok {
		return e.evalNumberInfix(n, ln, rn)
	}

	if n.Operator == "+" {
		// number and string mix concatenates
		switch {
		case left.Type() == STRING_OBJ && right.Type() == STRING_OBJ:
			return &String{Value: left.(*String).Value + right.(*String).Value}, nil
		case left.Type() == STRING_OBJ && rok:
			return &String{Value: left.(*String).Value + rn.Inspect()}, nil
		case lok && right.Type() == STRING_OBJ:
			return &String{Value: ln.Inspect() + right.(*String).Value}, nil
		}
	}

	ls, lok := left.(*String)
	rs, rok := right.(*String)
	if lok && rok {
		switch n.Operator {
		case "<":
			return boolObject(ls.Value < rs.Value), nil
		case "<=":
			return boolObject(ls.Value <= rs.Value), nil
		case ">":
			return boolObject(ls.Value > rs.Value), nil
		case ">=":
			return boolObject(ls.Value >= rs.Value), nil
		}
	}

	return nil, e.errf(diagnostics.ErrR002, n, "invalid operation: %s %s %s", left.Type(), n.Operator, right.Type())
}

func (e *Evaluator) evalNumberInfix(n *ast.InfixExpression, left, right *Number) (Object, error) {
	switch n.Operator {
	case "+":
		return &Number{Value: new(big.Rat).Add(left.Value, right.Value)}, nil
	case "-":
		return &Number{Value: new(big.Rat).Sub(left.Value, right.Value)}, nil
	case "*":
		return &Number{Value: new(big.Rat).Mul(left.Value, right.Value)}, nil
	case "/":
		if right.Value.Sign() == 0 {
			return nil, e.errf(diagnostics.ErrR002, n, "division by zero")
		}
		return &Number{Value: new(big.Rat).Quo(left.Value, right.Value)}, nil
	case "%":
		if !left.Value.IsInt() || !right.Value.IsInt() {
			return nil, e.errf(diagnostics.ErrR002, n, "%% expects integers")
		}
		if right.Value.Sign() == 0 {
			return nil, e.errf(diagnostics.ErrR002, n, "division by zero")
		}
		mod := new(big.Int).Mod(left.Value.Num(), right.Value.Num())
		return &Number{Value: new(big.Rat).SetInt(mod)}, nil
	case "<":
		return boolObject(left.Value.Cmp(right.Value) < 0), nil
	case "<=":
		return boolObject(left.Value.Cmp(right.Value) <= 0), nil
	case ">":
		return boolObject(left.Value.Cmp(right.Value) > 0), nil
	case ">=":
		return boolObject(left.Value.Cmp(right.Value) >= 0), nil
	}
	return nil, e.errf(diagnostics.ErrR002, n, "unknown operator %s", n.Operator)
}

func (e *Evaluator) evalListLiteral(n *ast.ListLiteral) (Object, error) {
	elements := make([]Object, 0, len(n.Elements))
	for _, el := range n.Elements {
		obj, err := e.Eval(el)
		if err != nil {
			return nil, err
		}
		elements = append(elements, obj)
	}
	return &List{Elements: elements}, nil
}

func (e *Evaluator) evalDictLiteral(n *ast.DictLiteral) (Object, error) {
	pairs := make(map[string]Object, len(n.Pairs))
	for _, pair := range n.Pairs {
		key, err := e.Eval(pair.Key)
		if err != nil {
			return nil, err
		}
		ks, ok := key.(*String)
		if !ok {
			return nil, e.errf(diagnostics.ErrR002, n, "dict key must be a string")
		}
		value, err := e.Eval(pair.Value)
		if err != nil {
			return nil, err
		}
		pairs[ks.Value] = value
	}
	return &Dict{Pairs: pairs}, nil
}

// evalBlock runs statements until a control value shows up. Return stops
// the block and propagates to the enclosing call.
func (e *Evaluator) evalBlock(n *ast.Block) (Object, error) {
	var result Object = VOID
	for _, stmt := range n.Statements {
		obj, err := e.Eval(stmt)
		if err != nil {
			return nil, err
		}
		switch obj.Type() {
		case RETURN_OBJ, BREAK_OBJ, CONTINUE_OBJ:
			return obj, nil
		}
		result = obj
	}
	return result, nil
}

func (e *Evaluator) evalAssign(n *ast.Assign) (Object, error) {
	value, err := e.Eval(n.Value)
	if err != nil {
		return nil, err
	}
	if rv, ok := value.(*ReturnValue); ok {
		value = rv.Value
	}

	// a declared homogeneous list must stay homogeneous
	if list, ok := value.(*List); ok && len(list.Elements) > 0 {
		elem := TypeOf(list.Elements[0])
		for _, el := range list.Elements[1:] {
			if !typesystem.Equal(TypeOf(el), elem) {
				return nil, e.errf(diagnostics.ErrR002, n, "List value type mismatch")
			}
		}
	}

	if n.IsNew {
		if inst, ok := value.(*Instance); ok {
			if err := e.validateInstance(n, inst); err != nil {
				return nil, err
			}
		}
		e.env.Define(n.Name, &Binding{Value: value, Mutable: n.Mutable, Type: TypeOf(value)})
		if n.Pub {
			e.env.MarkExported(n.Name)
		}
		return value, nil
	}

	if b, ok := e.env.Get(n.Name); ok && !b.Mutable {
		return nil, e.errf(diagnostics.ErrR003, n, "Cannot reassign to immutable variable")
	}
	if err := e.env.Assign(n.Name, value, TypeOf(value)); err != nil {
		return nil, e.errf(diagnostics.ErrR003, n, "%s", err.Error())
	}
	return value, nil
}

func (e *Evaluator) evalIf(n *ast.If) (Object, error) {
	cond, err := e.Eval(n.Condition)
	if err != nil {
		return nil, err
	}
	b, ok := cond.(*Bool)
	if !ok {
		return nil, e.errf(diagnostics.ErrR002, n, "if condition must be a bool, got %s", cond.Type())
	}
	if b.Value {
		return e.Eval(n.Then)
	}
	if n.Else != nil {
		return e.Eval(n.Else)
	}
	return VOID, nil
}

func (e *Evaluator) evalFor(n *ast.For) (Object, error) {
	iterable, err := e.Eval(n.Iterable)
	if err != nil {
		return nil, err
	}
	list, ok := iterable.(*List)
	if !ok {
		return nil, e.errf(diagnostics.ErrR002, n, "for expects a list, got %s", iterable.Type())
	}
	for _, item := range list.Elements {
		e.env.PushFrame("for-" + n.Variable)
		e.env.Define(n.Variable, &Binding{Value: item, Mutable: false, Type: TypeOf(item)})
		result, err := e.Eval(n.Body)
		e.env.PopFrame()
		if err != nil {
			return nil, err
		}
		switch result.Type() {
		case BREAK_OBJ:
			return VOID, nil
		case CONTINUE_OBJ:
			continue
		case RETURN_OBJ:
			return result, nil
		}
	}
	return VOID, nil
}

// evalFunctionCall resolves in order: user functions, builtins, then a
// lambda bound to a variable.
func (e *Evaluator) evalFunctionCall(n *ast.FunctionCall) (Object, error) {
	if def, ok := e.env.GetFunction(n.Name); ok {
		return e.callFunction(n, def)
	}
	if fn, ok := e.env.GetBuiltin(n.Name); ok {
		args, err := e.evalArgs(n.Args)
		if err != nil {
			return nil, err
		}
		return fn(e, n, args)
	}
	if b, ok := e.env.Get(n.Name); ok {
		if lambda, ok := b.Value.(*Lambda); ok {
			return e.callLambda(n, lambda, n.Args)
		}
	}
	return nil, e.errf(diagnostics.ErrR001, n, "Undefined function: %s", n.Name)
}

func (e *Evaluator) evalArgs(exprs []ast.Expression) ([]Object, error) {
	args := make([]Object, 0, len(exprs))
	for _, expr := range exprs {
		obj, err := e.Eval(expr)
		if err != nil {
			return nil, err
		}
		args = append(args, obj)
	}
	return args, nil
}

func (e *Evaluator) callFunction(call *ast.FunctionCall, def *ast.FunctionDef) (Object, error) {
	if len(call.Args) != len(def.Params) {
		return nil, e.errf(diagnostics.ErrR004, call, "does not match arguments length")
	}
	args, err := e.evalArgs(call.Args)
	if err != nil {
		return nil, err
	}

	tok := call.GetToken()
	e.CallStack = append(e.CallStack, CallFrame{Function: def.Name, Line: tok.Line, Column: tok.Column})
	e.env.PushFrame(def.Name)
	for i, param := range def.Params {
		e.env.Define(param.Name, &Binding{Value: args[i], Mutable: false, Type: param.Type})
	}
	result, err := e.Eval(def.Body)
	e.env.PopFrame()
	e.CallStack = e.CallStack[:len(e.CallStack)-1]
	if err != nil {
		return nil, err
	}
	if rv, ok := result.(*ReturnValue); ok {
		return rv.Value, nil
	}
	return result, nil
}

func (e *Evaluator) evalLambdaCall(n *ast.LambdaCall) (Object, error) {
	callee, err := e.Eval(n.Lambda)
	if err != nil {
		return nil, err
	}
	lambda, ok := callee.(*Lambda)
	if !ok {
		if fn, ok := callee.(*Function); ok {
			return e.callFunction(&ast.FunctionCall{Token: n.Token, Name: fn.Def.Name, Args: n.Args}, fn.Def)
		}
		return nil, e.errf(diagnostics.ErrR002, n, "not callable: %s", callee.Type())
	}
	return e.callLambda(n, lambda, n.Args)
}

// callLambda runs a lambda body against its frozen capture plus the call
// arguments.
func (e *Evaluator) callLambda(node ast.Node, lambda *Lambda, argExprs []ast.Expression) (Object, error) {
	if len(argExprs) != len(lambda.Params) {
		return nil, e.errf(diagnostics.ErrR004, node, "does not match arguments length")
	}
	args, err := e.evalArgs(argExprs)
	if err != nil {
		return nil, err
	}

	e.env.PushFrame("lambda")
	for name, b := range lambda.Captured {
		copied := *b
		e.env.Define(name, &copied)
	}
	for i, param := range lambda.Params {
		e.env.Define(param.Name, &Binding{Value: args[i], Mutable: false, Type: param.Type})
	}
	result, err := e.Eval(lambda.Body)
	e.env.PopFrame()
	if err != nil {
		return nil, err
	}
	if rv, ok := result.(*ReturnValue); ok {
		return rv.Value, nil
	}
	return result, nil
}

func (e *Evaluator) evalOptionExpr(n *ast.OptionExpr) (Object, error) {
	if !n.Some {
		return &Option{Some: false}, nil
	}
	value, err := e.Eval(n.Value)
	if err != nil {
		return nil, err
	}
	return &Option{Some: true, Value: value}, nil
}

func (e *Evaluator) evalResultExpr(n *ast.ResultExpr) (Object, error) {
	value, err := e.Eval(n.Value)
	if err != nil {
		return nil, err
	}
	return &Result{Success: n.Success, Value: value}, nil
}

// evalImport copies the requested exported symbols out of the loaded
// module environment, dispatching on symbol kind.
func (e *Evaluator) evalImport(n *ast.Import) (Object, error) {
	if e.Modules == nil {
		return nil, e.errf(diagnostics.ErrR007, n, "module loading is not available")
	}
	modEnv, err := e.Modules.Load(n.Module)
	if err != nil {
		return nil, e.errf(diagnostics.ErrR007, n, "%s", err.Error())
	}
	for _, sym := range n.Symbols {
		if def, ok := modEnv.GetFunction(sym); ok && modEnv.IsExported(sym) {
			e.env.RegisterFunction(def)
			continue
		}
		if s, ok := modEnv.GetStruct(sym); ok && modEnv.IsExported(sym) {
			if err := e.env.RegisterStruct(s); err != nil {
				return nil, e.errf(diagnostics.ErrR007, n, "%s", err.Error())
			}
			continue
		}
		if b, ok := modEnv.GetGlobal(sym); ok && modEnv.IsExported(sym) {
			copied := *b
			e.env.Define(sym, &copied)
			continue
		}
		return nil, e.errf(diagnostics.ErrR007, n, "Symbol %s not found in module %s", sym, n.Module)
	}
	return VOID, nil
}
