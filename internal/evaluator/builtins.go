package evaluator

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/ast"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/config"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/diagnostics"
)

// BuiltinFunc is a native function. node is the call site, for error
// positioning.
type BuiltinFunc func(e *Evaluator, node ast.Node, args []Object) (Object, error)

func registerBuiltins(env *Environment) {
	env.RegisterBuiltin(config.PrintFuncName, builtinPrint)
	env.RegisterBuiltin(config.LenFuncName, builtinLen)
	env.RegisterBuiltin(config.RangeFuncName, builtinRange)
}

func builtinPrint(e *Evaluator, _ ast.Node, args []Object) (Object, error) {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = arg.Inspect()
	}
	fmt.Fprintln(e.Out, strings.Join(parts, " "))
	return VOID, nil
}

func builtinLen(e *Evaluator, node ast.Node, args []Object) (Object, error) {
	if len(args) != 1 {
		return nil, e.errf(diagnostics.ErrR004, node, "does not match arguments length")
	}
	switch arg := args[0].(type) {
	case *String:
		return &Number{Value: new(big.Rat).SetInt64(int64(len(arg.Value)))}, nil
	case *List:
		return &Number{Value: new(big.Rat).SetInt64(int64(len(arg.Elements)))}, nil
	case *Dict:
		return &Number{Value: new(big.Rat).SetInt64(int64(len(arg.Pairs)))}, nil
	}
	return nil, e.errf(diagnostics.ErrR002, node, "len expects a string, list or dict, got %s", args[0].Type())
}

// builtinRange produces [a, a+1, ..., b-1]. Both bounds must be integers.
func builtinRange(e *Evaluator, node ast.Node, args []Object) (Object, error) {
	if len(args) != 2 {
		return nil, e.errf(diagnostics.ErrR004, node, "does not match arguments length")
	}
	start, ok := args[0].(*Number)
	if !ok || !start.Value.IsInt() {
		return nil, e.errf(diagnostics.ErrR002, node, "range expects integer bounds")
	}
	end, ok := args[1].(*Number)
	if !ok || !end.Value.IsInt() {
		return nil, e.errf(diagnostics.ErrR002, node, "range expects integer bounds")
	}
	from := start.Value.Num().Int64()
	to := end.Value.Num().Int64()
	var elements []Object
	for i := from; i < to; i++ {
		elements = append(elements, &Number{Value: new(big.Rat).SetInt64(i)})
	}
	return &List{Elements: elements}, nil
}
