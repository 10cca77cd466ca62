package evaluator

import (
	"math"
	"math/big"
	"strings"

	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/ast"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/diagnostics"
)

// Builtin methods on primitive receivers. Mutating list and dict methods
// write the updated collection back when the receiver is a variable.

func (e *Evaluator) evalBuiltinMethod(n *ast.MethodCall, recv Object) (Object, error) {
	args, err := e.evalArgs(n.Args)
	if err != nil {
		return nil, err
	}
	switch r := recv.(type) {
	case *Number:
		return e.numberMethod(n, r, args)
	case *String:
		return e.stringMethod(n, r, args)
	case *List:
		return e.listMethod(n, r, args)
	case *Dict:
		return e.dictMethod(n, r, args)
	}
	return nil, e.errf(diagnostics.ErrR006, n, "Method %s is not supported for this type", n.Method)
}

// writeBack updates the receiver variable after a mutating method.
func (e *Evaluator) writeBack(n *ast.MethodCall, value Object) {
	if ident, ok := n.Recv.(*ast.Identifier); ok {
		if b, exists := e.env.Get(ident.Name); exists {
			b.Value = value
			b.Type = TypeOf(value)
		}
	}
}

func (e *Evaluator) requireArgs(n *ast.MethodCall, args []Object, count int, msg string) error {
	if len(args) < count {
		return e.errf(diagnostics.ErrR004, n, "%s", msg)
	}
	return nil
}

func (e *Evaluator) numberMethod(n *ast.MethodCall, recv *Number, args []Object) (Object, error) {
	switch n.Method {
	case "to_string":
		return &String{Value: recv.Inspect()}, nil
	case "round":
		f, _ := recv.Value.Float64()
		return &Number{Value: new(big.Rat).SetInt64(int64(math.Round(f)))}, nil
	case "sqrt":
		f, _ := recv.Value.Float64()
		result := new(big.Rat).SetFloat64(math.Sqrt(f))
		if result == nil {
			return nil, e.errf(diagnostics.ErrR002, n, "sqrt of negative number")
		}
		// collapse float noise for exact squares
		if i := new(big.Int).Sqrt(recv.Value.Num()); recv.Value.IsInt() && new(big.Int).Mul(i, i).Cmp(recv.Value.Num()) == 0 {
			return &Number{Value: new(big.Rat).SetInt(i)}, nil
		}
		return &Number{Value: result}, nil
	}
	return nil, e.errf(diagnostics.ErrR006, n, "%s is not a method of number", n.Method)
}

func (e *Evaluator) stringMethod(n *ast.MethodCall, recv *String, args []Object) (Object, error) {
	stringArg := func(i int, msg string) (*String, error) {
		if err := e.requireArgs(n, args, i+1, msg); err != nil {
			return nil, err
		}
		s, ok := args[i].(*String)
		if !ok {
			return nil, e.errf(diagnostics.ErrR002, n, "%s", msg)
		}
		return s, nil
	}
	switch n.Method {
	case "len":
		return &Number{Value: new(big.Rat).SetInt64(int64(len(recv.Value)))}, nil
	case "is_empty":
		return boolObject(recv.Value == ""), nil
	case "to_uppercase":
		return &String{Value: strings.ToUpper(recv.Value)}, nil
	case "to_lowercase":
		return &String{Value: strings.ToLower(recv.Value)}, nil
	case "trim":
		return &String{Value: strings.TrimSpace(recv.Value)}, nil
	case "contains":
		arg, err := stringArg(0, "contains requires a substring argument")
		if err != nil {
			return nil, err
		}
		return boolObject(strings.Contains(recv.Value, arg.Value)), nil
	case "starts_with":
		arg, err := stringArg(0, "starts_with requires a prefix argument")
		if err != nil {
			return nil, err
		}
		return boolObject(strings.HasPrefix(recv.Value, arg.Value)), nil
	case "ends_with":
		arg, err := stringArg(0, "ends_with requires a suffix argument")
		if err != nil {
			return nil, err
		}
		return boolObject(strings.HasSuffix(recv.Value, arg.Value)), nil
	case "split":
		arg, err := stringArg(0, "split requires a delimiter argument")
		if err != nil {
			return nil, err
		}
		parts := strings.Split(recv.Value, arg.Value)
		elements := make([]Object, len(parts))
		for i, part := range parts {
			elements[i] = &String{Value: part}
		}
		return &List{Elements: elements}, nil
	case "replace":
		if err := e.requireArgs(n, args, 2, "replace requires from and to arguments"); err != nil {
			return nil, err
		}
		from, fok := args[0].(*String)
		to, tok := args[1].(*String)
		if !fok || !tok {
			return nil, e.errf(diagnostics.ErrR002, n, "replace arguments must be strings")
		}
		return &String{Value: strings.ReplaceAll(recv.Value, from.Value, to.Value)}, nil
	}
	return nil, e.errf(diagnostics.ErrR006, n, "%s is not a method of string", n.Method)
}

func (e *Evaluator) listMethod(n *ast.MethodCall, recv *List, args []Object) (Object, error) {
	switch n.Method {
	case "to_string":
		return &String{Value: recv.Inspect()}, nil
	case "push":
		if err := e.requireArgs(n, args, 1, "push requires an argument"); err != nil {
			return nil, err
		}
		updated := &List{Elements: append(append([]Object{}, recv.Elements...), args[0])}
		e.writeBack(n, updated)
		return updated, nil
	case "pop":
		if len(recv.Elements) == 0 {
			e.writeBack(n, &List{})
			return &Option{Some: false}, nil
		}
		last := recv.Elements[len(recv.Elements)-1]
		updated := &List{Elements: append([]Object{}, recv.Elements[:len(recv.Elements)-1]...)}
		e.writeBack(n, updated)
		return &Option{Some: true, Value: last}, nil
	case "len":
		return &Number{Value: new(big.Rat).SetInt64(int64(len(recv.Elements)))}, nil
	case "is_empty":
		return boolObject(len(recv.Elements) == 0), nil
	case "first":
		if len(recv.Elements) == 0 {
			return &Option{Some: false}, nil
		}
		return &Option{Some: true, Value: recv.Elements[0]}, nil
	case "last":
		if len(recv.Elements) == 0 {
			return &Option{Some: false}, nil
		}
		return &Option{Some: true, Value: recv.Elements[len(recv.Elements)-1]}, nil
	case "clear":
		e.writeBack(n, &List{})
		return VOID, nil
	case "contains":
		if err := e.requireArgs(n, args, 1, "contains requires an argument"); err != nil {
			return nil, err
		}
		for _, el := range recv.Elements {
			if Equals(el, args[0]) {
				return TRUE, nil
			}
		}
		return FALSE, nil
	case "reverse":
		reversed := make([]Object, len(recv.Elements))
		for i, el := range recv.Elements {
			reversed[len(recv.Elements)-1-i] = el
		}
		e.writeBack(n, &List{Elements: reversed})
		return VOID, nil
	}
	return nil, e.errf(diagnostics.ErrR006, n, "%s is not a method of list", n.Method)
}

func (e *Evaluator) dictMethod(n *ast.MethodCall, recv *Dict, args []Object) (Object, error) {
	keyArg := func(msg string) (string, error) {
		if err := e.requireArgs(n, args, 1, msg); err != nil {
			return "", err
		}
		key, ok := args[0].(*String)
		if !ok {
			return "", e.errf(diagnostics.ErrR002, n, "dict key must be a string")
		}
		return key.Value, nil
	}
	switch n.Method {
	case "get":
		key, err := keyArg("get requires a key argument")
		if err != nil {
			return nil, err
		}
		if value, ok := recv.Pairs[key]; ok {
			return &Option{Some: true, Value: value}, nil
		}
		return &Option{Some: false}, nil
	case "insert":
		if err := e.requireArgs(n, args, 2, "insert requires key and value arguments"); err != nil {
			return nil, err
		}
		key, ok := args[0].(*String)
		if !ok {
			return nil, e.errf(diagnostics.ErrR002, n, "dict key must be a string")
		}
		updated := copyDict(recv)
		old, existed := updated.Pairs[key.Value]
		updated.Pairs[key.Value] = args[1]
		e.writeBack(n, updated)
		if existed {
			return &Option{Some: true, Value: old}, nil
		}
		return &Option{Some: false}, nil
	case "remove":
		key, err := keyArg("remove requires a key argument")
		if err != nil {
			return nil, err
		}
		updated := copyDict(recv)
		old, existed := updated.Pairs[key]
		delete(updated.Pairs, key)
		e.writeBack(n, updated)
		if existed {
			return &Option{Some: true, Value: old}, nil
		}
		return &Option{Some: false}, nil
	case "contains_key":
		key, err := keyArg("contains_key requires a key argument")
		if err != nil {
			return nil, err
		}
		_, ok := recv.Pairs[key]
		return boolObject(ok), nil
	case "keys":
		var keys []Object
		for k := range recv.Pairs {
			keys = append(keys, &String{Value: k})
		}
		return &List{Elements: keys}, nil
	case "values":
		var values []Object
		for _, v := range recv.Pairs {
			values = append(values, v)
		}
		return &List{Elements: values}, nil
	case "len":
		return &Number{Value: new(big.Rat).SetInt64(int64(len(recv.Pairs)))}, nil
	case "is_empty":
		return boolObject(len(recv.Pairs) == 0), nil
	case "clear":
		e.writeBack(n, &Dict{Pairs: map[string]Object{}})
		return VOID, nil
	}
	return nil, e.errf(diagnostics.ErrR006, n, "%s is not a method of dict", n.Method)
}

func copyDict(d *Dict) *Dict {
	pairs := make(map[string]Object, len(d.Pairs))
	for k, v := range d.Pairs {
		pairs[k] = v
	}
	return &Dict{Pairs: pairs}
}
