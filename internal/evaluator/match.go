package evaluator

import (
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/ast"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/diagnostics"
)

// evalMatch runs two passes over the arms: specific patterns in source
// order first, the wildcard only when nothing else matched.
func (e *Evaluator) evalMatch(n *ast.Match) (Object, error) {
	scrutinee, err := e.Eval(n.Scrutinee)
	if err != nil {
		return nil, err
	}

	for _, arm := range n.Arms {
		if arm.Pattern.Kind == ast.PatternWildcard {
			continue
		}
		matched, binding, err := e.matchPattern(arm.Pattern, scrutinee)
		if err != nil {
			return nil, err
		}
		if matched {
			return e.evalArm(arm, binding)
		}
	}
	for _, arm := range n.Arms {
		if arm.Pattern.Kind == ast.PatternWildcard {
			return e.evalArm(arm, nil)
		}
	}
	return nil, e.errf(diagnostics.ErrR005, n, "No match found")
}

type matchBinding struct {
	name  string
	value Object
}

func (e *Evaluator) matchPattern(pattern ast.Pattern, scrutinee Object) (bool, *matchBinding, error) {
	switch pattern.Kind {
	case ast.PatternLiteral:
		expected, err := e.Eval(pattern.Literal)
		if err != nil {
			return false, nil, err
		}
		return Equals(expected, scrutinee), nil, nil
	case ast.PatternNone:
		opt, ok := scrutinee.(*Option)
		return ok && !opt.Some, nil, nil
	case ast.PatternSome:
		opt, ok := scrutinee.(*Option)
		if !ok || !opt.Some {
			return false, nil, nil
		}
		return e.matchInner(pattern, opt.Value)
	case ast.PatternSuccess, ast.PatternFailure:
		res, ok := scrutinee.(*Result)
		if !ok {
			return false, nil, nil
		}
		if res.Success != (pattern.Kind == ast.PatternSuccess) {
			return false, nil, nil
		}
		return e.matchInner(pattern, res.Value)
	}
	return false, nil, nil
}

// matchInner handles the payload of a constructor pattern: an identifier
// binds the unwrapped value, a literal compares against it.
func (e *Evaluator) matchInner(pattern ast.Pattern, value Object) (bool, *matchBinding, error) {
	if pattern.Binding != "" {
		return true, &matchBinding{name: pattern.Binding, value: value}, nil
	}
	if pattern.Literal != nil {
		expected, err := e.Eval(pattern.Literal)
		if err != nil {
			return false, nil, err
		}
		return Equals(expected, value), nil, nil
	}
	return true, nil, nil
}

func (e *Evaluator) evalArm(arm ast.MatchArm, binding *matchBinding) (Object, error) {
	e.env.PushFrame("match")
	if binding != nil {
		e.env.Define(binding.name, &Binding{Value: binding.value, Mutable: true, Type: TypeOf(binding.value)})
	}
	result, err := e.Eval(arm.Body)
	e.env.PopFrame()
	if err != nil {
		return nil, err
	}
	return result, nil
}
