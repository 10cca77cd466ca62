package parser

import (
	"fmt"

	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/ast"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/diagnostics"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/token"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/typesystem"
)

// parseTypeAnnotation reads a type at the cursor: a primitive name, an
// uppercase struct reference, or [T] for lists.
func (p *Parser) parseTypeAnnotation() typesystem.Type {
	if p.cur().Type == token.LBRACKET {
		p.next()
		elem := p.parseTypeAnnotation()
		p.expect(token.RBRACKET)
		return typesystem.List{Elem: elem}
	}
	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		return typesystem.Any
	}
	if t, ok := typesystem.FromName(nameTok.Literal); ok {
		return t
	}
	if isUpperInitial(nameTok.Literal) {
		return p.structType(nameTok.Literal)
	}
	p.addError(diagnostics.ErrP001, nameTok, fmt.Sprintf("unknown type %q", nameTok.Literal))
	return typesystem.Any
}

func (p *Parser) structType(name string) typesystem.Type {
	if name == "" {
		return typesystem.Any
	}
	if info, ok := p.structs[name]; ok {
		return typesystem.Instance{Name: name, Fields: info.fields}
	}
	return typesystem.Instance{Name: name}
}

// inferType derives the static type of an expression from the symbol
// tables. Any means "not statically known" and suppresses checks.
func (p *Parser) inferType(expr ast.Expression) typesystem.Type {
	switch e := expr.(type) {
	case *ast.NumberLiteral:
		return typesystem.Number
	case *ast.StringLiteral:
		return typesystem.String
	case *ast.BoolLiteral:
		return typesystem.Bool
	case *ast.Identifier:
		if info, ok := p.lookupVar(e.Name); ok {
			return info.typ
		}
		return typesystem.Any
	case *ast.PrefixExpression:
		return p.inferType(e.Right)
	case *ast.InfixExpression:
		return p.inferInfix(e)
	case *ast.ListLiteral:
		if len(e.Elements) == 0 {
			return typesystem.List{Elem: typesystem.Any}
		}
		elem := p.inferType(e.Elements[0])
		for _, el := range e.Elements[1:] {
			if !typesystem.Equal(p.inferType(el), elem) {
				elem = typesystem.Any
				break
			}
		}
		return typesystem.List{Elem: elem}
	case *ast.DictLiteral:
		return typesystem.Dict
	case *ast.Lambda:
		return typesystem.Lambda
	case *ast.FunctionCall:
		if info, ok := p.funcs[e.Name]; ok {
			return info.ret
		}
		return typesystem.Any
	case *ast.StructLiteral:
		return p.structType(e.Name)
	case *ast.OptionExpr:
		return typesystem.Option
	case *ast.ResultExpr:
		return typesystem.Result
	case *ast.FieldAccess:
		return p.inferFieldAccess(e)
	}
	return typesystem.Any
}

// inferInfix implements the inference table: Number op Number -> Number,
// Number/String mixes under + -> String, comparisons -> Bool.
func (p *Parser) inferInfix(e *ast.InfixExpression) typesystem.Type {
	switch e.Operator {
	case "==", "!=", "<", "<=", ">", ">=":
		return typesystem.Bool
	}
	lt := p.inferType(e.Left)
	rt := p.inferType(e.Right)
	if typesystem.Equal(lt, typesystem.Number) && typesystem.Equal(rt, typesystem.Number) {
		return typesystem.Number
	}
	if e.Operator == "+" {
		ls, rs := typesystem.Equal(lt, typesystem.String), typesystem.Equal(rt, typesystem.String)
		ln, rn := typesystem.Equal(lt, typesystem.Number), typesystem.Equal(rt, typesystem.Number)
		if (ls && rs) || (ls && rn) || (ln && rs) {
			return typesystem.String
		}
	}
	return typesystem.Any
}

func (p *Parser) inferFieldAccess(e *ast.FieldAccess) typesystem.Type {
	recv, ok := e.Recv.(*ast.Identifier)
	if !ok {
		return typesystem.Any
	}
	var structName string
	if recv.Name == "self" {
		structName = p.currentStruct
	} else if info, ok := p.lookupVar(recv.Name); ok {
		if inst, ok := info.typ.(typesystem.Instance); ok {
			structName = inst.Name
		}
	}
	if info, ok := p.structs[structName]; ok {
		if t, ok := info.fields[e.Field]; ok {
			return t
		}
	}
	return typesystem.Any
}
