package parser

import (
	"fmt"
	"math/big"

	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/ast"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/diagnostics"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/token"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/typesystem"
)

// Binary priorities as (left, right) pairs. A right binding power one
// above the left makes every operator left-associative.
func infixPriority(t token.Type) (int, int, bool) {
	switch t {
	case token.EQ, token.NOT_EQ, token.LT, token.LTE, token.GT, token.GTE:
		return 1, 2, true
	case token.PLUS, token.MINUS:
		return 3, 4, true
	case token.ASTERISK, token.SLASH, token.PERCENT:
		return 5, 6, true
	}
	return 0, 0, false
}

const prefixPrecedence = 7

func (p *Parser) parseExpression(minPrec int) ast.Expression {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxParseDepth {
		p.addError(diagnostics.ErrP001, p.cur(), "expression nesting too deep")
		return nil
	}

	left := p.parsePrefix()
	if left == nil {
		return nil
	}

	for {
		tok := p.cur()
		if l, r, ok := infixPriority(tok.Type); ok && l >= minPrec {
			p.next()
			right := p.parseExpression(r)
			if right == nil {
				return nil
			}
			left = p.checkInfix(&ast.InfixExpression{Token: tok, Operator: tok.Lexeme, Left: left, Right: right})
			continue
		}
		switch tok.Type {
		case token.DOT:
			left = p.parseDotExpression(left)
			if left == nil {
				return nil
			}
			continue
		case token.ARROW:
			left = p.parsePipe(left)
			if left == nil {
				return nil
			}
			continue
		}
		return left
	}
}

// checkInfix runs type inference over a freshly built binary node and
// reports mismatches at parse time.
func (p *Parser) checkInfix(expr *ast.InfixExpression) ast.Expression {
	lt := p.inferType(expr.Left)
	rt := p.inferType(expr.Right)
	if lt == nil || rt == nil || typesystem.Equal(lt, typesystem.Any) || typesystem.Equal(rt, typesystem.Any) {
		return expr
	}
	switch expr.Operator {
	case "+", "-", "*", "/", "%":
		if typesystem.Equal(lt, typesystem.Number) && typesystem.Equal(rt, typesystem.Number) {
			return expr
		}
		if expr.Operator == "+" {
			ls, rs := typesystem.Equal(lt, typesystem.String), typesystem.Equal(rt, typesystem.String)
			ln, rn := typesystem.Equal(lt, typesystem.Number), typesystem.Equal(rt, typesystem.Number)
			if (ls && rs) || (ls && rn) || (ln && rs) {
				return expr
			}
		}
		p.addError(diagnostics.ErrP003, expr.Token, fmt.Sprintf("Type mismatch: %s %s %s", lt, expr.Operator, rt))
	case "==", "!=", "<", "<=", ">", ">=":
		if !typesystem.Equal(lt, rt) {
			p.addError(diagnostics.ErrP003, expr.Token, fmt.Sprintf("Type mismatch: %s %s %s", lt, expr.Operator, rt))
		}
	}
	return expr
}

func (p *Parser) parsePrefix() ast.Expression {
	tok := p.cur()
	switch tok.Type {
	case token.NUMBER:
		p.next()
		value, ok := new(big.Rat).SetString(tok.Literal)
		if !ok {
			p.addError(diagnostics.ErrP001, tok, fmt.Sprintf("invalid number literal %q", tok.Literal))
			return nil
		}
		return &ast.NumberLiteral{Token: tok, Value: value}
	case token.STRING:
		p.next()
		return &ast.StringLiteral{Token: tok, Value: tok.Literal}
	case token.TRUE:
		p.next()
		return &ast.BoolLiteral{Token: tok, Value: true}
	case token.FALSE:
		p.next()
		return &ast.BoolLiteral{Token: tok, Value: false}
	case token.MINUS:
		p.next()
		right := p.parseExpression(prefixPrecedence)
		if right == nil {
			return nil
		}
		return &ast.PrefixExpression{Token: tok, Operator: "-", Right: right}
	case token.LPAREN:
		p.next()
		expr := p.parseExpression(0)
		p.expect(token.RPAREN)
		return expr
	case token.LBRACKET:
		return p.parseListLiteral()
	case token.DICT_OPEN:
		return p.parseDictLiteral()
	case token.BACKSLASH:
		return p.parseLambda()
	case token.IF:
		node := p.parseIf(true)
		expr, _ := node.(ast.Expression)
		return expr
	case token.MATCH:
		node := p.parseMatch()
		expr, _ := node.(ast.Expression)
		return expr
	case token.IDENT:
		return p.parseIdentExpression()
	case token.ILLEGAL:
		p.next()
		p.addError(diagnostics.ErrL001, tok, fmt.Sprintf("invalid character %q", tok.Lexeme))
		return nil
	}
	p.addError(diagnostics.ErrP001, tok, fmt.Sprintf("unexpected token %q", tok.Lexeme))
	return nil
}

func (p *Parser) parseIdentExpression() ast.Expression {
	tok := p.next()
	name := tok.Literal

	switch name {
	case "Some":
		if _, ok := p.expect(token.LPAREN); !ok {
			return nil
		}
		inner := p.parseExpression(0)
		p.expect(token.RPAREN)
		return &ast.OptionExpr{Token: tok, Some: true, Value: inner}
	case "None":
		return &ast.OptionExpr{Token: tok, Some: false}
	case "Success", "Failure":
		if _, ok := p.expect(token.LPAREN); !ok {
			return nil
		}
		inner := p.parseExpression(0)
		p.expect(token.RPAREN)
		return &ast.ResultExpr{Token: tok, Success: name == "Success", Value: inner}
	}

	if p.cur().Type == token.LPAREN {
		return p.parseCall(tok, nil)
	}
	if p.cur().Type == token.LBRACE && isUpperInitial(name) {
		return p.parseStructLiteral(tok)
	}

	expr := &ast.Identifier{Token: tok, Name: name}
	if info, ok := p.lookupVar(name); ok {
		expr.ValueType = info.typ
	}
	return expr
}

// parseCall parses name(args). pipeArg, when non-nil, is prepended (the
// -> pipe form). Arity against the function table is a parse error.
func (p *Parser) parseCall(nameTok token.Token, pipeArg ast.Expression) ast.Expression {
	p.expect(token.LPAREN)
	var args []ast.Expression
	if pipeArg != nil {
		args = append(args, pipeArg)
	}
	for p.cur().Type != token.RPAREN && p.cur().Type != token.EOF {
		arg := p.parseExpression(0)
		if arg == nil {
			return nil
		}
		args = append(args, arg)
		if p.cur().Type == token.COMMA {
			p.next()
		}
	}
	p.expect(token.RPAREN)

	name := nameTok.Literal
	if info, ok := p.funcs[name]; ok {
		if len(args) != len(info.params) {
			p.addError(diagnostics.ErrP004, nameTok, "does not match arguments length")
		}
		return &ast.FunctionCall{Token: nameTok, Name: name, Args: args}
	}
	if info, ok := p.lookupVar(name); ok && typesystem.Equal(info.typ, typesystem.Lambda) {
		return &ast.LambdaCall{Token: nameTok, Lambda: &ast.Identifier{Token: nameTok, Name: name, ValueType: info.typ}, Args: args}
	}
	// builtins and forward references resolve at evaluation time
	return &ast.FunctionCall{Token: nameTok, Name: name, Args: args}
}

// parseDotExpression handles recv.name with a lookahead: a following
// LPAREN makes it a method call, anything else a field access.
func (p *Parser) parseDotExpression(recv ast.Expression) ast.Expression {
	p.next() // .
	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		return nil
	}
	if p.cur().Type == token.LPAREN {
		p.next()
		var args []ast.Expression
		for p.cur().Type != token.RPAREN && p.cur().Type != token.EOF {
			arg := p.parseExpression(0)
			if arg == nil {
				return nil
			}
			args = append(args, arg)
			if p.cur().Type == token.COMMA {
				p.next()
			}
		}
		p.expect(token.RPAREN)
		return &ast.MethodCall{Token: nameTok, Recv: recv, Method: nameTok.Literal, Args: args}
	}
	return &ast.FieldAccess{Token: nameTok, Recv: recv, Field: nameTok.Literal}
}

// parsePipe handles the -> call pipe. x -> f becomes f(x); a backslash on
// the right side applies a lambda immediately.
func (p *Parser) parsePipe(left ast.Expression) ast.Expression {
	arrow := p.next()
	switch p.cur().Type {
	case token.BACKSLASH:
		lambda := p.parseLambda()
		if lambda == nil {
			return nil
		}
		return &ast.LambdaCall{Token: arrow, Lambda: lambda, Args: []ast.Expression{left}}
	case token.IDENT:
		nameTok := p.next()
		if p.cur().Type == token.LPAREN {
			return p.parseCall(nameTok, left)
		}
		name := nameTok.Literal
		if info, ok := p.funcs[name]; ok {
			if len(info.params) != 1 {
				p.addError(diagnostics.ErrP004, nameTok, "does not match arguments length")
			}
			return &ast.FunctionCall{Token: nameTok, Name: name, Args: []ast.Expression{left}}
		}
		if info, ok := p.lookupVar(name); ok && typesystem.Equal(info.typ, typesystem.Lambda) {
			return &ast.LambdaCall{Token: nameTok, Lambda: &ast.Identifier{Token: nameTok, Name: name, ValueType: info.typ}, Args: []ast.Expression{left}}
		}
		return &ast.FunctionCall{Token: nameTok, Name: name, Args: []ast.Expression{left}}
	}
	p.addError(diagnostics.ErrP001, p.cur(), "expected function or lambda after ->")
	return nil
}

func (p *Parser) parseListLiteral() ast.Expression {
	tok := p.next() // [
	var elems []ast.Expression
	p.skipNewlines()
	for p.cur().Type != token.RBRACKET && p.cur().Type != token.EOF {
		elem := p.parseExpression(0)
		if elem == nil {
			return nil
		}
		elems = append(elems, elem)
		p.skipNewlines()
		if p.cur().Type == token.COMMA {
			p.next()
			p.skipNewlines()
		}
	}
	p.expect(token.RBRACKET)
	return &ast.ListLiteral{Token: tok, Elements: elems}
}

func (p *Parser) parseDictLiteral() ast.Expression {
	tok := p.next() // {:
	var pairs []ast.DictPair
	p.skipNewlines()
	for p.cur().Type != token.DICT_CLOSE && p.cur().Type != token.EOF {
		key := p.parseExpression(0)
		if key == nil {
			return nil
		}
		if _, ok := p.expect(token.FATARROW); !ok {
			return nil
		}
		value := p.parseExpression(0)
		if value == nil {
			return nil
		}
		pairs = append(pairs, ast.DictPair{Key: key, Value: value})
		p.skipNewlines()
		if p.cur().Type == token.COMMA {
			p.next()
			p.skipNewlines()
		}
	}
	p.expect(token.DICT_CLOSE)
	return &ast.DictLiteral{Token: tok, Pairs: pairs}
}

// parseLambda parses \|a: T, b| => expr-or-block.
func (p *Parser) parseLambda() ast.Expression {
	tok := p.next() // backslash
	if _, ok := p.expect(token.PIPE); !ok {
		return nil
	}
	var params []ast.Param
	for p.cur().Type != token.PIPE && p.cur().Type != token.EOF {
		nameTok, ok := p.expect(token.IDENT)
		if !ok {
			return nil
		}
		param := ast.Param{Token: nameTok, Name: nameTok.Literal, Type: typesystem.Any}
		if p.cur().Type == token.COLON {
			p.next()
			param.Type = p.parseTypeAnnotation()
		}
		params = append(params, param)
		if p.cur().Type == token.COMMA {
			p.next()
		}
	}
	p.expect(token.PIPE)
	if _, ok := p.expect(token.FATARROW); !ok {
		return nil
	}

	p.enterScope("lambda")
	for _, param := range params {
		p.defineVar(param.Name, &varInfo{mutable: false, typ: param.Type})
	}
	var body ast.Node
	if p.cur().Type == token.LBRACE {
		body = p.parseBlock("lambda")
	} else {
		body = p.parseExpression(0)
	}
	p.leaveScope()
	if body == nil {
		return nil
	}
	return &ast.Lambda{Token: tok, Params: params, Body: body}
}

func (p *Parser) parseStructLiteral(nameTok token.Token) ast.Expression {
	p.expect(token.LBRACE)
	var fields []ast.StructLiteralField
	p.skipNewlines()
	for p.cur().Type != token.RBRACE && p.cur().Type != token.EOF {
		fieldTok, ok := p.expect(token.IDENT)
		if !ok {
			return nil
		}
		if _, ok := p.expect(token.COLON); !ok {
			return nil
		}
		value := p.parseExpression(0)
		if value == nil {
			return nil
		}
		fields = append(fields, ast.StructLiteralField{Name: fieldTok.Literal, Value: value})
		p.skipNewlines()
		if p.cur().Type == token.COMMA {
			p.next()
			p.skipNewlines()
		}
	}
	p.expect(token.RBRACE)
	return &ast.StructLiteral{Token: nameTok, Name: nameTok.Literal, Fields: fields}
}

func isUpperInitial(name string) bool {
	if name == "" {
		return false
	}
	c := name[0]
	return c >= 'A' && c <= 'Z'
}
