package parser

import (
	"fmt"

	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/ast"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/diagnostics"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/token"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/typesystem"
)

// parseDeclaration parses `val [mut] name [: type] = expr`.
func (p *Parser) parseDeclaration(pub bool) ast.Node {
	valTok := p.next()
	mutable := false
	if p.cur().Type == token.MUT {
		p.next()
		mutable = true
	}
	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		return nil
	}
	var declared typesystem.Type
	if p.cur().Type == token.COLON {
		p.next()
		declared = p.parseTypeAnnotation()
	}
	if _, ok := p.expect(token.ASSIGN); !ok {
		return nil
	}
	value := p.parseExpression(0)
	if value == nil {
		return nil
	}

	inferred := p.inferType(value)
	if declared != nil && inferred != nil &&
		!typesystem.Equal(declared, typesystem.Any) && !typesystem.Equal(inferred, typesystem.Any) &&
		!typesystem.Equal(declared, inferred) {
		p.addError(diagnostics.ErrP003, nameTok, fmt.Sprintf("Type mismatch: declared %s, got %s", declared, inferred))
	}
	typ := declared
	if typ == nil {
		typ = inferred
	}
	if typ == nil {
		typ = typesystem.Any
	}

	p.defineVar(nameTok.Literal, &varInfo{mutable: mutable, typ: typ})
	return &ast.Assign{Token: valTok, Name: nameTok.Literal, Mutable: mutable, IsNew: true, Pub: pub, ValueType: typ, Value: value}
}

// parseReassignment parses `name = expr`. Writing to an immutable binding
// is rejected here, before any evaluation happens.
func (p *Parser) parseReassignment() ast.Node {
	nameTok := p.next()
	p.next() // =
	value := p.parseExpression(0)
	if value == nil {
		return nil
	}

	info, exists := p.lookupVar(nameTok.Literal)
	if exists {
		if !info.mutable {
			p.addError(diagnostics.ErrP002, nameTok, "Cannot reassign to immutable variable")
		}
		inferred := p.inferType(value)
		if inferred != nil && info.typ != nil &&
			!typesystem.Equal(info.typ, typesystem.Any) && !typesystem.Equal(inferred, typesystem.Any) &&
			!typesystem.Equal(info.typ, inferred) {
			p.addError(diagnostics.ErrP003, nameTok, fmt.Sprintf("Type mismatch: %s is %s, got %s", nameTok.Literal, info.typ, inferred))
		}
	} else {
		p.addError(diagnostics.ErrP001, nameTok, fmt.Sprintf("undefined variable %s", nameTok.Literal))
	}
	mutable := exists && info.mutable
	var typ typesystem.Type = typesystem.Any
	if exists {
		typ = info.typ
	}
	return &ast.Assign{Token: nameTok, Name: nameTok.Literal, Mutable: mutable, IsNew: false, ValueType: typ, Value: value}
}

func (p *Parser) parsePub() ast.Node {
	p.next() // pub
	switch p.cur().Type {
	case token.VAL:
		return p.parseDeclaration(true)
	case token.FUN:
		return p.parseFunctionDef(true)
	case token.STRUCT:
		return p.parseStructDef(true)
	}
	p.addError(diagnostics.ErrP001, p.cur(), "pub must precede val, fun or struct")
	return nil
}

// parseFunctionDef parses `fun name(params): ret { body }`. The function
// is registered before its body so recursion resolves.
func (p *Parser) parseFunctionDef(pub bool) ast.Node {
	funTok := p.next()
	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		return nil
	}
	params, ok := p.parseParams()
	if !ok {
		return nil
	}
	var retType typesystem.Type = typesystem.Void
	if p.cur().Type == token.COLON {
		p.next()
		retType = p.parseTypeAnnotation()
	}

	info := &funcInfo{params: params, ret: retType}
	if p.currentStruct == "" {
		p.funcs[nameTok.Literal] = info
	}

	p.enterScope(nameTok.Literal)
	for _, param := range params {
		if param.Self != ast.NoSelf {
			p.defineVar("self", &varInfo{mutable: param.Self == ast.MutSelfRef, typ: p.structType(p.currentStruct)})
			continue
		}
		p.defineVar(param.Name, &varInfo{mutable: false, typ: param.Type})
	}
	body := p.parseBlock(nameTok.Literal)
	if body != nil {
		// validate while parameter bindings are still in scope
		p.checkReturnType(nameTok, body, retType)
	}
	p.leaveScope()
	if body == nil {
		return nil
	}
	return &ast.FunctionDef{Token: funTok, Name: nameTok.Literal, Params: params, ReturnType: retType, Body: body, Pub: pub}
}

func (p *Parser) parseParams() ([]ast.Param, bool) {
	if _, ok := p.expect(token.LPAREN); !ok {
		return nil, false
	}
	var params []ast.Param
	for p.cur().Type != token.RPAREN && p.cur().Type != token.EOF {
		if p.cur().Type == token.MUT {
			mutTok := p.next()
			selfTok, ok := p.expect(token.IDENT)
			if !ok || selfTok.Literal != "self" {
				p.addError(diagnostics.ErrP001, mutTok, "mut is only valid on self")
				return nil, false
			}
			params = append(params, ast.Param{Token: selfTok, Name: "self", Self: ast.MutSelfRef, Type: typesystem.MutSelf})
		} else {
			nameTok, ok := p.expect(token.IDENT)
			if !ok {
				return nil, false
			}
			if nameTok.Literal == "self" {
				params = append(params, ast.Param{Token: nameTok, Name: "self", Self: ast.SelfRef, Type: typesystem.Self})
			} else {
				param := ast.Param{Token: nameTok, Name: nameTok.Literal, Type: typesystem.Any}
				if p.cur().Type == token.COLON {
					p.next()
					param.Type = p.parseTypeAnnotation()
				}
				params = append(params, param)
			}
		}
		if p.cur().Type == token.COMMA {
			p.next()
		}
	}
	p.expect(token.RPAREN)
	return params, true
}

func (p *Parser) parseBlock(scope string) *ast.Block {
	braceTok, ok := p.expect(token.LBRACE)
	if !ok {
		return nil
	}
	block := &ast.Block{Token: braceTok}
	for {
		p.skipNewlines()
		if p.cur().Type == token.RBRACE || p.cur().Type == token.EOF {
			break
		}
		stmt := p.parseStatement()
		if stmt == nil {
			p.skipToLineEnd()
			continue
		}
		block.Statements = append(block.Statements, stmt)
	}
	p.expect(token.RBRACE)
	return block
}

func (p *Parser) parseReturn() ast.Node {
	tok := p.next()
	if p.cur().Type == token.NEWLINE || p.cur().Type == token.RBRACE || p.cur().Type == token.EOF {
		return &ast.ReturnStatement{Token: tok}
	}
	value := p.parseExpression(0)
	return &ast.ReturnStatement{Token: tok, Value: value}
}

// parseIf parses if/else chains. In value position the else branch is
// mandatory so the expression always produces something.
func (p *Parser) parseIf(valuePosition bool) ast.Node {
	ifTok := p.next()
	cond := p.parseExpression(0)
	if cond == nil {
		return nil
	}
	p.enterScope("if")
	then := p.parseBlock("if")
	p.leaveScope()
	if then == nil {
		return nil
	}
	node := &ast.If{Token: ifTok, Condition: cond, Then: then}
	if p.cur().Type == token.ELSE {
		p.next()
		if p.cur().Type == token.IF {
			node.Else = p.parseIf(valuePosition)
		} else {
			p.enterScope("else")
			node.Else = p.parseBlock("else")
			p.leaveScope()
		}
	} else if valuePosition {
		p.addError(diagnostics.ErrP001, ifTok, "if used as a value requires an else branch")
	}
	return node
}

func (p *Parser) parseFor() ast.Node {
	forTok := p.next()
	varTok, ok := p.expect(token.IDENT)
	if !ok {
		return nil
	}
	if _, ok := p.expect(token.IN); !ok {
		return nil
	}
	iterable := p.parseExpression(0)
	if iterable == nil {
		return nil
	}
	p.enterScope("for-" + varTok.Literal)
	p.defineVar(varTok.Literal, &varInfo{mutable: false, typ: typesystem.Any})
	body := p.parseBlock("for-" + varTok.Literal)
	p.leaveScope()
	if body == nil {
		return nil
	}
	return &ast.For{Token: forTok, Variable: varTok.Literal, Iterable: iterable, Body: body}
}

func (p *Parser) parseMatch() ast.Node {
	matchTok := p.next()
	scrutinee := p.parseExpression(0)
	if scrutinee == nil {
		return nil
	}
	if _, ok := p.expect(token.LBRACE); !ok {
		return nil
	}
	node := &ast.Match{Token: matchTok, Scrutinee: scrutinee}
	sawWildcard := false
	for {
		p.skipNewlines()
		if p.cur().Type == token.RBRACE || p.cur().Type == token.EOF {
			break
		}
		pattern, ok := p.parsePattern()
		if !ok {
			p.skipToLineEnd()
			continue
		}
		if pattern.Kind == ast.PatternWildcard {
			if sawWildcard {
				p.addError(diagnostics.ErrP001, pattern.Token, "only one wildcard arm is allowed in match")
			}
			sawWildcard = true
		}
		if _, ok := p.expect(token.FATARROW); !ok {
			p.skipToLineEnd()
			continue
		}

		p.enterScope("match")
		if pattern.Binding != "" {
			p.defineVar(pattern.Binding, &varInfo{mutable: true, typ: typesystem.Any})
		}
		var body ast.Node
		if p.cur().Type == token.LBRACE {
			body = p.parseBlock("match")
		} else {
			body = p.parseExpression(0)
		}
		p.leaveScope()
		if body == nil {
			p.skipToLineEnd()
			continue
		}
		node.Arms = append(node.Arms, ast.MatchArm{Pattern: pattern, Body: body})
		if p.cur().Type == token.COMMA {
			p.next()
		}
	}
	p.expect(token.RBRACE)
	return node
}

func (p *Parser) parsePattern() (ast.Pattern, bool) {
	tok := p.cur()
	if tok.Type == token.IDENT {
		switch tok.Literal {
		case "_":
			p.next()
			return ast.Pattern{Token: tok, Kind: ast.PatternWildcard}, true
		case "None":
			p.next()
			return ast.Pattern{Token: tok, Kind: ast.PatternNone}, true
		case "Some", "Success", "Failure":
			p.next()
			if _, ok := p.expect(token.LPAREN); !ok {
				return ast.Pattern{}, false
			}
			kind := ast.PatternSome
			if tok.Literal == "Success" {
				kind = ast.PatternSuccess
			} else if tok.Literal == "Failure" {
				kind = ast.PatternFailure
			}
			pattern := ast.Pattern{Token: tok, Kind: kind}
			// an identifier binds the unwrapped value, a literal compares
			if p.cur().Type == token.IDENT && p.peek().Type == token.RPAREN {
				pattern.Binding = p.next().Literal
			} else {
				inner := p.parseExpression(0)
				if inner == nil {
					return ast.Pattern{}, false
				}
				pattern.Literal = inner
			}
			p.expect(token.RPAREN)
			return pattern, true
		}
	}
	literal := p.parseExpression(0)
	if literal == nil {
		return ast.Pattern{}, false
	}
	return ast.Pattern{Token: tok, Kind: ast.PatternLiteral, Literal: literal}, true
}

func (p *Parser) parseStructDef(pub bool) ast.Node {
	structTok := p.next()
	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		return nil
	}
	if !isUpperInitial(nameTok.Literal) {
		p.addError(diagnostics.ErrP006, nameTok, "Struct name must start with an uppercase letter")
	}
	if _, ok := p.expect(token.LBRACE); !ok {
		return nil
	}
	node := &ast.StructDef{Token: structTok, Name: nameTok.Literal, Pub: pub}
	fieldTypes := make(map[string]typesystem.Type)
	for {
		p.skipNewlines()
		if p.cur().Type == token.RBRACE || p.cur().Type == token.EOF {
			break
		}
		fieldPub := false
		if p.cur().Type == token.PUB {
			p.next()
			fieldPub = true
		}
		fieldTok, ok := p.expect(token.IDENT)
		if !ok {
			return nil
		}
		if _, ok := p.expect(token.COLON); !ok {
			return nil
		}
		fieldType := p.parseTypeAnnotation()
		node.Fields = append(node.Fields, ast.StructField{Token: fieldTok, Name: fieldTok.Literal, Type: fieldType, Pub: fieldPub})
		fieldTypes[fieldTok.Literal] = fieldType
		p.skipNewlines()
		if p.cur().Type == token.COMMA {
			p.next()
		}
	}
	p.expect(token.RBRACE)

	if _, exists := p.structs[nameTok.Literal]; exists {
		p.addError(diagnostics.ErrP006, nameTok, fmt.Sprintf("Struct %s already exists", nameTok.Literal))
	}
	p.structs[nameTok.Literal] = &structInfo{fields: fieldTypes, pub: pub, methods: make(map[string]*funcInfo)}
	return node
}

func (p *Parser) parseImplBlock() ast.Node {
	implTok := p.next()
	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		return nil
	}
	info, exists := p.structs[nameTok.Literal]
	if !exists {
		p.addError(diagnostics.ErrP006, nameTok, fmt.Sprintf("Struct '%s' not found for Impl", nameTok.Literal))
	}
	if _, ok := p.expect(token.LBRACE); !ok {
		return nil
	}
	node := &ast.ImplBlock{Token: implTok, StructName: nameTok.Literal}
	p.currentStruct = nameTok.Literal
	for {
		p.skipNewlines()
		if p.cur().Type == token.RBRACE || p.cur().Type == token.EOF {
			break
		}
		method, _ := p.parseFunctionDef(false).(*ast.FunctionDef)
		if method == nil {
			p.skipToLineEnd()
			continue
		}
		if len(method.Params) == 0 || method.Params[0].Self == ast.NoSelf {
			p.addError(diagnostics.ErrP001, method.Token, fmt.Sprintf("first parameter of method %s must be self", method.Name))
		}
		node.Methods = append(node.Methods, method)
		if exists {
			info.methods[method.Name] = &funcInfo{params: method.Params, ret: method.ReturnType}
		}
	}
	p.currentStruct = ""
	p.expect(token.RBRACE)
	return node
}

func (p *Parser) parseImport() ast.Node {
	importTok := p.next()
	var symbols []string
	for {
		symTok, ok := p.expect(token.IDENT)
		if !ok {
			return nil
		}
		symbols = append(symbols, symTok.Literal)
		if p.cur().Type != token.COMMA {
			break
		}
		p.next()
	}
	if _, ok := p.expect(token.FROM); !ok {
		return nil
	}
	modTok, ok := p.expect(token.IDENT)
	if !ok {
		return nil
	}
	// imported names resolve dynamically; register them so later
	// references pass the parse-time lookups
	for _, sym := range symbols {
		if isUpperInitial(sym) {
			if _, exists := p.structs[sym]; !exists {
				p.structs[sym] = &structInfo{fields: map[string]typesystem.Type{}, methods: make(map[string]*funcInfo)}
			}
		} else {
			p.defineVar(sym, &varInfo{mutable: false, typ: typesystem.Any})
		}
	}
	return &ast.Import{Token: importTok, Symbols: symbols, Module: modTok.Literal}
}

// checkReturnType validates a function body against its declared return
// type: wrong returned type is "Return type mismatch", a missing return
// for a non-void signature is "Missing return statement".
func (p *Parser) checkReturnType(nameTok token.Token, body *ast.Block, declared typesystem.Type) {
	if declared == nil || typesystem.Equal(declared, typesystem.Any) {
		return
	}
	returns := collectReturns(body)
	if typesystem.Equal(declared, typesystem.Void) {
		for _, r := range returns {
			if r.Value == nil {
				continue
			}
			if t := p.inferType(r.Value); t != nil && !typesystem.Equal(t, typesystem.Any) && !typesystem.Equal(t, typesystem.Void) {
				p.addError(diagnostics.ErrP005, r.Token, fmt.Sprintf("Return type mismatch: expected void, got %s", t))
			}
		}
		return
	}
	if len(returns) == 0 {
		p.addError(diagnostics.ErrP005, nameTok, "Missing return statement")
		return
	}
	for _, r := range returns {
		if r.Value == nil {
			p.addError(diagnostics.ErrP005, r.Token, fmt.Sprintf("Return type mismatch: expected %s, got void", declared))
			continue
		}
		t := p.inferType(r.Value)
		if t == nil || typesystem.Equal(t, typesystem.Any) {
			continue
		}
		if !typesystem.Equal(t, declared) {
			p.addError(diagnostics.ErrP005, r.Token, fmt.Sprintf("Return type mismatch: expected %s, got %s", declared, t))
		}
	}
}

// collectReturns gathers return statements reachable in a body without
// descending into nested function or lambda definitions.
func collectReturns(node ast.Node) []*ast.ReturnStatement {
	var out []*ast.ReturnStatement
	switch n := node.(type) {
	case *ast.Block:
		for _, stmt := range n.Statements {
			out = append(out, collectReturns(stmt)...)
		}
	case *ast.ReturnStatement:
		out = append(out, n)
	case *ast.If:
		out = append(out, collectReturns(n.Then)...)
		if n.Else != nil {
			out = append(out, collectReturns(n.Else)...)
		}
	case *ast.For:
		out = append(out, collectReturns(n.Body)...)
	case *ast.Match:
		for _, arm := range n.Arms {
			out = append(out, collectReturns(arm.Body)...)
		}
	}
	return out
}
