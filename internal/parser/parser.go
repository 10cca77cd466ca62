// parser builds the AST and runs the compile-time checks: scope-keyed
// symbol tables, immutability and arity validation, return type checking
// and expression type inference.
//
// Split by concern:
// - parser.go: core state, token cursor, statement dispatch
// - expressions.go: precedence climbing, prefix forms, pipes, method calls
// - statements.go: declarations, functions, structs, control flow, import
// - types.go: type annotations and expression type inference
package parser

import (
	"fmt"

	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/ast"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/diagnostics"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/token"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/typesystem"
)

const maxParseDepth = 1000

const globalScope = "global"

type varKey struct {
	scope string
	name  string
}

type varInfo struct {
	mutable bool
	typ     typesystem.Type
}

type funcInfo struct {
	params []ast.Param
	ret    typesystem.Type
}

type structInfo struct {
	fields  map[string]typesystem.Type
	pub     bool
	methods map[string]*funcInfo
}

type Parser struct {
	tokens []token.Token
	pos    int

	errors []*diagnostics.ParseError

	scopes  []string
	vars    map[varKey]*varInfo
	funcs   map[string]*funcInfo
	structs map[string]*structInfo

	currentStruct string
	depth         int
}

func New(tokens []token.Token) *Parser {
	return &Parser{
		tokens:  tokens,
		scopes:  []string{globalScope},
		vars:    make(map[varKey]*varInfo),
		funcs:   make(map[string]*funcInfo),
		structs: make(map[string]*structInfo),
	}
}

// Errors returns the diagnostics collected while parsing.
func (p *Parser) Errors() []*diagnostics.ParseError { return p.errors }

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.tokens) {
		return token.Token{Type: token.EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peek() token.Token {
	if p.pos+1 >= len(p.tokens) {
		return token.Token{Type: token.EOF}
	}
	return p.tokens[p.pos+1]
}

func (p *Parser) next() token.Token {
	tok := p.cur()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(t token.Type) (token.Token, bool) {
	if p.cur().Type != t {
		p.addError(diagnostics.ErrP001, p.cur(), fmt.Sprintf("expected %s, got %s", t, p.cur().Type))
		return p.cur(), false
	}
	return p.next(), true
}

func (p *Parser) addError(code string, tok token.Token, msg string) {
	p.errors = append(p.errors, diagnostics.NewError(code, tok, msg))
}

func (p *Parser) skipNewlines() {
	for p.cur().Type == token.NEWLINE {
		p.next()
	}
}

// skipToLineEnd recovers from a syntax error by dropping tokens to the
// next statement boundary.
func (p *Parser) skipToLineEnd() {
	for p.cur().Type != token.NEWLINE && p.cur().Type != token.EOF {
		p.next()
	}
}

func (p *Parser) enterScope(name string) {
	p.scopes = append(p.scopes, name)
}

func (p *Parser) leaveScope() {
	if len(p.scopes) > 1 {
		// drop this scope's symbols so sibling scopes cannot see them
		scope := p.scopes[len(p.scopes)-1]
		for k := range p.vars {
			if k.scope == scope {
				delete(p.vars, k)
			}
		}
		p.scopes = p.scopes[:len(p.scopes)-1]
	}
}

func (p *Parser) currentScope() string {
	return p.scopes[len(p.scopes)-1]
}

// lookupVar walks active scopes innermost first, then global.
func (p *Parser) lookupVar(name string) (*varInfo, bool) {
	for i := len(p.scopes) - 1; i >= 0; i-- {
		if v, ok := p.vars[varKey{scope: p.scopes[i], name: name}]; ok {
			return v, true
		}
	}
	return nil, false
}

func (p *Parser) defineVar(name string, info *varInfo) {
	p.vars[varKey{scope: p.currentScope(), name: name}] = info
}

// Parse consumes the whole token stream. The returned error is the first
// collected diagnostic, nil when the program is clean.
func (p *Parser) Parse() ([]ast.Node, error) {
	var program []ast.Node
	for {
		p.skipNewlines()
		if p.cur().Type == token.EOF {
			break
		}
		stmt := p.parseStatement()
		if stmt != nil {
			program = append(program, stmt)
		} else {
			p.skipToLineEnd()
		}
	}
	if len(p.errors) > 0 {
		return program, p.errors[0]
	}
	return program, nil
}

func (p *Parser) parseStatement() ast.Node {
	switch p.cur().Type {
	case token.VAL:
		return p.parseDeclaration(false)
	case token.PUB:
		return p.parsePub()
	case token.FUN:
		return p.parseFunctionDef(false)
	case token.STRUCT:
		return p.parseStructDef(false)
	case token.IMPL:
		return p.parseImplBlock()
	case token.IMPORT:
		return p.parseImport()
	case token.RETURN:
		return p.parseReturn()
	case token.BREAK:
		tok := p.next()
		return &ast.BreakStatement{Token: tok}
	case token.CONTINUE:
		tok := p.next()
		return &ast.ContinueStatement{Token: tok}
	case token.FOR:
		return p.parseFor()
	case token.IF:
		return p.parseIf(false)
	case token.IDENT:
		if p.peek().Type == token.ASSIGN {
			return p.parseReassignment()
		}
	}
	expr := p.parseExpression(0)
	if expr == nil {
		return nil
	}
	// recv.field = value
	if fa, ok := expr.(*ast.FieldAccess); ok && p.cur().Type == token.ASSIGN {
		tok := p.next()
		value := p.parseExpression(0)
		return &ast.FieldAssign{Token: tok, Target: fa, Value: value}
	}
	return expr
}
