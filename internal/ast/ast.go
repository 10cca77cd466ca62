package ast

import (
	"math/big"

	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/token"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/typesystem"
)

// Node is the interface all AST nodes implement. GetToken returns the
// token the node was parsed from, for diagnostics positioning.
type Node interface {
	GetToken() token.Token
}

type Expression interface {
	Node
	expressionNode()
}

type Statement interface {
	Node
	statementNode()
}

// NumberLiteral holds an exact rational. 1.5 parses to 3/2.
type NumberLiteral struct {
	Token token.Token
	Value *big.Rat
}

func (n *NumberLiteral) GetToken() token.Token { return n.Token }
func (n *NumberLiteral) expressionNode()       {}

type StringLiteral struct {
	Token token.Token
	Value string
}

func (s *StringLiteral) GetToken() token.Token { return s.Token }
func (s *StringLiteral) expressionNode()       {}

type BoolLiteral struct {
	Token token.Token
	Value bool
}

func (b *BoolLiteral) GetToken() token.Token { return b.Token }
func (b *BoolLiteral) expressionNode()       {}

// Identifier is a variable reference. ValueType is filled by the parser
// from its symbol tables when known.
type Identifier struct {
	Token     token.Token
	Name      string
	ValueType typesystem.Type
}

func (i *Identifier) GetToken() token.Token { return i.Token }
func (i *Identifier) expressionNode()       {}

type PrefixExpression struct {
	Token    token.Token
	Operator string
	Right    Expression
}

func (p *PrefixExpression) GetToken() token.Token { return p.Token }
func (p *PrefixExpression) expressionNode()       {}

type InfixExpression struct {
	Token    token.Token
	Operator string
	Left     Expression
	Right    Expression
}

func (i *InfixExpression) GetToken() token.Token { return i.Token }
func (i *InfixExpression) expressionNode()       {}

type ListLiteral struct {
	Token    token.Token
	Elements []Expression
}

func (l *ListLiteral) GetToken() token.Token { return l.Token }
func (l *ListLiteral) expressionNode()       {}

type DictPair struct {
	Key   Expression
	Value Expression
}

// DictLiteral is the {: "k" => v :} form. Keys are strings.
type DictLiteral struct {
	Token token.Token
	Pairs []DictPair
}

func (d *DictLiteral) GetToken() token.Token { return d.Token }
func (d *DictLiteral) expressionNode()       {}

type Block struct {
	Token      token.Token
	Statements []Node
}

func (b *Block) GetToken() token.Token { return b.Token }
func (b *Block) statementNode()        {}
func (b *Block) expressionNode()       {}

// Assign covers both declarations (IsNew) and reassignments.
type Assign struct {
	Token     token.Token
	Name      string
	Mutable   bool
	IsNew     bool
	Pub       bool
	ValueType typesystem.Type
	Value     Expression
}

func (a *Assign) GetToken() token.Token { return a.Token }
func (a *Assign) statementNode()        {}

// SelfKind of a method's first parameter.
type SelfKind int

const (
	NoSelf SelfKind = iota
	SelfRef
	MutSelfRef
)

type Param struct {
	Token token.Token
	Name  string
	Type  typesystem.Type
	Self  SelfKind
}

type FunctionDef struct {
	Token      token.Token
	Name       string
	Params     []Param
	ReturnType typesystem.Type
	Body       *Block
	Pub        bool
}

func (f *FunctionDef) GetToken() token.Token { return f.Token }
func (f *FunctionDef) statementNode()        {}

type Lambda struct {
	Token  token.Token
	Params []Param
	Body   Node // expression or block
}

func (l *Lambda) GetToken() token.Token { return l.Token }
func (l *Lambda) expressionNode()       {}

type FunctionCall struct {
	Token token.Token
	Name  string
	Args  []Expression
}

func (f *FunctionCall) GetToken() token.Token { return f.Token }
func (f *FunctionCall) expressionNode()       {}

// LambdaCall applies a lambda expression (or a variable holding one).
type LambdaCall struct {
	Token  token.Token
	Lambda Expression
	Args   []Expression
}

func (l *LambdaCall) GetToken() token.Token { return l.Token }
func (l *LambdaCall) expressionNode()       {}

type ReturnStatement struct {
	Token token.Token
	Value Expression
}

func (r *ReturnStatement) GetToken() token.Token { return r.Token }
func (r *ReturnStatement) statementNode()        {}

type BreakStatement struct {
	Token token.Token
}

func (b *BreakStatement) GetToken() token.Token { return b.Token }
func (b *BreakStatement) statementNode()        {}

type ContinueStatement struct {
	Token token.Token
}

func (c *ContinueStatement) GetToken() token.Token { return c.Token }
func (c *ContinueStatement) statementNode()        {}

// If doubles as statement and value expression. Value-position ifs are
// required to carry an Else by the parser.
type If struct {
	Token     token.Token
	Condition Expression
	Then      *Block
	Else      Node // *Block, *If or nil
}

func (i *If) GetToken() token.Token { return i.Token }
func (i *If) statementNode()        {}
func (i *If) expressionNode()       {}

type For struct {
	Token    token.Token
	Variable string
	Iterable Expression
	Body     *Block
}

func (f *For) GetToken() token.Token { return f.Token }
func (f *For) statementNode()        {}

// PatternKind distinguishes match arm patterns.
type PatternKind int

const (
	PatternLiteral PatternKind = iota
	PatternWildcard
	PatternSome
	PatternNone
	PatternSuccess
	PatternFailure
)

// Pattern for Some/Success/Failure wraps either a binding name or a
// literal to compare against.
type Pattern struct {
	Token   token.Token
	Kind    PatternKind
	Literal Expression // PatternLiteral, or inner literal of a constructor
	Binding string     // inner identifier of a constructor pattern
}

type MatchArm struct {
	Pattern Pattern
	Body    Node // expression or block
}

type Match struct {
	Token     token.Token
	Scrutinee Expression
	Arms      []MatchArm
}

func (m *Match) GetToken() token.Token { return m.Token }
func (m *Match) statementNode()        {}
func (m *Match) expressionNode()       {}

type StructField struct {
	Token token.Token
	Name  string
	Type  typesystem.Type
	Pub   bool
}

type StructDef struct {
	Token  token.Token
	Name   string
	Fields []StructField
	Pub    bool
}

func (s *StructDef) GetToken() token.Token { return s.Token }
func (s *StructDef) statementNode()        {}

type ImplBlock struct {
	Token      token.Token
	StructName string
	Methods    []*FunctionDef
}

func (i *ImplBlock) GetToken() token.Token { return i.Token }
func (i *ImplBlock) statementNode()        {}

type StructLiteralField struct {
	Name  string
	Value Expression
}

type StructLiteral struct {
	Token  token.Token
	Name   string
	Fields []StructLiteralField
}

func (s *StructLiteral) GetToken() token.Token { return s.Token }
func (s *StructLiteral) expressionNode()       {}

type FieldAccess struct {
	Token token.Token
	Recv  Expression
	Field string
}

func (f *FieldAccess) GetToken() token.Token { return f.Token }
func (f *FieldAccess) expressionNode()       {}

type FieldAssign struct {
	Token  token.Token
	Target *FieldAccess
	Value  Expression
}

func (f *FieldAssign) GetToken() token.Token { return f.Token }
func (f *FieldAssign) statementNode()        {}

type MethodCall struct {
	Token  token.Token
	Recv   Expression
	Method string
	Args   []Expression
}

func (m *MethodCall) GetToken() token.Token { return m.Token }
func (m *MethodCall) expressionNode()       {}

// OptionExpr is Some(e) or None.
type OptionExpr struct {
	Token token.Token
	Some  bool
	Value Expression
}

func (o *OptionExpr) GetToken() token.Token { return o.Token }
func (o *OptionExpr) expressionNode()       {}

// ResultExpr is Success(e) or Failure(e).
type ResultExpr struct {
	Token   token.Token
	Success bool
	Value   Expression
}

func (r *ResultExpr) GetToken() token.Token { return r.Token }
func (r *ResultExpr) expressionNode()       {}

type Import struct {
	Token   token.Token
	Symbols []string
	Module  string
}

func (i *Import) GetToken() token.Token { return i.Token }
func (i *Import) statementNode()        {}
