// Package pipeline chains the interpretation stages: tokenize, parse,
// evaluate. The CLI and the module loader both run sources through it.
package pipeline

import (
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/ast"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/evaluator"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/lexer"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/parser"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/token"
)

// Context carries the artifacts of a single source unit through the
// stages.
type Context struct {
	Source    string
	Tokens    []token.Token
	Program   []ast.Node
	Evaluator *evaluator.Evaluator
	Result    evaluator.Object
}

type Processor interface {
	Process(ctx *Context) error
}

type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

func (p *Pipeline) Run(ctx *Context) error {
	for _, proc := range p.processors {
		if err := proc.Process(ctx); err != nil {
			return err
		}
	}
	return nil
}

type TokenizeStage struct{}

func (TokenizeStage) Process(ctx *Context) error {
	ctx.Tokens = lexer.New(ctx.Source).Tokenize()
	return nil
}

type ParseStage struct{}

func (ParseStage) Process(ctx *Context) error {
	program, err := parser.New(ctx.Tokens).Parse()
	if err != nil {
		return err
	}
	ctx.Program = program
	return nil
}

type EvalStage struct{}

func (EvalStage) Process(ctx *Context) error {
	result, err := ctx.Evaluator.EvalProgram(ctx.Program)
	if err != nil {
		return err
	}
	ctx.Result = result
	return nil
}

// Default is the full tokenize/parse/evaluate chain.
func Default() *Pipeline {
	return New(TokenizeStage{}, ParseStage{}, EvalStage{})
}
