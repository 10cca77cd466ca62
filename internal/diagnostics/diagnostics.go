package diagnostics

import (
	"fmt"
	"strings"

	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/token"
)

// Error codes. P-codes come out of the lexer/parser, R-codes out of the
// evaluator and module loader.
const (
	ErrP001 = "P001" // unexpected token / syntax
	ErrP002 = "P002" // immutability violation
	ErrP003 = "P003" // type mismatch
	ErrP004 = "P004" // arity mismatch
	ErrP005 = "P005" // return type violation
	ErrP006 = "P006" // invalid name
	ErrL001 = "L001" // invalid character

	ErrR001 = "R001" // undefined name
	ErrR002 = "R002" // invalid operation
	ErrR003 = "R003" // mutability violation
	ErrR004 = "R004" // arity mismatch
	ErrR005 = "R005" // no match arm
	ErrR006 = "R006" // struct/method error
	ErrR007 = "R007" // module error
	ErrR008 = "R008" // depth exceeded
)

// ParseError is a positioned diagnostic produced before evaluation starts.
type ParseError struct {
	Code    string
	Message string
	Line    int
	Column  int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("[%s] %s (line %d, column %d)", e.Code, e.Message, e.Line, e.Column)
}

// NewError builds a ParseError positioned at tok.
func NewError(code string, tok token.Token, message string) *ParseError {
	return &ParseError{Code: code, Message: message, Line: tok.Line, Column: tok.Column}
}

// RuntimeError is a positioned evaluation failure. Frames records the call
// stack innermost-first.
type RuntimeError struct {
	Code    string
	Message string
	Line    int
	Column  int
	Frames  []string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("[%s] %s (line %d, column %d)", e.Code, e.Message, e.Line, e.Column)
}

// NewRuntimeError builds a RuntimeError at an explicit position.
func NewRuntimeError(code, message string, line, column int) *RuntimeError {
	return &RuntimeError{Code: code, Message: message, Line: line, Column: column}
}

// Render formats a diagnostic with the offending source line and a caret.
func Render(source, message string, line, column int) string {
	var b strings.Builder
	b.WriteString(message)
	lines := strings.Split(source, "\n")
	if line >= 1 && line <= len(lines) {
		src := lines[line-1]
		b.WriteString("\n")
		b.WriteString(src)
		b.WriteString("\n")
		if column > 1 {
			b.WriteString(strings.Repeat(" ", column-1))
		}
		b.WriteString("^")
	}
	return b.String()
}
