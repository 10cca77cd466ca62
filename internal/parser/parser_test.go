package parser

import (
	"strings"
	"testing"

	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/ast"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/lexer"
)

func parse(t *testing.T, input string) ([]ast.Node, *Parser) {
	t.Helper()
	p := New(lexer.New(input).Tokenize())
	program, _ := p.Parse()
	return program, p
}

func expectError(t *testing.T, input, fragment string) {
	t.Helper()
	_, p := parse(t, input)
	for _, err := range p.Errors() {
		if strings.Contains(err.Message, fragment) {
			return
		}
	}
	t.Fatalf("expected error containing %q, got %v", fragment, p.Errors())
}

func expectClean(t *testing.T, input string) []ast.Node {
	t.Helper()
	program, p := parse(t, input)
	if len(p.Errors()) > 0 {
		t.Fatalf("unexpected errors: %v", p.Errors())
	}
	return program
}

func TestImmutableReassignmentIsAParseError(t *testing.T) {
	expectError(t, "val x = 1\nx = 2", "Cannot reassign to immutable variable")
}

func TestMutableReassignmentParses(t *testing.T) {
	expectClean(t, "val mut x = 1\nx = 2")
}

func TestArityMismatchIsAParseError(t *testing.T) {
	input := `fun add(x: number, y: number): number {
	return x + y
}
add(1)`
	expectError(t, input, "does not match arguments length")
}

func TestReturnTypeMismatch(t *testing.T) {
	input := `fun f(): number {
	return "a"
}`
	expectError(t, input, "Return type mismatch")
}

func TestMissingReturnStatement(t *testing.T) {
	input := `fun f(): number {
	val x = 1
}`
	expectError(t, input, "Missing return statement")
}

func TestVoidFunctionNeedsNoReturn(t *testing.T) {
	expectClean(t, "fun f() {\n\tval x = 1\n}")
}

func TestInfixTypeMismatch(t *testing.T) {
	expectError(t, "val x = 1 + true", "Type mismatch")
}

func TestNumberStringConcatInference(t *testing.T) {
	// Number + String infers String, so a string comparison is legal
	expectClean(t, `val x = 1 + "a"
val y = x + "b"`)
}

func TestDeclaredTypeMismatch(t *testing.T) {
	expectError(t, `val x: number = "a"`, "Type mismatch")
}

func TestValueIfRequiresElse(t *testing.T) {
	expectError(t, "val x = if true { 1 }", "requires an else branch")
}

func TestStatementIfNeedsNoElse(t *testing.T) {
	expectClean(t, "if true {\n\tval x = 1\n}")
}

func TestStructNameMustBeUppercase(t *testing.T) {
	expectError(t, "struct point {\n\tx: number\n}", "uppercase")
}

func TestImplUnknownStruct(t *testing.T) {
	expectError(t, "impl Point {\n}", "not found for Impl")
}

func TestDuplicateStruct(t *testing.T) {
	input := `struct P {
	x: number
}
struct P {
	x: number
}`
	expectError(t, input, "already exists")
}

func TestUndefinedVariableReassignment(t *testing.T) {
	expectError(t, "x = 1", "undefined variable")
}

func TestFunctionScopeDoesNotLeak(t *testing.T) {
	input := `fun f(x: number): number {
	return x
}
x = 1`
	expectError(t, input, "undefined variable")
}

func TestBlockScopeSeesGlobal(t *testing.T) {
	expectClean(t, `val mut count = 0
fun bump() {
	count = count + 1
}`)
}

func TestPipeParsesToCall(t *testing.T) {
	program := expectClean(t, `fun double(x: number): number {
	return x * 2
}
5 -> double`)
	last := program[len(program)-1]
	call, ok := last.(*ast.FunctionCall)
	if !ok {
		t.Fatalf("expected function call, got %T", last)
	}
	if call.Name != "double" || len(call.Args) != 1 {
		t.Fatalf("unexpected call %+v", call)
	}
}

func TestPipeIntoLambda(t *testing.T) {
	program := expectClean(t, `5 -> \|x| => x * 3`)
	if _, ok := program[0].(*ast.LambdaCall); !ok {
		t.Fatalf("expected lambda call, got %T", program[0])
	}
}

func TestMethodCallVsFieldAccess(t *testing.T) {
	program := expectClean(t, `struct P {
	x: number
}
val mut p = P{x: 1}
p.x
`)
	if _, ok := program[len(program)-1].(*ast.FieldAccess); !ok {
		t.Fatalf("expected field access, got %T", program[len(program)-1])
	}

	program = expectClean(t, "val mut xs = [1]\nxs.len()")
	if _, ok := program[len(program)-1].(*ast.MethodCall); !ok {
		t.Fatalf("expected method call, got %T", program[len(program)-1])
	}
}

func TestPrecedence(t *testing.T) {
	program := expectClean(t, "1 + 2 * 3")
	infix, ok := program[0].(*ast.InfixExpression)
	if !ok || infix.Operator != "+" {
		t.Fatalf("expected + at the root, got %T", program[0])
	}
	right, ok := infix.Right.(*ast.InfixExpression)
	if !ok || right.Operator != "*" {
		t.Fatalf("expected * on the right, got %T", infix.Right)
	}
}

func TestComparisonBindsLoosest(t *testing.T) {
	program := expectClean(t, "1 + 2 == 3")
	infix, ok := program[0].(*ast.InfixExpression)
	if !ok || infix.Operator != "==" {
		t.Fatalf("expected == at the root, got %+v", program[0])
	}
}

func TestMatchPatterns(t *testing.T) {
	program := expectClean(t, `match Some(1) {
	Some(v) => v
	None => 0
	_ => 2
}`)
	m, ok := program[0].(*ast.Match)
	if !ok {
		t.Fatalf("expected match, got %T", program[0])
	}
	if len(m.Arms) != 3 {
		t.Fatalf("expected 3 arms, got %d", len(m.Arms))
	}
	if m.Arms[0].Pattern.Kind != ast.PatternSome || m.Arms[0].Pattern.Binding != "v" {
		t.Fatalf("unexpected first arm %+v", m.Arms[0].Pattern)
	}
	if m.Arms[1].Pattern.Kind != ast.PatternNone {
		t.Fatalf("unexpected second arm %+v", m.Arms[1].Pattern)
	}
	if m.Arms[2].Pattern.Kind != ast.PatternWildcard {
		t.Fatalf("unexpected third arm %+v", m.Arms[2].Pattern)
	}
}

func TestImportParses(t *testing.T) {
	program := expectClean(t, "import a, b from Foo\na(1)")
	imp, ok := program[0].(*ast.Import)
	if !ok {
		t.Fatalf("expected import, got %T", program[0])
	}
	if imp.Module != "Foo" || len(imp.Symbols) != 2 {
		t.Fatalf("unexpected import %+v", imp)
	}
}

func TestMutOnlyValidOnSelf(t *testing.T) {
	expectError(t, "fun f(mut x: number) {\n}", "mut is only valid on self")
}

func TestLoopVariableIsImmutable(t *testing.T) {
	expectError(t, "for i in [1, 2] {\n\ti = 5\n}", "Cannot reassign to immutable variable")
}

func TestSecondWildcardArmIsRejected(t *testing.T) {
	expectError(t, "match 1 {\n\t_ => 0\n\t_ => 1\n}", "only one wildcard arm")
}

func TestMethodFirstParamMustBeSelf(t *testing.T) {
	input := `struct P {
	x: number
}
impl P {
	fun get(n: number): number {
		return n
	}
}`
	expectError(t, input, "must be self")
}

func TestIllegalCharacter(t *testing.T) {
	expectError(t, "val x = @", "invalid character")
}
