package evaluator

import (
	"bytes"
	"math/big"
	"strings"
	"testing"

	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/lexer"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/parser"
)

func run(t *testing.T, input string) (Object, *bytes.Buffer, error) {
	t.Helper()
	program, err := parser.New(lexer.New(input).Tokenize()).Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	var out bytes.Buffer
	e := New(&out)
	result, evalErr := e.EvalProgram(program)
	return result, &out, evalErr
}

func runValue(t *testing.T, input string) Object {
	t.Helper()
	result, _, err := run(t, input)
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	return result
}

func expectNumber(t *testing.T, obj Object, want string) {
	t.Helper()
	num, ok := obj.(*Number)
	if !ok {
		t.Fatalf("expected number, got %T (%v)", obj, obj)
	}
	expected, _ := new(big.Rat).SetString(want)
	if num.Value.Cmp(expected) != 0 {
		t.Fatalf("expected %s, got %s", want, num.Value.RatString())
	}
}

func expectRuntimeError(t *testing.T, input, fragment string) {
	t.Helper()
	_, _, err := run(t, input)
	if err == nil {
		t.Fatalf("expected error containing %q, got none", fragment)
	}
	if !strings.Contains(err.Error(), fragment) {
		t.Fatalf("expected error containing %q, got %v", fragment, err)
	}
}

func TestExactRationalArithmetic(t *testing.T) {
	expectNumber(t, runValue(t, "1 / 3 * 2 / 5"), "2/15")

	result := runValue(t, "0.1 + 0.2 == 0.3")
	if b, ok := result.(*Bool); !ok || !b.Value {
		t.Fatalf("expected 0.1 + 0.2 == 0.3 to be true, got %v", result)
	}
}

func TestArithmeticPrecedence(t *testing.T) {
	expectNumber(t, runValue(t, "1 + 2 * 3"), "7")
	expectNumber(t, runValue(t, "(1 + 2) * 3"), "9")
	expectNumber(t, runValue(t, "-2 * 3"), "-6")
	expectNumber(t, runValue(t, "7 % 3"), "1")
}

func TestDivisionByZero(t *testing.T) {
	expectRuntimeError(t, "1 / 0", "division by zero")
}

func TestNumberStringConcat(t *testing.T) {
	result := runValue(t, `"x = " + 1.5`)
	if s, ok := result.(*String); !ok || s.Value != "x = 1.5" {
		t.Fatalf("unexpected result %v", result)
	}
	result = runValue(t, `1 + "st"`)
	if s, ok := result.(*String); !ok || s.Value != "1st" {
		t.Fatalf("unexpected result %v", result)
	}
}

func TestPrintWritesToOut(t *testing.T) {
	_, out, err := run(t, `print("hello", 2)`)
	if err != nil {
		t.Fatal(err)
	}
	if out.String() != "hello 2\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestIfElseValue(t *testing.T) {
	expectNumber(t, runValue(t, "val x = if 1 < 2 { 10 } else { 20 }\nx"), "10")
	expectNumber(t, runValue(t, "val x = if 1 > 2 { 10 } else { 20 }\nx"), "20")
}

func TestFunctionCallAndReturn(t *testing.T) {
	input := `fun add(x: number, y: number): number {
	return x + y
}
add(1, 2)`
	expectNumber(t, runValue(t, input), "3")
}

func TestRecursion(t *testing.T) {
	input := `fun fib(n: number): number {
	if n < 2 {
		return n
	}
	return fib(n - 1) + fib(n - 2)
}
fib(10)`
	expectNumber(t, runValue(t, input), "55")
}

func TestReturnStopsBlock(t *testing.T) {
	input := `fun f(): number {
	return 1
	return 2
}
f()`
	expectNumber(t, runValue(t, input), "1")
}

func TestGlobalMutationVisibleAfterCall(t *testing.T) {
	input := `val mut count = 0
fun bump() {
	count = count + 1
}
bump()
bump()
count`
	expectNumber(t, runValue(t, input), "2")
}

func TestFunctionLocalsDoNotLeak(t *testing.T) {
	input := `fun f() {
	val local = 1
}
f()
local`
	expectRuntimeError(t, input, "Undefined variable")
}

func TestLambdaAndPipe(t *testing.T) {
	expectNumber(t, runValue(t, `val f = \|x: number| => x * 2
f(21)`), "42")
	expectNumber(t, runValue(t, `5 -> \|x| => x * 3`), "15")

	input := `fun double(x: number): number {
	return x * 2
}
5 -> double`
	expectNumber(t, runValue(t, input), "10")
}

func TestClosureCapturesSnapshot(t *testing.T) {
	input := `val mut x = 1
val f = \|y: number| => x + y
x = 10
f(1)`
	expectNumber(t, runValue(t, input), "2")
}

func TestForLoopWithBreakAndContinue(t *testing.T) {
	input := `val mut total = 0
for i in range(0, 10) {
	if i == 3 {
		continue
	}
	if i == 5 {
		break
	}
	total = total + i
}
total`
	// 0 + 1 + 2 + 4
	expectNumber(t, runValue(t, input), "7")
}

func TestForOverList(t *testing.T) {
	input := `val mut total = 0
for x in [1, 2, 3] {
	total = total + x
}
total`
	expectNumber(t, runValue(t, input), "6")
}

func TestLoopVariableDoesNotLeak(t *testing.T) {
	expectRuntimeError(t, "for i in range(0, 3) {\n}\ni", "Undefined variable")
}

func TestRuntimeArityCheck(t *testing.T) {
	input := `val f = \|x: number| => x
f(1, 2)`
	expectRuntimeError(t, input, "does not match arguments length")
}

func TestHeterogeneousListIsAnError(t *testing.T) {
	expectRuntimeError(t, `val xs = [1, "a"]`, "List value type mismatch")
}

func TestListMethods(t *testing.T) {
	expectNumber(t, runValue(t, "val mut xs = []\nxs.push(1)\nxs.push(2)\nxs.len()"), "2")

	result := runValue(t, "val mut xs = [1, 2, 3]\nxs.pop()")
	opt, ok := result.(*Option)
	if !ok || !opt.Some {
		t.Fatalf("expected Some, got %v", result)
	}
	expectNumber(t, opt.Value, "3")

	result = runValue(t, "val mut xs = [1, 2, 3]\nxs.pop()\nxs.len()")
	expectNumber(t, result, "2")

	result = runValue(t, "val xs = [1, 2, 3]\nxs.contains(2)")
	if b, ok := result.(*Bool); !ok || !b.Value {
		t.Fatalf("expected true, got %v", result)
	}

	result = runValue(t, "val mut xs = [1, 2]\nxs.reverse()\nxs.first()")
	opt, ok = result.(*Option)
	if !ok || !opt.Some {
		t.Fatalf("expected Some, got %v", result)
	}
	expectNumber(t, opt.Value, "2")

	result = runValue(t, "val xs = []\nxs.first()")
	if opt, ok := result.(*Option); !ok || opt.Some {
		t.Fatalf("expected None, got %v", result)
	}
}

func TestNumberMethods(t *testing.T) {
	result := runValue(t, "(1.5).round()")
	expectNumber(t, result, "2")

	result = runValue(t, "(2 + 2).sqrt()")
	expectNumber(t, result, "2")

	result = runValue(t, "1.to_string()")
	if s, ok := result.(*String); !ok || s.Value != "1" {
		t.Fatalf("unexpected result %v", result)
	}
}

func TestStringMethods(t *testing.T) {
	result := runValue(t, `"hello".to_uppercase()`)
	if s, ok := result.(*String); !ok || s.Value != "HELLO" {
		t.Fatalf("unexpected result %v", result)
	}
	expectNumber(t, runValue(t, `"hello".len()`), "5")

	result = runValue(t, `"a,b,c".split(",")`)
	list, ok := result.(*List)
	if !ok || len(list.Elements) != 3 {
		t.Fatalf("unexpected result %v", result)
	}

	result = runValue(t, `"hello".replace("l", "L")`)
	if s, ok := result.(*String); !ok || s.Value != "heLLo" {
		t.Fatalf("unexpected result %v", result)
	}
}

func TestUnknownMethodErrors(t *testing.T) {
	expectRuntimeError(t, "1.nope()", "nope is not a method of number")
	expectRuntimeError(t, "val xs = [1]\nxs.nope()", "nope is not a method of list")
	expectRuntimeError(t, `"a".nope()`, "nope is not a method of string")
	expectRuntimeError(t, `val d = {: "a" => 1 :}
d.nope()`, "nope is not a method of dict")
}

func TestDictMethods(t *testing.T) {
	input := `val d = {: "a" => 1, "b" => 2 :}
d.len()`
	expectNumber(t, runValue(t, input), "2")

	result := runValue(t, `val d = {: "a" => 1 :}
d.get("a")`)
	opt, ok := result.(*Option)
	if !ok || !opt.Some {
		t.Fatalf("expected Some, got %v", result)
	}
	expectNumber(t, opt.Value, "1")

	result = runValue(t, `val d = {: "a" => 1 :}
d.get("missing")`)
	if opt, ok := result.(*Option); !ok || opt.Some {
		t.Fatalf("expected None, got %v", result)
	}

	expectNumber(t, runValue(t, `val mut d = {: "a" => 1 :}
d.insert("b", 2)
d.len()`), "2")

	expectNumber(t, runValue(t, `val mut d = {: "a" => 1, "b" => 2 :}
d.remove("a")
d.len()`), "1")

	result = runValue(t, `val d = {: "a" => 1 :}
d.contains_key("a")`)
	if b, ok := result.(*Bool); !ok || !b.Value {
		t.Fatalf("expected true, got %v", result)
	}
}

func TestOptionAndResultInspect(t *testing.T) {
	if got := runValue(t, "Some(1)").Inspect(); got != "Some(1)" {
		t.Fatalf("unexpected inspect %q", got)
	}
	if got := runValue(t, "None").Inspect(); got != "None" {
		t.Fatalf("unexpected inspect %q", got)
	}
	if got := runValue(t, `Failure("bad")`).Inspect(); got != "Failure(bad)" {
		t.Fatalf("unexpected inspect %q", got)
	}
}

func TestMatchSomeBinding(t *testing.T) {
	input := `val x = Some(5)
match x {
	Some(v) => v + 1
	None => 0
}`
	expectNumber(t, runValue(t, input), "6")
}

func TestMatchNone(t *testing.T) {
	input := `match None {
	Some(v) => v
	None => 99
}`
	expectNumber(t, runValue(t, input), "99")
}

func TestMatchResultBinding(t *testing.T) {
	input := `match Failure("bad") {
	Success(v) => v
	Failure(e) => e
}`
	result := runValue(t, input)
	if s, ok := result.(*String); !ok || s.Value != "bad" {
		t.Fatalf("unexpected result %v", result)
	}
}

func TestMatchLiteralInsideConstructor(t *testing.T) {
	input := `match Some(1) {
	Some(2) => "two"
	Some(1) => "one"
	None => "none"
}`
	result := runValue(t, input)
	if s, ok := result.(*String); !ok || s.Value != "one" {
		t.Fatalf("unexpected result %v", result)
	}
}

func TestWildcardMatchesLast(t *testing.T) {
	input := `match 3 {
	_ => 0
	3 => 9
}`
	expectNumber(t, runValue(t, input), "9")
}

func TestNoMatchFound(t *testing.T) {
	expectRuntimeError(t, "match 5 {\n\t1 => 1\n}", "No match found")
}

func TestStructMethodMutatesThroughMutSelf(t *testing.T) {
	input := `struct Point {
	x: number,
	y: number
}
impl Point {
	fun move(mut self, dx: number, dy: number) {
		self.x = self.x + dx
		self.y = self.y + dy
	}
}
val mut point = Point{x: 8, y: 3}
point.move(5, 2)
point.x`
	expectNumber(t, runValue(t, input), "13")
}

func TestFieldAssignDoesNotAffectOtherBindings(t *testing.T) {
	input := `struct P {
	x: number
}
val mut a = P{x: 1}
val mut b = a
b.x = 2
a.x`
	expectNumber(t, runValue(t, input), "1")
}

func TestMutSelfMethodDoesNotAffectOtherBindings(t *testing.T) {
	input := `struct P {
	x: number
}
impl P {
	fun set(mut self, n: number) {
		self.x = n
	}
}
val mut a = P{x: 1}
val mut b = a
b.set(2)
a.x`
	expectNumber(t, runValue(t, input), "1")
}

func TestClosureKeepsStructCaptureFrozen(t *testing.T) {
	input := `struct P {
	x: number
}
val mut p = P{x: 1}
val f = \|| => p.x
p.x = 9
f()`
	expectNumber(t, runValue(t, input), "1")
}

func TestMethodWithoutMutSelfCannotAssign(t *testing.T) {
	input := `struct Foo {
	value: number
}
impl Foo {
	fun set(self, num: number) {
		self.value = num
	}
}
val mut foo = Foo{value: 1}
foo.set(3)`
	expectRuntimeError(t, input, "set is not mut self argument")
}

func TestImmutableReceiverCannotCallMethods(t *testing.T) {
	input := `struct Foo {
	value: number
}
impl Foo {
	fun get(self): number {
		return self.value
	}
}
val foo = Foo{value: 1}
foo.get()`
	expectRuntimeError(t, input, "foo is not mutable")
}

func TestMethodReturnValue(t *testing.T) {
	input := `struct Point {
	x: number,
	y: number
}
impl Point {
	fun get_x(self): number {
		return self.x
	}
}
val mut p = Point{x: 7, y: 2}
p.get_x()`
	expectNumber(t, runValue(t, input), "7")
}

func TestMethodArityError(t *testing.T) {
	input := `struct P {
	x: number
}
impl P {
	fun get(self): number {
		return self.x
	}
}
val mut p = P{x: 1}
p.get(9)`
	expectRuntimeError(t, input, "does not match arguments length")
}

func TestStructFieldTypeMismatchOnLiteral(t *testing.T) {
	input := `struct P {
	x: number
}
val p = P{x: "hello"}`
	expectRuntimeError(t, input, "Struct field type mismatch")
}

func TestStructFieldAccessUnknownField(t *testing.T) {
	input := `struct P {
	x: number
}
val mut p = P{x: 1}
p.missing`
	expectRuntimeError(t, input, "Field not found")
}

func TestMethodChaining(t *testing.T) {
	input := `fun add(x: number): number {
	return x + 1
}
add(1.5).round().to_string()`
	result := runValue(t, input)
	if s, ok := result.(*String); !ok || s.Value != "3" {
		t.Fatalf("unexpected result %v", result)
	}
}

func TestEvalDepthLimit(t *testing.T) {
	input := `fun loop(n: number): number {
	return loop(n + 1)
}
loop(0)`
	expectRuntimeError(t, input, "evaluation depth exceeded")
}

func TestRuntimeErrorCarriesPosition(t *testing.T) {
	_, _, err := run(t, "val x = 1\nundefined_name")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected position on line 2, got %v", err)
	}
}
