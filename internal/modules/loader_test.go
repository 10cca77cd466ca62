package modules

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/evaluator"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/lexer"
	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/parser"
)

func writeModule(t *testing.T, dir, name, source string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".sag"), []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}
}

func runScript(t *testing.T, dir, source string) (evaluator.Object, error) {
	t.Helper()
	program, err := parser.New(lexer.New(source).Tokenize()).Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	var out bytes.Buffer
	eval := evaluator.New(&out)
	eval.Modules = NewLoader(dir, nil, &out)
	return eval.EvalProgram(program)
}

func TestImportFunction(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "Math", `pub fun double(x: number): number {
	return x * 2
}`)

	result, err := runScript(t, dir, "import double from Math\ndouble(21)")
	if err != nil {
		t.Fatal(err)
	}
	if result.Inspect() != "42" {
		t.Fatalf("expected 42, got %s", result.Inspect())
	}
}

func TestImportValueAndStruct(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "Geo", `pub struct Point {
	x: number,
	y: number
}
pub val origin_x = 0`)

	result, err := runScript(t, dir, `import Point, origin_x from Geo
val mut p = Point{x: 1, y: 2}
p.x + origin_x`)
	if err != nil {
		t.Fatal(err)
	}
	if result.Inspect() != "1" {
		t.Fatalf("expected 1, got %s", result.Inspect())
	}
}

func TestPrivateSymbolIsNotImportable(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "Hidden", `fun secret(): number {
	return 1
}`)

	_, err := runScript(t, dir, "import secret from Hidden")
	if err == nil || !strings.Contains(err.Error(), "Symbol secret not found in module Hidden") {
		t.Fatalf("expected missing symbol error, got %v", err)
	}
}

func TestMissingModule(t *testing.T) {
	dir := t.TempDir()
	_, err := runScript(t, dir, "import x from Nope")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected module not found error, got %v", err)
	}
}

func TestModuleIsCachedPerPath(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "M", `pub fun one(): number {
	return 1
}`)

	var out bytes.Buffer
	loader := NewLoader(dir, nil, &out)
	first, err := loader.Load("M")
	if err != nil {
		t.Fatal(err)
	}
	second, err := loader.Load("M")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatal("expected the cached environment on the second load")
	}
}

func TestImportCycle(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "A", "import b from B\npub fun a(): number {\n\treturn 1\n}")
	writeModule(t, dir, "B", "import a from A\npub fun b(): number {\n\treturn 2\n}")

	_, err := runScript(t, dir, "import a from A")
	if err == nil || !strings.Contains(err.Error(), "cycle") {
		t.Fatalf("expected cycle error, got %v", err)
	}
}
