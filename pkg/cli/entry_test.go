package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunScriptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.sag")
	source := `fun greet(name: string): string {
	return "hello " + name
}
print(greet("world"))`
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	code := Entry([]string{"run", path}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}
	if stdout.String() != "hello world\n" {
		t.Fatalf("unexpected output %q", stdout.String())
	}
}

func TestBareSagArgumentRuns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.sag")
	if err := os.WriteFile(path, []byte("print(1 + 1)"), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	if code := Entry([]string{path}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}
	if stdout.String() != "2\n" {
		t.Fatalf("unexpected output %q", stdout.String())
	}
}

func TestParseErrorRendersCaret(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.sag")
	if err := os.WriteFile(path, []byte("val x = 1\nx = 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	if code := Entry([]string{"run", path}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "Cannot reassign to immutable variable") {
		t.Fatalf("missing diagnostic: %s", stderr.String())
	}
	if !strings.Contains(stderr.String(), "^") {
		t.Fatalf("missing caret: %s", stderr.String())
	}
}

func TestVersionCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := Entry([]string{"version"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code %d", code)
	}
	if !strings.Contains(stdout.String(), Version) {
		t.Fatalf("unexpected output %q", stdout.String())
	}
}

func TestUnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := Entry([]string{"frobnicate"}, &stdout, &stderr); code != 2 {
		t.Fatalf("expected exit 2, got %d", code)
	}
}
