package diagnostics

import (
	"strings"
	"testing"

	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/token"
)

func TestParseErrorFormat(t *testing.T) {
	err := NewError(ErrP002, token.Token{Line: 3, Column: 7}, "Cannot reassign to immutable variable")
	want := "[P002] Cannot reassign to immutable variable (line 3, column 7)"
	if err.Error() != want {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestRenderPointsAtColumn(t *testing.T) {
	source := "val x = 1\nx = 2"
	out := Render(source, "boom", 2, 1)
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %q", out)
	}
	if lines[1] != "x = 2" {
		t.Fatalf("expected the offending line, got %q", lines[1])
	}
	if lines[2] != "^" {
		t.Fatalf("expected caret at column 1, got %q", lines[2])
	}
}

func TestRenderOutOfRangeLine(t *testing.T) {
	out := Render("only", "boom", 9, 1)
	if out != "boom" {
		t.Fatalf("expected bare message, got %q", out)
	}
}
