package formatter

import (
	"strings"
	"testing"

	"github.com/basilfold/qbi/pkg/ast"
	"github.com/basilfold/qbi/pkg/parser"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return prog
}

func TestFormatAssignAndPrint(t *testing.T) {
	prog := mustParse(t, "X = 1 + 2\nPRINT X\n")
	out := Format(prog)

	if !strings.Contains(out, "X = 1 + 2") {
		t.Errorf("expected assignment line, got:\n%s", out)
	}
	if !strings.Contains(out, "PRINT X") {
		t.Errorf("expected PRINT line, got:\n%s", out)
	}
}

func TestFormatIfIndentsBody(t *testing.T) {
	prog := mustParse(t, "IF X > 0 THEN\nPRINT \"POS\"\nEND IF\n")
	out := Format(prog)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d:\n%s", len(lines), out)
	}
	if lines[0] != "IF X > 0 THEN" {
		t.Errorf("unexpected header: %q", lines[0])
	}
	if lines[1] != "  PRINT \"POS\"" {
		t.Errorf("expected indented body, got %q", lines[1])
	}
	if lines[2] != "END IF" {
		t.Errorf("unexpected footer: %q", lines[2])
	}
}

func TestFormatForLoop(t *testing.T) {
	prog := mustParse(t, "FOR I = 1 TO 10 STEP 2\nPRINT I\nNEXT I\n")
	out := Format(prog)

	if !strings.Contains(out, "FOR I = 1 TO 10 STEP 2") {
		t.Errorf("expected FOR header, got:\n%s", out)
	}
	if !strings.Contains(out, "NEXT I") {
		t.Errorf("expected NEXT footer, got:\n%s", out)
	}
}

func TestFormatSubWithParams(t *testing.T) {
	prog := mustParse(t, "SUB GREET (NAME$)\nPRINT NAME$\nEND SUB\n")
	out := Format(prog)

	if !strings.Contains(out, "SUB GREET (NAME$)") {
		t.Errorf("expected SUB header, got:\n%s", out)
	}
	if !strings.Contains(out, "END SUB") {
		t.Errorf("expected END SUB, got:\n%s", out)
	}
}

func TestFormatDimArray(t *testing.T) {
	prog := mustParse(t, "DIM A(1 TO 10) AS INTEGER\n")
	out := Format(prog)

	if !strings.Contains(out, "DIM A(1 TO 10) AS INTEGER") {
		t.Errorf("expected DIM line, got:\n%s", out)
	}
}

func TestFormatSelectCase(t *testing.T) {
	prog := mustParse(t, "SELECT CASE X\nCASE 1\nPRINT \"ONE\"\nCASE ELSE\nPRINT \"OTHER\"\nEND SELECT\n")
	out := Format(prog)

	if !strings.Contains(out, "SELECT CASE X") {
		t.Errorf("expected SELECT CASE header, got:\n%s", out)
	}
	if !strings.Contains(out, "CASE ELSE") {
		t.Errorf("expected CASE ELSE, got:\n%s", out)
	}
	if !strings.Contains(out, "END SELECT") {
		t.Errorf("expected END SELECT, got:\n%s", out)
	}
}
