package validate

import (
	"strings"
	"testing"
)

func TestValidateValidSource(t *testing.T) {
	source := "X = 1\nPRINT X\n"
	result := Validate(source, "test.bas")

	if !result.Valid {
		t.Fatalf("expected valid result, got errors: %+v", result.Errors)
	}
	if len(result.Errors) != 0 {
		t.Errorf("expected no errors, got %d", len(result.Errors))
	}
	if result.Stats.Lines != 3 {
		t.Errorf("expected 3 lines, got %d", result.Stats.Lines)
	}
}

func TestValidateSyntaxError(t *testing.T) {
	source := "IF X > 0 THEN\nPRINT \"MISSING END IF\"\n"
	result := Validate(source, "test.bas")

	if result.Valid {
		t.Fatal("expected invalid result for unterminated IF")
	}
	if len(result.Errors) == 0 {
		t.Fatal("expected at least one error")
	}
	if result.Errors[0].Type != TypeSyntax {
		t.Errorf("expected syntax_error, got %s", result.Errors[0].Type)
	}
}

func TestValidateSemanticError(t *testing.T) {
	source := "SUB GREET\nEND SUB\nSUB GREET\nEND SUB\n"
	result := Validate(source, "test.bas")

	if result.Valid {
		t.Fatal("expected invalid result for duplicate SUB")
	}
	found := false
	for _, e := range result.Errors {
		if e.Type == TypeSemantic {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a semantic_error diagnostic, got %+v", result.Errors)
	}
}

func TestValidateCollectsStats(t *testing.T) {
	source := `TYPE POINT
  X AS INTEGER
  Y AS INTEGER
END TYPE

SUB GREET
  PRINT "HI"
END SUB

FUNCTION DOUBLE (N AS INTEGER) AS INTEGER
  DOUBLE = N * 2
END FUNCTION
`
	result := Validate(source, "test.bas")
	if !result.Valid {
		t.Fatalf("expected valid result, got errors: %+v", result.Errors)
	}
	if result.Stats.Types != 1 {
		t.Errorf("expected 1 type, got %d", result.Stats.Types)
	}
	if result.Stats.Subs != 1 {
		t.Errorf("expected 1 sub, got %d", result.Stats.Subs)
	}
	if result.Stats.Functions != 1 {
		t.Errorf("expected 1 function, got %d", result.Stats.Functions)
	}
}

func TestResultJSON(t *testing.T) {
	result := Validate("X = 1\n", "test.bas")
	out, err := result.JSON()
	if err != nil {
		t.Fatalf("JSON failed: %v", err)
	}
	if !strings.Contains(string(out), `"valid": true`) {
		t.Errorf("expected valid:true in JSON output, got %s", out)
	}
}
