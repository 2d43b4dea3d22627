package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basilfold/qbi/pkg/ast"
	"github.com/basilfold/qbi/pkg/errs"
)

func TestParse_SimpleAssignment(t *testing.T) {
	prog, err := Parse("X = 1 + 2\n")
	require.NoError(t, err)
	require.Len(t, prog.TopLevel, 1)

	assign, ok := prog.TopLevel[0].(*ast.AssignStmt)
	require.True(t, ok, "expected *ast.AssignStmt, got %T", prog.TopLevel[0])

	target, ok := assign.Target.(*ast.VariableRef)
	require.True(t, ok)
	assert.Equal(t, "X", target.Name.String())

	bin, ok := assign.Value.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpPlus, bin.Op)
}

func TestParse_DimWithArrayBounds(t *testing.T) {
	prog, err := Parse("DIM A(10) AS INTEGER\n")
	require.NoError(t, err)
	require.Len(t, prog.TopLevel, 1)

	dim, ok := prog.TopLevel[0].(*ast.DimStmt)
	require.True(t, ok)
	require.Len(t, dim.Vars, 1)

	v := dim.Vars[0]
	assert.Equal(t, "A", v.Name.String())
	assert.True(t, v.IsArray)
	require.Len(t, v.Bounds, 1)
}

func TestParse_IfElseIfElse(t *testing.T) {
	src := `IF X > 0 THEN
  PRINT "POSITIVE"
ELSEIF X < 0 THEN
  PRINT "NEGATIVE"
ELSE
  PRINT "ZERO"
END IF
`
	prog, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, prog.TopLevel, 1)

	ifStmt, ok := prog.TopLevel[0].(*ast.IfStmt)
	require.True(t, ok)
	require.Len(t, ifStmt.Branches, 2)
	assert.Len(t, ifStmt.Else, 1)
}

func TestParse_ForLoop(t *testing.T) {
	src := "FOR I = 1 TO 10 STEP 2\n  PRINT I\nNEXT I\n"
	prog, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, prog.TopLevel, 1)

	forStmt, ok := prog.TopLevel[0].(*ast.ForStmt)
	require.True(t, ok)
	require.NotNil(t, forStmt.Step)
	require.Len(t, forStmt.Body, 1)
}

func TestParse_SubAndFunctionDecls(t *testing.T) {
	src := `SUB GREET (WHO AS STRING)
  PRINT WHO
END SUB

FUNCTION DOUBLE (N AS INTEGER) AS INTEGER
  DOUBLE = N * 2
END FUNCTION
`
	prog, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, prog.Subs, 1)
	require.Len(t, prog.Functions, 1)
	assert.Equal(t, "GREET", prog.Subs[0].Name.String())
	assert.Equal(t, "DOUBLE", prog.Functions[0].Name.String())
}

func TestParse_TypeDef(t *testing.T) {
	src := `TYPE POINT
  X AS INTEGER
  Y AS INTEGER
END TYPE
`
	prog, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, prog.Types, 1)
	assert.Equal(t, "POINT", prog.Types[0].Name.String())
	assert.Len(t, prog.Types[0].Elements, 2)
}

func TestParse_ArrayElementVsFunctionCall(t *testing.T) {
	prog, err := Parse("DIM A(5) AS INTEGER\nX = A(2)\nY = SOMEFUNC(2)\n")
	require.NoError(t, err)
	require.Len(t, prog.TopLevel, 3)

	assignA := prog.TopLevel[1].(*ast.AssignStmt)
	_, isArrayRef := assignA.Value.(*ast.ArrayElementRef)
	assert.True(t, isArrayRef, "expected A(2) to parse as an array element reference")

	assignY := prog.TopLevel[2].(*ast.AssignStmt)
	_, isCall := assignY.Value.(*ast.FunctionCallExpr)
	assert.True(t, isCall, "expected SOMEFUNC(2) to parse as a function call")
}

func TestParse_PrintWithSeparators(t *testing.T) {
	prog, err := Parse(`PRINT "A"; "B", "C"` + "\n")
	require.NoError(t, err)
	require.Len(t, prog.TopLevel, 1)

	p, ok := prog.TopLevel[0].(*ast.PrintStmt)
	require.True(t, ok)
	require.Len(t, p.Items, 3)
	assert.Equal(t, ast.SepSemicolon, p.Items[0].Separator)
	assert.Equal(t, ast.SepComma, p.Items[1].Separator)
}

func TestParse_SyntaxErrorReturnsLintError(t *testing.T) {
	_, err := Parse("IF X > 0 THEN\nPRINT 1\n")
	require.Error(t, err)
	require.IsType(t, &errs.LintError{}, err)
}

func TestParse_SelectCase(t *testing.T) {
	src := `SELECT CASE X
CASE 1
  PRINT "ONE"
CASE 2, 3
  PRINT "TWO OR THREE"
CASE ELSE
  PRINT "OTHER"
END SELECT
`
	prog, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, prog.TopLevel, 1)

	sel, ok := prog.TopLevel[0].(*ast.SelectCaseStmt)
	require.True(t, ok)
	require.Len(t, sel.Cases, 2)
	require.Len(t, sel.ElseBody, 1)
}
