package codegen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/basilfold/qbi/pkg/linter"
	"github.com/basilfold/qbi/pkg/parser"
	"github.com/basilfold/qbi/pkg/vm"
)

// compileAndRun lexes, parses, lints, and codegens src, then runs it against
// an in-memory console and returns everything it printed.
func compileAndRun(t *testing.T, src string, input ...string) string {
	t.Helper()
	prog, err := parser.Parse(src)
	require.NoError(t, err)

	result, lintErrs := linter.Analyze(prog)
	require.Empty(t, lintErrs)

	vmProg, err := Generate(prog, result)
	require.NoError(t, err)

	console := vm.NewBufferConsole(input...)
	machine := vm.NewVM(vmProg, console)
	require.NoError(t, machine.Run())
	return string(console.Output)
}

func TestGenerate_PrintLiteral(t *testing.T) {
	out := compileAndRun(t, "PRINT 42\n")
	require.Equal(t, " 42 \n", out)
}

func TestGenerate_ArithmeticExpression(t *testing.T) {
	out := compileAndRun(t, "PRINT 2 + 3 * 4\n")
	require.Equal(t, " 14 \n", out)
}

func TestGenerate_IfElse(t *testing.T) {
	src := `X = 5
IF X > 3 THEN
  PRINT "BIG"
ELSE
  PRINT "SMALL"
END IF
`
	out := compileAndRun(t, src)
	require.Equal(t, "BIG\n", out)
}

func TestGenerate_ForLoopAccumulates(t *testing.T) {
	src := `TOTAL = 0
FOR I = 1 TO 5
  TOTAL = TOTAL + I
NEXT I
PRINT TOTAL
`
	out := compileAndRun(t, src)
	require.Equal(t, " 15 \n", out)
}

func TestGenerate_SubCall(t *testing.T) {
	src := `CALL GREET("WORLD")

SUB GREET (WHO AS STRING)
  PRINT "HELLO, "; WHO
END SUB
`
	out := compileAndRun(t, src)
	require.Equal(t, "HELLO, WORLD\n", out)
}

func TestGenerate_FunctionReturnValue(t *testing.T) {
	src := `PRINT DOUBLE(21)

FUNCTION DOUBLE (N AS INTEGER) AS INTEGER
  DOUBLE = N * 2
END FUNCTION
`
	out := compileAndRun(t, src)
	require.Equal(t, " 42 \n", out)
}

func TestGenerate_WhileLoop(t *testing.T) {
	src := `N = 0
WHILE N < 3
  PRINT N
  N = N + 1
WEND
`
	out := compileAndRun(t, src)
	require.Equal(t, " 0 \n 1 \n 2 \n", out)
}

func TestGenerate_ArrayAssignmentAndRead(t *testing.T) {
	src := `DIM A(3) AS INTEGER
A(0) = 10
A(1) = 20
PRINT A(0) + A(1)
`
	out := compileAndRun(t, src)
	require.Equal(t, " 30 \n", out)
}
