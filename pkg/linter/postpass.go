package linter

import (
	"strings"

	"github.com/basilfold/qbi/pkg/ast"
	"github.com/basilfold/qbi/pkg/errs"
)

// postPass runs once every label definition and reference in the program is
// known: it checks that every GOTO/GOSUB/ON ERROR GOTO/RESUME label target
// resolves within its own subprogram (labels don't cross subprogram
// boundaries in QBASIC), that every DECLAREd signature was eventually
// implemented, and that dotted names don't collide between a UDT-typed
// variable's field access and an unrelated whole variable of the same
// spelling.
func (a *analyzer) postPass(prog *ast.Program) {
	for key, refs := range a.refs {
		defined := a.labels[key]
		for _, ref := range refs {
			canon := ref.name.CanonicalName()
			if defined == nil || !hasLabel(defined, canon) {
				a.fail(errs.NewLintError(errs.LintLabelNotDefined, "label "+ref.name.String()+" is not defined").At(ref.pos))
			}
		}
	}

	for _, sig := range a.result.Signatures {
		if !sig.HasBody {
			a.fail(errs.NewLintError(errs.LintSubprogramNotDefined, sig.Name.String()+" is declared but never implemented").At(sig.Pos))
		}
	}

	a.checkDotClash(a.result.Global)
	for _, s := range a.result.SubScopes {
		a.checkDotClash(s)
	}
	for _, s := range a.result.FuncScopes {
		a.checkDotClash(s)
	}
}

func hasLabel(m map[string]ast.Position, canon string) bool {
	_, ok := m[canon]
	return ok
}

// checkDotClash flags a scope where a plain variable's spelling collides
// with "base.field" formed from a different, UDT-typed variable's name —
// the classic QBASIC ambiguity between a literal dotted identifier and
// property access.
func (a *analyzer) checkDotClash(scope *Scope) {
	for _, sym := range scope.Symbols() {
		canon := sym.Name.CanonicalName()
		if !strings.Contains(canon, ".") {
			continue
		}
		base := canon[:strings.Index(canon, ".")]
		if other, ok := scope.Symbols()[base]; ok && other.Type.Kind == ast.ExprUserDefined {
			a.fail(errs.NewLintError(errs.LintDotClash, sym.Name.String()+" collides with a field of "+other.Name.String()).At(ast.Position{}))
		}
	}
}
