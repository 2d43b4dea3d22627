// Package formatter renders a parsed ast.Program back to canonical BASIC
// source text, for `qbi fmt`.
package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/basilfold/qbi/pkg/ast"
)

// Formatter walks a Program and renders it with consistent indentation and
// keyword casing.
type Formatter struct {
	indent int
	out    strings.Builder
}

// New creates a Formatter.
func New() *Formatter {
	return &Formatter{}
}

// Format renders prog as BASIC source text.
func Format(prog *ast.Program) string {
	f := New()
	return f.Format(prog)
}

// Format renders prog to source text: every TYPE, then every DECLARE, then
// module-level code, then every SUB and every FUNCTION, each group in the
// order the parser collected it.
func (f *Formatter) Format(prog *ast.Program) string {
	f.out.Reset()
	f.indent = 0

	for _, t := range prog.Types {
		f.writeTypeDef(t)
		f.writeln("")
	}
	for _, d := range prog.Declares {
		f.writeDeclare(d)
	}
	if len(prog.Declares) > 0 {
		f.writeln("")
	}

	for _, stmt := range prog.TopLevel {
		f.writeStmt(stmt)
	}

	for _, sub := range prog.Subs {
		f.writeln("")
		f.writeSub(sub)
	}
	for _, fn := range prog.Functions {
		f.writeln("")
		f.writeFunction(fn)
	}

	return f.out.String()
}

func (f *Formatter) writeln(s string) {
	if s == "" {
		f.out.WriteString("\n")
		return
	}
	f.out.WriteString(strings.Repeat("  ", f.indent))
	f.out.WriteString(s)
	f.out.WriteString("\n")
}

func (f *Formatter) writeBlock(body []ast.Stmt) {
	f.indent++
	for _, s := range body {
		f.writeStmt(s)
	}
	f.indent--
}

func paramString(p ast.Parameter) string {
	s := p.Name.String()
	if p.IsArray {
		s += "()"
	}
	return s
}

func paramList(params []ast.Parameter) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = paramString(p)
	}
	return strings.Join(parts, ", ")
}

func (f *Formatter) writeDeclare(d ast.DeclareDecl) {
	kw := "FUNCTION"
	if d.Kind == ast.DeclareSub {
		kw = "SUB"
	}
	f.writeln(fmt.Sprintf("DECLARE %s %s (%s)", kw, d.Name.String(), paramList(d.Params)))
}

func (f *Formatter) writeSub(sub ast.SubDecl) {
	suffix := ""
	if sub.IsStatic {
		suffix = " STATIC"
	}
	f.writeln(fmt.Sprintf("SUB %s (%s)%s", sub.Name.String(), paramList(sub.Params), suffix))
	f.writeBlock(sub.Body)
	f.writeln("END SUB")
}

func (f *Formatter) writeFunction(fn ast.FunctionDecl) {
	suffix := ""
	if fn.IsStatic {
		suffix = " STATIC"
	}
	f.writeln(fmt.Sprintf("FUNCTION %s (%s)%s", fn.Name.String(), paramList(fn.Params), suffix))
	f.writeBlock(fn.Body)
	f.writeln("END FUNCTION")
}

func (f *Formatter) writeTypeDef(t ast.TypeDefStmt) {
	f.writeln("TYPE " + t.Name.String())
	f.indent++
	for _, el := range t.Elements {
		typ := asTypeName(el.Type)
		if el.FixedLenConstRef.String() != "" {
			typ = "STRING * " + el.FixedLenConstRef.String()
		}
		f.writeln(fmt.Sprintf("%s AS %s", el.Name.String(), typ))
	}
	f.indent--
	f.writeln("END TYPE")
}

// writeStmt renders one statement, recursing into nested blocks.
func (f *Formatter) writeStmt(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.AssignStmt:
		f.writeln(fmt.Sprintf("%s = %s", exprString(st.Target), exprString(st.Value)))
	case *ast.DimStmt:
		f.writeDim(st)
	case *ast.ConstStmt:
		f.writeln(fmt.Sprintf("CONST %s = %s", st.Name.String(), exprString(st.Value)))
	case *ast.DefTypeStmt:
		f.writeDefType(st)
	case *ast.IfStmt:
		f.writeIf(st)
	case *ast.ForStmt:
		f.writeFor(st)
	case *ast.WhileStmt:
		f.writeln("WHILE " + exprString(st.Condition))
		f.writeBlock(st.Body)
		f.writeln("WEND")
	case *ast.DoLoopStmt:
		f.writeDoLoop(st)
	case *ast.SelectCaseStmt:
		f.writeSelectCase(st)
	case *ast.GotoStmt:
		f.writeln("GOTO " + st.Label.String())
	case *ast.GosubStmt:
		f.writeln("GOSUB " + st.Label.String())
	case *ast.ReturnStmt:
		if st.Label.String() == "" {
			f.writeln("RETURN")
		} else {
			f.writeln("RETURN " + st.Label.String())
		}
	case *ast.LabelStmt:
		outdent := f.indent > 0
		if outdent {
			f.indent--
		}
		f.writeln(st.Name.String() + ":")
		if outdent {
			f.indent++
		}
	case *ast.OnErrorStmt:
		f.writeOnError(st)
	case *ast.ResumeStmt:
		f.writeResume(st)
	case *ast.ExitStmt:
		f.writeln("EXIT " + exitKindString(st.Kind))
	case *ast.CallStmt:
		f.writeCall(st)
	case *ast.PrintStmt:
		f.writePrint(st)
	case *ast.InputStmt:
		f.writeInput(st)
	case *ast.ReadStmt:
		f.writeln("READ " + exprListString(st.Targets))
	case *ast.DataStmt:
		f.writeData(st)
	case *ast.RestoreStmt:
		if st.Label.String() == "" {
			f.writeln("RESTORE")
		} else {
			f.writeln("RESTORE " + st.Label.String())
		}
	case *ast.OpenStmt:
		f.writeOpen(st)
	case *ast.CloseStmt:
		f.writeClose(st)
	case *ast.GetPutStmt:
		f.writeGetPut(st)
	case *ast.FieldStmt:
		f.writeField(st)
	case *ast.LSetStmt:
		f.writeln(fmt.Sprintf("LSET %s = %s", exprString(st.Target), exprString(st.Value)))
	case *ast.NameStmt:
		f.writeln(fmt.Sprintf("NAME %s AS %s", exprString(st.OldName), exprString(st.NewName)))
	case *ast.KillStmt:
		f.writeln("KILL " + exprString(st.FileName))
	case *ast.ExprStmt:
		f.writeln(exprString(st.Expr))
	default:
		f.writeln(fmt.Sprintf("' unformatted statement: %T", s))
	}
}

func (f *Formatter) writeDim(st *ast.DimStmt) {
	kw := "DIM"
	if len(st.Vars) > 0 && st.Vars[0].IsRedim {
		kw = "REDIM"
		if st.Vars[0].IsPreserve {
			kw = "REDIM PRESERVE"
		}
	}
	parts := make([]string, len(st.Vars))
	for i, v := range st.Vars {
		parts[i] = dimVarString(v)
	}
	shared := ""
	if len(st.Vars) > 0 && st.Vars[0].Shared {
		shared = "SHARED "
	}
	f.writeln(fmt.Sprintf("%s %s%s", kw, shared, strings.Join(parts, ", ")))
}

// asKeywords spells each built-in type the way an AS clause writes it.
var asKeywords = map[ast.Qualifier]string{
	ast.Integer: "INTEGER", ast.Long: "LONG", ast.Single: "SINGLE",
	ast.Double: "DOUBLE", ast.String: "STRING",
}

func asTypeName(t ast.ExpressionType) string {
	if kw, ok := asKeywords[t.BuiltIn]; ok && t.Kind == ast.ExprBuiltIn {
		return kw
	}
	return t.String()
}

func dimVarString(v ast.DimVar) string {
	name := v.Name.String()
	if !v.IsArray {
		return fmt.Sprintf("%s AS %s", name, asTypeName(v.Type))
	}
	bounds := make([]string, len(v.Bounds))
	for i, b := range v.Bounds {
		if b.Lower == nil {
			bounds[i] = exprString(b.Upper)
		} else {
			bounds[i] = fmt.Sprintf("%s TO %s", exprString(b.Lower), exprString(b.Upper))
		}
	}
	return fmt.Sprintf("%s(%s) AS %s", name, strings.Join(bounds, ", "), asTypeName(v.Type))
}

func (f *Formatter) writeDefType(st *ast.DefTypeStmt) {
	kw := "DEF" + st.Qualifier.String()
	ranges := make([]string, len(st.Ranges))
	for i, r := range st.Ranges {
		if r.From == r.To {
			ranges[i] = string(r.From)
		} else {
			ranges[i] = fmt.Sprintf("%c-%c", r.From, r.To)
		}
	}
	f.writeln(fmt.Sprintf("%s %s", kw, strings.Join(ranges, ", ")))
}

func (f *Formatter) writeIf(st *ast.IfStmt) {
	for i, br := range st.Branches {
		kw := "IF"
		if i > 0 {
			kw = "ELSEIF"
		}
		f.writeln(fmt.Sprintf("%s %s THEN", kw, exprString(br.Condition)))
		f.writeBlock(br.Body)
	}
	if st.Else != nil {
		f.writeln("ELSE")
		f.writeBlock(st.Else)
	}
	f.writeln("END IF")
}

func (f *Formatter) writeFor(st *ast.ForStmt) {
	header := fmt.Sprintf("FOR %s = %s TO %s", exprString(st.Counter), exprString(st.Lower), exprString(st.Upper))
	if st.Step != nil {
		header += " STEP " + exprString(st.Step)
	}
	f.writeln(header)
	f.writeBlock(st.Body)
	f.writeln("NEXT " + exprString(st.Counter))
}

func (f *Formatter) writeDoLoop(st *ast.DoLoopStmt) {
	switch st.Kind {
	case ast.DoForever:
		f.writeln("DO")
		f.writeBlock(st.Body)
		f.writeln("LOOP")
	case ast.DoWhileTop:
		f.writeln("DO WHILE " + exprString(st.Condition))
		f.writeBlock(st.Body)
		f.writeln("LOOP")
	case ast.DoUntilTop:
		f.writeln("DO UNTIL " + exprString(st.Condition))
		f.writeBlock(st.Body)
		f.writeln("LOOP")
	case ast.DoWhileBottom:
		f.writeln("DO")
		f.writeBlock(st.Body)
		f.writeln("LOOP WHILE " + exprString(st.Condition))
	case ast.DoUntilBottom:
		f.writeln("DO")
		f.writeBlock(st.Body)
		f.writeln("LOOP UNTIL " + exprString(st.Condition))
	}
}

func (f *Formatter) writeSelectCase(st *ast.SelectCaseStmt) {
	f.writeln("SELECT CASE " + exprString(st.Selector))
	f.indent++
	for _, c := range st.Cases {
		exprs := make([]string, len(c.Exprs))
		for i, ce := range c.Exprs {
			exprs[i] = caseExprString(ce)
		}
		f.writeln("CASE " + strings.Join(exprs, ", "))
		f.writeBlock(c.Body)
	}
	if st.ElseBody != nil {
		f.writeln("CASE ELSE")
		f.writeBlock(st.ElseBody)
	}
	f.indent--
	f.writeln("END SELECT")
}

func caseExprString(ce ast.CaseExpr) string {
	switch ce.Kind {
	case ast.CaseRange:
		return fmt.Sprintf("%s TO %s", exprString(ce.From), exprString(ce.To))
	case ast.CaseIs:
		return "IS " + binOpString(ce.Op) + " " + exprString(ce.Value)
	default:
		return exprString(ce.Value)
	}
}

func (f *Formatter) writeOnError(st *ast.OnErrorStmt) {
	switch st.Kind {
	case ast.OnErrorResumeNext:
		f.writeln("ON ERROR RESUME NEXT")
	case ast.OnErrorGotoZero:
		f.writeln("ON ERROR GOTO 0")
	default:
		f.writeln("ON ERROR GOTO " + st.Label.String())
	}
}

func (f *Formatter) writeResume(st *ast.ResumeStmt) {
	switch st.Kind {
	case ast.ResumeNextStmt:
		f.writeln("RESUME NEXT")
	case ast.ResumeLabelStmt:
		f.writeln("RESUME " + st.Label.String())
	default:
		f.writeln("RESUME")
	}
}

func exitKindString(k ast.ExitKind) string {
	switch k {
	case ast.ExitFor:
		return "FOR"
	case ast.ExitDo:
		return "DO"
	case ast.ExitWhile:
		return "WHILE"
	case ast.ExitSub:
		return "SUB"
	case ast.ExitFunction:
		return "FUNCTION"
	default:
		return ""
	}
}

func (f *Formatter) writeCall(st *ast.CallStmt) {
	if len(st.Args) == 0 {
		f.writeln(st.Name.String())
		return
	}
	f.writeln(fmt.Sprintf("%s %s", st.Name.String(), exprListString(st.Args)))
}

func (f *Formatter) writePrint(st *ast.PrintStmt) {
	kw := "PRINT"
	if st.ToPrinter {
		kw = "LPRINT"
	}
	prefix := ""
	if st.FileNumber != nil {
		prefix = "#" + exprString(st.FileNumber) + ", "
	}
	var b strings.Builder
	for _, item := range st.Items {
		b.WriteString(exprString(item.Expr))
		switch item.Separator {
		case ast.SepComma:
			b.WriteString(", ")
		case ast.SepSemicolon:
			b.WriteString("; ")
		}
	}
	f.writeln(strings.TrimRight(fmt.Sprintf("%s %s%s", kw, prefix, b.String()), " "))
}

func (f *Formatter) writeInput(st *ast.InputStmt) {
	kw := "INPUT"
	if st.LineInput {
		kw = "LINE INPUT"
	}
	prefix := ""
	if st.FileNumber != nil {
		prefix = "#" + exprString(st.FileNumber) + ", "
	}
	prompt := ""
	if st.Prompt != "" {
		sep := ","
		if st.SuppressQM {
			sep = ";"
		}
		prompt = strconv.Quote(st.Prompt) + sep + " "
	}
	f.writeln(fmt.Sprintf("%s %s%s%s", kw, prefix, prompt, exprListString(st.Targets)))
}

func (f *Formatter) writeData(st *ast.DataStmt) {
	parts := make([]string, len(st.Values))
	for i, v := range st.Values {
		parts[i] = literalValueString(v)
	}
	f.writeln("DATA " + strings.Join(parts, ", "))
}

func fileModeString(m ast.FileMode) string {
	switch m {
	case ast.ModeOutput:
		return "OUTPUT"
	case ast.ModeAppend:
		return "APPEND"
	case ast.ModeBinary:
		return "BINARY"
	case ast.ModeRandom:
		return "RANDOM"
	default:
		return "INPUT"
	}
}

func (f *Formatter) writeOpen(st *ast.OpenStmt) {
	s := fmt.Sprintf("OPEN %s FOR %s AS #%s", exprString(st.FileName), fileModeString(st.Mode), exprString(st.FileNumber))
	if st.RecordLen != nil {
		s += " LEN = " + exprString(st.RecordLen)
	}
	f.writeln(s)
}

func (f *Formatter) writeClose(st *ast.CloseStmt) {
	if len(st.FileNumbers) == 0 {
		f.writeln("CLOSE")
		return
	}
	nums := make([]string, len(st.FileNumbers))
	for i, n := range st.FileNumbers {
		nums[i] = "#" + exprString(n)
	}
	f.writeln("CLOSE " + strings.Join(nums, ", "))
}

func (f *Formatter) writeGetPut(st *ast.GetPutStmt) {
	kw := "GET"
	if st.IsPut {
		kw = "PUT"
	}
	s := fmt.Sprintf("%s #%s", kw, exprString(st.FileNumber))
	if st.RecordNum != nil {
		s += ", " + exprString(st.RecordNum)
	} else {
		s += ","
	}
	s += ", " + exprString(st.Target)
	f.writeln(s)
}

func (f *Formatter) writeField(st *ast.FieldStmt) {
	parts := make([]string, len(st.Items))
	for i, it := range st.Items {
		parts[i] = fmt.Sprintf("%s AS %s", exprString(it.Width), exprString(it.Target))
	}
	f.writeln(fmt.Sprintf("FIELD #%s, %s", exprString(st.FileNumber), strings.Join(parts, ", ")))
}

// ---- expressions ----

func exprListString(exprs []ast.Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = exprString(e)
	}
	return strings.Join(parts, ", ")
}

func exprString(e ast.Expr) string {
	switch ex := e.(type) {
	case *ast.Literal:
		return literalValueString(ex.Value)
	case *ast.VariableRef:
		return ex.Name.String()
	case *ast.ArrayElementRef:
		return fmt.Sprintf("%s(%s)", ex.Name.String(), exprListString(ex.Indices))
	case *ast.PropertyRef:
		return exprString(ex.Left) + "." + ex.Right.String()
	case *ast.BinaryExpr:
		return fmt.Sprintf("%s %s %s", exprString(ex.Left), binOpString(ex.Op), exprString(ex.Right))
	case *ast.UnaryExpr:
		if ex.Op == ast.OpNot {
			return "NOT " + exprString(ex.Child)
		}
		return "-" + exprString(ex.Child)
	case *ast.FunctionCallExpr:
		if len(ex.Args) == 0 {
			return ex.Name.String()
		}
		return fmt.Sprintf("%s(%s)", ex.Name.String(), exprListString(ex.Args))
	default:
		return fmt.Sprintf("<?%T>", e)
	}
}

func binOpString(op ast.BinOp) string {
	switch op {
	case ast.OpPlus:
		return "+"
	case ast.OpMinus:
		return "-"
	case ast.OpMultiply:
		return "*"
	case ast.OpDivide:
		return "/"
	case ast.OpModulo:
		return "MOD"
	case ast.OpAnd:
		return "AND"
	case ast.OpOr:
		return "OR"
	case ast.OpLess:
		return "<"
	case ast.OpLessOrEqual:
		return "<="
	case ast.OpEqual:
		return "="
	case ast.OpGreaterOrEqual:
		return ">="
	case ast.OpGreater:
		return ">"
	case ast.OpNotEqual:
		return "<>"
	default:
		return "?"
	}
}

func literalValueString(v ast.LiteralValue) string {
	switch v.Kind {
	case ast.LitInteger, ast.LitLong:
		return strconv.Itoa(int(v.Int))
	case ast.LitSingle, ast.LitDouble:
		return strconv.FormatFloat(v.Flt, 'g', -1, 64)
	case ast.LitString:
		return strconv.Quote(v.Str)
	default:
		return ""
	}
}
