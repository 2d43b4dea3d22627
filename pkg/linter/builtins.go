package linter

import "github.com/basilfold/qbi/pkg/ast"

// builtinFunctions maps a function's source name to its id, return type,
// and accepted argument count range (INSTR takes 2 or 3).
type builtinFunctionEntry struct {
	id      ast.BuiltInFunctionID
	ret     ast.ExpressionType
	minArgs int
	maxArgs int
}

var builtinFunctions = map[string]builtinFunctionEntry{
	"CHR$":    {ast.FnChr, ast.BuiltInType(ast.String), 1, 1},
	"CVD":     {ast.FnCvd, ast.BuiltInType(ast.Double), 1, 1},
	"ENVIRON$": {ast.FnEnviron, ast.BuiltInType(ast.String), 1, 1},
	"EOF":     {ast.FnEof, ast.BuiltInType(ast.Integer), 1, 1},
	"ERR":     {ast.FnErr, ast.BuiltInType(ast.Integer), 0, 0},
	"ERL":     {ast.FnErl, ast.BuiltInType(ast.Integer), 0, 0},
	"INKEY$":  {ast.FnInkey, ast.BuiltInType(ast.String), 0, 0},
	"INSTR":   {ast.FnInstr, ast.BuiltInType(ast.Integer), 2, 3},
	"LBOUND":  {ast.FnLbound, ast.BuiltInType(ast.Long), 1, 2},
	"LCASE$":  {ast.FnLcase, ast.BuiltInType(ast.String), 1, 1},
	"LEFT$":   {ast.FnLeft, ast.BuiltInType(ast.String), 2, 2},
	"LEN":     {ast.FnLen, ast.BuiltInType(ast.Long), 1, 1},
	"LTRIM$":  {ast.FnLtrim, ast.BuiltInType(ast.String), 1, 1},
	"MID$":    {ast.FnMid, ast.BuiltInType(ast.String), 2, 3},
	"MKD$":    {ast.FnMkd, ast.BuiltInType(ast.String), 1, 1},
	"PEEK":    {ast.FnPeek, ast.BuiltInType(ast.Integer), 1, 1},
	"RIGHT$":  {ast.FnRight, ast.BuiltInType(ast.String), 2, 2},
	"RTRIM$":  {ast.FnRtrim, ast.BuiltInType(ast.String), 1, 1},
	"SPACE$":  {ast.FnSpace, ast.BuiltInType(ast.String), 1, 1},
	"STR$":    {ast.FnStr, ast.BuiltInType(ast.String), 1, 1},
	"STRING$": {ast.FnString, ast.BuiltInType(ast.String), 2, 2},
	"UBOUND":  {ast.FnUbound, ast.BuiltInType(ast.Long), 1, 2},
	"UCASE$":  {ast.FnUcase, ast.BuiltInType(ast.String), 1, 1},
	"VAL":     {ast.FnVal, ast.BuiltInType(ast.Double), 1, 1},
	"VARPTR":  {ast.FnVarptr, ast.BuiltInType(ast.Integer), 1, 1},
	"VARSEG":  {ast.FnVarseg, ast.BuiltInType(ast.Integer), 1, 1},
}

var builtinSubs = map[string]ast.BuiltInSubID{
	"BEEP":          ast.SubBeep,
	"CLS":           ast.SubCls,
	"COLOR":         ast.SubColor,
	"LOCATE":        ast.SubLocate,
	"VIEW PRINT":    ast.SubViewPrint,
	"OPEN":          ast.SubOpen,
	"CLOSE":         ast.SubClose,
	"GET":           ast.SubGet,
	"PUT":           ast.SubPut,
	"FIELD":         ast.SubField,
	"LSET":          ast.SubLSet,
	"NAME":          ast.SubName,
	"KILL":          ast.SubKill,
	"READ":          ast.SubRead,
	"RESTORE":       ast.SubRestore,
	"ENVIRON":       ast.SubEnviron,
	"DEF SEG":       ast.SubDefSeg,
	"POKE":          ast.SubPoke,
	"SCREEN":        ast.SubScreen,
	"WIDTH":         ast.SubWidth,
	"CALL ABSOLUTE": ast.SubCallAbsolute,
}
