package ast

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// caseFolder provides locale-aware upper-casing for BareName comparisons.
// BASIC identifiers are ASCII in practice, but folding through a real
// Unicode case table (rather than strings.ToUpper) keeps the comparison
// correct for the handful of interpreters that allow extended identifiers
// and matches the rest of the stack's preference for x/text over hand
// rolled ASCII-only helpers.
var caseFolder = cases.Upper(language.Und)

func foldCase(s string) string {
	return caseFolder.String(s)
}

// BuiltInFunctionID enumerates the spec's built-in functions.
type BuiltInFunctionID byte

const (
	FnChr BuiltInFunctionID = iota
	FnCvd
	FnEnviron
	FnEof
	FnErr
	FnErl
	FnInkey
	FnInstr
	FnLbound
	FnLcase
	FnLeft
	FnLen
	FnLtrim
	FnMid
	FnMkd
	FnPeek
	FnRight
	FnRtrim
	FnSpace
	FnStr
	FnString
	FnUbound
	FnUcase
	FnVal
	FnVarptr
	FnVarseg
)

// BuiltInSubID enumerates the spec's built-in subs.
type BuiltInSubID byte

const (
	SubBeep BuiltInSubID = iota
	SubCls
	SubColor
	SubLocate
	SubViewPrint
	SubPrint // the PRINT/LPRINT statement (PrintStmt) lowers to this sub
	SubOpen
	SubClose
	SubGet
	SubPut
	SubField
	SubLSet
	SubName
	SubKill
	SubRead
	SubData
	SubRestore
	SubEnviron
	SubDefSeg
	SubPoke
	SubScreen
	SubWidth
	SubCallAbsolute
	SubInput
	SubLineInput
)
