package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenTypes(toks []Token) []TokenType {
	var out []TokenType
	for _, tok := range toks {
		if tok.Type != EOF {
			out = append(out, tok.Type)
		}
	}
	return out
}

func TestLexer_Symbols(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []TokenType
	}{
		{"arithmetic", "+ - * / \\ ^", []TokenType{PLUS, MINUS, STAR, SLASH, BACKSLASH, CARET}},
		{"comparison", "= < > <= >= <>", []TokenType{EQ, LT, GT, LE, GE, NE}},
		{"delimiters", "( ) , ; : . #", []TokenType{LPAREN, RPAREN, COMMA, SEMI, COLON, DOT, HASH}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := New(tt.input).Tokenize()
			require.NoError(t, err)
			require.Equal(t, tt.expected, tokenTypes(toks))
		})
	}
}

func TestLexer_Keywords(t *testing.T) {
	toks, err := New("DIM IF THEN ELSE FOR NEXT PRINT").Tokenize()
	require.NoError(t, err)
	assert.Equal(t, []TokenType{DIM, IF, THEN, ELSE, FOR, NEXT, PRINT}, tokenTypes(toks))
}

func TestLexer_KeywordsAreCaseInsensitive(t *testing.T) {
	toks, err := New("dim If tHeN").Tokenize()
	require.NoError(t, err)
	assert.Equal(t, []TokenType{DIM, IF, THEN}, tokenTypes(toks))
}

func TestLexer_IdentifierWithTypeSuffix(t *testing.T) {
	tests := []struct {
		input   string
		literal string
	}{
		{"X%", "X%"},
		{"NAME$", "NAME$"},
		{"TOTAL!", "TOTAL!"},
		{"AMOUNT#", "AMOUNT#"},
		{"COUNT&", "COUNT&"},
	}
	for _, tt := range tests {
		toks, err := New(tt.input).Tokenize()
		require.NoError(t, err)
		require.Len(t, toks, 2) // IDENT + EOF
		assert.Equal(t, IDENT, toks[0].Type)
		assert.Equal(t, tt.literal, toks[0].Literal)
	}
}

func TestLexer_TypeSuffixedIdentIsNeverAKeyword(t *testing.T) {
	toks, err := New("END$").Tokenize()
	require.NoError(t, err)
	require.Len(t, toks, 2)
	assert.Equal(t, IDENT, toks[0].Type)
	assert.Equal(t, "END$", toks[0].Literal)
}

func TestLexer_Numbers(t *testing.T) {
	tests := []struct {
		name  string
		input string
		typ   TokenType
	}{
		{"integer", "123", INTEGER},
		{"long suffix", "123&", LONG},
		{"single", "1.5", SINGLE},
		{"single suffix", "1.5!", SINGLE},
		{"double suffix", "1.5#", DOUBLE},
		{"exponent single", "1E3", SINGLE},
		{"exponent double", "1.5D3", DOUBLE},
		{"hex literal", "&H1F", INTEGER},
		{"octal literal", "&O17", INTEGER},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := New(tt.input).Tokenize()
			require.NoError(t, err)
			require.Len(t, toks, 2)
			assert.Equal(t, tt.typ, toks[0].Type)
		})
	}
}

func TestLexer_StringLiteral(t *testing.T) {
	toks, err := New(`"HELLO, WORLD"`).Tokenize()
	require.NoError(t, err)
	require.Len(t, toks, 2)
	assert.Equal(t, STRING, toks[0].Type)
	assert.Equal(t, "HELLO, WORLD", toks[0].Literal)
}

func TestLexer_UnterminatedStringStopsAtNewline(t *testing.T) {
	toks, err := New("\"UNCLOSED\nPRINT 1").Tokenize()
	require.NoError(t, err)
	require.Equal(t, STRING, toks[0].Type)
	assert.Equal(t, "UNCLOSED", toks[0].Literal)
}

func TestLexer_CommentsAreSkipped(t *testing.T) {
	toks, err := New("PRINT 1 ' a comment\nREM another comment\nPRINT 2").Tokenize()
	require.NoError(t, err)
	types := tokenTypes(toks)
	assert.Equal(t, []TokenType{PRINT, INTEGER, NEWLINE, NEWLINE, PRINT, INTEGER}, types)
}

func TestLexer_NewlineTracksLineNumber(t *testing.T) {
	toks, err := New("X = 1\nY = 2").Tokenize()
	require.NoError(t, err)
	// find the second "Y" ident token
	var yTok Token
	for _, tok := range toks {
		if tok.Type == IDENT && tok.Literal == "Y" {
			yTok = tok
		}
	}
	assert.Equal(t, 2, yTok.Line)
}

func TestLexer_Illegal(t *testing.T) {
	toks, err := New("@").Tokenize()
	require.NoError(t, err)
	require.Equal(t, ILLEGAL, toks[0].Type)
	assert.Equal(t, "@", toks[0].Literal)
}

func TestLexer_EmitsTrailingEOF(t *testing.T) {
	toks, err := New("").Tokenize()
	require.NoError(t, err)
	require.Len(t, toks, 1)
	assert.Equal(t, EOF, toks[0].Type)
}
