package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizePositions(t *testing.T) {
	toks := Tokenize("x = 1;\n  foo(\"hi\") >= 2.5")

	want := []Token{
		{Type: TokenIdentifier, Literal: "x", Line: 1, Column: 1, Length: 1},
		{Type: TokenOperator, Literal: "=", Line: 1, Column: 3, Length: 1},
		{Type: TokenNumber, Literal: "1", Line: 1, Column: 5, Length: 1},
		{Type: TokenPunct, Literal: ";", Line: 1, Column: 6, Length: 1},
		{Type: TokenIdentifier, Literal: "foo", Line: 2, Column: 3, Length: 3},
		{Type: TokenPunct, Literal: "(", Line: 2, Column: 6, Length: 1},
		{Type: TokenString, Literal: "hi", Line: 2, Column: 7, Length: 4},
		{Type: TokenPunct, Literal: ")", Line: 2, Column: 11, Length: 1},
		{Type: TokenOperator, Literal: ">=", Line: 2, Column: 13, Length: 2},
		{Type: TokenNumber, Literal: "2.5", Line: 2, Column: 16, Length: 3},
		{Type: TokenEOF, Line: 2, Column: 19},
	}
	assert.Equal(t, want, toks)
}

func TestTokenizeKeywordsAndOperators(t *testing.T) {
	tests := []struct {
		input   string
		typ     TokenType
		literal string
	}{
		{"var", TokenKeyword, "var"},
		{"function", TokenKeyword, "function"},
		{"nil", TokenKeyword, "nil"},
		{"variable", TokenIdentifier, "variable"},
		{"_tmp9", TokenIdentifier, "_tmp9"},
		{"héllo", TokenIdentifier, "héllo"},
		{"==", TokenOperator, "=="},
		{"!=", TokenOperator, "!="},
		{"<=", TokenOperator, "<="},
		{"&&", TokenOperator, "&&"},
		{"||", TokenOperator, "||"},
		{"!", TokenOperator, "!"},
		{"%", TokenOperator, "%"},
		{"{", TokenPunct, "{"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tok := NewLexer(tt.input).NextToken()
			assert.Equal(t, tt.typ, tok.Type)
			assert.Equal(t, tt.literal, tok.Literal)
			assert.Equal(t, len([]rune(tt.input)), tok.Length)
		})
	}
}

func TestTabCountsAsOneColumn(t *testing.T) {
	toks := Tokenize("\t\tx")
	require.Len(t, toks, 2)
	assert.Equal(t, 1, toks[0].Line)
	assert.Equal(t, 3, toks[0].Column)
}

func TestColumnsCountRunes(t *testing.T) {
	toks := Tokenize(`"héé" y`)
	require.Len(t, toks, 3)
	assert.Equal(t, 5, toks[0].Length)
	assert.Equal(t, 7, toks[1].Column)
}

func TestComments(t *testing.T) {
	src := "// line\n# hash\n/* block\n spans */ a"
	toks := Tokenize(src)
	require.Len(t, toks, 2)
	assert.Equal(t, "a", toks[0].Literal)
	assert.Equal(t, 4, toks[0].Line)
	assert.Equal(t, 11, toks[0].Column)
}

func TestStringEscapes(t *testing.T) {
	tok := NewLexer(`'a\nb\t\'c\\'`).NextToken()
	require.Equal(t, TokenString, tok.Type)
	assert.Equal(t, "a\nb\t'c\\", tok.Literal)
	assert.Equal(t, 13, tok.Length)
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		line   int
		col    int
		length int
		msg    string
	}{
		{"stray character", "x = @", 1, 5, 1, "unexpected character '@'"},
		{"single ampersand", "a & b", 1, 3, 1, "unexpected character '&' (did you mean '&&'?)"},
		{"single pipe", "a | b", 1, 3, 1, "unexpected character '|' (did you mean '||'?)"},
		{"unterminated string", `s = "abc`, 1, 5, 4, "unterminated string literal"},
		{"string broken by newline", "s = 'ab\n'", 1, 5, 3, "unterminated string literal"},
		{"unterminated block comment", "x\n  /* never closed", 2, 3, 2, "unterminated block comment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks := Tokenize(tt.input)
			last := toks[len(toks)-1]
			require.Equal(t, TokenError, last.Type)
			assert.Equal(t, tt.msg, last.Literal)
			assert.Equal(t, Span{Row: tt.line, Col: tt.col, Len: tt.length}, last.Span())
		})
	}
}

func TestPeekTokenDoesNotConsume(t *testing.T) {
	l := NewLexer("a b")
	assert.Equal(t, "a", l.PeekToken().Literal)
	assert.Equal(t, "a", l.NextToken().Literal)
	assert.Equal(t, "b", l.NextToken().Literal)
	assert.Equal(t, TokenEOF, l.NextToken().Type)
	assert.Equal(t, TokenEOF, l.NextToken().Type)
}
