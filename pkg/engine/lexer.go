package engine

import (
	"fmt"
	"unicode"
)

type TokenType string

const (
	TokenIdentifier TokenType = "IDENTIFIER"
	TokenNumber     TokenType = "NUMBER"
	TokenString     TokenType = "STRING"
	TokenOperator   TokenType = "OPERATOR"
	TokenKeyword    TokenType = "KEYWORD"
	TokenPunct      TokenType = "PUNCT"
	TokenEOF        TokenType = "EOF"
	TokenError      TokenType = "ERROR"
)

var keywords = map[string]bool{
	"var":      true,
	"function": true,
	"return":   true,
	"if":       true,
	"else":     true,
	"while":    true,
	"true":     true,
	"false":    true,
	"nil":      true,
}

// Token is immutable once produced. Line and Column are 1-based and count
// runes; a tab is a single column. Length is the token's width in the
// source, quotes included for strings. For TokenError, Literal holds the
// message.
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
	Length  int
}

func (t Token) Span() Span {
	return Span{Row: t.Line, Col: t.Column, Len: t.Length}
}

// Is reports whether t is an operator, keyword or punctuation token with
// the given text.
func (t Token) Is(text string) bool {
	switch t.Type {
	case TokenOperator, TokenKeyword, TokenPunct:
		return t.Literal == text
	}
	return false
}

func (t Token) describe() string {
	switch t.Type {
	case TokenEOF:
		return "end of input"
	case TokenString:
		return fmt.Sprintf("string %q", t.Literal)
	default:
		return fmt.Sprintf("'%s'", t.Literal)
	}
}

type Lexer struct {
	input    []rune
	position int // index of the current rune
	line     int
	col      int
}

func NewLexer(input string) *Lexer {
	return &Lexer{input: []rune(input), line: 1, col: 1}
}

func (l *Lexer) ch() rune {
	if l.position >= len(l.input) {
		return 0
	}
	return l.input[l.position]
}

func (l *Lexer) peekChar() rune {
	if l.position+1 >= len(l.input) {
		return 0
	}
	return l.input[l.position+1]
}

func (l *Lexer) atEnd() bool {
	return l.position >= len(l.input)
}

func (l *Lexer) readChar() {
	if l.atEnd() {
		return
	}
	if l.input[l.position] == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	l.position++
}

// NextToken returns the next token. Once the input is exhausted it keeps
// returning TokenEOF.
func (l *Lexer) NextToken() Token {
	if errTok, ok := l.skipWhitespaceAndComments(); !ok {
		return errTok
	}

	line, col, start := l.line, l.col, l.position
	tok := Token{Line: line, Column: col}

	if l.atEnd() {
		tok.Type = TokenEOF
		return tok
	}

	ch := l.ch()
	switch {
	case isLetter(ch):
		for isLetter(l.ch()) || isDigit(l.ch()) {
			l.readChar()
		}
		tok.Literal = string(l.input[start:l.position])
		tok.Type = TokenIdentifier
		if keywords[tok.Literal] {
			tok.Type = TokenKeyword
		}
	case isDigit(ch):
		for isDigit(l.ch()) {
			l.readChar()
		}
		if l.ch() == '.' && isDigit(l.peekChar()) {
			l.readChar()
			for isDigit(l.ch()) {
				l.readChar()
			}
		}
		tok.Literal = string(l.input[start:l.position])
		tok.Type = TokenNumber
	case ch == '"' || ch == '\'':
		return l.readString(ch)
	default:
		return l.readOperator()
	}

	tok.Length = l.position - start
	return tok
}

// PeekToken returns the next token without consuming it.
func (l *Lexer) PeekToken() Token {
	pos, line, col := l.position, l.line, l.col
	tok := l.NextToken()
	l.position, l.line, l.col = pos, line, col
	return tok
}

func (l *Lexer) readOperator() Token {
	line, col := l.line, l.col
	ch := l.ch()
	next := l.peekChar()

	tok := Token{Line: line, Column: col, Length: 1, Literal: string(ch)}
	switch ch {
	case '(', ')', '{', '}', ',', ';':
		tok.Type = TokenPunct
	case '+', '-', '*', '/', '%':
		tok.Type = TokenOperator
	case '=', '!', '<', '>':
		tok.Type = TokenOperator
		if next == '=' {
			tok.Literal += "="
			tok.Length = 2
		}
	case '&', '|':
		if next != ch {
			tok.Type = TokenError
			tok.Literal = fmt.Sprintf("unexpected character '%c' (did you mean '%c%c'?)", ch, ch, ch)
			break
		}
		tok.Type = TokenOperator
		tok.Literal += string(next)
		tok.Length = 2
	default:
		tok.Type = TokenError
		tok.Literal = fmt.Sprintf("unexpected character %q", ch)
	}

	for i := 0; i < tok.Length; i++ {
		l.readChar()
	}
	return tok
}

func (l *Lexer) readString(quote rune) Token {
	line, col, start := l.line, l.col, l.position
	l.readChar() // opening quote

	var str []rune
	for {
		if l.atEnd() || l.ch() == '\n' {
			// Span runs to the end of the line so the caret covers the literal.
			return Token{
				Type:    TokenError,
				Literal: "unterminated string literal",
				Line:    line,
				Column:  col,
				Length:  l.position - start,
			}
		}
		if l.ch() == quote {
			l.readChar()
			break
		}
		if l.ch() == '\\' {
			l.readChar()
			switch l.ch() {
			case 'n':
				str = append(str, '\n')
			case 't':
				str = append(str, '\t')
			case 'r':
				str = append(str, '\r')
			case '"', '\'', '\\':
				str = append(str, l.ch())
			case 0:
				continue
			default:
				str = append(str, '\\', l.ch())
			}
			l.readChar()
			continue
		}
		str = append(str, l.ch())
		l.readChar()
	}

	return Token{
		Type:    TokenString,
		Literal: string(str),
		Line:    line,
		Column:  col,
		Length:  l.position - start,
	}
}

// skipWhitespaceAndComments returns ok=false with an error token when a
// block comment is never closed.
func (l *Lexer) skipWhitespaceAndComments() (Token, bool) {
	for !l.atEnd() {
		ch := l.ch()
		switch {
		case unicode.IsSpace(ch):
			l.readChar()
		case ch == '#', ch == '/' && l.peekChar() == '/':
			for !l.atEnd() && l.ch() != '\n' {
				l.readChar()
			}
		case ch == '/' && l.peekChar() == '*':
			line, col := l.line, l.col
			l.readChar()
			l.readChar()
			closed := false
			for !l.atEnd() {
				if l.ch() == '*' && l.peekChar() == '/' {
					l.readChar()
					l.readChar()
					closed = true
					break
				}
				l.readChar()
			}
			if !closed {
				return Token{
					Type:    TokenError,
					Literal: "unterminated block comment",
					Line:    line,
					Column:  col,
					Length:  2,
				}, false
			}
		default:
			return Token{}, true
		}
	}
	return Token{}, true
}

func isLetter(ch rune) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_' || ch > 0x7f && unicode.IsLetter(ch)
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

// Tokenize lexes the whole input. The result always ends with a TokenEOF
// or stops at the first TokenError.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var toks []Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			return toks
		}
	}
}
