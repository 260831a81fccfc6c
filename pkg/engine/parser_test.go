package engine

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sexpr renders a node as an s-expression so tree shape is easy to assert.
func sexpr(n *Node) string {
	switch n.Kind {
	case NodeLiteral:
		if s, ok := n.Value.AsString(); ok {
			return fmt.Sprintf("%q", s)
		}
		return n.Value.String()
	case NodeIdentifier:
		return n.Name
	case NodeBinary, NodeUnary:
		return "(" + n.Op + " " + join(n.Children) + ")"
	case NodeAssignment:
		op := "="
		if n.Declare {
			op = "var"
		}
		if len(n.Children) == 0 {
			return "(" + op + " " + n.Name + ")"
		}
		return "(" + op + " " + n.Name + " " + join(n.Children) + ")"
	case NodeCall:
		return "(call " + join(n.Children) + ")"
	case NodeBlock:
		return "{" + join(n.Children) + "}"
	case NodeIf:
		return "(if " + join(n.Children) + ")"
	case NodeWhile:
		return "(while " + join(n.Children) + ")"
	case NodeFunctionDecl:
		return fmt.Sprintf("(function %s [%s] %s)", n.Name, strings.Join(n.Params, " "), sexpr(n.Children[0]))
	case NodeReturn:
		if len(n.Children) == 0 {
			return "(return)"
		}
		return "(return " + sexpr(n.Children[0]) + ")"
	}
	return "?"
}

func join(nodes []*Node) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = sexpr(n)
	}
	return strings.Join(parts, " ")
}

func parseOne(t *testing.T, src string) *Node {
	t.Helper()
	root, err := ParseString(src)
	require.NoError(t, err)
	require.Len(t, root.Children, 1)
	return root.Children[0]
}

func TestParseExpressionPrecedence(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1 + 2 * 3", "(+ 1 (* 2 3))"},
		{"1 - 2 - 3", "(- (- 1 2) 3)"},
		{"8 / 4 / 2", "(/ (/ 8 4) 2)"},
		{"1 + 2 % 3 - 4", "(- (+ 1 (% 2 3)) 4)"},
		{"(1 + 2) * 3", "(* (+ 1 2) 3)"},
		{"a = b = 1", "(= a (= b 1))"},
		{"-a * b", "(* (- a) b)"},
		{"--a", "(- (- a))"},
		{"!a == b", "(== (! a) b)"},
		{"a || b && c", "(|| a (&& b c))"},
		{"a && b || c && d", "(|| (&& a b) (&& c d))"},
		{"a < b == c > d", "(== (< a b) (> c d))"},
		{"a + b < c * d", "(< (+ a b) (* c d))"},
		{"x = a || b", "(= x (|| a b))"},
		{"f(1, g(2))(3)", "(call (call f 1 (call g 2)) 3)"},
		{"-f(2)", "(- (call f 2))"},
		{`"a" + 'b'`, `(+ "a" "b")`},
		{"nil == false", "(== nil false)"},
		{"(x) = 1", "(= x 1)"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sexpr(parseOne(t, tt.input)))
		})
	}
}

func TestParseStatements(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"var with value", "var x = 1;", "(var x 1)"},
		{"bare var", "var x", "(var x)"},
		{"function", "function add(a, b) { return a + b }", "(function add [a b] {(return (+ a b))})"},
		{"function without params", "function f() { return; }", "(function f [] {(return)})"},
		{"if else", "if (x) y = 1; else { y = 2 }", "(if x (= y 1) {(= y 2)})"},
		{"else if chain", "if (a) x = 1; else if (b) x = 2; else x = 3;", "(if a (= x 1) (if b (= x 2) (= x 3)))"},
		{"while", "while (i < 3) i = i + 1;", "(while (< i 3) (= i (+ i 1)))"},
		{"empty while body", "while (f());", "(while (call f) {})"},
		{"nested block", "{ { x = 1 } }", "{{(= x 1)}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sexpr(parseOne(t, tt.input)))
		})
	}
}

func TestParseOptionalSemicolons(t *testing.T) {
	root, err := ParseString("x = 1; ; y = 2\n")
	require.NoError(t, err)
	assert.Equal(t, "{(= x 1) (= y 2)}", sexpr(root))

	root, err = ParseString("")
	require.NoError(t, err)
	assert.Empty(t, root.Children)

	root, err = ParseString("// only a comment")
	require.NoError(t, err)
	assert.Empty(t, root.Children)
}

func TestParseSpans(t *testing.T) {
	tests := []struct {
		input string
		span  Span
	}{
		{"foo(1, 2)", Span{Row: 1, Col: 1, Len: 9}},
		{"a + bc", Span{Row: 1, Col: 1, Len: 6}},
		{"(1 + 2)", Span{Row: 1, Col: 1, Len: 7}},
		{"  -x", Span{Row: 1, Col: 3, Len: 2}},
		{"'str'", Span{Row: 1, Col: 1, Len: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.span, parseOne(t, tt.input).Span)
		})
	}
}

func TestParseSyntaxErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		span  Span
		msg   string
	}{
		{"unexpected token", "x = 1;\ny = (2 + );", Span{Row: 2, Col: 10, Len: 1}, "unexpected token ')'"},
		{"dangling operator", "x = 1 +", Span{Row: 1, Col: 7, Len: 1}, "unexpected end of input"},
		{"missing semicolon", "x = 1 y = 2", Span{Row: 1, Col: 7, Len: 1}, "expected ';' after expression, got 'y'"},
		{"unclosed call", "f(1, 2", Span{Row: 1, Col: 6, Len: 1}, "expected ',' between arguments, got end of input"},
		{"unclosed block", "{ x = 1;", Span{Row: 1, Col: 1, Len: 1}, "unclosed block: expected '}'"},
		{"invalid target", "1 = 2", Span{Row: 1, Col: 1, Len: 1}, "invalid assignment target"},
		{"call target", "f() = 2", Span{Row: 1, Col: 1, Len: 3}, "invalid assignment target"},
		{"duplicate param", "function f(a, a) {}", Span{Row: 1, Col: 15, Len: 1}, "duplicate parameter 'a'"},
		{"var needs a name", "var 1 = 2", Span{Row: 1, Col: 5, Len: 1}, "expected identifier after 'var', got '1'"},
		{"keyword as name", "function if() {}", Span{Row: 1, Col: 10, Len: 2}, "expected identifier after 'function', got 'if'"},
		{"if without parens", "if x {}", Span{Row: 1, Col: 4, Len: 1}, "expected '(' after 'if', got 'x'"},
		{"lexer error", "x = @", Span{Row: 1, Col: 5, Len: 1}, "unexpected character '@'"},
		{"stray closing brace", "}", Span{Row: 1, Col: 1, Len: 1}, "unexpected token '}'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.input)
			require.Error(t, err)

			se := AsScriptError(err)
			assert.Equal(t, ErrSyntax, se.Kind)
			assert.Equal(t, tt.span, se.Span())
			assert.Equal(t, tt.msg, se.Msg)
			assert.Greater(t, se.Len, 0)
		})
	}
}

func TestParseNestingLimit(t *testing.T) {
	deep := 3 * maxNesting
	tests := []struct {
		name  string
		input string
		msg   string
	}{
		{"parentheses", "r = " + strings.Repeat("(", deep) + "1" + strings.Repeat(")", deep) + ";", "expression nested too deeply"},
		{"unary", "r = " + strings.Repeat("-", deep) + "1;", "expression nested too deeply"},
		{"blocks", strings.Repeat("{", deep) + strings.Repeat("}", deep), "statement nested too deeply"},
		{"if chain", strings.Repeat("if (true) ", deep) + "x = 1;", "statement nested too deeply"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.input)
			require.Error(t, err)

			se := AsScriptError(err)
			assert.Equal(t, ErrSyntax, se.Kind)
			assert.Equal(t, tt.msg, se.Msg)
			assert.Equal(t, 1, se.Row)
			assert.Greater(t, se.Col, 1)
			assert.Greater(t, se.Len, 0)
		})
	}
}

func TestParseModerateNesting(t *testing.T) {
	inputs := []string{
		"r = " + strings.Repeat("(", 200) + "1" + strings.Repeat(")", 200) + ";",
		"r = " + strings.Repeat("!", 200) + "true;",
		strings.Repeat("{", 200) + "x = 1;" + strings.Repeat("}", 200),
	}
	for _, src := range inputs {
		_, err := ParseString(src)
		assert.NoError(t, err)
	}
}

func TestIsIncomplete(t *testing.T) {
	tests := []struct {
		input      string
		incomplete bool
	}{
		{"function f() {", true},
		{"x = 1 +", true},
		{"if (x", true},
		{"while (x) {\n  x = x - 1;", true},
		{"f(1,", true},
		{"x = 1", false},
		{"x = )", false},
		{`"abc`, false},
		{"/* open comment", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.incomplete, IsIncomplete(tt.input))
		})
	}
}
