package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// FormatError renders err with the offending source line and a caret
// underline spanning the error's length:
//
//	SyntaxError at 2:10: unexpected token ')'
//
//	   1 | x = 1;
//	   2 | y = (2 + );
//	     |          ^
//	   3 | z = 3;
//
// Errors without a position are returned as their plain message. Tabs count
// as one column, matching the lexer, and are kept in the caret line so the
// caret lines up in a terminal.
func FormatError(src string, err error) string {
	se := AsScriptError(err)
	if se == nil {
		return ""
	}
	if se.Row == 0 {
		return se.Error() + "\n"
	}

	lines := strings.Split(src, "\n")
	row := se.Row
	if row > len(lines) {
		row = len(lines)
	}
	lineTxt := strings.TrimRight(lines[row-1], "\r")

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", se.Error())
	if row > 1 {
		fmt.Fprintf(&b, "%4d | %s\n", row-1, strings.TrimRight(lines[row-2], "\r"))
	}
	fmt.Fprintf(&b, "%4d | %s\n", row, lineTxt)
	fmt.Fprintf(&b, "     | %s\n", caretLine(lineTxt, se.Col, se.Len))
	if row < len(lines) {
		fmt.Fprintf(&b, "%4d | %s\n", row+1, strings.TrimRight(lines[row], "\r"))
	}
	return b.String()
}

func caretLine(line string, col, length int) string {
	if col < 1 {
		col = 1
	}
	if length < 1 {
		length = 1
	}
	width := utf8.RuneCountInString(line)
	if col+length-1 > width+1 {
		length = width + 2 - col
		if length < 1 {
			length = 1
		}
	}

	var b strings.Builder
	i := 1
	for _, r := range line {
		if i >= col {
			break
		}
		if r == '\t' {
			b.WriteRune('\t')
		} else {
			b.WriteByte(' ')
		}
		i++
	}
	for ; i < col; i++ {
		b.WriteByte(' ')
	}
	b.WriteByte('^')
	b.WriteString(strings.Repeat("~", length-1))
	return b.String()
}
