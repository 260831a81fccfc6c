package engine

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"cscript/pkg/utils/coerce"
)

// builtins returns the natives every Context starts with. print writes to out.
func builtins(out io.Writer) map[string]Value {
	return map[string]Value{
		"print": NewNative("print", -1, func(args []Value) (Value, error) {
			parts := make([]string, len(args))
			for i, a := range args {
				parts[i] = a.String()
			}
			if _, err := fmt.Fprintln(out, strings.Join(parts, " ")); err != nil {
				return Value{}, err
			}
			return NewNil(), nil
		}),

		"len": NewNative("len", 1, func(args []Value) (Value, error) {
			s, ok := args[0].AsString()
			if !ok {
				return Value{}, errorf(ErrType, Span{}, "len expects a string, got %s", args[0].Type)
			}
			return NewNumber(float64(utf8.RuneCountInString(s))), nil
		}),

		"str": NewNative("str", 1, func(args []Value) (Value, error) {
			return NewString(args[0].String()), nil
		}),

		"num": NewNative("num", 1, func(args []Value) (Value, error) {
			switch args[0].Type {
			case ValNumber:
				return args[0], nil
			case ValString:
				s, _ := args[0].AsString()
				trimmed := strings.TrimSpace(s)
				n, err := coerce.ToNumber(trimmed)
				if err != nil || trimmed == "" {
					return Value{}, errorf(ErrType, Span{}, "cannot convert %q to number", s)
				}
				return NewNumber(n), nil
			}
			return Value{}, errorf(ErrType, Span{}, "num expects a number or string, got %s", args[0].Type)
		}),

		"type": NewNative("type", 1, func(args []Value) (Value, error) {
			return NewString(args[0].Type.String()), nil
		}),
	}
}

// BuiltinNames lists the natives every Context starts with, sorted.
func BuiltinNames() []string {
	names := make([]string, 0, 5)
	for name := range builtins(io.Discard) {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
