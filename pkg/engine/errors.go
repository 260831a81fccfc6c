package engine

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrSyntax         ErrorKind = "SyntaxError"
	ErrUndefinedName  ErrorKind = "UndefinedName"
	ErrType           ErrorKind = "TypeError"
	ErrDivisionByZero ErrorKind = "DivisionByZero"
	ErrArityMismatch  ErrorKind = "ArityMismatch"
	ErrUnmarshal      ErrorKind = "UnmarshalError"
	ErrStackOverflow  ErrorKind = "StackOverflow"
	ErrInternal       ErrorKind = "InternalError"
)

// ScriptError is the error retained by a Context. Row, Col and Len locate
// the token or node that triggered it; errors raised by host operations
// carry a zero position.
type ScriptError struct {
	Kind ErrorKind `json:"kind"`
	Row  int       `json:"row"`
	Col  int       `json:"col"`
	Len  int       `json:"len"`
	Msg  string    `json:"msg"`
}

func (e *ScriptError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s at %d:%d: %s", e.Kind, e.Row, e.Col, e.Msg)
}

func (e *ScriptError) Span() Span {
	return Span{Row: e.Row, Col: e.Col, Len: e.Len}
}

func newError(kind ErrorKind, span Span, msg string) *ScriptError {
	return &ScriptError{Kind: kind, Row: span.Row, Col: span.Col, Len: span.Len, Msg: msg}
}

func errorf(kind ErrorKind, span Span, format string, args ...interface{}) *ScriptError {
	return newError(kind, span, fmt.Sprintf(format, args...))
}

// AsScriptError extracts a *ScriptError from err. Anything else is reported
// as an InternalError without a position.
func AsScriptError(err error) *ScriptError {
	if err == nil {
		return nil
	}
	var se *ScriptError
	if errors.As(err, &se) {
		return se
	}
	return &ScriptError{Kind: ErrInternal, Msg: err.Error()}
}

// KindOf returns the ErrorKind of err, or "" when err is nil.
func KindOf(err error) ErrorKind {
	if se := AsScriptError(err); se != nil {
		return se.Kind
	}
	return ""
}
