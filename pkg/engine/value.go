package engine

import (
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

type ValueType uint8

const (
	ValNil ValueType = iota
	ValBool
	ValNumber
	ValString
	ValFunction
	ValHandle
)

func (t ValueType) String() string {
	switch t {
	case ValNil:
		return "nil"
	case ValBool:
		return "bool"
	case ValNumber:
		return "number"
	case ValString:
		return "string"
	case ValFunction:
		return "function"
	case ValHandle:
		return "handle"
	default:
		return "unknown"
	}
}

// Value represents any script value.
//
// OWNERSHIP: values are immutable. Strings and functions are held by
// pointer so copying a Value never copies their payload.
type Value struct {
	Type ValueType

	numVal    float64
	boolVal   bool
	handleVal uintptr

	stringVal   *string
	functionVal *Function
}

// NativeFunc is a host function callable from scripts.
type NativeFunc func(args []Value) (Value, error)

// Function is either a script function closing over its defining scope or
// a host-provided native.
type Function struct {
	Name    string
	Params  []string
	Body    *Node
	Closure *Scope

	// Arity of a native; -1 accepts any number of arguments.
	Arity  int
	Native NativeFunc
}

func (f *Function) IsNative() bool {
	return f.Native != nil
}

func (f *Function) arity() int {
	if f.IsNative() {
		return f.Arity
	}
	return len(f.Params)
}

// Type-safe accessors

func (v Value) AsNumber() (float64, bool) {
	if v.Type == ValNumber {
		return v.numVal, true
	}
	return 0, false
}

func (v Value) AsBool() (bool, bool) {
	if v.Type == ValBool {
		return v.boolVal, true
	}
	return false, false
}

func (v Value) AsString() (string, bool) {
	if v.Type == ValString && v.stringVal != nil {
		return *v.stringVal, true
	}
	return "", false
}

func (v Value) AsFunction() (*Function, bool) {
	if v.Type == ValFunction && v.functionVal != nil {
		return v.functionVal, true
	}
	return nil, false
}

func (v Value) AsHandle() (uintptr, bool) {
	if v.Type == ValHandle {
		return v.handleVal, true
	}
	return 0, false
}

// Truthy reports the value's truthiness: nil and false are falsy, every
// other value, including 0 and "", is truthy.
func (v Value) Truthy() bool {
	switch v.Type {
	case ValNil:
		return false
	case ValBool:
		b, _ := v.AsBool()
		return b
	default:
		return true
	}
}

// Equal compares by kind and payload. Functions and handles compare by
// identity; values of different kinds are never equal.
func (v Value) Equal(other Value) bool {
	if v.Type != other.Type {
		return false
	}
	switch v.Type {
	case ValNil:
		return true
	case ValBool:
		return v.boolVal == other.boolVal
	case ValNumber:
		return v.numVal == other.numVal
	case ValString:
		a, _ := v.AsString()
		b, _ := other.AsString()
		return a == b
	case ValFunction:
		return v.functionVal == other.functionVal
	case ValHandle:
		return v.handleVal == other.handleVal
	}
	return false
}

// String returns the display form used by print and str.
func (v Value) String() string {
	switch v.Type {
	case ValNil:
		return "nil"
	case ValBool:
		if v.boolVal {
			return "true"
		}
		return "false"
	case ValNumber:
		return FormatNumber(v.numVal)
	case ValString:
		if v.stringVal != nil {
			return *v.stringVal
		}
		return ""
	case ValFunction:
		if v.functionVal != nil && v.functionVal.Name != "" {
			return fmt.Sprintf("<function %s>", v.functionVal.Name)
		}
		return "<function>"
	case ValHandle:
		return fmt.Sprintf("<handle 0x%x>", v.handleVal)
	default:
		return "unknown"
	}
}

// FormatNumber prints n without exponent notation where a decimal form
// exists, so 1e6 prints as 1000000 and 0.1 as 0.1.
func FormatNumber(n float64) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return strconv.FormatFloat(n, 'g', -1, 64)
	}
	return decimal.NewFromFloat(n).String()
}

// ToNative converts a Value to a plain Go value: nil, bool, float64,
// string, *Function or uintptr.
func (v Value) ToNative() interface{} {
	switch v.Type {
	case ValNil:
		return nil
	case ValBool:
		b, _ := v.AsBool()
		return b
	case ValNumber:
		n, _ := v.AsNumber()
		return n
	case ValString:
		s, _ := v.AsString()
		return s
	case ValFunction:
		return v.functionVal
	case ValHandle:
		h, _ := v.AsHandle()
		return h
	default:
		return nil
	}
}

// Helper constructors

func NewNumber(n float64) Value {
	return Value{Type: ValNumber, numVal: n}
}

func NewBool(b bool) Value {
	return Value{Type: ValBool, boolVal: b}
}

func NewString(s string) Value {
	return Value{Type: ValString, stringVal: &s}
}

func NewNil() Value {
	return Value{Type: ValNil}
}

func NewFunction(f *Function) Value {
	return Value{Type: ValFunction, functionVal: f}
}

func NewHandle(h uintptr) Value {
	return Value{Type: ValHandle, handleVal: h}
}

// NewNative wraps a host function. Use arity -1 for variadic natives.
func NewNative(name string, arity int, fn NativeFunc) Value {
	return NewFunction(&Function{Name: name, Arity: arity, Native: fn})
}
