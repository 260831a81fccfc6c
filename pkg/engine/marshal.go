package engine

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"cscript/pkg/utils/coerce"

	"github.com/shopspring/decimal"
)

// HostValue is the discriminated union exchanged with the host by Get and
// Set. Only the field matching Kind is meaningful. A function read by Get
// reports its name in String; functions cannot be written back.
type HostValue struct {
	Kind   ValueType
	Bool   bool
	Number float64
	String string
	Handle uintptr
}

// ToHost converts a script value for the host.
func ToHost(v Value) HostValue {
	switch v.Type {
	case ValBool:
		b, _ := v.AsBool()
		return HostValue{Kind: ValBool, Bool: b}
	case ValNumber:
		n, _ := v.AsNumber()
		return HostValue{Kind: ValNumber, Number: n}
	case ValString:
		s, _ := v.AsString()
		return HostValue{Kind: ValString, String: s}
	case ValFunction:
		name := ""
		if v.functionVal != nil {
			name = v.functionVal.Name
		}
		return HostValue{Kind: ValFunction, String: name}
	case ValHandle:
		h, _ := v.AsHandle()
		return HostValue{Kind: ValHandle, Handle: h}
	default:
		return HostValue{Kind: ValNil}
	}
}

// FromHost converts a host value into a script value. Functions and
// unknown kinds fail with an UnmarshalError.
func FromHost(in HostValue) (Value, error) {
	switch in.Kind {
	case ValNil:
		return NewNil(), nil
	case ValBool:
		return NewBool(in.Bool), nil
	case ValNumber:
		return NewNumber(in.Number), nil
	case ValString:
		return NewString(in.String), nil
	case ValHandle:
		return NewHandle(in.Handle), nil
	case ValFunction:
		return Value{}, newError(ErrUnmarshal, Span{}, "functions cannot be set from the host")
	default:
		return Value{}, errorf(ErrUnmarshal, Span{}, "unsupported value kind %d", in.Kind)
	}
}

// Handle wraps an opaque host pointer for SetNative.
type Handle uintptr

// FromNative converts a Go value into a script value. Strings, bools, nil,
// Handle, Value and decimal.Decimal map directly. Byte slices, errors and
// fmt.Stringer values become strings; anything spf13/cast can turn into a
// float64 becomes a number.
func FromNative(in interface{}) (Value, error) {
	switch v := in.(type) {
	case nil:
		return NewNil(), nil
	case Value:
		return v, nil
	case HostValue:
		return FromHost(v)
	case bool:
		return NewBool(v), nil
	case string:
		return NewString(v), nil
	case Handle:
		return NewHandle(uintptr(v)), nil
	case decimal.Decimal:
		return NewNumber(v.InexactFloat64()), nil
	case *Function:
		return Value{}, newError(ErrUnmarshal, Span{}, "functions cannot be set from the host")
	case []byte, error, fmt.Stringer:
		return NewString(coerce.ToString(v)), nil
	}

	n, err := coerce.ToNumber(in)
	if err != nil {
		return Value{}, newError(ErrUnmarshal, Span{}, err.Error())
	}
	return NewNumber(n), nil
}

// Encode writes v in the wire format:
//
//	tag byte: 0 nil, 1 bool, 2 number, 3 string, 4 function, 5 handle
//	bool      1 byte
//	number    float64, little-endian
//	string    uint32 length + UTF-8 bytes
//	function  uint32 length + name bytes
//	handle    uint64, little-endian
func Encode(w io.Writer, v HostValue) error {
	if err := binary.Write(w, binary.LittleEndian, uint8(v.Kind)); err != nil {
		return err
	}

	switch v.Kind {
	case ValNil:
		return nil
	case ValBool:
		var b byte
		if v.Bool {
			b = 1
		}
		return binary.Write(w, binary.LittleEndian, b)
	case ValNumber:
		return binary.Write(w, binary.LittleEndian, v.Number)
	case ValString, ValFunction:
		return writeString(w, v.String)
	case ValHandle:
		return binary.Write(w, binary.LittleEndian, uint64(v.Handle))
	default:
		return fmt.Errorf("unknown value type: %d", v.Kind)
	}
}

// Decode reads one value in the wire format from r.
func Decode(r io.Reader) (HostValue, error) {
	var t uint8
	if err := binary.Read(r, binary.LittleEndian, &t); err != nil {
		return HostValue{}, err
	}

	out := HostValue{Kind: ValueType(t)}
	switch out.Kind {
	case ValNil:
		return out, nil
	case ValBool:
		var b byte
		if err := binary.Read(r, binary.LittleEndian, &b); err != nil {
			return HostValue{}, err
		}
		if b > 1 {
			return HostValue{}, fmt.Errorf("invalid bool byte %d", b)
		}
		out.Bool = b == 1
	case ValNumber:
		if err := binary.Read(r, binary.LittleEndian, &out.Number); err != nil {
			return HostValue{}, err
		}
	case ValString, ValFunction:
		s, err := readString(r)
		if err != nil {
			return HostValue{}, err
		}
		out.String = s
	case ValHandle:
		var h uint64
		if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
			return HostValue{}, err
		}
		out.Handle = uintptr(h)
	default:
		return HostValue{}, fmt.Errorf("unsupported value type: %d", t)
	}
	return out, nil
}

// MarshalValue encodes a script value into a fresh buffer.
func MarshalValue(v Value) []byte {
	var buf bytes.Buffer
	// Writes to a bytes.Buffer cannot fail and every kind is known here.
	_ = Encode(&buf, ToHost(v))
	return buf.Bytes()
}

// UnmarshalValue decodes exactly one value from data. Truncated input,
// trailing bytes, unknown tags and functions are UnmarshalErrors.
func UnmarshalValue(data []byte) (Value, error) {
	r := bytes.NewReader(data)
	hv, err := Decode(r)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Value{}, newError(ErrUnmarshal, Span{}, "truncated value")
		}
		return Value{}, newError(ErrUnmarshal, Span{}, err.Error())
	}
	if r.Len() > 0 {
		return Value{}, errorf(ErrUnmarshal, Span{}, "%d trailing bytes after value", r.Len())
	}
	return FromHost(hv)
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

// maxStringLen bounds string payloads so a corrupt length prefix cannot
// force a huge allocation.
const maxStringLen = 64 << 20

func readString(r io.Reader) (string, error) {
	var l uint32
	if err := binary.Read(r, binary.LittleEndian, &l); err != nil {
		return "", err
	}
	if l > maxStringLen {
		return "", fmt.Errorf("string length %d exceeds limit", l)
	}
	buf := make([]byte, l)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
