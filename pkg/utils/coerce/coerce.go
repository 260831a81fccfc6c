package coerce

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// ============================================================================
// SAFE COERCION HELPERS
// These convert host-side Go values into the shapes the script runtime
// understands. They return a clear error instead of panicking.
// ============================================================================

// ToNumber converts numeric Go values (all int, uint and float widths,
// json.Number, numeric strings) into a float64. Bools, slices, maps and
// structs are rejected.
func ToNumber(input interface{}) (float64, error) {
	if input == nil {
		return 0, fmt.Errorf("cannot convert nil to number")
	}
	if _, isBool := input.(bool); isBool {
		return 0, fmt.Errorf("cannot convert bool to number")
	}
	f, err := cast.ToFloat64E(input)
	if err != nil {
		return 0, fmt.Errorf("unsupported host value '%v' (type %T)", input, input)
	}
	return f, nil
}

// ToString converts input into a string. Nil becomes "".
func ToString(input interface{}) string {
	if input == nil {
		return ""
	}
	s, err := cast.ToStringE(input)
	if err != nil {
		return fmt.Sprintf("%v", input)
	}
	return s
}

// ParseLiteral reads a command-line value the way a script literal would
// read it: numbers become float64, true/false become bool, nil becomes
// nil, quoted text is unquoted and anything else stays a string.
func ParseLiteral(s string) interface{} {
	trimmed := strings.TrimSpace(s)
	switch trimmed {
	case "nil":
		return nil
	case "true", "false":
		return cast.ToBool(trimmed)
	}
	if len(trimmed) >= 2 {
		if (strings.HasPrefix(trimmed, "\"") && strings.HasSuffix(trimmed, "\"")) ||
			(strings.HasPrefix(trimmed, "'") && strings.HasSuffix(trimmed, "'")) {
			return trimmed[1 : len(trimmed)-1]
		}
	}
	if f, err := cast.ToFloat64E(trimmed); err == nil && trimmed != "" {
		return f
	}
	return s
}
