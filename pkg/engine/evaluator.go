package engine

import (
	"fmt"
	"math"
)

// DefaultMaxDepth bounds nested script calls so runaway recursion fails
// with StackOverflow instead of exhausting the goroutine stack.
const DefaultMaxDepth = 200

type flow int

const (
	flowNormal flow = iota
	flowReturn
)

// signal is the result of executing a statement. A Return travels up to
// the nearest call frame as a value, not as a Go error.
type signal struct {
	flow  flow
	value Value
}

var normal = signal{flow: flowNormal}

type evaluator struct {
	natives  map[string]Value
	maxDepth int
	depth    int
}

// execBlock runs statements in order inside scope.
func (ev *evaluator) execBlock(stmts []*Node, scope *Scope) (signal, error) {
	for _, stmt := range stmts {
		sig, err := ev.exec(stmt, scope)
		if err != nil || sig.flow == flowReturn {
			return sig, err
		}
	}
	return normal, nil
}

func (ev *evaluator) exec(node *Node, scope *Scope) (signal, error) {
	switch node.Kind {
	case NodeBlock:
		inner := GetScope(scope)
		defer PutScope(inner)
		return ev.execBlock(node.Children, inner)

	case NodeIf:
		cond, err := ev.eval(node.Children[0], scope)
		if err != nil {
			return normal, err
		}
		if cond.Truthy() {
			return ev.exec(node.Children[1], scope)
		}
		if len(node.Children) > 2 {
			return ev.exec(node.Children[2], scope)
		}
		return normal, nil

	case NodeWhile:
		for {
			cond, err := ev.eval(node.Children[0], scope)
			if err != nil {
				return normal, err
			}
			if !cond.Truthy() {
				return normal, nil
			}
			sig, err := ev.exec(node.Children[1], scope)
			if err != nil || sig.flow == flowReturn {
				return sig, err
			}
		}

	case NodeFunctionDecl:
		scope.capture()
		scope.Define(node.Name, NewFunction(&Function{
			Name:    node.Name,
			Params:  node.Params,
			Body:    node.Children[0],
			Closure: scope,
		}))
		return normal, nil

	case NodeReturn:
		sig := signal{flow: flowReturn, value: NewNil()}
		if len(node.Children) > 0 {
			val, err := ev.eval(node.Children[0], scope)
			if err != nil {
				return normal, err
			}
			sig.value = val
		}
		return sig, nil

	default:
		_, err := ev.eval(node, scope)
		return normal, err
	}
}

func (ev *evaluator) eval(node *Node, scope *Scope) (Value, error) {
	switch node.Kind {
	case NodeLiteral:
		return node.Value, nil

	case NodeIdentifier:
		if val, ok := scope.Get(node.Name); ok {
			return val, nil
		}
		if val, ok := ev.natives[node.Name]; ok {
			return val, nil
		}
		return Value{}, errorf(ErrUndefinedName, node.Span, "undefined name '%s'", node.Name)

	case NodeAssignment:
		val := NewNil()
		if len(node.Children) > 0 {
			v, err := ev.eval(node.Children[0], scope)
			if err != nil {
				return Value{}, err
			}
			val = v
		}
		if node.Declare {
			scope.Define(node.Name, val)
		} else {
			scope.Assign(node.Name, val)
		}
		return val, nil

	case NodeUnary:
		operand, err := ev.eval(node.Children[0], scope)
		if err != nil {
			return Value{}, err
		}
		return unaryOp(node, operand)

	case NodeBinary:
		return ev.evalBinary(node, scope)

	case NodeCall:
		return ev.evalCall(node, scope)

	default:
		return Value{}, errorf(ErrSyntax, node.Span, "%s is not an expression", node.Kind)
	}
}

func (ev *evaluator) evalBinary(node *Node, scope *Scope) (Value, error) {
	left, err := ev.eval(node.Children[0], scope)
	if err != nil {
		return Value{}, err
	}

	switch node.Op {
	case "&&":
		if !left.Truthy() {
			return left, nil
		}
		return ev.eval(node.Children[1], scope)
	case "||":
		if left.Truthy() {
			return left, nil
		}
		return ev.eval(node.Children[1], scope)
	}

	right, err := ev.eval(node.Children[1], scope)
	if err != nil {
		return Value{}, err
	}
	return binaryOp(node, left, right)
}

func unaryOp(node *Node, operand Value) (Value, error) {
	switch node.Op {
	case "!":
		return NewBool(!operand.Truthy()), nil
	case "-":
		n, ok := operand.AsNumber()
		if !ok {
			return Value{}, errorf(ErrType, node.Span, "cannot negate %s", operand.Type)
		}
		return NewNumber(-n), nil
	}
	return Value{}, errorf(ErrSyntax, node.Span, "unknown unary operator '%s'", node.Op)
}

func binaryOp(node *Node, left, right Value) (Value, error) {
	switch node.Op {
	case "==":
		return NewBool(left.Equal(right)), nil
	case "!=":
		return NewBool(!left.Equal(right)), nil
	case "+":
		if left.Type == ValString && right.Type == ValString {
			a, _ := left.AsString()
			b, _ := right.AsString()
			return NewString(a + b), nil
		}
	case "<", "<=", ">", ">=":
		if left.Type == ValString && right.Type == ValString {
			a, _ := left.AsString()
			b, _ := right.AsString()
			return NewBool(compare(node.Op, a, b)), nil
		}
	}

	a, aok := left.AsNumber()
	b, bok := right.AsNumber()
	if !aok || !bok {
		return Value{}, errorf(ErrType, node.Span, "unsupported operand types for '%s': %s and %s", node.Op, left.Type, right.Type)
	}

	switch node.Op {
	case "+":
		return NewNumber(a + b), nil
	case "-":
		return NewNumber(a - b), nil
	case "*":
		return NewNumber(a * b), nil
	case "/":
		if b == 0 {
			return Value{}, newError(ErrDivisionByZero, node.Span, "division by zero")
		}
		return NewNumber(a / b), nil
	case "%":
		if b == 0 {
			return Value{}, newError(ErrDivisionByZero, node.Span, "modulo by zero")
		}
		return NewNumber(math.Mod(a, b)), nil
	case "<", "<=", ">", ">=":
		return NewBool(compare(node.Op, a, b)), nil
	}
	return Value{}, errorf(ErrSyntax, node.Span, "unknown binary operator '%s'", node.Op)
}

func compare[T float64 | string](op string, a, b T) bool {
	switch op {
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	default:
		return a >= b
	}
}

func (ev *evaluator) evalCall(node *Node, scope *Scope) (Value, error) {
	callee, err := ev.eval(node.Children[0], scope)
	if err != nil {
		return Value{}, err
	}
	fn, ok := callee.AsFunction()
	if !ok {
		return Value{}, errorf(ErrType, node.Children[0].Span, "cannot call %s", callee.Type)
	}

	argNodes := node.Children[1:]
	if arity := fn.arity(); arity >= 0 && arity != len(argNodes) {
		return Value{}, errorf(ErrArityMismatch, node.Span, "%s expects %d argument%s, got %d",
			describeFunction(fn), arity, plural(arity), len(argNodes))
	}

	args := make([]Value, len(argNodes))
	for i, argNode := range argNodes {
		if args[i], err = ev.eval(argNode, scope); err != nil {
			return Value{}, err
		}
	}

	if fn.IsNative() {
		result, err := fn.Native(args)
		if err != nil {
			if se := AsScriptError(err); se.Kind != ErrInternal {
				// Natives report a kind but not a position.
				return Value{}, newError(se.Kind, node.Span, se.Msg)
			}
			return Value{}, errorf(ErrInternal, node.Span, "%s: %v", describeFunction(fn), err)
		}
		return result, nil
	}

	if ev.depth >= ev.maxDepth {
		return Value{}, errorf(ErrStackOverflow, node.Span, "maximum call depth %d exceeded", ev.maxDepth)
	}
	ev.depth++
	defer func() { ev.depth-- }()

	frame := GetScope(fn.Closure)
	defer PutScope(frame)
	for i, param := range fn.Params {
		frame.Define(param, args[i])
	}

	sig, err := ev.execBlock(fn.Body.Children, frame)
	if err != nil {
		return Value{}, err
	}
	if sig.flow == flowReturn {
		return sig.value, nil
	}
	return NewNil(), nil
}

func describeFunction(fn *Function) string {
	if fn.Name == "" {
		return "function"
	}
	return fmt.Sprintf("function '%s'", fn.Name)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
