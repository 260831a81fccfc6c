package engine

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"time"
)

// State is where a Context is in its lifecycle.
type State int

const (
	StateFresh State = iota
	StateReady
	StateErred
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateReady:
		return "ready"
	case StateErred:
		return "erred"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Operation names a public Context operation that can fail.
type Operation string

const (
	OpRun Operation = "run"
	OpGet Operation = "get"
	OpSet Operation = "set"
)

// Observer is notified after every run, get and set. err is nil on
// success.
type Observer interface {
	OperationFinished(op Operation, elapsed time.Duration, err *ScriptError)
}

// Option configures a Context in NewContext.
type Option func(*Context)

// WithLogger sets the logger for operation and panic records. Defaults to
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Context) { c.log = l }
}

// WithOutput sets where print writes. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(c *Context) { c.out = w }
}

// WithMaxDepth bounds nested script calls. Values below 1 are ignored.
func WithMaxDepth(n int) Option {
	return func(c *Context) {
		if n > 0 {
			c.maxDepth = n
		}
	}
}

// WithObserver reports every run, get and set to o.
func WithObserver(o Observer) Option {
	return func(c *Context) { c.observer = o }
}

// Context is an isolated script runtime: a persistent root frame, the
// natives visible to scripts and a single slot holding the last error.
//
// THREAD-SAFETY: none. Callers must serialize operations on one Context;
// distinct Contexts share no mutable state.
type Context struct {
	root     *Scope
	natives  map[string]Value
	lastErr  *ScriptError
	state    State
	log      *slog.Logger
	out      io.Writer
	maxDepth int
	observer Observer
}

// NewContext creates an empty, ready context. It never fails.
func NewContext(opts ...Option) *Context {
	c := &Context{
		root:     NewScope(nil),
		state:    StateFresh,
		log:      slog.Default(),
		out:      os.Stdout,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.natives = builtins(c.out)
	return c
}

// Destroy releases the root frame and the retained error. Every later
// operation returns false.
func (c *Context) Destroy() {
	if c.state == StateDestroyed {
		return
	}
	c.root.Reset()
	c.root = nil
	c.natives = nil
	c.lastErr = nil
	c.state = StateDestroyed
}

// State returns the context's current lifecycle state.
func (c *Context) State() State {
	return c.state
}

// Run lexes, parses and evaluates code against the root frame. Statements
// that completed before a runtime error keep their effects.
func (c *Context) Run(code string) bool {
	if c.state == StateDestroyed {
		return false
	}
	start := time.Now()
	err := c.run(code)
	c.finish(OpRun, start, err)
	return err == nil
}

func (c *Context) run(code string) (err error) {
	// A panic in a native or in the runtime itself must not take the host
	// down; it becomes an InternalError on this context.
	defer func() {
		if r := recover(); r != nil {
			stack := string(debug.Stack())
			c.log.Error("panic recovered in script run",
				"panic", r,
				"stack", stack,
			)
			err = &ScriptError{Kind: ErrInternal, Msg: fmt.Sprintf("panic: %v", r)}
		}
		if err != nil {
			c.root.rollback()
		}
	}()

	root, err := ParseString(code)
	if err != nil {
		return err
	}

	// Each top-level statement either completes or leaves the root frame
	// as it found it, including assignments nested inside its expressions.
	ev := &evaluator{natives: c.natives, maxDepth: c.maxDepth}
	for _, stmt := range root.Children {
		c.root.begin()
		sig, execErr := ev.exec(stmt, c.root)
		if execErr != nil {
			return execErr
		}
		c.root.commit()
		if sig.flow == flowReturn {
			break
		}
	}
	return nil
}

// Get writes the root-frame value of name into out. On failure out is
// left untouched and the context records an UndefinedName error.
func (c *Context) Get(name string, out *HostValue) bool {
	if c.state == StateDestroyed {
		return false
	}
	start := time.Now()
	val, err := c.lookup(name)
	if err == nil && out != nil {
		*out = ToHost(val)
	}
	c.finish(OpGet, start, err)
	return err == nil
}

// Set binds name in the root frame, replacing any previous value.
func (c *Context) Set(name string, in HostValue) bool {
	return c.set(name, func() (Value, error) { return FromHost(in) })
}

// GetRaw returns the root-frame value of name in the wire format.
func (c *Context) GetRaw(name string) ([]byte, bool) {
	if c.state == StateDestroyed {
		return nil, false
	}
	start := time.Now()
	val, err := c.lookup(name)
	c.finish(OpGet, start, err)
	if err != nil {
		return nil, false
	}
	return MarshalValue(val), true
}

// SetRaw decodes data from the wire format and binds it under name.
func (c *Context) SetRaw(name string, data []byte) bool {
	return c.set(name, func() (Value, error) { return UnmarshalValue(data) })
}

// GetNative returns the root-frame value of name as a plain Go value.
func (c *Context) GetNative(name string) (interface{}, bool) {
	if c.state == StateDestroyed {
		return nil, false
	}
	start := time.Now()
	val, err := c.lookup(name)
	c.finish(OpGet, start, err)
	if err != nil {
		return nil, false
	}
	return val.ToNative(), true
}

// SetNative converts a Go value (see FromNative) and binds it under name.
func (c *Context) SetNative(name string, in interface{}) bool {
	return c.set(name, func() (Value, error) { return FromNative(in) })
}

// Register exposes a host function to scripts under name. Natives are
// consulted after every script frame, so a script binding of the same
// name shadows them. Use arity -1 for variadic functions.
func (c *Context) Register(name string, arity int, fn NativeFunc) {
	if c.state == StateDestroyed {
		return
	}
	c.natives[name] = NewNative(name, arity, fn)
}

// Vars lists the names bound in the root frame.
func (c *Context) Vars() []string {
	if c.state == StateDestroyed {
		return nil
	}
	return c.root.Names()
}

// AnyErrors reports whether the last operation failed.
func (c *Context) AnyErrors() bool {
	return c.state == StateErred
}

// Error copies the retained error into out. It returns false and leaves
// out untouched when there is none.
func (c *Context) Error(out *ScriptError) bool {
	if c.state != StateErred || c.lastErr == nil {
		return false
	}
	if out != nil {
		*out = *c.lastErr
	}
	return true
}

// LastError returns a copy of the retained error, or nil.
func (c *Context) LastError() *ScriptError {
	if c.state != StateErred || c.lastErr == nil {
		return nil
	}
	e := *c.lastErr
	return &e
}

func (c *Context) lookup(name string) (Value, error) {
	val, ok := c.root.Lookup(name)
	if !ok {
		return Value{}, errorf(ErrUndefinedName, Span{}, "undefined name '%s'", name)
	}
	return val, nil
}

func (c *Context) set(name string, convert func() (Value, error)) bool {
	if c.state == StateDestroyed {
		return false
	}
	start := time.Now()
	val, err := convert()
	if err == nil {
		c.root.Define(name, val)
	}
	c.finish(OpSet, start, err)
	return err == nil
}

// finish updates the error slot and state, then reports the operation.
func (c *Context) finish(op Operation, start time.Time, err error) {
	elapsed := time.Since(start)
	if err != nil {
		c.lastErr = AsScriptError(err)
		c.state = StateErred
		c.log.Debug("script operation failed",
			"op", op,
			"kind", c.lastErr.Kind,
			"row", c.lastErr.Row,
			"col", c.lastErr.Col,
			"error", c.lastErr.Msg,
			"elapsed", elapsed,
		)
	} else {
		c.lastErr = nil
		c.state = StateReady
		c.log.Debug("script operation finished", "op", op, "elapsed", elapsed)
	}

	if c.observer != nil {
		c.observer.OperationFinished(op, elapsed, c.LastError())
	}
}
