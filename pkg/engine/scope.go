package engine

import "sort"

// Scope is one frame of the variable environment. Frames chain to their
// parent; the root frame has none.
//
// THREAD-SAFETY: none. A Scope belongs to a single Context, and a Context
// must not be used from two goroutines at once.
type Scope struct {
	vars   map[string]Value
	parent *Scope

	// captured is set once a closure holds this frame (or a descendant),
	// after which it must not go back to the pool.
	captured bool

	// While recording, every write saves the binding it replaces so the
	// statement that made it can be undone.
	recording bool
	journal   []binding
}

type binding struct {
	key     string
	prev    Value
	existed bool
}

func NewScope(parent *Scope) *Scope {
	return &Scope{
		vars:   make(map[string]Value),
		parent: parent,
	}
}

// Define binds name in this frame, shadowing any outer binding.
func (s *Scope) Define(key string, val Value) {
	s.write(key, val)
}

// Get searches this frame and then its ancestors.
func (s *Scope) Get(key string) (Value, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if val, ok := cur.vars[key]; ok {
			return val, true
		}
	}
	return Value{}, false
}

// Assign rebinds the nearest frame that already holds name. Without one,
// the name is declared in this frame.
func (s *Scope) Assign(key string, val Value) {
	for cur := s; cur != nil; cur = cur.parent {
		if _, ok := cur.vars[key]; ok {
			cur.write(key, val)
			return
		}
	}
	s.write(key, val)
}

func (s *Scope) write(key string, val Value) {
	if s.recording {
		prev, existed := s.vars[key]
		s.journal = append(s.journal, binding{key: key, prev: prev, existed: existed})
	}
	s.vars[key] = val
}

// begin starts recording writes to this frame.
func (s *Scope) begin() {
	s.recording = true
	s.journal = s.journal[:0]
}

// commit keeps every write since begin and stops recording.
func (s *Scope) commit() {
	s.recording = false
	s.journal = s.journal[:0]
}

// rollback restores the bindings replaced since begin, newest first.
func (s *Scope) rollback() {
	for i := len(s.journal) - 1; i >= 0; i-- {
		b := s.journal[i]
		if b.existed {
			s.vars[b.key] = b.prev
		} else {
			delete(s.vars, b.key)
		}
	}
	s.commit()
}

// Lookup reads this frame only, ignoring ancestors.
func (s *Scope) Lookup(key string) (Value, bool) {
	val, ok := s.vars[key]
	return val, ok
}

// Names returns the names bound in this frame, sorted.
func (s *Scope) Names() []string {
	names := make([]string, 0, len(s.vars))
	for k := range s.vars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Reset clears all variables from the frame.
func (s *Scope) Reset() {
	for k := range s.vars {
		delete(s.vars, k)
	}
	s.parent = nil
	s.captured = false
	s.commit()
}

// capture marks this frame and its ancestors as referenced by a closure.
func (s *Scope) capture() {
	for cur := s; cur != nil && !cur.captured; cur = cur.parent {
		cur.captured = true
	}
}
