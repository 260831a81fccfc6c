package engine

import "sync"

// Pool of frames for blocks and calls. Contexts on different goroutines
// share it, which sync.Pool allows.
var scopePool = sync.Pool{
	New: func() interface{} {
		return &Scope{
			vars: make(map[string]Value, 8),
		}
	},
}

// GetScope retrieves an empty frame chained to parent.
// Always call PutScope when the frame is left.
func GetScope(parent *Scope) *Scope {
	s := scopePool.Get().(*Scope)
	s.parent = parent
	return s
}

// PutScope returns a frame to the pool after clearing it. Frames captured
// by a closure stay alive and are left to the GC.
func PutScope(s *Scope) {
	if s == nil || s.captured {
		return
	}
	s.Reset()
	scopePool.Put(s)
}
