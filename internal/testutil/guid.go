package testutil

import (
	"fmt"
	"sync"
)

// SequentialGUIDs generates predictable, valid UUID strings in sequence:
// 00000000-0000-0000-0000-000000000001, ...0002, and so on.
//
// This enables golden comparison of anything that embeds a GUID.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialGUIDs struct {
	mu  sync.Mutex
	seq int64
}

// NewSequentialGUIDs creates a generator whose first GUID ends in 1.
func NewSequentialGUIDs() *SequentialGUIDs {
	return &SequentialGUIDs{}
}

// NewGUID returns the next GUID.
//
// Implements instance.GUIDGenerator interface.
func (g *SequentialGUIDs) NewGUID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return GUID(g.seq)
}

// GUID formats n the way SequentialGUIDs does.
func GUID(n int64) string {
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", n)
}
