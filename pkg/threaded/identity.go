package threaded

import "github.com/petermattis/goid"

// ThreadID identifies a caller of the pool. Which kind of identity it holds
// depends on the IdentityFunc the pool was built with.
type ThreadID uint64

// IdentityFunc returns the identity of the calling goroutine or thread.
type IdentityFunc func() ThreadID

// GoroutineIdentity returns the id of the calling goroutine. Goroutine ids
// are never reused within a process, so every goroutine that calls Get is a
// distinct caller and keeps its slot for the pool's lifetime.
func GoroutineIdentity() ThreadID {
	return ThreadID(goid.Get())
}
