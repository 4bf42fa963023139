//go:build !linux

package threaded

// OSThreadIdentity falls back to the goroutine id where kernel thread ids
// are not exposed.
func OSThreadIdentity() ThreadID {
	return GoroutineIdentity()
}
