//go:build linux

package threaded

import "golang.org/x/sys/unix"

// OSThreadIdentity returns the kernel thread id of the calling goroutine's
// current OS thread. The result is only stable for goroutines that have
// called runtime.LockOSThread; otherwise the scheduler may move the
// goroutine and two goroutines may share one thread's slot.
func OSThreadIdentity() ThreadID {
	return ThreadID(unix.Gettid())
}
