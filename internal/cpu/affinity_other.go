//go:build !linux && !darwin && !windows

package cpu

import "runtime"

// Pin locks the goroutine to an OS thread; core pinning is unsupported here.
func Pin(int) (release func()) {
	runtime.LockOSThread()
	return runtime.UnlockOSThread
}
