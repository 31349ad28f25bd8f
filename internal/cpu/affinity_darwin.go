//go:build darwin

package cpu

import "runtime"

// Pin locks the goroutine to an OS thread. Core pinning is not available on macOS.
func Pin(int) (release func()) {
	runtime.LockOSThread()
	return runtime.UnlockOSThread
}
