//go:build windows

package cpu

import (
	"runtime"
	"syscall"
)

var (
	kernel32              = syscall.NewLazyDLL("kernel32.dll")
	setThreadAffinityMask = kernel32.NewProc("SetThreadAffinityMask")
	getCurrentThread      = kernel32.NewProc("GetCurrentThread")
)

// Pin locks the calling goroutine to its OS thread and pins that thread to
// core workerID % NumCPU. The returned function unlocks the thread.
func Pin(workerID int) (release func()) {
	runtime.LockOSThread()

	handle, _, _ := getCurrentThread.Call()
	// Bit N = CPU N
	_, _, _ = setThreadAffinityMask.Call(handle, uintptr(1)<<uint(Core(workerID)))

	return runtime.UnlockOSThread
}
