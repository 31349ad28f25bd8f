//go:build linux

package cpu

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// Pin locks the calling goroutine to its OS thread and pins that thread to
// core workerID % NumCPU. The returned function unlocks the thread.
// A failed affinity call leaves the thread locked but unpinned.
func Pin(workerID int) (release func()) {
	runtime.LockOSThread()
	_ = setAffinity(Core(workerID))

	return runtime.UnlockOSThread
}

func setAffinity(core int) error {
	var mask unix.CPUSet
	mask.Zero()
	mask.Set(core)

	return unix.SchedSetaffinity(0, &mask) // 0 = current thread
}
