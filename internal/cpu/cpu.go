// Package cpu pins pool workers to CPU cores.
package cpu

import "runtime"

// Core maps a worker ID onto the range [0, NumCPU).
func Core(workerID int) int {
	n := runtime.NumCPU()
	core := workerID % n
	if core < 0 {
		core += n
	}
	return core
}
