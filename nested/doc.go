// Package nested runs two-level fan-out (outer tasks that each spawn and
// await inner tasks) on bounded pools without deadlocking.
//
// The hazard: an outer task that waits for inner work occupies a worker while
// it waits. If every worker of a pool is held by such a waiting task and the
// inner work is queued on the same pool, nothing can make progress. A
// semaphore acquired inside the outer task does not help; the blocked
// acquirers hold workers too.
//
// A Runner prevents this by construction:
//
//   - The admission permit is acquired by the submitting goroutine before an
//     outer task is queued, so waiting on the gate never holds a worker.
//   - With separate outer and inner pools, inner work always has workers of
//     its own.
//   - With a shared pool, Layout.Validate requires
//     OuterPermits < OuterWorkers - MaxNestedPerOuter, and inner tasks are
//     submitted in waves of at most MaxNestedPerOuter. Some workers are
//     therefore always free for inner work.
//
// Unsafe layouts are rejected with ErrDeadlockRisk before any work runs.
package nested
