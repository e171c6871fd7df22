// Package proc reads the process and scheduler counters used to bracket a
// codec invocation:
//
//   - ReadCPUTicks: sum of every time category on the aggregate "cpu" line of
//     /proc/stat. OS-wide, so the delta across a call is a coarse proxy that
//     also includes unrelated load.
//   - SelfCPU: user+system time of the harness process itself (getrusage
//     RUSAGE_SELF).
//   - ChildrenCPU: user+system time of reaped children (getrusage
//     RUSAGE_CHILDREN); the delta across a blocking exec is the child's cost.
//
// ReadCPUTicks takes the procfs mount point so tests and offline runs can
// point it at a captured tree.
//
// Errors (errs.go):
//
//	ErrNoCPU     : no aggregate "cpu" line
//	ErrShortStat : "cpu" line without parsable counters
package proc
