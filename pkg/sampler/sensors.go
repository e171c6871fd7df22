package sampler

import (
	"context"
	"time"
)

// Sensors is the set of host probes bracketing a tool invocation. Every
// probe is independently fallible; the sampler turns failures into sentinel
// values.
type Sensors interface {
	// CPUTicks returns the cumulative OS-wide scheduler tick counter.
	CPUTicks() (uint64, error)
	// SelfCPU returns user+system time consumed by this process.
	SelfCPU() (time.Duration, error)
	// ChildrenCPU returns user+system time consumed by reaped children.
	ChildrenCPU() (time.Duration, error)
	// Temperature returns the CPU temperature in degrees Celsius.
	Temperature() (float64, error)
	// Frequency returns the CPU clock frequency in GHz.
	Frequency() (float64, error)
	// Voltage returns the CPU core voltage in volts.
	Voltage(ctx context.Context) (float64, error)
}
