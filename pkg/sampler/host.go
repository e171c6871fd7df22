//go:build linux

package sampler

import (
	"context"
	"time"

	"github.com/ja7ad/fecbench/pkg/system/proc"
	"github.com/ja7ad/fecbench/pkg/system/sysfs"
	"github.com/ja7ad/fecbench/pkg/system/vcgencmd"
)

// Host reads real sensors from procfs, sysfs and the vendor voltage tool.
// Zero values select the usual mount points, thermal zone 0 and cpu0.
type Host struct {
	ProcRoot string
	SysRoot  string
	VoltCmd  string
	Zone     int
	CPU      int
}

var _ Sensors = (*Host)(nil)

func (h *Host) procRoot() string {
	if h.ProcRoot == "" {
		return proc.DefaultRoot
	}
	return h.ProcRoot
}

func (h *Host) sysRoot() string {
	if h.SysRoot == "" {
		return sysfs.DefaultRoot
	}
	return h.SysRoot
}

func (h *Host) CPUTicks() (uint64, error) { return proc.ReadCPUTicks(h.procRoot()) }

func (h *Host) SelfCPU() (time.Duration, error) { return proc.SelfCPU() }

func (h *Host) ChildrenCPU() (time.Duration, error) { return proc.ChildrenCPU() }

func (h *Host) Temperature() (float64, error) { return sysfs.ReadTemperature(h.sysRoot(), h.Zone) }

func (h *Host) Frequency() (float64, error) { return sysfs.ReadFrequency(h.sysRoot(), h.CPU) }

func (h *Host) Voltage(ctx context.Context) (float64, error) {
	return vcgencmd.CoreVoltage(ctx, h.VoltCmd)
}
