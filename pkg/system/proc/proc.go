//go:build linux

package proc

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultRoot is where procfs is normally mounted.
const DefaultRoot = "/proc"

// ClockTicks returns the number of jiffies (clock ticks) per second.
// It first checks the env var CLK_TCK (useful for testing), otherwise
// falls back to 100 (common default).
//
// Note: On real systems, the authoritative way is `sysconf(_SC_CLK_TCK)`,
// but calling that requires cgo. For portability in a pure-Go library,
// this simplified approach is acceptable.
func ClockTicks() int {
	v, _ := strconv.Atoi(os.Getenv("CLK_TCK"))
	if v > 0 {
		return v
	}
	return 100
}

// ReadCPUTicks parses <root>/stat and returns the sum of every time-category
// counter on the aggregate "cpu" line (user, nice, system, idle, iowait, irq,
// softirq, steal, guest, guest_nice; whatever the kernel exposes).
//
// The counter is monotonic and OS-wide. Take the delta of two samples to get
// the ticks elapsed across all CPUs in between.
func ReadCPUTicks(root string) (uint64, error) {
	f, err := os.Open(filepath.Join(root, "stat"))
	if err != nil {
		return 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fs := strings.Fields(sc.Text())
		if len(fs) == 0 || fs[0] != "cpu" {
			continue
		}
		if len(fs) < 2 {
			return 0, ErrShortStat
		}
		var total uint64
		for _, s := range fs[1:] {
			v, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				return 0, ErrShortStat
			}
			total += v
		}
		return total, nil
	}
	if err := sc.Err(); err != nil {
		return 0, err
	}
	return 0, ErrNoCPU
}

// SelfCPU returns user+system CPU time consumed so far by the calling process.
func SelfCPU() (time.Duration, error) {
	return rusage(unix.RUSAGE_SELF)
}

// ChildrenCPU returns user+system CPU time consumed by terminated, waited-for
// children of the calling process.
func ChildrenCPU() (time.Duration, error) {
	return rusage(unix.RUSAGE_CHILDREN)
}

func rusage(who int) (time.Duration, error) {
	var ru unix.Rusage
	if err := unix.Getrusage(who, &ru); err != nil {
		return 0, err
	}
	return tvDuration(ru.Utime) + tvDuration(ru.Stime), nil
}

func tvDuration(tv unix.Timeval) time.Duration {
	return time.Duration(tv.Nano())
}
