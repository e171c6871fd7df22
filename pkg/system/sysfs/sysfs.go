//go:build linux

// Package sysfs reads the thermal and cpufreq readouts exposed under /sys.
package sysfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultRoot is where sysfs is normally mounted.
const DefaultRoot = "/sys"

const (
	thermalZone = "class/thermal/thermal_zone%d/temp"
	scalingFreq = "devices/system/cpu/cpu%d/cpufreq/scaling_cur_freq"
)

// ReadTemperature returns the temperature of the given thermal zone in
// degrees Celsius. The kernel reports millidegrees.
func ReadTemperature(root string, zone int) (float64, error) {
	v, err := readInt(filepath.Join(root, fmt.Sprintf(thermalZone, zone)))
	if err != nil {
		return 0, err
	}
	return float64(v) / 1000.0, nil
}

// ReadFrequency returns the current scaling frequency of the given CPU in
// GHz. The kernel reports kHz.
func ReadFrequency(root string, cpu int) (float64, error) {
	v, err := readInt(filepath.Join(root, fmt.Sprintf(scalingFreq, cpu)))
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: negative frequency %d", ErrMalformed, v)
	}
	return float64(v) / 1e6, nil
}

func readInt(path string) (int64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return 0, fmt.Errorf("%w: %s", ErrEmpty, path)
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %q", ErrMalformed, path, s)
	}
	return v, nil
}
