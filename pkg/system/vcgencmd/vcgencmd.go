// Package vcgencmd queries core voltage through the Raspberry Pi firmware
// tool. Hosts without the tool return an error and callers fall back to a
// fixed voltage.
package vcgencmd

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// DefaultCommand is the tool name looked up on PATH.
const DefaultCommand = "vcgencmd"

// ErrMalformed indicates output that is not of the form "volt=1.2000V".
var ErrMalformed = errors.New("vcgencmd: malformed output")

// CoreVoltage runs `<cmd> measure_volts core` and returns the reading in volts.
func CoreVoltage(ctx context.Context, cmd string) (float64, error) {
	if cmd == "" {
		cmd = DefaultCommand
	}
	out, err := exec.CommandContext(ctx, cmd, "measure_volts", "core").Output()
	if err != nil {
		return 0, fmt.Errorf("vcgencmd: %w", err)
	}
	return ParseVolts(string(out))
}

// ParseVolts parses the "volt=<value>V" line printed by measure_volts.
func ParseVolts(out string) (float64, error) {
	_, val, ok := strings.Cut(strings.TrimSpace(out), "=")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, out)
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(val), "V"), 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, out)
	}
	return v, nil
}
