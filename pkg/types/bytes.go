package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Bytes is a uint64 wrapper representing a size in bytes.
//
// It implements pflag.Value and encoding.TextUnmarshaler so payload sizes can
// be given as "512", "4K", "4KiB" or "1M" on the command line and in YAML.
type Bytes uint64

// ErrBadSize is returned by ParseBytes for malformed input.
var ErrBadSize = errors.New("types: malformed size")

// Humanized returns a human-readable string with automatic unit (B, KB, MB, GB, TB).
func (b Bytes) Humanized() string {
	v := float64(b)
	switch {
	case b >= 1<<40:
		return fmt.Sprintf("%.2f TB", v/(1<<40))
	case b >= 1<<30:
		return fmt.Sprintf("%.2f GB", v/(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.2f MB", v/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.2f KB", v/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// Bits returns the size in bits.
func (b Bytes) Bits() uint64 { return uint64(b) * 8 }

// String prints the plain byte count, which is what the generator tool expects.
func (b Bytes) String() string { return strconv.FormatUint(uint64(b), 10) }

// Set implements pflag.Value.
func (b *Bytes) Set(s string) error {
	v, err := ParseBytes(s)
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// Type implements pflag.Value.
func (b *Bytes) Type() string { return "size" }

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Bytes) UnmarshalText(text []byte) error { return b.Set(string(text)) }

// MarshalText implements encoding.TextMarshaler.
func (b Bytes) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

// ParseBytes parses a byte count with an optional 1024-based unit suffix.
// Accepted suffixes (case-insensitive): B, K, KB, KiB, M, MB, MiB, G, GB, GiB.
func ParseBytes(s string) (Bytes, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrBadSize
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadSize, s)
	}
	n, err := strconv.ParseUint(s[:i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrBadSize, s, err)
	}

	var mul uint64
	switch strings.ToLower(strings.TrimSpace(s[i:])) {
	case "", "b":
		mul = 1
	case "k", "kb", "kib":
		mul = 1 << 10
	case "m", "mb", "mib":
		mul = 1 << 20
	case "g", "gb", "gib":
		mul = 1 << 30
	default:
		return 0, fmt.Errorf("%w: unknown unit in %q", ErrBadSize, s)
	}
	if n > ^uint64(0)/mul {
		return 0, fmt.Errorf("%w: %q overflows", ErrBadSize, s)
	}
	return Bytes(n * mul), nil
}
