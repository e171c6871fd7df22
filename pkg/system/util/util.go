package util

import "strconv"

// DeltaU64 returns now-prev for a monotonic counter, or 0 when the counter
// went backwards (wrap or reset).
func DeltaU64(now, prev uint64) uint64 {
	if now >= prev {
		return now - prev
	}
	// counter wrapped or prev unset
	return 0
}

func SafeDiv(n, d float64) float64 {
	const eps = 1e-12
	if d > eps || d < -eps {
		return n / d
	}
	return 0
}

// FmtFloat formats f in the shortest representation that round-trips,
// which keeps CSV columns compact.
func FmtFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
