package proc

import "errors"

var (
	// ErrNoCPU indicates that /proc/stat had no aggregate CPU line.
	ErrNoCPU = errors.New("proc: no cpu line")

	// ErrShortStat indicates that the aggregate CPU line had no parsable counters.
	ErrShortStat = errors.New("proc: short stat")
)
