// Package inject corrupts files in place to emulate storage-media bit errors.
//
// Every strategy reads the whole file, flips a set of bits with
// byte ^= 1<<bit and writes the result back. File length never changes.
package inject

import (
	"fmt"
	"math/rand/v2"
	"os"
)

// Report describes the corruption applied to one file.
type Report struct {
	Strategy    string  `json:"strategy"`
	FlippedBits int     `json:"flipped_bits"`
	Window      *Window `json:"window,omitempty"` // Scratch only
}

// Injector applies strategies using its own random source.
// It is not safe for concurrent use.
type Injector struct {
	rng *rand.Rand
}

// New returns an Injector drawing from rng. A nil rng gets a randomly seeded source.
func New(rng *rand.Rand) *Injector {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Injector{rng: rng}
}

// Bytes corrupts data in place.
func (in *Injector) Bytes(data []byte, s Strategy) Report {
	return s.apply(data, in.rng)
}

// File corrupts the file at path in place, preserving its permissions.
func (in *Injector) File(path string, s Strategy) (Report, error) {
	if _, ok := s.(None); ok {
		return Report{Strategy: NameNone}, nil
	}

	fi, err := os.Stat(path)
	if err != nil {
		return Report{}, fmt.Errorf("inject: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("inject: %w", err)
	}

	rep := s.apply(data, in.rng)

	if err := os.WriteFile(path, data, fi.Mode().Perm()); err != nil {
		return rep, fmt.Errorf("inject: rewrite %s: %w", path, err)
	}
	return rep, nil
}
