package inject

import (
	"fmt"
	"math/rand/v2"
)

// Strategy names accepted by Parse.
const (
	NameNone       = "none"
	NameUniform    = "random"
	NameWhiteNoise = "wnoise"
	NameScratch    = "scratch"
)

// BitAddress identifies one bit of a byte stream. Bit 0 is the least
// significant bit of the byte.
type BitAddress struct {
	Byte int
	Bit  uint8
}

// Window is a half-open byte range [Start, End).
type Window struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Strategy is one bit-corruption model. The set of implementations is
// closed: None, Uniform, WhiteNoise and Scratch.
type Strategy interface {
	Name() string
	// apply flips bits of data in place and reports what it did.
	apply(data []byte, rng *rand.Rand) Report
}

// Params carries the strategy-specific knobs as they come from configuration.
type Params struct {
	FlipCount     int
	FlipProb      float64
	ScratchLength int
	Width         int
	Intensity     float64
}

// Parse selects the strategy called name and validates its parameters.
func Parse(name string, p Params) (Strategy, error) {
	switch name {
	case "", NameNone:
		return None{}, nil
	case NameUniform:
		if p.FlipCount < 0 {
			return nil, fmt.Errorf("%w: flip count %d < 0", ErrBadParam, p.FlipCount)
		}
		return Uniform{Count: p.FlipCount}, nil
	case NameWhiteNoise:
		if p.FlipProb < 0 || p.FlipProb > 1 {
			return nil, fmt.Errorf("%w: flip probability %v not in [0,1]", ErrBadParam, p.FlipProb)
		}
		return WhiteNoise{Probability: p.FlipProb}, nil
	case NameScratch:
		if p.ScratchLength < 1 {
			return nil, fmt.Errorf("%w: scratch length %d < 1", ErrBadParam, p.ScratchLength)
		}
		if p.Width < 1 {
			return nil, fmt.Errorf("%w: scratch width %d < 1", ErrBadParam, p.Width)
		}
		if p.Intensity < 0 || p.Intensity > 1 {
			return nil, fmt.Errorf("%w: intensity %v not in [0,1]", ErrBadParam, p.Intensity)
		}
		return Scratch{Length: p.ScratchLength, Width: p.Width, Intensity: p.Intensity}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// None leaves the medium untouched.
type None struct{}

func (None) Name() string { return NameNone }

func (None) apply([]byte, *rand.Rand) Report { return Report{Strategy: NameNone} }

// Uniform flips Count distinct bits drawn uniformly over the whole file,
// modelling scattered single-event upsets. When Count reaches the file's
// bit count every bit is flipped exactly once.
type Uniform struct {
	Count int
}

func (Uniform) Name() string { return NameUniform }

func (u Uniform) apply(data []byte, rng *rand.Rand) Report {
	n := len(data) * 8
	rep := Report{Strategy: NameUniform}
	if n == 0 || u.Count <= 0 {
		return rep
	}
	if u.Count >= n {
		for i := range data {
			data[i] ^= 0xFF
		}
		rep.FlippedBits = n
		return rep
	}

	// Rejection sampling degrades as Count approaches n; switch to a
	// permutation prefix past the halfway mark.
	if u.Count > n/2 {
		for _, pos := range rng.Perm(n)[:u.Count] {
			flip(data, address(pos))
		}
	} else {
		seen := make(map[int]struct{}, u.Count)
		for len(seen) < u.Count {
			pos := rng.IntN(n)
			if _, dup := seen[pos]; dup {
				continue
			}
			seen[pos] = struct{}{}
			flip(data, address(pos))
		}
	}
	rep.FlippedBits = u.Count
	return rep
}

// WhiteNoise flips every bit independently with the given probability,
// a noise floor over the whole medium.
type WhiteNoise struct {
	Probability float64
}

func (WhiteNoise) Name() string { return NameWhiteNoise }

func (w WhiteNoise) apply(data []byte, rng *rand.Rand) Report {
	rep := Report{Strategy: NameWhiteNoise}
	if w.Probability <= 0 {
		return rep
	}
	for i := range data {
		for bit := uint8(0); bit < 8; bit++ {
			if rng.Float64() < w.Probability {
				flip(data, BitAddress{Byte: i, Bit: bit})
				rep.FlippedBits++
			}
		}
	}
	return rep
}

// Scratch models a localized physical defect: a window of Length bytes at a
// random offset, split into runs of Width bytes. Each run is inverted as a
// whole with probability Intensity. The last run is shorter when Length is
// not a multiple of Width.
type Scratch struct {
	Length    int
	Width     int
	Intensity float64
}

func (Scratch) Name() string { return NameScratch }

func (s Scratch) apply(data []byte, rng *rand.Rand) Report {
	rep := Report{Strategy: NameScratch}
	if len(data) == 0 || s.Length <= 0 {
		return rep
	}

	length := s.Length
	start := 0
	if length >= len(data) {
		length = len(data)
	} else {
		start = rng.IntN(len(data) - length + 1)
	}
	end := start + length
	rep.Window = &Window{Start: start, End: end}

	width := max(s.Width, 1)
	for run := start; run < end; run += width {
		if rng.Float64() >= s.Intensity {
			continue
		}
		stop := min(run+width, end)
		for i := run; i < stop; i++ {
			data[i] ^= 0xFF
		}
		rep.FlippedBits += (stop - run) * 8
	}
	return rep
}

func address(pos int) BitAddress {
	return BitAddress{Byte: pos / 8, Bit: uint8(pos % 8)}
}

func flip(data []byte, a BitAddress) {
	data[a.Byte] ^= 1 << a.Bit
}
