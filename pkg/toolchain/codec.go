package toolchain

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ja7ad/fecbench/pkg/types"
)

// MinParityBits and MaxParityBits bound the codes the codec tools implement.
const (
	MinParityBits = 2
	MaxParityBits = 9
)

// Tools wraps the generator, encoder and decoder executables.
//
//	generator --fs <size> --out <path>
//	encoder   --pb <parity> --target <in> --out <out>
//	decoder   --pb <parity> --target <in> --out <out>
type Tools struct {
	Generator string
	Encoder   string
	Decoder   string
	Runner    *Runner
}

func (t *Tools) runner() *Runner {
	if t.Runner == nil {
		return &Runner{}
	}
	return t.Runner
}

// Generate materializes a file of size bytes at out.
func (t *Tools) Generate(ctx context.Context, size types.Bytes, out string) error {
	return t.runner().Run(ctx, t.Generator, "--fs", size.String(), "--out", out)
}

// Encode runs the encoder on in, writing the coded stream to out.
func (t *Tools) Encode(ctx context.Context, parityBits int, in, out string) error {
	return t.runner().Run(ctx, t.Encoder, "--pb", strconv.Itoa(parityBits), "--target", in, "--out", out)
}

// Decode runs the decoder on in, writing the recovered payload to out.
func (t *Tools) Decode(ctx context.Context, parityBits int, in, out string) error {
	return t.runner().Run(ctx, t.Decoder, "--pb", strconv.Itoa(parityBits), "--target", in, "--out", out)
}

// Binaries lists the three executable paths.
func (t *Tools) Binaries() []string {
	return []string{t.Encoder, t.Decoder, t.Generator}
}

// CodeShape returns the (n, k) of the Hamming code with the given number of
// parity bits: n = 2^p - 1 total bits carrying k = n - p data bits.
func CodeShape(parityBits int) (n, k int, err error) {
	if parityBits < MinParityBits || parityBits > MaxParityBits {
		return 0, 0, fmt.Errorf("%w: %d not in [%d,%d]", ErrParityRange, parityBits, MinParityBits, MaxParityBits)
	}
	n = 1<<parityBits - 1
	return n, n - parityBits, nil
}

// ParityTable returns one "parity_bits=p => Hamming n,k" line per supported code.
func ParityTable() []string {
	lines := make([]string, 0, MaxParityBits-MinParityBits+1)
	for p := MinParityBits; p <= MaxParityBits; p++ {
		n, k, _ := CodeShape(p)
		lines = append(lines, fmt.Sprintf("parity_bits=%d => Hamming %d,%d", p, n, k))
	}
	return lines
}
