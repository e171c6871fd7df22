// Package bitdiff measures the bit-level Hamming distance between two byte
// streams, streaming both in fixed-size chunks.
//
// Streams of unequal length are compared as if the shorter one were extended
// with zero bytes, so trailing bytes of the longer stream contribute their
// population count to the total.
package bitdiff

import (
	"errors"
	"fmt"
	"io"
	"math/bits"
	"os"
)

// ChunkSize is the number of bytes read from each stream per step.
const ChunkSize = 8192

// Files opens both paths and returns the number of differing bits.
func Files(a, b string) (uint64, error) {
	fa, err := os.Open(a)
	if err != nil {
		return 0, fmt.Errorf("bitdiff: %w", err)
	}
	defer fa.Close()

	fb, err := os.Open(b)
	if err != nil {
		return 0, fmt.Errorf("bitdiff: %w", err)
	}
	defer fb.Close()

	return Readers(fa, fb)
}

// Readers consumes a and b in lock-step and returns the number of differing bits.
// It returns once both readers are exhausted.
func Readers(a, b io.Reader) (uint64, error) {
	bufA := make([]byte, ChunkSize)
	bufB := make([]byte, ChunkSize)

	var total uint64
	for {
		na, err := readChunk(a, bufA)
		if err != nil {
			return total, fmt.Errorf("bitdiff: read first stream: %w", err)
		}
		nb, err := readChunk(b, bufB)
		if err != nil {
			return total, fmt.Errorf("bitdiff: read second stream: %w", err)
		}
		if na == 0 && nb == 0 {
			return total, nil
		}
		total += Bytes(bufA[:na], bufB[:nb])
	}
}

// Bytes returns the bit distance of two in-memory slices under the same
// zero-extension rule as Readers.
func Bytes(a, b []byte) uint64 {
	if len(a) < len(b) {
		a, b = b, a
	}
	var total uint64
	for i := range b {
		total += uint64(bits.OnesCount8(a[i] ^ b[i]))
	}
	for _, x := range a[len(b):] {
		total += uint64(bits.OnesCount8(x))
	}
	return total
}

// readChunk fills buf as far as the reader allows. A short final chunk is not an error.
func readChunk(r io.Reader, buf []byte) (int, error) {
	n, err := io.ReadFull(r, buf)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return n, nil
	}
	return n, err
}
