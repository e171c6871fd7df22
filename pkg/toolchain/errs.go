package toolchain

import "errors"

var (
	// ErrMissingDescriptor indicates that a build directory, Makefile or
	// tool source required by the build step does not exist.
	ErrMissingDescriptor = errors.New("toolchain: missing build descriptor")

	// ErrToolFailed indicates that an external build or codec command did
	// not exit successfully.
	ErrToolFailed = errors.New("toolchain: tool failed")

	// ErrParityRange indicates a parity-bit count outside the supported codes.
	ErrParityRange = errors.New("toolchain: parity bits out of range")

	// ErrUnknownBuild indicates a build kind other than direct or make.
	ErrUnknownBuild = errors.New("toolchain: unknown build kind")
)
