package sysfs

import "errors"

var (
	// ErrEmpty indicates a sensor file with no content.
	ErrEmpty = errors.New("sysfs: empty readout")

	// ErrMalformed indicates a sensor file whose content is not an integer.
	ErrMalformed = errors.New("sysfs: malformed readout")
)
