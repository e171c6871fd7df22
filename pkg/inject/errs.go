package inject

import "errors"

var (
	// ErrUnknownStrategy indicates a strategy name outside none|random|wnoise|scratch.
	ErrUnknownStrategy = errors.New("inject: unknown strategy")

	// ErrBadParam indicates a strategy parameter outside its valid range.
	ErrBadParam = errors.New("inject: invalid parameter")
)
