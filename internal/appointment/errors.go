package appointment

import "errors"

var (
	// ErrInvalidArgument marks malformed or missing input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidState marks a lifecycle transition the state machine forbids.
	ErrInvalidState = errors.New("invalid state")
)
