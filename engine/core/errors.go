package core

import (
	"errors"
)

var (
	ErrCapacityExceeded = errors.New("requested capacity exceeds device limit")
	ErrDeviceAllocation = errors.New("device allocation failed")
	ErrNotInitialized   = errors.New("not initialized")
	ErrPrecondition     = errors.New("precondition violated")
	ErrUnknownAttribute = errors.New("unknown attribute")
	ErrInvalidConfig    = errors.New("invalid configuration")
)
