package state

import "errors"

// Sentinel kinds for state errors.
var (
	ErrInvalidTransition = errors.New("punch kind not allowed in current status")
	ErrUnknownKind       = errors.New("unknown punch kind")
)
