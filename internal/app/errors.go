package service

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrRangeTooWide = errors.New("date range exceeds the configured limit")
	ErrBadDate      = errors.New("invalid date; must be YYYY-MM-DD")
	ErrMissingUser  = errors.New("missing user")
)
