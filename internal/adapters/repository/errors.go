package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound  = errors.New("punch not found")
	ErrDuplicate = errors.New("punch id already exists")
)
