package ingest

import "errors"

// Sentinel kinds for ingestion errors. Malformed punch sequences are
// never errors; only rows that cannot be parsed at all are rejected.
var (
	ErrBadKind      = errors.New("unknown punch tipo")
	ErrBadTimestamp = errors.New("unparseable timestamp")
	ErrMissingField = errors.New("missing required field")
)
