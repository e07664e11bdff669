package filter

import "errors"

// Error kinds. Every error returned by Open wraps exactly one of them.
var (
	// ErrConfiguration is a caller mistake: missing source locale, unknown
	// profile, unsupported declared encoding.
	ErrConfiguration = errors.New("configuration error")
	// ErrParse wraps a malformed-document error from the parser.
	ErrParse = errors.New("parsing error")
	// ErrIO wraps a failure reading the input stream.
	ErrIO = errors.New("I/O error")
	// ErrNotOpen is returned by Next before a successful Open.
	ErrNotOpen = errors.New("filter is not open")
)
