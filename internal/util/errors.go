package util

import "errors"

// Sentinel errors for common failure modes
var (
	// ErrMalformed indicates a document node has the wrong JSON shape
	// (e.g. a list where an object is expected)
	ErrMalformed = errors.New("malformed document")

	// ErrUniqueViolation indicates an insert hit a unique constraint
	ErrUniqueViolation = errors.New("unique constraint violation")

	// ErrUnknownTable indicates a table name that is not in the schema registry
	ErrUnknownTable = errors.New("unknown table")

	// ErrUnsupported indicates a backend kind or operation is not supported
	ErrUnsupported = errors.New("unsupported")

	// ErrNotFound indicates a required resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")
)
