package catalog

import "errors"

// ErrNotFound is returned when an id lookup misses. It is a normal outcome,
// not a failure of the catalog itself.
var ErrNotFound = errors.New("not found")

// ErrInvalidArgument is returned for malformed query parameters, before the
// collection is touched. Wrap it with context: fmt.Errorf("%w: ...", ...).
var ErrInvalidArgument = errors.New("invalid argument")
