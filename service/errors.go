package service

import "errors"

// The expected failure modes of disclosure operations. Handlers map
// these to status codes; anything else is an internal error reported
// generically.
var (
	ErrUnauthorized = errors.New("access denied")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("invalid input")
	ErrUpstream     = errors.New("upstream storage failure")
)
