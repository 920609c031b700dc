package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidTarget = errors.New("invalid target id")
	ErrMissingJobID  = errors.New("server did not return a job identifier")
)
