package apperr

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidQuery   = errors.New("invalid query")
	ErrInvalidOptions = errors.New("invalid options")
)
