package domain

import "errors"

// ErrInvalidInput marks validation failures of user supplied fields.
var ErrInvalidInput = errors.New("invalid input")
