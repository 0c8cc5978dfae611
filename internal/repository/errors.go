package repository

import "errors"

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a unique constraint rejects an insert.
	ErrAlreadyExists = errors.New("already exists")
	// ErrVersionConflict is returned when a row changed since it was read.
	ErrVersionConflict = errors.New("version conflict")
)
