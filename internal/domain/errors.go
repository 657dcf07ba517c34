package domain

import "errors"

var (
	// ErrNotFound is returned by repositories when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRecord marks input that cannot be turned into a borrowing.
	ErrInvalidRecord = errors.New("invalid record")
)
