package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound          = errors.New("record not found")
	ErrConflict          = errors.New("record state conflict")
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)
