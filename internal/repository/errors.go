package repository

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict - record was modified by another request")
	ErrDuplicate       = errors.New("duplicate record")
)
