package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrLockNotHeld  = errors.New("lock is held by another owner")
	ErrInvalidInput = errors.New("invalid input")
)
