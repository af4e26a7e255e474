package types

import "errors"

var (
	// ErrNotFound is returned by stores when a row does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when a row is not in a state the
	// requested transition allows
	ErrInvalidState = errors.New("invalid state for transition")

	// ErrCapacity is returned when the in-flight ceiling is reached
	ErrCapacity = errors.New("concurrency ceiling reached")
)
