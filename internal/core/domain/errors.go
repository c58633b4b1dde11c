package domain

import "errors"

var (
	// ErrInvalidArgument is returned when a command value is outside the
	// allowed set. No vendor call is made in that case.
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotImplemented  = errors.New("not implemented")
	// ErrNotReady marks a setup failure that should be retried later.
	ErrNotReady      = errors.New("not ready")
	ErrUnknownEntity = errors.New("unknown entity")
)
