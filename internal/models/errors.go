package models

import "errors"

// Custom errors
var (
	ErrInvalidPrice = errors.New("invalid price")
	ErrEmptyEvent   = errors.New("event name is required")
)
