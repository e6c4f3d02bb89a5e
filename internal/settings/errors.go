package settings

import "errors"

var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrPersist       = errors.New("environment file operation failed")
)
