package entrypoint

import "errors"

var (
	ErrBootstrap       = errors.New("session bootstrap failed")
	ErrCommandNotFound = errors.New("command not found")
	ErrHandoff         = errors.New("session handoff failed")
)
