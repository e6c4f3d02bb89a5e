package scaffold

import "errors"

var (
	ErrInvalidProject = errors.New("invalid scaffold project")
	ErrGenerate       = errors.New("scaffold generation failed")
	ErrManifest       = errors.New("invalid build manifest")
)
