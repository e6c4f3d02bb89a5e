package prewarm

import "errors"

var (
	ErrNoManifest = errors.New("scaffold has no build manifest")
	ErrBuild      = errors.New("pre-warm build failed")
	ErrLock       = errors.New("cannot lock build cache")
	ErrStrip      = errors.New("cannot strip scaffold sources")
)
