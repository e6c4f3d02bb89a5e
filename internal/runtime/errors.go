package runtime

import "errors"

var (
	ErrRuntime        = errors.New("container runtime error")
	ErrEmptyArchive   = errors.New("archive contains no image")
	ErrMultipleImages = errors.New("archive contains more than one image")
	ErrEmptyIndex     = errors.New("image index has no manifests")
	ErrCommand        = errors.New("command failed in build container")
)
