package image

import "errors"

var (
	ErrOptions = errors.New("invalid image build options")
	ErrCopy    = errors.New("copy into build container failed")
	ErrBuild   = errors.New("image build failed")
)
