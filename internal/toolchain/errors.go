package toolchain

import "errors"

var (
	ErrMissingArtifact = errors.New("missing toolchain artifact")
	ErrInstall         = errors.New("toolchain install failed")
	ErrCorruptInstall  = errors.New("toolchain install does not match its receipt")
)
