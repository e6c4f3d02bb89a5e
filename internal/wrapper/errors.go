package wrapper

import "errors"

var (
	ErrWrapperUnreachable = errors.New("compiler wrapper unreachable")
	ErrVerifier           = errors.New("verifier could not be run")
	ErrCompiler           = errors.New("compiler could not be run")
	ErrInstall            = errors.New("launcher install failed")
	ErrUsage              = errors.New("invalid launcher invocation")
)
