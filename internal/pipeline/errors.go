package pipeline

import "errors"

var (
	ErrStep  = errors.New("assembly step failed")
	ErrOrder = errors.New("assembly step out of order")
)
