package affinity

import "errors"

var (
	ErrStopped     = errors.New("affinity worker stopped")
	ErrResubmitted = errors.New("call envelope already submitted")
	ErrBadArgument = errors.New("invalid call argument")
	ErrPanicked    = errors.New("operation panicked")
)
