package core

import (
	"errors"
)

var (
	// ErrConfig reports malformed or missing configuration, and GPU
	// allocations that could not be satisfied while applying it.
	ErrConfig = errors.New("invalid configuration")
	// ErrResolution reports a name that is not present in a registry.
	ErrResolution = errors.New("reference not resolved")
	// ErrPrecondition reports a call made in a state that does not allow it.
	ErrPrecondition = errors.New("precondition violated")
	// ErrFramebufferIncomplete is returned when the backend rejects a framebuffer.
	ErrFramebufferIncomplete = errors.New("framebuffer incomplete")
	ErrUnknown               = errors.New("unknown")
)
