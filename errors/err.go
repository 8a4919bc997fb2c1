package errors

import (
	"fmt"
)

var (
	ErrInvalidConfig = fmt.Errorf("rose: invalid config")
	ErrNotFound      = fmt.Errorf("rose: not found")
	ErrInvalidParams = fmt.Errorf("rose: invalid params")
	ErrInternal      = fmt.Errorf("rose: internal error")

	// ErrUnavailable marks transient provider failures (timeouts, rate
	// limits, 5xx). Callers may retry or degrade.
	ErrUnavailable = fmt.Errorf("rose: service unavailable")

	// ErrInvalidInput marks permanent provider failures (bad audio format,
	// auth, malformed request). Never retried.
	ErrInvalidInput = fmt.Errorf("rose: invalid input")
)
