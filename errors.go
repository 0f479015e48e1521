package libemit

import "github.com/pkg/errors"

var (
	// ErrNilListener is the panic value raised when a nil function is
	// registered. Registration performs no mutation before the check.
	ErrNilListener = errors.New("listener must be a function")

	ErrConnClosed      = errors.New("connection has been closed")
	ErrCannotConnect   = errors.New("connection cannot be established")
	ErrForwarderClosed = errors.New("forwarder has been closed")
	ErrTerminated      = errors.New("program exit")
	ErrRateLimit       = errors.New("rate limit exceeded")
)
