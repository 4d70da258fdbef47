package broker

import "errors"

var (
	// ErrBrokerUnavailable reports that no connection exists and reconnection
	// attempts are exhausted.
	ErrBrokerUnavailable = errors.New("broker unavailable")
	// ErrClosed reports use of a broker after Close.
	ErrClosed = errors.New("broker closed")
)

type transientError struct{ err error }

func (e *transientError) Error() string { return "transient: " + e.err.Error() }

func (e *transientError) Unwrap() error { return e.err }

// Transient marks a handler error as temporary so the failed delivery is
// requeued instead of dropped.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err (or anything it wraps) was marked with
// Transient.
func IsTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}
