package delivery

import "errors"

// TransientError marks a delivery failure the retry queue should retry:
// provider or network trouble that may clear up. Anything else (for example
// zero valid recipients) is terminal and dropped without retry.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable. Returns nil for a nil err.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is a retryable delivery failure
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}
