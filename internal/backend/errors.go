package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrStatus marks a non-2xx response.
	ErrStatus = errors.New("unexpected status")
	// ErrMalformedBody marks a response that is not valid JSON.
	ErrMalformedBody = errors.New("malformed response body")
	// ErrMissingID is returned when a kit lookup has no id.
	ErrMissingID = errors.New("missing kit id")
)

// TransportError is any failure to obtain a usable response: network errors,
// non-success statuses and unreadable bodies. It is always recoverable by retry.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
