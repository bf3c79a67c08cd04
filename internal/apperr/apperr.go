// Package apperr defines the error taxonomy shared by every flow.
//
// Producers wrap one of the sentinels with context; the conversation router and
// the scheduler test for them with errors.Is and turn them into a user-visible
// apology or a log line. None of them is ever allowed to stop the event loop.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamUnavailable covers any external service that is unreachable
	// or returned data we could not use.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrStoreWrite is returned when an append or overwrite in the tabular
	// store fails.
	ErrStoreWrite = errors.New("store write failed")

	// ErrNotFound is returned when an expected row is absent.
	ErrNotFound = errors.New("not found")

	// ErrTransport is returned when a message could not be delivered.
	// It is logged and never retried.
	ErrTransport = errors.New("transport error")
)

// Upstream wraps err as ErrUpstreamUnavailable for the named operation.
func Upstream(op string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", ErrUpstreamUnavailable, op)
	}
	return fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, op, err)
}

// StoreWrite wraps err as ErrStoreWrite for the named operation.
func StoreWrite(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreWrite, op, err)
}

// NotFound reports that what was looked up does not exist.
func NotFound(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}

// Transport wraps a delivery failure.
func Transport(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrTransport, op, err)
}

// Kind returns the sentinel err belongs to, or nil when it is none of them.
func Kind(err error) error {
	for _, sentinel := range []error{ErrUpstreamUnavailable, ErrStoreWrite, ErrNotFound, ErrTransport} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return nil
}
