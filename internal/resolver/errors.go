// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// Sentinel errors for errors.Is checks by the coordinator.
	ErrMalformedURL       = errors.New("resolver: malformed endpoint url")
	ErrServerError        = errors.New("resolver: server returned non-2xx")
	ErrInvalidDestination = errors.New("resolver: invalid destination response")
	ErrTimeout            = errors.New("resolver: request timed out")
	ErrTransport          = errors.New("resolver: transport failure")

	// ErrDestinationDeclined is an explicit "ok": false answer. It also
	// matches ErrInvalidDestination.
	ErrDestinationDeclined = fmt.Errorf("%w: declined by server", ErrInvalidDestination)
)

// Error carries the operation and HTTP status alongside the sentinel.
type Error struct {
	Sentinel  error
	Operation string
	Status    int
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Sentinel
}

// Outcome is a short label for metrics and span attributes.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrServerError):
		return "server_error"
	case errors.Is(err, ErrDestinationDeclined):
		return "declined"
	case errors.Is(err, ErrInvalidDestination):
		return "invalid"
	case errors.Is(err, ErrMalformedURL):
		return "malformed_url"
	default:
		return "transport"
	}
}

func classifyTransport(op string, err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &Error{Sentinel: ErrTimeout, Operation: op, Err: err}
	}
	return &Error{Sentinel: ErrTransport, Operation: op, Err: err}
}
