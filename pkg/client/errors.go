package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// FailureKind classifies why an inference call produced no usable text
type FailureKind string

const (
	// KindUnreachable covers refused connections, DNS, TLS and timeouts.
	KindUnreachable FailureKind = "unreachable"
	// KindBadStatus is a non-2xx answer from the inference server.
	KindBadStatus FailureKind = "bad_status"
	// KindMalformed is a 2xx answer that could not be understood.
	KindMalformed FailureKind = "malformed_response"
)

// InferenceError is returned by every VisionClient failure
type InferenceError struct {
	Kind       FailureKind
	StatusCode int
	Backend    string
	Err        error
}

func (e *InferenceError) Error() string {
	switch e.Kind {
	case KindBadStatus:
		return fmt.Sprintf("%s: inference server returned status %d: %v", e.Backend, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Backend, e.Kind, e.Err)
	}
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// Unreachable wraps a transport failure
func Unreachable(backend string, err error) *InferenceError {
	return &InferenceError{Kind: KindUnreachable, Backend: backend, Err: err}
}

// BadStatus wraps a non-2xx reply
func BadStatus(backend string, status int, err error) *InferenceError {
	return &InferenceError{Kind: KindBadStatus, StatusCode: status, Backend: backend, Err: err}
}

// Malformed wraps an undecodable reply
func Malformed(backend string, err error) *InferenceError {
	return &InferenceError{Kind: KindMalformed, Backend: backend, Err: err}
}

// IsTransportError reports whether err came from the network layer rather
// than from the server's reply
func IsTransportError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// KindOf returns the failure kind of err, or "" when err is not an InferenceError
func KindOf(err error) FailureKind {
	var ie *InferenceError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return ""
}
