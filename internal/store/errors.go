package store

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse is the cause of a ProtocolError when a body was
// expected but none arrived.
var ErrEmptyResponse = errors.New("empty response body")

// TransportError means the request never produced an HTTP response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError means a response arrived but could not be used: an
// unexpected status or an empty or malformed body.
type ProtocolError struct {
	Op     string
	Status int
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// DomainError is a rejection by the store itself (HTTP 4xx), carrying the
// store's own message.
type DomainError struct {
	Op      string
	Status  int
	Message string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// NotFound reports whether the store rejected the request as not found.
func (e *DomainError) NotFound() bool { return e.Status == 404 }

// IsTransport reports whether err is or wraps a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsProtocol reports whether err is or wraps a ProtocolError.
func IsProtocol(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// IsDomain reports whether err is or wraps a DomainError.
func IsDomain(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// IsNotFound reports whether err is a DomainError for a missing session.
func IsNotFound(err error) bool {
	var de *DomainError
	return errors.As(err, &de) && de.NotFound()
}
