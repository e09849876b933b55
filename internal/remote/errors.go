package remote

import (
	"errors"
	"fmt"
)

// ErrBadStatus is wrapped by ProtocolError when the body status is not "ok".
var ErrBadStatus = errors.New("unexpected response status")

// TransportError indicates the request did not produce a usable HTTP
// response: the connection failed or the server answered non-2xx.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type TransportError struct {
	Op         string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		if e.Err != nil {
			return fmt.Sprintf("files: %s: status %d: %v", e.Op, e.StatusCode, e.Err)
		}
		return fmt.Sprintf("files: %s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("files: %s: request failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError indicates a 2xx response whose body could not be decoded or
// reported a status other than "ok".
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ProtocolError struct {
	Op     string
	Status string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("files: %s: status %q: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("files: %s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }
