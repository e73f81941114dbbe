// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package netconf

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure of the request pipeline
type ErrorKind int

const (
	// KindConnection covers TCP connect and SSH handshake failures
	KindConnection ErrorKind = iota + 1

	// KindAuthentication means the device rejected the credentials
	KindAuthentication

	// KindChannel covers channel open, subsystem negotiation and any
	// read/write failure on an open channel
	KindChannel

	// KindIncompleteFrame means the stream ended before a frame was complete
	KindIncompleteFrame

	// KindDecode means the reply markup or its framing is malformed
	KindDecode
)

// Sentinel errors matched by errors.Is against any *Error of the same kind.
//
// Example:
//
//	_, err := client.Request(ctx, body)
//	if errors.Is(err, netconf.ErrAuthentication) {
//	    // wrong username or password
//	}
var (
	ErrConnection      = errors.New("connection error")
	ErrAuthentication  = errors.New("authentication error")
	ErrChannel         = errors.New("channel error")
	ErrIncompleteFrame = errors.New("incomplete frame")
	ErrDecode          = errors.New("decode error")
)

// ErrInvalidBody is returned when a request body is rejected before any
// connection is made. It is not an ErrorKind: nothing reached the device.
var ErrInvalidBody = errors.New("invalid request body")

// String returns the name of the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindConnection:
		return "ConnectionError"
	case KindAuthentication:
		return "AuthenticationError"
	case KindChannel:
		return "ChannelError"
	case KindIncompleteFrame:
		return "IncompleteFrame"
	case KindDecode:
		return "DecodeError"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(k))
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindConnection:
		return ErrConnection
	case KindAuthentication:
		return ErrAuthentication
	case KindChannel:
		return ErrChannel
	case KindIncompleteFrame:
		return ErrIncompleteFrame
	case KindDecode:
		return ErrDecode
	default:
		return nil
	}
}

// Error represents a structured NETCONF pipeline error with operation context
type Error struct {
	// Kind classifies the failure
	Kind ErrorKind

	// Operation names the pipeline step that failed (dial, ssh-handshake,
	// read-greeting, send-request, read-reply, teardown, decode, ...)
	Operation string

	// Human-readable error message
	Message string

	// InternalMsg contains detailed error information for internal logging
	InternalMsg string

	// Err is the underlying cause, if any
	Err error
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("netconf: %s failed: %s", e.Operation, e.Message)
}

// DetailedError returns the full error message including internal details
//
// This should only be used in secure logging contexts where sensitive information
// disclosure is acceptable (e.g., server-side logs, debug output).
func (e *Error) DetailedError() string {
	if e.InternalMsg == "" {
		return e.Error()
	}
	return fmt.Sprintf("netconf: %s failed: %s (internal: %s)", e.Operation, e.Message, e.InternalMsg)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of this error's kind
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// newError builds an *Error, taking InternalMsg from the cause
func newError(kind ErrorKind, op, msg string, cause error) *Error {
	e := &Error{Kind: kind, Operation: op, Message: msg, Err: cause}
	if cause != nil {
		e.InternalMsg = cause.Error()
	}
	return e
}

// ErrorModel represents a single <rpc-error> carried by a reply
type ErrorModel struct {
	// Type is the error-type (transport, rpc, protocol, application)
	Type string

	// Tag is the error-tag (e.g. invalid-value, access-denied)
	Tag string

	// Severity is error or warning
	Severity string

	// Message is the error-message text
	Message string

	// Path is the error-path, when the device reports one
	Path string
}
