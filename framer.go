// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package netconf

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Hello is the capability announcement sent once per session. It announces
// base:1.1 only, so every request after it uses chunked framing.
const Hello = `<hello xmlns="urn:ietf:params:xml:ns:netconf:base:1.0">
  <capabilities>
    <capability>urn:ietf:params:netconf:base:1.1</capability>
  </capabilities>
</hello>
]]>]]>`

// DefaultMaxFrameSize bounds a single incoming frame (64 MiB)
const DefaultMaxFrameSize = 64 * 1024 * 1024

// Channel is the byte stream a Session runs over: one opened NETCONF
// subsystem on a secure transport.
//
// CloseWrite signals end-of-stream to the remote. Close closes the channel
// and returns once the remote has acknowledged the close.
type Channel interface {
	io.Reader
	io.Writer
	CloseWrite() error
	Close() error
}

// State is the lifecycle position of a Session
type State int

const (
	StateConnected State = iota
	StateAuthenticated
	StateChannelOpen
	StateGreeted
	StateRequestSent
	StateResponseReceived
	StateClosed
)

// String returns the name of the state
func (s State) String() string {
	switch s {
	case StateConnected:
		return "Connected"
	case StateAuthenticated:
		return "Authenticated"
	case StateChannelOpen:
		return "ChannelOpen"
	case StateGreeted:
		return "Greeted"
	case StateRequestSent:
		return "RequestSent"
	case StateResponseReceived:
		return "ResponseReceived"
	case StateClosed:
		return "Closed"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// Session runs exactly one request/response exchange over a Channel.
//
// The exchange is an explicit sequence: ReadGreeting, SendRequest,
// ReadReply, Close. Close must be called on every path once the Session
// exists; it is safe to call more than once.
//
// A Session is not safe for concurrent use.
type Session struct {
	ch           Channel
	r            *bufio.Reader
	state        State
	maxFrameSize int
	logger       Logger
}

// NewSession wraps an already opened channel
func NewSession(ch Channel, maxFrameSize int, logger Logger) *Session {
	if maxFrameSize <= 0 {
		maxFrameSize = DefaultMaxFrameSize
	}
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &Session{
		ch:           ch,
		r:            bufio.NewReader(ch),
		state:        StateChannelOpen,
		maxFrameSize: maxFrameSize,
		logger:       logger,
	}
}

// State returns the current lifecycle state
func (s *Session) State() State {
	return s.state
}

// ReadGreeting reads the device's hello up to its terminator
//
// The greeting content is returned for diagnostics only; the session never
// interprets the device's capabilities.
func (s *Session) ReadGreeting(ctx context.Context) (string, error) {
	if s.state != StateChannelOpen {
		return "", s.stateError("read-greeting", StateChannelOpen)
	}
	frame, err := s.readFrame("read-greeting")
	if err != nil {
		return "", err
	}
	s.state = StateGreeted
	s.logger.Debug(ctx, "NETCONF greeting received", "bytes", len(frame))
	return frame, nil
}

// SendRequest writes our hello and the chunk-framed body in a single write
func (s *Session) SendRequest(ctx context.Context, body string) error {
	if s.state != StateGreeted {
		return s.stateError("send-request", StateGreeted)
	}
	frame := FrameRequest(body)
	if _, err := s.ch.Write(frame); err != nil {
		return newError(KindChannel, "send-request", "write to channel failed", err)
	}
	s.state = StateRequestSent
	s.logger.Debug(ctx, "NETCONF request sent", "bytes", len(frame), "body_bytes", len(body))
	return nil
}

// ReadReply reads the reply frame, terminator included
func (s *Session) ReadReply(ctx context.Context) (string, error) {
	if s.state != StateRequestSent {
		return "", s.stateError("read-reply", StateRequestSent)
	}
	frame, err := s.readFrame("read-reply")
	if err != nil {
		return "", err
	}
	s.state = StateResponseReceived
	s.logger.Debug(ctx, "NETCONF reply received", "bytes", len(frame))
	return frame, nil
}

// Close tears the channel down: signal end-of-stream, wait for the remote
// end-of-stream, close, wait for the close acknowledgment. Every step runs
// even when an earlier one fails; all failures are returned joined.
func (s *Session) Close() error {
	if s.state == StateClosed {
		return nil
	}
	s.state = StateClosed

	var errs []error
	if err := s.ch.CloseWrite(); err != nil {
		errs = append(errs, fmt.Errorf("send eof: %w", err))
	}
	if _, err := io.Copy(io.Discard, s.r); err != nil {
		errs = append(errs, fmt.Errorf("wait eof: %w", err))
	}
	if err := s.ch.Close(); err != nil && !errors.Is(err, io.EOF) {
		errs = append(errs, fmt.Errorf("close: %w", err))
	}
	if len(errs) > 0 {
		return newError(KindChannel, "teardown", "channel close sequence failed", errors.Join(errs...))
	}
	return nil
}

// readFrame accumulates raw bytes until the buffer ends with either
// terminator. Bytes are converted to text only once the frame is complete.
func (s *Session) readFrame(op string) (string, error) {
	m := newTerminatorMatcher()
	var buf bytes.Buffer
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", &Error{
					Kind:        KindIncompleteFrame,
					Operation:   op,
					Message:     "stream ended before a frame terminator",
					InternalMsg: fmt.Sprintf("%d bytes discarded", buf.Len()),
					Err:         err,
				}
			}
			return "", newError(KindChannel, op, "read from channel failed", err)
		}
		buf.WriteByte(b)
		if _, ok := m.Feed(b); ok {
			return buf.String(), nil
		}
		if buf.Len() >= s.maxFrameSize {
			return "", &Error{
				Kind:        KindChannel,
				Operation:   op,
				Message:     "frame exceeds maximum size",
				InternalMsg: fmt.Sprintf("limit %d bytes", s.maxFrameSize),
			}
		}
	}
}

func (s *Session) stateError(op string, want State) error {
	return &Error{
		Kind:        KindChannel,
		Operation:   op,
		Message:     "session is not in the expected state",
		InternalMsg: fmt.Sprintf("state %s, want %s", s.state, want),
	}
}

// FrameRequest returns the exact bytes sent for body: Hello, then body as a
// single chunk, then the end-of-chunks line.
//
// Example:
//
//	FrameRequest("abc") // Hello + "\n#3\nabc\n##\n"
func FrameRequest(body string) []byte {
	n := strconv.Itoa(len(body))
	buf := make([]byte, 0, len(Hello)+len(body)+len(n)+8)
	buf = append(buf, Hello...)
	buf = append(buf, "\n#"...)
	buf = append(buf, n...)
	buf = append(buf, '\n')
	buf = append(buf, body...)
	buf = append(buf, "\n##\n"...)
	return buf
}
