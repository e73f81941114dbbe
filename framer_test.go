// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package netconf

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

// fakeChannel is a scripted Channel that records the teardown sequence
type fakeChannel struct {
	r             io.Reader
	written       bytes.Buffer
	writeErr      error
	closeWriteErr error
	closeErr      error
	calls         []string
}

func newFakeChannel(input string) *fakeChannel {
	return &fakeChannel{r: strings.NewReader(input)}
}

func (f *fakeChannel) Read(p []byte) (int, error) {
	return f.r.Read(p)
}

func (f *fakeChannel) Write(p []byte) (int, error) {
	f.calls = append(f.calls, "write")
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	return f.written.Write(p)
}

func (f *fakeChannel) CloseWrite() error {
	f.calls = append(f.calls, "close-write")
	return f.closeWriteErr
}

func (f *fakeChannel) Close() error {
	f.calls = append(f.calls, "close")
	return f.closeErr
}

const testGreeting = `<hello xmlns="urn:ietf:params:xml:ns:netconf:base:1.0"><capabilities><capability>urn:ietf:params:netconf:base:1.1</capability></capabilities></hello>]]>]]>`

// TestFrameRequest verifies the exact outgoing bytes
func TestFrameRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "ascii body",
			body: "abc",
			want: Hello + "\n#3\nabc\n##\n",
		},
		{
			name: "multi-byte body counts bytes",
			body: "é",
			want: Hello + "\n#2\né\n##\n",
		},
		{
			name: "rpc body",
			body: `<rpc message-id="101"/>`,
			want: Hello + "\n#23\n<rpc message-id=\"101\"/>\n##\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(FrameRequest(tt.body)); got != tt.want {
				t.Errorf("FrameRequest(%q) = %q, want %q", tt.body, got, tt.want)
			}
		})
	}
}

// TestHello verifies the greeting announces base:1.1 and ends with the
// legacy marker
func TestHello(t *testing.T) {
	if !strings.HasSuffix(Hello, EndOfMessage) {
		t.Error("Hello does not end with the end-of-message marker")
	}
	if !strings.Contains(Hello, "urn:ietf:params:netconf:base:1.1") {
		t.Error("Hello does not announce base:1.1")
	}
	if strings.Contains(Hello, "urn:ietf:params:netconf:base:1.0</capability>") {
		t.Error("Hello must not announce base:1.0")
	}
}

// TestSession_ReadFrame verifies the read loop stops right after a terminator
func TestSession_ReadFrame(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      string
		remaining string
	}{
		{
			name:      "legacy marker",
			input:     "<hello/>]]>]]>trailing",
			want:      "<hello/>]]>]]>",
			remaining: "trailing",
		},
		{
			name:      "end of chunks",
			input:     "\n#8\n<hello/>\n##\n",
			want:      "\n#8\n<hello/>\n##",
			remaining: "\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(newFakeChannel(tt.input), 0, nil)
			got, err := s.ReadGreeting(context.Background())
			if err != nil {
				t.Fatalf("ReadGreeting() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ReadGreeting() = %q, want %q", got, tt.want)
			}
			rest, _ := io.ReadAll(s.r)
			if string(rest) != tt.remaining {
				t.Errorf("remaining = %q, want %q", rest, tt.remaining)
			}
		})
	}
}

// TestSession_MultiByteAcrossReads verifies characters split across reads
// survive intact
func TestSession_MultiByteAcrossReads(t *testing.T) {
	input := "<a>héllo wörld ✓</a>]]>]]>"
	ch := &fakeChannel{r: iotest.OneByteReader(strings.NewReader(input))}
	s := NewSession(ch, 0, nil)

	got, err := s.ReadGreeting(context.Background())
	if err != nil {
		t.Fatalf("ReadGreeting() error = %v", err)
	}
	if got != input {
		t.Errorf("ReadGreeting() = %q, want %q", got, input)
	}
}

// TestSession_Exchange runs greeting, request and reply over a scripted channel
func TestSession_Exchange(t *testing.T) {
	reply := "\n#12\n<rpc-reply/>\n##\n"
	ch := newFakeChannel(testGreeting + reply)
	s := NewSession(ch, 0, nil)
	ctx := context.Background()

	if s.State() != StateChannelOpen {
		t.Fatalf("initial state = %s", s.State())
	}
	if _, err := s.ReadGreeting(ctx); err != nil {
		t.Fatalf("ReadGreeting() error = %v", err)
	}
	if err := s.SendRequest(ctx, "abc"); err != nil {
		t.Fatalf("SendRequest() error = %v", err)
	}
	got, err := s.ReadReply(ctx)
	if err != nil {
		t.Fatalf("ReadReply() error = %v", err)
	}
	if got != "\n#12\n<rpc-reply/>\n##" {
		t.Errorf("ReadReply() = %q", got)
	}
	if s.State() != StateResponseReceived {
		t.Errorf("state = %s, want %s", s.State(), StateResponseReceived)
	}
	if ch.written.String() != Hello+"\n#3\nabc\n##\n" {
		t.Errorf("written = %q", ch.written.String())
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	want := []string{"write", "close-write", "close"}
	if strings.Join(ch.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", ch.calls, want)
	}
}

// TestSession_IncompleteFrame verifies end-of-stream before a terminator
func TestSession_IncompleteFrame(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty stream", input: ""},
		{name: "partial legacy marker", input: "<hello/>]]>]]"},
		{name: "single hash", input: "\n#5\nhel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(newFakeChannel(tt.input), 0, nil)
			got, err := s.ReadGreeting(context.Background())
			if !errors.Is(err, ErrIncompleteFrame) {
				t.Fatalf("error = %v, want ErrIncompleteFrame", err)
			}
			if got != "" {
				t.Errorf("partial frame returned: %q", got)
			}
		})
	}
}

// TestSession_WriteFailureRunsTeardown verifies a write failure after a
// successful greeting still runs the whole close sequence
func TestSession_WriteFailureRunsTeardown(t *testing.T) {
	ch := newFakeChannel(testGreeting)
	ch.writeErr = errors.New("broken pipe")
	s := NewSession(ch, 0, nil)
	ctx := context.Background()

	if _, err := s.ReadGreeting(ctx); err != nil {
		t.Fatalf("ReadGreeting() error = %v", err)
	}
	err := s.SendRequest(ctx, "abc")
	if !errors.Is(err, ErrChannel) {
		t.Fatalf("SendRequest() error = %v, want ErrChannel", err)
	}
	var nerr *Error
	if !errors.As(err, &nerr) || nerr.Operation != "send-request" {
		t.Errorf("error = %#v, want operation send-request", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	want := "write,close-write,close"
	if got := strings.Join(ch.calls, ","); got != want {
		t.Errorf("calls = %s, want %s", got, want)
	}
	if s.State() != StateClosed {
		t.Errorf("state = %s, want Closed", s.State())
	}
}

// TestSession_TeardownErrors verifies every teardown step runs and failures
// are reported together
func TestSession_TeardownErrors(t *testing.T) {
	ch := newFakeChannel("")
	ch.closeWriteErr = errors.New("eof refused")
	ch.closeErr = errors.New("close refused")
	s := NewSession(ch, 0, nil)

	err := s.Close()
	if !errors.Is(err, ErrChannel) {
		t.Fatalf("Close() error = %v, want ErrChannel", err)
	}
	var nerr *Error
	if !errors.As(err, &nerr) {
		t.Fatalf("Close() error type = %T", err)
	}
	if nerr.Operation != "teardown" {
		t.Errorf("operation = %q, want teardown", nerr.Operation)
	}
	for _, part := range []string{"eof refused", "close refused"} {
		if !strings.Contains(nerr.InternalMsg, part) {
			t.Errorf("InternalMsg %q does not mention %q", nerr.InternalMsg, part)
		}
	}
	if got := strings.Join(ch.calls, ","); got != "close-write,close" {
		t.Errorf("calls = %s", got)
	}
}

// TestSession_CloseEOFIsClean verifies io.EOF from Close is not a failure
func TestSession_CloseEOFIsClean(t *testing.T) {
	ch := newFakeChannel("")
	ch.closeErr = io.EOF
	if err := NewSession(ch, 0, nil).Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
}

// TestSession_CloseIdempotent verifies the second Close is a no-op
func TestSession_CloseIdempotent(t *testing.T) {
	ch := newFakeChannel("")
	s := NewSession(ch, 0, nil)
	if err := s.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if len(ch.calls) != 2 {
		t.Errorf("calls = %v, want one close-write and one close", ch.calls)
	}
}

// TestSession_StateOrder verifies steps cannot run out of order
func TestSession_StateOrder(t *testing.T) {
	ctx := context.Background()

	s := NewSession(newFakeChannel(testGreeting), 0, nil)
	if err := s.SendRequest(ctx, "abc"); !errors.Is(err, ErrChannel) {
		t.Errorf("SendRequest before greeting: error = %v", err)
	}
	if _, err := s.ReadReply(ctx); !errors.Is(err, ErrChannel) {
		t.Errorf("ReadReply before request: error = %v", err)
	}
	s.Close()
	if _, err := s.ReadGreeting(ctx); !errors.Is(err, ErrChannel) {
		t.Errorf("ReadGreeting after close: error = %v", err)
	}
}

// TestSession_MaxFrameSize verifies an oversized frame is rejected
func TestSession_MaxFrameSize(t *testing.T) {
	s := NewSession(newFakeChannel(strings.Repeat("x", 100)+"]]>]]>"), 16, nil)
	_, err := s.ReadGreeting(context.Background())
	if !errors.Is(err, ErrChannel) {
		t.Fatalf("error = %v, want ErrChannel", err)
	}
	if !strings.Contains(err.Error(), "maximum size") {
		t.Errorf("error = %v", err)
	}
}

// TestSession_ReadError verifies a transport read failure is a ChannelError
func TestSession_ReadError(t *testing.T) {
	ch := &fakeChannel{r: iotest.ErrReader(errors.New("connection reset"))}
	_, err := NewSession(ch, 0, nil).ReadGreeting(context.Background())
	if !errors.Is(err, ErrChannel) {
		t.Errorf("error = %v, want ErrChannel", err)
	}
}

// TestState_String verifies state names
func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateConnected, "Connected"},
		{StateAuthenticated, "Authenticated"},
		{StateChannelOpen, "ChannelOpen"},
		{StateGreeted, "Greeted"},
		{StateRequestSent, "RequestSent"},
		{StateResponseReceived, "ResponseReceived"},
		{StateClosed, "Closed"},
		{State(99), "UNKNOWN(99)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", int(tt.state), got, tt.want)
		}
	}
}
