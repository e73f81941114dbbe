// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package netconf

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/bassosimone/netstub"
	"golang.org/x/crypto/ssh"
)

func testTransport(d Dialer, logger Logger) *transport {
	return &transport{
		dialer:          d,
		connectTimeout:  5 * time.Second,
		hostKeyCallback: ssh.InsecureIgnoreHostKey(),
		logger:          logger,
	}
}

// TestEndpointAddress verifies host:port joining
func TestEndpointAddress(t *testing.T) {
	tests := []struct {
		ep   endpoint
		want string
	}{
		{endpoint{host: "192.168.1.1", port: 830}, "192.168.1.1:830"},
		{endpoint{host: "leaf1.lab", port: 22}, "leaf1.lab:22"},
		{endpoint{host: "2001:db8::1", port: 830}, "[2001:db8::1]:830"},
	}
	for _, tt := range tests {
		if got := tt.ep.address(); got != tt.want {
			t.Errorf("address() = %q, want %q", got, tt.want)
		}
	}
}

// TestTransport_DialError verifies a failed connect is a ConnectionError
func TestTransport_DialError(t *testing.T) {
	var gotNetwork, gotAddress string
	dialer := &netstub.FuncDialer{
		DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
			gotNetwork, gotAddress = network, address
			return nil, syscall.ECONNREFUSED
		},
	}
	mock := &mockLogger{}

	_, err := testTransport(dialer, mock).open(context.Background(), endpoint{host: "10.0.0.1", port: 830})
	if !errors.Is(err, ErrConnection) {
		t.Fatalf("open() error = %v, want ErrConnection", err)
	}
	if !errors.Is(err, syscall.ECONNREFUSED) {
		t.Errorf("cause lost: %v", err)
	}
	if gotNetwork != "tcp" || gotAddress != "10.0.0.1:830" {
		t.Errorf("dialed %s %s", gotNetwork, gotAddress)
	}

	entries := mock.calls("error")
	if len(entries) != 1 || entries[0].kv["error_class"] == "" {
		t.Errorf("error log = %+v, want one entry with error_class", entries)
	}
}

// TestTransport_HandshakeEOF verifies a peer that hangs up during the
// handshake is a ConnectionError, not an authentication failure
func TestTransport_HandshakeEOF(t *testing.T) {
	dialer := &netstub.FuncDialer{
		DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
			client, peer := net.Pipe()
			peer.Close()
			return client, nil
		},
	}

	_, err := testTransport(dialer, &NoOpLogger{}).open(context.Background(), endpoint{host: "10.0.0.1", port: 830})
	if !errors.Is(err, ErrConnection) {
		t.Fatalf("open() error = %v, want ErrConnection", err)
	}
	if errors.Is(err, ErrAuthentication) {
		t.Error("hang-up reported as authentication failure")
	}
	var nerr *Error
	if !errors.As(err, &nerr) || nerr.Operation != "ssh-handshake" {
		t.Errorf("error = %#v, want operation ssh-handshake", err)
	}
}

// TestTransport_HandshakeDeadlineFailure verifies a connection that cannot
// take the connect deadline is closed instead of handshaking unbounded
func TestTransport_HandshakeDeadlineFailure(t *testing.T) {
	deadlineErr := errors.New("deadline not supported")
	closed := 0
	conn := &netstub.FuncConn{
		SetDeadlineFunc: func(time.Time) error { return deadlineErr },
		CloseFunc: func() error {
			closed++
			return nil
		},
	}
	dialer := &netstub.FuncDialer{
		DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
			return conn, nil
		},
	}
	mock := &mockLogger{}

	_, err := testTransport(dialer, mock).open(context.Background(), endpoint{host: "10.0.0.1", port: 830})
	if !errors.Is(err, ErrConnection) {
		t.Fatalf("open() error = %v, want ErrConnection", err)
	}
	if !errors.Is(err, deadlineErr) {
		t.Errorf("open() error = %v, want it to wrap the deadline error", err)
	}
	if closed == 0 {
		t.Error("connection was not closed")
	}
	if !mock.has("error", "SSH handshake deadline not set") {
		t.Error("deadline failure was not logged")
	}
}

// TestTransport_CancelDuringHandshake verifies cancellation unblocks a
// device that never answers
func TestTransport_CancelDuringHandshake(t *testing.T) {
	dialer := &netstub.FuncDialer{
		DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
			client, peer := net.Pipe()
			go io.Copy(io.Discard, peer)
			return client, nil
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	_, err := testTransport(dialer, &NoOpLogger{}).open(ctx, endpoint{host: "10.0.0.1", port: 830})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("open() error = %v, want context.Canceled", err)
	}
	if !errors.Is(err, ErrConnection) {
		t.Errorf("open() error = %v, want ErrConnection", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("cancellation took %v", time.Since(start))
	}
}

// TestIsAuthError verifies detection of the x/crypto auth failure
func TestIsAuthError(t *testing.T) {
	authErr := errors.New("ssh: handshake failed: ssh: unable to authenticate, attempted methods [none password], no supported methods remain")
	if !isAuthError(authErr) {
		t.Error("auth failure not recognized")
	}
	if isAuthError(errors.New("ssh: handshake failed: EOF")) {
		t.Error("EOF recognized as auth failure")
	}
}

// TestClassify verifies error labels
func TestClassify(t *testing.T) {
	if got := classify(nil); got != "" {
		t.Errorf("classify(nil) = %q", got)
	}
	if got := classify(syscall.ECONNREFUSED); got == "" {
		t.Error("classify(ECONNREFUSED) is empty")
	}
}

// TestWithContextErr verifies the context error is attached once
func TestWithContextErr(t *testing.T) {
	cause := io.EOF
	if got := withContextErr(context.Background(), cause); got != cause {
		t.Errorf("live context changed the error: %v", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := withContextErr(ctx, cause)
	if !errors.Is(got, io.EOF) || !errors.Is(got, context.Canceled) {
		t.Errorf("withContextErr() = %v", got)
	}
	if again := withContextErr(ctx, got); again != got {
		t.Error("context error attached twice")
	}
}
