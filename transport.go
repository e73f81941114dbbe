// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package netconf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/bassosimone/errclass"
	"golang.org/x/crypto/ssh"
)

// Subsystem is the SSH subsystem name requested on the session channel
const Subsystem = "netconf"

// Dialer abstracts the [*net.Dialer] behavior.
//
// By making the transport depend on an abstract implementation we allow
// for unit testing and for routing connections through proxies or jump
// hosts.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// endpoint is the connection descriptor for one exchange. It lives only for
// the duration of the call.
type endpoint struct {
	host     string
	port     int
	username string
	password string
}

func (e endpoint) address() string {
	return net.JoinHostPort(e.host, strconv.Itoa(e.port))
}

// transport opens NETCONF channels: TCP connect, SSH handshake with
// password authentication, one "session" channel, "netconf" subsystem.
type transport struct {
	dialer          Dialer
	connectTimeout  time.Duration
	hostKeyCallback ssh.HostKeyCallback
	logger          Logger
}

// open runs every setup step in order and aborts on the first failure.
//
// The TCP connection is closed when ctx is done, which unblocks any read or
// write on the returned channel. Closing the channel unregisters the watch.
func (t *transport) open(ctx context.Context, ep endpoint) (*sshChannel, error) {
	addr := ep.address()

	dialCtx, cancel := context.WithTimeout(ctx, t.connectTimeout)
	conn, err := t.dialer.DialContext(dialCtx, "tcp", addr)
	cancel()
	if err != nil {
		t.logger.Error(ctx, "TCP connect failed",
			"address", addr,
			"error", err.Error(),
			"error_class", classify(err))
		return nil, newError(KindConnection, "dial", "tcp connect to "+addr+" failed", withContextErr(ctx, err))
	}
	t.logger.Debug(ctx, "TCP connection established", "address", addr, "state", StateConnected.String())

	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})

	cfg := &ssh.ClientConfig{
		User:            ep.username,
		Auth:            []ssh.AuthMethod{ssh.Password(ep.password)},
		HostKeyCallback: t.hostKeyCallback,
	}
	// the handshake shares the connect timeout
	if err := conn.SetDeadline(time.Now().Add(t.connectTimeout)); err != nil {
		stop()
		conn.Close()
		t.logger.Error(ctx, "SSH handshake deadline not set",
			"address", addr,
			"error", err.Error(),
			"error_class", classify(err))
		return nil, newError(KindConnection, "ssh-handshake", "cannot bound the ssh handshake", withContextErr(ctx, err))
	}
	sc, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		stop()
		conn.Close()
		kind, msg := KindConnection, "ssh handshake failed"
		if isAuthError(err) {
			kind, msg = KindAuthentication, "device rejected the credentials"
		}
		t.logger.Error(ctx, "SSH handshake failed",
			"address", addr,
			"username", ep.username,
			"error", err.Error(),
			"error_class", classify(err))
		return nil, newError(kind, "ssh-handshake", msg, withContextErr(ctx, err))
	}
	if err := conn.SetDeadline(time.Time{}); err != nil {
		// the request timeout still bounds the exchange through ctx
		t.logger.Debug(ctx, "SSH handshake deadline not cleared", "address", addr, "error", err.Error())
	}
	client := ssh.NewClient(sc, chans, reqs)
	t.logger.Debug(ctx, "SSH session authenticated", "address", addr, "state", StateAuthenticated.String())

	ch, chReqs, err := client.OpenChannel("session", nil)
	if err != nil {
		stop()
		client.Close()
		t.logger.Error(ctx, "SSH channel open failed",
			"address", addr,
			"error", err.Error(),
			"error_class", classify(err))
		return nil, newError(KindChannel, "open-channel", "session channel open failed", withContextErr(ctx, err))
	}

	nc := &sshChannel{
		Channel:  ch,
		client:   client,
		stop:     stop,
		reqsDone: make(chan struct{}),
		ctxDone:  ctx.Done(),
	}
	go func() {
		ssh.DiscardRequests(chReqs)
		close(nc.reqsDone)
	}()

	ok, err := ch.SendRequest("subsystem", true, ssh.Marshal(&struct{ Name string }{Subsystem}))
	if err == nil && !ok {
		err = fmt.Errorf("subsystem %q request rejected", Subsystem)
	}
	if err != nil {
		closeErr := nc.Close()
		t.logger.Error(ctx, "NETCONF subsystem request failed",
			"address", addr,
			"error", err.Error(),
			"error_class", classify(err))
		return nil, newError(KindChannel, "subsystem", "netconf subsystem negotiation failed",
			errors.Join(withContextErr(ctx, err), closeErr))
	}
	t.logger.Debug(ctx, "NETCONF subsystem started", "address", addr, "state", StateChannelOpen.String())

	return nc, nil
}

// sshChannel adapts an [ssh.Channel] to [Channel] and owns the SSH client
// underneath it.
type sshChannel struct {
	ssh.Channel
	client   *ssh.Client
	stop     func() bool
	reqsDone chan struct{}
	ctxDone  <-chan struct{}
	closed   bool
}

var _ Channel = &sshChannel{}

// Close closes the channel, waits for the remote close acknowledgment and
// then closes the SSH connection.
func (c *sshChannel) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	defer c.stop()

	var errs []error
	if err := c.Channel.Close(); err != nil && !errors.Is(err, io.EOF) {
		errs = append(errs, fmt.Errorf("close channel: %w", err))
	}
	// once ctx is done the connection is already gone
	select {
	case <-c.reqsDone:
	case <-c.ctxDone:
	}
	if err := c.client.Close(); err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, io.EOF) {
		errs = append(errs, fmt.Errorf("close connection: %w", err))
	}
	return errors.Join(errs...)
}

// isAuthError recognizes the x/crypto/ssh failure after every offered
// method was rejected
func isAuthError(err error) bool {
	return strings.Contains(err.Error(), "unable to authenticate")
}

// classify maps a transport error to a short errno-like label for logs
func classify(err error) string {
	if err == nil {
		return ""
	}
	return errclass.New(err)
}

// withContextErr attaches the context error when ctx ended the operation
func withContextErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		return errors.Join(err, ctxErr)
	}
	return err
}
