// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package netconf

import (
	"time"

	"golang.org/x/crypto/ssh"
)

// Client configuration options using the functional options pattern

// Username sets the username for SSH password authentication
func Username(username string) func(*Client) {
	return func(c *Client) {
		c.username = username
	}
}

// Password sets the password for SSH password authentication
func Password(password string) func(*Client) {
	return func(c *Client) {
		c.password = password
	}
}

// Port sets the NETCONF-over-SSH port (default: 830)
func Port(port int) func(*Client) {
	return func(c *Client) {
		c.Port = port
	}
}

// ConnectTimeout bounds TCP connect plus SSH handshake (default: 30s)
func ConnectTimeout(duration time.Duration) func(*Client) {
	return func(c *Client) {
		c.ConnectTimeout = duration
	}
}

// OperationTimeout bounds a whole exchange when neither the request nor the
// context set a deadline (default: 60s)
func OperationTimeout(duration time.Duration) func(*Client) {
	return func(c *Client) {
		c.OperationTimeout = duration
	}
}

// MaxFrameSize caps a single reply frame in bytes (default: 64 MiB)
//
// A device that sends more without a terminator fails the call with a
// ChannelError instead of growing the buffer without bound.
func MaxFrameSize(size int) func(*Client) {
	return func(c *Client) {
		c.MaxFrameSize = size
	}
}

// KnownHostsFile enables host key verification against an OpenSSH
// known_hosts file
//
// The file is loaded by NewClient; a missing or unreadable file is a
// configuration error.
//
// Example:
//
//	client, _ := netconf.NewClient("192.168.1.1",
//	    netconf.Username("admin"),
//	    netconf.Password("secret"),
//	    netconf.KnownHostsFile(filepath.Join(home, ".ssh", "known_hosts")))
func KnownHostsFile(path string) func(*Client) {
	return func(c *Client) {
		c.knownHostsFile = path
	}
}

// HostKeyCallback sets a custom host key check. It takes precedence over
// KnownHostsFile.
//
// WARNING: without either option host keys are not verified, which leaves
// the session open to Man-in-the-Middle attacks.
func HostKeyCallback(cb ssh.HostKeyCallback) func(*Client) {
	return func(c *Client) {
		c.hostKeyCallback = cb
	}
}

// WithDialer replaces the TCP dialer (default: *net.Dialer)
func WithDialer(d Dialer) func(*Client) {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

// WithLogger configures a custom logger for the client
//
// By default, the client uses NoOpLogger which discards all log messages.
// Use this option to enable logging with DefaultLogger or a custom logger.
//
// Request bodies logged at Debug level are redacted first: the content of
// password, secret, key, community and auth elements is replaced.
//
// Example:
//
//	logger := netconf.NewDefaultLogger(netconf.LogLevelInfo)
//	client, _ := netconf.NewClient("192.168.1.1",
//	    netconf.Username("admin"),
//	    netconf.Password("secret"),
//	    netconf.WithLogger(logger))
func WithLogger(logger Logger) func(*Client) {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Request modifiers for individual operations

// Timeout returns a request modifier that sets a custom timeout for the operation.
//
// The timeout priority model is:
//  1. Request-specific timeout (this modifier) - highest priority
//  2. Context deadline (if already set) - medium priority
//  3. Client.OperationTimeout - fallback default
//
// Example:
//
//	res, err := client.Get(ctx, optics.TransceiverFilter,
//	    netconf.Timeout(2*time.Minute))
func Timeout(duration time.Duration) func(*Req) {
	return func(req *Req) {
		req.Timeout = duration
	}
}

// MessageID returns a request modifier that fixes the rpc message-id
//
// Without it NewRPC generates a random UUID.
func MessageID(id string) func(*Req) {
	return func(req *Req) {
		req.MessageID = id
	}
}
