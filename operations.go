// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package netconf

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxBodySize is the largest request body accepted (one chunk, 2^32-1 bytes)
const MaxBodySize = maxChunkSize

// validateBody validates a request body
//
// Checks:
//   - Body is not empty or whitespace only
//   - Body fits in a single chunk
//   - Body is valid UTF-8
//
// The returned error wraps ErrInvalidBody.
func validateBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("%w: empty or whitespace only", ErrInvalidBody)
	}
	if len(body) > MaxBodySize {
		return fmt.Errorf("%w: exceeds maximum size of %d bytes", ErrInvalidBody, MaxBodySize)
	}
	if !utf8.ValidString(body) {
		return fmt.Errorf("%w: not valid UTF-8: %s", ErrInvalidBody, truncateForError(body))
	}
	return nil
}

// Request performs one complete exchange with the device and returns the raw
// reply frame.
//
// The exchange is: connect, authenticate, open the netconf subsystem, read
// the device greeting, send our hello plus body as one chunk, read the reply
// frame, tear the channel down. The session is closed on every path; a
// teardown failure is returned joined with the primary error, or alone when
// the exchange itself succeeded.
//
// Example:
//
//	res, err := client.Request(ctx, netconf.NewRPC("<get-config><source><running/></source></get-config>"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Raw)
//
// Errors match ErrConnection, ErrAuthentication, ErrChannel,
// ErrIncompleteFrame through errors.Is. A body that is empty, too large or
// not UTF-8 fails with ErrInvalidBody before dialing.
func (c *Client) Request(ctx context.Context, body string, mods ...func(*Req)) (Res, error) {
	if err := validateBody(body); err != nil {
		return Res{}, fmt.Errorf("request: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Res{}, fmt.Errorf("request: %w", err)
	}

	req := newReq(mods)
	ctx, cancel := c.createRequestContext(ctx, req)
	defer cancel()

	c.logger.Debug(ctx, "NETCONF request",
		"host", c.Host,
		"port", c.Port,
		"body", c.prepareXMLForLogging(body))

	start := time.Now()
	ch, err := c.transport().open(ctx, c.endpoint())
	if err != nil {
		return Res{}, err
	}

	sess := NewSession(ch, c.MaxFrameSize, c.logger)
	raw, err := exchange(ctx, sess, body)
	if closeErr := sess.Close(); closeErr != nil {
		c.logger.Warn(ctx, "NETCONF session teardown failed",
			"host", c.Host,
			"error", closeErr.Error())
		err = errors.Join(err, closeErr)
	}
	if err != nil {
		c.logger.Error(ctx, "NETCONF request failed",
			"host", c.Host,
			"error", err.Error(),
			"duration_ms", time.Since(start).Milliseconds())
		return Res{}, err
	}

	c.logger.Info(ctx, "NETCONF request completed",
		"host", c.Host,
		"reply_bytes", len(raw),
		"duration_ms", time.Since(start).Milliseconds())

	return Res{Raw: raw, Timestamp: time.Now().UnixNano()}, nil
}

// exchange runs greeting, request and reply on an open session
func exchange(ctx context.Context, sess *Session, body string) (string, error) {
	if _, err := sess.ReadGreeting(ctx); err != nil {
		return "", annotate(ctx, err)
	}
	if err := sess.SendRequest(ctx, body); err != nil {
		return "", annotate(ctx, err)
	}
	raw, err := sess.ReadReply(ctx)
	if err != nil {
		return "", annotate(ctx, err)
	}
	return raw, nil
}

// annotate attaches the context error to a pipeline error when the context
// ended the exchange (the cancel watch closes the connection, so the
// visible failure is an I/O error)
func annotate(ctx context.Context, err error) error {
	var e *Error
	if ctx.Err() != nil && errors.As(err, &e) {
		e.Err = withContextErr(ctx, e.Err)
		if e.InternalMsg == "" {
			e.InternalMsg = ctx.Err().Error()
		} else {
			e.InternalMsg += ": " + ctx.Err().Error()
		}
	}
	return err
}

// Get retrieves state and configuration data matching a subtree filter
//
// Example:
//
//	res, err := client.Get(ctx, `<system xmlns="urn:ietf:params:xml:ns:yang:ietf-system"/>`)
func (c *Client) Get(ctx context.Context, filter string, mods ...func(*Req)) (Res, error) {
	return c.Request(ctx, GetRPC(filter, mods...), mods...)
}

// RequestValue performs Request and decodes the reply
func (c *Client) RequestValue(ctx context.Context, body string, mods ...func(*Req)) (Value, error) {
	res, err := c.Request(ctx, body, mods...)
	if err != nil {
		return Value{}, err
	}
	v, err := res.Decode()
	if err != nil {
		c.logger.Error(ctx, "NETCONF reply decode failed",
			"host", c.Host,
			"error", err.Error())
		return Value{}, err
	}
	return v, nil
}

// Request performs one exchange with the device at host:port and returns the
// raw reply frame. Credentials are used for this call only.
//
// Example:
//
//	raw, err := netconf.Request(ctx, "192.168.1.1", 830, "admin", "secret",
//	    netconf.GetRPC(filter))
func Request(ctx context.Context, host string, port int, username, password, body string) (string, error) {
	client, err := NewClient(host, Port(port), Username(username), Password(password))
	if err != nil {
		return "", err
	}
	res, err := client.Request(ctx, body)
	if err != nil {
		return "", err
	}
	return res.Raw, nil
}

// RequestValue performs Request and decodes the reply into a Value
func RequestValue(ctx context.Context, host string, port int, username, password, body string) (Value, error) {
	client, err := NewClient(host, Port(port), Username(username), Password(password))
	if err != nil {
		return Value{}, err
	}
	return client.RequestValue(ctx, body)
}
