// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package netconf

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Default client configuration values
const (
	DefaultPort             = 830
	DefaultConnectTimeout   = 30 * time.Second
	DefaultOperationTimeout = 60 * time.Second
)

// Security limits for XML processing and logging
const (
	MaxXMLSizeForLogging = 1 * 1024 * 1024 // 1MB limit to prevent ReDoS attacks
	MaxSensitiveFields   = 1000            // Max redaction operations to prevent DoS
)

// Logging message constants
const (
	XMLTooLargeMessage     = "[XML TOO LARGE FOR LOGGING]"
	XMLTooManySensitiveMsg = "[XML CONTAINS TOO MANY SENSITIVE FIELDS]"
)

// sensitiveElements are the elements whose text content is redacted in logs
var sensitiveElements = []string{"password", "secret", "key", "community", "auth"}

// defaultRedactionPatterns match the opening tag of a sensitive element
// (any namespace prefix, any attributes) followed by its text content
var defaultRedactionPatterns = func() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(sensitiveElements))
	for i, name := range sensitiveElements {
		patterns[i] = regexp.MustCompile(`(<(?:[\w.-]+:)?` + name + `(?:\s[^>]*)?>)[^<]*`)
	}
	return patterns
}()

// Client holds the configuration for NETCONF exchanges with one device.
//
// A Client never keeps a connection: every call opens a fresh SSH session,
// performs one exchange and tears the session down. A Client is therefore
// safe for concurrent use by multiple goroutines.
type Client struct {
	// Connection parameters
	Host     string
	Port     int
	username string // unexported for security
	password string // unexported for security

	// Timeout configuration
	ConnectTimeout   time.Duration
	OperationTimeout time.Duration

	// MaxFrameSize bounds a single reply frame
	MaxFrameSize int

	// Host key verification
	knownHostsFile  string
	hostKeyCallback ssh.HostKeyCallback

	dialer Dialer

	// Logging configuration
	logger            Logger
	redactionPatterns []*regexp.Regexp
}

// NewClient creates a new NETCONF client for the specified host
//
// No connection is made here; each Request opens and closes its own session.
//
// Example:
//
//	client, err := netconf.NewClient(
//	    "192.168.1.1",
//	    netconf.Username("admin"),
//	    netconf.Password("secret"),
//	    netconf.KnownHostsFile("/home/admin/.ssh/known_hosts"),
//	)
//	if err != nil {
//	    log.Fatal(err)  // Configuration error
//	}
//
//	res, err := client.Get(ctx, filter)
//
// Returns a configured Client or an error if configuration validation fails.
func NewClient(host string, opts ...func(*Client)) (*Client, error) {
	client := &Client{
		Host:              host,
		Port:              DefaultPort,
		ConnectTimeout:    DefaultConnectTimeout,
		OperationTimeout:  DefaultOperationTimeout,
		MaxFrameSize:      DefaultMaxFrameSize,
		dialer:            &net.Dialer{},
		logger:            &NoOpLogger{},
		redactionPatterns: defaultRedactionPatterns,
	}

	for _, opt := range opts {
		opt(client)
	}

	if err := client.validateConfig(); err != nil {
		return nil, err
	}

	if err := client.setupHostKeyCallback(); err != nil {
		return nil, err
	}

	client.logger.Info(context.Background(), "NETCONF client created",
		"host", client.Host,
		"port", client.Port,
		"connection", "per-request")

	return client, nil
}

// HasCredentials returns true if credentials are configured
//
// This method only indicates if credentials exist without exposing
// the actual values.
func (c *Client) HasCredentials() bool {
	return c.username != "" || c.password != ""
}

// validateConfig validates client configuration
//
// Validates:
//   - Host is not empty
//   - Port range (1-65535)
//   - Positive timeouts (ConnectTimeout, OperationTimeout > 0)
//   - Positive MaxFrameSize
//   - known_hosts file exists (if provided)
//
// Returns an error if validation fails.
func (c *Client) validateConfig() error {
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("host cannot be empty")
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Port)
	}

	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive, got: %v", c.ConnectTimeout)
	}
	if c.OperationTimeout <= 0 {
		return fmt.Errorf("operation timeout must be positive, got: %v", c.OperationTimeout)
	}

	if c.MaxFrameSize <= 0 {
		return fmt.Errorf("max frame size must be positive, got: %d", c.MaxFrameSize)
	}

	if c.knownHostsFile != "" {
		if _, err := os.Stat(c.knownHostsFile); err != nil {
			// Log full path at Debug level for troubleshooting
			c.logger.Debug(context.Background(), "known_hosts validation failed",
				"path", c.knownHostsFile,
				"error", err.Error())
			// Return only filename in error to prevent path disclosure
			return fmt.Errorf("known_hosts file not found: %s", filepath.Base(c.knownHostsFile))
		}
	}

	// Warn if credentials are missing (not an error, but the device will likely refuse)
	if !c.HasCredentials() {
		c.logger.Warn(context.Background(), "No credentials configured",
			"host", c.Host,
			"message", "device may reject authentication")
	}

	return nil
}

// setupHostKeyCallback resolves the host key check: explicit callback,
// then known_hosts file, then no verification.
func (c *Client) setupHostKeyCallback() error {
	if c.hostKeyCallback != nil {
		return nil
	}
	if c.knownHostsFile != "" {
		cb, err := knownhosts.New(c.knownHostsFile)
		if err != nil {
			// The parser error carries the full path
			c.logger.Debug(context.Background(), "known_hosts parsing failed",
				"path", c.knownHostsFile,
				"error", err.Error())
			return fmt.Errorf("known_hosts file %s cannot be parsed", filepath.Base(c.knownHostsFile))
		}
		c.hostKeyCallback = cb
		return nil
	}

	c.logger.Warn(context.Background(), "Host key verification disabled",
		"host", c.Host,
		"security_risk", "Man-in-the-Middle attacks possible",
		"recommendation", "Use KnownHostsFile or HostKeyCallback in production")
	//nolint:gosec // G106: explicit opt-out, warned above
	c.hostKeyCallback = ssh.InsecureIgnoreHostKey()
	return nil
}

func (c *Client) transport() *transport {
	return &transport{
		dialer:          c.dialer,
		connectTimeout:  c.ConnectTimeout,
		hostKeyCallback: c.hostKeyCallback,
		logger:          c.logger,
	}
}

func (c *Client) endpoint() endpoint {
	return endpoint{host: c.Host, port: c.Port, username: c.username, password: c.password}
}

// createRequestContext derives the context for one exchange
//
// Timeout priority model:
//  1. Request-specific timeout (req.Timeout > 0) - highest priority
//  2. Existing context deadline (ctx.Deadline() set) - medium priority
//  3. Client default timeout (c.OperationTimeout) - fallback
//
// Caller MUST call the returned cancel function.
func (c *Client) createRequestContext(ctx context.Context, req *Req) (context.Context, context.CancelFunc) {
	if req.Timeout > 0 {
		if req.Timeout < time.Second {
			c.logger.Warn(ctx, "request timeout is very short (may not complete)",
				"timeout", req.Timeout.String(),
				"host", c.Host)
		}
		c.logger.Debug(ctx, "applying request-specific timeout",
			"timeout", req.Timeout.String(),
			"source", "request",
			"host", c.Host)
		return context.WithTimeout(ctx, req.Timeout)
	}

	if deadline, hasDeadline := ctx.Deadline(); hasDeadline {
		c.logger.Debug(ctx, "using existing context deadline",
			"remaining", time.Until(deadline).String(),
			"source", "context",
			"host", c.Host)
		return context.WithCancel(ctx)
	}

	c.logger.Debug(ctx, "applying client default timeout",
		"timeout", c.OperationTimeout.String(),
		"source", "client",
		"host", c.Host)
	return context.WithTimeout(ctx, c.OperationTimeout)
}

// prepareXMLForLogging redacts sensitive data in a request body for logging
//
// This method performs security checks and data sanitization:
//  1. Validates XML size to prevent ReDoS attacks (max 1MB)
//  2. Checks sensitive element count to prevent DoS (max 1000 elements)
//  3. Redacts sensitive element content (passwords, secrets, keys, community strings)
//
// Returns the processed XML string safe for logging.
func (c *Client) prepareXMLForLogging(xmlStr string) string {
	if len(xmlStr) > MaxXMLSizeForLogging {
		return XMLTooLargeMessage
	}

	sensitiveCount := 0
	for _, name := range sensitiveElements {
		sensitiveCount += strings.Count(xmlStr, name+">")
	}
	if sensitiveCount > MaxSensitiveFields {
		c.logger.Warn(context.Background(), "Too many sensitive fields detected",
			"count", sensitiveCount,
			"max", MaxSensitiveFields)
		return XMLTooManySensitiveMsg
	}

	return c.redactSensitiveData(xmlStr)
}

// redactSensitiveData replaces the text content of sensitive elements with
// [REDACTED], keeping the tags so the structure stays readable.
func (c *Client) redactSensitiveData(xmlStr string) string {
	result := xmlStr
	for _, pattern := range c.redactionPatterns {
		result = pattern.ReplaceAllString(result, "${1}[REDACTED]")
	}
	return result
}
