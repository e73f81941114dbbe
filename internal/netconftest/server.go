// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Package netconftest runs an in-process NETCONF-over-SSH device for tests.
//
// The device accepts password authentication, serves the "netconf"
// subsystem, sends its greeting, reads one hello plus one chunk-framed
// request, answers through a Handler and then waits for the client to end
// the session.
package netconftest

import (
	"bufio"
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"

	"golang.org/x/crypto/ssh"
)

// DefaultGreeting is a base:1.0 + base:1.1 device hello with its legacy
// terminator
const DefaultGreeting = `<?xml version="1.0" encoding="UTF-8"?>
<hello xmlns="urn:ietf:params:xml:ns:netconf:base:1.0">
  <capabilities>
    <capability>urn:ietf:params:netconf:base:1.0</capability>
    <capability>urn:ietf:params:netconf:base:1.1</capability>
  </capabilities>
  <session-id>1</session-id>
</hello>]]>]]>`

// Handler answers one request body with reply markup (unframed)
type Handler func(body string) string

// EchoOK answers every request with an empty <ok/> reply
func EchoOK(string) string {
	return `<rpc-reply xmlns="urn:ietf:params:xml:ns:netconf:base:1.0" message-id="1"><ok/></rpc-reply>`
}

// Server is a fake NETCONF device listening on 127.0.0.1
type Server struct {
	// Addr is host:port of the listener
	Addr string

	// Host and Port split Addr for clients that take them separately
	Host string
	Port int

	Username string
	Password string

	// HostKey is the server's public host key
	HostKey ssh.PublicKey

	greeting        string
	handler         Handler
	legacyFraming   bool
	truncateReply   bool
	rejectSubsystem bool
	silent          bool

	config   *ssh.ServerConfig
	listener net.Listener
	wg       sync.WaitGroup

	mu       sync.Mutex
	requests []string
	teardown int
}

// Option customizes a Server
type Option func(*Server)

// WithCredentials sets the accepted username and password
func WithCredentials(username, password string) Option {
	return func(s *Server) {
		s.Username, s.Password = username, password
	}
}

// WithGreeting replaces the device greeting (terminator included)
func WithGreeting(greeting string) Option {
	return func(s *Server) {
		s.greeting = greeting
	}
}

// WithHandler sets the reply producer (default: EchoOK)
func WithHandler(h Handler) Option {
	return func(s *Server) {
		s.handler = h
	}
}

// WithLegacyFraming ends replies with "]]>]]>" instead of chunked framing
func WithLegacyFraming() Option {
	return func(s *Server) {
		s.legacyFraming = true
	}
}

// WithTruncatedReply sends only the first half of the reply frame and then
// ends the stream
func WithTruncatedReply() Option {
	return func(s *Server) {
		s.truncateReply = true
	}
}

// WithRejectedSubsystem refuses the "netconf" subsystem request
func WithRejectedSubsystem() Option {
	return func(s *Server) {
		s.rejectSubsystem = true
	}
}

// WithSilentDevice accepts the subsystem but never sends a greeting
func WithSilentDevice() Option {
	return func(s *Server) {
		s.silent = true
	}
}

// Start launches a Server and registers its shutdown with tb.Cleanup
func Start(tb testing.TB, opts ...Option) *Server {
	tb.Helper()
	s, err := NewServer(opts...)
	if err != nil {
		tb.Fatalf("netconftest: %v", err)
	}
	tb.Cleanup(func() { s.Close() })
	return s
}

// NewServer launches a Server; the caller must Close it
func NewServer(opts ...Option) (*Server, error) {
	s := &Server{
		Username: "admin",
		Password: "admin",
		greeting: DefaultGreeting,
		handler:  EchoOK,
	}
	for _, opt := range opts {
		opt(s)
	}

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate host key: %w", err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		return nil, fmt.Errorf("host key signer: %w", err)
	}
	s.HostKey = signer.PublicKey()

	s.config = &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if c.User() == s.Username && string(pass) == s.Password {
				return nil, nil
			}
			return nil, errors.New("invalid credentials")
		},
	}
	s.config.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	s.listener = ln
	s.Addr = ln.Addr().String()
	host, port, _ := net.SplitHostPort(s.Addr)
	s.Host = host
	s.Port, _ = strconv.Atoi(port)

	s.wg.Add(1)
	go s.acceptConnections()
	return s, nil
}

// Close stops accepting connections and waits for open sessions to end
func (s *Server) Close() error {
	err := s.listener.Close()
	s.wg.Wait()
	return err
}

// Requests returns the request bodies received so far, in arrival order
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.requests))
	copy(out, s.requests)
	return out
}

// Teardowns counts sessions whose client sent end-of-stream before closing
func (s *Server) Teardowns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.teardown
}

func (s *Server) acceptConnections() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	sshConn, chans, reqs, err := ssh.NewServerConn(conn, s.config)
	if err != nil {
		return
	}
	defer sshConn.Close()
	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			newChannel.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}
		channel, requests, err := newChannel.Accept()
		if err != nil {
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleChannelRequests(channel, requests)
		}()
	}
}

func (s *Server) handleChannelRequests(channel ssh.Channel, requests <-chan *ssh.Request) {
	defer channel.Close()

	started := false
	for req := range requests {
		ok := req.Type == "subsystem" && !started && !s.rejectSubsystem && subsystemName(req.Payload) == "netconf"
		if req.WantReply {
			req.Reply(ok, nil)
		}
		if ok {
			started = true
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.serve(channel)
			}()
		}
	}
}

// serve runs one exchange and then mirrors the client's teardown
func (s *Server) serve(channel ssh.Channel) {
	defer channel.Close()
	if s.silent {
		io.Copy(io.Discard, channel)
		return
	}

	if _, err := io.WriteString(channel, s.greeting); err != nil {
		return
	}

	r := bufio.NewReader(channel)
	body, err := readRequest(r)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.requests = append(s.requests, body)
	s.mu.Unlock()

	frame := s.frame(s.handler(body))
	if s.truncateReply {
		channel.Write(frame[:len(frame)/2])
		channel.CloseWrite()
		io.Copy(io.Discard, r)
		return
	}
	if _, err := channel.Write(frame); err != nil {
		return
	}

	// the client ends the session: EOF first, then close
	if _, err := io.Copy(io.Discard, r); err == nil {
		s.mu.Lock()
		s.teardown++
		s.mu.Unlock()
	}
	channel.CloseWrite()
}

func (s *Server) frame(reply string) []byte {
	if s.legacyFraming {
		return []byte(reply + "]]>]]>")
	}
	return []byte("\n#" + strconv.Itoa(len(reply)) + "\n" + reply + "\n##\n")
}

// readRequest consumes the client hello and one chunk-framed message
func readRequest(r *bufio.Reader) (string, error) {
	if err := skipPast(r, []byte("]]>]]>")); err != nil {
		return "", fmt.Errorf("client hello: %w", err)
	}

	var body bytes.Buffer
	for {
		if err := expect(r, "\n#"); err != nil {
			return "", err
		}
		line, err := r.ReadString('\n')
		if err != nil {
			return "", err
		}
		line = line[:len(line)-1]
		if line == "#" {
			return body.String(), nil
		}
		n, err := strconv.Atoi(line)
		if err != nil || n <= 0 {
			return "", fmt.Errorf("bad chunk size %q", line)
		}
		if _, err := io.CopyN(&body, r, int64(n)); err != nil {
			return "", err
		}
	}
}

func skipPast(r *bufio.Reader, marker []byte) error {
	var window []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		window = append(window, b)
		if bytes.HasSuffix(window, marker) {
			return nil
		}
	}
}

func expect(r *bufio.Reader, s string) error {
	buf := make([]byte, len(s))
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}
	if string(buf) != s {
		return fmt.Errorf("expected %q, got %q", s, buf)
	}
	return nil
}

// subsystemName decodes the string payload of a "subsystem" request
func subsystemName(payload []byte) string {
	var msg struct{ Name string }
	if err := ssh.Unmarshal(payload, &msg); err != nil {
		return ""
	}
	return msg.Name
}
