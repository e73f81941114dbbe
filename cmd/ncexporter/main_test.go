// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/netascode/go-netconf/internal/netconftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

const hostnameReply = `<rpc-reply xmlns="urn:ietf:params:xml:ns:netconf:base:1.0" message-id="1">
  <data>
    <system xmlns="urn:ietf:params:xml:ns:yang:ietf-system">
      <hostname>leaf1</hostname>
      <location>rack 4</location>
    </system>
  </data>
</rpc-reply>`

// runAgainst runs the get command against a fake device and returns
// stdout and stderr
func runAgainst(t *testing.T, srv *netconftest.Server, opts getOptions) (string, string, error) {
	t.Helper()
	opts.port = srv.Port
	opts.user = srv.Username
	opts.password = srv.Password
	opts.hostKey = ssh.FixedHostKey(srv.HostKey)
	if opts.timeout == 0 {
		opts.timeout = 5 * time.Second
	}

	var stdout, stderr bytes.Buffer
	cmd := newGetCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetContext(context.Background())
	err := runGet(cmd, srv.Host, &opts)
	return stdout.String(), stderr.String(), err
}

func TestGet_Outputs(t *testing.T) {
	srv := netconftest.Start(t, netconftest.WithHandler(func(string) string { return hostnameReply }))

	stdout, _, err := runAgainst(t, srv, getOptions{output: outputJSON})
	require.NoError(t, err)
	assert.Contains(t, stdout, `"hostname":"leaf1"`)
	assert.True(t, strings.HasSuffix(stdout, "\n"))

	stdout, _, err = runAgainst(t, srv, getOptions{output: outputYAML})
	require.NoError(t, err)
	assert.Contains(t, stdout, "hostname: leaf1")
	assert.Less(t, strings.Index(stdout, "hostname"), strings.Index(stdout, "location"))

	stdout, _, err = runAgainst(t, srv, getOptions{output: outputRaw})
	require.NoError(t, err)
	assert.Contains(t, stdout, "<hostname>leaf1</hostname>")
}

func TestGet_Filter(t *testing.T) {
	srv := netconftest.Start(t, netconftest.WithHandler(func(string) string { return hostnameReply }))

	_, _, err := runAgainst(t, srv, getOptions{
		output: outputJSON,
		filter: `<system xmlns="urn:ietf:params:xml:ns:yang:ietf-system"/>`,
	})
	require.NoError(t, err)

	requests := srv.Requests()
	require.Len(t, requests, 1)
	assert.Contains(t, requests[0], `<filter type="subtree"><system`)
}

func TestGet_CustomRPC(t *testing.T) {
	srv := netconftest.Start(t)

	_, _, err := runAgainst(t, srv, getOptions{output: outputJSON, rpc: "<get-config><source><running/></source></get-config>"})
	require.NoError(t, err)

	requests := srv.Requests()
	require.Len(t, requests, 1)
	assert.Contains(t, requests[0], "<get-config><source><running/></source></get-config>")
}

func TestGet_RPCError(t *testing.T) {
	srv := netconftest.Start(t, netconftest.WithHandler(func(string) string {
		return `<rpc-reply message-id="1"><rpc-error><error-type>application</error-type>` +
			`<error-tag>access-denied</error-tag><error-severity>error</error-severity>` +
			`<error-message>not allowed</error-message></rpc-error></rpc-reply>`
	}))

	_, stderr, err := runAgainst(t, srv, getOptions{output: outputJSON})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 rpc-error")
	assert.Contains(t, stderr, "application/access-denied: not allowed")
}

func TestGet_InvalidOutput(t *testing.T) {
	srv := netconftest.Start(t)

	_, _, err := runAgainst(t, srv, getOptions{output: "xml"})
	require.Error(t, err)
	assert.Empty(t, srv.Requests())
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"version", "--env-file", ""})
	require.NoError(t, root.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "ncexporter dev"))
}

func TestLoadEnvFile(t *testing.T) {
	const key = "NCEXPORTER_TEST_ENV_FILE"
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=from-file\n"), 0o600))

	envFile = path
	t.Cleanup(func() { envFile = ".env" })
	require.NoError(t, loadEnvFile(nil, nil))
	assert.Equal(t, "from-file", os.Getenv(key))

	envFile = filepath.Join(t.TempDir(), "missing.env")
	assert.NoError(t, loadEnvFile(nil, nil))
}
