// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/netascode/go-netconf"
	"github.com/netascode/go-netconf/internal/logging"
	"github.com/netascode/go-netconf/internal/optics"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"
)

// Output formats of the get command
const (
	outputRaw  = "raw"
	outputJSON = netconf.EncodingJSON
	outputYAML = netconf.EncodingYAML
)

type getOptions struct {
	port       int
	user       string
	password   string
	filter     string
	rpc        string
	output     string
	optics     bool
	knownHosts string
	timeout    time.Duration

	// hostKey overrides known_hosts verification; set by tests
	hostKey ssh.HostKeyCallback
}

func newGetCmd() *cobra.Command {
	opts := &getOptions{}

	cmd := &cobra.Command{
		Use:   "get HOST [flags]",
		Short: "Run one NETCONF request against a device",
		Long: `Run one NETCONF request against a device and print the reply.

Examples:
  # Full <get> printed as JSON
  ncexporter get 192.168.1.1 -u admin -p secret

  # Subtree filter printed as YAML
  ncexporter get 192.168.1.1 -u admin -p secret -o yaml \
      --filter '<system xmlns="urn:ietf:params:xml:ns:yang:ietf-system"/>'

  # Transceiver summary as served by /get_json
  ncexporter get 192.168.1.1 -u admin -p secret --optics`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd, args[0], opts)
		},
	}

	cmd.Flags().IntVarP(&opts.port, "port", "P", netconf.DefaultPort, "NETCONF-over-SSH port")
	cmd.Flags().StringVarP(&opts.user, "user", "u", os.Getenv("NCEXPORTER_USER"), "SSH username")
	cmd.Flags().StringVarP(&opts.password, "password", "p", "", "SSH password (default $NCEXPORTER_PASSWORD)")
	cmd.Flags().StringVarP(&opts.filter, "filter", "f", "", "Subtree filter for <get>")
	cmd.Flags().StringVar(&opts.rpc, "rpc", "", "Operation body sent instead of <get>, wrapped in <rpc>")
	cmd.Flags().StringVarP(&opts.output, "output", "o", outputJSON, "Output format: raw, json or yaml")
	cmd.Flags().BoolVar(&opts.optics, "optics", false, "Read transceiver state and print the optics summary as JSON")
	cmd.Flags().StringVar(&opts.knownHosts, "known-hosts", "", "known_hosts file used to verify the device key")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", netconf.DefaultOperationTimeout, "Request timeout")
	return cmd
}

func runGet(cmd *cobra.Command, host string, opts *getOptions) error {
	if opts.output != outputRaw {
		if err := netconf.ValidateEncoding(opts.output); err != nil {
			return err
		}
	}
	if opts.password == "" {
		opts.password = os.Getenv("NCEXPORTER_PASSWORD")
	}

	level := logLevel
	if level == "" {
		level = "warn"
	}
	logger, err := logging.Init("ncexporter", logging.Options{Level: level, Console: true, Out: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}

	clientOpts := []func(*netconf.Client){
		netconf.Port(opts.port),
		netconf.Username(opts.user),
		netconf.Password(opts.password),
		netconf.OperationTimeout(opts.timeout),
		netconf.WithLogger(logging.NewAdapter(logger)),
	}
	if opts.knownHosts != "" {
		clientOpts = append(clientOpts, netconf.KnownHostsFile(opts.knownHosts))
	}
	if opts.hostKey != nil {
		clientOpts = append(clientOpts, netconf.HostKeyCallback(opts.hostKey))
	}
	client, err := netconf.NewClient(host, clientOpts...)
	if err != nil {
		return err
	}

	body := netconf.GetRPC(opts.filter)
	switch {
	case opts.optics:
		body = netconf.GetRPC(optics.TransceiverFilter)
	case opts.rpc != "":
		body = netconf.NewRPC(opts.rpc)
	}

	ctx := logger.WithContext(cmd.Context())
	res, err := client.Request(ctx, body)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.output == outputRaw && !opts.optics {
		_, _ = fmt.Fprintln(out, res.Raw)
		return nil
	}

	v, err := res.Decode()
	if err != nil {
		return err
	}
	if rpcErrs := netconf.RPCErrors(v); len(rpcErrs) > 0 {
		for _, e := range rpcErrs {
			_, _ = errorLabel.Fprintf(cmd.ErrOrStderr(), "rpc-error %s/%s: %s\n", e.Type, e.Tag, e.Message)
		}
		return fmt.Errorf("device returned %d rpc-error(s)", len(rpcErrs))
	}

	if opts.optics {
		summary, err := optics.Summarize(v)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, summary)
		return nil
	}

	rendered, err := v.Encode(opts.output)
	if err != nil {
		return err
	}
	_, _ = headLabel.Fprintf(cmd.ErrOrStderr(), "%s:%d (%s)\n", host, opts.port, time.Unix(0, res.Timestamp).Format(time.RFC3339))
	_, _ = out.Write(rendered)
	if opts.output == outputJSON {
		_, _ = fmt.Fprintln(out)
	}
	_, _ = okLabel.Fprintln(cmd.ErrOrStderr(), "ok")
	return nil
}
