// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package main

import (
	"errors"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	envFile  string
	logLevel string
)

var (
	okLabel    = color.New(color.FgGreen)
	errorLabel = color.New(color.FgRed)
	headLabel  = color.New(color.FgCyan, color.Bold)
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ncexporter [command] [flags]",
		Short: "NETCONF optics exporter",
		Long: `ncexporter reads transceiver state from network devices over NETCONF.

Examples:
  # Serve the HTTP API and prometheus metrics
  ncexporter serve --config ncexporter.toml

  # Run one <get> against a device and print the reply as YAML
  ncexporter get 192.168.1.1 -u admin -p secret -o yaml`,
		PersistentPreRunE: loadEnvFile,
		SilenceErrors:     true,
		SilenceUsage:      true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file loaded before the command runs")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (trace, debug, info, warn, error)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newGetCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// loadEnvFile loads the dotenv file when it exists. Variables already in
// the environment win.
func loadEnvFile(_ *cobra.Command, _ []string) error {
	if envFile == "" {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = errorLabel.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
