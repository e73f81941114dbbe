// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/netascode/go-netconf/internal/config"
	"github.com/netascode/go-netconf/internal/logging"
	"github.com/netascode/go-netconf/internal/optics"
	"github.com/netascode/go-netconf/internal/registry"
	"github.com/netascode/go-netconf/internal/server"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var configFile string
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and prometheus metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, configFile, watch)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to the TOML config file")
	cmd.Flags().BoolVar(&watch, "watch", true, "Re-seed the device registry when the config file changes")
	return cmd
}

func serve(ctx context.Context, configFile string, watch bool) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logger, err := logging.Init("ncexporter", logging.Options{Level: cfg.Log.Level, Console: cfg.Log.Console})
	if err != nil {
		return err
	}
	ctx = logger.WithContext(ctx)

	store, err := openStore(ctx, cfg.Registry)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing device registry")
		}
	}()

	if err := registry.Seed(ctx, store, cfg.RegistryDevices()); err != nil {
		return fmt.Errorf("seed device registry: %w", err)
	}
	logger.Info().
		Str("backend", cfg.Registry.Backend).
		Int("devices", len(cfg.Devices)).
		Msg("device registry ready")

	if watch && configFile != "" {
		go func() {
			err := config.Watch(ctx, configFile, func(next *config.Config) {
				if err := registry.Seed(ctx, store, next.RegistryDevices()); err != nil {
					logger.Error().Err(err).Msg("re-seeding device registry failed")
				}
			})
			if err != nil {
				logger.Error().Err(err).Msg("config watch stopped")
			}
		}()
	}

	srv := server.New(server.Options{
		Store:         store,
		Metrics:       optics.NewMetrics(),
		ClientOptions: cfg.ClientOptions(),
		CORSOrigins:   cfg.Server.CORSOrigins,
		Logger:        logger,
	})
	return srv.ListenAndServe(ctx, cfg.Server.Listen, cfg.Server.ShutdownTimeout)
}

func openStore(ctx context.Context, cfg config.RegistryConfig) (registry.Store, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		store, err := registry.NewRedis(ctx, registry.RedisConfig{Client: client, KeyPrefix: cfg.KeyPrefix})
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("open redis registry at %s: %w", cfg.RedisAddr, err)
		}
		return store, nil
	default:
		return registry.NewMemory(), nil
	}
}
