// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Package config loads the exporter configuration: a TOML file, then
// NCEXPORTER_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joeshaw/envdecode"
	"github.com/netascode/go-netconf"
	"github.com/netascode/go-netconf/internal/registry"
)

// Registry backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// ServerConfig holds the HTTP front end settings
type ServerConfig struct {
	Listen          string        `toml:"listen" env:"NCEXPORTER_LISTEN" validate:"required"`
	CORSOrigins     []string      `toml:"cors_origins"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" env:"NCEXPORTER_SHUTDOWN_TIMEOUT" validate:"gt=0"`
}

// NetconfConfig holds the defaults used for every device session
type NetconfConfig struct {
	Port             int           `toml:"port" env:"NCEXPORTER_NETCONF_PORT" validate:"min=1,max=65535"`
	ConnectTimeout   time.Duration `toml:"connect_timeout" env:"NCEXPORTER_CONNECT_TIMEOUT" validate:"gt=0"`
	OperationTimeout time.Duration `toml:"operation_timeout" env:"NCEXPORTER_OPERATION_TIMEOUT" validate:"gt=0"`
	KnownHostsFile   string        `toml:"known_hosts_file" env:"NCEXPORTER_KNOWN_HOSTS"`
	MaxFrameSize     int           `toml:"max_frame_size" env:"NCEXPORTER_MAX_FRAME_SIZE" validate:"gt=0"`
}

// RegistryConfig selects the device registry backend
type RegistryConfig struct {
	Backend   string `toml:"backend" env:"NCEXPORTER_REGISTRY" validate:"oneof=memory redis"`
	RedisAddr string `toml:"redis_addr" env:"NCEXPORTER_REDIS_ADDR" validate:"required_if=Backend redis"`
	KeyPrefix string `toml:"key_prefix" env:"NCEXPORTER_REDIS_KEY_PREFIX"`
}

// LogConfig selects the log level and format
type LogConfig struct {
	Level   string `toml:"level" env:"NCEXPORTER_LOG_LEVEL" validate:"oneof=trace debug info warn error"`
	Console bool   `toml:"console" env:"NCEXPORTER_LOG_CONSOLE"`
}

// Device is a device entry of the config file. Port 0 means the netconf
// default port.
type Device struct {
	Host     string `toml:"host" validate:"required"`
	Port     int    `toml:"port" validate:"omitempty,min=1,max=65535"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

// Config is the complete exporter configuration
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Netconf  NetconfConfig  `toml:"netconf"`
	Registry RegistryConfig `toml:"registry"`
	Log      LogConfig      `toml:"log"`
	Devices  []Device       `toml:"devices" validate:"dive"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:          ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Netconf: NetconfConfig{
			Port:             netconf.DefaultPort,
			ConnectTimeout:   netconf.DefaultConnectTimeout,
			OperationTimeout: netconf.DefaultOperationTimeout,
			MaxFrameSize:     netconf.DefaultMaxFrameSize,
		},
		Registry: RegistryConfig{
			Backend:   BackendMemory,
			KeyPrefix: registry.DefaultKeyPrefix,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the TOML file at path (skipped when path is empty), applies
// environment overrides and validates the result
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Registry.Backend = strings.ToLower(strings.TrimSpace(cfg.Registry.Backend))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// RegistryDevices converts the file's device list, filling in the default
// port
func (c *Config) RegistryDevices() []registry.Device {
	out := make([]registry.Device, 0, len(c.Devices))
	for _, d := range c.Devices {
		port := d.Port
		if port == 0 {
			port = c.Netconf.Port
		}
		out = append(out, registry.Device{
			Host:     strings.TrimSpace(d.Host),
			Port:     port,
			Username: d.User,
			Password: d.Password,
		})
	}
	return out
}

// ClientOptions returns the netconf client options shared by all devices
func (c *Config) ClientOptions() []func(*netconf.Client) {
	opts := []func(*netconf.Client){
		netconf.ConnectTimeout(c.Netconf.ConnectTimeout),
		netconf.OperationTimeout(c.Netconf.OperationTimeout),
		netconf.MaxFrameSize(c.Netconf.MaxFrameSize),
	}
	if c.Netconf.KnownHostsFile != "" {
		opts = append(opts, netconf.KnownHostsFile(c.Netconf.KnownHostsFile))
	}
	return opts
}
