// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix prefixes every key written by the redis store
const DefaultKeyPrefix = "ncexporter:"

// RedisConfig configures the redis store
type RedisConfig struct {
	// Client is the redis client; the store takes ownership and closes it
	Client *redis.Client

	// KeyPrefix defaults to DefaultKeyPrefix
	KeyPrefix string
}

// Redis is a Store backed by one redis hash, field = host, value = JSON device
type Redis struct {
	client    *redis.Client
	keyPrefix string
}

var _ Store = (*Redis)(nil)

// NewRedis creates a redis-backed Store and checks the server is reachable
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	if err := cfg.Client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{client: cfg.Client, keyPrefix: cfg.KeyPrefix}, nil
}

func (r *Redis) devicesKey() string { return r.keyPrefix + "devices" }

func (r *Redis) Put(ctx context.Context, d Device) error {
	d.Host = strings.TrimSpace(d.Host)
	key := normalize(d.Host)
	if key == "" {
		return fmt.Errorf("device host cannot be empty")
	}
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal device: %w", err)
	}
	if err := r.client.HSet(ctx, r.devicesKey(), key, data).Err(); err != nil {
		return fmt.Errorf("failed to store device %s: %w", d.Host, err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, host string) (Device, error) {
	raw, err := r.client.HGet(ctx, r.devicesKey(), normalize(host)).Result()
	if errors.Is(err, redis.Nil) {
		return Device{}, fmt.Errorf("%w: %s", ErrNotFound, host)
	}
	if err != nil {
		return Device{}, fmt.Errorf("failed to get device %s: %w", host, err)
	}
	var d Device
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return Device{}, fmt.Errorf("failed to unmarshal device %s: %w", host, err)
	}
	return d, nil
}

// List returns the registered host names in sorted order
func (r *Redis) List(ctx context.Context) ([]string, error) {
	vals, err := r.client.HVals(ctx, r.devicesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	names := make([]string, 0, len(vals))
	for _, raw := range vals {
		var d Device
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			return nil, fmt.Errorf("failed to unmarshal device: %w", err)
		}
		names = append(names, d.Host)
	}
	sort.Strings(names)
	return names, nil
}

// Close closes the redis client
func (r *Redis) Close() error { return r.client.Close() }
