// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Package registry keeps the devices the exporter may query, keyed by host
// name. Two backends exist: an in-process map and a redis hash shared by
// several exporter replicas.
package registry

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned by Get for a host that was never registered
var ErrNotFound = errors.New("device not found")

// Device holds the connection parameters of one registered device
type Device struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"user"`
	Password string `json:"password"`
}

// Store persists devices by host name. Put replaces an existing entry.
type Store interface {
	Put(ctx context.Context, d Device) error
	Get(ctx context.Context, host string) (Device, error)
	List(ctx context.Context) ([]string, error)
	Close() error
}

// Seed registers every device, stopping at the first failure
func Seed(ctx context.Context, s Store, devices []Device) error {
	for _, d := range devices {
		if err := s.Put(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

func normalize(host string) string {
	return strings.ToLower(strings.TrimSpace(host))
}
