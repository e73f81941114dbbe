// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Memory is a Store backed by a map
type Memory struct {
	mu      sync.RWMutex
	devices map[string]Device
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory Store
func NewMemory() *Memory {
	return &Memory{devices: make(map[string]Device)}
}

func (m *Memory) Put(_ context.Context, d Device) error {
	d.Host = strings.TrimSpace(d.Host)
	key := normalize(d.Host)
	if key == "" {
		return fmt.Errorf("device host cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices[key] = d
	return nil
}

func (m *Memory) Get(_ context.Context, host string) (Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.devices[normalize(host)]
	if !ok {
		return Device{}, fmt.Errorf("%w: %s", ErrNotFound, host)
	}
	return d, nil
}

// List returns the registered host names in sorted order
func (m *Memory) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.devices))
	for _, d := range m.devices {
		names = append(names, d.Host)
	}
	sort.Strings(names)
	return names, nil
}

func (m *Memory) Close() error { return nil }
