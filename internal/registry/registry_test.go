// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package registry

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemory())
}

func TestRedisStore(t *testing.T) {
	// Skip test if Redis is not available
	client := redis.NewClient(&redis.Options{
		Addr: "127.0.0.1:6379",
		DB:   3,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer client.FlushDB(ctx)

	s, err := NewRedis(ctx, RedisConfig{Client: client, KeyPrefix: "ncexporter-test:"})
	require.NoError(t, err)
	defer s.Close()

	testStore(t, s)
}

func TestNewRedis_RequiresClient(t *testing.T) {
	_, err := NewRedis(context.Background(), RedisConfig{})
	require.Error(t, err)
}

func testStore(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("GetNonExistent", func(t *testing.T) {
		_, err := s.Get(ctx, "missing.lab")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("PutAndGet", func(t *testing.T) {
		d := Device{Host: "leaf1.lab", Port: 830, Username: "admin", Password: "secret"}
		require.NoError(t, s.Put(ctx, d))

		got, err := s.Get(ctx, "leaf1.lab")
		require.NoError(t, err)
		assert.Equal(t, d, got)

		got, err = s.Get(ctx, " LEAF1.lab ")
		require.NoError(t, err)
		assert.Equal(t, d, got)
	})

	t.Run("PutReplaces", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, Device{Host: "leaf1.lab", Port: 2830, Username: "ops", Password: "x"}))
		got, err := s.Get(ctx, "leaf1.lab")
		require.NoError(t, err)
		assert.Equal(t, 2830, got.Port)
		assert.Equal(t, "ops", got.Username)
	})

	t.Run("HostTrimmed", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, Device{Host: " R1.lab ", Port: 830, Username: "admin", Password: "secret"}))
		got, err := s.Get(ctx, "r1.lab")
		require.NoError(t, err)
		assert.Equal(t, "R1.lab", got.Host)
	})

	t.Run("EmptyHost", func(t *testing.T) {
		assert.Error(t, s.Put(ctx, Device{Host: "  "}))
	})

	t.Run("ListSorted", func(t *testing.T) {
		require.NoError(t, Seed(ctx, s, []Device{
			{Host: "spine2.lab", Port: 830},
			{Host: "spine1.lab", Port: 830},
		}))
		names, err := s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"R1.lab", "leaf1.lab", "spine1.lab", "spine2.lab"}, names)
	})
}
