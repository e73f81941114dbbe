// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestInit(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Init("ncexporter", Options{Level: "warn", Out: &buf})
	require.NoError(t, err)

	logger.Info().Msg("dropped")
	logger.Warn().Msg("kept")

	line := gjson.Parse(buf.String())
	assert.Equal(t, "kept", line.Get("message").String())
	assert.Equal(t, "ncexporter", line.Get("app").String())
	assert.Equal(t, "warn", line.Get("level").String())
	assert.NotContains(t, buf.String(), "dropped")
}

func TestInit_InvalidLevel(t *testing.T) {
	_, err := Init("ncexporter", Options{Level: "loud"})
	assert.Error(t, err)
}

func TestAdapter_Fallback(t *testing.T) {
	var buf bytes.Buffer
	a := NewAdapter(zerolog.New(&buf))

	a.Info(context.Background(), "NETCONF request completed", "host", "leaf1", "reply_bytes", 42)

	line := gjson.Parse(buf.String())
	assert.Equal(t, "info", line.Get("level").String())
	assert.Equal(t, "NETCONF request completed", line.Get("message").String())
	assert.Equal(t, "leaf1", line.Get("host").String())
	assert.Equal(t, int64(42), line.Get("reply_bytes").Int())
}

func TestAdapter_ContextLogger(t *testing.T) {
	var fallback, scoped bytes.Buffer
	a := NewAdapter(zerolog.New(&fallback))

	ctx := zerolog.New(&scoped).With().Str("request_id", "abc").Logger().WithContext(context.Background())
	a.Error(ctx, "NETCONF request failed", "error", "boom")
	a.Debug(ctx, "debug line")
	a.Warn(ctx, "warn line")

	assert.Empty(t, fallback.String())
	assert.Contains(t, scoped.String(), `"request_id":"abc"`)
	assert.Contains(t, scoped.String(), `"error":"boom"`)
	assert.Contains(t, scoped.String(), "warn line")
}
