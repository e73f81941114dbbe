// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Package logging configures the process-wide zerolog logger and bridges the
// netconf library's Logger interface onto it.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/netascode/go-netconf"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options selects the log level and output style
type Options struct {
	// Level is a zerolog level name (debug, info, warn, error); default info
	Level string

	// Console switches from JSON lines to the human-readable console writer
	Console bool

	// Out defaults to os.Stderr
	Out io.Writer
}

// Init builds the global logger and returns it
func Init(app string, opts Options) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	if opts.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(out).Level(level).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger, nil
}

// Adapter implements netconf.Logger on zerolog. The logger stored in the
// call's context wins over the fallback, so library records carry the
// request id set by the HTTP middleware.
type Adapter struct {
	fallback zerolog.Logger
}

var _ netconf.Logger = (*Adapter)(nil)

// NewAdapter wraps fallback, used when the context carries no logger
func NewAdapter(fallback zerolog.Logger) *Adapter {
	return &Adapter{fallback: fallback}
}

func (a *Adapter) Debug(ctx context.Context, msg string, keysAndValues ...any) {
	a.logger(ctx).Debug().Fields(keysAndValues).Msg(msg)
}

func (a *Adapter) Info(ctx context.Context, msg string, keysAndValues ...any) {
	a.logger(ctx).Info().Fields(keysAndValues).Msg(msg)
}

func (a *Adapter) Warn(ctx context.Context, msg string, keysAndValues ...any) {
	a.logger(ctx).Warn().Fields(keysAndValues).Msg(msg)
}

func (a *Adapter) Error(ctx context.Context, msg string, keysAndValues ...any) {
	a.logger(ctx).Error().Fields(keysAndValues).Msg(msg)
}

func (a *Adapter) logger(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if l := zerolog.Ctx(ctx); l != zerolog.DefaultContextLogger && l.GetLevel() != zerolog.Disabled {
			return l
		}
	}
	return &a.fallback
}
