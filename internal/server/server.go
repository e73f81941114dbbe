// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Package server is the exporter's HTTP front end: device registration,
// on-demand transceiver reads and the prometheus endpoint.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/netascode/go-netconf"
	"github.com/netascode/go-netconf/internal/logging"
	"github.com/netascode/go-netconf/internal/optics"
	"github.com/netascode/go-netconf/internal/registry"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options configures a Server
type Options struct {
	Store   registry.Store
	Metrics *optics.Metrics

	// ClientOptions are applied to every device client after the
	// per-device port and credentials
	ClientOptions []func(*netconf.Client)

	// CORSOrigins enables CORS for the listed origins
	CORSOrigins []string

	Logger zerolog.Logger
}

// Server routes HTTP requests to the registry and the NETCONF pipeline
type Server struct {
	Router *chi.Mux

	store      registry.Store
	metrics    *optics.Metrics
	clientOpts []func(*netconf.Client)
	logger     zerolog.Logger
	validate   *validator.Validate
}

// New builds the router with every handler mounted
func New(opts Options) *Server {
	s := &Server{
		Router:     chi.NewRouter(),
		store:      opts.Store,
		metrics:    opts.Metrics,
		clientOpts: opts.ClientOptions,
		logger:     opts.Logger,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
	if s.metrics == nil {
		s.metrics = optics.NewMetrics()
	}

	s.Router.Use(requestLogger(s.logger))
	s.Router.Use(panicHandler)
	if len(opts.CORSOrigins) > 0 {
		s.Router.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			ExposedHeaders: []string{RequestIDHeader},
			MaxAge:         300,
		}))
	}

	s.Router.Post("/add_host", s.addHost)
	s.Router.Get("/get_hosts", s.getHosts)
	s.Router.Get("/get_json/{host}", s.getJSON)
	s.Router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	s.Router.Get("/ready", s.getReadiness)
	return s
}

// ServeHTTP lets a Server be used directly as a handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully within shutdownTimeout
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	s.logger.Info().Msg("HTTP server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// addHostReq is the body of POST /add_host
type addHostReq struct {
	Host     string `json:"host" validate:"required"`
	Port     int    `json:"port" validate:"required,min=1,max=65535"`
	User     string `json:"user" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (s *Server) addHost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req addHostReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Ctx(ctx).Debug().Err(err).Msg("unable to parse add_host body")
		sendError(ctx, w, http.StatusBadRequest, "unable to parse request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		sendError(ctx, w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	d := registry.Device{Host: req.Host, Port: req.Port, Username: req.User, Password: req.Password}
	if err := s.store.Put(ctx, d); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("host", req.Host).Msg("unable to register device")
		sendError(ctx, w, http.StatusInternalServerError, "unable to register device")
		return
	}
	log.Ctx(ctx).Info().Str("host", req.Host).Int("port", req.Port).Msg("device registered")
	sendText(w, http.StatusOK, req.Host+" added successfully")
}

func (s *Server) getHosts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	names, err := s.store.List(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("unable to list devices")
		sendError(ctx, w, http.StatusInternalServerError, "unable to list devices")
		return
	}
	sendJSON(ctx, w, http.StatusOK, names)
}

// getJSON reads the transceiver state of one device, updates the gauges
// and returns the summary
func (s *Server) getJSON(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	host := chi.URLParam(r, "host")

	d, err := s.store.Get(ctx, host)
	if errors.Is(err, registry.ErrNotFound) {
		sendError(ctx, w, http.StatusNotFound, "unknown host: "+host)
		return
	}
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("host", host).Msg("unable to look up device")
		sendError(ctx, w, http.StatusInternalServerError, "unable to look up device")
		return
	}

	opts := append([]func(*netconf.Client){
		netconf.Port(d.Port),
		netconf.Username(d.Username),
		netconf.Password(d.Password),
		netconf.WithLogger(logging.NewAdapter(s.logger)),
	}, s.clientOpts...)
	client, err := netconf.NewClient(d.Host, opts...)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("host", host).Msg("invalid device configuration")
		sendError(ctx, w, http.StatusInternalServerError, "invalid device configuration")
		return
	}

	v, err := client.RequestValue(ctx, netconf.GetRPC(optics.TransceiverFilter))
	if err != nil {
		s.deviceError(ctx, w, host, err)
		return
	}
	summary, err := optics.Summarize(v)
	if err != nil {
		s.deviceError(ctx, w, host, err)
		return
	}

	set := s.metrics.Update(ctx, d.Host, summary)
	log.Ctx(ctx).Debug().Str("host", host).Int("gauges", set).Msg("optics gauges updated")
	sendJSON(ctx, w, http.StatusOK, summary)
}

// deviceError maps a failed exchange to 502 and logs the internal detail
func (s *Server) deviceError(ctx context.Context, w http.ResponseWriter, host string, err error) {
	detail := err.Error()
	var nerr *netconf.Error
	if errors.As(err, &nerr) {
		detail = nerr.DetailedError()
	}
	log.Ctx(ctx).Error().Str("host", host).Str("detail", detail).Msg("device request failed")
	sendError(ctx, w, http.StatusBadGateway, err.Error())
}

func (s *Server) getReadiness(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := s.store.List(ctx); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("registry unavailable during readiness check")
		sendJSON(ctx, w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  "registry unavailable",
		})
		return
	}
	sendJSON(ctx, w, http.StatusOK, map[string]string{"status": "ready"})
}
