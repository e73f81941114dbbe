// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// errorRsp is the body of every error response
type errorRsp struct {
	Result int    `json:"result"`
	Error  string `json:"error"`
}

// sendJSON writes msg as JSON. Strings and byte slices that already hold
// valid JSON are written as is.
func sendJSON(ctx context.Context, w http.ResponseWriter, status int, msg any) {
	var body []byte
	switch m := msg.(type) {
	case string:
		if json.Valid([]byte(m)) {
			body = []byte(m)
		}
	case []byte:
		if json.Valid(m) {
			body = m
		}
	default:
		var err error
		body, err = json.Marshal(msg)
		if err != nil {
			log.Ctx(ctx).Err(err).Msg("unable to marshal json")
			sendError(ctx, w, http.StatusInternalServerError, "unable to encode response")
			return
		}
	}
	if body == nil {
		log.Ctx(ctx).Error().Msg("response is not valid json")
		sendError(ctx, w, http.StatusInternalServerError, "unable to encode response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func sendText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}

func sendError(_ context.Context, w http.ResponseWriter, status int, msg string) {
	body, _ := json.Marshal(errorRsp{Result: 0, Error: msg})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
