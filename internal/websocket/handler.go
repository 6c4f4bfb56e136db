// Sentinel - Request Security Monitoring and Incident Response
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package websocket

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/models"
)

// Handler upgrades requests to the alert stream. The optional
// min_severity query parameter filters alerts per client.
type Handler struct {
	hub            *Hub
	allowedOrigins []string
	upgrader       websocket.Upgrader
}

// NewHandler creates an upgrade handler. An allowed origin of "*" accepts any
// origin; requests without an Origin header are always rejected.
func NewHandler(hub *Hub, allowedOrigins []string) *Handler {
	h := &Handler{hub: hub, allowedOrigins: allowedOrigins}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Warn().Str("component", "websocket-hub").Msg("alert stream rejected: missing Origin header")
		return false
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	logging.Warn().Str("component", "websocket-hub").Str("origin", origin).Msg("alert stream rejected: origin not allowed")
	return false
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	minSeverity := models.Severity(strings.ToUpper(r.URL.Query().Get("min_severity")))
	if minSeverity != "" && minSeverity.Rank() == 0 {
		http.Error(w, "invalid min_severity", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.Debug().Err(err).Msg("alert stream upgrade failed")
		return
	}

	client := NewClient(h.hub, conn, minSeverity)
	select {
	case h.hub.Register <- client:
		client.Start()
	case <-time.After(writeWait):
		logging.Warn().Msg("alert stream hub not running, closing connection")
		_ = conn.Close()
	}
}
