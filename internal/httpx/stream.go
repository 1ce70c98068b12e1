package httpx

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Vinodh-Projects/dxp-component-builder/internal/store"
	"github.com/Vinodh-Projects/dxp-component-builder/internal/ws"
)

// handleDeployLogStream serves live Maven output for one deployment over
// Server-Sent Events at /deploy/logs/{id}/stream.
func (r *Router) handleDeployLogStream(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	rest := strings.Trim(strings.TrimPrefix(req.URL.Path, "/deploy/logs/"), "/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "stream" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	id := parts[0]
	if r.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "log streaming disabled")
		return
	}
	if _, err := r.store.Get(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Deployment not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	client := ws.NewSSEClient(w, flusher, r.logger)
	r.hub.Register(id, client)
	defer func() {
		r.hub.Unregister(id, client)
		client.Close()
	}()

	heartbeat := time.NewTicker(sseHeartbeatEvery)
	defer heartbeat.Stop()
	for {
		select {
		case <-req.Context().Done():
			return
		case <-heartbeat.C:
			if err := client.Heartbeat(); err != nil {
				return
			}
		}
	}
}

// handleDeployWS upgrades to a websocket and relays build output for the
// deployment named by the deployment_id query parameter.
func (r *Router) handleDeployWS(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	id := strings.TrimSpace(req.URL.Query().Get("deployment_id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "deployment_id required")
		return
	}
	if r.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "log streaming disabled")
		return
	}
	if _, err := r.store.Get(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Deployment not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn("websocket upgrade failed", "deployment_id", id, "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	r.hub.Register(id, client)
	defer func() {
		r.hub.Unregister(id, client)
		client.Close()
	}()

	// Drain incoming frames; exit when the peer closes.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
