// Package handler exposes liveness and readiness probes for Kubernetes, load
// balancers and CI.
package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"
)

const pingTimeout = 2 * time.Second

type Handler struct {
	db *sql.DB
}

// New returns a health handler. db may be nil; readiness then only reports
// process liveness.
func New(db *sql.DB) *Handler {
	return &Handler{db: db}
}

// Live handles GET /healthz. It answers as long as the process serves requests.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, http.StatusOK, "ok")
}

// Ready handles GET /readyz. It pings the database so traffic is not routed
// to an instance that cannot serve authenticated requests.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
	}
	writeStatus(w, http.StatusOK, "ok")
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}
