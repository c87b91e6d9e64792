package handler

import (
	"context"
	"net/http"
	"time"
)

const pingTimeout = 2 * time.Second

// Pinger checks storage availability
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health reports whether the store is reachable
func Health(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()

		if err := p.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
