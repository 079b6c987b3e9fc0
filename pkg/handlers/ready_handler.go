package handlers

import (
	"context"
	"net/http"
	"time"
)

const readyCheckTimeout = 2 * time.Second

// NewReadyHandler - readiness probe. The check pings whatever backing store
// the relay is configured with; a nil check means there is nothing external
// to wait on and the handler always reports ready.
func NewReadyHandler(check func(ctx context.Context) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
			defer cancel()

			if err := check(ctx); err != nil {
				http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ready")); err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	})
}
