// Package health serves liveness and readiness probes.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type status struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Handler reports that the process is up.
func Handler(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, http.StatusOK, status{Status: "ok"})
}

// Ready reports whether the database answers a ping within two seconds.
func Ready(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, status{Status: "unavailable", Error: "database unreachable"})
			return
		}
		writeStatus(w, http.StatusOK, status{Status: "ok"})
	}
}

func writeStatus(w http.ResponseWriter, code int, s status) {
	body, _ := json.Marshal(s)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}
