package http

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthStatus struct {
	Status string `json:"status"`
}

// Live always answers 200 while the process serves requests.
func Live(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, MsgServiceAlive, healthStatus{Status: "ok"})
}

// Ready answers 200 when the store responds to a ping, else 503.
func Ready(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := p.Ping(ctx); err != nil {
			writeFailure(w, http.StatusServiceUnavailable, MsgServiceNotReady, healthStatus{Status: "unavailable"})
			return
		}
		writeSuccess(w, http.StatusOK, MsgServiceReady, healthStatus{Status: "ok"})
	}
}
