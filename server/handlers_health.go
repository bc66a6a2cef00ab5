package server

import (
	"context"
	"net/http"
	"time"
)

type healthResponse struct {
	Status   string `json:"status"`
	Keystore string `json:"keystore,omitempty"`
	Database string `json:"database,omitempty"`
}

func (s *Server) Healthz() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}

// Readyz reports ready once a signing key is loaded and the database answers a ping.
func (s *Server) Readyz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok", Keystore: "ok", Database: "ok"}
		status := http.StatusOK

		if err := s.engines.Issuer.Ready(); err != nil {
			resp.Keystore = err.Error()
			status = http.StatusServiceUnavailable
		}
		if s.db == nil {
			resp.Database = "not configured"
		} else {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := s.db.Ping(ctx); err != nil {
				resp.Database = "unreachable"
				status = http.StatusServiceUnavailable
			}
		}
		if status != http.StatusOK {
			resp.Status = "unavailable"
		}
		writeJSON(w, status, resp)
	}
}
