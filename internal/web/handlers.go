package web

import (
	"context"
	"net/http"
	"time"

	"github.com/JonMunkholm/shipload/internal/core"
)

// healthTimeout bounds the store ping behind /healthz.
const healthTimeout = 2 * time.Second

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string             `json:"status"`
	Engine string             `json:"engine"`
	Run    core.RunGateStatus `json:"run"`
	Error  string             `json:"error,omitempty"`
}

// handleHealth pings the store.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := HealthResponse{Status: "ok", Engine: s.health.Engine(), Run: s.gate.Status()}
	if err := s.health.Ping(ctx); err != nil {
		msg := core.MapError(err)
		loggerFor(r).Warn("health check failed", "error", err, "code", msg.Code)
		resp.Status = "unavailable"
		resp.Error = msg.Message
		writeJSON(w, r, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// handleRun runs the configured sources to completion and returns the
// result. The request context bounds the run: a client that goes away
// rolls it back.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if err := s.gate.TryEnter(); err != nil {
		s.respondError(w, r, err, http.StatusConflict)
		return
	}
	defer s.gate.Leave()

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	log := loggerFor(r)
	log.Info("run requested",
		"direct", s.sources.Direct,
		"joined_left", s.sources.JoinedLeft,
		"joined_right", s.sources.JoinedRight,
	)

	res, err := s.runner.Run(ctx, s.sources)
	if res != nil {
		s.setLatest(res)
	}
	if err != nil {
		status := statusFor(err)
		log.Error("run failed", "error", err, "status", status)
		if res == nil {
			s.respondError(w, r, err, status)
			return
		}
		writeJSON(w, r, status, res)
		return
	}

	writeJSON(w, r, http.StatusOK, res)
}

// handleLatestRun returns the most recent result, committed or not.
func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	res := s.Latest()
	if res == nil {
		respondErrorJSON(w, msgNoRuns, http.StatusNotFound)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}
