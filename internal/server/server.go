// Package server exposes the dialogue engine over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"supportbot-engine/internal/common/logger"
	"supportbot-engine/internal/engine"
)

// maxMessageBytes bounds request bodies; utterances are short.
const maxMessageBytes = 64 * 1024

// Server routes HTTP traffic to the engine service.
type Server struct {
	svc    *engine.Service
	logger logger.Logger
	mux    *http.ServeMux
}

func New(svc *engine.Service, log logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{svc: svc, logger: log, mux: http.NewServeMux()}

	s.mux.HandleFunc("POST /v1/messages", s.handleMessage)
	s.mux.HandleFunc("GET /v1/sessions/{key}", s.handleGetSession)
	s.mux.HandleFunc("DELETE /v1/sessions/{key}", s.handleClearSession)
	s.mux.HandleFunc("GET /v1/stats", s.handleStats)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type messageRequest struct {
	SessionKey string       `json:"sessionKey"`
	Message    string       `json:"message"`
	Hints      engine.Hints `json:"hints"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	body := http.MaxBytesReader(w, r.Body, maxMessageBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.SessionKey) == "" {
		writeError(w, http.StatusBadRequest, "sessionKey is required")
		return
	}

	result := s.svc.ProcessMessage(r.Context(), req.SessionKey, req.Message, req.Hints)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	ctx, ok := s.svc.SessionContext(key)
	if !ok {
		writeError(w, http.StatusNotFound, "no such session")
		return
	}
	writeJSON(w, http.StatusOK, ctx)
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if !s.svc.ClearContext(key) {
		writeError(w, http.StatusNotFound, "no such session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Stats())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
