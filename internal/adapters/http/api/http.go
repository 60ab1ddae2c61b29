// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// Streamer upgrades a request into a live projection of one session.
type Streamer interface {
	ServeSession(w http.ResponseWriter, r *http.Request, sessionID string)
}

// Server wires HTTP routes for the control-plane API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	sessionsHandler *SessionsHandler
}

// NewServer creates a new API server with all handlers. stream may be nil.
func NewServer(sessions Sessions, stream Streamer, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		sessionsHandler: NewSessionsHandler(sessions, stream),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	h := s.sessionsHandler
	mux.HandleFunc("POST /sessions", MetricsMiddleware(h.HandleCreate, "sessions_create"))
	mux.HandleFunc("GET /sessions/{id}", MetricsMiddleware(h.HandleGet, "sessions_get"))
	mux.HandleFunc("DELETE /sessions/{id}", MetricsMiddleware(h.HandleDelete, "sessions_delete"))
	mux.HandleFunc("POST /sessions/{id}/start", MetricsMiddleware(h.HandleStart, "sessions_start"))
	mux.HandleFunc("POST /sessions/{id}/stop", MetricsMiddleware(h.HandleStop, "sessions_stop"))
	mux.HandleFunc("POST /sessions/{id}/submit", MetricsMiddleware(h.HandleSubmit, "sessions_submit"))
	// The websocket handler hijacks the connection; it is not wrapped.
	mux.HandleFunc("GET /sessions/{id}/ws", h.HandleStream)
}

// createRequest mirrors the OpenAPI schema for POST /sessions.
type createRequest struct {
	QuestionID  string `json:"question_id" validate:"required"`
	InterviewID string `json:"interview_id"`
}

var validate = validator.New()

type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
