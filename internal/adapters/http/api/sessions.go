package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/intervue/internal/adapters/submission"
	service "github.com/okian/intervue/internal/app"
	"github.com/okian/intervue/internal/domain/session"
	"github.com/okian/intervue/internal/recording"
)

// Sessions is the registry the handlers drive.
type Sessions interface {
	CreateSession(ctx context.Context, questionID, interviewID string) (*recording.Controller, error)
	Session(id string) (*recording.Controller, error)
	CloseSession(ctx context.Context, id string) (session.Snapshot, error)
}

// SessionsHandler handles the session lifecycle routes.
type SessionsHandler struct {
	sessions Sessions
	stream   Streamer
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(sessions Sessions, stream Streamer) *SessionsHandler {
	return &SessionsHandler{sessions: sessions, stream: stream}
}

// sessionResponse is a snapshot plus the estimator chosen at setup.
type sessionResponse struct {
	session.Snapshot
	Estimator string `json:"estimator,omitempty"`
}

type submitResponse struct {
	submission.Outcome
	SessionID string `json:"session_id"`
}

// HandleCreate handles POST /sessions requests.
func (h *SessionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}

	c, err := h.sessions.CreateSession(r.Context(), req.QuestionID, req.InterviewID)
	if err != nil {
		resp := errorFor(err)
		if c != nil {
			resp.SessionID = c.ID()
		}
		writeJSON(w, statusFor(err), resp)
		return
	}
	h.writeSession(w, r, http.StatusCreated, c)
}

// HandleGet handles GET /sessions/{id} requests.
func (h *SessionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.writeSession(w, r, http.StatusOK, c)
}

// HandleStart handles POST /sessions/{id}/start requests.
func (h *SessionsHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := c.Start(r.Context()); err != nil {
		writeFailure(w, err)
		return
	}
	h.writeSession(w, r, http.StatusOK, c)
}

// HandleStop handles POST /sessions/{id}/stop requests.
func (h *SessionsHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := c.Stop(r.Context()); err != nil {
		writeFailure(w, err)
		return
	}
	h.writeSession(w, r, http.StatusOK, c)
}

// HandleSubmit handles POST /sessions/{id}/submit requests.
func (h *SessionsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	out, err := c.Submit(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{Outcome: out, SessionID: c.ID()})
}

// HandleDelete handles DELETE /sessions/{id} requests.
func (h *SessionsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.CloseSession(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Snapshot: snap})
}

// HandleStream handles GET /sessions/{id}/ws requests.
func (h *SessionsHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	if h.stream == nil {
		writeError(w, http.StatusNotFound, "not_found", ErrNoStream)
		return
	}
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.stream.ServeSession(w, r, c.ID())
}

func (h *SessionsHandler) lookup(w http.ResponseWriter, r *http.Request) (*recording.Controller, bool) {
	c, err := h.sessions.Session(r.PathValue("id"))
	if err != nil {
		writeFailure(w, err)
		return nil, false
	}
	return c, true
}

func (h *SessionsHandler) writeSession(w http.ResponseWriter, r *http.Request, status int, c *recording.Controller) {
	snap, err := c.Snapshot(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, status, sessionResponse{Snapshot: snap, Estimator: string(c.Estimator())})
}

func writeFailure(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorFor(err))
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrCapacity), errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable
	case errors.Is(err, recording.ErrSessionFailed):
		return http.StatusServiceUnavailable
	case errors.Is(err, recording.ErrSubmissionFailed):
		return http.StatusBadGateway
	case errors.Is(err, session.ErrInvalidTransition),
		errors.Is(err, recording.ErrClosed),
		errors.Is(err, session.ErrClosed):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorFor(err error) errorResponse {
	resp := errorResponse{Message: err.Error()}
	switch {
	case errors.Is(err, service.ErrNotFound):
		resp.Code = "not_found"
	case errors.Is(err, service.ErrCapacity):
		resp.Code = "capacity"
	case errors.Is(err, service.ErrNotStarted):
		resp.Code = "unavailable"
	case errors.Is(err, recording.ErrSessionFailed):
		resp.Code = "session_failed"
	case errors.Is(err, recording.ErrSubmissionFailed):
		resp.Code = "submission_failed"
	case errors.Is(err, session.ErrInvalidTransition),
		errors.Is(err, recording.ErrClosed),
		errors.Is(err, session.ErrClosed):
		resp.Code = "invalid_transition"
	default:
		resp.Code = "internal_error"
	}

	// User-facing failures carry their own message.
	var rerr *recording.Error
	if errors.As(err, &rerr) {
		resp.Message = rerr.Message
		resp.Retryable = rerr.Retryable
	}
	return resp
}
