// Package ws projects live session changes to websocket subscribers. The
// hub is purely reactive: it renders what it is told and never touches
// session state.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/intervue/internal/adapters/submission"
	"github.com/okian/intervue/internal/domain/session"
	"github.com/okian/intervue/internal/domain/signal"
	"github.com/okian/intervue/internal/recording"
	"github.com/okian/intervue/pkg/logger"
)

// Message types.
const (
	TypeFrame      = "frame"
	TypeLevel      = "level"
	TypeTranscript = "transcript"
	TypeElapsed    = "elapsed"
	TypeTransition = "transition"
	TypeSubmitted  = "submitted"
)

// Level is the rendered audio level.
type Level struct {
	Percentage float64           `json:"percentage"`
	Engagement signal.Engagement `json:"engagement"`
}

// Message is one update sent to subscribers.
type Message struct {
	Type           string              `json:"type"`
	SessionID      string              `json:"session_id"`
	Frame          *signal.Frame       `json:"frame,omitempty"`
	Level          *Level              `json:"level,omitempty"`
	Fragment       *signal.Fragment    `json:"fragment,omitempty"`
	Transcript     string              `json:"transcript,omitempty"`
	ElapsedSeconds float64             `json:"elapsed_seconds,omitempty"`
	Transition     *session.Transition `json:"transition,omitempty"`
	Outcome        *submission.Outcome `json:"outcome,omitempty"`
}

// Upgrader configures the websocket handshake.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type client struct {
	sessionID string
	conn      *websocket.Conn
	send      chan []byte
}

// Hub fans session updates out to the clients subscribed to each session.
type Hub struct {
	sendBuffer   int
	pingInterval time.Duration
	logger       logger.Logger

	mu          sync.RWMutex
	subscribers map[string]map[*client]struct{}
}

var _ recording.Projector = (*Hub)(nil)

// NewHub creates a hub with configuration options.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		sendBuffer:   defaultSendBuffer,
		pingInterval: defaultPingInterval,
		subscribers:  make(map[string]map[*client]struct{}),
	}

	// Apply all options
	for _, opt := range opts {
		opt(h)
	}

	if h.logger == nil {
		h.logger = logger.Get().Named("ws")
	}
	return h
}

// ServeSession upgrades the request and subscribes it to sessionID.
func (h *Hub) ServeSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}
	c := &client{
		sessionID: sessionID,
		conn:      conn,
		send:      make(chan []byte, h.sendBuffer),
	}
	h.register(c)
	go h.writePump(c)
	go h.readPump(c)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, subs := range h.subscribers {
		n += len(subs)
	}
	return n
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, subs := range h.subscribers {
		for c := range subs {
			close(c.send)
		}
		delete(h.subscribers, id)
	}
}

// FrameSampled projects a signal frame.
func (h *Hub) FrameSampled(ctx context.Context, sessionID string, f signal.Frame) {
	h.broadcast(ctx, Message{Type: TypeFrame, SessionID: sessionID, Frame: &f})
}

// LevelSampled projects an audio level.
func (h *Hub) LevelSampled(ctx context.Context, sessionID string, l signal.AudioLevel) {
	h.broadcast(ctx, Message{
		Type:      TypeLevel,
		SessionID: sessionID,
		Level:     &Level{Percentage: l.Percentage, Engagement: l.Engagement()},
	})
}

// TranscriptReceived projects an interim or final fragment together with
// the accumulated transcript.
func (h *Hub) TranscriptReceived(ctx context.Context, sessionID string, f signal.Fragment, transcript string) {
	h.broadcast(ctx, Message{Type: TypeTranscript, SessionID: sessionID, Fragment: &f, Transcript: transcript})
}

// ElapsedTicked projects the recording timer.
func (h *Hub) ElapsedTicked(ctx context.Context, sessionID string, elapsed time.Duration) {
	h.broadcast(ctx, Message{Type: TypeElapsed, SessionID: sessionID, ElapsedSeconds: elapsed.Seconds()})
}

// Transitioned projects a status change.
func (h *Hub) Transitioned(ctx context.Context, t session.Transition) {
	h.broadcast(ctx, Message{Type: TypeTransition, SessionID: t.SessionID, Transition: &t})
}

// Submitted projects the feedback of an accepted answer.
func (h *Hub) Submitted(ctx context.Context, sessionID string, out submission.Outcome) {
	h.broadcast(ctx, Message{Type: TypeSubmitted, SessionID: sessionID, Outcome: &out})
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.subscribers[c.sessionID]
	if !ok {
		subs = make(map[*client]struct{})
		h.subscribers[c.sessionID] = subs
	}
	subs[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	subs, ok := h.subscribers[c.sessionID]
	if !ok {
		return
	}
	if _, ok := subs[c]; !ok {
		return
	}
	delete(subs, c)
	close(c.send)
	if len(subs) == 0 {
		delete(h.subscribers, c.sessionID)
	}
}

// broadcast never blocks: a client whose buffer is full is dropped.
func (h *Hub) broadcast(ctx context.Context, m Message) {
	h.mu.RLock()
	n := len(h.subscribers[m.SessionID])
	h.mu.RUnlock()
	if n == 0 {
		return
	}

	data, err := json.Marshal(m)
	if err != nil {
		h.logger.Error(ctx, "failed to marshal projection", logger.String("type", m.Type), logger.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.subscribers[m.SessionID] {
		select {
		case c.send <- data:
		default:
			h.logger.Warn(ctx, "dropping slow websocket client", logger.String("sessionID", m.SessionID))
			h.removeLocked(c)
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.unregister(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(c)
				return
			}
		}
	}
}

// readPump discards client input and unregisters on disconnect.
func (h *Hub) readPump(c *client) {
	defer h.unregister(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
