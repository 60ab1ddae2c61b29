package drill

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/okian/intervue/internal/adapters/submission"
	"github.com/okian/intervue/internal/adapters/telemetry"
	"github.com/okian/intervue/internal/domain/dedupe"
	"github.com/okian/intervue/pkg/logger"
)

const collectorReadHeaderTimeout = 5 * time.Second

// Collector is an in-process stand-in for the interview backend. It
// accepts telemetry and answers submissions, counting both.
type Collector struct {
	srv      *http.Server
	listener net.Listener

	mu        sync.Mutex
	frames    map[string]int
	answers   []submission.Request
	calls     int
	questions int
	failEvery int

	logger logger.Logger
}

// StartCollector listens on a loopback port. questions is the interview
// length used to count down questions_remaining; failEvery > 0 rejects
// every n-th submission.
func StartCollector(questions, failEvery int) (*Collector, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	c := &Collector{
		listener:  l,
		frames:    make(map[string]int),
		questions: questions,
		failEvery: failEvery,
		logger:    logger.Get().Named("collector"),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+telemetry.DefaultPath, c.handleTelemetry)
	mux.HandleFunc("POST "+submission.DefaultPath, c.handleSubmit)
	c.srv = &http.Server{Handler: mux, ReadHeaderTimeout: collectorReadHeaderTimeout}
	go func() {
		if err := c.srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error(context.Background(), "collector stopped", logger.Error(err))
		}
	}()
	return c, nil
}

// URL returns the collector base URL.
func (c *Collector) URL() string {
	return "http://" + c.listener.Addr().String()
}

// Frames returns the number of telemetry frames received.
func (c *Collector) Frames() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.frames {
		n += v
	}
	return n
}

// Duplicates returns how many frames were received more than once.
func (c *Collector) Duplicates() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.frames {
		if v > 1 {
			n += v - 1
		}
	}
	return n
}

// Answers returns the accepted submissions.
func (c *Collector) Answers() []submission.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]submission.Request(nil), c.answers...)
}

// Close shuts the collector down.
func (c *Collector) Close(ctx context.Context) error {
	return c.srv.Shutdown(ctx)
}

func (c *Collector) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	var p telemetry.Payload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
		return
	}
	c.mu.Lock()
	c.frames[dedupe.TickKey(p.SessionID, p.Timestamp)]++
	c.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (c *Collector) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submission.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, submission.Response{Error: err.Error()})
		return
	}

	c.mu.Lock()
	c.calls++
	if c.failEvery > 0 && c.calls%c.failEvery == 0 {
		c.mu.Unlock()
		writeJSON(w, http.StatusServiceUnavailable, submission.Response{Error: "analysis unavailable"})
		return
	}
	c.answers = append(c.answers, req)
	remaining := c.questions - len(c.answers)
	c.mu.Unlock()

	if remaining < 0 {
		remaining = 0
	}
	writeJSON(w, http.StatusOK, submission.Response{
		Success:            true,
		QuestionsRemaining: remaining,
		Analysis: &submission.Feedback{
			Summary:           fmt.Sprintf("%d words in %.1fs", len(strings.Fields(req.Answer)), req.ResponseTime),
			TechnicalAccuracy: 0.8,
			ConfidenceScore:   0.7,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
