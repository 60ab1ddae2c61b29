// Package submission implements the answer submission protocol: it posts
// the finished transcript with its response latency and turns the
// backend's answer into a navigation outcome.
package submission

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"

	"github.com/okian/intervue/pkg/logger"
	"github.com/okian/intervue/pkg/metrics"
)

// Request is the answer submitted for one question.
type Request struct {
	QuestionID    string  `json:"question_id" validate:"required"`
	Answer        string  `json:"answer"`
	ResponseTime  float64 `json:"response_time" validate:"gte=0"`
	AudioFilePath string  `json:"audio_file_path"`

	// InterviewID identifies the completion view when the backend omits it.
	InterviewID string `json:"-"`
}

// Feedback is the evaluation returned for an accepted answer.
type Feedback struct {
	Summary                string  `json:"feedback"`
	TechnicalAccuracy      float64 `json:"technical_accuracy" validate:"gte=0,lte=1"`
	ConfidenceScore        float64 `json:"confidence_score,omitempty" validate:"gte=0,lte=1"`
	CommunicationScore     float64 `json:"communication_score,omitempty" validate:"gte=0,lte=1"`
	ImprovementSuggestions string  `json:"improvement_suggestions,omitempty"`
}

// Response is the endpoint's answer.
type Response struct {
	Success            bool      `json:"success"`
	Analysis           *Feedback `json:"analysis,omitempty"`
	QuestionsRemaining int       `json:"questions_remaining" validate:"gte=0"`
	InterviewID        string    `json:"interview_id,omitempty"`
	Error              string    `json:"error,omitempty"`
}

// Navigation is where the caller goes after an accepted answer.
type Navigation string

const (
	// NextQuestion means questions remain in the interview.
	NextQuestion Navigation = "next_question"
	// Complete means the interview is finished.
	Complete Navigation = "complete"
)

// Outcome is an accepted submission.
type Outcome struct {
	Navigation         Navigation `json:"navigation"`
	QuestionsRemaining int        `json:"questions_remaining"`
	InterviewID        string     `json:"interview_id,omitempty"`
	Feedback           *Feedback  `json:"feedback,omitempty"`
}

// Client posts answers to the backend.
type Client struct {
	client   *resty.Client
	validate *validator.Validate
	path     string
	timeout  time.Duration
	logger   logger.Logger
}

// New creates a client for the backend at baseURL with configuration options.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		validate: validator.New(),
		path:     DefaultPath,
		timeout:  DefaultTimeout,
	}

	// Apply all options
	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = logger.Get().Named("submission")
	}
	c.client = resty.New().
		SetBaseURL(baseURL).
		SetTimeout(c.timeout).
		SetHeader("Content-Type", "application/json")
	return c
}

// Submit posts req and waits for the backend's answer.
func (c *Client) Submit(ctx context.Context, req Request) (Outcome, error) {
	if err := c.validate.Struct(req); err != nil {
		metrics.RecordSubmissionResult("invalid_request")
		return Outcome{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body Response
	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&body).
		SetError(&body).
		Post(c.path)
	metrics.RecordSubmissionLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordSubmissionResult("transport_error")
		return Outcome{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	if resp.IsError() || !body.Success {
		metrics.RecordSubmissionResult("rejected")
		msg := body.Error
		if msg == "" {
			msg = resp.Status()
		}
		c.logger.Warn(ctx, "submission rejected",
			logger.String("questionID", req.QuestionID),
			logger.Int("status", resp.StatusCode()),
			logger.String("reason", msg),
		)
		return Outcome{}, fmt.Errorf("%w: %s", ErrRejected, msg)
	}

	if err := c.validate.Struct(body); err != nil {
		metrics.RecordSubmissionResult("invalid_response")
		return Outcome{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	metrics.RecordSubmissionResult("ok")
	return outcomeOf(req, body), nil
}

func outcomeOf(req Request, body Response) Outcome {
	out := Outcome{
		Navigation:         NextQuestion,
		QuestionsRemaining: body.QuestionsRemaining,
		InterviewID:        body.InterviewID,
		Feedback:           body.Analysis,
	}
	if out.InterviewID == "" {
		out.InterviewID = req.InterviewID
	}
	if body.QuestionsRemaining == 0 {
		out.Navigation = Complete
	}
	return out
}
