// Package recording drives one question-answer recording through its
// lifecycle: device acquisition, start, stop, submission and teardown.
// The controller exclusively owns the device stream, the recognizer, the
// recorder and every timer; samplers only borrow them.
package recording

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/intervue/internal/adapters/device"
	"github.com/okian/intervue/internal/adapters/submission"
	"github.com/okian/intervue/internal/domain/estimator"
	"github.com/okian/intervue/internal/domain/session"
	"github.com/okian/intervue/internal/sampling"
	"github.com/okian/intervue/pkg/clock"
	"github.com/okian/intervue/pkg/logger"
	"github.com/okian/intervue/pkg/metrics"
)

// Submitter sends a finished answer to the backend.
type Submitter interface {
	Submit(ctx context.Context, req submission.Request) (submission.Outcome, error)
}

// MediaSink stores recorded chunks and returns a reference to them.
type MediaSink interface {
	Save(ctx context.Context, sessionID, questionID string, chunks [][]byte) (string, error)
}

// Projector renders a session. It sees every applied change and the
// result of an accepted submission; it never mutates the session.
type Projector interface {
	session.Sink
	Submitted(ctx context.Context, sessionID string, out submission.Outcome)
}

type nopProjector struct{ session.NopSink }

func (nopProjector) Submitted(context.Context, string, submission.Outcome) {}

// loop is a cancellable goroutine.
type loop struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (l *loop) halt() {
	if l == nil {
		return
	}
	l.cancel()
	<-l.done
}

// Controller is the recording state machine of one session.
type Controller struct {
	id          string
	questionID  string
	interviewID string

	platform  device.Platform
	submitter Submitter
	media     MediaSink
	projector Projector
	sinks     []session.Sink

	clock           clock.Clock
	faceInterval    time.Duration
	audioInterval   time.Duration
	chunkInterval   time.Duration
	elapsedInterval time.Duration
	acquireTimeout  time.Duration
	language        string
	nativeFace      bool
	estimatorOpts   []estimator.Option
	buffer          int
	logger          logger.Logger

	store *session.Store
	life  context.Context
	kill  context.CancelFunc

	// mu serializes lifecycle operations.
	mu        sync.Mutex
	stream    device.Stream
	analyser  device.AudioAnalyser
	speech    device.SpeechRecognizer
	recorder  device.MediaRecorder
	estimator estimator.Estimator
	scheduler *sampling.Scheduler
	elapsed   *loop
	collector chan struct{}
	outcome   *submission.Outcome
	mediaRef  string
	closed    bool
}

// New creates an Idle session answering one question.
func New(id string, platform device.Platform, submitter Submitter, opts ...Option) *Controller {
	c := &Controller{
		id:              id,
		platform:        platform,
		submitter:       submitter,
		projector:       nopProjector{},
		clock:           clock.Real(),
		faceInterval:    sampling.DefaultFaceInterval,
		audioInterval:   sampling.DefaultAudioInterval,
		chunkInterval:   DefaultChunkInterval,
		elapsedInterval: DefaultElapsedInterval,
		language:        DefaultLanguage,
		nativeFace:      true,
	}

	// Apply all options
	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = logger.Get().Named("recording")
	}
	c.life, c.kill = context.WithCancel(context.Background())

	sinks := append([]session.Sink{c.projector}, c.sinks...)
	storeOpts := []session.Option{
		session.WithQuestion(c.questionID, c.interviewID),
		session.WithClock(c.clock),
		session.WithSinks(sinks...),
		session.WithLogger(c.logger.Named("session")),
	}
	if c.buffer > 0 {
		storeOpts = append(storeOpts, session.WithBuffer(c.buffer))
	}
	c.store = session.NewStore(id, storeOpts...)
	c.store.Start(c.life)
	metrics.IncActiveSessions()
	return c
}

// ID returns the session identifier.
func (c *Controller) ID() string { return c.id }

// QuestionID returns the question being answered.
func (c *Controller) QuestionID() string { return c.questionID }

// Snapshot returns the current session view.
func (c *Controller) Snapshot(ctx context.Context) (session.Snapshot, error) {
	return c.store.Snapshot(ctx)
}

// Outcome returns the accepted submission, if any.
func (c *Controller) Outcome() (submission.Outcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcome == nil {
		return submission.Outcome{}, false
	}
	return *c.outcome, true
}

// Estimator returns the variant selected at setup, or "" before it.
func (c *Controller) Estimator() estimator.Variant {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.estimator == nil {
		return ""
	}
	return c.estimator.Variant()
}

// Initialize acquires the devices and probes the optional capabilities.
// Only a failure to acquire the camera and microphone is returned; it
// leaves the session Failed for good.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if err := c.store.Transition(ctx, session.Change{To: session.Initializing}); err != nil {
		return err
	}

	actx := ctx
	if c.acquireTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, c.acquireTimeout)
		defer cancel()
	}

	stream, err := c.platform.AcquireStream(actx)
	if err != nil {
		return c.failInit(ctx, err)
	}
	c.stream = stream

	detector := c.probe(actx)
	if err := actx.Err(); err != nil {
		c.release(ctx)
		return c.failInit(ctx, err)
	}

	c.estimator = estimator.Select(detector, c.estimatorOpts...)
	c.scheduler = sampling.New(c.estimator, c.store, c.samplingOptions()...)

	if err := c.store.Transition(context.WithoutCancel(ctx), session.Change{To: session.Ready}); err != nil {
		c.release(ctx)
		return err
	}
	c.scheduler.StartAudio(c.life)
	c.logger.Info(ctx, "session ready",
		logger.String("sessionID", c.id),
		logger.String("estimator", string(c.estimator.Variant())),
		logger.Bool("speech", c.speech != nil),
		logger.Bool("analyser", c.analyser != nil),
		logger.Bool("recorder", c.recorder != nil),
	)
	return nil
}

// probe sets up the optional capabilities concurrently. Each missing one
// degrades silently.
func (c *Controller) probe(ctx context.Context) device.FaceDetector {
	var (
		detector device.FaceDetector
		speech   device.SpeechRecognizer
		analyser device.AudioAnalyser
		recorder device.MediaRecorder
	)
	g, gctx := errgroup.WithContext(ctx)
	if c.nativeFace {
		g.Go(func() error {
			d, err := c.platform.FaceDetector(gctx)
			if err != nil {
				c.degrade(ctx, "face_detector", err)
				return nil
			}
			detector = d
			return nil
		})
	}
	g.Go(func() error {
		r, err := c.platform.SpeechRecognizer(gctx, c.language)
		if err != nil {
			c.degrade(ctx, "speech", err)
			return nil
		}
		speech = r
		return nil
	})
	g.Go(func() error {
		a, err := c.platform.AudioAnalyser(gctx, c.stream)
		if err != nil {
			c.degrade(ctx, "audio_analyser", err)
			return nil
		}
		analyser = a
		return nil
	})
	g.Go(func() error {
		r, err := c.platform.MediaRecorder(gctx, c.stream)
		if err != nil {
			c.degrade(ctx, "media_recorder", err)
			return nil
		}
		recorder = r
		return nil
	})
	_ = g.Wait()

	c.speech, c.analyser, c.recorder = speech, analyser, recorder
	return detector
}

func (c *Controller) degrade(ctx context.Context, capability string, err error) {
	metrics.RecordCapabilityDegraded(capability)
	c.logger.Warn(ctx, "capability unavailable, degrading",
		logger.String("sessionID", c.id),
		logger.String("capability", capability),
		logger.Error(err),
	)
}

func (c *Controller) failInit(ctx context.Context, err error) error {
	msg := MsgAcquireFailed
	switch {
	case errors.Is(err, device.ErrPermissionDenied):
		msg = MsgPermissionDenied
	case errors.Is(err, device.ErrNoDevice):
		msg = MsgNoDevice
	}
	metrics.RecordErrorByComponent("recording", "acquire")
	c.logger.Error(ctx, "device acquisition failed",
		logger.String("sessionID", c.id),
		logger.Error(err),
	)
	if terr := c.store.Transition(context.WithoutCancel(ctx), session.Change{To: session.Failed, Reason: msg}); terr != nil {
		c.logger.Error(ctx, "failed to record init failure", logger.Error(terr))
	}
	return &Error{Message: msg, Err: fmt.Errorf("%w: %w", ErrSessionFailed, err)}
}

// Start begins recording. Starting a session that is already recording
// does nothing.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	snap, err := c.store.Snapshot(ctx)
	if err != nil {
		return err
	}
	if snap.Status == session.Recording {
		return nil
	}
	if err := c.store.Transition(ctx, session.Change{To: session.Recording}); err != nil {
		return err
	}
	c.mediaRef = ""

	if c.recorder != nil {
		chunks, err := c.recorder.Start(c.chunkInterval)
		if err != nil {
			c.degrade(ctx, "media_recorder", err)
		} else {
			c.collector = make(chan struct{})
			go c.collect(chunks, c.collector)
		}
	}
	c.scheduler.StartCapture(c.life)
	c.elapsed = c.startElapsed()
	return nil
}

// collect moves recorded chunks onto the session queue until the recorder
// closes its channel.
func (c *Controller) collect(chunks <-chan []byte, done chan<- struct{}) {
	defer close(done)
	for chunk := range chunks {
		if err := c.store.Publish(c.life, session.ChunkRecorded(c.clock.Now(), chunk)); err != nil {
			c.logger.Warn(c.life, "media chunk dropped", logger.String("sessionID", c.id), logger.Error(err))
		}
	}
}

func (c *Controller) startElapsed() *loop {
	ctx, cancel := context.WithCancel(c.life)
	l := &loop{cancel: cancel, done: make(chan struct{})}
	t := c.clock.NewTicker(c.elapsedInterval)
	go func() {
		defer close(l.done)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case at := <-t.C():
				if err := c.store.Publish(ctx, session.ElapsedTicked(at)); err != nil {
					return
				}
			}
		}
	}()
	return l
}

// Stop ends recording. It returns once every sampling activity, the
// recorder and the elapsed timer have halted; nothing is observed
// afterwards. The devices stay open for submission.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return c.stop(ctx)
}

func (c *Controller) stop(ctx context.Context) error {
	snap, err := c.store.Snapshot(ctx)
	if err != nil {
		return err
	}
	if snap.Status != session.Recording {
		return fmt.Errorf("%w: stop while %s", session.ErrInvalidTransition, snap.Status)
	}

	if c.speech != nil {
		if err := c.speech.Stop(); err != nil {
			c.logger.Warn(ctx, "speech recognition stop failed", logger.String("sessionID", c.id), logger.Error(err))
		}
	}
	c.scheduler.Stop()
	c.elapsed.halt()
	c.elapsed = nil
	if c.recorder != nil && c.collector != nil {
		if err := c.recorder.Stop(); err != nil {
			c.logger.Warn(ctx, "media recorder stop failed", logger.String("sessionID", c.id), logger.Error(err))
		}
		// The recorder closes its channel after the final flush.
		<-c.collector
		c.collector = nil
	}
	return c.store.Transition(context.WithoutCancel(ctx), session.Change{To: session.Stopped})
}

// Submit sends the transcript and response latency of the stopped
// recording. A failed submission can be retried.
func (c *Controller) Submit(ctx context.Context) (submission.Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return submission.Outcome{}, ErrClosed
	}
	at := c.clock.Now()

	snap, err := c.store.Snapshot(ctx)
	if err != nil {
		return submission.Outcome{}, err
	}
	if snap.Status == session.Failed && snap.Retryable {
		if err := c.store.Transition(ctx, session.Change{To: session.Stopped}); err != nil {
			return submission.Outcome{}, err
		}
	}

	var (
		req    submission.Request
		chunks [][]byte
	)
	err = c.store.Transition(ctx, session.Change{
		To: session.Submitting,
		Apply: func(st *session.State) {
			req = submission.Request{
				QuestionID:   st.QuestionID,
				Answer:       st.Transcript.String(),
				ResponseTime: st.ResponseTime(at).Seconds(),
				InterviewID:  st.InterviewID,
			}
			chunks = append([][]byte(nil), st.MediaChunks...)
		},
	})
	if err != nil {
		return submission.Outcome{}, err
	}
	metrics.RecordResponseTime(req.ResponseTime)

	// A retry reuses the media stored by the first attempt.
	if c.media != nil && c.mediaRef == "" {
		ref, err := c.media.Save(ctx, c.id, c.questionID, chunks)
		if err != nil {
			c.logger.Warn(ctx, "media not stored", logger.String("sessionID", c.id), logger.Error(err))
		}
		c.mediaRef = ref
	}
	req.AudioFilePath = c.mediaRef

	out, err := c.submitter.Submit(ctx, req)
	if err != nil {
		return submission.Outcome{}, c.failSubmit(ctx, err)
	}
	if err := c.store.Transition(context.WithoutCancel(ctx), session.Change{To: session.Submitted}); err != nil {
		return submission.Outcome{}, err
	}
	c.outcome = &out
	c.projector.Submitted(ctx, c.id, out)
	c.logger.Info(ctx, "answer submitted",
		logger.String("sessionID", c.id),
		logger.String("questionID", c.questionID),
		logger.Float64("responseTime", req.ResponseTime),
		logger.String("navigation", string(out.Navigation)),
		logger.Int("questionsRemaining", out.QuestionsRemaining),
	)
	return out, nil
}

func (c *Controller) failSubmit(ctx context.Context, err error) error {
	metrics.RecordErrorByComponent("recording", "submit")
	c.logger.Warn(ctx, "submission failed",
		logger.String("sessionID", c.id),
		logger.Error(err),
	)
	change := session.Change{To: session.Failed, Reason: MsgSubmitFailed, Retryable: true}
	if terr := c.store.Transition(context.WithoutCancel(ctx), change); terr != nil {
		c.logger.Error(ctx, "failed to record submission failure", logger.Error(terr))
	}
	return &Error{Message: MsgSubmitFailed, Retryable: true, Err: fmt.Errorf("%w: %w", ErrSubmissionFailed, err)}
}

// Close tears the session down: a running recording is stopped, every
// device is released exactly once and the event loop ends. Close is safe
// to call more than once.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	if snap, err := c.store.Snapshot(ctx); err == nil && snap.Status == session.Recording {
		if err := c.stop(ctx); err != nil {
			c.logger.Warn(ctx, "implicit stop failed", logger.String("sessionID", c.id), logger.Error(err))
		}
	}
	c.release(ctx)
	err := c.store.Close(ctx)
	c.kill()
	metrics.DecActiveSessions()
	return err
}

// release halts every loop and closes every device handle.
func (c *Controller) release(ctx context.Context) {
	if c.scheduler != nil {
		c.scheduler.Stop()
	}
	c.elapsed.halt()
	c.elapsed = nil
	if c.recorder != nil {
		if err := c.recorder.Stop(); err != nil {
			c.logger.Debug(ctx, "media recorder stop", logger.Error(err))
		}
		if c.collector != nil {
			<-c.collector
			c.collector = nil
		}
		c.recorder = nil
	}
	if c.speech != nil {
		if err := c.speech.Stop(); err != nil {
			c.logger.Debug(ctx, "speech stop", logger.Error(err))
		}
		c.speech = nil
	}
	if c.analyser != nil {
		if err := c.analyser.Close(); err != nil {
			c.logger.Warn(ctx, "audio analyser close failed", logger.Error(err))
		}
		c.analyser = nil
	}
	if c.stream != nil {
		if err := c.stream.Close(); err != nil {
			c.logger.Warn(ctx, "stream close failed", logger.Error(err))
		}
		c.stream = nil
	}
}
