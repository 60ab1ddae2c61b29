// Package sampling runs the three sampling activities of a session: the
// periodic face/emotion timer, the continuous audio level loop and the
// event-driven speech transcript stream. Every result is published onto
// the session's write queue; nothing here touches session state directly.
package sampling

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/okian/intervue/internal/adapters/device"
	"github.com/okian/intervue/internal/domain/estimator"
	"github.com/okian/intervue/internal/domain/session"
	"github.com/okian/intervue/internal/domain/signal"
	"github.com/okian/intervue/pkg/clock"
	"github.com/okian/intervue/pkg/logger"
)

// Publisher accepts sampled events.
type Publisher interface {
	Publish(ctx context.Context, e session.Event) error
}

// activity is one running loop.
type activity struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func (a *activity) halt() {
	if a == nil {
		return
	}
	a.cancel()
	a.wg.Wait()
}

// Scheduler owns the sampling loops of one session. The device handles it
// is given are borrowed; it never closes them.
type Scheduler struct {
	estimator estimator.Estimator
	publisher Publisher
	video     device.VideoSource
	analyser  device.AudioAnalyser
	speech    device.SpeechRecognizer

	clock         clock.Clock
	faceInterval  time.Duration
	audioInterval time.Duration
	logger        logger.Logger

	mu      sync.Mutex
	audio   *activity
	capture *activity
}

// New creates a scheduler publishing to pub with configuration options.
func New(est estimator.Estimator, pub Publisher, opts ...Option) *Scheduler {
	s := &Scheduler{
		estimator:     est,
		publisher:     pub,
		clock:         clock.Real(),
		faceInterval:  DefaultFaceInterval,
		audioInterval: DefaultAudioInterval,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("sampling")
	}
	return s
}

// StartAudio starts the audio level loop. Without an analyser it does nothing.
func (s *Scheduler) StartAudio(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.audio != nil || s.analyser == nil {
		return
	}
	a := s.newActivity(ctx)
	t := s.clock.NewTicker(s.audioInterval)
	a.wg.Add(1)
	go s.audioLoop(a, t)
	s.audio = a
}

func (s *Scheduler) newActivity(ctx context.Context) *activity {
	actx, cancel := context.WithCancel(ctx)
	return &activity{ctx: actx, cancel: cancel}
}

// StopAudio halts the audio level loop and waits for it to return.
func (s *Scheduler) StopAudio() {
	s.mu.Lock()
	a := s.audio
	s.audio = nil
	s.mu.Unlock()
	a.halt()
}

// StartCapture starts the face timer and the speech stream. A missing
// video track or recognizer leaves the matching activity idle.
func (s *Scheduler) StartCapture(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capture != nil {
		return
	}
	a := s.newActivity(ctx)
	actx := a.ctx

	if s.video != nil {
		t := s.clock.NewTicker(s.faceInterval)
		a.wg.Add(1)
		go s.faceLoop(a, t)
	} else {
		s.logger.Warn(ctx, "no video track, face sampling disabled")
	}

	if s.speech != nil {
		events, err := s.speech.Start(actx)
		if err != nil {
			s.logger.Warn(ctx, "speech recognition failed to start, transcript disabled", logger.Error(err))
		} else {
			a.wg.Add(1)
			go s.speechLoop(a, events)
		}
	}
	s.capture = a
}

// StopCapture halts the face timer and stops consuming the speech stream,
// waiting for both loops to return. The recognizer is left to its owner.
// Once it returns no further frame or transcript event is published.
func (s *Scheduler) StopCapture() {
	s.mu.Lock()
	a := s.capture
	s.capture = nil
	s.mu.Unlock()
	if a == nil {
		return
	}
	a.halt()
}

// Stop halts every activity.
func (s *Scheduler) Stop() {
	s.StopCapture()
	s.StopAudio()
}

// Running reports whether the audio and capture activities are active.
func (s *Scheduler) Running() (audio, capture bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audio != nil, s.capture != nil
}

func (s *Scheduler) faceLoop(a *activity, t clock.Ticker) {
	defer a.wg.Done()
	defer t.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case at := <-t.C():
			// One estimate per tick; it completes before the next is taken.
			f := s.estimator.Estimate(a.ctx, s.video)
			if !s.publish(a.ctx, session.FrameSampled(at, f)) {
				return
			}
		}
	}
}

func (s *Scheduler) audioLoop(a *activity, t clock.Ticker) {
	defer a.wg.Done()
	defer t.Stop()
	bins := make([]byte, s.analyser.BinCount())
	for {
		select {
		case <-a.ctx.Done():
			return
		case at := <-t.C():
			n := s.analyser.FrequencyData(bins)
			if !s.publish(a.ctx, session.LevelSampled(at, signal.LevelFromBins(bins[:n]))) {
				return
			}
		}
	}
}

func (s *Scheduler) speechLoop(a *activity, events <-chan device.SpeechEvent) {
	defer a.wg.Done()
	for {
		select {
		case <-a.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Err != nil {
				s.logger.Warn(a.ctx, "speech recognition error", logger.Error(ev.Err))
				continue
			}
			if len(ev.Results) == 0 {
				continue
			}
			if !s.publish(a.ctx, session.TranscriptReceived(s.clock.Now(), ev.Results)) {
				return
			}
		}
	}
}

// publish reports whether the loop should keep running.
func (s *Scheduler) publish(ctx context.Context, e session.Event) bool {
	err := s.publisher.Publish(ctx, e)
	if err == nil {
		return true
	}
	if !errors.Is(err, session.ErrClosed) && ctx.Err() == nil {
		s.logger.Warn(ctx, "dropping sample", logger.String("kind", e.Kind.String()), logger.Error(err))
		return true
	}
	return false
}
