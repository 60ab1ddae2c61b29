package recording

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/okian/intervue/internal/adapters/device"
	"github.com/okian/intervue/internal/adapters/device/synthetic"
	"github.com/okian/intervue/internal/adapters/submission"
	"github.com/okian/intervue/internal/domain/estimator"
	"github.com/okian/intervue/internal/domain/session"
	"github.com/okian/intervue/internal/domain/signal"
	"github.com/okian/intervue/pkg/clock"
	"github.com/okian/intervue/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type captureProjector struct {
	session.NopSink
	mu          sync.Mutex
	frames      []signal.Frame
	levels      int
	fragments   int
	transitions []session.Transition
	outcomes    []submission.Outcome
}

func (p *captureProjector) FrameSampled(_ context.Context, _ string, f signal.Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, f)
}

func (p *captureProjector) LevelSampled(context.Context, string, signal.AudioLevel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.levels++
}

func (p *captureProjector) TranscriptReceived(context.Context, string, signal.Fragment, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fragments++
}

func (p *captureProjector) Transitioned(_ context.Context, t session.Transition) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transitions = append(p.transitions, t)
}

func (p *captureProjector) Submitted(_ context.Context, _ string, out submission.Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outcomes = append(p.outcomes, out)
}

func (p *captureProjector) frameList() []signal.Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]signal.Frame(nil), p.frames...)
}

func (p *captureProjector) counts() (frames, levels, fragments int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames), p.levels, p.fragments
}

func (p *captureProjector) transitionsTo(s session.Status) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, t := range p.transitions {
		if t.To == s {
			n++
		}
	}
	return n
}

type fakeSubmitter struct {
	mu       sync.Mutex
	requests []submission.Request
	failures []error
	out      submission.Outcome
}

func (f *fakeSubmitter) Submit(_ context.Context, req submission.Request) (submission.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return submission.Outcome{}, err
	}
	return f.out, nil
}

func (f *fakeSubmitter) last() submission.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakeSubmitter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type countingSink struct {
	session.NopSink
	mu     sync.Mutex
	frames int
}

func (s *countingSink) FrameSampled(context.Context, string, signal.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames++
}

func (s *countingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

type fakeMedia struct {
	mu     sync.Mutex
	chunks int
	saves  int
}

func (m *fakeMedia) Save(_ context.Context, sessionID, questionID string, chunks [][]byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = len(chunks)
	m.saves++
	return fmt.Sprintf("/media/%s/%s-%d.webm", sessionID, questionID, m.saves), nil
}

func (m *fakeMedia) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// cancellingSubmitter ends the caller's context while the backend accepts
// the answer.
type cancellingSubmitter struct {
	cancel context.CancelFunc
	out    submission.Outcome
}

func (s *cancellingSubmitter) Submit(context.Context, submission.Request) (submission.Outcome, error) {
	s.cancel()
	return s.out, nil
}

// ctxSubmitter fails once the caller's context has ended.
type ctxSubmitter struct {
	out submission.Outcome
}

func (s *ctxSubmitter) Submit(ctx context.Context, _ submission.Request) (submission.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return submission.Outcome{}, err
	}
	return s.out, nil
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return cond()
}

func status(c *Controller) session.Status {
	snap, err := c.Snapshot(context.Background())
	if err != nil {
		return session.Idle
	}
	return snap.Status
}

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func TestRecordingScenario(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given an initialized session on a synthetic platform", t, func() {
		fake := clock.NewFake(t0)
		platform := synthetic.New(synthetic.WithClock(fake))
		proj := &captureProjector{}
		sub := &fakeSubmitter{out: submission.Outcome{Navigation: submission.NextQuestion, QuestionsRemaining: 2}}
		media := &fakeMedia{}
		c := New("s1", platform, sub,
			WithQuestion("q1", "iv1"),
			WithClock(fake),
			WithProjector(proj),
			WithMediaSink(media),
		)
		defer c.Close(ctx)

		convey.So(c.Initialize(ctx), convey.ShouldBeNil)
		convey.So(status(c), convey.ShouldEqual, session.Ready)
		convey.So(c.Estimator(), convey.ShouldEqual, estimator.VariantNative)

		convey.Convey("When recording for 4.5 seconds with one spoken answer", func() {
			convey.So(c.Start(ctx), convey.ShouldBeNil)
			fake.Advance(2 * time.Second)
			convey.So(eventually(func() bool { return len(proj.frameList()) == 1 }), convey.ShouldBeTrue)
			fake.Advance(2 * time.Second)
			convey.So(eventually(func() bool { return len(proj.frameList()) == 2 }), convey.ShouldBeTrue)

			convey.So(platform.Recognizer().Emit(ctx,
				signal.Fragment{Text: "five years", Confidence: 0.6},
				signal.Fragment{Text: "five years of experience", IsFinal: true, Confidence: 0.9},
			), convey.ShouldBeNil)
			convey.So(eventually(func() bool {
				snap, _ := c.Snapshot(ctx)
				return snap.Transcript == "five years of experience"
			}), convey.ShouldBeTrue)

			fake.Advance(500 * time.Millisecond)
			convey.So(c.Stop(ctx), convey.ShouldBeNil)

			convey.Convey("Then two detected frames were sampled at 2s and 4s", func() {
				frames := proj.frameList()
				convey.So(len(frames), convey.ShouldEqual, 2)
				convey.So(frames[0].Timestamp, convey.ShouldAlmostEqual, 2.0)
				convey.So(frames[1].Timestamp, convey.ShouldAlmostEqual, 4.0)
				convey.So(frames[0].FaceDetected, convey.ShouldBeTrue)
				convey.So(frames[1].FaceDetected, convey.ShouldBeTrue)
			})

			convey.Convey("Then nothing is observed after stop", func() {
				convey.So(status(c), convey.ShouldEqual, session.Stopped)
				convey.So(fake.Tickers(), convey.ShouldEqual, 0)
				frames, levels, fragments := proj.counts()
				fake.Advance(10 * time.Second)
				time.Sleep(20 * time.Millisecond)
				f2, l2, fr2 := proj.counts()
				convey.So(f2, convey.ShouldEqual, frames)
				convey.So(l2, convey.ShouldEqual, levels)
				convey.So(fr2, convey.ShouldEqual, fragments)
				convey.So(platform.Recognizer().Stopped(), convey.ShouldBeTrue)
				convey.So(platform.Recorder().Stopped(), convey.ShouldBeTrue)
			})

			convey.Convey("Then the devices stay open until teardown", func() {
				convey.So(platform.Streams()[0].Closed(), convey.ShouldBeFalse)
			})

			convey.Convey("Then submitting sends the transcript and latency", func() {
				out, err := c.Submit(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.Navigation, convey.ShouldEqual, submission.NextQuestion)

				req := sub.last()
				convey.So(req.QuestionID, convey.ShouldEqual, "q1")
				convey.So(req.Answer, convey.ShouldEqual, "five years of experience")
				convey.So(req.ResponseTime, convey.ShouldAlmostEqual, 4.5)
				convey.So(req.AudioFilePath, convey.ShouldEqual, "/media/s1/q1-1.webm")
				convey.So(media.chunks, convey.ShouldBeGreaterThanOrEqualTo, 1)

				convey.So(status(c), convey.ShouldEqual, session.Submitted)
				got, ok := c.Outcome()
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(got.QuestionsRemaining, convey.ShouldEqual, 2)
				convey.So(len(proj.outcomes), convey.ShouldEqual, 1)
			})

			convey.Convey("Then teardown releases the stream exactly once", func() {
				convey.So(c.Close(ctx), convey.ShouldBeNil)
				convey.So(c.Close(ctx), convey.ShouldBeNil)
				stream := platform.Streams()[0]
				convey.So(stream.Closed(), convey.ShouldBeTrue)
				convey.So(stream.CloseCalls(), convey.ShouldEqual, 1)
				_, err := c.Submit(ctx)
				convey.So(errors.Is(err, ErrClosed), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When start is requested twice", func() {
			convey.So(c.Start(ctx), convey.ShouldBeNil)
			convey.So(c.Start(ctx), convey.ShouldBeNil)

			convey.Convey("Then recording begins once", func() {
				convey.So(status(c), convey.ShouldEqual, session.Recording)
				convey.So(eventually(func() bool { return proj.transitionsTo(session.Recording) == 1 }), convey.ShouldBeTrue)
			})

			convey.Convey("Then a second stop is refused", func() {
				convey.So(c.Stop(ctx), convey.ShouldBeNil)
				convey.So(errors.Is(c.Stop(ctx), session.ErrInvalidTransition), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When stop or submit are requested before recording", func() {
			stopErr := c.Stop(ctx)
			_, submitErr := c.Submit(ctx)

			convey.Convey("Then both are refused and the session stays Ready", func() {
				convey.So(errors.Is(stopErr, session.ErrInvalidTransition), convey.ShouldBeTrue)
				convey.So(errors.Is(submitErr, session.ErrInvalidTransition), convey.ShouldBeTrue)
				convey.So(status(c), convey.ShouldEqual, session.Ready)
				convey.So(sub.calls(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the session is torn down while recording", func() {
			convey.So(c.Start(ctx), convey.ShouldBeNil)
			convey.So(c.Close(ctx), convey.ShouldBeNil)

			convey.Convey("Then recording stops and every device is released", func() {
				final, err := c.Snapshot(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(final.Status, convey.ShouldEqual, session.Stopped)
				convey.So(fake.Tickers(), convey.ShouldEqual, 0)
				convey.So(platform.Streams()[0].CloseCalls(), convey.ShouldEqual, 1)
				convey.So(platform.Recorder().Stopped(), convey.ShouldBeTrue)
			})
		})
	})
}

func TestInitializationFailure(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a platform where camera permission is denied", t, func() {
		fake := clock.NewFake(t0)
		platform := synthetic.New(synthetic.WithClock(fake), synthetic.WithPermissionDenied())
		proj := &captureProjector{}
		c := New("s2", platform, &fakeSubmitter{}, WithClock(fake), WithProjector(proj))
		defer c.Close(ctx)

		err := c.Initialize(ctx)

		convey.Convey("Then the session fails with a user-facing message", func() {
			var uerr *Error
			convey.So(errors.As(err, &uerr), convey.ShouldBeTrue)
			convey.So(uerr.Message, convey.ShouldEqual, MsgPermissionDenied)
			convey.So(uerr.Retryable, convey.ShouldBeFalse)
			convey.So(errors.Is(err, ErrSessionFailed), convey.ShouldBeTrue)
			convey.So(errors.Is(err, device.ErrPermissionDenied), convey.ShouldBeTrue)

			snap, serr := c.Snapshot(ctx)
			convey.So(serr, convey.ShouldBeNil)
			convey.So(snap.Status, convey.ShouldEqual, session.Failed)
			convey.So(snap.Error, convey.ShouldEqual, MsgPermissionDenied)
		})

		convey.Convey("Then no timer is ever started", func() {
			convey.So(fake.Tickers(), convey.ShouldEqual, 0)
			fake.Advance(10 * time.Second)
			time.Sleep(10 * time.Millisecond)
			frames, levels, fragments := proj.counts()
			convey.So(frames+levels+fragments, convey.ShouldEqual, 0)
		})

		convey.Convey("Then the session cannot be used", func() {
			convey.So(errors.Is(c.Start(ctx), session.ErrInvalidTransition), convey.ShouldBeTrue)
			_, err := c.Submit(ctx)
			convey.So(errors.Is(err, session.ErrInvalidTransition), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given a platform without a camera", t, func() {
		c := New("s3", synthetic.New(synthetic.WithoutDevices()), &fakeSubmitter{})
		defer c.Close(ctx)

		err := c.Initialize(ctx)

		convey.Convey("Then the no-device message is surfaced", func() {
			var uerr *Error
			convey.So(errors.As(err, &uerr), convey.ShouldBeTrue)
			convey.So(uerr.Message, convey.ShouldEqual, MsgNoDevice)
		})
	})

	convey.Convey("Given an acquisition that outlives its timeout", t, func() {
		platform := synthetic.New(synthetic.WithAcquireDelay(time.Second))
		c := New("s4", platform, &fakeSubmitter{}, WithAcquireTimeout(20*time.Millisecond))
		defer c.Close(ctx)

		err := c.Initialize(ctx)

		convey.Convey("Then initialization fails", func() {
			convey.So(errors.Is(err, ErrSessionFailed), convey.ShouldBeTrue)
			convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
			convey.So(status(c), convey.ShouldEqual, session.Failed)
		})
	})
}

func TestDegradedCapabilities(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a platform with only a camera and microphone", t, func() {
		fake := clock.NewFake(t0)
		platform := synthetic.New(
			synthetic.WithClock(fake),
			synthetic.WithoutFaceDetector(),
			synthetic.WithoutSpeech(),
			synthetic.WithoutAnalyser(),
			synthetic.WithoutRecorder(),
		)
		proj := &captureProjector{}
		c := New("s5", platform, &fakeSubmitter{}, WithClock(fake), WithProjector(proj))
		defer c.Close(ctx)

		convey.Convey("When the session is initialized and recorded", func() {
			convey.So(c.Initialize(ctx), convey.ShouldBeNil)
			convey.So(c.Start(ctx), convey.ShouldBeNil)
			fake.Advance(2 * time.Second)

			convey.Convey("Then the simulated estimator keeps frames flowing", func() {
				convey.So(c.Estimator(), convey.ShouldEqual, estimator.VariantSimulated)
				convey.So(eventually(func() bool { return len(proj.frameList()) == 1 }), convey.ShouldBeTrue)
				convey.So(proj.frameList()[0].FaceDetected, convey.ShouldBeTrue)
				convey.So(c.Stop(ctx), convey.ShouldBeNil)
			})
		})
	})

	convey.Convey("Given native detection is disabled by configuration", t, func() {
		c := New("s6", synthetic.New(), &fakeSubmitter{}, WithNativeFaceDetection(false))
		defer c.Close(ctx)

		convey.So(c.Initialize(ctx), convey.ShouldBeNil)

		convey.Convey("Then the simulated estimator is selected", func() {
			convey.So(c.Estimator(), convey.ShouldEqual, estimator.VariantSimulated)
		})
	})
}

func TestSubmissionRetry(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a stopped recording and a backend that fails once", t, func() {
		fake := clock.NewFake(t0)
		platform := synthetic.New(synthetic.WithClock(fake))
		telemetry := &countingSink{}
		sub := &fakeSubmitter{
			failures: []error{submission.ErrTransport},
			out:      submission.Outcome{Navigation: submission.Complete, InterviewID: "iv7"},
		}
		c := New("s7", platform, sub,
			WithQuestion("q3", "iv7"),
			WithClock(fake),
			WithSinks(telemetry),
		)
		defer c.Close(ctx)

		convey.So(c.Initialize(ctx), convey.ShouldBeNil)
		convey.So(c.Start(ctx), convey.ShouldBeNil)
		fake.Advance(2 * time.Second)
		convey.So(eventually(func() bool { return telemetry.count() == 1 }), convey.ShouldBeTrue)
		convey.So(c.Stop(ctx), convey.ShouldBeNil)

		_, err := c.Submit(ctx)

		convey.Convey("Then the failure is retryable", func() {
			var uerr *Error
			convey.So(errors.As(err, &uerr), convey.ShouldBeTrue)
			convey.So(uerr.Retryable, convey.ShouldBeTrue)
			convey.So(uerr.Message, convey.ShouldEqual, MsgSubmitFailed)
			convey.So(errors.Is(err, submission.ErrTransport), convey.ShouldBeTrue)

			snap, _ := c.Snapshot(ctx)
			convey.So(snap.Status, convey.ShouldEqual, session.Failed)
			convey.So(snap.Retryable, convey.ShouldBeTrue)
		})

		convey.Convey("When the answer is submitted again", func() {
			out, err := c.Submit(ctx)

			convey.Convey("Then it completes the interview without duplicating telemetry", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.Navigation, convey.ShouldEqual, submission.Complete)
				convey.So(out.InterviewID, convey.ShouldEqual, "iv7")
				convey.So(status(c), convey.ShouldEqual, session.Submitted)
				convey.So(sub.calls(), convey.ShouldEqual, 2)
				convey.So(telemetry.count(), convey.ShouldEqual, 1)
			})
		})
	})
}

func TestSubmissionRetryReusesMedia(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a stopped recording with stored media and a backend that fails once", t, func() {
		fake := clock.NewFake(t0)
		platform := synthetic.New(synthetic.WithClock(fake))
		media := &fakeMedia{}
		sub := &fakeSubmitter{
			failures: []error{submission.ErrTransport},
			out:      submission.Outcome{Navigation: submission.NextQuestion},
		}
		c := New("s8", platform, sub,
			WithQuestion("q4", "iv8"),
			WithClock(fake),
			WithMediaSink(media),
		)
		defer c.Close(ctx)

		convey.So(c.Initialize(ctx), convey.ShouldBeNil)
		convey.So(c.Start(ctx), convey.ShouldBeNil)
		fake.Advance(1500 * time.Millisecond)
		convey.So(c.Stop(ctx), convey.ShouldBeNil)

		_, err := c.Submit(ctx)
		convey.So(err, convey.ShouldNotBeNil)
		first := sub.last()

		convey.Convey("When the answer is submitted again", func() {
			_, err := c.Submit(ctx)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the media is stored once and referenced by both attempts", func() {
				convey.So(media.saveCount(), convey.ShouldEqual, 1)
				convey.So(first.AudioFilePath, convey.ShouldNotBeEmpty)
				convey.So(sub.last().AudioFilePath, convey.ShouldEqual, first.AudioFilePath)
			})
		})
	})
}

func stoppedSession(ctx context.Context, id string, sub Submitter) (*Controller, *captureProjector) {
	fake := clock.NewFake(t0)
	proj := &captureProjector{}
	c := New(id, synthetic.New(synthetic.WithClock(fake)), sub,
		WithQuestion("q1", "iv1"),
		WithClock(fake),
		WithProjector(proj),
	)
	convey.So(c.Initialize(ctx), convey.ShouldBeNil)
	convey.So(c.Start(ctx), convey.ShouldBeNil)
	fake.Advance(time.Second)
	convey.So(c.Stop(ctx), convey.ShouldBeNil)
	return c, proj
}

func TestSubmitWithEndingContext(t *testing.T) {
	ctx := context.Background()
	out := submission.Outcome{Navigation: submission.NextQuestion, QuestionsRemaining: 1}

	convey.Convey("Given a caller whose context ends while the backend accepts the answer", t, func() {
		for i := 0; i < 40; i++ {
			cctx, cancel := context.WithCancel(ctx)
			c, proj := stoppedSession(ctx, fmt.Sprintf("c%d", i), &cancellingSubmitter{cancel: cancel, out: out})

			got, err := c.Submit(cctx)

			convey.So(err, convey.ShouldBeNil)
			convey.So(got.QuestionsRemaining, convey.ShouldEqual, 1)
			convey.So(status(c), convey.ShouldEqual, session.Submitted)
			convey.So(proj.transitionsTo(session.Submitted), convey.ShouldEqual, 1)
			convey.So(c.Close(ctx), convey.ShouldBeNil)
		}
	})

	convey.Convey("Given a caller whose context has already ended", t, func() {
		for i := 0; i < 40; i++ {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			c, _ := stoppedSession(ctx, fmt.Sprintf("d%d", i), &ctxSubmitter{out: out})

			_, err := c.Submit(cctx)
			convey.So(err, convey.ShouldNotBeNil)
			st := status(c)
			convey.So(st == session.Stopped || st == session.Failed, convey.ShouldBeTrue)

			_, err = c.Submit(ctx)
			convey.So(err, convey.ShouldBeNil)
			convey.So(status(c), convey.ShouldEqual, session.Submitted)
			convey.So(c.Close(ctx), convey.ShouldBeNil)
		}
	})
}

func TestStopWithEndedContext(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a recording stopped with a context that has already ended", t, func() {
		fake := clock.NewFake(t0)
		c := New("s9", synthetic.New(synthetic.WithClock(fake)), &fakeSubmitter{},
			WithQuestion("q1", "iv1"),
			WithClock(fake),
		)
		defer c.Close(ctx)
		convey.So(c.Initialize(ctx), convey.ShouldBeNil)
		convey.So(c.Start(ctx), convey.ShouldBeNil)
		fake.Advance(time.Second)

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := c.Stop(cctx)

		convey.Convey("Then the session is either still recording or fully stopped", func() {
			st := status(c)
			if err == nil {
				convey.So(st, convey.ShouldEqual, session.Stopped)
				convey.So(fake.Tickers(), convey.ShouldEqual, 0)
			} else {
				convey.So(st, convey.ShouldEqual, session.Recording)
				convey.So(c.Stop(ctx), convey.ShouldBeNil)
				convey.So(status(c), convey.ShouldEqual, session.Stopped)
			}
		})
	})
}
