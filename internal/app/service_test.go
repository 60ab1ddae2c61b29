package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/intervue/internal/adapters/device/synthetic"
	"github.com/okian/intervue/internal/adapters/submission"
	"github.com/okian/intervue/internal/domain/session"
	"github.com/okian/intervue/internal/recording"
	"github.com/okian/intervue/pkg/clock"
	"github.com/okian/intervue/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logger for tests
	_ = logger.Init()
}

type stubSubmitter struct {
	mu       sync.Mutex
	requests []submission.Request
}

func (s *stubSubmitter) Submit(_ context.Context, req submission.Request) (submission.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return submission.Outcome{Navigation: submission.NextQuestion, QuestionsRemaining: 2}, nil
}

func newTestService(opts ...Option) *Service {
	fake := clock.NewFake(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	base := []Option{
		WithSubmitter(&stubSubmitter{}),
		WithPlatform(synthetic.New(synthetic.WithClock(fake))),
		WithControllerOptions(recording.WithClock(fake)),
	}
	return New(append(base, opts...)...)
}

func TestServiceLifecycle(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new Service", t, func() {
		Convey("When creating with default options", func() {
			s := New()

			Convey("Then it should have default configuration", func() {
				So(s, ShouldNotBeNil)
				So(s.maxSessions, ShouldEqual, defaultMaxSessions)
				So(s.platform, ShouldNotBeNil)
			})

			Convey("Then starting without a submitter fails", func() {
				So(s.Start(ctx), ShouldNotBeNil)
			})
		})

		Convey("When sessions are requested before start", func() {
			s := newTestService()
			_, err := s.CreateSession(ctx, "q1", "iv1")

			Convey("Then they are refused", func() {
				So(errors.Is(err, ErrNotStarted), ShouldBeTrue)
			})
		})

		Convey("When the service is started twice and stopped twice", func() {
			s := newTestService()
			So(s.Start(ctx), ShouldBeNil)
			So(s.Start(ctx), ShouldBeNil)
			So(s.Stop(ctx), ShouldBeNil)

			Convey("Then the second stop is a no-op", func() {
				So(s.Stop(ctx), ShouldBeNil)
			})
		})
	})
}

func TestServiceSessions(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started Service", t, func() {
		s := newTestService(WithMaxSessions(2))
		So(s.Start(ctx), ShouldBeNil)
		Reset(func() {
			_ = s.Stop(ctx)
		})

		Convey("When a session is created", func() {
			c, err := s.CreateSession(ctx, "q1", "iv1")
			So(err, ShouldBeNil)

			Convey("Then it is ready and can be looked up", func() {
				snap, err := c.Snapshot(ctx)
				So(err, ShouldBeNil)
				So(snap.Status, ShouldEqual, session.Ready)
				So(snap.QuestionID, ShouldEqual, "q1")

				found, err := s.Session(c.ID())
				So(err, ShouldBeNil)
				So(found, ShouldEqual, c)
			})

			Convey("Then it can be recorded and submitted", func() {
				So(c.Start(ctx), ShouldBeNil)
				So(c.Stop(ctx), ShouldBeNil)
				out, err := c.Submit(ctx)
				So(err, ShouldBeNil)
				So(out.Navigation, ShouldEqual, submission.NextQuestion)
			})

			Convey("Then closing it forgets it", func() {
				snap, err := s.CloseSession(ctx, c.ID())
				So(err, ShouldBeNil)
				So(snap.ID, ShouldEqual, c.ID())
				_, err = s.Session(c.ID())
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
				_, err = s.CloseSession(ctx, c.ID())
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When the session limit is reached", func() {
			_, err := s.CreateSession(ctx, "q1", "iv1")
			So(err, ShouldBeNil)
			_, err = s.CreateSession(ctx, "q2", "iv1")
			So(err, ShouldBeNil)
			_, err = s.CreateSession(ctx, "q3", "iv1")

			Convey("Then further sessions are refused", func() {
				So(errors.Is(err, ErrCapacity), ShouldBeTrue)
				So(s.GetStats()["sessions"], ShouldEqual, 2)
			})
		})

		Convey("When stats are requested", func() {
			_, err := s.CreateSession(ctx, "q1", "iv1")
			So(err, ShouldBeNil)
			stats := s.GetStats()

			Convey("Then sessions are counted by status", func() {
				So(stats["started"], ShouldEqual, true)
				So(stats["maxSessions"], ShouldEqual, 2)
				So(stats["byStatus"].(map[string]int)[session.Ready.String()], ShouldEqual, 1)
			})
		})
	})

	Convey("Given a Service whose platform denies permission", t, func() {
		s := newTestService(WithPlatform(synthetic.New(synthetic.WithPermissionDenied())))
		So(s.Start(ctx), ShouldBeNil)
		Reset(func() {
			_ = s.Stop(ctx)
		})

		Convey("When a session is created", func() {
			c, err := s.CreateSession(ctx, "q1", "iv1")

			Convey("Then the failed session is kept for inspection", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, recording.ErrSessionFailed), ShouldBeTrue)
				So(c, ShouldNotBeNil)
				snap, serr := c.Snapshot(ctx)
				So(serr, ShouldBeNil)
				So(snap.Status, ShouldEqual, session.Failed)
				So(snap.Error, ShouldEqual, recording.MsgPermissionDenied)
			})
		})
	})

	Convey("Given a Service with open sessions", t, func() {
		platform := synthetic.New()
		s := newTestService(WithPlatform(platform))
		So(s.Start(ctx), ShouldBeNil)
		c, err := s.CreateSession(ctx, "q1", "iv1")
		So(err, ShouldBeNil)
		So(c.Start(ctx), ShouldBeNil)

		Convey("When the service stops", func() {
			So(s.Stop(ctx), ShouldBeNil)

			Convey("Then every session is torn down", func() {
				So(platform.Streams()[0].Closed(), ShouldBeTrue)
				snap, err := c.Snapshot(ctx)
				So(err, ShouldBeNil)
				So(snap.Status, ShouldEqual, session.Stopped)
				So(s.GetStats()["sessions"], ShouldEqual, 0)
			})
		})
	})
}
