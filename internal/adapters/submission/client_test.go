package submission

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/okian/intervue/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func backend(status int, resp any, got *Request) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got != nil {
			_ = json.NewDecoder(r.Body).Decode(got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	req := Request{
		QuestionID:   "q-1",
		Answer:       "five years of experience",
		ResponseTime: 4.5,
		InterviewID:  "iv-1",
	}

	convey.Convey("Given a backend with questions remaining", t, func() {
		var got Request
		srv := backend(http.StatusOK, Response{
			Success:            true,
			Analysis:           &Feedback{Summary: "clear answer", TechnicalAccuracy: 0.8, ConfidenceScore: 0.7},
			QuestionsRemaining: 2,
		}, &got)
		defer srv.Close()

		out, err := New(srv.URL).Submit(ctx, req)

		convey.Convey("Then the answer is posted as is", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(got.QuestionID, convey.ShouldEqual, "q-1")
			convey.So(got.Answer, convey.ShouldEqual, "five years of experience")
			convey.So(got.ResponseTime, convey.ShouldEqual, 4.5)
			convey.So(got.AudioFilePath, convey.ShouldEqual, "")
		})

		convey.Convey("Then the caller moves to the next question", func() {
			convey.So(out.Navigation, convey.ShouldEqual, NextQuestion)
			convey.So(out.QuestionsRemaining, convey.ShouldEqual, 2)
			convey.So(out.Feedback, convey.ShouldNotBeNil)
			convey.So(out.Feedback.Summary, convey.ShouldEqual, "clear answer")
			convey.So(out.Feedback.TechnicalAccuracy, convey.ShouldEqual, 0.8)
		})
	})

	convey.Convey("Given a backend answering the last question", t, func() {
		srv := backend(http.StatusOK, Response{Success: true, QuestionsRemaining: 0}, nil)
		defer srv.Close()

		out, err := New(srv.URL).Submit(ctx, req)

		convey.Convey("Then the caller proceeds to completion", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(out.Navigation, convey.ShouldEqual, Complete)
			convey.So(out.InterviewID, convey.ShouldEqual, "iv-1")
		})
	})

	convey.Convey("Given a backend that reports an error", t, func() {
		srv := backend(http.StatusInternalServerError, Response{Error: "Failed to submit answer"}, nil)
		defer srv.Close()

		_, err := New(srv.URL).Submit(ctx, req)

		convey.Convey("Then the submission is rejected with the backend message", func() {
			convey.So(errors.Is(err, ErrRejected), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "Failed to submit answer")
		})
	})

	convey.Convey("Given a backend with an out of range score", t, func() {
		srv := backend(http.StatusOK, Response{Success: true, Analysis: &Feedback{TechnicalAccuracy: 7}}, nil)
		defer srv.Close()

		_, err := New(srv.URL).Submit(ctx, req)

		convey.Convey("Then the response is refused", func() {
			convey.So(errors.Is(err, ErrInvalidResponse), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given an unreachable backend", t, func() {
		srv := backend(http.StatusOK, Response{}, nil)
		url := srv.URL
		srv.Close()

		_, err := New(url, WithTimeout(200*time.Millisecond)).Submit(ctx, req)

		convey.Convey("Then a transport error is returned", func() {
			convey.So(errors.Is(err, ErrTransport), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given a request without a question", t, func() {
		_, err := New("http://127.0.0.1:1").Submit(ctx, Request{Answer: "x"})

		convey.Convey("Then validation fails before any call", func() {
			convey.So(errors.Is(err, ErrInvalidRequest), convey.ShouldBeTrue)
		})
	})
}
