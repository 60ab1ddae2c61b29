package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/intervue/internal/adapters/http/ws"
	"github.com/okian/intervue/internal/config"
	"github.com/okian/intervue/pkg/logger"
	"github.com/okian/intervue/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			t.Setenv("INTERVUE_ADDR", ":8080")
			t.Setenv("INTERVUE_MAX_SESSIONS", "4")
			t.Setenv("INTERVUE_FACE_SAMPLE_INTERVAL_MS", "500")

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.MaxSessions, convey.ShouldEqual, 4)
				convey.So(cfg.FaceSampleInterval(), convey.ShouldEqual, 500*time.Millisecond)
			})
		})

		convey.Convey("When testing invalid configuration", func() {
			t.Setenv("INTERVUE_MAX_SESSIONS", "0")

			convey.Convey("Then configuration loading should fail", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When testing metrics initialization", func() {
			convey.Convey("Then metrics manager should be creatable", func() {
				manager := metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))
				convey.So(manager, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given the wired application", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.MaxSessions = 1
		cfg.MediaDir = t.TempDir()

		hub := ws.NewHub()
		svc := newService(cfg, hub, logger.Get())
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		server := httptest.NewServer(newMux(ctx, svc, hub))
		convey.Reset(func() {
			server.Close()
			_ = svc.Stop(ctx)
			hub.Close()
		})

		convey.Convey("When the docs are requested", func() {
			resp, err := http.Get(server.URL + "/openapi.yaml")
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()

			convey.Convey("Then they are served", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			})
		})

		convey.Convey("When a session is created", func() {
			resp, err := http.Post(server.URL+"/sessions", "application/json", strings.NewReader(`{"question_id":"q1"}`))
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()

			convey.Convey("Then it is ready and counted", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusCreated)
				convey.So(svc.GetStats()["sessions"], convey.ShouldEqual, 1)
			})
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When testing system metrics updater", func() {
			convey.Convey("Then it should return once the context ends", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()

				convey.So(func() {
					startSystemMetricsUpdater(ctx)
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing system metrics update", func() {
			convey.Convey("Then it should update metrics without panicking", func() {
				convey.So(func() {
					updateSystemMetrics()
				}, convey.ShouldNotPanic)
			})
		})
	})
}
