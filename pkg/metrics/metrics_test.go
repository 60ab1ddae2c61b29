package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When creating options", func() {
			namespaceOpt := WithNamespace("test_namespace")
			subsystemOpt := WithSubsystem("test_subsystem")
			metricPrefixOpt := WithMetricPrefix("test_prefix")
			histogramBucketsOpt := WithHistogramBuckets([]float64{0.1, 0.5, 1.0})
			metricsEnabledOpt := WithMetricsEnabled(true)
			refreshIntervalOpt := WithRefreshInterval(5 * time.Second)
			customLabelsOpt := WithCustomLabels(map[string]string{"env": "test"})

			Convey("Then they should be valid functions", func() {
				So(namespaceOpt, ShouldNotBeNil)
				So(subsystemOpt, ShouldNotBeNil)
				So(metricPrefixOpt, ShouldNotBeNil)
				So(histogramBucketsOpt, ShouldNotBeNil)
				So(metricsEnabledOpt, ShouldNotBeNil)
				So(refreshIntervalOpt, ShouldNotBeNil)
				So(customLabelsOpt, ShouldNotBeNil)
			})
		})

		Convey("When applying empty values", func() {
			m := &Manager{namespace: "keep", subsystem: "keep", refreshInterval: time.Second}
			WithNamespace("")(m)
			WithSubsystem("")(m)
			WithRefreshInterval(0)(m)

			Convey("Then defaults are preserved", func() {
				So(m.namespace, ShouldEqual, "keep")
				So(m.subsystem, ShouldEqual, "keep")
				So(m.refreshInterval, ShouldEqual, time.Second)
			})
		})
	})
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "intervue")
				So(manager.subsystem, ShouldEqual, "capture")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithMetricPrefix("test_prefix"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(true),
				WithRefreshInterval(10*time.Second),
				WithCustomLabels(map[string]string{"env": "test", "version": "1.0"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then metric names carry the prefix", func() {
				So(manager, ShouldNotBeNil)
				manager.framesSampled.WithLabelValues("native").Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_namespace_test_subsystem_test_prefix_frames_sampled_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given metrics recording", t, func() {
		Convey("When recording sampling metrics", func() {
			Convey("Then frames are counted per estimator", func() {
				before := testutil.ToFloat64(globalManager.framesSampled.WithLabelValues("simulated"))
				RecordFrameSampled("simulated")
				RecordFrameSampled("simulated")
				after := testutil.ToFloat64(globalManager.framesSampled.WithLabelValues("simulated"))
				So(after-before, ShouldEqual, 2)
			})

			Convey("And the audio level gauge holds the last value", func() {
				UpdateAudioLevel(12.5)
				UpdateAudioLevel(40)
				So(testutil.ToFloat64(globalManager.audioLevel), ShouldEqual, 40)
			})

			Convey("And the remaining sampling helpers do not panic", func() {
				So(func() {
					RecordEstimatorFallback("error")
					RecordStaleDrop("frame")
					RecordTranscriptFragment("final")
					RecordTranscriptFragment("interim")
					RecordCapabilityDegraded("face_detector")
					RecordMediaChunk()
				}, ShouldNotPanic)
			})
		})

		Convey("When recording session lifecycle metrics", func() {
			Convey("Then active sessions track inc and dec", func() {
				before := testutil.ToFloat64(globalManager.activeSessions)
				IncActiveSessions()
				IncActiveSessions()
				DecActiveSessions()
				So(testutil.ToFloat64(globalManager.activeSessions)-before, ShouldEqual, 1)
				DecActiveSessions()
			})

			Convey("And transitions are counted by edge", func() {
				before := testutil.ToFloat64(globalManager.transitions.WithLabelValues("ready", "recording"))
				RecordTransition("ready", "recording")
				So(testutil.ToFloat64(globalManager.transitions.WithLabelValues("ready", "recording"))-before, ShouldEqual, 1)
			})

			Convey("And response times are observed", func() {
				So(func() {
					RecordResponseTime(4.5)
					RecordResponseTime(120)
				}, ShouldNotPanic)
			})
		})

		Convey("When recording backend metrics", func() {
			Convey("Then they should not panic", func() {
				So(func() {
					RecordTelemetryResult("ok")
					RecordTelemetryResult("transport")
					RecordTelemetryLatency(12)
					RecordSubmissionResult("ok")
					RecordSubmissionLatency(250)
				}, ShouldNotPanic)
			})
		})

		Convey("When recording HTTP metrics", func() {
			Convey("Then it should record HTTP requests", func() {
				So(func() {
					RecordHTTPRequest("/healthz", "GET", "200")
					RecordHTTPRequest("/sessions", "POST", "201")
					RecordHTTPRequestDuration("/healthz", "GET", "200", 5.0)
					RecordHTTPRequestDuration("/sessions", "POST", "201", 10.0)
				}, ShouldNotPanic)
			})
		})

		Convey("When recording queue and worker metrics", func() {
			Convey("Then they should not panic", func() {
				So(func() {
					RecordQueueDepth("session_events", 3)
					RecordQueueEnqueue("session_events")
					RecordQueueDequeue("session_events")
					RecordQueueEnqueueError("session_events")
					RecordQueueProcessingLatency(0.2)
					AddWorkerActiveCount(1)
					AddWorkerActiveCount(-1)
					RecordWorkerProcessingLatency(0.5)
					RecordWorkerError()
				}, ShouldNotPanic)
			})
		})

		Convey("When recording error metrics", func() {
			Convey("Then they should not panic", func() {
				So(func() {
					RecordErrorByComponent("telemetry", "transport")
					RecordErrorByType("timeout", "error")
					RecordErrorByEndpoint("/sessions", "POST", "validation_error")
					RecordErrorLatency("submission", "timeout", 30000)
				}, ShouldNotPanic)
			})
		})

		Convey("When recording system metrics", func() {
			Convey("Then they should not panic", func() {
				So(func() {
					UpdateSystemMemoryUsage(1024 * 1024 * 100)
					UpdateSystemGoroutineCount(100)
					RecordSystemGCPauseTime(1.0)
				}, ShouldNotPanic)
			})
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the global registry", t, func() {
		RecordFrameSampled("native")

		Convey("Then gathered families include the capture metrics", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			names := make(map[string]bool, len(families))
			for _, f := range families {
				names[f.GetName()] = true
			}
			So(names["intervue_capture_frames_sampled_total"], ShouldBeTrue)
		})
	})
}
