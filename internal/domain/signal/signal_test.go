package signal

import (
	"math"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func TestNewFrame(t *testing.T) {
	convey.Convey("Given out-of-range inputs", t, func() {
		f := NewFrame(-3, Emotions{Confidence: 1.7, Happiness: -0.2, Nervousness: math.NaN(), Concentration: 0.5}, true, 2, -5, true)

		convey.Convey("Then every field is clamped", func() {
			convey.So(f.Timestamp, convey.ShouldEqual, 0)
			convey.So(f.Confidence, convey.ShouldEqual, 1)
			convey.So(f.Happiness, convey.ShouldEqual, 0)
			convey.So(f.Nervousness, convey.ShouldEqual, 0)
			convey.So(f.Concentration, convey.ShouldEqual, 0.5)
			convey.So(f.HeadPositionX, convey.ShouldEqual, 1)
			convey.So(f.HeadPositionY, convey.ShouldEqual, -1)
			convey.So(f.LookingAtCamera, convey.ShouldBeTrue)
			convey.So(f.FaceDetected, convey.ShouldBeTrue)
		})

		convey.Convey("Then restamping keeps the other fields", func() {
			g := f.WithTimestamp(4.5)
			convey.So(g.Timestamp, convey.ShouldEqual, 4.5)
			convey.So(g.Emotions(), convey.ShouldResemble, f.Emotions())
		})
	})
}

func TestAudioLevel(t *testing.T) {
	convey.Convey("Given frequency bins", t, func() {
		convey.Convey("When the window is empty", func() {
			convey.So(LevelFromBins(nil).Percentage, convey.ShouldEqual, 0)
		})

		convey.Convey("When the mean is half scale", func() {
			bins := []byte{64, 64, 64, 64}
			convey.So(LevelFromBins(bins).Percentage, convey.ShouldEqual, 50)
		})

		convey.Convey("When bins saturate", func() {
			bins := []byte{255, 255}
			convey.So(LevelFromBins(bins).Percentage, convey.ShouldEqual, 100)
		})
	})

	convey.Convey("Given engagement thresholds", t, func() {
		cases := []struct {
			pct  float64
			want Engagement
		}{
			{pct: 0, want: EngagementWarning},
			{pct: 40, want: EngagementWarning},
			{pct: 40.5, want: EngagementSuccess},
			{pct: 70, want: EngagementSuccess},
			{pct: 71, want: EngagementDanger},
		}
		for _, c := range cases {
			convey.So(AudioLevel{Percentage: c.pct}.Engagement(), convey.ShouldEqual, c.want)
		}
	})
}

func TestTranscript(t *testing.T) {
	convey.Convey("Given a transcript", t, func() {
		var tr Transcript

		convey.Convey("When mixing final and interim fragments", func() {
			lengths := []int{}
			for _, f := range []Fragment{
				{Text: "five", IsFinal: true},
				{Text: "years of", IsFinal: false},
				{Text: "years of", IsFinal: true},
				{Text: "   ", IsFinal: true},
				{Text: "experience", IsFinal: true},
				{Text: "and more", IsFinal: false},
			} {
				tr.Append(f)
				lengths = append(lengths, len(tr.String()))
			}

			convey.Convey("Then only finals are kept, in order", func() {
				convey.So(tr.String(), convey.ShouldEqual, "five years of experience")
			})

			convey.Convey("Then the length never decreases", func() {
				for i := 1; i < len(lengths); i++ {
					convey.So(lengths[i], convey.ShouldBeGreaterThanOrEqualTo, lengths[i-1])
				}
			})
		})

		convey.Convey("When reset", func() {
			tr.Append(Fragment{Text: "hello", IsFinal: true})
			tr.Reset()
			convey.So(tr.String(), convey.ShouldBeEmpty)
		})
	})
}

func TestAggregator(t *testing.T) {
	convey.Convey("Given an aggregator", t, func() {
		var a Aggregator

		convey.Convey("When no fresh frames were seen", func() {
			a.Add(Frame{FaceDetected: false, Confidence: 0.9})
			s := a.Summary()

			convey.Convey("Then defaults are reported", func() {
				convey.So(s.Frames, convey.ShouldEqual, 1)
				convey.So(s.EyeContact, convey.ShouldEqual, DefaultEyeContact)
				convey.So(s.AvgConfidence, convey.ShouldEqual, DefaultConfidence)
				convey.So(s.AvgNervousness, convey.ShouldEqual, DefaultNervousness)
			})
		})

		convey.Convey("When fresh frames were seen", func() {
			a.Add(Frame{FaceDetected: true, LookingAtCamera: true, Confidence: 0.8, Nervousness: 0.2})
			a.Add(Frame{FaceDetected: true, LookingAtCamera: false, Confidence: 0.4, Nervousness: 0.4})
			s := a.Summary()

			convey.Convey("Then averages cover them", func() {
				convey.So(s.EyeContact, convey.ShouldEqual, 0.5)
				convey.So(s.AvgConfidence, convey.ShouldAlmostEqual, 0.6, 1e-9)
				convey.So(s.AvgNervousness, convey.ShouldAlmostEqual, 0.3, 1e-9)
			})

			convey.Convey("Then reset clears them", func() {
				a.Reset()
				convey.So(a.Summary().Frames, convey.ShouldEqual, 0)
			})
		})
	})
}
