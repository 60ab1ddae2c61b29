package estimator

import (
	"context"
	"sync"

	"github.com/okian/intervue/internal/adapters/device"
	"github.com/okian/intervue/internal/domain/signal"
	"github.com/okian/intervue/pkg/logger"
	"github.com/okian/intervue/pkg/metrics"
)

// Fallback reasons reported in metrics.
const (
	reasonNoVideo  = "no_video"
	reasonSnapshot = "snapshot"
	reasonDetect   = "detect"
	reasonBadImage = "bad_image"
)

// Native derives frames from a platform face detector. Any failure on a
// tick is served by the simulated estimator for that tick only.
type Native struct {
	detector device.FaceDetector
	fallback *Simulated

	mu   sync.Mutex
	last signal.Emotions
}

var _ Estimator = (*Native)(nil)

// NewNative creates a native estimator over detector. A nil fallback is
// replaced by a simulated estimator built from opts.
func NewNative(detector device.FaceDetector, fallback *Simulated, opts ...Option) *Native {
	if fallback == nil {
		fallback = NewSimulated(opts...)
	}
	return &Native{
		detector: detector,
		fallback: fallback,
		last: signal.Emotions{
			Confidence:    defaultConfidence,
			Happiness:     defaultHappiness,
			Nervousness:   defaultNervousness,
			Concentration: defaultConcentrated,
		},
	}
}

// Estimate snapshots the video, detects the largest face and applies the
// size and centeredness heuristic.
func (n *Native) Estimate(ctx context.Context, video device.VideoSource) signal.Frame {
	if video == nil {
		return n.degrade(ctx, reasonNoVideo, nil)
	}
	img, err := video.Snapshot(ctx)
	if err != nil {
		return n.degrade(ctx, reasonSnapshot, err)
	}
	if img.Width <= 0 || img.Height <= 0 {
		return n.degrade(ctx, reasonBadImage, nil)
	}
	faces, err := n.detector.Detect(ctx, img)
	if err != nil {
		return n.degrade(ctx, reasonDetect, err)
	}
	metrics.RecordFrameSampled(string(VariantNative))

	if len(faces) == 0 {
		// Emotional fields are stale until a face is seen again.
		n.mu.Lock()
		e := n.last
		n.mu.Unlock()
		return signal.NewFrame(0, e, false, 0, 0, false)
	}

	box := largest(faces).Box
	halfW := float64(img.Width) / 2
	halfH := float64(img.Height) / 2
	headX := signal.Offset((box.X + box.Width/2 - halfW) / halfW)
	headY := signal.Offset((box.Y + box.Height/2 - halfH) / halfH)
	size := signal.Unit(box.Width / float64(img.Width))
	dist := Distance(headX, headY)

	noiseH, noiseN := n.fallback.noisePair()
	e := Heuristic(size, dist, noiseH, noiseN)
	f := signal.NewFrame(0, e, LookingAtCamera(size, headX, headY), headX, headY, true)

	n.mu.Lock()
	n.last = f.Emotions()
	n.mu.Unlock()
	return f
}

// Variant reports VariantNative.
func (n *Native) Variant() Variant { return VariantNative }

func (n *Native) degrade(ctx context.Context, reason string, err error) signal.Frame {
	metrics.RecordEstimatorFallback(reason)
	fields := []logger.Field{logger.String("reason", reason)}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	logger.Get().Debug(ctx, "native detection unavailable for tick, using simulated frame", fields...)
	return n.fallback.Estimate(ctx, nil)
}

func largest(faces []device.Face) device.Face {
	best := faces[0]
	for _, f := range faces[1:] {
		if f.Box.Width*f.Box.Height > best.Box.Width*best.Box.Height {
			best = f
		}
	}
	return best
}
