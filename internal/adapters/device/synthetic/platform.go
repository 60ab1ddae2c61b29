// Package synthetic implements a simulated capture platform. It stands in
// for camera, microphone, speech and recorder hardware in the service, the
// drill harness and tests.
package synthetic

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/intervue/internal/adapters/device"
	"github.com/okian/intervue/pkg/clock"
)

// Default platform configuration constants.
const (
	defaultWidth     = 640
	defaultHeight    = 480
	defaultBins      = 128
	defaultLevel     = 48
	defaultChunkSize = 4096
	defaultSeed      = 7
	levelJitter      = 8
	boxJitter        = 4
	speechBuffer     = 16
)

// Platform is a simulated device.Platform.
type Platform struct {
	clock           clock.Clock
	seed            int64
	deny            bool
	noDevice        bool
	noVideo         bool
	noFace          bool
	noSpeech        bool
	noAnalyser      bool
	noRecorder      bool
	acquireDelay    time.Duration
	faceBox         device.Box
	noFaceFound     bool
	detectFailEvery int
	level           byte
	scriptEvery     time.Duration
	script          []string
	chunkSize       int

	mu         sync.Mutex
	streams    []*Stream
	recognizer *Recognizer
	recorder   *Recorder
}

var _ device.Platform = (*Platform)(nil)

// New creates a simulated platform with configuration options.
func New(opts ...Option) *Platform {
	p := &Platform{
		clock:     clock.Real(),
		seed:      defaultSeed,
		level:     defaultLevel,
		chunkSize: defaultChunkSize,
		faceBox: device.Box{
			X:      defaultWidth/2 - 80,
			Y:      defaultHeight/2 - 100,
			Width:  160,
			Height: 200,
		},
	}

	// Apply all options
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// AcquireStream opens the combined camera and microphone stream.
func (p *Platform) AcquireStream(ctx context.Context) (device.Stream, error) {
	if p.acquireDelay > 0 {
		t := time.NewTimer(p.acquireDelay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire stream: %w", ctx.Err())
		case <-t.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("acquire stream: %w", err)
	}
	if p.deny {
		return nil, fmt.Errorf("acquire stream: %w", device.ErrPermissionDenied)
	}
	if p.noDevice {
		return nil, fmt.Errorf("acquire stream: %w", device.ErrNoDevice)
	}
	s := &Stream{}
	if !p.noVideo {
		s.video = &Video{stream: s}
	}
	p.mu.Lock()
	p.streams = append(p.streams, s)
	p.mu.Unlock()
	return s, nil
}

// FaceDetector returns the simulated native detector.
func (p *Platform) FaceDetector(ctx context.Context) (device.FaceDetector, error) {
	if p.noFace {
		return nil, device.ErrUnsupported
	}
	return &Detector{
		box:       p.faceBox,
		none:      p.noFaceFound,
		failEvery: p.detectFailEvery,
		rng:       rand.New(rand.NewSource(p.seed)), //nolint:gosec // deterministic jitter
	}, nil
}

// SpeechRecognizer returns the simulated recognizer.
func (p *Platform) SpeechRecognizer(ctx context.Context, lang string) (device.SpeechRecognizer, error) {
	if p.noSpeech {
		return nil, device.ErrUnsupported
	}
	r := &Recognizer{
		clock:  p.clock,
		every:  p.scriptEvery,
		script: p.script,
		manual: make(chan []device.SpeechEvent),
	}
	p.mu.Lock()
	p.recognizer = r
	p.mu.Unlock()
	return r, nil
}

// AudioAnalyser returns the simulated analyser for s.
func (p *Platform) AudioAnalyser(ctx context.Context, s device.Stream) (device.AudioAnalyser, error) {
	if p.noAnalyser {
		return nil, device.ErrUnsupported
	}
	if s == nil {
		return nil, device.ErrNoDevice
	}
	return &Analyser{
		level: p.level,
		rng:   rand.New(rand.NewSource(p.seed + 1)), //nolint:gosec // deterministic jitter
	}, nil
}

// MediaRecorder returns the simulated recorder for s.
func (p *Platform) MediaRecorder(ctx context.Context, s device.Stream) (device.MediaRecorder, error) {
	if p.noRecorder {
		return nil, device.ErrUnsupported
	}
	if s == nil {
		return nil, device.ErrNoDevice
	}
	r := &Recorder{clock: p.clock, size: p.chunkSize}
	p.mu.Lock()
	p.recorder = r
	p.mu.Unlock()
	return r, nil
}

// Streams returns every stream acquired so far.
func (p *Platform) Streams() []*Stream {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Stream(nil), p.streams...)
}

// Recognizer returns the most recently created recognizer, or nil.
func (p *Platform) Recognizer() *Recognizer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.recognizer
}

// Recorder returns the most recently created recorder, or nil.
func (p *Platform) Recorder() *Recorder {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.recorder
}

// Stream is a simulated combined stream.
type Stream struct {
	video  *Video
	once   sync.Once
	mu     sync.Mutex
	closed bool
	closes int
}

// Video returns the video track, or nil.
func (s *Stream) Video() device.VideoSource {
	if s.video == nil {
		return nil
	}
	return s.video
}

// Close releases the stream tracks.
func (s *Stream) Close() error {
	s.mu.Lock()
	s.closes++
	s.mu.Unlock()
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
	})
	return nil
}

// Closed reports whether the tracks were released.
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// CloseCalls returns how many times Close was invoked.
func (s *Stream) CloseCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// Video is a simulated video track.
type Video struct {
	stream *Stream
}

// Snapshot returns a blank frame of the default resolution.
func (v *Video) Snapshot(ctx context.Context) (device.Image, error) {
	if err := ctx.Err(); err != nil {
		return device.Image{}, err
	}
	if v.stream.Closed() {
		return device.Image{}, device.ErrClosed
	}
	return device.Image{Width: defaultWidth, Height: defaultHeight}, nil
}

// Detector is a simulated native face detector.
type Detector struct {
	mu        sync.Mutex
	box       device.Box
	none      bool
	failEvery int
	calls     int
	rng       *rand.Rand
}

// Detect reports one jittered face box, none, or a scheduled failure.
func (d *Detector) Detect(ctx context.Context, img device.Image) ([]device.Face, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.failEvery > 0 && d.calls%d.failEvery == 0 {
		return nil, fmt.Errorf("detect call %d: simulated detector fault", d.calls)
	}
	if d.none {
		return nil, nil
	}
	b := d.box
	b.X += float64(d.rng.Intn(2*boxJitter+1) - boxJitter)
	b.Y += float64(d.rng.Intn(2*boxJitter+1) - boxJitter)
	return []device.Face{{Box: b}}, nil
}

// Analyser is a simulated spectrum analyser.
type Analyser struct {
	mu     sync.Mutex
	level  byte
	rng    *rand.Rand
	closed bool
}

// BinCount returns the analysis window size.
func (a *Analyser) BinCount() int { return defaultBins }

// FrequencyData fills dst with magnitudes around the configured level.
func (a *Analyser) FrequencyData(dst []byte) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return 0
	}
	n := len(dst)
	if n > defaultBins {
		n = defaultBins
	}
	for i := 0; i < n; i++ {
		v := int(a.level) + a.rng.Intn(2*levelJitter+1) - levelJitter
		if v < 0 {
			v = 0
		}
		if v > 255 {
			v = 255
		}
		dst[i] = byte(v)
	}
	return n
}

// Close releases the analysis graph.
func (a *Analyser) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

// Closed reports whether Close was called.
func (a *Analyser) Closed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}
