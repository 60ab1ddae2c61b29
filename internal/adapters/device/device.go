// Package device defines the capability boundary toward the capture
// platform: the combined camera and microphone stream and the optional
// face detection, speech recognition, audio analysis and media recording
// capabilities built on top of it.
package device

import (
	"context"
	"time"

	"github.com/okian/intervue/internal/domain/signal"
)

// Image is a rasterized video frame.
type Image struct {
	Width  int
	Height int
	Pixels []byte
}

// Box is a face bounding box in pixel coordinates.
type Box struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Face is one detected face.
type Face struct {
	Box Box
}

// VideoSource rasterizes the current frame of a live video track.
type VideoSource interface {
	Snapshot(ctx context.Context) (Image, error)
}

// Stream is the combined camera and microphone stream.
//
// Video returns nil when the stream carries no video track. Close releases
// every track; only the first call has an effect.
type Stream interface {
	Video() VideoSource
	Close() error
}

// FaceDetector locates faces in a rasterized frame.
type FaceDetector interface {
	Detect(ctx context.Context, img Image) ([]Face, error)
}

// AudioAnalyser exposes the frequency spectrum of the microphone track.
type AudioAnalyser interface {
	// BinCount returns the number of frequency bins in the analysis window.
	BinCount() int
	// FrequencyData copies the current bin magnitudes into dst and returns
	// the number of bins written.
	FrequencyData(dst []byte) int
	Close() error
}

// SpeechEvent is one push from the speech recognizer.
type SpeechEvent struct {
	Results []signal.Fragment
	Err     error
}

// SpeechRecognizer streams continuous recognition results.
//
// The channel returned by Start is closed after Stop or when ctx ends.
type SpeechRecognizer interface {
	Start(ctx context.Context) (<-chan SpeechEvent, error)
	Stop() error
}

// MediaRecorder produces opaque media chunks at fixed boundaries.
//
// Stop flushes the remaining buffered chunk and then closes the channel
// returned by Start.
type MediaRecorder interface {
	Start(timeslice time.Duration) (<-chan []byte, error)
	Stop() error
}

// Platform acquires the stream and probes optional capabilities.
//
// AcquireStream failures are fatal for a session and wrap
// ErrPermissionDenied or ErrNoDevice. The optional capabilities return
// ErrUnsupported when the platform lacks them.
type Platform interface {
	AcquireStream(ctx context.Context) (Stream, error)
	FaceDetector(ctx context.Context) (FaceDetector, error)
	SpeechRecognizer(ctx context.Context, lang string) (SpeechRecognizer, error)
	AudioAnalyser(ctx context.Context, s Stream) (AudioAnalyser, error)
	MediaRecorder(ctx context.Context, s Stream) (MediaRecorder, error)
}
