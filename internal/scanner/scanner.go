package scanner

import (
	"context"
	"errors"
	"image"
)

// Status is the decode loop's lifecycle state. Exactly one holds at a time.
type Status int

const (
	StatusIdle Status = iota
	StatusAcquiring
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusAcquiring:
		return "acquiring"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// ErrPermissionDenied marks a camera open failure caused by missing device
// permissions, as opposed to other device errors.
var ErrPermissionDenied = errors.New("camera permission denied")

// StreamConfig is the requested capture configuration. Width and Height are
// ideals; the device picks the closest supported mode.
type StreamConfig struct {
	FacingRear bool
	Width      int
	Height     int
}

// DefaultStreamConfig prefers the rear-facing camera at 1280x720.
var DefaultStreamConfig = StreamConfig{FacingRear: true, Width: 1280, Height: 720}

// Device opens a video stream. Open blocks until the device is streaming or
// ctx is cancelled; cancellation must release any partially acquired handle.
type Device interface {
	Open(ctx context.Context, cfg StreamConfig) (Stream, error)
}

// Stream delivers frames one at a time. NextFrame blocks until the next frame
// is available, pacing the decode loop; frame N+1 is never produced while
// frame N is still being processed. Close releases the device and is safe to
// call more than once.
type Stream interface {
	NextFrame(ctx context.Context) (image.Image, error)
	Close() error
}

// Decoder attempts a single QR decode on one frame.
type Decoder interface {
	Decode(img image.Image) (text string, ok bool)
}

// Beeper produces short audible feedback on detection. Failures are ignored;
// audio must never block or fail the detection path.
type Beeper interface {
	Beep() error
}
