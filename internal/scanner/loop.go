package scanner

import (
	"context"
	"errors"
	"sync"
)

// Loop owns the camera device and runs the per-frame QR decode cycle. It
// reports at most one detection per activation and guarantees the device is
// released on every exit path.
//
// Each activation gets a generation number. Stopping bumps the generation, so
// callbacks from a superseded activation (a slow device open, a frame already
// in flight) find themselves stale and are discarded instead of surfacing
// errors from a camera the operator no longer sees.
type Loop struct {
	device  Device
	decoder Decoder
	beeper  Beeper
	stream  StreamConfig

	onDetected func(text string)
	onError    func(msg string)

	mu     sync.Mutex
	status Status
	gen    uint64
	cancel context.CancelFunc
	active Stream
}

// Config wires a Loop. Device, Decoder and OnDetected are required; Beeper
// and OnError are optional. A zero Stream means DefaultStreamConfig.
type Config struct {
	Device     Device
	Decoder    Decoder
	Beeper     Beeper
	Stream     StreamConfig
	OnDetected func(text string)
	OnError    func(msg string)
}

// NewLoop creates an idle decode loop.
func NewLoop(cfg Config) *Loop {
	stream := cfg.Stream
	if stream == (StreamConfig{}) {
		stream = DefaultStreamConfig
	}
	return &Loop{
		device:     cfg.Device,
		decoder:    cfg.Decoder,
		beeper:     cfg.Beeper,
		stream:     stream,
		onDetected: cfg.OnDetected,
		onError:    cfg.OnError,
	}
}

// Status returns the loop's current lifecycle state.
func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// Start activates the loop: acquire the camera and begin decoding frames.
// Starting an already active loop is a no-op.
func (l *Loop) Start() {
	l.mu.Lock()
	if l.status == StatusAcquiring || l.status == StatusReady {
		l.mu.Unlock()
		return
	}
	l.gen++
	gen := l.gen
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.status = StatusAcquiring
	l.mu.Unlock()

	go l.run(ctx, gen)
}

// Stop deactivates the loop from any state: cancels the frame cycle and
// releases the camera. Idempotent; safe to call when already idle.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopLocked()
}

// stopLocked invalidates the running activation and releases all resources.
// Caller holds l.mu.
func (l *Loop) stopLocked() {
	l.gen++
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	if l.active != nil {
		_ = l.active.Close()
		l.active = nil
	}
	l.status = StatusIdle
}

func (l *Loop) run(ctx context.Context, gen uint64) {
	stream, err := l.device.Open(ctx, l.stream)
	if err != nil {
		l.mu.Lock()
		if l.gen != gen {
			// Superseded by a stop or restart; the interruption is benign.
			l.mu.Unlock()
			return
		}
		if l.cancel != nil {
			l.cancel()
			l.cancel = nil
		}
		l.status = StatusError
		l.mu.Unlock()
		l.reportError(err)
		return
	}

	l.mu.Lock()
	if l.gen != gen {
		l.mu.Unlock()
		// The activation was stopped while the device was still opening; the
		// late stream must be released here or the handle leaks.
		_ = stream.Close()
		return
	}
	l.active = stream
	l.status = StatusReady
	l.mu.Unlock()

	for {
		img, err := stream.NextFrame(ctx)
		if err != nil {
			l.mu.Lock()
			if l.gen != gen {
				l.mu.Unlock()
				return
			}
			cancelled := ctx.Err() != nil
			l.stopLocked()
			if !cancelled {
				l.status = StatusError
			}
			l.mu.Unlock()
			if !cancelled {
				l.reportError(err)
			}
			return
		}

		// Frames without known dimensions are skipped, not decoded.
		if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
			continue
		}

		text, ok := l.decoder.Decode(img)
		if !ok {
			continue
		}

		// Detection: stop before emitting so no further decode attempt can
		// run, then report exactly once.
		l.mu.Lock()
		if l.gen != gen {
			l.mu.Unlock()
			return
		}
		l.stopLocked()
		l.mu.Unlock()

		if l.beeper != nil {
			_ = l.beeper.Beep()
		}
		if l.onDetected != nil {
			l.onDetected(text)
		}
		return
	}
}

// reportError surfaces a device failure as a user-facing message.
func (l *Loop) reportError(err error) {
	if l.onError == nil {
		return
	}
	msg := "Camera access failed"
	switch {
	case errors.Is(err, ErrPermissionDenied):
		msg = "Camera access denied or unavailable"
	case err.Error() != "":
		msg = err.Error()
	}
	l.onError(msg)
}
