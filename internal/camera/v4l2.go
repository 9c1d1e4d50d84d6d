package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"sync"

	"github.com/blackjack/webcam"

	"github.com/gatescan/terminal/internal/scanner"
)

// mjpegFormat is the V4L2 fourcc for Motion-JPEG ('M','J','P','G').
const mjpegFormat = webcam.PixelFormat(0x47504A4D)

const defaultDevicePath = "/dev/video0"

// V4L2Device is a scanner.Device backed by a Video4Linux2 capture node.
// Frames are captured as MJPEG and decoded per frame. On Linux the
// rear-facing preference is a device-node choice, so deployments with more
// than one camera set Path to the outward-facing node.
type V4L2Device struct {
	Path string
}

func (d *V4L2Device) Open(ctx context.Context, cfg scanner.StreamConfig) (scanner.Stream, error) {
	path := d.Path
	if path == "" {
		path = defaultDevicePath
	}

	cam, err := webcam.Open(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("open %s: %w", path, scanner.ErrPermissionDenied)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if _, ok := cam.GetSupportedFormats()[mjpegFormat]; !ok {
		_ = cam.Close()
		return nil, fmt.Errorf("camera %s does not support MJPEG capture", path)
	}

	w, h := pickFrameSize(cam.GetSupportedFrameSizes(mjpegFormat), uint32(cfg.Width), uint32(cfg.Height))
	if _, _, _, err := cam.SetImageFormat(mjpegFormat, w, h); err != nil {
		_ = cam.Close()
		return nil, fmt.Errorf("set image format %dx%d: %w", w, h, err)
	}

	if err := cam.StartStreaming(); err != nil {
		_ = cam.Close()
		return nil, fmt.Errorf("start streaming: %w", err)
	}

	stream := &v4l2Stream{cam: cam}
	if ctx.Err() != nil {
		_ = stream.Close()
		return nil, ctx.Err()
	}
	return stream, nil
}

// pickFrameSize selects the supported size closest to the ideal resolution.
// Stepwise ranges are clamped toward the ideal.
func pickFrameSize(sizes []webcam.FrameSize, idealW, idealH uint32) (uint32, uint32) {
	if len(sizes) == 0 {
		return idealW, idealH
	}
	bestW, bestH := uint32(0), uint32(0)
	bestDist := int64(-1)
	for _, fs := range sizes {
		w := clampStep(idealW, fs.MinWidth, fs.MaxWidth, fs.StepWidth)
		h := clampStep(idealH, fs.MinHeight, fs.MaxHeight, fs.StepHeight)
		dw := int64(w) - int64(idealW)
		dh := int64(h) - int64(idealH)
		dist := dw*dw + dh*dh
		if bestDist < 0 || dist < bestDist {
			bestW, bestH, bestDist = w, h, dist
		}
	}
	return bestW, bestH
}

func clampStep(ideal, min, max, step uint32) uint32 {
	if ideal <= min {
		return min
	}
	if ideal >= max {
		return max
	}
	if step == 0 {
		return ideal
	}
	return min + ((ideal-min)/step)*step
}

type v4l2Stream struct {
	cam *webcam.Webcam

	mu     sync.Mutex
	closed bool
}

// NextFrame blocks until the driver delivers a decodable frame. Truncated
// MJPEG frames (some UVC drivers emit them under load) are skipped rather
// than surfaced as stream errors.
func (s *v4l2Stream) NextFrame(ctx context.Context) (image.Image, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		err := s.cam.WaitForFrame(1)
		switch err.(type) {
		case nil:
		case *webcam.Timeout:
			continue
		default:
			return nil, fmt.Errorf("wait for frame: %w", err)
		}

		data, err := s.cam.ReadFrame()
		if err != nil {
			return nil, fmt.Errorf("read frame: %w", err)
		}
		if len(data) == 0 {
			continue
		}

		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			continue
		}
		return img, nil
	}
}

func (s *v4l2Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	_ = s.cam.StopStreaming()
	return s.cam.Close()
}
