package sensor

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/englishfox90/pfrsentinel/internal/errors"
)

// SimOptions tune the synthetic scene rendered by the Sim sensor.
type SimOptions struct {
	Width    int
	Height   int
	Channels int
	BitDepth int
	ADCBits  int
	Bayer    BayerPattern

	// SkyLevel is the scene illumination in counts per second at unity
	// gain, before vignetting. Brightness scales linearly with exposure
	// and gain so the feedback controller has something real to chase.
	SkyLevel float64

	// Vignette darkens the frame toward the corners, 0 disables.
	Vignette float64

	// ColorBias multiplies the R and B channels to give the gray-world
	// balancer a cast to correct. Unused for mono frames.
	RedBias  float64
	BlueBias float64

	// NoiseSigma is the read noise in counts.
	NoiseSigma float64

	// RealTime makes CaptureFrame block for the exposure duration.
	// Tests leave it false so captures return immediately.
	RealTime bool

	Seed int64
}

// Sim is a synthetic sensor used for development and tests. It renders a
// vignetted sky whose brightness follows exposure and gain, which is
// enough to exercise the normalizer, corner analyzer and auto-exposure
// loop end to end.
type Sim struct {
	mu       sync.Mutex
	opts     SimOptions
	exposure float64
	gain     int
	offset   int
	flip     Flip
	rng      *rand.Rand
	abort    chan struct{}
	closed   bool
	errs     errors.Factory
}

// NewSim returns a Sim with zeroed options filled from defaults.
func NewSim(opts SimOptions) *Sim {
	if opts.Width == 0 {
		opts.Width = 320
	}
	if opts.Height == 0 {
		opts.Height = 240
	}
	if opts.Channels == 0 {
		opts.Channels = 3
	}
	if opts.BitDepth == 0 {
		opts.BitDepth = 16
	}
	if opts.ADCBits == 0 {
		opts.ADCBits = 12
	}
	if opts.SkyLevel == 0 {
		opts.SkyLevel = 1200
	}
	if opts.Bayer == "" {
		opts.Bayer = BayerBGGR
	}
	if opts.RedBias == 0 {
		opts.RedBias = 1
	}
	if opts.BlueBias == 0 {
		opts.BlueBias = 1
	}

	return &Sim{
		opts:     opts,
		exposure: 0.1,
		gain:     100,
		rng:      rand.New(rand.NewSource(opts.Seed)),
		abort:    make(chan struct{}),
		errs:     errors.New(),
	}
}

func (s *Sim) SetExposure(seconds float64) error {
	if seconds <= 0 {
		return s.errs.WithData(errors.ErrSetExposure, seconds)
	}
	s.mu.Lock()
	s.exposure = seconds
	s.mu.Unlock()

	return nil
}

func (s *Sim) SetGain(gain int) error {
	if gain < 0 {
		return s.errs.WithData(errors.ErrSetGain, gain)
	}
	s.mu.Lock()
	s.gain = gain
	s.mu.Unlock()

	return nil
}

func (s *Sim) SetOffset(offset int) error {
	s.mu.Lock()
	s.offset = offset
	s.mu.Unlock()

	return nil
}

func (s *Sim) SetFlip(mode Flip) error {
	s.mu.Lock()
	s.flip = mode
	s.mu.Unlock()

	return nil
}

// CaptureFrame renders a frame with the current settings. When RealTime
// is set, the call blocks for the exposure duration and can be cut short
// by context cancellation or AbortExposure.
func (s *Sim) CaptureFrame(ctx context.Context) (*Frame, Metadata, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, Metadata{}, s.errs.WithMessage(errors.ErrSensorUnreachable, "sensor closed")
	}
	opts := s.opts
	exposure := s.exposure
	gain := s.gain
	offset := s.offset
	abort := s.abort
	s.mu.Unlock()

	if opts.RealTime {
		timer := time.NewTimer(time.Duration(exposure * float64(time.Second)))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, Metadata{}, s.errs.Wrap(errors.ErrCaptureAborted, ctx.Err())
		case <-abort:
			return nil, Metadata{}, s.errs.WithMessage(errors.ErrCaptureAborted, "exposure aborted")
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, Metadata{}, s.errs.Wrap(errors.ErrCaptureAborted, err)
	}

	frame := s.render(opts, exposure, gain, offset)
	meta := Metadata{
		Camera:      "sim",
		Timestamp:   time.Now(),
		ExposureSec: exposure,
		Gain:        gain,
		Offset:      offset,
		Bayer:       opts.Bayer,
		SensorTempC: 25,
	}

	return frame, meta, nil
}

func (s *Sim) render(opts SimOptions, exposure float64, gain, offset int) *Frame {
	w, h, ch := opts.Width, opts.Height, opts.Channels
	frame := &Frame{
		Pix:      make([]uint16, w*h*ch),
		Width:    w,
		Height:   h,
		Channels: ch,
		BitDepth: opts.BitDepth,
		ADCBits:  opts.ADCBits,
	}

	maxVal := float64(int(1)<<opts.ADCBits - 1)
	gainFactor := float64(gain) / 100.0
	base := opts.SkyLevel * exposure * gainFactor

	cx, cy := float64(w-1)/2, float64(h-1)/2
	maxR2 := cx*cx + cy*cy

	s.mu.Lock()
	rng := s.rng
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			fall := 1.0
			if opts.Vignette > 0 && maxR2 > 0 {
				fall = 1 - opts.Vignette*(dx*dx+dy*dy)/maxR2
			}
			signal := base*fall + float64(offset)
			for c := 0; c < ch; c++ {
				v := signal
				if ch == 3 {
					switch c {
					case 0:
						v *= opts.RedBias
					case 2:
						v *= opts.BlueBias
					}
				}
				if opts.NoiseSigma > 0 {
					v += rng.NormFloat64() * opts.NoiseSigma
				}
				if v < 0 {
					v = 0
				}
				if v > maxVal {
					v = maxVal
				}
				frame.Pix[(y*w+x)*ch+c] = uint16(v)
			}
		}
	}
	s.mu.Unlock()

	return frame
}

// AbortExposure interrupts a RealTime capture in flight. Safe to call
// when no capture is running.
func (s *Sim) AbortExposure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.abort:
	default:
		close(s.abort)
	}
	s.abort = make(chan struct{})

	return nil
}

func (s *Sim) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	return nil
}
