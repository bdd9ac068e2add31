package sensor

import (
	"context"
	"time"
)

// Flip mirrors the sensor-side image flip modes.
type Flip int

const (
	FlipNone Flip = iota
	FlipHorizontal
	FlipVertical
	FlipBoth
)

// BayerPattern is the color filter array layout reported by the sensor.
type BayerPattern string

const (
	BayerRGGB BayerPattern = "RGGB"
	BayerBGGR BayerPattern = "BGGR"
	BayerGRBG BayerPattern = "GRBG"
	BayerGBRG BayerPattern = "GBRG"
)

// Frame is a single captured image. Pix is stored row-major; for color
// frames the channels are interleaved RGB, so a pixel occupies Channels
// consecutive values. Values always fit the uint16 container even when
// the sensor ADC produces fewer significant bits.
type Frame struct {
	Pix      []uint16
	Width    int
	Height   int
	Channels int
	BitDepth int
	ADCBits  int
}

// At returns the value of channel c at (x, y). No bounds checking.
func (f *Frame) At(x, y, c int) uint16 {
	return f.Pix[(y*f.Width+x)*f.Channels+c]
}

// Color reports whether the frame carries three channels.
func (f *Frame) Color() bool {
	return f.Channels == 3
}

// Metadata describes the capture that produced a frame.
type Metadata struct {
	Camera      string
	Timestamp   time.Time
	ExposureSec float64
	Gain        int
	Offset      int
	Bayer       BayerPattern
	SensorTempC float64
}

// Sensor is the capture device capability surface. Implementations are
// not required to be safe for concurrent captures; the scheduler issues
// one capture at a time. AbortExposure may be called from another
// goroutine to interrupt a capture in flight.
type Sensor interface {
	SetExposure(seconds float64) error
	SetGain(gain int) error
	SetOffset(offset int) error
	SetFlip(mode Flip) error
	CaptureFrame(ctx context.Context) (*Frame, Metadata, error)
	AbortExposure() error
	Close() error
}
