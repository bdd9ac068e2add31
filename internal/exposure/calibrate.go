package exposure

import (
	"context"
	"math"
	"sync"
	"time"
)

// Rapid calibration parameters. Calibration converges faster than the
// per-frame loop by allowing larger per-step jumps.
const (
	calibrationStartExposure = 1.0 // seconds
	calibrationMaxIterations = 10
	calibrationRatioMin      = 0.3
	calibrationRatioMax      = 3.0
	calibrationStallSec      = 0.001
)

// CaptureFunc takes a test exposure and returns the measured brightness
// of the resulting frame.
type CaptureFunc func(ctx context.Context, exposureSec float64) (float64, error)

// Calibrate runs the rapid search for a workable starting exposure and
// seeds the controller with the result. It stops when the measurement
// lands inside the tolerance band, an exposure bound is hit, the step
// stalls below a millisecond, or the iteration budget runs out.
func (c *Controller) Calibrate(ctx context.Context, capture CaptureFunc) (float64, error) {
	c.mu.Lock()
	s := c.settings
	c.mu.Unlock()

	exposure := clamp(calibrationStartExposure, s.MinExposure, s.MaxExposure)

	for i := 0; i < calibrationMaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return exposure, err
		}

		measured, err := capture(ctx, exposure)
		if err != nil {
			return exposure, err
		}

		if math.Abs(measured-s.Target) <= s.Tolerance {
			break
		}

		ratio := s.Target / math.Max(measured, s.Floor)
		ratio = clamp(ratio, calibrationRatioMin, calibrationRatioMax)
		next := clamp(exposure*ratio, s.MinExposure, s.MaxExposure)

		if math.Abs(next-exposure) < calibrationStallSec {
			break
		}
		exposure = next

		if exposure == s.MinExposure || exposure == s.MaxExposure {
			break
		}
	}

	c.SetExposure(exposure)

	return c.Exposure(), nil
}

// Recalibration triggering: a large sustained brightness deviation means
// the scene changed faster than the per-frame loop can follow (roof
// opened, lights switched). Triggers are rate limited so one bad frame
// cannot thrash the sensor.
const (
	RecalDeviation = 100.0
	recalCooldown  = 60 * time.Second
	recalWindow    = 600 * time.Second
	recalWindowMax = 3
)

// RecalLimiter rate limits rapid recalibration runs.
type RecalLimiter struct {
	mu          sync.Mutex
	last        time.Time
	windowStart time.Time
	count       int
}

// ShouldRecalibrate reports whether the measured deviation warrants a
// recalibration run right now, and records the trigger when it does.
func (l *RecalLimiter) ShouldRecalibrate(measured, target float64, now time.Time) bool {
	if math.Abs(measured-target) <= RecalDeviation {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.last.IsZero() && now.Sub(l.last) < recalCooldown {
		return false
	}
	if l.windowStart.IsZero() || now.Sub(l.windowStart) >= recalWindow {
		l.windowStart = now
		l.count = 0
	}
	if l.count >= recalWindowMax {
		return false
	}

	l.last = now
	l.count++

	return true
}
