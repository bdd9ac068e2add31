// Package exposure holds the brightness feedback controller that keeps
// frame brightness at a configured target by adjusting exposure time.
package exposure

import (
	"math"
	"sync"
)

// State of the controller across one capture cycle.
type State int

const (
	StateIdle State = iota
	StateExposing
	StateMeasuring
	StateAdjusting
)

func (s State) String() string {
	switch s {
	case StateExposing:
		return "exposing"
	case StateMeasuring:
		return "measuring"
	case StateAdjusting:
		return "adjusting"
	default:
		return "idle"
	}
}

// Direction of the last adjustment.
type Direction int

const (
	DirectionStable Direction = iota
	DirectionIncreasing
	DirectionDecreasing
)

func (d Direction) String() string {
	switch d {
	case DirectionIncreasing:
		return "increasing"
	case DirectionDecreasing:
		return "decreasing"
	default:
		return "stable"
	}
}

// Settings tune the feedback loop. Brightness values are on the 0-255
// scale, exposures in seconds.
type Settings struct {
	Target      float64
	MinExposure float64
	MaxExposure float64
	Tolerance   float64

	// Floor guards the ratio against a zero brightness measurement.
	Floor float64
}

// DefaultFloor avoids division blowups on fully black frames.
const DefaultFloor = 1.0

// Smallest exposure change worth pushing to the sensor, seconds.
const minAdjustment = 0.001

// Per-frame adjustments are limited to a halving or doubling so one bad
// measurement cannot slam the exposure across its range. The rapid
// calibration search uses its own wider clamp.
const (
	stepRatioMin = 0.5
	stepRatioMax = 2.0
)

// Controller is the auto-exposure state machine. One controller drives
// one sensor; methods are safe for concurrent use so status can be read
// while a cycle is running.
type Controller struct {
	mu       sync.Mutex
	settings Settings
	exposure float64

	state        State
	direction    Direction
	lastMeasured float64
	hasMeasured  bool
}

// NewController starts from an initial exposure, clamped into bounds.
func NewController(initialExposure float64, s Settings) *Controller {
	if s.Floor <= 0 {
		s.Floor = DefaultFloor
	}

	return &Controller{
		settings: s,
		exposure: clamp(initialExposure, s.MinExposure, s.MaxExposure),
	}
}

// Exposure returns the exposure to use for the next capture, seconds.
func (c *Controller) Exposure() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.exposure
}

// BeginExposure marks the start of a capture.
func (c *Controller) BeginExposure() {
	c.mu.Lock()
	c.state = StateExposing
	c.mu.Unlock()
}

// Observe feeds one brightness measurement through the proportional
// law and returns the exposure for the next frame:
//
//	ratio = clamp(target / max(measured, floor), 0.5, 2.0)
//	next  = clamp(exposure * ratio, min, max)
//
// Measurements inside the tolerance band leave the exposure untouched,
// as do adjustments smaller than a millisecond, so the loop does not
// hunt around the target.
func (c *Controller) Observe(measured float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = StateMeasuring
	c.lastMeasured = measured
	c.hasMeasured = true

	diff := measured - c.settings.Target
	if math.Abs(diff) <= c.settings.Tolerance {
		c.direction = DirectionStable
		c.state = StateIdle

		return c.exposure
	}

	c.state = StateAdjusting
	ratio := c.settings.Target / math.Max(measured, c.settings.Floor)
	ratio = clamp(ratio, stepRatioMin, stepRatioMax)
	next := clamp(c.exposure*ratio, c.settings.MinExposure, c.settings.MaxExposure)

	if math.Abs(next-c.exposure) < minAdjustment {
		c.direction = DirectionStable
		c.state = StateIdle

		return c.exposure
	}

	if next > c.exposure {
		c.direction = DirectionIncreasing
	} else {
		c.direction = DirectionDecreasing
	}
	c.exposure = next
	c.state = StateIdle

	return next
}

// Snapshot is a copyable view of the controller for status reporting.
type Snapshot struct {
	Exposure     float64
	Target       float64
	Tolerance    float64
	MinExposure  float64
	MaxExposure  float64
	LastMeasured float64
	HasMeasured  bool
	State        State
	Direction    Direction
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		Exposure:     c.exposure,
		Target:       c.settings.Target,
		Tolerance:    c.settings.Tolerance,
		MinExposure:  c.settings.MinExposure,
		MaxExposure:  c.settings.MaxExposure,
		LastMeasured: c.lastMeasured,
		HasMeasured:  c.hasMeasured,
		State:        c.state,
		Direction:    c.direction,
	}
}

// SetExposure overrides the current exposure, clamped into bounds.
// Used after rapid calibration seeds a better starting point.
func (c *Controller) SetExposure(seconds float64) {
	c.mu.Lock()
	c.exposure = clamp(seconds, c.settings.MinExposure, c.settings.MaxExposure)
	c.mu.Unlock()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}

	return v
}
