package exposure_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/englishfox90/pfrsentinel/internal/exposure"
)

func settings() exposure.Settings {
	return exposure.Settings{
		Target:      100,
		MinExposure: 0.000032,
		MaxExposure: 30,
		Tolerance:   20,
	}
}

func TestObserveDoublesUnderexposed(t *testing.T) {
	c := exposure.NewController(1.0, settings())

	next := c.Observe(50)
	assert.InDelta(t, 2.0, next, 1e-9, "half the target brightness doubles the exposure")
	assert.Equal(t, exposure.DirectionIncreasing, c.Snapshot().Direction)
}

func TestObserveHalvesOverexposed(t *testing.T) {
	c := exposure.NewController(1.0, settings())

	next := c.Observe(200)
	assert.InDelta(t, 0.5, next, 1e-9)
	assert.Equal(t, exposure.DirectionDecreasing, c.Snapshot().Direction)
}

func TestObserveToleranceDeadBand(t *testing.T) {
	c := exposure.NewController(1.0, settings())

	next := c.Observe(110)
	assert.InDelta(t, 1.0, next, 1e-9, "inside the tolerance band nothing changes")
	assert.Equal(t, exposure.DirectionStable, c.Snapshot().Direction)
}

func TestObserveClampsToBounds(t *testing.T) {
	c := exposure.NewController(20, settings())
	next := c.Observe(1)
	assert.InDelta(t, 30, next, 1e-9, "clamped to max exposure")

	s := settings()
	s.MinExposure = 0.002
	c = exposure.NewController(0.004, s)
	next = c.Observe(255)
	assert.InDelta(t, 0.002, next, 1e-9, "clamped to min exposure")
}

func TestObserveZeroBrightnessUsesFloor(t *testing.T) {
	c := exposure.NewController(1.0, settings())

	next := c.Observe(0)
	assert.InDelta(t, 2.0, next, 1e-9, "floor of 1 avoids the division blowup; the step clamp caps the push at doubling")
}

func TestObserveStepRatioClamp(t *testing.T) {
	c := exposure.NewController(1.0, settings())
	next := c.Observe(10)
	assert.InDelta(t, 2.0, next, 1e-9, "a 10x brightness deficit advances by at most a doubling per frame")

	c = exposure.NewController(1.0, settings())
	next = c.Observe(1000)
	assert.InDelta(t, 0.5, next, 1e-9, "a large surplus retreats by at most a halving per frame")
}

func TestObserveIgnoresSubMillisecondChange(t *testing.T) {
	s := settings()
	s.Tolerance = 0
	c := exposure.NewController(0.01, s)

	// 0.01 * 100/99 moves the exposure by ~0.0001s, below the threshold.
	next := c.Observe(99)
	assert.InDelta(t, 0.01, next, 1e-9)
	assert.Equal(t, exposure.DirectionStable, c.Snapshot().Direction)
}

func TestSnapshotTracksState(t *testing.T) {
	c := exposure.NewController(1.0, settings())

	snap := c.Snapshot()
	assert.Equal(t, exposure.StateIdle, snap.State)
	assert.False(t, snap.HasMeasured)

	c.BeginExposure()
	assert.Equal(t, exposure.StateExposing, c.Snapshot().State)

	c.Observe(50)
	snap = c.Snapshot()
	assert.Equal(t, exposure.StateIdle, snap.State)
	assert.True(t, snap.HasMeasured)
	assert.InDelta(t, 50.0, snap.LastMeasured, 1e-9)
}

func TestCalibrateConverges(t *testing.T) {
	c := exposure.NewController(1.0, settings())

	// Linear scene: brightness 40 per second of exposure, so the target
	// of 100 sits at 2.5s.
	calls := 0
	capture := func(_ context.Context, exp float64) (float64, error) {
		calls++
		return 40 * exp, nil
	}

	got, err := c.Calibrate(context.Background(), capture)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, got, 0.7, "calibration lands near the ideal exposure")
	assert.LessOrEqual(t, calls, 10)
	assert.InDelta(t, got, c.Exposure(), 1e-9, "controller seeded with the result")
}

func TestCalibrateRespectsContext(t *testing.T) {
	c := exposure.NewController(1.0, settings())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Calibrate(ctx, func(context.Context, float64) (float64, error) {
		t.Fatal("capture must not run after cancellation")
		return 0, nil
	})
	assert.Error(t, err)
}

func TestRecalLimiter(t *testing.T) {
	var l exposure.RecalLimiter
	now := time.Date(2026, 8, 26, 1, 0, 0, 0, time.UTC)

	assert.False(t, l.ShouldRecalibrate(150, 100, now), "deviation of 50 is tolerable")
	assert.True(t, l.ShouldRecalibrate(250, 100, now))
	assert.False(t, l.ShouldRecalibrate(250, 100, now.Add(30*time.Second)), "inside cooldown")
	assert.True(t, l.ShouldRecalibrate(250, 100, now.Add(61*time.Second)))
	assert.True(t, l.ShouldRecalibrate(250, 100, now.Add(122*time.Second)))
	assert.False(t, l.ShouldRecalibrate(250, 100, now.Add(190*time.Second)),
		"three triggers exhaust the 10 minute window")
	assert.True(t, l.ShouldRecalibrate(250, 100, now.Add(11*time.Minute)),
		"a fresh window allows triggering again")
}
