package capture_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/englishfox90/pfrsentinel/internal/calibration"
	"github.com/englishfox90/pfrsentinel/internal/capture"
	"github.com/englishfox90/pfrsentinel/internal/exposure"
	"github.com/englishfox90/pfrsentinel/internal/logger"
	"github.com/englishfox90/pfrsentinel/internal/sensor"
)

func init() {
	logger.Init(false, false, false)
}

type memSink struct {
	mu   sync.Mutex
	recs []*calibration.Record
}

func (m *memSink) Publish(rec *calibration.Record) {
	m.mu.Lock()
	m.recs = append(m.recs, rec)
	m.mu.Unlock()
}

func (m *memSink) records() []*calibration.Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]*calibration.Record(nil), m.recs...)
}

func testSettings() capture.Settings {
	var s capture.Settings
	s.Interval = time.Millisecond
	s.Camera.ExposureSec = 0.1
	s.Camera.Gain = 100
	s.WhiteBalance.Mode = "auto"
	s.StretchEnabled = true
	s.Stretch.TargetMedian = 0.25
	s.Stretch.Linked = true
	s.Stretch.DarkSceneThreshold = 0.05
	s.Stretch.ShadowAggressiveness = 2.8
	s.Stretch.SaturationBoost = 1.5
	s.AutoExposure.Algorithm = "mean"

	return s
}

func newScheduler(t *testing.T, sim *sensor.Sim, s capture.Settings, sink *memSink, ctrl *exposure.Controller) *capture.Scheduler {
	t.Helper()
	sched, err := capture.NewScheduler(capture.Options{
		Sensor:     sim,
		Source:     capture.SettingsFunc(func() capture.Settings { return s }),
		Controller: ctrl,
		Records:    sink,
		Session:    "test",
	})
	require.NoError(t, err)

	return sched
}

func TestSchedulerRequiresSensor(t *testing.T) {
	_, err := capture.NewScheduler(capture.Options{
		Source: capture.SettingsFunc(testSettings),
	})
	assert.Error(t, err, "a scheduler without a sensor is a startup failure")
}

func TestSchedulerProducesRecords(t *testing.T) {
	sim := sensor.NewSim(sensor.SimOptions{Width: 64, Height: 48, SkyLevel: 800, Vignette: 0.5})
	sink := &memSink{}
	sched := newScheduler(t, sim, testSettings(), sink, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(sink.records()) >= 3
	}, 5*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	rec := sink.records()[0]
	assert.Equal(t, "test", rec.Session)
	assert.Equal(t, "sim", rec.Camera)
	assert.InDelta(t, 0.1, rec.ExposureSec, 1e-9)
	assert.NotZero(t, rec.Normalization.Denom)
	assert.NotEmpty(t, rec.Normalization.Reason)
	assert.NotEmpty(t, rec.TimeContext.Period)
	assert.Positive(t, rec.CornerAnalysis.CenterMed)
	assert.LessOrEqual(t, rec.Percentiles.P1, rec.Percentiles.P99)
	assert.Nil(t, rec.RoofState, "no provider wired, no roof sub-object")
	assert.Nil(t, rec.WeatherContext)
	assert.Nil(t, rec.MLPrediction)
}

func TestSchedulerAutoExposureConverges(t *testing.T) {
	// Sim brightness is linear in exposure, so the controller should
	// walk the mean brightness into the tolerance band.
	sim := sensor.NewSim(sensor.SimOptions{Width: 64, Height: 48, SkyLevel: 2000})
	ctrl := exposure.NewController(0.02, exposure.Settings{
		Target:      100,
		MinExposure: 0.001,
		MaxExposure: 10,
		Tolerance:   10,
	})

	s := testSettings()
	s.AutoExposure.Enabled = true
	s.AutoExposure.Target = 100
	sink := &memSink{}
	sched := newScheduler(t, sim, s, sink, ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	require.Eventually(t, func() bool {
		snap := ctrl.Snapshot()
		return snap.HasMeasured && snap.Direction == exposure.DirectionStable &&
			len(sink.records()) > 2
	}, 10*time.Second, 10*time.Millisecond, "auto-exposure should settle")

	cancel()
	require.NoError(t, <-done)
}

func TestSchedulerHonorsWindow(t *testing.T) {
	sim := sensor.NewSim(sensor.SimOptions{Width: 32, Height: 24})
	s := testSettings()
	s.Schedule.Enabled = true
	s.Schedule.Start = "17:00"
	s.Schedule.End = "09:00"
	sink := &memSink{}

	sched, err := capture.NewScheduler(capture.Options{
		Sensor:  sim,
		Source:  capture.SettingsFunc(func() capture.Settings { return s }),
		Records: sink,
		Clock: func() time.Time {
			return time.Date(2026, 8, 26, 12, 0, 0, 0, time.Local)
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Empty(t, sink.records(), "noon is outside a 17:00-09:00 window")
	assert.Zero(t, sched.Cycles())
}

func TestSchedulerStopsOnCancelMidExposure(t *testing.T) {
	sim := sensor.NewSim(sensor.SimOptions{Width: 32, Height: 24, RealTime: true})
	require.NoError(t, sim.SetExposure(30))

	s := testSettings()
	s.Camera.ExposureSec = 30
	sink := &memSink{}
	sched := newScheduler(t, sim, s, sink, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop; exposure abort failed")
	}
}

func TestSchedulerGrayWorldMode(t *testing.T) {
	sim := sensor.NewSim(sensor.SimOptions{
		Width: 64, Height: 48,
		SkyLevel: 800,
		RedBias:  2.0,
	})
	s := testSettings()
	s.WhiteBalance.Mode = "gray_world"
	s.WhiteBalance.LowPct = 5
	s.WhiteBalance.HighPct = 95
	sink := &memSink{}
	sched := newScheduler(t, sim, s, sink, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(sink.records()) >= 1
	}, 5*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
