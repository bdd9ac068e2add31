// Package capture runs the periodic capture cycle: gate on the schedule
// window, expose, normalize, analyze, balance, stretch, feed the
// auto-exposure loop, and emit a calibration record.
package capture

import (
	"context"
	"time"

	"github.com/englishfox90/pfrsentinel/internal/astro"
	"github.com/englishfox90/pfrsentinel/internal/calibration"
	"github.com/englishfox90/pfrsentinel/internal/errors"
	"github.com/englishfox90/pfrsentinel/internal/exposure"
	"github.com/englishfox90/pfrsentinel/internal/imaging"
	"github.com/englishfox90/pfrsentinel/internal/logger"
	"github.com/englishfox90/pfrsentinel/internal/providers"
	"github.com/englishfox90/pfrsentinel/internal/schedule"
	"github.com/englishfox90/pfrsentinel/internal/sensor"
	"github.com/englishfox90/pfrsentinel/internal/stretch"
	"github.com/englishfox90/pfrsentinel/internal/whitebalance"
)

// How long to sleep between schedule checks while outside the window.
const offWindowPoll = 60 * time.Second

// Budget for optional context providers per cycle.
const providerBudget = 3 * time.Second

// FrameSink receives the corrected frame and its record after each
// cycle. Implementations encode, preview, or forward; the scheduler
// does not care.
type FrameSink interface {
	HandleFrame(img *imaging.Image, rec *calibration.Record)
}

// Options wire the scheduler's collaborators. Sensor and Source are
// required; everything else may be nil.
type Options struct {
	Sensor sensor.Sensor
	Source SettingsSource

	Controller *exposure.Controller
	Records    calibration.Sink
	Frames     FrameSink

	Roof      providers.RoofProvider
	Weather   providers.WeatherProvider
	Predictor providers.Predictor

	Session string
	Camera  string
	Logger  logger.Logger

	// Clock is injectable for tests, defaults to time.Now.
	Clock func() time.Time
}

// Scheduler owns the capture loop. One scheduler drives one sensor.
type Scheduler struct {
	opts   Options
	log    logger.Logger
	recal  exposure.RecalLimiter
	cycles uint64
}

// NewScheduler validates the wiring.
func NewScheduler(opts Options) (*Scheduler, error) {
	errFactory := errors.New()

	if opts.Sensor == nil {
		return nil, errFactory.WithMessage(errors.ErrSchedulerStart, "no sensor configured")
	}
	if opts.Source == nil {
		return nil, errFactory.WithMessage(errors.ErrSchedulerStart, "no settings source configured")
	}
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Scheduler{opts: opts, log: opts.Logger}, nil
}

// Cycles returns the number of completed capture cycles.
func (s *Scheduler) Cycles() uint64 {
	return s.cycles
}

// Run executes capture cycles until the context is cancelled. A failed
// cycle is logged and the loop continues; only cancellation ends it.
// Cancellation mid-exposure aborts the exposure in flight.
func (s *Scheduler) Run(ctx context.Context) error {
	// Abort a blocking exposure as soon as shutdown is requested.
	go func() {
		<-ctx.Done()
		if err := s.opts.Sensor.AbortExposure(); err != nil {
			s.log.Debug().Err(err).Msg("Abort on shutdown failed")
		}
	}()

	s.log.Info().Msg("Capture scheduler started")

	for {
		if err := ctx.Err(); err != nil {
			s.log.Info().Msg("Capture scheduler stopped")
			return nil
		}

		snap := s.opts.Source.Snapshot()
		now := s.opts.Clock()

		if !schedule.Allows(snap.Schedule.Enabled, snap.Schedule.Start, snap.Schedule.End, now) {
			s.log.Debug().
				Str("window", snap.Schedule.Start+"-"+snap.Schedule.End).
				Msg("Outside capture window")
			if !sleepCtx(ctx, offWindowPoll) {
				return nil
			}
			continue
		}

		start := s.opts.Clock()
		if err := s.cycle(ctx, snap); err != nil {
			if errors.HasCode(err, errors.ErrCaptureAborted) || ctx.Err() != nil {
				s.log.Info().Msg("Capture scheduler stopped")
				return nil
			}
			s.log.ErrorWithCode(errors.New().Wrap(errors.ErrCycleFailed, err)).
				Msg("Capture cycle failed")
		} else {
			s.cycles++
		}

		elapsed := s.opts.Clock().Sub(start)
		if wait := snap.Interval - elapsed; wait > 0 {
			if !sleepCtx(ctx, wait) {
				return nil
			}
		}
	}
}

// cycle runs one full capture. Any error abandons the frame; state that
// must survive (exposure, recalibration budget) lives in the controller.
func (s *Scheduler) cycle(ctx context.Context, snap Settings) error {
	exposureSec := snap.Camera.ExposureSec
	if snap.AutoExposure.Enabled && s.opts.Controller != nil {
		exposureSec = s.opts.Controller.Exposure()
	}

	if err := s.applySensorSettings(exposureSec, snap); err != nil {
		return err
	}

	if s.opts.Controller != nil {
		s.opts.Controller.BeginExposure()
	}
	frame, meta, err := s.opts.Sensor.CaptureFrame(ctx)
	if err != nil {
		return err
	}

	norm := imaging.InferNormalization(frame)
	img := imaging.Normalize(frame, norm)

	gains := s.balance(img, snap)

	lum := img.Luminance()
	corners := imaging.AnalyzeCorners(lum, img, imaging.DefaultCornerOptions)
	percentiles := imaging.SummarizePercentiles(lum)

	brightness := imaging.Brightness(lum, snap.AutoExposure.Algorithm, snap.AutoExposure.Percentile)
	clippedPct, isClipping := imaging.Clipping(lum)

	var stretchRes stretch.Result
	if snap.StretchEnabled {
		stretchRes = stretch.Apply(img, lum, snap.Stretch)
	} else {
		stretchRes = stretch.Measure(lum, snap.Stretch.DarkSceneThreshold)
	}

	now := s.opts.Clock()
	tc := astro.Compute(now, snap.Location)

	if snap.AutoExposure.Enabled && s.opts.Controller != nil {
		next := s.opts.Controller.Observe(brightness)
		s.log.Debug().
			Float64("brightness", brightness).
			Float64("exposure_sec", next).
			Str("direction", s.opts.Controller.Snapshot().Direction.String()).
			Msg("Auto-exposure observed frame")

		if s.recal.ShouldRecalibrate(brightness, snap.AutoExposure.Target, now) {
			s.recalibrate(ctx, snap)
		}
	}

	rec := &calibration.Record{
		Timestamp:      meta.Timestamp,
		Session:        s.opts.Session,
		Camera:         s.camera(meta),
		ExposureSec:    meta.ExposureSec,
		Gain:           meta.Gain,
		Normalization:  calibration.NormalizationFrom(norm),
		Percentiles:    percentiles,
		CornerAnalysis: corners,
		Stretch:        calibration.StretchFrom(stretchRes),
		TimeContext:    calibration.TimeContextFrom(tc),
	}
	s.attachContext(ctx, rec, snap, now)

	if s.opts.Records != nil {
		s.opts.Records.Publish(rec)
	}
	if s.opts.Frames != nil {
		s.opts.Frames.HandleFrame(img, rec)
	}

	s.log.Info().
		Float64("brightness", brightness).
		Float64("exposure_sec", meta.ExposureSec).
		Float64("median_lum", stretchRes.MedianLum).
		Float64("corner_ratio", corners.CornerToCenterRatio).
		Str("period", tc.Period).
		Str("wb_mode", string(gains.Mode)).
		Bool("clipping", isClipping).
		Float64("clipped_pct", clippedPct).
		Msg("Frame processed")

	return nil
}

func (s *Scheduler) applySensorSettings(exposureSec float64, snap Settings) error {
	if err := s.opts.Sensor.SetExposure(exposureSec); err != nil {
		return err
	}
	if err := s.opts.Sensor.SetGain(snap.Camera.Gain); err != nil {
		return err
	}
	if err := s.opts.Sensor.SetOffset(snap.Camera.Offset); err != nil {
		return err
	}

	return s.opts.Sensor.SetFlip(snap.Camera.Flip)
}

// balance picks and applies the configured white balance mode.
func (s *Scheduler) balance(img *imaging.Image, snap Settings) whitebalance.Gains {
	switch whitebalance.Mode(snap.WhiteBalance.Mode) {
	case whitebalance.ModeManual:
		g := whitebalance.Manual(snap.WhiteBalance.RedGain, snap.WhiteBalance.BlueGain)
		whitebalance.Apply(img, g)
		return g
	case whitebalance.ModeGrayWorld:
		g := whitebalance.GrayWorld(img, snap.WhiteBalance.LowPct, snap.WhiteBalance.HighPct)
		whitebalance.Apply(img, g)
		return g
	default:
		// Sensor-side balancing; nothing to do here.
		return whitebalance.Unity(whitebalance.ModeAuto)
	}
}

// recalibrate runs the rapid exposure search against the live sensor.
func (s *Scheduler) recalibrate(ctx context.Context, snap Settings) {
	s.log.Info().Msg("Brightness deviation triggered recalibration")

	got, err := s.opts.Controller.Calibrate(ctx, func(ctx context.Context, exp float64) (float64, error) {
		if err := s.opts.Sensor.SetExposure(exp); err != nil {
			return 0, err
		}
		frame, _, err := s.opts.Sensor.CaptureFrame(ctx)
		if err != nil {
			return 0, err
		}
		norm := imaging.InferNormalization(frame)
		lum := imaging.Normalize(frame, norm).Luminance()

		return imaging.Brightness(lum, snap.AutoExposure.Algorithm, snap.AutoExposure.Percentile), nil
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("Recalibration aborted")
		return
	}

	s.log.Info().Float64("exposure_sec", got).Msg("Recalibration complete")
}

// attachContext adds the optional provider sub-objects, sharing one
// deadline so slow providers cannot stall the cycle.
func (s *Scheduler) attachContext(ctx context.Context, rec *calibration.Record, snap Settings, now time.Time) {
	if snap.Location.Set {
		moon := astro.Moon(now, snap.Location)
		rec.MoonContext = &moon
	}

	needsProviders := (snap.Roof && s.opts.Roof != nil) ||
		(snap.Weather && s.opts.Weather != nil) ||
		(snap.Predict && s.opts.Predictor != nil)
	if !needsProviders {
		return
	}

	pctx, cancel := context.WithTimeout(ctx, providerBudget)
	defer cancel()

	if snap.Roof && s.opts.Roof != nil {
		state := s.opts.Roof.Fetch(pctx)
		rec.RoofState = &state
	}
	if snap.Weather && s.opts.Weather != nil {
		w := s.opts.Weather.Fetch(pctx)
		rec.WeatherContext = &w
	}
	if snap.Predict && s.opts.Predictor != nil {
		pred := s.opts.Predictor.Predict(pctx, providers.Features{
			MedianLum:           rec.Stretch.MedianLum,
			MeanLum:             rec.Stretch.MeanLum,
			CornerToCenterRatio: rec.CornerAnalysis.CornerToCenterRatio,
			CenterMinusCorner:   rec.CornerAnalysis.CenterMinusCorner,
			P99:                 rec.Percentiles.P99,
			IsDarkScene:         rec.Stretch.IsDarkScene,
			Period:              rec.TimeContext.Period,
		})
		rec.MLPrediction = &pred
	}
}

func (s *Scheduler) camera(meta sensor.Metadata) string {
	if s.opts.Camera != "" {
		return s.opts.Camera
	}

	return meta.Camera
}

// sleepCtx waits for d, returning false if the context ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
