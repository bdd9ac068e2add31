package capture

import (
	"time"

	"github.com/englishfox90/pfrsentinel/internal/astro"
	"github.com/englishfox90/pfrsentinel/internal/config"
	"github.com/englishfox90/pfrsentinel/internal/sensor"
	"github.com/englishfox90/pfrsentinel/internal/stretch"
)

// Settings is the per-cycle configuration snapshot. The scheduler reads
// one snapshot at the top of each cycle and never consults live config
// mid-cycle, so a concurrent config change cannot tear a frame's
// processing.
type Settings struct {
	Interval time.Duration

	Camera struct {
		ExposureSec float64
		Gain        int
		Offset      int
		Flip        sensor.Flip
	}

	AutoExposure struct {
		Enabled    bool
		Algorithm  string
		Percentile float64
		Target     float64
		Tolerance  float64
	}

	Schedule struct {
		Enabled bool
		Start   string
		End     string
	}

	WhiteBalance struct {
		Mode     string
		RedGain  int
		BlueGain int
		LowPct   float64
		HighPct  float64
	}

	StretchEnabled bool
	Stretch        stretch.Params

	Location astro.Location

	Roof    bool
	Weather bool
	Predict bool
}

// SettingsSource yields the snapshot for the next cycle.
type SettingsSource interface {
	Snapshot() Settings
}

// SettingsFunc adapts a function to SettingsSource.
type SettingsFunc func() Settings

func (f SettingsFunc) Snapshot() Settings {
	return f()
}

// FromConfig maps the loaded configuration onto a cycle snapshot.
func FromConfig(cfg *config.Config) Settings {
	var s Settings

	s.Interval = time.Duration(cfg.Interval * float64(time.Second))

	s.Camera.ExposureSec = cfg.Camera.ExposureMs / 1000
	s.Camera.Gain = cfg.Camera.Gain
	s.Camera.Offset = cfg.Camera.Offset
	s.Camera.Flip = sensor.Flip(cfg.Camera.Flip)

	s.AutoExposure.Enabled = cfg.AutoExposure.Enabled
	s.AutoExposure.Algorithm = cfg.AutoExposure.Algorithm
	s.AutoExposure.Percentile = cfg.AutoExposure.Percentile
	s.AutoExposure.Target = cfg.AutoExposure.TargetBrightness
	s.AutoExposure.Tolerance = cfg.AutoExposure.Tolerance

	s.Schedule.Enabled = cfg.Schedule.Enabled
	s.Schedule.Start = cfg.Schedule.Start
	s.Schedule.End = cfg.Schedule.End

	s.WhiteBalance.Mode = cfg.WhiteBalance.Mode
	s.WhiteBalance.RedGain = cfg.WhiteBalance.RedGain
	s.WhiteBalance.BlueGain = cfg.WhiteBalance.BlueGain
	s.WhiteBalance.LowPct = cfg.WhiteBalance.GrayWorldLowPct
	s.WhiteBalance.HighPct = cfg.WhiteBalance.GrayWorldHighPct

	s.StretchEnabled = cfg.Stretch.Enabled
	s.Stretch = stretch.Params{
		TargetMedian:         cfg.Stretch.TargetMedian,
		Linked:               cfg.Stretch.Linked,
		PreserveBlacks:       cfg.Stretch.PreserveBlacks,
		NormalizeChannels:    cfg.Stretch.NormalizeChannels,
		DarkSceneThreshold:   cfg.Stretch.DarkSceneThreshold,
		ShadowAggressiveness: cfg.Stretch.ShadowAggressiveness,
		SaturationBoost:      cfg.Stretch.SaturationBoost,
	}

	s.Location = astro.Location{
		Name:      cfg.Location.Name,
		Latitude:  cfg.Location.Latitude,
		Longitude: cfg.Location.Longitude,
		Set:       cfg.Location.Set,
	}

	s.Roof = cfg.Providers.Roof.Enabled
	s.Weather = cfg.Providers.Weather.Enabled
	s.Predict = cfg.Providers.ML.Enabled

	return s
}
