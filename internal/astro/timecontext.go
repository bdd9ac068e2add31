// Package astro classifies wall-clock time into observing periods using
// solar ephemeris when the observer location is known, degrading to a
// fixed hour table when it is not.
package astro

import (
	"math"
	"time"

	"github.com/sixdouglas/suncalc"
)

// Location is the observer position. Set false means unconfigured and
// forces the hour-table fallback regardless of coordinates.
type Location struct {
	Name      string
	Latitude  float64
	Longitude float64
	Set       bool
}

// Period is the coarse day classification.
const (
	PeriodDay      = "day"
	PeriodTwilight = "twilight"
	PeriodNight    = "night"
)

// Detailed period names.
const (
	DetailedNight     = "night"
	DetailedDawn      = "dawn"
	DetailedMorning   = "morning"
	DetailedAfternoon = "afternoon"
	DetailedEvening   = "evening"
	DetailedDusk      = "dusk"
)

// Classification methods stamped on the context.
const (
	MethodEphemeris = "ephemeris"
	MethodHourTable = "hour_table"
)

// SunTimes are the solar events for the evaluation date.
type SunTimes struct {
	Dawn    time.Time `json:"dawn"`
	Sunrise time.Time `json:"sunrise"`
	Noon    time.Time `json:"noon"`
	Sunset  time.Time `json:"sunset"`
	Dusk    time.Time `json:"dusk"`
}

// TimeContext is the solar classification of a single instant.
type TimeContext struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`

	Period              string `json:"period"`
	DetailedPeriod      string `json:"detailed_period"`
	IsDaylight          bool   `json:"is_daylight"`
	IsAstronomicalNight bool   `json:"is_astronomical_night"`

	Method   string    `json:"method"`
	SunTimes *SunTimes `json:"sun_times,omitempty"`
}

// Sun altitude below which astronomical night holds, radians.
var astroNightAltitude = -18 * math.Pi / 180

// The last stretch of daylight before sunset reads as evening.
const eveningLead = 2 * time.Hour

// Compute classifies now for the given location. Ephemeris failures and
// unconfigured locations both degrade to the hour table; the method
// field records which path was taken.
func Compute(now time.Time, loc Location) TimeContext {
	if !loc.Set {
		return hourTable(now)
	}

	times := suncalc.GetTimes(now, loc.Latitude, loc.Longitude)
	dawn := times[suncalc.Dawn].Value
	sunrise := times[suncalc.Sunrise].Value
	noon := times[suncalc.SolarNoon].Value
	sunset := times[suncalc.Sunset].Value
	dusk := times[suncalc.Dusk].Value
	if sunrise.IsZero() || sunset.IsZero() {
		// Polar day/night or ephemeris failure.
		return hourTable(now)
	}

	tc := TimeContext{
		Hour:   now.Hour(),
		Minute: now.Minute(),
		Method: MethodEphemeris,
		SunTimes: &SunTimes{
			Dawn:    dawn,
			Sunrise: sunrise,
			Noon:    noon,
			Sunset:  sunset,
			Dusk:    dusk,
		},
	}

	switch {
	case !now.Before(sunrise) && !now.After(sunset):
		tc.Period = PeriodDay
	case (!now.Before(dawn) && now.Before(sunrise)) ||
		(now.After(sunset) && !now.After(dusk)):
		tc.Period = PeriodTwilight
	default:
		tc.Period = PeriodNight
	}

	afternoonEnd := sunset.Add(-eveningLead)
	switch {
	case now.Before(dawn) || now.After(dusk):
		tc.DetailedPeriod = DetailedNight
	case now.Before(sunrise):
		tc.DetailedPeriod = DetailedDawn
	case now.Before(noon):
		tc.DetailedPeriod = DetailedMorning
	case now.Before(afternoonEnd):
		tc.DetailedPeriod = DetailedAfternoon
	case !now.After(sunset):
		tc.DetailedPeriod = DetailedEvening
	default:
		tc.DetailedPeriod = DetailedDusk
	}

	tc.IsDaylight = tc.Period == PeriodDay
	pos := suncalc.GetPosition(now, loc.Latitude, loc.Longitude)
	tc.IsAstronomicalNight = pos.Altitude < astroNightAltitude

	return tc
}

// hourTable is the location-free classification. The bands approximate
// a mid-latitude site and keep behavior deterministic for tests.
func hourTable(now time.Time) TimeContext {
	h := now.Hour()

	tc := TimeContext{
		Hour:   h,
		Minute: now.Minute(),
		Method: MethodHourTable,
	}

	switch {
	case h >= 6 && h < 18:
		tc.Period = PeriodDay
	case (h >= 18 && h < 21) || (h >= 5 && h < 6):
		tc.Period = PeriodTwilight
	default:
		tc.Period = PeriodNight
	}

	switch {
	case h >= 5 && h < 8:
		tc.DetailedPeriod = DetailedDawn
	case h >= 8 && h < 12:
		tc.DetailedPeriod = DetailedMorning
	case h >= 12 && h < 17:
		tc.DetailedPeriod = DetailedAfternoon
	case h >= 17 && h < 20:
		tc.DetailedPeriod = DetailedEvening
	case h >= 20 && h < 22:
		tc.DetailedPeriod = DetailedDusk
	default:
		tc.DetailedPeriod = DetailedNight
	}

	tc.IsDaylight = h >= 6 && h < 20
	tc.IsAstronomicalNight = h >= 22 || h < 5

	return tc
}
