package astro

import (
	"time"

	"github.com/sixdouglas/suncalc"
)

// Moon phase names on the 0-28 day cycle.
const (
	MoonNewMoon        = "new_moon"
	MoonWaxingCrescent = "waxing_crescent"
	MoonFirstQuarter   = "first_quarter"
	MoonWaxingGibbous  = "waxing_gibbous"
	MoonFullMoon       = "full_moon"
	MoonWaningGibbous  = "waning_gibbous"
	MoonLastQuarter    = "last_quarter"
	MoonWaningCrescent = "waning_crescent"
)

const brightMoonPct = 50.0

// MoonContext describes the lunar state for sky-brightness context.
// Rise and set need a location; phase and illumination do not.
type MoonContext struct {
	PhaseValue      float64 `json:"phase_value"`
	PhaseName       string  `json:"phase_name"`
	IlluminationPct float64 `json:"illumination_pct"`
	IsBrightMoon    bool    `json:"is_bright_moon"`

	Moonrise *time.Time `json:"moonrise,omitempty"`
	Moonset  *time.Time `json:"moonset,omitempty"`
}

// Moon computes the lunar context for now. PhaseValue runs 0-28 with
// 0 = new moon and 14 = full moon.
func Moon(now time.Time, loc Location) MoonContext {
	ill := suncalc.GetMoonIllumination(now)
	phase := ill.Phase * 28

	mc := MoonContext{
		PhaseValue:      phase,
		PhaseName:       phaseName(phase),
		IlluminationPct: ill.Fraction * 100,
	}
	mc.IsBrightMoon = mc.IlluminationPct > brightMoonPct

	if loc.Set {
		times := suncalc.GetMoonTimes(now, loc.Latitude, loc.Longitude, false)
		if !times.Rise.IsZero() {
			rise := times.Rise
			mc.Moonrise = &rise
		}
		if !times.Set.IsZero() {
			set := times.Set
			mc.Moonset = &set
		}
	}

	return mc
}

func phaseName(phase float64) string {
	switch {
	case phase < 1:
		return MoonNewMoon
	case phase < 6:
		return MoonWaxingCrescent
	case phase < 8:
		return MoonFirstQuarter
	case phase < 13:
		return MoonWaxingGibbous
	case phase < 15:
		return MoonFullMoon
	case phase < 20:
		return MoonWaningGibbous
	case phase < 22:
		return MoonLastQuarter
	case phase < 27:
		return MoonWaningCrescent
	default:
		return MoonNewMoon
	}
}
