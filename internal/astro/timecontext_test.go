package astro_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/englishfox90/pfrsentinel/internal/astro"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, 8, 26, hour, minute, 0, 0, time.UTC)
}

func TestHourTablePeriods(t *testing.T) {
	loc := astro.Location{}

	cases := []struct {
		hour     int
		period   string
		detailed string
	}{
		{0, astro.PeriodNight, astro.DetailedNight},
		{4, astro.PeriodNight, astro.DetailedNight},
		{5, astro.PeriodTwilight, astro.DetailedDawn},
		{6, astro.PeriodDay, astro.DetailedDawn},
		{8, astro.PeriodDay, astro.DetailedMorning},
		{12, astro.PeriodDay, astro.DetailedAfternoon},
		{17, astro.PeriodDay, astro.DetailedEvening},
		{18, astro.PeriodTwilight, astro.DetailedEvening},
		{20, astro.PeriodTwilight, astro.DetailedDusk},
		{21, astro.PeriodNight, astro.DetailedDusk},
		{22, astro.PeriodNight, astro.DetailedNight},
	}

	for _, c := range cases {
		tc := astro.Compute(at(c.hour, 30), loc)
		assert.Equal(t, c.period, tc.Period, "hour %d period", c.hour)
		assert.Equal(t, c.detailed, tc.DetailedPeriod, "hour %d detailed", c.hour)
		assert.Equal(t, astro.MethodHourTable, tc.Method)
		assert.Nil(t, tc.SunTimes)
	}
}

func TestHourTableFlags(t *testing.T) {
	loc := astro.Location{}

	tc := astro.Compute(at(10, 0), loc)
	assert.True(t, tc.IsDaylight)
	assert.False(t, tc.IsAstronomicalNight)

	tc = astro.Compute(at(23, 0), loc)
	assert.False(t, tc.IsDaylight)
	assert.True(t, tc.IsAstronomicalNight)

	tc = astro.Compute(at(21, 0), loc)
	assert.False(t, tc.IsDaylight)
	assert.False(t, tc.IsAstronomicalNight, "21:00 is dark but not yet astronomical night")
}

func TestEphemerisMidLatitudeSummer(t *testing.T) {
	// Austin, TX in late August: midday is day, midnight is night.
	loc := astro.Location{Name: "Austin", Latitude: 30.27, Longitude: -97.74, Set: true}

	noon := time.Date(2026, 8, 26, 18, 0, 0, 0, time.UTC) // ~13:00 local
	tc := astro.Compute(noon, loc)
	assert.Equal(t, astro.MethodEphemeris, tc.Method)
	assert.Equal(t, astro.PeriodDay, tc.Period)
	assert.True(t, tc.IsDaylight)
	assert.False(t, tc.IsAstronomicalNight)
	assert.NotNil(t, tc.SunTimes)

	midnight := time.Date(2026, 8, 26, 7, 0, 0, 0, time.UTC) // ~02:00 local
	tc = astro.Compute(midnight, loc)
	assert.Equal(t, astro.PeriodNight, tc.Period)
	assert.False(t, tc.IsDaylight)
	assert.True(t, tc.IsAstronomicalNight)
}

func TestEphemerisSunTimesOrdering(t *testing.T) {
	loc := astro.Location{Latitude: 30.27, Longitude: -97.74, Set: true}

	tc := astro.Compute(time.Date(2026, 8, 26, 18, 0, 0, 0, time.UTC), loc)
	st := tc.SunTimes
	assert.True(t, st.Dawn.Before(st.Sunrise))
	assert.True(t, st.Sunrise.Before(st.Noon))
	assert.True(t, st.Noon.Before(st.Sunset))
	assert.True(t, st.Sunset.Before(st.Dusk))
}

func TestMoonPhaseNames(t *testing.T) {
	// Phase and illumination never need a location.
	mc := astro.Moon(time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC), astro.Location{})
	assert.NotEmpty(t, mc.PhaseName)
	assert.GreaterOrEqual(t, mc.PhaseValue, 0.0)
	assert.LessOrEqual(t, mc.PhaseValue, 28.0)
	assert.GreaterOrEqual(t, mc.IlluminationPct, 0.0)
	assert.LessOrEqual(t, mc.IlluminationPct, 100.0)
	assert.Equal(t, mc.IlluminationPct > 50, mc.IsBrightMoon)
	assert.Nil(t, mc.Moonrise)
	assert.Nil(t, mc.Moonset)
}
