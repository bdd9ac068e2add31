package schedule_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/englishfox90/pfrsentinel/internal/schedule"
)

func clock(hour, minute int) time.Time {
	return time.Date(2026, 8, 26, hour, minute, 0, 0, time.Local)
}

func TestParseClock(t *testing.T) {
	m, err := schedule.ParseClock("17:00")
	require.NoError(t, err)
	assert.Equal(t, 17*60, m)

	m, err = schedule.ParseClock("00:05")
	require.NoError(t, err)
	assert.Equal(t, 5, m)

	for _, bad := range []string{"25:00", "12:60", "noon", "12", "-1:30"} {
		_, err := schedule.ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestOvernightWindow(t *testing.T) {
	w, err := schedule.NewWindow(true, "17:00", "09:00")
	require.NoError(t, err)

	assert.True(t, w.Contains(clock(20, 0)), "20:00 is inside 17:00-09:00")
	assert.True(t, w.Contains(clock(3, 0)))
	assert.True(t, w.Contains(clock(17, 0)), "start is inclusive")
	assert.False(t, w.Contains(clock(12, 0)), "12:00 is outside 17:00-09:00")
	assert.False(t, w.Contains(clock(9, 0)), "end is exclusive")
	assert.True(t, w.Contains(clock(8, 59)))
}

func TestSameDayWindow(t *testing.T) {
	w, err := schedule.NewWindow(true, "09:00", "17:00")
	require.NoError(t, err)

	assert.True(t, w.Contains(clock(12, 0)))
	assert.False(t, w.Contains(clock(20, 0)), "20:00 is outside 09:00-17:00")
	assert.True(t, w.Contains(clock(9, 0)))
	assert.False(t, w.Contains(clock(17, 0)), "end is exclusive")
}

func TestDisabledWindowAlwaysAllows(t *testing.T) {
	w, err := schedule.NewWindow(false, "17:00", "09:00")
	require.NoError(t, err)

	assert.True(t, w.Contains(clock(12, 0)))
	assert.True(t, w.Contains(clock(3, 0)))
}

func TestAllowsFailsOpenOnBadConfig(t *testing.T) {
	assert.True(t, schedule.Allows(true, "banana", "09:00", clock(12, 0)),
		"unparseable window must not stop capture")
	assert.False(t, schedule.Allows(true, "17:00", "09:00", clock(12, 0)))
	assert.True(t, schedule.Allows(true, "17:00", "09:00", clock(20, 0)))
}
