// Package schedule evaluates the daily capture window.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/englishfox90/pfrsentinel/internal/errors"
)

// Window is a daily wall-clock capture window in minutes since
// midnight. Start greater than end means the window spans midnight,
// which is the normal shape for night-sky capture.
type Window struct {
	Enabled bool
	Start   int
	End     int
}

// ParseClock parses "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("bad hour in %q: %w", s, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("bad minute in %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock out of range: %q", s)
	}

	return h*60 + m, nil
}

// NewWindow builds a window from config strings.
func NewWindow(enabled bool, start, end string) (Window, error) {
	errFactory := errors.New()

	s, err := ParseClock(start)
	if err != nil {
		return Window{}, errFactory.Wrap(errors.ErrInvalidWindow, err)
	}
	e, err := ParseClock(end)
	if err != nil {
		return Window{}, errFactory.Wrap(errors.ErrInvalidWindow, err)
	}

	return Window{Enabled: enabled, Start: s, End: e}, nil
}

// Contains reports whether now falls inside the window. A disabled
// window always allows capture. The end minute is exclusive.
func (w Window) Contains(now time.Time) bool {
	if !w.Enabled {
		return true
	}
	cur := now.Hour()*60 + now.Minute()
	if w.Start > w.End {
		// Overnight window.
		return cur >= w.Start || cur < w.End
	}

	return cur >= w.Start && cur < w.End
}

// Allows is the scheduler-facing check: a window that cannot be parsed
// fails open so a config typo does not silently stop all capture.
func Allows(enabled bool, start, end string, now time.Time) bool {
	w, err := NewWindow(enabled, start, end)
	if err != nil {
		return true
	}

	return w.Contains(now)
}
